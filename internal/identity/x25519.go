package identity

import (
	"errors"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/curve25519"
)

// ErrInvalidPublicKey indicates a public key that does not decode to a
// valid Edwards curve point.
var ErrInvalidPublicKey = errors.New("identity: public key is not a valid curve point")

// X25519Private returns the Montgomery-curve private scalar corresponding
// to this identity's Ed25519 key. Ed25519 and X25519 share the same clamped
// scalar; only the public-key encoding differs, so no extra work is needed
// beyond returning the already-clamped first half of the expanded key.
func (id *Identity) X25519Private() [32]byte {
	var out [32]byte
	copy(out[:], id.Private[:32])
	return out
}

// X25519PublicFromEd25519 converts an Ed25519 public key (an Edwards point)
// to its Montgomery u-coordinate via the birational map
// u = (1+y)/(1-y) mod p, matching libsodium's crypto_sign_ed25519_pk_to_curve25519.
func X25519PublicFromEd25519(pub PublicKey) ([32]byte, error) {
	p, err := new(edwards25519.Point).SetBytes(pub[:])
	if err != nil {
		return [32]byte{}, ErrInvalidPublicKey
	}

	var u [32]byte
	copy(u[:], p.BytesMontgomery())
	return u, nil
}

// SharedSecret computes the X25519 Diffie-Hellman shared secret between a
// local private scalar and a remote Montgomery public key.
func SharedSecret(priv, remotePub [32]byte) ([]byte, error) {
	return curve25519.X25519(priv[:], remotePub[:])
}

// X25519PublicFromPrivate computes the Montgomery public key for a raw
// X25519 private scalar (scalar multiplication of the curve's base
// point). Used for ephemeral login keypairs, which are plain X25519 keys
// rather than Ed25519 identities.
func X25519PublicFromPrivate(priv [32]byte) ([32]byte, error) {
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], pub)
	return out, nil
}
