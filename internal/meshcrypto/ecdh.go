package meshcrypto

import "github.com/atomozero/meshcore-go/internal/identity"

// SharedSecret computes the Ed25519->X25519 ECDH shared secret between our
// expanded private key and a peer's Ed25519 public key, as required by
// ANON_REQ/REQUEST/RESPONSE/PLAIN handling.
func SharedSecret(ourPriv identity.PrivateKey, theirPub identity.PublicKey) ([32]byte, error) {
	var expanded identity.Identity
	expanded.Private = ourPriv

	ourX25519Priv := expanded.X25519Private()

	theirX25519Pub, err := identity.X25519PublicFromEd25519(theirPub)
	if err != nil {
		return [32]byte{}, err
	}

	secret, err := identity.SharedSecret(ourX25519Priv, theirX25519Pub)
	if err != nil {
		return [32]byte{}, err
	}

	var out [32]byte
	copy(out[:], secret)
	return out, nil
}
