package identity

import (
	"crypto/sha512"
	"errors"

	"filippo.io/edwards25519"
)

// SignatureSize is the length in bytes of an Ed25519 signature (R || S).
const SignatureSize = 64

// ErrInvalidSignature describes a malformed (not merely unauthentic)
// signature or public key. Verify does not return it; it reports such
// input as false.
var ErrInvalidSignature = errors.New("identity: malformed signature or public key")

// derivePublic computes A = s*B, the Ed25519 public key for the scalar
// half of an expanded private key.
func derivePublic(priv PrivateKey) PublicKey {
	s, err := edwards25519.NewScalar().SetBytesWithClamping(priv[:32])
	if err != nil {
		// SetBytesWithClamping only fails on wrong input length; priv[:32]
		// is always exactly 32 bytes.
		panic(err)
	}

	A := new(edwards25519.Point).ScalarBaseMult(s)

	var pub PublicKey
	copy(pub[:], A.Bytes())
	return pub
}

// Sign produces a deterministic Ed25519 signature over message using the
// expanded private key, following RFC 8032 section 5.1.6 exactly.
func (id *Identity) Sign(message []byte) [SignatureSize]byte {
	return Sign(id.Private, message)
}

// Sign is the free-function form of Identity.Sign, usable once an expanded
// private key is available without a full Identity.
func Sign(priv PrivateKey, message []byte) [SignatureSize]byte {
	s, err := edwards25519.NewScalar().SetBytesWithClamping(priv[:32])
	if err != nil {
		panic(err)
	}
	prefix := priv[32:64]

	A := new(edwards25519.Point).ScalarBaseMult(s)
	pubBytes := A.Bytes()

	rh := sha512.New()
	rh.Write(prefix)
	rh.Write(message)
	rDigest := rh.Sum(nil)

	r, err := edwards25519.NewScalar().SetUniformBytes(rDigest)
	if err != nil {
		panic(err)
	}

	R := new(edwards25519.Point).ScalarBaseMult(r)
	rBytes := R.Bytes()

	kh := sha512.New()
	kh.Write(rBytes)
	kh.Write(pubBytes)
	kh.Write(message)
	kDigest := kh.Sum(nil)

	k, err := edwards25519.NewScalar().SetUniformBytes(kDigest)
	if err != nil {
		panic(err)
	}

	S := edwards25519.NewScalar().MultiplyAdd(k, s, r)

	var sig [SignatureSize]byte
	copy(sig[:32], rBytes)
	copy(sig[32:], S.Bytes())
	return sig
}

// Verify checks an Ed25519 signature against the given public key and
// message. Returns false for any malformed signature or public key rather
// than erroring, since callers treat both as "not authentic".
func Verify(pub PublicKey, message []byte, sig [SignatureSize]byte) bool {
	A, err := new(edwards25519.Point).SetBytes(pub[:])
	if err != nil {
		return false
	}

	R, err := new(edwards25519.Point).SetBytes(sig[:32])
	if err != nil {
		return false
	}

	S, err := edwards25519.NewScalar().SetCanonicalBytes(sig[32:])
	if err != nil {
		return false
	}

	kh := sha512.New()
	kh.Write(sig[:32])
	kh.Write(pub[:])
	kh.Write(message)
	kDigest := kh.Sum(nil)

	k, err := edwards25519.NewScalar().SetUniformBytes(kDigest)
	if err != nil {
		return false
	}

	sb := new(edwards25519.Point).ScalarBaseMult(S)
	ka := new(edwards25519.Point).ScalarMult(k, A)
	rhs := new(edwards25519.Point).Add(R, ka)

	return sb.Equal(rhs) == 1
}
