package identity

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode hex: %v", err)
	}
	return b
}

// TestRFC8032Vector1 checks the expanded-seed signing path against RFC
// 8032 section 7.1 test vector 1, byte-for-byte.
func TestRFC8032Vector1(t *testing.T) {
	seedBytes := mustHex(t, "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	wantPub := mustHex(t, "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a")
	wantSig := mustHex(t,
		"e5564300c360ac729086e2cc806e828a84877f1eb8e5d974d873e06522490155"+
			"5fb8821590a33bacc61e39701cf9b46bd25bf5f0595bbe24655141438e7a100b")

	var seed [32]byte
	copy(seed[:], seedBytes)

	id, err := FromSeed(seed, "", NodeTypeClient)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}

	if !bytes.Equal(id.Public[:], wantPub) {
		t.Fatalf("public key mismatch: got %x want %x", id.Public[:], wantPub)
	}

	sig := id.Sign(nil)
	if !bytes.Equal(sig[:], wantSig) {
		t.Fatalf("signature mismatch: got %x want %x", sig[:], wantSig)
	}

	if !Verify(id.Public, nil, sig) {
		t.Fatal("Verify rejected a valid signature")
	}

	sig[0] ^= 0xFF
	if Verify(id.Public, nil, sig) {
		t.Fatal("Verify accepted a tampered signature")
	}
}

func TestHashIsFirstPublicKeyByte(t *testing.T) {
	id, err := Generate(bytes.NewReader(make([]byte, 32)), "node", NodeTypeRepeater)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if id.Hash() != id.Public[0] {
		t.Fatalf("Hash() = %x, want %x", id.Hash(), id.Public[0])
	}
}

func TestX25519ConversionRoundTrips(t *testing.T) {
	var seed [32]byte
	copy(seed[:], mustHex(t, "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"))

	a, err := FromSeed(seed, "a", NodeTypeClient)
	if err != nil {
		t.Fatalf("FromSeed a: %v", err)
	}

	var seedB [32]byte
	copy(seedB[:], mustHex(t, "4ccd089b28ff96da9db6c346ec114e0f5b8a319f35aba624da8cf6ed4fb8a6fb"))
	b, err := FromSeed(seedB, "b", NodeTypeClient)
	if err != nil {
		t.Fatalf("FromSeed b: %v", err)
	}

	aPubX, err := X25519PublicFromEd25519(a.Public)
	if err != nil {
		t.Fatalf("X25519PublicFromEd25519(a): %v", err)
	}
	bPubX, err := X25519PublicFromEd25519(b.Public)
	if err != nil {
		t.Fatalf("X25519PublicFromEd25519(b): %v", err)
	}

	aPriv := a.X25519Private()
	bPriv := b.X25519Private()

	secretAB, err := SharedSecret(aPriv, bPubX)
	if err != nil {
		t.Fatalf("SharedSecret a->b: %v", err)
	}
	secretBA, err := SharedSecret(bPriv, aPubX)
	if err != nil {
		t.Fatalf("SharedSecret b->a: %v", err)
	}

	if !bytes.Equal(secretAB, secretBA) {
		t.Fatalf("shared secrets disagree: %x vs %x", secretAB, secretBA)
	}
}
