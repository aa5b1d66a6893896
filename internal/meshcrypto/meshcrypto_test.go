package meshcrypto

import (
	"bytes"
	"testing"

	"github.com/atomozero/meshcore-go/internal/identity"
)

func TestEncryptThenMACRoundTrip(t *testing.T) {
	var secret [32]byte
	for i := range secret {
		secret[i] = byte(i)
	}

	cases := [][]byte{
		nil,
		[]byte("hi"),
		bytes.Repeat([]byte{0x42}, 16),
		bytes.Repeat([]byte{0x7}, 160),
	}

	for _, plaintext := range cases {
		framed, err := Encrypt(secret, plaintext)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}

		got, err := Decrypt(secret, framed)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}

		want := padZero(plaintext)
		if !bytes.Equal(got, want) {
			t.Fatalf("roundtrip mismatch: got %x want %x", got, want)
		}
	}
}

func TestDecryptRejectsTamperedMAC(t *testing.T) {
	var secret [32]byte
	framed, err := Encrypt(secret, []byte("hello"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	framed[0] ^= 0xFF
	if _, err := Decrypt(secret, framed); err != ErrAuthFailed {
		t.Fatalf("Decrypt with tampered mac = %v, want ErrAuthFailed", err)
	}
}

func TestECDHSymmetry(t *testing.T) {
	var seedA, seedB [32]byte
	seedA[0] = 1
	seedB[0] = 2

	a, err := identity.FromSeed(seedA, "a", identity.NodeTypeRepeater)
	if err != nil {
		t.Fatalf("FromSeed a: %v", err)
	}
	b, err := identity.FromSeed(seedB, "b", identity.NodeTypeClient)
	if err != nil {
		t.Fatalf("FromSeed b: %v", err)
	}

	sAB, err := SharedSecret(a.Private, b.Public)
	if err != nil {
		t.Fatalf("SharedSecret a->b: %v", err)
	}
	sBA, err := SharedSecret(b.Private, a.Public)
	if err != nil {
		t.Fatalf("SharedSecret b->a: %v", err)
	}

	if sAB != sBA {
		t.Fatalf("shared secrets disagree: %x vs %x", sAB, sBA)
	}
}
