package advert

import (
	"bytes"
	"testing"

	"github.com/atomozero/meshcore-go/internal/identity"
)

func testIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	var seed [32]byte
	seed[0] = 7
	id, err := identity.FromSeed(seed, "Node7", identity.NodeTypeRepeater)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	return id
}

func TestBuildParseRoundTrip(t *testing.T) {
	id := testIdentity(t)
	id.HasLoc = true
	id.LatMicro = 45_000_000
	id.LonMicro = 7_000_000

	payload, err := Build(id, 1_737_312_000)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	info, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !info.SignatureValid {
		t.Fatal("signature should validate")
	}
	if info.PubKey != id.Public {
		t.Fatal("pubkey mismatch")
	}
	if info.Timestamp != 1_737_312_000 {
		t.Fatalf("timestamp = %d", info.Timestamp)
	}
	if !info.HasLocation || info.LatMicro != 45_000_000 || info.LonMicro != 7_000_000 {
		t.Fatalf("location mismatch: %+v", info)
	}
	if !info.HasName || info.Name != "Node7" {
		t.Fatalf("name mismatch: %+v", info)
	}
	if !info.IsRepeater {
		t.Fatal("expected IsRepeater")
	}
}

func TestParseTooShort(t *testing.T) {
	if _, err := Parse(make([]byte, 10)); err != ErrTooShort {
		t.Fatalf("got %v, want ErrTooShort", err)
	}
}

func TestParseTolerantFallback(t *testing.T) {
	id := testIdentity(t)

	// Build a canonical payload, then strip the flags byte to simulate the
	// known peer bug where a location-carrying advert omits it, leaving a
	// bare 8-byte location directly followed by the name.
	payload, err := Build(id, 1_737_312_000)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	appdata := []byte{}
	appdata = appendU32LE(appdata, 45_000_000)
	appdata = appendU32LE(appdata, 7_000_000)
	appdata = append(appdata, []byte("Node7")...)

	broken := append(payload[:headerLen:headerLen], appdata...)

	info, err := Parse(broken)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !info.HasName || info.Name != "Node7" {
		t.Fatalf("tolerant parse name mismatch: %+v", info)
	}
	if !info.HasLocation || info.LatMicro != 45_000_000 {
		t.Fatalf("tolerant parse location mismatch: %+v", info)
	}
}

func TestSanitizeNameStopsAtNUL(t *testing.T) {
	got := sanitizeName([]byte("abc\x00def"))
	if got != "abc" {
		t.Fatalf("sanitizeName = %q, want %q", got, "abc")
	}
}

func TestBuildDeterministicBytes(t *testing.T) {
	id := testIdentity(t)
	a, err := Build(id, 100)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b, err := Build(id, 100)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("Build should be deterministic for identical inputs")
	}
}
