package codec

import (
	"bytes"
	"testing"
)

func TestHeaderPackUnpack(t *testing.T) {
	p := &Packet{Route: RouteDirect, Payload: PayloadRequest, Version: 1}
	h := p.Header()

	var q Packet
	q.SetHeader(h)

	if q.Route != p.Route || q.Payload != p.Payload || q.Version != p.Version {
		t.Fatalf("round trip mismatch: got %+v, want %+v", q, p)
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	p := &Packet{
		Route:   RouteFlood,
		Payload: PayloadTxtMsg,
		Version: 0,
		Path:    []byte{0xAA, 0xBB, 0xCC},
		Data:    []byte("hello mesh"),
	}

	wire := Serialize(p)

	got, err := Deserialize(wire)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if got.Header() != p.Header() {
		t.Fatalf("header mismatch: %x vs %x", got.Header(), p.Header())
	}
	if !bytes.Equal(got.Path, p.Path) {
		t.Fatalf("path mismatch: %x vs %x", got.Path, p.Path)
	}
	if !bytes.Equal(got.Data, p.Data) {
		t.Fatalf("data mismatch: %q vs %q", got.Data, p.Data)
	}

	wire2 := Serialize(got)
	if !bytes.Equal(wire, wire2) {
		t.Fatalf("re-serialize mismatch: %x vs %x", wire2, wire)
	}
}

func TestDeserializeTooShort(t *testing.T) {
	if _, err := Deserialize([]byte{0x00}); err != ErrTooShort {
		t.Fatalf("got %v, want ErrTooShort", err)
	}
}

func TestDeserializeBadPath(t *testing.T) {
	raw := []byte{0x00, 64}
	if _, err := Deserialize(raw); err != ErrBadPath {
		t.Fatalf("got %v, want ErrBadPath", err)
	}
}

func TestDeserializeBadLength(t *testing.T) {
	raw := []byte{0x00, 5, 1, 2}
	if _, err := Deserialize(raw); err != ErrBadLength {
		t.Fatalf("got %v, want ErrBadLength", err)
	}
}

func TestDeserializeClampsOverlongPayload(t *testing.T) {
	raw := make([]byte, 2+0+(MaxPayloadLen+20))
	raw[1] = 0
	for i := 2; i < len(raw); i++ {
		raw[i] = byte(i)
	}

	p, err := Deserialize(raw)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(p.Data) != MaxPayloadLen {
		t.Fatalf("payload len = %d, want %d", len(p.Data), MaxPayloadLen)
	}
}
