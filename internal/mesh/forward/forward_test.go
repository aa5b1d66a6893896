package forward

import (
	"testing"
	"time"

	"github.com/atomozero/meshcore-go/internal/mesh/codec"
	"github.com/atomozero/meshcore-go/internal/mesh/dedup"
	"github.com/atomozero/meshcore-go/internal/mesh/ratelimit"
)

func newForwarder() *Forwarder {
	now := time.Now()
	limiter := ratelimit.New(100, time.Minute, func() time.Time { return now })
	return New(0x42, dedup.New(dedup.DefaultCapacity), limiter)
}

func TestConsiderDropsNonFlood(t *testing.T) {
	f := newForwarder()
	pkt := &codec.Packet{Route: codec.RouteDirect, Payload: codec.PayloadTxtMsg, Data: []byte("x")}
	if f.Consider(pkt) {
		t.Fatal("direct route should never be forwarded")
	}
}

func TestConsiderDropsAddressedToUs(t *testing.T) {
	f := newForwarder()
	pkt := &codec.Packet{Route: codec.RouteFlood, Payload: codec.PayloadRequest, Data: []byte{0x42, 0, 0, 0}}
	if f.Consider(pkt) {
		t.Fatal("packet addressed to us should not be forwarded")
	}
}

func TestConsiderDedupAdmitsOnce(t *testing.T) {
	f := newForwarder()
	mk := func() *codec.Packet {
		return &codec.Packet{Route: codec.RouteFlood, Payload: codec.PayloadTxtMsg, Data: []byte("hello")}
	}

	if !f.Consider(mk()) {
		t.Fatal("first admission should forward")
	}
	if f.Consider(mk()) {
		t.Fatal("second identical packet should be deduped")
	}
}

func TestConsiderDropsOverlongPath(t *testing.T) {
	f := newForwarder()
	path := make([]byte, codec.MaxPathLen)
	pkt := &codec.Packet{Route: codec.RouteFlood, Payload: codec.PayloadTxtMsg, Path: path, Data: []byte("x")}
	if f.Consider(pkt) {
		t.Fatal("path at max length should be dropped")
	}
}

func TestConsiderAppendsLocalHashAndQueues(t *testing.T) {
	f := newForwarder()
	pkt := &codec.Packet{Route: codec.RouteFlood, Payload: codec.PayloadTxtMsg, Path: []byte{0x01, 0x02}, Data: []byte("hi")}
	if !f.Consider(pkt) {
		t.Fatal("expected admission")
	}
	if len(pkt.Path) != 3 || pkt.Path[2] != 0x42 {
		t.Fatalf("path = %v, want [...] with local hash appended", pkt.Path)
	}
	if f.Queue.Len() != 1 {
		t.Fatalf("queue len = %d, want 1", f.Queue.Len())
	}
}

func TestQueueEvictsOldestOnOverflow(t *testing.T) {
	q := NewQueue(2)
	a := &codec.Packet{Data: []byte("a")}
	b := &codec.Packet{Data: []byte("b")}
	c := &codec.Packet{Data: []byte("c")}
	q.Push(a)
	q.Push(b)
	q.Push(c)

	if q.Len() != 2 {
		t.Fatalf("len = %d, want 2", q.Len())
	}
	got, _ := q.Pop()
	if string(got.Data) != "b" {
		t.Fatalf("oldest surviving packet = %q, want %q", got.Data, "b")
	}
}

func TestContentionWindowMonotonic(t *testing.T) {
	low := ContentionWindow(-100)
	high := ContentionWindow(100)
	if low != minContentionSlots {
		t.Fatalf("low SNR window = %d, want %d", low, minContentionSlots)
	}
	if high != maxContentionSlots {
		t.Fatalf("high SNR window = %d, want %d", high, maxContentionSlots)
	}
}

func TestChannelSenseFalsePositiveClears(t *testing.T) {
	cs := NewChannelSense(10*time.Millisecond, 500*time.Millisecond)
	now := time.Now()
	cs.OnPreamble(now)

	if !cs.Busy(now.Add(5 * time.Millisecond)) {
		t.Fatal("channel should read busy immediately after a preamble")
	}
	if cs.Busy(now.Add(50 * time.Millisecond)) {
		t.Fatal("preamble without a header after 2x preamble time should clear as a false positive")
	}
}

func TestChannelSenseStallClears(t *testing.T) {
	cs := NewChannelSense(10*time.Millisecond, 100*time.Millisecond)
	now := time.Now()
	cs.OnPreamble(now)
	cs.OnHeaderValid()

	if !cs.Busy(now.Add(50 * time.Millisecond)) {
		t.Fatal("channel should read busy while within max packet time")
	}
	if cs.Busy(now.Add(200 * time.Millisecond)) {
		t.Fatal("a header-valid preamble older than max packet time should clear as a stall")
	}
}

func TestAirtimePositive(t *testing.T) {
	params := LoRaParams{SpreadingFactor: 7, Bandwidth: 125_000, CodingRate: 1, PreambleSymbols: 8}
	d := Airtime(params, 50)
	if d <= 0 {
		t.Fatalf("airtime = %v, want > 0", d)
	}
}

func TestAccountantRollsUpToSeconds(t *testing.T) {
	var a Accountant
	a.Add(500 * time.Millisecond)
	a.Add(600 * time.Millisecond)
	if a.Seconds() != 1 {
		t.Fatalf("Seconds() = %d, want 1", a.Seconds())
	}
}
