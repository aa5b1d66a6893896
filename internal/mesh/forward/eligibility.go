package forward

import (
	"github.com/atomozero/meshcore-go/internal/mesh/codec"
	"github.com/atomozero/meshcore-go/internal/mesh/dedup"
	"github.com/atomozero/meshcore-go/internal/mesh/ratelimit"
)

// Forwarder applies the five-step forwarding rule and owns the TX queue.
type Forwarder struct {
	Dedup   *dedup.Cache
	Limiter *ratelimit.Limiter
	Queue   *Queue

	LocalHash byte
}

// New creates a Forwarder.
func New(localHash byte, d *dedup.Cache, limiter *ratelimit.Limiter) *Forwarder {
	return &Forwarder{
		Dedup:     d,
		Limiter:   limiter,
		Queue:     NewQueue(QueueCapacity),
		LocalHash: localHash,
	}
}

// Enqueue implements dispatch.Outbox: responses and locally-originated
// packets join the same TX queue as forwarded floods.
func (f *Forwarder) Enqueue(p *codec.Packet) {
	f.Queue.Push(p)
}

// addressedToUs reports whether payload[0] names the local node hash for
// payload types that carry a dest_hash in their first byte.
func addressedToUs(pkt *codec.Packet, localHash byte) bool {
	switch pkt.Payload {
	case codec.PayloadAnonReq, codec.PayloadRequest, codec.PayloadResponse:
		return len(pkt.Data) > 0 && pkt.Data[0] == localHash
	default:
		return false
	}
}

// Consider applies the five-step forwarding rule to an incoming packet.
// On success it appends the local node hash to the path, pushes the
// packet onto the TX queue, and returns true.
func (f *Forwarder) Consider(pkt *codec.Packet) bool {
	if pkt.Route != codec.RouteFlood {
		return false
	}
	if addressedToUs(pkt, f.LocalHash) {
		return false
	}

	fp := codec.Fingerprint(pkt)
	if !f.Dedup.Admit(fp) {
		return false
	}

	if len(pkt.Path) >= codec.MaxPathLen {
		return false
	}

	if !f.Limiter.Allow() {
		return false
	}

	pkt.Path = append(pkt.Path, f.LocalHash)
	f.Queue.Push(pkt)
	return true
}
