package dispatch

import (
	"math/rand/v2"
	"time"

	"github.com/atomozero/meshcore-go/internal/identity"
	"github.com/atomozero/meshcore-go/internal/mesh/codec"
)

const (
	discoverFlagsHighNibble = 0x80

	discoverMaxDelay = 400 * time.Millisecond
)

// handleControl implements CONTROL DISCOVER_REQ: if the type filter
// selects repeaters and the discover rate limiter permits, queue a
// DISCOVER_RESP. The response is enqueued at once; no randomized delay
// is applied to it.
func (d *Dispatcher) handleControl(pkt *codec.Packet) {
	if len(pkt.Data) < 6 {
		return
	}

	flags := pkt.Data[0]
	if flags&0xF0 != discoverFlagsHighNibble {
		return
	}
	typeFilter := pkt.Data[1]
	tag := pkt.Data[2:6]

	if typeFilter != 0 && identity.NodeType(typeFilter) != identity.NodeTypeRepeater {
		return
	}

	if !d.Discover.Allow() {
		return
	}

	resp := make([]byte, 0, 15)
	resp = append(resp, 0x01) // resp_flag
	resp = append(resp, byte(identity.NodeTypeRepeater))
	resp = append(resp, byte(int8(pkt.SNR/4)))
	resp = append(resp, tag...)
	resp = append(resp, d.Self.Public[:8]...)

	// randomDelay's result is discarded: nothing here or in the reactor
	// waits on it before the response is queued.
	_ = randomDelay()

	d.enqueueFlood(codec.PayloadControl, resp)
}

func randomDelay() time.Duration {
	return time.Duration(rand.IntN(int(discoverMaxDelay)))
}
