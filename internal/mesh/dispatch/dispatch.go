// Package dispatch routes deserialized packets to the ADVERT, CONTROL,
// ANON_REQ, REQUEST, PLAIN, and PATH_TRACE handlers, and produces the
// responses they enqueue.
package dispatch

import (
	"io"
	"time"

	"github.com/atomozero/meshcore-go/internal/identity"
	"github.com/atomozero/meshcore-go/internal/mesh/codec"
	"github.com/atomozero/meshcore-go/internal/mesh/dedup"
	"github.com/atomozero/meshcore-go/internal/mesh/ratelimit"
	"github.com/atomozero/meshcore-go/internal/mesh/session"
	"github.com/atomozero/meshcore-go/internal/mesh/tables"
	"github.com/atomozero/meshcore-go/internal/mesh/timesync"
	"github.com/atomozero/meshcore-go/internal/meshcrypto"
)

// DiscoverWindow and DiscoverMax bound CONTROL DiscoverReq responses: at
// most DiscoverMax replies in any DiscoverWindow.
const (
	DiscoverMax    = 4
	DiscoverWindow = 2 * time.Minute
)

// CLIRunner executes a parsed SEND_CLI/PLAIN-CLI command line and returns
// its text response.
type CLIRunner interface {
	Execute(perm session.Permission, line string) string
}

// Outbox receives packets ready for the forwarder's TX queue.
type Outbox interface {
	Enqueue(p *codec.Packet)
}

// Stats records the persistent counters the dispatcher touches.
type Stats interface {
	IncLogin()
	IncLoginFailure()
	IncRateLimited(scope string)
	IncPacketsByType(t codec.PayloadType)
}

// Dispatcher holds every collaborator the request pipeline touches. All
// methods are intended to run on the single reactor goroutine; nothing
// here is safe for concurrent use.
type Dispatcher struct {
	Self  *identity.Identity
	Clock *timesync.Clock

	Dedup     *dedup.Cache
	Seen      *tables.SeenNodes
	Contacts  *tables.Contacts
	Neighbors *tables.Neighbors
	Sessions  *session.Manager

	Limits   *ratelimit.Set
	Discover *ratelimit.Limiter

	CLI   CLIRunner
	Out   Outbox
	Stats Stats
	Rand  io.Reader

	KeepAliveSeconds uint32
	FirmwareByte     byte

	// AlertDest, when non-nil, receives an encrypted node-alert PLAIN
	// message whenever a previously-unseen node hash is observed in an
	// ADVERT.
	AlertDest *identity.PublicKey

	now func() time.Time
}

// New creates a Dispatcher. Fields may also be populated directly by the
// caller building up a Dispatcher literal; New only fills in defaults.
func New(self *identity.Identity, clock *timesync.Clock, nowFn func() time.Time) *Dispatcher {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Dispatcher{
		Self:     self,
		Clock:    clock,
		Discover: ratelimit.New(DiscoverMax, DiscoverWindow, nowFn),
		now:      nowFn,
	}
}

// Dispatch routes one deserialized, not-yet-forwarded packet to its
// payload-type handler. It never returns an error; all failures are
// recovered locally per the error taxonomy (logged/counted by the caller
// via Stats, dropped silently otherwise).
func (d *Dispatcher) Dispatch(pkt *codec.Packet) {
	if d.Stats != nil {
		d.Stats.IncPacketsByType(pkt.Payload)
	}

	switch pkt.Payload {
	case codec.PayloadAdvert:
		d.handleAdvert(pkt)
	case codec.PayloadControl:
		d.handleControl(pkt)
	case codec.PayloadAnonReq:
		d.handleAnonReq(pkt)
	case codec.PayloadRequest:
		d.handleRequest(pkt)
	case codec.PayloadTxtMsg:
		d.handlePlain(pkt)
	case codec.PayloadPathTrace:
		d.handlePathTrace(pkt)
	}
}

// enqueueFlood wraps data in a FLOOD-routed, empty-path response packet
// and hands it to the Outbox, matching "all responses use FLOOD routing
// with an empty path; the client walks the flood back."
func (d *Dispatcher) enqueueFlood(payloadType codec.PayloadType, data []byte) {
	if d.Out == nil {
		return
	}
	d.Out.Enqueue(&codec.Packet{
		Route:   codec.RouteFlood,
		Payload: payloadType,
		Path:    nil,
		Data:    data,
	})
}
