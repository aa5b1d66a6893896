// Package timesync implements gossip-based time synchronization: first-sync
// trust on an unsynced node, and two-source consensus for later resyncs, so
// a single malicious or confused peer cannot poison the clock.
package timesync

import "time"

// Result reports what a Feed call did.
type Result int

const (
	// Rejected means the timestamp was outside the plausible range and was
	// ignored entirely.
	Rejected Result = iota
	// FirstSync means an unsynced node trusted this timestamp outright.
	FirstSync
	// InSync means the timestamp agreed with the current estimate.
	InSync
	// Pending means the timestamp disagreed and was stored as an
	// unconfirmed candidate.
	Pending
	// ConsensusResync means a second, corroborating timestamp confirmed the
	// pending candidate and the clock was re-synced to their average.
	ConsensusResync
)

const (
	minValidUnix = 1_577_836_800 // 2020-01-01T00:00:00Z
	maxValidUnix = 4_102_444_800 // 2100-01-01T00:00:00Z

	outlierWindow = 300 * time.Second
	pendingMaxAge = time.Hour
)

type state int

const (
	stateUnsynced state = iota
	stateSynced
	stateSyncedPending
)

// Clock maintains the node's notion of wall-clock time, derived from a
// monotonic source and occasional gossip timestamps.
type Clock struct {
	now func() time.Time

	st state

	baseUnix uint32
	baseMono time.Time

	pendingUnix uint32
	pendingMono time.Time
}

// New creates a Clock that derives monotonic progress from nowFn (normally
// time.Now; overridable for tests).
func New(nowFn func() time.Time) *Clock {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Clock{now: nowFn, st: stateUnsynced}
}

// Feed presents an incoming gossip timestamp (e.g. from an ADVERT) to the
// clock and returns what happened.
func (c *Clock) Feed(ts uint32) Result {
	if ts < minValidUnix || ts >= maxValidUnix {
		return Rejected
	}

	now := c.now()

	switch c.st {
	case stateUnsynced:
		c.baseUnix = ts
		c.baseMono = now
		c.st = stateSynced
		return FirstSync

	case stateSynced:
		estimate := c.estimate(now)
		if absDiffSeconds(ts, estimate) < uint32(outlierWindow/time.Second) {
			return InSync
		}
		c.pendingUnix = ts
		c.pendingMono = now
		c.st = stateSyncedPending
		return Pending

	case stateSyncedPending:
		if now.Sub(c.pendingMono) > pendingMaxAge {
			// Pending candidate aged out; treat this timestamp as a fresh
			// pending candidate instead of comparing against the stale one.
			c.pendingUnix = ts
			c.pendingMono = now
			return Pending
		}

		adjustedCandidate := c.pendingUnix + uint32(now.Sub(c.pendingMono)/time.Second)
		if absDiffSeconds(ts, adjustedCandidate) >= uint32(outlierWindow/time.Second) {
			// Does not corroborate; replace the pending candidate.
			c.pendingUnix = ts
			c.pendingMono = now
			return Pending
		}

		avg := (ts + adjustedCandidate) / 2
		c.baseUnix = avg
		c.baseMono = now
		c.st = stateSynced
		return ConsensusResync
	}

	return Rejected
}

// Now returns the current Unix time estimate if synced, or the host
// clock's Unix seconds (not confirmed by gossip; unreliable, callers must
// treat it as such) if not.
func (c *Clock) Now() uint32 {
	now := c.now()
	if c.st == stateUnsynced {
		return uint32(now.Unix())
	}
	return c.estimate(now)
}

// Synced reports whether the clock has ever completed a first sync.
func (c *Clock) Synced() bool {
	return c.st != stateUnsynced
}

// ForceSync authoritatively sets the clock, bypassing the gossip
// consensus rules entirely. Used only by the admin-only CLI/control-plane
// "time" setter, which is trusted by construction (a mesh caller needs an
// admin session to reach this call; the control plane runs CLI lines with
// admin permission).
func (c *Clock) ForceSync(ts uint32) {
	c.baseUnix = ts
	c.baseMono = c.now()
	c.st = stateSynced
}

func (c *Clock) estimate(now time.Time) uint32 {
	elapsed := now.Sub(c.baseMono) / time.Second
	return c.baseUnix + uint32(elapsed)
}

func absDiffSeconds(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
