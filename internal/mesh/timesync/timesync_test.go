package timesync

import (
	"testing"
	"time"
)

func TestFirstSync(t *testing.T) {
	base := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	now := base
	c := New(func() time.Time { return now })

	if got := c.Feed(1_737_312_000); got != FirstSync {
		t.Fatalf("Feed = %v, want FirstSync", got)
	}
	if !c.Synced() {
		t.Fatal("clock should be synced after first sync")
	}
}

func TestInSyncWithinWindow(t *testing.T) {
	base := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	now := base
	c := New(func() time.Time { return now })

	c.Feed(1_737_312_000)

	now = base.Add(10 * time.Second)
	if got := c.Feed(1_737_312_005); got != InSync {
		t.Fatalf("Feed = %v, want InSync", got)
	}
}

func TestConsensusResync(t *testing.T) {
	base := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	now := base
	c := New(func() time.Time { return now })

	c.Feed(1_737_312_000)

	outlier := uint32(1_737_312_000 + 1000)
	if got := c.Feed(outlier); got != Pending {
		t.Fatalf("Feed(outlier) = %v, want Pending", got)
	}

	now = base.Add(5 * time.Second)
	confirm := outlier + 5
	if got := c.Feed(confirm); got != ConsensusResync {
		t.Fatalf("Feed(confirm) = %v, want ConsensusResync", got)
	}
}

func TestRejectsOutOfRangeTimestamp(t *testing.T) {
	c := New(nil)
	if got := c.Feed(0); got != Rejected {
		t.Fatalf("Feed(0) = %v, want Rejected", got)
	}
}
