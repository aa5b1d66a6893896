package tables

import (
	"testing"
	"time"

	"github.com/atomozero/meshcore-go/internal/identity"
)

func TestSeenNodesEviction(t *testing.T) {
	s := NewSeenNodes(2)
	now := time.Now()

	s.Observe(1, -50, 5, "a", now)
	s.Observe(2, -50, 5, "b", now)
	s.Observe(3, -50, 5, "c", now) // evicts 1

	if _, ok := s.Get(1); ok {
		t.Fatal("node 1 should have been evicted")
	}
	if _, ok := s.Get(3); !ok {
		t.Fatal("node 3 should be present")
	}
}

func TestContactsSecretRecomputedOnSlotReuse(t *testing.T) {
	calls := 0
	derive := func(pub identity.PublicKey) ([32]byte, error) {
		calls++
		var s [32]byte
		s[0] = byte(calls)
		return s, nil
	}

	c := NewContacts(1, derive)

	var pubA, pubB identity.PublicKey
	pubA[0] = 0xAA
	pubB[0] = 0xBB

	ctA, err := c.Observe(pubA, "a", -40, 6)
	if err != nil {
		t.Fatalf("Observe a: %v", err)
	}
	if ctA.SharedSecret[0] != 1 {
		t.Fatalf("secret = %d, want 1", ctA.SharedSecret[0])
	}

	// Reusing the only slot for a new pubkey must recompute the secret.
	ctB, err := c.Observe(pubB, "b", -40, 6)
	if err != nil {
		t.Fatalf("Observe b: %v", err)
	}
	if ctB.SharedSecret[0] != 2 {
		t.Fatalf("secret = %d, want 2 (recomputed)", ctB.SharedSecret[0])
	}
	if calls != 2 {
		t.Fatalf("derive called %d times, want 2", calls)
	}
}

func TestNeighborsOnlyZeroHopAndExpiry(t *testing.T) {
	n := NewNeighbors(2)
	now := time.Now()

	n.ObserveZeroHop(1, "r1", now)
	if _, ok := n.Get(1, now); !ok {
		t.Fatal("neighbor 1 should be present immediately")
	}

	later := now.Add(NeighborExpiry + time.Second)
	if _, ok := n.Get(1, later); ok {
		t.Fatal("neighbor 1 should have expired")
	}
}
