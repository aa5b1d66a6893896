// Package dedup implements the bounded FIFO packet-fingerprint cache that
// gates forwarding decisions.
package dedup

import "github.com/atomozero/meshcore-go/internal/mesh/codec"

// DefaultCapacity is the dedup cache size specified for the forwarder.
const DefaultCapacity = 32

// Cache is a fixed-capacity FIFO set of recently admitted fingerprints.
// Not safe for concurrent use; the reactor is its single owner.
type Cache struct {
	capacity int
	entries  [][codec.FingerprintSize]byte
	index    map[[codec.FingerprintSize]byte]struct{}
	next     int
}

// New creates a Cache with the given capacity. A capacity of 0 uses
// DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make([][codec.FingerprintSize]byte, 0, capacity),
		index:    make(map[[codec.FingerprintSize]byte]struct{}, capacity),
	}
}

// Admit reports whether fp is new (not already cached) and, if so, inserts
// it, evicting the oldest entry once capacity is reached. Re-admitting a
// fingerprint already present returns false without mutating the cache.
func (c *Cache) Admit(fp [codec.FingerprintSize]byte) bool {
	if _, seen := c.index[fp]; seen {
		return false
	}

	if len(c.entries) < c.capacity {
		c.entries = append(c.entries, fp)
	} else {
		oldest := c.entries[c.next]
		delete(c.index, oldest)
		c.entries[c.next] = fp
		c.next = (c.next + 1) % c.capacity
	}

	c.index[fp] = struct{}{}
	return true
}

// Len returns the number of fingerprints currently cached.
func (c *Cache) Len() int {
	return len(c.entries)
}
