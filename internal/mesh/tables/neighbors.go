package tables

import "time"

// NeighborsCapacity is the default (tunable) capacity of the Neighbors
// table.
const NeighborsCapacity = 50

// NeighborExpiry is how long a neighbor is retained without a fresh
// zero-hop ADVERT before it expires.
const NeighborExpiry = time.Hour

// Neighbor is a directly-heard repeater, recorded ONLY from zero-hop
// ADVERTs. This directness requirement must not be weakened: relaxing it
// to accept multi-hop ADVERTs would let a neighbor table silently fill
// with unreachable-in-one-hop peers.
type Neighbor struct {
	Hash     byte
	Name     string
	LastSeen time.Time
}

// Neighbors is a capacity-bounded table of direct-neighbor repeaters,
// evicted by expiry first, then LRU.
type Neighbors struct {
	capacity int
	order    []byte
	byHash   map[byte]*Neighbor
}

// NewNeighbors creates a Neighbors table of the given capacity (0 uses the
// default).
func NewNeighbors(capacity int) *Neighbors {
	if capacity <= 0 {
		capacity = NeighborsCapacity
	}
	return &Neighbors{
		capacity: capacity,
		byHash:   make(map[byte]*Neighbor, capacity),
	}
}

// ObserveZeroHop records a zero-hop ADVERT from a repeater. Callers MUST
// NOT call this for any ADVERT with a non-empty path.
func (n *Neighbors) ObserveZeroHop(hash byte, name string, now time.Time) {
	n.expireBefore(now)

	if nb, ok := n.byHash[hash]; ok {
		nb.LastSeen = now
		if name != "" {
			nb.Name = name
		}
		n.touch(hash)
		return
	}

	if len(n.order) >= n.capacity {
		n.evictOldest()
	}

	nb := &Neighbor{Hash: hash, Name: name, LastSeen: now}
	n.byHash[hash] = nb
	n.order = append(n.order, hash)
}

// Get returns the neighbor for hash, if present and unexpired as of now.
func (n *Neighbors) Get(hash byte, now time.Time) (*Neighbor, bool) {
	nb, ok := n.byHash[hash]
	if !ok {
		return nil, false
	}
	if now.Sub(nb.LastSeen) > NeighborExpiry {
		return nil, false
	}
	return nb, true
}

// Len returns the number of tracked (possibly expired) neighbors.
func (n *Neighbors) Len() int {
	return len(n.order)
}

// All returns every unexpired neighbor as of now, oldest-touched first.
func (n *Neighbors) All(now time.Time) []*Neighbor {
	n.expireBefore(now)
	out := make([]*Neighbor, 0, len(n.order))
	for _, h := range n.order {
		out = append(out, n.byHash[h])
	}
	return out
}

// expireBefore removes every neighbor whose last-seen time is older than
// NeighborExpiry relative to now.
func (n *Neighbors) expireBefore(now time.Time) {
	kept := n.order[:0]
	for _, h := range n.order {
		nb := n.byHash[h]
		if now.Sub(nb.LastSeen) > NeighborExpiry {
			delete(n.byHash, h)
			continue
		}
		kept = append(kept, h)
	}
	n.order = kept
}

func (n *Neighbors) touch(hash byte) {
	for i, h := range n.order {
		if h == hash {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
	n.order = append(n.order, hash)
}

func (n *Neighbors) evictOldest() {
	if len(n.order) == 0 {
		return
	}
	oldest := n.order[0]
	n.order = n.order[1:]
	delete(n.byHash, oldest)
}
