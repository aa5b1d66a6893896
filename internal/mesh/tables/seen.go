// Package tables implements the bounded, LRU-evicted in-memory tables the
// reactor owns exclusively: SeenNodes, Contacts, and Neighbors.
package tables

import "time"

// SeenNodesCapacity is the fixed capacity of the SeenNodes table.
const SeenNodesCapacity = 16

// SeenNode records the last-observed radio quality for a node hash.
type SeenNode struct {
	Hash       byte
	Name       string
	LastRSSI   int16
	LastSNR    int16
	EMASNR     float32
	PacketCnt  uint8 // saturates at 255
	LastSeen   time.Time
}

// SeenNodes is a capacity-16 LRU table keyed by node hash.
type SeenNodes struct {
	capacity int
	order    []byte // most-recently-used at the end
	byHash   map[byte]*SeenNode
}

// NewSeenNodes creates a SeenNodes table of the given capacity (0 uses the
// default).
func NewSeenNodes(capacity int) *SeenNodes {
	if capacity <= 0 {
		capacity = SeenNodesCapacity
	}
	return &SeenNodes{
		capacity: capacity,
		byHash:   make(map[byte]*SeenNode, capacity),
	}
}

// Observe records a packet reception from hash, updating or creating its
// entry and evicting the LRU entry if the table is full.
func (s *SeenNodes) Observe(hash byte, rssi, snr int16, name string, now time.Time) *SeenNode {
	if n, ok := s.byHash[hash]; ok {
		n.LastRSSI = rssi
		n.LastSNR = snr
		n.EMASNR = ema(n.EMASNR, float32(snr))
		if n.PacketCnt < 255 {
			n.PacketCnt++
		}
		n.LastSeen = now
		if name != "" {
			n.Name = name
		}
		s.touch(hash)
		return n
	}

	if len(s.order) >= s.capacity {
		s.evictOldest()
	}

	n := &SeenNode{
		Hash:      hash,
		Name:      name,
		LastRSSI:  rssi,
		LastSNR:   snr,
		EMASNR:    float32(snr),
		PacketCnt: 1,
		LastSeen:  now,
	}
	s.byHash[hash] = n
	s.order = append(s.order, hash)
	return n
}

// Get returns the entry for hash, if present.
func (s *SeenNodes) Get(hash byte) (*SeenNode, bool) {
	n, ok := s.byHash[hash]
	return n, ok
}

// Len returns the number of tracked nodes.
func (s *SeenNodes) Len() int {
	return len(s.order)
}

// All returns a snapshot of every entry, in no particular order.
func (s *SeenNodes) All() []*SeenNode {
	out := make([]*SeenNode, 0, len(s.byHash))
	for _, n := range s.byHash {
		out = append(out, n)
	}
	return out
}

func (s *SeenNodes) touch(hash byte) {
	for i, h := range s.order {
		if h == hash {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.order = append(s.order, hash)
}

func (s *SeenNodes) evictOldest() {
	if len(s.order) == 0 {
		return
	}
	oldest := s.order[0]
	s.order = s.order[1:]
	delete(s.byHash, oldest)
}

// ema is a simple exponential moving average with alpha=0.25, matching the
// smoothing weight commonly used for link-quality tracking.
func ema(prev, sample float32) float32 {
	if prev == 0 {
		return sample
	}
	const alpha = 0.25
	return prev + alpha*(sample-prev)
}
