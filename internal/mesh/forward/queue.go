// Package forward implements the forwarding eligibility rule, the TX
// queue, CSMA backoff with SNR-weighted contention, channel sensing, and
// LoRa airtime accounting.
package forward

import "github.com/atomozero/meshcore-go/internal/mesh/codec"

// QueueCapacity is the fixed TX queue depth; on overflow the oldest
// queued packet is evicted to make room for the newest.
const QueueCapacity = 4

// Queue is a small FIFO of packets awaiting CSMA-gated transmission.
type Queue struct {
	items []*codec.Packet
	cap   int
}

// NewQueue creates a Queue of the given capacity (0 uses the default).
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = QueueCapacity
	}
	return &Queue{cap: capacity}
}

// Push enqueues a packet, evicting the oldest entry if the queue is full.
func (q *Queue) Push(p *codec.Packet) {
	if len(q.items) >= q.cap {
		q.items = q.items[1:]
	}
	q.items = append(q.items, p)
}

// PushFront re-queues a packet at the head, for CSMA-abort requeues that
// must be retried before anything queued after them.
func (q *Queue) PushFront(p *codec.Packet) {
	if len(q.items) >= q.cap {
		q.items = q.items[:len(q.items)-1]
	}
	q.items = append([]*codec.Packet{p}, q.items...)
}

// Pop removes and returns the oldest queued packet.
func (q *Queue) Pop() (*codec.Packet, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	p := q.items[0]
	q.items = q.items[1:]
	return p, true
}

// Len reports the number of queued packets.
func (q *Queue) Len() int {
	return len(q.items)
}

// Empty reports whether the queue has no queued packets.
func (q *Queue) Empty() bool {
	return len(q.items) == 0
}
