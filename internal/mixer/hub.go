package mixer

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"ftumix/internal/control"
)

// Origin says which path produced a change batch.
type Origin string

const (
	OriginCommand  Origin = "command"
	OriginHardware Origin = "hardware"
)

// Change is one dispatched batch as kept in the journal.
type Change struct {
	Seq    uint64
	Origin Origin
	Routes control.ChangeSet
	At     time.Time
}

// Hub fans change batches out to subscribers and keeps a bounded journal so
// pull-based consumers can catch up by sequence number. Dispatch happens on
// the publisher's goroutine; subscribers must return quickly and do their
// own synchronization.
type Hub struct {
	mu       sync.Mutex
	subs     map[string]func(Change)
	journal  []Change
	capacity int
	lastSeq  uint64
}

// NewHub returns a hub whose journal keeps the last journalSize batches.
func NewHub(journalSize int) *Hub {
	if journalSize < 1 {
		journalSize = 1
	}
	return &Hub{
		subs:     make(map[string]func(Change)),
		capacity: journalSize,
	}
}

// Subscribe registers fn and returns its subscription id.
func (h *Hub) Subscribe(fn func(Change)) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := uuid.NewString()
	h.subs[id] = fn
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Publish journals the batch and delivers it to every subscriber. Empty
// batches are dropped.
func (h *Hub) Publish(origin Origin, routes control.ChangeSet) Change {
	if routes.Empty() {
		return Change{}
	}

	h.mu.Lock()
	h.lastSeq++
	change := Change{
		Seq:    h.lastSeq,
		Origin: origin,
		Routes: routes,
		At:     time.Now().UTC(),
	}
	h.journal = append(h.journal, change)
	if len(h.journal) > h.capacity {
		h.journal = h.journal[len(h.journal)-h.capacity:]
	}
	subs := make([]func(Change), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
	return change
}

// Since returns the journaled batches with sequence numbers greater than
// seq, plus the latest sequence number. A consumer that fell further behind
// than the journal capacity silently misses the overwritten batches.
func (h *Hub) Since(seq uint64) ([]Change, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Change
	for _, c := range h.journal {
		if c.Seq > seq {
			out = append(out, c)
		}
	}
	return out, h.lastSeq
}
