package mixer

import (
	"testing"

	"ftumix/internal/control"
)

func analogBatch(routes ...control.RouteID) control.ChangeSet {
	var batch control.ChangeSet
	for _, r := range routes {
		batch.Add(control.Analog, r)
	}
	return batch
}

func TestHubDeliversToEverySubscriber(t *testing.T) {
	h := NewHub(8)

	var first, second []Change
	h.Subscribe(func(c Change) { first = append(first, c) })
	h.Subscribe(func(c Change) { second = append(second, c) })

	batch := analogBatch(control.RouteID{Output: 0, Input: 1})
	change := h.Publish(OriginCommand, batch)

	if change.Seq != 1 {
		t.Fatalf("first publish Seq = %d, want 1", change.Seq)
	}
	if change.Origin != OriginCommand {
		t.Fatalf("Origin = %q, want %q", change.Origin, OriginCommand)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("deliveries = %d, %d, want 1 each", len(first), len(second))
	}
	if len(first[0].Routes.Analog) != 1 {
		t.Fatalf("delivered routes = %v", first[0].Routes)
	}
}

func TestHubDropsEmptyBatches(t *testing.T) {
	h := NewHub(8)

	calls := 0
	h.Subscribe(func(Change) { calls++ })

	change := h.Publish(OriginHardware, control.ChangeSet{})
	if change.Seq != 0 {
		t.Fatalf("empty publish got Seq %d", change.Seq)
	}
	if calls != 0 {
		t.Fatalf("empty publish reached %d subscribers", calls)
	}
	if entries, last := h.Since(0); len(entries) != 0 || last != 0 {
		t.Fatalf("Since(0) = %v, %d after an empty publish", entries, last)
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub(8)

	calls := 0
	id := h.Subscribe(func(Change) { calls++ })
	h.Publish(OriginCommand, analogBatch(control.RouteID{}))

	h.Unsubscribe(id)
	h.Unsubscribe("no-such-subscription")
	h.Publish(OriginCommand, analogBatch(control.RouteID{}))

	if calls != 1 {
		t.Fatalf("subscriber called %d times, want 1", calls)
	}
}

func TestHubJournalSince(t *testing.T) {
	h := NewHub(2)

	for i := 0; i < 3; i++ {
		h.Publish(OriginHardware, analogBatch(control.RouteID{Output: i}))
	}

	entries, last := h.Since(0)
	if last != 3 {
		t.Fatalf("latest seq = %d, want 3", last)
	}
	if len(entries) != 2 || entries[0].Seq != 2 || entries[1].Seq != 3 {
		t.Fatalf("Since(0) = %+v, want seqs 2 and 3 (capacity bound)", entries)
	}

	entries, _ = h.Since(2)
	if len(entries) != 1 || entries[0].Seq != 3 {
		t.Fatalf("Since(2) = %+v, want only seq 3", entries)
	}

	if entries, _ := h.Since(3); len(entries) != 0 {
		t.Fatalf("Since(3) = %+v, want none", entries)
	}
}
