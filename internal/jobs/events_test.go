package jobs

import "testing"

// TestEventBusAssignsSequence checks publish stamps increasing sequence
// numbers and timestamps.
func TestEventBusAssignsSequence(t *testing.T) {
	bus := NewEventBus(10)

	first := bus.Publish(Event{Type: EventTypeValidating, Path: "/in/a.mp3"})
	second := bus.Publish(Event{Type: EventTypeJobStart})

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seq = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be stamped")
	}
}

// TestEventBusSince checks incremental reads by sequence.
func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(10)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: EventTypeJobProgress})
	}

	got := bus.Since(3)
	if len(got) != 2 {
		t.Fatalf("events since 3 = %d, want 2", len(got))
	}
	if got[0].Seq != 4 || got[1].Seq != 5 {
		t.Fatalf("seqs = %d, %d, want 4, 5", got[0].Seq, got[1].Seq)
	}

	if got := bus.Since(5); len(got) != 0 {
		t.Fatalf("events since 5 = %d, want 0", len(got))
	}
}

// TestEventBusTrimsOldEvents checks the bounded buffer drops the oldest
// entries while sequence numbers keep increasing.
func TestEventBusTrimsOldEvents(t *testing.T) {
	bus := NewEventBus(3)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: EventTypeJobProgress})
	}

	got := bus.Since(0)
	if len(got) != 3 {
		t.Fatalf("retained events = %d, want 3", len(got))
	}
	if got[0].Seq != 3 || got[2].Seq != 5 {
		t.Fatalf("retained range = [%d, %d], want [3, 5]", got[0].Seq, got[2].Seq)
	}
}
