package jobs

import (
	"sync"
	"time"

	"mp3-to-mp4/internal/domain"
)

// EventType classifies messages emitted during validation and conversion.
type EventType string

const (
	EventTypeJobStart     EventType = "job_start"
	EventTypeJobProgress  EventType = "job_progress"
	EventTypeJobComplete  EventType = "job_complete"
	EventTypeJobError     EventType = "job_error"
	EventTypeAllComplete  EventType = "all_complete"
	EventTypeValidating   EventType = "validating"
	EventTypeValidated    EventType = "validated"
	EventTypeValidateFail EventType = "validate_fail"
)

// Event is a sequenced payload consumed by UI subscribers. Exactly which
// fields are set depends on the type: job events carry a snapshot,
// validation events carry the path and optionally the enriched descriptor,
// the all-complete event carries the aggregate counts.
type Event struct {
	Seq       int64             `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	Job       *Snapshot         `json:"job,omitempty"`
	Path      string            `json:"path,omitempty"`
	Percent   float64           `json:"percent,omitempty"`
	Message   string            `json:"message,omitempty"`
	Audio     *domain.AudioFile `json:"audio,omitempty"`
	Succeeded int               `json:"succeeded,omitempty"`
	Failed    int               `json:"failed,omitempty"`
}

// EventBus stores recent events and provides incremental reads keyed by
// sequence number. Publishing never blocks; old events are trimmed once
// the buffer fills.
type EventBus struct {
	mu       sync.RWMutex
	nextSeq  int64
	capacity int
	events   []Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(capacity int) *EventBus {
	if capacity <= 0 {
		capacity = 500
	}

	return &EventBus{
		capacity: capacity,
		events:   make([]Event, 0, capacity),
	}
}

// Publish appends one event, assigning its sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.capacity {
		trim := len(b.events) - b.capacity
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
