// Package kafkatest provides an in-memory EventPublisher for tests.
package kafkatest

import (
	"context"
	"sync"

	"github.com/tair/commerce-core/kafka"
)

// Recorder collects published events
type Recorder struct {
	mu     sync.Mutex
	events []kafka.Event
	Err    error
}

// Publish records event, or returns Err when set
func (r *Recorder) Publish(_ context.Context, event kafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far
func (r *Recorder) Events() []kafka.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kafka.Event(nil), r.events...)
}

// OfType returns the recorded events with the given type
func (r *Recorder) OfType(eventType string) []kafka.Event {
	var out []kafka.Event
	for _, e := range r.Events() {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}
