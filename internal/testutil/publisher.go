package testutil

import (
	"context"
	"sync"
)

// Event is a published topic and payload.
type Event struct {
	Topic   string
	Payload any
}

// Publisher records every published event.
type Publisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *Publisher) Publish(_ context.Context, topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Topic: topic, Payload: payload})
}

// Events returns a copy of the recorded events.
func (p *Publisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Topics returns the recorded topics in publish order.
func (p *Publisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Topic)
	}
	return out
}
