package events

import (
	"context"
	"encoding/json"
	"sync"
)

// Publisher pushes domain events to interested consumers
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
	Close() error
}

// Nop is used when no broker is configured
type Nop struct{}

func (Nop) PublishJSON(context.Context, string, any) error { return nil }
func (Nop) Close() error                                   { return nil }

type Recorded struct {
	RoutingKey string
	Body       []byte
}

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
	Err    error // returned from PublishJSON when set
}

func (r *Recorder) PublishJSON(_ context.Context, routingKey string, v any) error {
	if r.Err != nil {
		return r.Err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{RoutingKey: routingKey, Body: b})
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}
