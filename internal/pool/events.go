package pool

// Event represents a pool lifecycle event.
// Minimal and stable: name + key and optional fields via key/values.
type Event struct {
	Name   string
	Key    Key
	Fields map[string]any
}

// EventPublisher receives events from the pool. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
