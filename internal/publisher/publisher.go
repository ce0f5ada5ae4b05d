// Package publisher defines the event publisher used to announce completed
// update cycles. Implementations live in subpackages.
package publisher

import "context"

// Publisher pushes cycle summary events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Noop discards events; used when no publisher backend is configured.
type Noop struct{}

// Publish drops the payload and returns an empty ID.
func (Noop) Publish(_ context.Context, _ string, _ any) (string, error) {
	return "", nil
}
