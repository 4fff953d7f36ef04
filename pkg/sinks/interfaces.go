package sinks

import "context"

// Sink delivers per-platform report events to a downstream consumer
// (file snapshot, HTTP hook, queue, topic).
type Sink interface {
	ID() string
	Type() string
	Deliver(ctx context.Context, evt Event) error
}
