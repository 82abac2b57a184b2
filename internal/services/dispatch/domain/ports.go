package domain

import (
	"context"

	"fieldday/internal/modkit/repokit"
)

// Processor converts one raw document into canonical domain writes plus zero
// or more outbox rows, all against the Queryer of a single transaction. A
// processor that cannot complete must return an error so the whole unit of
// work rolls back; redispatch of the same command must converge to the same
// domain state.
type Processor interface {
	Process(ctx context.Context, q repokit.Queryer, cmd Command) error
}

// Job is one claimed queue entry
type Job struct {
	ID      int64
	Kind    string
	Payload []byte
}

// QueuePort is the background job surface: typed messages, at-least-once
// delivery, no ordering guarantee across documents
type QueuePort interface {
	Enqueue(ctx context.Context, kind string, payload []byte) error

	// Dequeue claims the next job; ok=false means the queue is empty
	Dequeue(ctx context.Context) (job Job, ok bool, err error)

	// Complete acknowledges a claimed job so it is never redelivered
	Complete(ctx context.Context, id int64) error
}
