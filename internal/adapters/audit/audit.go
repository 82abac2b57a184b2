// Package audit records processing-attempt outcomes to a columnar sink so
// operators can trace a document's retry history without grepping logs
package audit

import (
	"context"
	"time"

	"fieldday/internal/platform/store"
)

// Attempt is one processing outcome for one document
type Attempt struct {
	DocumentID    string
	DocType       string
	Sport         string
	Attempt       int
	Outcome       string // succeeded | retrying | dead_lettered | unroutable
	Reason        string
	CorrelationID string
	OccurredUTC   time.Time
}

// Recorder is the write seam; dispatch calls it after every attempt
type Recorder interface {
	RecordAttempt(ctx context.Context, a Attempt) error
}

var attemptCols = []string{
	"document_id", "doc_type", "sport", "attempt",
	"outcome", "reason", "correlation_id", "occurred_utc",
}

// Clickhouse appends attempts to the dispatch_attempts table
type Clickhouse struct {
	CH store.Clickhouse
}

// NewClickhouse wires a Recorder over the store seam
func NewClickhouse(ch store.Clickhouse) *Clickhouse { return &Clickhouse{CH: ch} }

// RecordAttempt implements Recorder
func (c *Clickhouse) RecordAttempt(ctx context.Context, a Attempt) error {
	if a.OccurredUTC.IsZero() {
		a.OccurredUTC = time.Now().UTC()
	}
	return c.CH.Insert(ctx, "dispatch_attempts", attemptCols, [][]any{{
		a.DocumentID, a.DocType, a.Sport, int32(a.Attempt),
		a.Outcome, a.Reason, a.CorrelationID, a.OccurredUTC,
	}})
}

// Nop discards attempts; used when no ClickHouse is configured
type Nop struct{}

// RecordAttempt implements Recorder
func (Nop) RecordAttempt(context.Context, Attempt) error { return nil }
