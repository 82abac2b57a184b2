// Package domain holds the transactional outbox model
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one domain fact awaiting broadcast. It is appended in the same
// transaction as the state change it announces; raised=false with a null
// lock is the only state eligible for publishing, and raised=true is
// terminal.
type Event struct {
	ID            uuid.UUID
	PayloadType   string
	Payload       []byte
	Raised        bool
	RaisedUTC     *time.Time
	LockedUTC     *time.Time
	CorrelationID string
	CausationID   string
	CreatedUTC    time.Time
}

// Repo is the outbox table surface. Append runs against whatever Queryer the
// caller is inside of, which is how the write-then-announce atomicity holds.
type Repo interface {
	Append(ctx context.Context, ev Event) error

	// Unraised returns every claimable row: raised=false, lock null
	Unraised(ctx context.Context) ([]Event, error)

	// Lock claims a row ahead of broadcast; the claim must commit before the
	// broadcast is attempted
	Lock(ctx context.Context, id uuid.UUID, at time.Time) error

	// MarkRaised finalizes a broadcast row: raised, raised_utc set, lock cleared
	MarkRaised(ctx context.Context, id uuid.UUID, at time.Time) error

	// ReclaimStale clears locks older than lockedBefore so rows orphaned by a
	// crash mid-broadcast become claimable again
	ReclaimStale(ctx context.Context, lockedBefore time.Time) (int64, error)
}
