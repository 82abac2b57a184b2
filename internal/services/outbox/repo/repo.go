// Package repo provides postgres access for the outbox table
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fieldday/internal/modkit/repokit"
	perr "fieldday/internal/platform/errors"
	"fieldday/internal/services/outbox/domain"
)

type (
	// PG is a Postgres binder for domain.Repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.Repo
func NewPG() repokit.Binder[domain.Repo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Repo { return &queries{q: q} }

func (r *queries) Append(ctx context.Context, ev domain.Event) error {
	id := ev.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	created := ev.CreatedUTC
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO outbox_events (
			id, payload_type, payload, raised, correlation_id, causation_id, created_utc
		) VALUES ($1, $2, $3, false, $4, $5, $6)
	`, id, ev.PayloadType, ev.Payload, ev.CorrelationID, ev.CausationID, created)
	return perr.FromDB(err, "outbox: append")
}

func (r *queries) Unraised(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, payload_type, payload, raised, raised_utc, locked_utc,
		       correlation_id, causation_id, created_utc
		FROM outbox_events
		WHERE raised = false AND locked_utc IS NULL
	`)
	if err != nil {
		return nil, perr.FromDB(err, "outbox: unraised scan")
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var ev domain.Event
		if err := rows.Scan(
			&ev.ID, &ev.PayloadType, &ev.Payload, &ev.Raised, &ev.RaisedUTC, &ev.LockedUTC,
			&ev.CorrelationID, &ev.CausationID, &ev.CreatedUTC,
		); err != nil {
			return nil, perr.FromDB(err, "outbox: unraised row")
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *queries) Lock(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE outbox_events SET locked_utc = $2
		WHERE id = $1 AND raised = false AND locked_utc IS NULL
	`, id, at.UTC())
	if err != nil {
		return perr.FromDB(err, "outbox: lock")
	}
	if tag.RowsAffected() == 0 {
		return perr.Conflictf("outbox: row %s already claimed or raised", id)
	}
	return nil
}

func (r *queries) MarkRaised(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE outbox_events
		SET raised = true, raised_utc = $2, locked_utc = NULL
		WHERE id = $1
	`, id, at.UTC())
	return perr.FromDB(err, "outbox: mark raised")
}

func (r *queries) ReclaimStale(ctx context.Context, lockedBefore time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE outbox_events SET locked_utc = NULL
		WHERE raised = false AND locked_utc IS NOT NULL AND locked_utc < $1
	`, lockedBefore.UTC())
	if err != nil {
		return 0, perr.FromDB(err, "outbox: reclaim stale")
	}
	return tag.RowsAffected(), nil
}
