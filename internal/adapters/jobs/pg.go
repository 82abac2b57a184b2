// Package jobs provides queue adapters for the dispatcher's background work:
// a durable postgres queue for production and an in-memory queue for tests
// and single-process runs
package jobs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fieldday/internal/modkit/repokit"
	perr "fieldday/internal/platform/errors"
	"fieldday/internal/services/dispatch/domain"
)

// PGQueue is a durable queue over the jobs table. Claims use
// FOR UPDATE SKIP LOCKED so concurrent workers never contend on one row;
// a claimed-but-never-completed job becomes claimable again after the
// visibility timeout expires, giving at-least-once delivery.
type PGQueue struct {
	DB repokit.TxRunner

	// VisibilitySeconds is how long a claim hides a job; <=0 -> 300
	VisibilitySeconds int
}

// NewPGQueue wires a PGQueue over the given runner
func NewPGQueue(db repokit.TxRunner) *PGQueue {
	if db == nil {
		panic("jobs: nil TxRunner")
	}
	return &PGQueue{DB: db}
}

var _ domain.QueuePort = (*PGQueue)(nil)

// Enqueue appends a typed message
func (p *PGQueue) Enqueue(ctx context.Context, kind string, payload []byte) error {
	_, err := p.DB.Exec(ctx, `
		INSERT INTO jobs (kind, payload) VALUES ($1, $2)
	`, kind, payload)
	return perr.FromDB(err, "jobs: enqueue")
}

// Dequeue claims the next available job
func (p *PGQueue) Dequeue(ctx context.Context) (domain.Job, bool, error) {
	vis := p.VisibilitySeconds
	if vis <= 0 {
		vis = 300
	}
	var j domain.Job
	err := p.DB.QueryRow(ctx, `
		UPDATE jobs SET claimed_utc = now()
		WHERE id = (
			SELECT id FROM jobs
			WHERE claimed_utc IS NULL
			   OR claimed_utc < now() - make_interval(secs => $1)
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, kind, payload
	`, vis).Scan(&j.ID, &j.Kind, &j.Payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Job{}, false, nil
		}
		return domain.Job{}, false, perr.FromDB(err, "jobs: dequeue")
	}
	return j, true, nil
}

// Complete removes an acknowledged job
func (p *PGQueue) Complete(ctx context.Context, id int64) error {
	_, err := p.DB.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	return perr.FromDB(err, "jobs: complete")
}
