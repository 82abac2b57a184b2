// Package service implements the outbox appender helper and the background
// publisher loop
package service

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"fieldday/internal/adapters/bus"
	"fieldday/internal/modkit/repokit"
	perr "fieldday/internal/platform/errors"
	"fieldday/internal/platform/logger"
	"fieldday/internal/services/outbox/domain"
	"fieldday/internal/services/outbox/repo"
)

// Append marshals payload and appends one outbox row through the Queryer of
// the caller's transaction. Processors call this so the domain write and the
// announce-intent commit or roll back together.
func Append(ctx context.Context, q repokit.Queryer, payloadType string, payload any, correlationID, causationID string) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "outbox: marshal payload")
	}
	return repo.NewPG().Bind(q).Append(ctx, domain.Event{
		PayloadType:   payloadType,
		Payload:       b,
		CorrelationID: correlationID,
		CausationID:   causationID,
	})
}

// Config holds publisher tuning
type Config struct {
	// Interval between publish cycles; <=0 -> 10s
	Interval time.Duration

	// LockTTL is how long a lock may sit before the stale sweep reclaims it;
	// <=0 -> 15m. Covers the crash window between claim and broadcast.
	LockTTL time.Duration
}

// Publisher is the background loop that claims unpublished rows, broadcasts
// them, and marks them raised
type Publisher struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.Repo]
	Bus    bus.Publisher
	Cfg    Config

	now func() time.Time
}

// New constructs the publisher
func New(db repokit.TxRunner, binder repokit.Binder[domain.Repo], b bus.Publisher, cfg Config) *Publisher {
	if db == nil {
		panic("outbox.Publisher requires a non nil TxRunner")
	}
	if binder == nil {
		panic("outbox.Publisher requires a non nil Repo binder")
	}
	if b == nil {
		panic("outbox.Publisher requires a non nil bus")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 15 * time.Minute
	}
	return &Publisher{DB: db, Binder: binder, Bus: b, Cfg: cfg, now: time.Now}
}

// Run cycles on the configured interval until ctx is cancelled
func (p *Publisher) Run(ctx context.Context) error {
	t := time.NewTicker(p.Cfg.Interval)
	defer t.Stop()
	for {
		if err := p.Cycle(ctx); err != nil {
			logger.C(ctx).Error().Err(err).Msg("outbox: cycle failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Cycle runs one publish pass: reclaim stale locks, scan claimable rows, then
// claim-broadcast-finalize each row. The claim commits before the broadcast,
// so a crash mid-broadcast leaves the row locked until the stale sweep frees
// it; a failed broadcast likewise leaves the row locked rather than raised.
func (p *Publisher) Cycle(ctx context.Context) error {
	now := p.now().UTC()

	var reclaimed int64
	var pending []domain.Event
	err := p.DB.Tx(ctx, func(q repokit.Queryer) error {
		r := p.Binder.Bind(q)
		var err error
		if reclaimed, err = r.ReclaimStale(ctx, now.Add(-p.Cfg.LockTTL)); err != nil {
			return err
		}
		pending, err = r.Unraised(ctx)
		return err
	})
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		logger.C(ctx).Warn().Int64("rows", reclaimed).Msg("outbox: reclaimed stale locks")
	}
	if len(pending) == 0 {
		return nil
	}

	for _, ev := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.publishOne(ctx, ev); err != nil {
			logger.C(ctx).Error().Str("event_id", ev.ID.String()).Str("payload_type", ev.PayloadType).
				Err(err).Msg("outbox: publish failed; row stays locked for the stale sweep")
		}
	}
	return nil
}

func (p *Publisher) publishOne(ctx context.Context, ev domain.Event) error {
	claimAt := p.now().UTC()
	err := p.DB.Tx(ctx, func(q repokit.Queryer) error {
		return p.Binder.Bind(q).Lock(ctx, ev.ID, claimAt)
	})
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeConflict) {
			return nil // another publisher replica won the claim
		}
		return err
	}

	if err := p.Bus.Publish(ctx, ev.PayloadType, broadcastEnvelope(ev)); err != nil {
		return err
	}

	return p.DB.Tx(ctx, func(q repokit.Queryer) error {
		return p.Binder.Bind(q).MarkRaised(ctx, ev.ID, p.now().UTC())
	})
}

// envelope is the wire shape sent to the bus
type envelope struct {
	ID            uuid.UUID       `json:"id"`
	PayloadType   string          `json:"payloadType"`
	Payload       json.RawMessage `json:"payload"`
	CorrelationID string          `json:"correlationId"`
	CausationID   string          `json:"causationId"`
	CreatedUTC    time.Time       `json:"createdUtc"`
}

func broadcastEnvelope(ev domain.Event) envelope {
	return envelope{
		ID:            ev.ID,
		PayloadType:   ev.PayloadType,
		Payload:       json.RawMessage(ev.Payload),
		CorrelationID: ev.CorrelationID,
		CausationID:   ev.CausationID,
		CreatedUTC:    ev.CreatedUTC,
	}
}
