// Package service implements the document dispatcher: resolve a processor by
// (provider, sport, documentType), run it in one transaction, and manage the
// retry and dead-letter lifecycle
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"fieldday/internal/adapters/audit"
	"fieldday/internal/adapters/bus"
	"fieldday/internal/modkit/repokit"
	perr "fieldday/internal/platform/errors"
	"fieldday/internal/platform/logger"
	"fieldday/internal/services/dispatch/domain"
)

// DeadLetterRoutingKey is the bus routing key for DocumentDeadLetter notifications
const DeadLetterRoutingKey = "document.deadletter"

// Config holds dispatcher tuning
type Config struct {
	// MaxAttempts is the processing ceiling; <=0 -> 10. A document is handed
	// to its processor at attempt counts 0..MaxAttempts-1 and dead-lettered
	// after the last failure.
	MaxAttempts int

	// Workers is the concurrent worker count per process; <=0 -> 1
	Workers int

	// IdleSleep is how long a worker naps on an empty queue; <=0 -> 2s
	IdleSleep time.Duration

	// RequestMissingDeps enables reactive fetching of a missing dependency.
	// Off by default: reacting to every miss risks circular re-fetch storms.
	RequestMissingDeps bool
}

// Service consumes DocumentCreated jobs and drives processors
type Service struct {
	DB       repokit.TxRunner
	Queue    domain.QueuePort
	Registry *domain.Registry
	Bus      bus.Publisher
	Audit    audit.Recorder
	Cfg      Config

	// RequestDependency is the optional escape hatch invoked when
	// Cfg.RequestMissingDeps is on and a processor reports a missing
	// dependency document. origin is the command whose processing surfaced
	// the miss; its provider and sport apply to the dependency too.
	RequestDependency func(ctx context.Context, ref string, origin domain.Command) error
}

// New constructs the dispatcher service
func New(
	db repokit.TxRunner,
	queue domain.QueuePort,
	registry *domain.Registry,
	b bus.Publisher,
	rec audit.Recorder,
	cfg Config,
) *Service {
	if db == nil {
		panic("dispatch.Service requires a non nil TxRunner")
	}
	if queue == nil {
		panic("dispatch.Service requires a non nil queue")
	}
	if registry == nil {
		panic("dispatch.Service requires a non nil registry")
	}
	if b == nil {
		panic("dispatch.Service requires a non nil bus")
	}
	if rec == nil {
		rec = audit.Nop{}
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.IdleSleep <= 0 {
		cfg.IdleSleep = 2 * time.Second
	}
	return &Service{DB: db, Queue: queue, Registry: registry, Bus: b, Audit: rec, Cfg: cfg}
}

// Run consumes the queue with Cfg.Workers concurrent workers until ctx is
// cancelled. Workers nap on an empty queue rather than exiting.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	var fails int64

	worker := func() {
		defer wg.Done()
		for {
			if ctx.Err() != nil {
				return
			}
			worked, err := s.step(ctx)
			if err != nil {
				logger.C(ctx).Error().Err(err).Msg("dispatch: step failed")
				atomic.AddInt64(&fails, 1)
			}
			if !worked {
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.Cfg.IdleSleep):
				}
			}
		}
	}

	for i := 0; i < s.Cfg.Workers; i++ {
		wg.Add(1)
		go worker()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	if fails > 0 {
		return perr.Internalf("dispatch: %d steps failed", fails)
	}
	return nil
}

// Drain processes jobs until the queue is empty; used by one-shot runs and tests
func (s *Service) Drain(ctx context.Context) error {
	for {
		worked, err := s.step(ctx)
		if err != nil {
			return err
		}
		if !worked {
			return nil
		}
	}
}

// step claims and handles at most one job; worked=false means the queue was empty
func (s *Service) step(ctx context.Context) (bool, error) {
	job, ok, err := s.Queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	requeue, err := s.handle(ctx, job)
	if err != nil {
		if requeue {
			// the attempt could not be rescheduled; leave the job claimed so
			// the queue's visibility timeout redelivers it at the same
			// attempt count
			return true, err
		}
		// the job itself was unusable; completing it anyway is deliberate,
		// redelivery of a malformed payload cannot succeed either
		logger.C(ctx).Error().Int64("job_id", job.ID).Str("kind", job.Kind).Err(err).
			Msg("dispatch: job payload unusable; dropping")
	}
	return true, s.Queue.Complete(ctx, job.ID)
}

// handle runs one job. requeue reports whether a returned error is an
// infrastructure failure that must keep the job claimed for redelivery
// rather than a payload defect to drop.
func (s *Service) handle(ctx context.Context, job domain.Job) (requeue bool, err error) {
	switch job.Kind {
	case domain.KindDocumentCreated:
		var cmd domain.Command
		if err := json.Unmarshal(job.Payload, &cmd); err != nil {
			return false, perr.Wrap(err, perr.ErrorCodeJSON, "dispatch: decode command")
		}
		return true, s.process(ctx, cmd)
	default:
		return false, perr.Configurationf("dispatch: unknown job kind %q", job.Kind)
	}
}

// process runs one attempt of the document state machine:
// Received -> Processing -> {Succeeded | Retrying | DeadLettered}.
// A non-nil return means the attempt's outcome could not be recorded in the
// queue and the job must stay claimed.
func (s *Service) process(ctx context.Context, cmd domain.Command) error {
	ctx = logger.WithPipeline(ctx, cmd.CorrelationID, cmd.CausationID)
	ctx = logger.WithDocument(ctx, cmd.DocumentID)
	log := logger.C(ctx)

	p, ok := s.Registry.Resolve(cmd.Provider, cmd.Sport, cmd.DocType)
	if !ok {
		// a missing registration is a wiring mistake; retrying cannot add one
		log.Error().Str("provider", string(cmd.Provider)).Str("sport", string(cmd.Sport)).
			Str("doc_type", string(cmd.DocType)).
			Msg("dispatch: no processor registered for document triple")
		s.record(ctx, cmd, "unroutable", "no processor registered")
		return nil
	}

	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return p.Process(ctx, q, cmd)
	})
	if err == nil {
		s.record(ctx, cmd, "succeeded", "")
		return nil
	}

	if dep, missing := domain.AsMissingDependency(err); missing {
		log.Debug().Str("ref", dep.Ref).Int("attempt", cmd.Attempt).
			Msg("dispatch: dependency not yet sourced")
		if s.Cfg.RequestMissingDeps && s.RequestDependency != nil {
			if rerr := s.RequestDependency(ctx, dep.Ref, cmd); rerr != nil {
				log.Warn().Str("ref", dep.Ref).Err(rerr).Msg("dispatch: reactive dependency request failed")
			}
		}
	}

	if cmd.Attempt+1 >= s.Cfg.MaxAttempts {
		s.deadLetter(ctx, cmd, err)
		s.record(ctx, cmd, "dead_lettered", err.Error())
		return nil
	}
	if rerr := s.redispatch(ctx, cmd); rerr != nil {
		log.Error().Err(rerr).Msg("dispatch: redispatch enqueue failed; leaving job claimed for redelivery")
		return rerr
	}
	log.Warn().Int("attempt", cmd.Attempt).Int("next_attempt", cmd.Attempt+1).Err(err).
		Msg("dispatch: processing failed; redispatched")
	s.record(ctx, cmd, "retrying", err.Error())
	return nil
}

// redispatch re-enqueues the same document identity and correlation id with
// the attempt count bumped by exactly one
func (s *Service) redispatch(ctx context.Context, cmd domain.Command) error {
	next := cmd
	next.Attempt = cmd.Attempt + 1
	b, err := json.Marshal(next)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "dispatch: marshal redispatch")
	}
	return s.Queue.Enqueue(ctx, domain.KindDocumentCreated, b)
}

// deadLetter emits exactly one DocumentDeadLetter notification and logs the
// full context; dead-lettered documents wait for manual intervention
func (s *Service) deadLetter(ctx context.Context, cmd domain.Command, cause error) {
	dl := domain.DeadLetter{
		DocumentID:    cmd.DocumentID,
		DocType:       cmd.DocType,
		Sport:         cmd.Sport,
		SourceURLHash: cmd.SourceURLHash,
		CorrelationID: cmd.CorrelationID,
		CausationID:   cmd.CausationID,
		Ref:           cmd.Ref,
		SourceRef:     cmd.SourceRef,
		Attempts:      cmd.Attempt + 1,
		Reason:        cause.Error(),
	}
	log := logger.C(ctx)
	log.Error().
		Str("doc_type", string(cmd.DocType)).
		Str("sport", string(cmd.Sport)).
		Str("source_url_hash", cmd.SourceURLHash).
		Str("source_ref", cmd.SourceRef).
		Int("attempts", dl.Attempts).
		Err(cause).
		Msg("dispatch: attempt ceiling exceeded; document dead-lettered")
	if err := s.Bus.Publish(ctx, DeadLetterRoutingKey, dl); err != nil {
		log.Error().Err(err).Msg("dispatch: dead letter publish failed")
	}
}

func (s *Service) record(ctx context.Context, cmd domain.Command, outcome, reason string) {
	err := s.Audit.RecordAttempt(ctx, audit.Attempt{
		DocumentID:    cmd.DocumentID,
		DocType:       string(cmd.DocType),
		Sport:         string(cmd.Sport),
		Attempt:       cmd.Attempt,
		Outcome:       outcome,
		Reason:        reason,
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		logger.C(ctx).Warn().Err(err).Msg("dispatch: attempt audit write failed")
	}
}
