package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	json "github.com/goccy/go-json"

	"fieldday/internal/adapters/audit"
	"fieldday/internal/adapters/jobs"
	"fieldday/internal/modkit/repokit"
	perr "fieldday/internal/platform/errors"
	"fieldday/internal/platform/testkit"
	"fieldday/internal/services/dispatch/domain"
	docdom "fieldday/internal/services/documents/domain"
)

type publishedEvent struct {
	Key     string
	Payload any
}

type recordingBus struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (b *recordingBus) Publish(_ context.Context, key string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{Key: key, Payload: payload})
	return nil
}

func (b *recordingBus) byKey(key string) []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []publishedEvent
	for _, e := range b.events {
		if e.Key == key {
			out = append(out, e)
		}
	}
	return out
}

type recordingAudit struct {
	mu       sync.Mutex
	attempts []audit.Attempt
}

func (a *recordingAudit) RecordAttempt(_ context.Context, at audit.Attempt) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempts = append(a.attempts, at)
	return nil
}

func (a *recordingAudit) outcomes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.attempts))
	for _, at := range a.attempts {
		out = append(out, at.Outcome)
	}
	return out
}

// funcProcessor adapts a function to domain.Processor
type funcProcessor func(ctx context.Context, q repokit.Queryer, cmd domain.Command) error

func (f funcProcessor) Process(ctx context.Context, q repokit.Queryer, cmd domain.Command) error {
	return f(ctx, q, cmd)
}

func testCommand() domain.Command {
	return domain.Command{
		DocumentID:    "DOC1",
		Ref:           "http://h.example.com/v2/venues/1",
		SourceRef:     "http://h.example.com/v2/venues/1",
		SourceURLHash: "DOC1",
		Payload:       []byte(`{"id":"1"}`),
		Provider:      docdom.ProviderESPN,
		Sport:         docdom.SportFootballNCAA,
		DocType:       docdom.DocTypeVenue,
		CorrelationID: "corr-1",
		CausationID:   "corr-1",
		Attempt:       0,
	}
}

func enqueue(t *testing.T, q domain.QueuePort, cmd domain.Command) {
	t.Helper()
	b, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	if err := q.Enqueue(context.Background(), domain.KindDocumentCreated, b); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func newService(t *testing.T, reg *domain.Registry, cfg Config) (*Service, *jobs.MemQueue, *recordingBus, *recordingAudit) {
	t.Helper()
	queue := jobs.NewMemQueue()
	b := &recordingBus{}
	rec := &recordingAudit{}
	svc := New(testkit.NewFakeDB(), queue, reg, b, rec, cfg)
	return svc, queue, b, rec
}

func TestProcess_RetryCeilingProducesExactlyOneDeadLetter(t *testing.T) {
	t.Parallel()

	var executions []int
	reg := domain.NewRegistry()
	reg.Register(docdom.ProviderESPN, docdom.SportFootballNCAA, docdom.DocTypeVenue,
		funcProcessor(func(_ context.Context, _ repokit.Queryer, cmd domain.Command) error {
			executions = append(executions, cmd.Attempt)
			return errors.New("always fails")
		}))

	svc, queue, bus, rec := newService(t, reg, Config{})
	enqueue(t, queue, testCommand())

	if err := svc.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if len(executions) != 10 {
		t.Fatalf("processor ran %d times, want 10", len(executions))
	}
	for i, a := range executions {
		if a != i {
			t.Fatalf("execution %d saw attempt %d, want monotonically increasing from 0", i, a)
		}
	}

	dead := bus.byKey(DeadLetterRoutingKey)
	if len(dead) != 1 {
		t.Fatalf("got %d dead letters, want exactly 1", len(dead))
	}
	dl, ok := dead[0].Payload.(domain.DeadLetter)
	if !ok {
		t.Fatalf("dead letter payload type %T", dead[0].Payload)
	}
	if dl.DocumentID != "DOC1" || dl.Attempts != 10 || dl.CorrelationID != "corr-1" {
		t.Fatalf("dead letter = %+v", dl)
	}
	if dl.Reason == "" {
		t.Fatal("dead letter missing reason")
	}

	if queue.Len() != 0 {
		t.Fatalf("queue still holds %d jobs after dead-lettering", queue.Len())
	}
	outcomes := rec.outcomes()
	if outcomes[len(outcomes)-1] != "dead_lettered" {
		t.Fatalf("final outcome = %q, want dead_lettered", outcomes[len(outcomes)-1])
	}
}

func TestProcess_RedispatchKeepsIdentityAndCorrelation(t *testing.T) {
	t.Parallel()

	var seen []domain.Command
	reg := domain.NewRegistry()
	reg.Register(docdom.ProviderESPN, docdom.SportFootballNCAA, docdom.DocTypeVenue,
		funcProcessor(func(_ context.Context, _ repokit.Queryer, cmd domain.Command) error {
			seen = append(seen, cmd)
			if cmd.Attempt < 2 {
				return errors.New("transient")
			}
			return nil
		}))

	svc, queue, bus, _ := newService(t, reg, Config{MaxAttempts: 5})
	enqueue(t, queue, testCommand())

	if err := svc.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if len(seen) != 3 {
		t.Fatalf("processor ran %d times, want 3", len(seen))
	}
	for i, cmd := range seen {
		if cmd.DocumentID != "DOC1" || cmd.CorrelationID != "corr-1" {
			t.Fatalf("redispatch %d changed identity: %+v", i, cmd)
		}
		if cmd.Attempt != i {
			t.Fatalf("redispatch %d has attempt %d", i, cmd.Attempt)
		}
	}
	if len(bus.byKey(DeadLetterRoutingKey)) != 0 {
		t.Fatal("eventual success still produced a dead letter")
	}
}

func TestProcess_MissingRegistrationIsNotRetried(t *testing.T) {
	t.Parallel()

	svc, queue, bus, rec := newService(t, domain.NewRegistry(), Config{})
	enqueue(t, queue, testCommand())

	if err := svc.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if queue.Len() != 0 {
		t.Fatal("unroutable document was redispatched")
	}
	if len(bus.byKey(DeadLetterRoutingKey)) != 0 {
		t.Fatal("unroutable document was dead-lettered; it is a configuration error, not a processing failure")
	}
	outcomes := rec.outcomes()
	if len(outcomes) != 1 || outcomes[0] != "unroutable" {
		t.Fatalf("outcomes = %v, want single unroutable", outcomes)
	}
}

func TestProcess_SuccessIsTerminal(t *testing.T) {
	t.Parallel()

	runs := 0
	reg := domain.NewRegistry()
	reg.Register(docdom.ProviderESPN, docdom.SportFootballNCAA, docdom.DocTypeVenue,
		funcProcessor(func(context.Context, repokit.Queryer, domain.Command) error {
			runs++
			return nil
		}))

	svc, queue, _, rec := newService(t, reg, Config{})
	enqueue(t, queue, testCommand())

	if err := svc.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if runs != 1 {
		t.Fatalf("processor ran %d times, want 1", runs)
	}
	if got := rec.outcomes(); len(got) != 1 || got[0] != "succeeded" {
		t.Fatalf("outcomes = %v", got)
	}
}

func TestProcess_DependencyEscapeHatch(t *testing.T) {
	t.Parallel()

	const depRef = "http://h.example.com/v2/franchises/7"
	newFailingReg := func() *domain.Registry {
		reg := domain.NewRegistry()
		reg.Register(docdom.ProviderESPN, docdom.SportFootballNCAA, docdom.DocTypeVenue,
			funcProcessor(func(context.Context, repokit.Queryer, domain.Command) error {
				return domain.MissingDependency(depRef)
			}))
		return reg
	}

	t.Run("off by default", func(t *testing.T) {
		t.Parallel()
		svc, queue, _, _ := newService(t, newFailingReg(), Config{MaxAttempts: 2})
		var requested []string
		svc.RequestDependency = func(_ context.Context, ref string, _ domain.Command) error {
			requested = append(requested, ref)
			return nil
		}
		enqueue(t, queue, testCommand())
		if err := svc.Drain(context.Background()); err != nil {
			t.Fatalf("Drain: %v", err)
		}
		if len(requested) != 0 {
			t.Fatalf("escape hatch invoked %d times with flag off", len(requested))
		}
	})

	t.Run("enabled", func(t *testing.T) {
		t.Parallel()
		svc, queue, _, _ := newService(t, newFailingReg(), Config{MaxAttempts: 2, RequestMissingDeps: true})
		var requested []string
		svc.RequestDependency = func(_ context.Context, ref string, origin domain.Command) error {
			if origin.DocumentID != "DOC1" {
				t.Errorf("origin = %+v", origin)
			}
			requested = append(requested, ref)
			return nil
		}
		enqueue(t, queue, testCommand())
		if err := svc.Drain(context.Background()); err != nil {
			t.Fatalf("Drain: %v", err)
		}
		if len(requested) != 2 {
			t.Fatalf("escape hatch invoked %d times, want once per failed attempt", len(requested))
		}
		if requested[0] != depRef {
			t.Fatalf("requested %q, want %q", requested[0], depRef)
		}
	})
}

func TestHandle_MalformedPayloadIsDropped(t *testing.T) {
	t.Parallel()

	svc, queue, bus, _ := newService(t, domain.NewRegistry(), Config{})
	if err := queue.Enqueue(context.Background(), domain.KindDocumentCreated, []byte("{not json")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := svc.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if queue.Len() != 0 {
		t.Fatal("malformed job left in queue; redelivery cannot fix it")
	}
	if len(bus.events) != 0 {
		t.Fatal("malformed job produced bus traffic")
	}
}

// brokenEnqueueQueue delegates to a MemQueue but refuses re-enqueues once armed
type brokenEnqueueQueue struct {
	*jobs.MemQueue
	mu     sync.Mutex
	broken bool
}

func (q *brokenEnqueueQueue) arm() {
	q.mu.Lock()
	q.broken = true
	q.mu.Unlock()
}

func (q *brokenEnqueueQueue) Enqueue(ctx context.Context, kind string, payload []byte) error {
	q.mu.Lock()
	broken := q.broken
	q.mu.Unlock()
	if broken {
		return perr.Unavailablef("queue insert refused")
	}
	return q.MemQueue.Enqueue(ctx, kind, payload)
}

func TestProcess_FailedRedispatchLeavesJobClaimed(t *testing.T) {
	t.Parallel()

	var runs int
	reg := domain.NewRegistry()
	reg.Register(docdom.ProviderESPN, docdom.SportFootballNCAA, docdom.DocTypeVenue,
		funcProcessor(func(_ context.Context, _ repokit.Queryer, _ domain.Command) error {
			runs++
			return errors.New("transient downstream failure")
		}))

	queue := &brokenEnqueueQueue{MemQueue: jobs.NewMemQueue()}
	bus := &recordingBus{}
	rec := &recordingAudit{}
	svc := New(testkit.NewFakeDB(), queue, reg, bus, rec, Config{})

	enqueue(t, queue, testCommand())
	queue.arm()

	if err := svc.Drain(context.Background()); err == nil {
		t.Fatal("Drain swallowed the re-enqueue failure")
	}
	if runs != 1 {
		t.Fatalf("processor ran %d times, want 1", runs)
	}
	// the job must stay claimed so the visibility timeout redelivers it at
	// the same attempt count; completing it here would drop the document
	if queue.Claimed() != 1 {
		t.Fatalf("claimed jobs = %d, want the failed job held for redelivery", queue.Claimed())
	}
	if got := bus.byKey(DeadLetterRoutingKey); len(got) != 0 {
		t.Fatalf("published %d dead letters before the attempt ceiling", len(got))
	}
}
