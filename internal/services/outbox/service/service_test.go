package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"fieldday/internal/modkit/repokit"
	perr "fieldday/internal/platform/errors"
	"fieldday/internal/platform/testkit"
	"fieldday/internal/services/outbox/domain"
)

// memOutbox is an in-memory domain.Repo shared across bind calls
type memOutbox struct {
	mu     sync.Mutex
	events map[uuid.UUID]*domain.Event
}

func newMemOutbox() *memOutbox { return &memOutbox{events: make(map[uuid.UUID]*domain.Event)} }

func (m *memOutbox) binder() repokit.Binder[domain.Repo] {
	return repokit.BindFunc[domain.Repo](func(repokit.Queryer) domain.Repo { return m })
}

func (m *memOutbox) Append(_ context.Context, ev domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	cp := ev
	m.events[cp.ID] = &cp
	return nil
}

func (m *memOutbox) Unraised(context.Context) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Event
	for _, ev := range m.events {
		if !ev.Raised && ev.LockedUTC == nil {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *memOutbox) Lock(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || ev.Raised || ev.LockedUTC != nil {
		return perr.Conflictf("outbox: row %s already claimed or raised", id)
	}
	t := at
	ev.LockedUTC = &t
	return nil
}

func (m *memOutbox) MarkRaised(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return perr.NotFoundf("outbox: no row %s", id)
	}
	t := at
	ev.Raised = true
	ev.RaisedUTC = &t
	ev.LockedUTC = nil
	return nil
}

func (m *memOutbox) ReclaimStale(_ context.Context, lockedBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, ev := range m.events {
		if !ev.Raised && ev.LockedUTC != nil && ev.LockedUTC.Before(lockedBefore) {
			ev.LockedUTC = nil
			n++
		}
	}
	return n, nil
}

func (m *memOutbox) snapshot(id uuid.UUID) domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.events[id]
}

// flakyBus fails Publish for routing keys present in failKeys
type flakyBus struct {
	mu       sync.Mutex
	failKeys map[string]bool
	sent     []string
}

func (b *flakyBus) Publish(_ context.Context, key string, _ any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failKeys[key] {
		return perr.Unavailablef("bus down for %s", key)
	}
	b.sent = append(b.sent, key)
	return nil
}

func seed(t *testing.T, repo *memOutbox, payloadType string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := repo.Append(context.Background(), domain.Event{
		ID:            id,
		PayloadType:   payloadType,
		Payload:       []byte(`{"x":1}`),
		CorrelationID: "corr",
		CausationID:   "corr",
		CreatedUTC:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return id
}

func TestCycle_PublishesAndMarksRaised(t *testing.T) {
	t.Parallel()

	repo := newMemOutbox()
	bus := &flakyBus{}
	pub := New(testkit.NewFakeDB(), repo.binder(), bus, Config{})

	a := seed(t, repo, "venue.upserted")
	b := seed(t, repo, "franchise.upserted")

	if err := pub.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}

	for _, id := range []uuid.UUID{a, b} {
		ev := repo.snapshot(id)
		if !ev.Raised || ev.RaisedUTC == nil || ev.LockedUTC != nil {
			t.Fatalf("row %s after cycle = %+v, want raised with lock cleared", id, ev)
		}
	}
	if len(bus.sent) != 2 {
		t.Fatalf("bus saw %d events, want 2", len(bus.sent))
	}

	// second cycle has nothing to do: raised rows are terminal
	if err := pub.Cycle(context.Background()); err != nil {
		t.Fatalf("second Cycle: %v", err)
	}
	if len(bus.sent) != 2 {
		t.Fatalf("raised row was re-published; bus saw %d events", len(bus.sent))
	}
}

func TestCycle_FailedBroadcastLeavesRowLocked(t *testing.T) {
	t.Parallel()

	repo := newMemOutbox()
	bus := &flakyBus{failKeys: map[string]bool{"venue.upserted": true}}
	pub := New(testkit.NewFakeDB(), repo.binder(), bus, Config{})

	id := seed(t, repo, "venue.upserted")

	if err := pub.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	ev := repo.snapshot(id)
	if ev.Raised {
		t.Fatal("failed broadcast marked row raised")
	}
	if ev.LockedUTC == nil {
		t.Fatal("failed broadcast did not leave row locked")
	}

	// the lock shields the row from the next scan until it goes stale
	if err := pub.Cycle(context.Background()); err != nil {
		t.Fatalf("second Cycle: %v", err)
	}
	if len(bus.sent) != 0 {
		t.Fatalf("locked row reached the bus: %v", bus.sent)
	}
}

func TestCycle_StaleLockIsReclaimedAndRetried(t *testing.T) {
	t.Parallel()

	repo := newMemOutbox()
	bus := &flakyBus{failKeys: map[string]bool{"venue.upserted": true}}
	pub := New(testkit.NewFakeDB(), repo.binder(), bus, Config{LockTTL: 15 * time.Minute})

	id := seed(t, repo, "venue.upserted")
	if err := pub.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if repo.snapshot(id).LockedUTC == nil {
		t.Fatal("precondition: row should be locked")
	}

	// the broker comes back, and the clock moves past the lock ttl
	bus.failKeys = nil
	pub.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	if err := pub.Cycle(context.Background()); err != nil {
		t.Fatalf("reclaim Cycle: %v", err)
	}
	ev := repo.snapshot(id)
	if !ev.Raised || ev.LockedUTC != nil {
		t.Fatalf("row after reclaim cycle = %+v, want raised", ev)
	}
	if len(bus.sent) != 1 {
		t.Fatalf("bus saw %d events, want 1", len(bus.sent))
	}
}

func TestCycle_LostClaimRaceIsNotAnError(t *testing.T) {
	t.Parallel()

	repo := newMemOutbox()
	bus := &flakyBus{}
	pub := New(testkit.NewFakeDB(), repo.binder(), bus, Config{})

	id := seed(t, repo, "venue.upserted")

	// another replica claims the row between our scan and our lock
	now := time.Now().UTC()
	ev := repo.snapshot(id)
	if err := repo.Lock(context.Background(), ev.ID, now); err != nil {
		t.Fatalf("competing lock: %v", err)
	}

	if err := pub.publishOne(context.Background(), ev); err != nil {
		t.Fatalf("publishOne on lost claim = %v, want nil", err)
	}
	if len(bus.sent) != 0 {
		t.Fatal("lost claim still broadcast")
	}
}

func TestAppend_RollsBackWithTheDomainWrite(t *testing.T) {
	t.Parallel()

	// Append goes through the caller's Queryer; if the surrounding
	// transaction fails, the outbox insert must vanish with it. The fake
	// runner surfaces the rollback as the returned error; the SQL-level
	// guarantee is the database's, exercised in the repo integration test.
	db := testkit.NewFakeDB()
	err := db.Tx(context.Background(), func(q repokit.Queryer) error {
		if err := Append(context.Background(), q, "venue.upserted", map[string]int{"x": 1}, "corr", "corr"); err != nil {
			return err
		}
		return perr.Internalf("forced failure after append")
	})
	if err == nil {
		t.Fatal("transaction error was swallowed")
	}
	if got := db.ExecCount(func(c testkit.ExecCall) bool { return true }); got != 1 {
		t.Fatalf("append issued %d statements, want 1 inside the failed tx", got)
	}
}
