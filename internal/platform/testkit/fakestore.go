package testkit

import (
	"context"
	"errors"
	"sync"

	"fieldday/internal/platform/store"
)

// FakeTag is a canned CommandTag
type FakeTag struct{ Affected int64 }

// String implements store.CommandTag
func (f FakeTag) String() string { return "FAKE" }

// RowsAffected implements store.CommandTag
func (f FakeTag) RowsAffected() int64 { return f.Affected }

// ExecCall records one Exec invocation against a FakeDB
type ExecCall struct {
	SQL  string
	Args []any
}

// FakeDB is an in-memory store.TxRunner for service tests. Exec calls are
// recorded; Tx runs the function against the FakeDB itself unless TxFn is
// set. Query paths fail unless a hook is provided, which keeps tests honest
// about what they actually exercise.
type FakeDB struct {
	mu    sync.Mutex
	Execs []ExecCall

	ExecFn     func(ctx context.Context, sql string, args ...any) (store.CommandTag, error)
	QueryFn    func(ctx context.Context, sql string, args ...any) (store.Rows, error)
	QueryRowFn func(ctx context.Context, sql string, args ...any) store.Row
	TxFn       func(ctx context.Context, fn func(q store.RowQuerier) error) error
}

var _ store.TxRunner = (*FakeDB)(nil)

// NewFakeDB returns an empty FakeDB
func NewFakeDB() *FakeDB { return &FakeDB{} }

// Exec implements store.RowQuerier
func (f *FakeDB) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	f.mu.Lock()
	f.Execs = append(f.Execs, ExecCall{SQL: sql, Args: args})
	f.mu.Unlock()
	if f.ExecFn != nil {
		return f.ExecFn(ctx, sql, args...)
	}
	return FakeTag{Affected: 1}, nil
}

// Query implements store.RowQuerier
func (f *FakeDB) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	if f.QueryFn != nil {
		return f.QueryFn(ctx, sql, args...)
	}
	return nil, errors.New("testkit: FakeDB.Query not configured")
}

// QueryRow implements store.RowQuerier
func (f *FakeDB) QueryRow(ctx context.Context, sql string, args ...any) store.Row {
	if f.QueryRowFn != nil {
		return f.QueryRowFn(ctx, sql, args...)
	}
	return errRow{errors.New("testkit: FakeDB.QueryRow not configured")}
}

// Tx implements store.TxRunner
func (f *FakeDB) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	if f.TxFn != nil {
		return f.TxFn(ctx, fn)
	}
	return fn(f)
}

// ExecCount returns how many Exec calls matched the substring match fn
func (f *FakeDB) ExecCount(match func(ExecCall) bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Execs {
		if match(c) {
			n++
		}
	}
	return n
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
