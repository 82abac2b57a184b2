package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pgErr(code string) error {
	return &pgconn.PgError{Code: code, Message: "state " + code}
}

func TestFromDB_MapsSQLStates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		state string
		want  ErrorCode
	}{
		{"23505", ErrorCodeDuplicateKey},
		{"23503", ErrorCodeInvalidArgument},
		{"23502", ErrorCodeValidation},
		{"40001", ErrorCodeUnavailable},
		{"40P01", ErrorCodeUnavailable},
		{"55P03", ErrorCodeUnavailable},
		{"57P03", ErrorCodeUnavailable},
		{"0A000", ErrorCodeDB}, // anything else is a generic db error
	}
	for _, c := range cases {
		err := FromDB(pgErr(c.state), "query failed")
		if got := CodeOf(err); got != c.want {
			t.Fatalf("FromDB(%s) code = %v, want %v", c.state, got, c.want)
		}
	}
}

func TestFromDB_NilPassthrough(t *testing.T) {
	t.Parallel()

	if FromDB(nil, "noop") != nil {
		t.Fatal("FromDB(nil) should be nil")
	}
}

func TestIsDuplicateKey_SeesThroughWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("insert: %w", FromDB(pgErr("23505"), "documents: insert"))
	if !IsDuplicateKey(err) {
		t.Fatal("duplicate key not detected through wrapping")
	}
	if IsDuplicateKey(fmt.Errorf("plain")) {
		t.Fatal("plain error misdetected")
	}
}

func TestRetryable_TransientSQLStates(t *testing.T) {
	t.Parallel()

	if !Retryable(FromDB(pgErr("40001"), "tx")) {
		t.Fatal("serialization failure should be retryable")
	}
	if Retryable(FromDB(pgErr("23505"), "insert")) {
		t.Fatal("duplicate key should not be retryable")
	}
}
