package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeOf_SurvivesWrapping(t *testing.T) {
	t.Parallel()

	base := NotFoundf("document %s missing", "X")
	wrapped := fmt.Errorf("outer context: %w", base)

	if got := CodeOf(wrapped); got != ErrorCodeNotFound {
		t.Fatalf("CodeOf = %v, want not found", got)
	}
	if !IsCode(wrapped, ErrorCodeNotFound) {
		t.Fatal("IsCode missed wrapped code")
	}
	if CodeOf(stderrs.New("plain")) != ErrorCodeUnknown {
		t.Fatal("foreign error should map to unknown")
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	t.Parallel()

	cause := stderrs.New("socket closed")
	err := Wrap(cause, ErrorCodeUnavailable, "fetch failed")

	if !stderrs.Is(err, cause) {
		t.Fatal("wrapped cause lost")
	}
	if Root(err) != cause {
		t.Fatalf("Root = %v, want original cause", Root(err))
	}
	if got := err.Error(); got != "fetch failed: socket closed" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestRetryable_Classification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want bool
	}{
		{Unavailablef("provider 503"), true},
		{DependencyMissingf("franchise not sourced"), true},
		{Configurationf("no processor registered"), false},
		{InvalidArgf("bad url"), false},
		{Validationf("missing id"), false},
		{NotFoundf("gone"), false},
		{stderrs.New("plain"), false},
	}
	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Fatalf("Retryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{NotFoundf("x"), http.StatusNotFound},
		{Validationf("x"), http.StatusBadRequest},
		{JSONErrf("x"), http.StatusBadRequest},
		{Conflictf("x"), http.StatusConflict},
		{DuplicateKeyf("x"), http.StatusConflict},
		{Unavailablef("x"), http.StatusServiceUnavailable},
		{Configurationf("x"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestWireFrom(t *testing.T) {
	t.Parallel()

	w := WireFrom(WithField(Validationf("must be set"), "indexUrl"))
	if w.Code != ErrorCodeValidation || w.Field != "indexUrl" {
		t.Fatalf("Wire = %+v", w)
	}
	if w := WireFrom(nil); w.Code != ErrorCodeUnknown || w.Message != "" {
		t.Fatalf("WireFrom(nil) = %+v, want zero value", w)
	}
	if w := WireFrom(stderrs.New("plain")); w.Message != "plain" {
		t.Fatalf("WireFrom(plain) = %+v", w)
	}
}
