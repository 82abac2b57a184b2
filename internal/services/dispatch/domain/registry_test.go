package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fieldday/internal/modkit/repokit"
	"fieldday/internal/platform/testkit"
	docdom "fieldday/internal/services/documents/domain"
)

type noopProcessor struct{}

func (noopProcessor) Process(context.Context, repokit.Queryer, Command) error { return nil }

func TestRegistry_ExactMatchOnly(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(docdom.ProviderESPN, docdom.SportFootballNCAA, docdom.DocTypeVenue, noopProcessor{})

	if _, ok := r.Resolve(docdom.ProviderESPN, docdom.SportFootballNCAA, docdom.DocTypeVenue); !ok {
		t.Fatal("registered triple did not resolve")
	}
	// any differing component misses; there is no fallback
	if _, ok := r.Resolve(docdom.ProviderESPN, docdom.SportFootballNFL, docdom.DocTypeVenue); ok {
		t.Fatal("resolve matched a different sport")
	}
	if _, ok := r.Resolve(docdom.ProviderESPN, docdom.SportFootballNCAA, docdom.DocTypeAthlete); ok {
		t.Fatal("resolve matched a different document type")
	}
}

func TestRegistry_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(docdom.ProviderESPN, docdom.SportFootballNCAA, docdom.DocTypeVenue, noopProcessor{})
	testkit.MustPanic(t, func() {
		r.Register(docdom.ProviderESPN, docdom.SportFootballNCAA, docdom.DocTypeVenue, noopProcessor{})
	})
}

func TestRegistry_NilProcessorPanics(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	testkit.MustPanic(t, func() {
		r.Register(docdom.ProviderESPN, docdom.SportFootballNCAA, docdom.DocTypeVenue, nil)
	})
}

func TestAsMissingDependency(t *testing.T) {
	t.Parallel()

	base := MissingDependency("http://h.example.com/v2/venues/9")
	wrapped := fmt.Errorf("process venue: %w", base)

	dep, ok := AsMissingDependency(wrapped)
	if !ok {
		t.Fatal("wrapped DependencyError not detected")
	}
	if dep.Ref != "http://h.example.com/v2/venues/9" {
		t.Fatalf("Ref = %q", dep.Ref)
	}
	if _, ok := AsMissingDependency(errors.New("plain failure")); ok {
		t.Fatal("plain error misdetected as dependency miss")
	}
}
