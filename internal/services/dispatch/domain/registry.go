package domain

import (
	"fmt"

	docdom "fieldday/internal/services/documents/domain"
)

type registryKey struct {
	provider docdom.Provider
	sport    docdom.Sport
	docType  docdom.DocType
}

// Registry maps (provider, sport, documentType) triples to processors.
// Lookup is exact match only: wildcard fallback would let a payload reach the
// wrong canonicalization rule silently. Populate at start-up; not safe for
// concurrent mutation afterwards.
type Registry struct {
	m map[registryKey]Processor
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{m: make(map[registryKey]Processor)}
}

// Register adds a processor for the triple; a second registration for the
// same triple panics, since that is always a wiring bug
func (r *Registry) Register(provider docdom.Provider, sport docdom.Sport, docType docdom.DocType, p Processor) {
	if p == nil {
		panic("dispatch: nil processor")
	}
	k := registryKey{provider, sport, docType}
	if _, dup := r.m[k]; dup {
		panic(fmt.Sprintf("dispatch: duplicate processor for %s/%s/%s", provider, sport, docType))
	}
	r.m[k] = p
}

// Resolve returns the processor for the triple, if registered
func (r *Registry) Resolve(provider docdom.Provider, sport docdom.Sport, docType docdom.DocType) (Processor, bool) {
	p, ok := r.m[registryKey{provider, sport, docType}]
	return p, ok
}
