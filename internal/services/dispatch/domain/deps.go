package domain

import (
	"errors"
	"fmt"
)

// DependencyError is returned by a processor whose document references
// another document that has not been sourced yet. It is a transient failure
// handled by the normal retry path; the dispatcher never reacts to it by
// fetching unless the reactive escape hatch is explicitly enabled.
type DependencyError struct {
	Ref string // URL of the missing dependency
}

// Error implements error
func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency not yet sourced: %s", e.Ref)
}

// MissingDependency builds a DependencyError for ref
func MissingDependency(ref string) error { return &DependencyError{Ref: ref} }

// AsMissingDependency reports whether err is (or wraps) a DependencyError
func AsMissingDependency(err error) (*DependencyError, bool) {
	var de *DependencyError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
