package algo

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that no maker could be resolved: the base name is
// unknown, it has no providers, or the requested provider is not registered.
var ErrNotFound = errors.New("algo: not found")

func notFound(name, provider string) error {
	if provider == "" {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return fmt.Errorf("%w: %s (provider %s)", ErrNotFound, name, provider)
}

// maskedNotFound carries a maker error that wraps ErrNotFound. It hides
// ErrNotFound from errors.Is and forwards every other Is/As match.
type maskedNotFound struct {
	err error
}

func (e *maskedNotFound) Error() string { return e.err.Error() }

func (e *maskedNotFound) Is(target error) bool {
	return target != ErrNotFound && errors.Is(e.err, target)
}

func (e *maskedNotFound) As(target any) bool { return errors.As(e.err, target) }

// ConstructionError wraps a failure raised by a resolved maker.
type ConstructionError struct {
	Spec     string // canonical form of the requested spec
	Provider string
	Err      error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("creating '%s' failed: %v", e.Spec, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// MissingDependencyError is returned by Nested makers when the nested
// algorithm cannot be resolved in its own registry.
type MissingDependencyError struct {
	Name string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("algo: nested algorithm %s not available", e.Name)
}
