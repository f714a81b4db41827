package algo

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rafalsk/botan/internal/spec"
)

// NoArgs ignores the spec and calls ctor.
func NoArgs[T any](ctor func() T) Maker[T] {
	return func(spec.Spec) (T, error) {
		return ctor(), nil
	}
}

// OneInt reads argument 0 as an integer, falling back to def.
func OneInt[T any](def int, ctor func(int) (T, error)) Maker[T] {
	return func(s spec.Spec) (T, error) {
		return ctor(s.ArgInt(0, def))
	}
}

// TwoInt reads arguments 0 and 1 as integers, falling back to def1 and def2.
func TwoInt[T any](def1, def2 int, ctor func(int, int) (T, error)) Maker[T] {
	return func(s spec.Spec) (T, error) {
		return ctor(s.ArgInt(0, def1), s.ArgInt(1, def2))
	}
}

// OneString reads argument 0, falling back to def.
func OneString[T any](def string, ctor func(string) (T, error)) Maker[T] {
	return func(s spec.Spec) (T, error) {
		return ctor(s.ArgOr(0, def))
	}
}

// OneStringRequired reads argument 0 and fails with spec.ErrMissingArg when
// it is absent or blank.
func OneStringRequired[T any](ctor func(string) (T, error)) Maker[T] {
	return func(s spec.Spec) (T, error) {
		var zero T
		arg, err := s.Arg(0)
		if err != nil {
			return zero, err
		}
		if strings.TrimSpace(arg) == "" {
			return zero, fmt.Errorf("%w: %s argument #0 is empty", spec.ErrMissingArg, s)
		}
		return ctor(arg)
	}
}

// Nested treats argument 0 as a spec of family X, builds it from sub and
// hands the instance to ctor. ctor takes ownership; if ctor fails and the
// instance is an io.Closer it is closed.
func Nested[T, X any](sub *Registry[X], ctor func(X) (T, error)) Maker[T] {
	return func(s spec.Spec) (T, error) {
		var zero T

		arg, err := s.Arg(0)
		if err != nil {
			return zero, err
		}
		inner, err := spec.Parse(arg)
		if err != nil {
			return zero, err
		}

		x, err := sub.Make(inner, "")
		if errors.Is(err, ErrNotFound) {
			return zero, &MissingDependencyError{Name: arg}
		}
		if err != nil {
			return zero, err
		}

		obj, err := ctor(x)
		if err != nil {
			if c, ok := any(x).(io.Closer); ok {
				_ = c.Close()
			}
			return zero, err
		}
		return obj, nil
	}
}
