package spec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptyName  = errors.New("spec: algorithm name required")
	ErrMissingArg = errors.New("spec: missing argument")
	ErrSyntax     = errors.New("spec: invalid syntax")
)

// Spec describes a requested algorithm: a base name plus ordered string arguments.
// The zero value is not valid; build one with New or Parse.
type Spec struct {
	name string
	args []string
}

// New returns a Spec for name with the given arguments. The name may not
// contain parentheses or commas, and each argument must be balanced with no
// top-level comma, so that String always parses back to the same Spec.
func New(name string, args ...string) (Spec, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Spec{}, ErrEmptyName
	}
	if strings.ContainsAny(name, "(),") {
		return Spec{}, fmt.Errorf("%w: invalid name %q", ErrSyntax, name)
	}
	cp := make([]string, len(args))
	for i, a := range args {
		if !splittable(a) {
			return Spec{}, fmt.Errorf("%w: %s argument #%d %q", ErrSyntax, name, i, a)
		}
		cp[i] = a
	}
	return Spec{name: name, args: cp}, nil
}

// splittable reports whether a has balanced parentheses and no comma
// outside of them.
func splittable(a string) bool {
	depth := 0
	for i := 0; i < len(a); i++ {
		switch a[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		case ',':
			if depth == 0 {
				return false
			}
		}
	}
	return depth == 0
}

// MustNew is New for literals known to be valid. It panics on error.
func MustNew(name string, args ...string) Spec {
	s, err := New(name, args...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the base algorithm name.
func (s Spec) Name() string { return s.name }

// ArgCount returns the number of arguments.
func (s Spec) ArgCount() int { return len(s.args) }

// Args returns a copy of the arguments.
func (s Spec) Args() []string {
	cp := make([]string, len(s.args))
	copy(cp, s.args)
	return cp
}

// Arg returns argument i or ErrMissingArg when it is absent.
func (s Spec) Arg(i int) (string, error) {
	if i < 0 || i >= len(s.args) {
		return "", fmt.Errorf("%w: %s has no argument #%d", ErrMissingArg, s.String(), i)
	}
	return s.args[i], nil
}

// ArgOr returns argument i, or def when it is absent.
func (s Spec) ArgOr(i int, def string) string {
	if i < 0 || i >= len(s.args) {
		return def
	}
	return s.args[i]
}

// ArgInt returns argument i as a base-10 integer.
// def is returned when the argument is absent or not an integer.
func (s Spec) ArgInt(i, def int) int {
	if i < 0 || i >= len(s.args) {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s.args[i]))
	if err != nil {
		return def
	}
	return n
}

// String renders the canonical form, e.g. "HMAC(SHA-256)".
func (s Spec) String() string {
	if len(s.args) == 0 {
		return s.name
	}
	return s.name + "(" + strings.Join(s.args, ",") + ")"
}
