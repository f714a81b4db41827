package algo

import (
	"reflect"
	"sync"

	"github.com/rafalsk/botan/internal/spec"
)

// DefaultProvider is the provider name used when a registration names none.
const DefaultProvider = "builtin"

// globals holds one *Registry[T] per family type T.
var globals sync.Map

// Global returns the process-wide registry for T, creating it on first use.
// Concurrent first calls all observe the same registry.
func Global[T any]() *Registry[T] {
	key := reflect.TypeFor[T]()
	if r, ok := globals.Load(key); ok {
		return r.(*Registry[T])
	}
	r, _ := globals.LoadOrStore(key, New[T]())
	return r.(*Registry[T])
}

// MakeA builds s from the global registry for T.
func MakeA[T any](s spec.Spec, provider string) (T, error) {
	return Global[T]().Make(s, provider)
}

// RegisterOption modifies a single registration.
type RegisterOption func(*regOpts)

type regOpts struct {
	provider string
}

// WithProvider names the provider of a registration (default "builtin").
func WithProvider(name string) RegisterOption { return func(o *regOpts) { o.provider = name } }

func buildRegOpts(opts []RegisterOption) regOpts {
	o := regOpts{provider: DefaultProvider}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Registrar performs registrations against one registry. Family packages
// expose a startup routine taking a Registrar-backed registry so the same
// code serves the global registries and isolated ones in tests.
type Registrar[T any] struct {
	r *Registry[T]
}

// Into returns a Registrar targeting r.
func Into[T any](r *Registry[T]) Registrar[T] { return Registrar[T]{r: r} }

// Add registers maker under name.
func (g Registrar[T]) Add(name string, maker Maker[T], opts ...RegisterOption) {
	o := buildRegOpts(opts)
	g.r.Add(name, o.provider, maker)
}

// AddIf registers maker only when cond holds, e.g. when the provider's
// backing implementation is available.
func (g Registrar[T]) AddIf(cond bool, name string, maker Maker[T], opts ...RegisterOption) {
	if !cond {
		return
	}
	g.Add(name, maker, opts...)
}

// Register adds maker to the global registry for T.
func Register[T any](name string, maker Maker[T], opts ...RegisterOption) {
	Into(Global[T]()).Add(name, maker, opts...)
}

// RegisterIf adds maker to the global registry for T when cond holds.
func RegisterIf[T any](cond bool, name string, maker Maker[T], opts ...RegisterOption) {
	Into(Global[T]()).AddIf(cond, name, maker, opts...)
}
