package algo

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rafalsk/botan/internal/spec"
)

// Maker builds a new T from a spec. The caller owns the returned value.
type Maker[T any] func(spec.Spec) (T, error)

// WeightFunc scores a provider name; higher is preferred.
type WeightFunc func(provider string) int

func noWeights(string) int { return 0 }

// providerSet keeps the makers of one base name in registration order.
type providerSet[T any] struct {
	order  []string
	makers map[string]Maker[T]
}

// Registry maps (base name, provider) to makers for one family T.
// It is safe for concurrent use; makers run outside the lock.
type Registry[T any] struct {
	mu     sync.Mutex
	family string
	weight WeightFunc
	algos  map[string]*providerSet[T]
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	family string
	weight WeightFunc
}

// WithName labels the registry's family in logs and errors.
func WithName(family string) Option { return func(o *options) { o.family = family } }

// WithWeights sets the provider weight lookup used for automatic selection.
func WithWeights(fn WeightFunc) Option { return func(o *options) { o.weight = fn } }

// New allocates an empty registry.
func New[T any](opts ...Option) *Registry[T] {
	o := options{family: reflect.TypeFor[T]().String(), weight: noWeights}
	for _, fn := range opts {
		fn(&o)
	}
	if o.weight == nil {
		o.weight = noWeights
	}
	return &Registry[T]{
		family: o.family,
		weight: o.weight,
		algos:  make(map[string]*providerSet[T]),
	}
}

// Family returns the registry label.
func (r *Registry[T]) Family() string { return r.family }

// SetWeights swaps the weight lookup. nil restores equal weights.
func (r *Registry[T]) SetWeights(fn WeightFunc) {
	if fn == nil {
		fn = noWeights
	}
	r.mu.Lock()
	r.weight = fn
	r.mu.Unlock()
}

// Add registers maker for (name, provider) unless that pair already has one.
// The first registration wins; later ones are ignored.
func (r *Registry[T]) Add(name, provider string, maker Maker[T]) {
	if name == "" || provider == "" || maker == nil {
		log.Warn().
			Str("action", "algo_register").
			Str("family", r.family).
			Str("algo", name).
			Str("provider", provider).
			Msg("invalid registration ignored")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.algos[name]
	if !ok {
		set = &providerSet[T]{makers: make(map[string]Maker[T])}
		r.algos[name] = set
	}
	if _, exists := set.makers[provider]; exists {
		log.Debug().
			Str("action", "algo_register").
			Str("family", r.family).
			Str("algo", name).
			Str("provider", provider).
			Msg("duplicate registration ignored")
		return
	}
	set.makers[provider] = maker
	set.order = append(set.order, provider)
}

// Providers lists the providers registered for name. Callers must not rely
// on the order. Unknown names yield an empty slice.
func (r *Registry[T]) Providers(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.algos[name]
	if !ok {
		return []string{}
	}
	out := make([]string, len(set.order))
	copy(out, set.order)
	return out
}

// Names returns the sorted base names that have at least one provider.
func (r *Registry[T]) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.algos))
	for name, set := range r.algos {
		if len(set.order) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Resolve reports which provider Make would use for s.
func (r *Registry[T]) Resolve(s spec.Spec, provider string) (string, error) {
	prov, _, err := r.find(s.Name(), provider)
	return prov, err
}

// Make resolves a maker for s and invokes it. An empty provider lets the
// registry choose: the only provider, or the highest weighted one with ties
// going to the lexically smallest name.
//
// Resolution failures satisfy errors.Is(err, ErrNotFound). Maker failures,
// including panics, are returned as *ConstructionError.
func (r *Registry[T]) Make(s spec.Spec, provider string) (T, error) {
	var zero T

	prov, maker, err := r.find(s.Name(), provider)
	if err != nil {
		log.Debug().
			Str("action", "algo_make").
			Str("family", r.family).
			Str("algo", s.String()).
			Str("provider", provider).
			Msg("no maker found")
		return zero, err
	}

	obj, err := invoke(maker, s)
	if err != nil {
		// A maker leaking ErrNotFound must not read as a resolution miss.
		if errors.Is(err, ErrNotFound) {
			err = &maskedNotFound{err: err}
		}
		return zero, &ConstructionError{Spec: s.String(), Provider: prov, Err: err}
	}

	log.Debug().
		Str("action", "algo_make").
		Str("family", r.family).
		Str("algo", s.String()).
		Str("provider", prov).
		Msg("constructed")
	return obj, nil
}

type candidate[T any] struct {
	provider string
	maker    Maker[T]
}

func (r *Registry[T]) find(name, provider string) (string, Maker[T], error) {
	r.mu.Lock()
	set, ok := r.algos[name]
	if !ok || len(set.order) == 0 {
		r.mu.Unlock()
		return "", nil, notFound(name, provider)
	}

	if provider != "" {
		maker, ok := set.makers[provider]
		r.mu.Unlock()
		if !ok {
			return "", nil, notFound(name, provider)
		}
		return provider, maker, nil
	}

	if len(set.order) == 1 {
		only := set.order[0]
		maker := set.makers[only]
		r.mu.Unlock()
		return only, maker, nil
	}

	cands := make([]candidate[T], 0, len(set.order))
	for _, p := range set.order {
		cands = append(cands, candidate[T]{provider: p, maker: set.makers[p]})
	}
	weight := r.weight
	r.mu.Unlock()

	best := pickByWeight(cands, weight)
	return best.provider, best.maker, nil
}

func pickByWeight[T any](cands []candidate[T], weight WeightFunc) candidate[T] {
	best := cands[0]
	bestW := weight(best.provider)
	for _, c := range cands[1:] {
		w := weight(c.provider)
		if w > bestW || (w == bestW && c.provider < best.provider) {
			best, bestW = c, w
		}
	}
	return best
}

func invoke[T any](maker Maker[T], s spec.Spec) (obj T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			var zero T
			obj = zero
			if e, ok := rec.(error); ok {
				err = fmt.Errorf("panic: %w", e)
				return
			}
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return maker(s)
}
