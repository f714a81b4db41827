package algo

import (
	"errors"
	"testing"

	"github.com/rafalsk/botan/internal/spec"
)

type pair struct{ a, b int }

type sealed struct {
	inner  *widget
	closed bool
}

type closingWidget struct {
	closed *bool
}

func (c *closingWidget) Close() error { *c.closed = true; return nil }

func TestNoArgs(t *testing.T) {
	m := NoArgs(func() *widget { return &widget{maker: "noargs"} })
	w, err := m(spec.MustNew("X", "ignored"))
	if err != nil || w.maker != "noargs" {
		t.Fatalf("got %v, %v", w, err)
	}
}

func TestOneInt(t *testing.T) {
	m := OneInt(32, func(n int) (pair, error) { return pair{a: n}, nil })

	tests := []struct {
		s    spec.Spec
		want int
	}{
		{spec.MustNew("X"), 32},
		{spec.MustNew("X", "64"), 64},
		{spec.MustNew("X", "sixty"), 32},
	}
	for _, tt := range tests {
		got, err := m(tt.s)
		if err != nil || got.a != tt.want {
			t.Fatalf("%s: got %v, %v; want %d", tt.s, got, err, tt.want)
		}
	}
}

func TestTwoInt(t *testing.T) {
	m := TwoInt(2, 4, func(a, b int) (pair, error) { return pair{a, b}, nil })

	tests := []struct {
		s    spec.Spec
		want pair
	}{
		{spec.MustNew("SipHash"), pair{2, 4}},
		{spec.MustNew("SipHash", "1"), pair{1, 4}},
		{spec.MustNew("SipHash", "1", "3"), pair{1, 3}},
		{spec.MustNew("SipHash", "x", "3"), pair{2, 3}},
	}
	for _, tt := range tests {
		got, err := m(tt.s)
		if err != nil || got != tt.want {
			t.Fatalf("%s: got %v, %v; want %v", tt.s, got, err, tt.want)
		}
	}
}

func TestOneString(t *testing.T) {
	m := OneString("digests", func(s string) (string, error) { return s, nil })
	if got, _ := m(spec.MustNew("X")); got != "digests" {
		t.Fatalf("default: got %q", got)
	}
	if got, _ := m(spec.MustNew("X", "other")); got != "other" {
		t.Fatalf("explicit: got %q", got)
	}
}

func TestOneStringRequired(t *testing.T) {
	m := OneStringRequired(func(s string) (string, error) { return s, nil })
	if _, err := m(spec.MustNew("File")); !errors.Is(err, spec.ErrMissingArg) {
		t.Fatalf("want ErrMissingArg, got %v", err)
	}
	for _, blank := range []string{"", "  "} {
		if _, err := m(spec.MustNew("File", blank)); !errors.Is(err, spec.ErrMissingArg) {
			t.Fatalf("blank %q: want ErrMissingArg, got %v", blank, err)
		}
	}
	if got, err := m(spec.MustNew("File", "/tmp")); err != nil || got != "/tmp" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestNested(t *testing.T) {
	inner := New[*widget]()
	inner.Add("Leaf", "builtin", mkWidget("leaf"))

	outer := New[*sealed]()
	outer.Add("Wrap", "builtin", Nested(inner, func(w *widget) (*sealed, error) {
		return &sealed{inner: w}, nil
	}))

	got, err := outer.Make(spec.MustNew("Wrap", "Leaf(7)"), "")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if got.inner.maker != "leaf" || len(got.inner.args) != 1 || got.inner.args[0] != "7" {
		t.Fatalf("nested instance = %+v", got.inner)
	}
}

func TestNested_MissingDependency(t *testing.T) {
	inner := New[*widget]()
	outer := New[*sealed]()
	outer.Add("Wrap", "builtin", Nested(inner, func(w *widget) (*sealed, error) {
		return &sealed{inner: w}, nil
	}))

	_, err := outer.Make(spec.MustNew("Wrap", "Ghost"), "")
	var md *MissingDependencyError
	if !errors.As(err, &md) || md.Name != "Ghost" {
		t.Fatalf("want MissingDependencyError for Ghost, got %v", err)
	}
	var ce *ConstructionError
	if !errors.As(err, &ce) {
		t.Fatalf("outer outcome should be ConstructionError, got %T", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("missing nested dependency must not read as NotFound for the outer spec")
	}

	if _, err := outer.Make(spec.MustNew("Wrap"), ""); !errors.Is(err, spec.ErrMissingArg) {
		t.Fatalf("missing argument: got %v", err)
	}
}

func TestNested_ClosesInstanceOnFailure(t *testing.T) {
	closed := false
	inner := New[*closingWidget]()
	inner.Add("Res", "builtin", NoArgs(func() *closingWidget { return &closingWidget{closed: &closed} }))

	outer := New[*sealed]()
	outer.Add("Wrap", "builtin", Nested(inner, func(*closingWidget) (*sealed, error) {
		return nil, errors.New("refused")
	}))

	if _, err := outer.Make(spec.MustNew("Wrap", "Res"), ""); err == nil {
		t.Fatal("expected error")
	}
	if !closed {
		t.Fatal("nested instance leaked on constructor failure")
	}
}
