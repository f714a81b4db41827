package weight

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Table maps provider names to selection weights. Unknown providers weigh 0.
type Table struct {
	mu      sync.RWMutex
	weights map[string]int
}

// Built-in preferences: hand-tuned code first, then the Go standard
// library, then golang.org/x/crypto, then external engines.
var defaults = map[string]int{
	"simd":    9,
	"asm":     8,
	"builtin": 5,
	"xcrypto": 3,
	"openssl": 2,
}

// Default returns a table holding the built-in weights.
func Default() *Table {
	t := &Table{weights: make(map[string]int, len(defaults))}
	for k, v := range defaults {
		t.weights[k] = v
	}
	return t
}

// Lookup returns the weight of provider. It matches algo.WeightFunc.
func (t *Table) Lookup(provider string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.weights[strings.ToLower(provider)]
}

// Preferring returns a lookup that ranks provider above every other name
// and otherwise defers to t. An empty provider returns t.Lookup.
func (t *Table) Preferring(provider string) func(string) int {
	if provider == "" {
		return t.Lookup
	}
	return func(p string) int {
		if strings.EqualFold(p, provider) {
			return math.MaxInt
		}
		return t.Lookup(p)
	}
}

// Set assigns a weight.
func (t *Table) Set(provider string, w int) {
	t.mu.Lock()
	t.weights[strings.ToLower(provider)] = w
	t.mu.Unlock()
}

// Snapshot returns a copy of the table.
func (t *Table) Snapshot() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]int, len(t.weights))
	for k, v := range t.weights {
		out[k] = v
	}
	return out
}

type fileFormat struct {
	Weights map[string]int `yaml:"weights"`
}

// LoadFile merges weights from a YAML file of the form:
//
//	weights:
//	  builtin: 5
//	  xcrypto: 7
func (t *Table) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read weights file: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse weights file %s: %w", path, err)
	}
	for k, v := range f.Weights {
		t.Set(k, v)
	}
	return nil
}

// ApplyOverrides merges "provider=weight,provider=weight" pairs.
func (t *Table) ApplyOverrides(s string) error {
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return fmt.Errorf("weight override %q: want provider=weight", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("weight override %q: %w", pair, err)
		}
		t.Set(k, n)
	}
	return nil
}
