// Package output renders job snapshots for the terminal and for scripts
// (pretty, plain, table, json, jsonl, yaml, csv, markdown, paths, null and
// template).
//
// Formatters are looked up by name in a registry:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.NewResult(snap)); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

// Result is what a formatter renders: a snapshot plus where it came from.
type Result struct {
	Snapshot types.Snapshot

	// DaemonUp is set when the snapshot was fetched from dedupd.
	DaemonUp bool

	// Warnings are printed after the groups.
	Warnings []string
}

// NewResult wraps a snapshot.
func NewResult(snap types.Snapshot) *Result {
	return &Result{Snapshot: snap}
}

// Pending returns the groups that still hold two or more members.
func (r *Result) Pending() []types.DuplicateGroup {
	return lo.Filter(r.Snapshot.Groups, func(g types.DuplicateGroup, _ int) bool {
		return len(g.Paths) >= 2
	})
}

// Wasted returns the bytes that deleting every redundant copy would free.
func (r *Result) Wasted() int64 {
	return lo.SumBy(r.Snapshot.Groups, func(g types.DuplicateGroup) int64 {
		return g.Wasted()
	})
}

// Formatter renders a Result.
type Formatter interface {
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory creates a Formatter.
type FormatterFactory func() Formatter

// Registry maps names to formatter factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a factory, replacing any existing one with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the registered names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
