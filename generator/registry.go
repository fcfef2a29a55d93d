package generator

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
)

// Factory constructs a new generator instance for the given context.
type Factory func(ctx *Context) Generator

// Registry maps generator names to factories. The zero tooling path uses the
// package-level Register/Create/Names functions, which share one
// process-wide registry; independent registries can be constructed for test
// isolation. All operations are serialized under one mutex and safe for
// concurrent use from multiple worker threads (e.g. one per build target).
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry behind the package-level
// functions.
func DefaultRegistry() *Registry { return defaultRegistry }

// Register adds a factory under the given name. The name must be a valid
// identifier and not registered yet.
//
// To be safe, call Register during initialization of a package.
func (r *Registry) Register(name string, factory Factory) {
	CheckValidName(name, "generator")
	if factory == nil {
		internalErrorf("nil factory registered for generator %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, duplicate := r.factories[name]; duplicate {
		userErrorf("duplicate generator name: %q", name)
	}
	r.factories[name] = factory
}

// Unregister removes a previously registered factory.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.factories[name]; !found {
		userErrorf("generator not found: %q", name)
	}
	delete(r.factories, name)
}

// Create instantiates the named generator with the given context. An unknown
// name fails with a message listing every registered generator.
func (r *Registry) Create(name string, ctx *Context) Generator {
	r.mu.Lock()
	defer r.mu.Unlock()
	factory, found := r.factories[name]
	if !found {
		names := maps.Keys(r.factories)
		sort.Strings(names)
		listing := "    <none>"
		if len(names) > 0 {
			listing = "    " + strings.Join(names, "\n    ")
		}
		userErrorf("generator not found: %q\navailable generators:\n%s", name, listing)
	}
	g := factory(ctx)
	if g == nil || g.base() == nil {
		internalErrorf("the factory for generator %q produced a nil instance", name)
	}
	g.base().noteCreated(name)
	return g
}

// Names returns all registered generator names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := maps.Keys(r.factories)
	sort.Strings(names)
	return names
}

// Register adds a factory to the process-wide registry.
func Register(name string, factory Factory) { defaultRegistry.Register(name, factory) }

// Unregister removes a factory from the process-wide registry.
func Unregister(name string) { defaultRegistry.Unregister(name) }

// Create instantiates a generator by name from the process-wide registry.
func Create(name string, ctx *Context) Generator { return defaultRegistry.Create(name, ctx) }

// Names returns the names registered in the process-wide registry.
func Names() []string { return defaultRegistry.Names() }
