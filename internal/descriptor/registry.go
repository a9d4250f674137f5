// Package descriptor parses a declarative pipeline file into a task
// chain via a named-constructor registry, the structured replacement
// for an evaluated pipeline script.
package descriptor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/archiveteam/warrior-pipeline/internal/realize"
	"github.com/archiveteam/warrior-pipeline/internal/taskgraph"
)

// Params is the decoded body of one task node, everything but its
// "kind" and "name" keys.
type Params map[string]interface{}

// Factory builds one task from its declared name and params. reg is
// passed through so a wrapper kind (limit_concurrent, conditional_task)
// can recursively build its inner task from the same registry.
type Factory func(name string, params Params, reg *Registry) (taskgraph.Task, error)

// Registry maps task kinds to the factory that constructs them, plus
// the shared state (ConfigValue resolution source, tracker client
// settings) every built-in factory draws on.
type Registry struct {
	mu           sync.Mutex
	kinds        map[string]Factory
	ConfigLookup realize.ConfigLookup
	Tracker      *taskgraph.TrackerClientConfig
}

// NewRegistry creates a registry with the built-in task kinds
// registered and cfg as the ConfigValue resolution source.
func NewRegistry(cfg realize.ConfigLookup) *Registry {
	r := &Registry{kinds: make(map[string]Factory), ConfigLookup: cfg}
	registerBuiltins(r)
	return r
}

// SetTrackerConfig wires the tracker client settings (base URL,
// downloader nickname, user agent) used by the tracker_* task kinds.
// Must be called before a pipeline file referencing them is parsed.
func (r *Registry) SetTrackerConfig(cfg taskgraph.TrackerClientConfig) {
	r.Tracker = &cfg
}

// RegisterTaskKind registers factory under kind. Panics if kind is
// empty, factory is nil, or kind is already registered: a collision
// here is a compile-time bug in the registering code, not a runtime
// condition callers should recover from.
func (r *Registry) RegisterTaskKind(kind string, factory Factory) {
	if kind == "" {
		panic("descriptor: task kind cannot be empty")
	}
	if factory == nil {
		panic("descriptor: task factory cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[kind]; exists {
		panic(fmt.Sprintf("descriptor: task kind %q already registered", kind))
	}
	r.kinds[kind] = factory
}

// Build constructs one task node by kind.
func (r *Registry) Build(kind, name string, params Params) (taskgraph.Task, error) {
	r.mu.Lock()
	factory, ok := r.kinds[kind]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("descriptor: unknown task kind %q", kind)
	}
	return factory(name, params, r)
}

// Kinds returns a sorted list of every registered task kind.
func (r *Registry) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
