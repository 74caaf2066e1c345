package task

import (
	"fmt"
	"sort"
	"sync"
)

// Payload carries the decoded configuration of an action as declared in a
// workspace target (opaque to the runtime until a factory interprets it).
type Payload map[string]any

// Factory constructs an action from its declared payload.
type Factory func(Payload) (Action, error)

// Registry maintains known action factories keyed by kind.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register installs an action factory. Returns an error if the kind already
// exists.
func (r *Registry) Register(kind string, factory Factory) error {
	if kind == "" {
		return fmt.Errorf("task: action kind is required")
	}
	if factory == nil {
		return fmt.Errorf("task: factory is required for %s", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("task: action kind %s already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(kind string, factory Factory) {
	if err := r.Register(kind, factory); err != nil {
		panic(err)
	}
}

// Resolve constructs an action by kind.
func (r *Registry) Resolve(kind string, payload Payload) (Action, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("task: unknown action kind %s", kind)
	}
	return factory(payload)
}

// Kinds returns a sorted list of registered action kinds.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// RegisterBuiltins installs the action factories that ship with the runtime.
func RegisterBuiltins(r *Registry) {
	r.MustRegister(ShellKind, func(payload Payload) (Action, error) {
		command, err := stringSlice(payload, "command")
		if err != nil {
			return nil, err
		}
		if len(command) == 0 {
			return nil, fmt.Errorf("task: shell action requires a non-empty command")
		}
		return Shell{Command: command}, nil
	})
}

func stringSlice(payload Payload, key string) ([]string, error) {
	raw, ok := payload[key]
	if !ok {
		return nil, fmt.Errorf("task: payload key %s is required", key)
	}
	switch value := raw.(type) {
	case []string:
		return append([]string{}, value...), nil
	case []any:
		out := make([]string, 0, len(value))
		for idx, element := range value {
			text, ok := element.(string)
			if !ok {
				return nil, fmt.Errorf("task: payload key %s[%d] must be a string", key, idx)
			}
			out = append(out, text)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("task: payload key %s must be a list of strings", key)
	}
}
