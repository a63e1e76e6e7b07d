package treeselect

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a helper callable from slot expressions.
type Function func(args ...any) (any, error)

type registeredFunction struct {
	name string
	fn   Function
}

// FunctionRegistry stores custom functions keyed by name. Lookups are
// case-insensitive; Names reports the spelling used at registration.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]registeredFunction
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]registeredFunction),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("treeselect: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("treeselect: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]registeredFunction)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("treeselect: function %q already registered", name)
	}
	r.functions[key] = registeredFunction{name: name, fn: fn}
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]registeredFunction, len(r.functions)),
	}
	for key, entry := range r.functions {
		clone.functions[key] = entry
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("treeselect: function registry is nil")
	}
	r.mu.RLock()
	entry, ok := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("treeselect: function %q not registered", name)
	}
	return entry.fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for _, entry := range r.functions {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry configures a wrapper to use registry.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *settingsConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the wrapper.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *settingsConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// SearchFunctions returns a registry preloaded with the helpers matcher and
// sorter expressions commonly need: fold (lower-case a string), containsFold
// (case-insensitive substring) and labelKey (trimmed, lower-cased label of an
// entry binding).
func SearchFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("fold", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("treeselect: fold expects 1 argument, got %d", len(args))
		}
		return strings.ToLower(fmt.Sprint(args[0])), nil
	})
	_ = registry.Register("containsFold", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("treeselect: containsFold expects 2 arguments, got %d", len(args))
		}
		return containsFold(fmt.Sprint(args[0]), fmt.Sprint(args[1])), nil
	})
	_ = registry.Register("labelKey", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("treeselect: labelKey expects 1 argument, got %d", len(args))
		}
		binding, ok := args[0].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("treeselect: labelKey expects an entry, got %T", args[0])
		}
		return strings.ToLower(strings.TrimSpace(fmt.Sprint(binding["label"]))), nil
	})
	return registry
}
