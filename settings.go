package treeselect

import (
	"context"
	"fmt"

	"github.com/goliatone/go-treeselect/pkg/activity"
)

// New wraps tree in a Settings value. The tree is copied.
func New(tree Tree, opts ...Option) *Settings {
	cfg := applyOptions(opts)
	return &Settings{
		Value: tree.Clone(),
		cfg:   cfg,
	}
}

// Load wraps tree and validates the typed view of it.
func Load(tree Tree, opts ...Option) (*Settings, error) {
	settings := New(tree, opts...)
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Resolve builds settings from the private and public defaults plus the given
// consumer overrides, each override stronger than the previous one.
func Resolve(overrides ...Tree) (*Settings, error) {
	return ResolveWith(nil, overrides...)
}

// ResolveWith is Resolve with options applied to the resulting wrapper.
func ResolveWith(opts []Option, overrides ...Tree) (*Settings, error) {
	layers := defaultLayers()
	for i, override := range overrides {
		if override == nil {
			continue
		}
		scope := NewScope(fmt.Sprintf("override-%d", i+1), ScopePriorityOverride+i, WithScopeLabel("Override"))
		layers = append(layers, NewLayer(scope, override))
	}
	stack, err := NewStack(layers...)
	if err != nil {
		return nil, err
	}
	settings, err := stack.Merge(opts...)
	if err != nil {
		return nil, err
	}
	settings.emit(context.Background(), activity.BuildResolvedEvent(activity.EventInput{
		Domain:   "defaults",
		Metadata: map[string]any{"layer_count": len(layers)},
		Scope:    activity.ScopeContext{Name: settings.strongestScope().Name, Priority: settings.strongestScope().Priority},
	}))
	return settings, nil
}

// WithEvaluator configures the expression evaluator.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *settingsConfig) {
		cfg.evaluator = e
	}
}

// Tree returns a deep copy of the resolved tree.
func (s *Settings) Tree() Tree {
	if s == nil {
		return Tree{}
	}
	return s.Value.Clone()
}

// Get returns the resolved value at path.
func (s *Settings) Get(path string) (any, bool) {
	if s == nil {
		return nil, false
	}
	return s.Value.Get(path)
}

// WithTree returns a copy of the wrapper holding tree. Configuration and
// layer provenance are retained.
func (s *Settings) WithTree(tree Tree) *Settings {
	if s == nil {
		return New(tree)
	}
	return &Settings{
		Value:  tree.Clone(),
		cfg:    s.cfg,
		layers: cloneLayerSnapshots(s.layers),
	}
}

// LayerWith overlays overrides (weakest to strongest) on the current value
// and returns a new wrapper. Each override becomes a provenance layer above
// the existing ones; a wrapper built without a stack first gets its value
// recorded as a base layer.
func (s *Settings) LayerWith(overrides ...Tree) *Settings {
	if s == nil {
		return New(Overlay(Tree{}, overrides...))
	}
	next := s.WithTree(Overlay(s.Value, overrides...))
	if len(next.layers) == 0 {
		next.layers = []layerSnapshot{{Scope: s.baseScope(), Snapshot: s.Value.Clone()}}
	}
	top := ScopePriorityOverride
	for _, layer := range next.layers {
		if layer.Scope.Priority >= top {
			top = layer.Scope.Priority + 1
		}
	}
	for i, override := range overrides {
		if override == nil {
			continue
		}
		next.layers = append([]layerSnapshot{{
			Scope:    NewScope(fmt.Sprintf("layer-%d", top+i), top+i, WithScopeLabel("Overlay")),
			Snapshot: override.Clone(),
		}}, next.layers...)
	}
	next.emit(context.Background(), activity.BuildOverriddenEvent(activity.EventInput{
		Metadata: map[string]any{"paths": overridePaths(overrides)},
		Scope:    activity.ScopeContext{Name: next.strongestScope().Name, Priority: next.strongestScope().Priority},
	}))
	return next
}

// Validate decodes the typed configuration and checks its invariants.
func (s *Settings) Validate() error {
	if s == nil {
		return fmt.Errorf("treeselect: settings are nil")
	}
	cfg, err := s.Config()
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// baseScope names the synthetic layer that stands for a value built without
// a stack.
func (s *Settings) baseScope() Scope {
	scope := s.cfg.scope.clone()
	if scope.isZero() {
		scope = NewScope("settings", 0)
	}
	return scope
}

func (s *Settings) strongestScope() Scope {
	if len(s.layers) == 0 {
		return Scope{}
	}
	return s.layers[0].Scope
}

func overridePaths(overrides []Tree) []string {
	var paths []string
	for _, override := range overrides {
		paths = append(paths, override.Paths()...)
	}
	return paths
}
