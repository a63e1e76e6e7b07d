package treeselect

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-treeselect/layering"
	"github.com/goliatone/go-treeselect/pkg/activity"
)

// Scope models a named precedence bucket (private defaults, dashboard, user,
// etc.). Higher priority values represent stronger layers.
type Scope struct {
	Name     string
	Label    string
	Priority int
	Metadata map[string]any
}

// ScopeOption configures metadata on Scope creation.
type ScopeOption func(*scopeConfig)

type scopeConfig struct {
	label    string
	metadata map[string]any
}

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) ScopeOption {
	return func(cfg *scopeConfig) {
		cfg.label = label
	}
}

// WithScopeMetadata attaches arbitrary metadata to the scope. The map is
// copied.
func WithScopeMetadata(metadata map[string]any) ScopeOption {
	return func(cfg *scopeConfig) {
		if len(metadata) == 0 {
			return
		}
		cfg.metadata = copyMetadata(metadata)
	}
}

// NewScope builds a Scope. Validation is deferred to Stack construction.
func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	cfg := scopeConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return Scope{
		Name:     name,
		Label:    cfg.label,
		Priority: priority,
		Metadata: copyMetadata(cfg.metadata),
	}
}

func (s Scope) clone() Scope {
	return Scope{
		Name:     s.Name,
		Label:    s.Label,
		Priority: s.Priority,
		Metadata: copyMetadata(s.Metadata),
	}
}

func (s Scope) isZero() bool {
	return s.Name == "" && s.Label == "" && s.Priority == 0 && len(s.Metadata) == 0
}

// Layer pairs a scope with the partial tree captured for it.
type Layer struct {
	Scope      Scope
	Snapshot   Tree
	SnapshotID string
}

// LayerOption configures optional metadata for a layer.
type LayerOption func(*Layer)

// WithSnapshotID sets the snapshot identifier used for auditing.
func WithSnapshotID(id string) LayerOption {
	return func(layer *Layer) {
		layer.SnapshotID = id
	}
}

// NewLayer constructs a Layer with detached copies of the scope metadata and
// the snapshot.
func NewLayer(scope Scope, snapshot Tree, opts ...LayerOption) Layer {
	layer := Layer{
		Scope:    scope.clone(),
		Snapshot: snapshot.Clone(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&layer)
	}
	return layer
}

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("treeselect: scope name must be provided")
	// ErrDuplicateScopeName indicates a stack received two layers with the
	// same scope name.
	ErrDuplicateScopeName = errors.New("treeselect: scope names must be unique")
	// ErrPriorityOrder indicates duplicate priorities in a stack.
	ErrPriorityOrder = errors.New("treeselect: scope priorities must be strictly ordered")
	// ErrEmptyStack is returned when merging a stack without layers.
	ErrEmptyStack = errors.New("treeselect: stack must include at least one layer")
)

// Stack is an immutable list of layers ordered from strongest to weakest.
type Stack struct {
	layers []Layer
}

// NewStack validates and sorts layers so the strongest scope (highest
// priority) comes first. Snapshots are deep copied.
func NewStack(layers ...Layer) (*Stack, error) {
	if len(layers) == 0 {
		return &Stack{}, nil
	}

	seenNames := make(map[string]struct{}, len(layers))
	copied := make([]Layer, len(layers))
	for i, layer := range layers {
		layer := cloneLayer(layer)
		if layer.Scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seenNames[layer.Scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, layer.Scope.Name)
		}
		seenNames[layer.Scope.Name] = struct{}{}
		copied[i] = layer
	}

	sort.Slice(copied, func(i, j int) bool {
		if copied[i].Scope.Priority == copied[j].Scope.Priority {
			return copied[i].Scope.Name < copied[j].Scope.Name
		}
		return copied[i].Scope.Priority > copied[j].Scope.Priority
	})

	for i := 1; i < len(copied); i++ {
		if copied[i-1].Scope.Priority <= copied[i].Scope.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Scope.Priority)
		}
	}

	return &Stack{layers: copied}, nil
}

// Layers returns copies of the underlying layers, strongest first.
func (s *Stack) Layers() []Layer {
	if s == nil || len(s.layers) == 0 {
		return nil
	}
	out := make([]Layer, len(s.layers))
	for i := range s.layers {
		out[i] = cloneLayer(s.layers[i])
	}
	return out
}

// Len returns the number of layers in the stack.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Merge deep-extends the layers from weakest to strongest into a new
// Settings wrapper that keeps per-layer provenance. When activity hooks are
// configured one layer-applied event is emitted per layer.
func (s *Stack) Merge(opts ...Option) (*Settings, error) {
	if s == nil || len(s.layers) == 0 {
		return nil, ErrEmptyStack
	}
	snapshots := make([]map[string]any, len(s.layers))
	layerMeta := make([]layerSnapshot, len(s.layers))
	for i := range s.layers {
		snapshots[i] = map[string]any(s.layers[i].Snapshot)
		layerMeta[i] = layerSnapshot{
			Scope:      s.layers[i].Scope.clone(),
			Snapshot:   s.layers[i].Snapshot.Clone(),
			SnapshotID: s.layers[i].SnapshotID,
		}
	}
	merged := Tree(layering.MergeLayers(snapshots...))
	settings := &Settings{Value: merged, cfg: applyOptions(opts)}
	settings.attachLayers(layerMeta)

	ctx := context.Background()
	for i := len(layerMeta) - 1; i >= 0; i-- {
		layer := layerMeta[i]
		settings.emit(ctx, activity.BuildLayerAppliedEvent(activity.EventInput{
			Scope: activity.ScopeContext{
				Name:       layer.Scope.Name,
				Label:      layer.Scope.Label,
				Priority:   layer.Scope.Priority,
				Metadata:   layer.Scope.Metadata,
				SnapshotID: layer.SnapshotID,
			},
			Metadata: map[string]any{"path_count": len(layer.Snapshot.Paths())},
		}))
	}
	return settings, nil
}

func cloneLayer(layer Layer) Layer {
	return Layer{
		Scope:      layer.Scope.clone(),
		Snapshot:   layer.Snapshot.Clone(),
		SnapshotID: layer.SnapshotID,
	}
}

type layerSnapshot struct {
	Scope      Scope
	Snapshot   Tree
	SnapshotID string
}

func (s *Settings) attachLayers(layers []layerSnapshot) {
	s.layers = cloneLayerSnapshots(layers)
}

func cloneLayerSnapshots(layers []layerSnapshot) []layerSnapshot {
	if len(layers) == 0 {
		return nil
	}
	out := make([]layerSnapshot, len(layers))
	for i, layer := range layers {
		out[i] = layerSnapshot{
			Scope:      layer.Scope.clone(),
			Snapshot:   layer.Snapshot.Clone(),
			SnapshotID: layer.SnapshotID,
		}
	}
	return out
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
