package treeselect

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrPathNotFound is returned when no layer provides a value for a path.
var ErrPathNotFound = errors.New("treeselect: path not found")

// Trace captures provenance information for a given path lookup across the
// scoped layers that produced the effective value.
type Trace struct {
	Path   string       `json:"path"`
	Layers []Provenance `json:"layers"`
}

// Provenance details how a specific scope contributed to a traced path.
type Provenance struct {
	Scope      Scope  `json:"scope"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Path       string `json:"path"`
	Value      any    `json:"value,omitempty"`
	Found      bool   `json:"found"`
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// Winner returns the strongest layer that set a non-nil value.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found && layer.Value != nil {
			return layer, true
		}
	}
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ResolveWithTrace returns the effective value at path together with the
// contribution of every layer, strongest first. Settings built without a
// stack report a single synthetic layer.
func (s *Settings) ResolveWithTrace(path string) (any, Trace, error) {
	if _, err := SplitPath(path); err != nil {
		return nil, Trace{}, err
	}
	if s == nil {
		return nil, Trace{}, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}

	trace := Trace{Path: path}
	if len(s.layers) == 0 {
		value, found := s.Value.Get(path)
		trace.Layers = []Provenance{{Scope: s.baseScope(), Path: path, Value: value, Found: found}}
		if !found {
			return nil, trace, fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		return value, trace, nil
	}

	for _, layer := range s.layers {
		value, found := layer.Snapshot.Get(path)
		trace.Layers = append(trace.Layers, Provenance{
			Scope:      layer.Scope.clone(),
			SnapshotID: layer.SnapshotID,
			Path:       path,
			Value:      value,
			Found:      found,
		})
	}

	value, found := s.Value.Get(path)
	if !found {
		return nil, trace, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return value, trace, nil
}

// FlattenWithProvenance maps every leaf path of the resolved tree to the
// layer that supplied its value.
func (s *Settings) FlattenWithProvenance() (map[string]Provenance, error) {
	if s == nil {
		return nil, fmt.Errorf("treeselect: settings are nil")
	}
	out := map[string]Provenance{}
	for _, path := range s.Value.Paths() {
		_, trace, err := s.ResolveWithTrace(path)
		if err != nil {
			return nil, err
		}
		winner, ok := trace.Winner()
		if !ok {
			continue
		}
		out[path] = winner
	}
	return out, nil
}
