package treeselect

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/goliatone/go-treeselect/layering"
)

// ErrInvalidPath is returned for empty or malformed dotted paths.
var ErrInvalidPath = errors.New("treeselect: invalid path")

// Infinity marks unbounded numeric settings such as pagination.pageSize.
var Infinity = math.Inf(1)

// Tree is a nested configuration map addressed with dotted paths
// (e.g. "Root.options.showFilter"). Values below the root are always plain
// map[string]any and []any.
type Tree map[string]any

// SplitPath validates a dotted path and returns its segments.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	segments := strings.Split(path, ".")
	for _, segment := range segments {
		if segment == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segments, nil
}

// Get returns the value stored at path.
func (t Tree) Get(path string) (any, bool) {
	segments, err := SplitPath(path)
	if err != nil {
		return nil, false
	}
	return lookup(map[string]any(t), segments)
}

// Has reports whether path exists, including slots holding nil.
func (t Tree) Has(path string) bool {
	_, ok := t.Get(path)
	return ok
}

func lookup(node map[string]any, segments []string) (any, bool) {
	current := any(node)
	for _, segment := range segments {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Set returns a copy of the tree with value stored at path. Missing
// intermediate maps are created and non-map intermediates are replaced.
func (t Tree) Set(path string, value any) (Tree, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	out := t.Clone()
	node := map[string]any(out)
	for _, segment := range segments[:len(segments)-1] {
		next, ok := node[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[segment] = next
		}
		node = next
	}
	node[segments[len(segments)-1]] = layering.Normalize(value)
	return out, nil
}

// Delete returns a copy of the tree without path. Deleting a missing path is
// not an error.
func (t Tree) Delete(path string) (Tree, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	out := t.Clone()
	node := map[string]any(out)
	for _, segment := range segments[:len(segments)-1] {
		next, ok := node[segment].(map[string]any)
		if !ok {
			return out, nil
		}
		node = next
	}
	delete(node, segments[len(segments)-1])
	return out, nil
}

// Clone returns a deep copy of the tree.
func (t Tree) Clone() Tree {
	if t == nil {
		return Tree{}
	}
	normalized, _ := layering.Normalize(map[string]any(t)).(map[string]any)
	return Tree(normalized)
}

// Paths returns every leaf path in sorted order. Empty maps and nil slots
// count as leaves.
func (t Tree) Paths() []string {
	var paths []string
	collectPaths(map[string]any(t), "", &paths)
	sort.Strings(paths)
	return paths
}

func collectPaths(node map[string]any, prefix string, out *[]string) {
	for key, value := range node {
		path := joinPath(prefix, key)
		if child, ok := asMap(value); ok && len(child) > 0 {
			collectPaths(child, path, out)
			continue
		}
		*out = append(*out, path)
	}
}

// Flatten returns a map of leaf paths to values.
func (t Tree) Flatten() map[string]any {
	out := map[string]any{}
	for _, path := range t.Paths() {
		value, _ := t.Get(path)
		out[path] = value
	}
	return out
}

// Equal reports whether both trees hold the same structure and values.
func (t Tree) Equal(other Tree) bool {
	return valuesEqual(map[string]any(t.Clone()), map[string]any(other.Clone()))
}

// Diff returns the sorted leaf paths whose values differ between the trees,
// including paths present on one side only.
func (t Tree) Diff(other Tree) []string {
	left := t.Flatten()
	right := other.Flatten()
	seen := map[string]struct{}{}
	var diff []string
	for path, value := range left {
		seen[path] = struct{}{}
		if otherValue, ok := right[path]; !ok || !valuesEqual(value, otherValue) {
			diff = append(diff, path)
		}
	}
	for path := range right {
		if _, ok := seen[path]; !ok {
			diff = append(diff, path)
		}
	}
	sort.Strings(diff)
	return diff
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch ta := a.(type) {
	case map[string]any:
		tb, ok := b.(map[string]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for key, value := range ta {
			other, ok := tb[key]
			if !ok || !valuesEqual(value, other) {
				return false
			}
		}
		return true
	case []any:
		tb, ok := b.([]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !valuesEqual(ta[i], tb[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	default:
		return 0, false
	}
}

func asMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case Tree:
		return map[string]any(typed), true
	default:
		return nil, false
	}
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}
