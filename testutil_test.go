package treeselect

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-treeselect/internal/codec"
)

func loadFixture[T any](t *testing.T, name string) T {
	t.Helper()
	var out T
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %q: %v", name, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("failed to unmarshal fixture %q: %v", name, err)
	}
	return out
}

// loadTreeFixture decodes the "tree" member of a fixture through the codec so
// "Infinity" literals and whole numbers match the in-memory defaults.
func loadTreeFixture(t *testing.T, name string) Tree {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %q: %v", name, err)
	}
	decoded, err := codec.Unmarshal(raw, codec.FormatJSON)
	if err != nil {
		t.Fatalf("failed to decode fixture %q: %v", name, err)
	}
	tree, ok := decoded["tree"].(map[string]any)
	if !ok {
		t.Fatalf("fixture %q has no tree member", name)
	}
	return Tree(tree)
}
