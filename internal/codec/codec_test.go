package codec_test

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-treeselect"
	"github.com/goliatone/go-treeselect/internal/codec"
)

func TestDefaultsRoundTrip(t *testing.T) {
	cases := []struct {
		format codec.Format
		want   treeselect.Tree
	}{
		{format: codec.FormatJSON, want: treeselect.Defaults()},
		{format: codec.FormatYAML, want: treeselect.Defaults()},
		// TOML has no null, nil slots are dropped
		{format: codec.FormatTOML, want: withoutNilSlots(t, treeselect.Defaults())},
	}

	for _, tc := range cases {
		t.Run(string(tc.format), func(t *testing.T) {
			raw, err := codec.Marshal(treeselect.Defaults(), tc.format)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			got, err := codec.Unmarshal(raw, tc.format)
			if err != nil {
				t.Fatalf("unmarshal: %v\n%s", err, raw)
			}
			if diff := cmp.Diff(map[string]any(tc.want), got, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONRoundTripEqualsDefaults(t *testing.T) {
	raw, err := codec.Marshal(treeselect.Defaults(), codec.FormatJSON)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := codec.Unmarshal(raw, codec.FormatJSON)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !treeselect.Tree(got).Equal(treeselect.Defaults()) {
		t.Fatalf("decoded defaults differ at %v", treeselect.Tree(got).Diff(treeselect.Defaults()))
	}
	if !strings.Contains(string(raw), `"pageSize": "Infinity"`) {
		t.Fatalf("expected Infinity literal in %s", raw)
	}
}

func TestInfinityLiteralRevivesOnlyAtBoundPaths(t *testing.T) {
	raw := []byte(`{
		"pagination": {"pageSize": "Infinity"},
		"Group": {"options": {"scrollThreshold": "-Infinity"}},
		"Root": {"strings": {"allItems": "Infinity"}},
		"tags": ["Infinity"]
	}`)
	got, err := codec.Unmarshal(raw, codec.FormatJSON)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"pagination": map[string]any{"pageSize": math.Inf(1)},
		"Group":      map[string]any{"options": map[string]any{"scrollThreshold": math.Inf(-1)}},
		"Root":       map[string]any{"strings": map[string]any{"allItems": "Infinity"}},
		"tags":       []any{"Infinity"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("revive mismatch (-want +got):\n%s", diff)
	}
}

func TestLabelReadingInfinitySurvivesRoundTrip(t *testing.T) {
	tree, err := treeselect.Defaults().Set("Root.strings.allItems", "Infinity")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	for _, format := range []codec.Format{codec.FormatJSON, codec.FormatYAML, codec.FormatTOML} {
		raw, err := codec.Marshal(tree, format)
		if err != nil {
			t.Fatalf("%s marshal: %v", format, err)
		}
		got, err := codec.Unmarshal(raw, format)
		if err != nil {
			t.Fatalf("%s unmarshal: %v", format, err)
		}
		label, _ := treeselect.Tree(got).Get("Root.strings.allItems")
		if label != "Infinity" {
			t.Fatalf("%s: expected label kept as text, got %v (%T)", format, label, label)
		}
		pageSize, _ := treeselect.Tree(got).Get("pagination.pageSize")
		if f, ok := pageSize.(float64); !ok || !math.IsInf(f, 1) {
			t.Fatalf("%s: expected unbounded page size, got %v", format, pageSize)
		}
	}
}

func TestSanitize(t *testing.T) {
	input := map[string]any{
		"up":    math.Inf(1),
		"down":  float32(math.Inf(-1)),
		"plain": 2.5,
		"list":  []any{math.Inf(1), "x"},
		"child": map[string]any{"n": 3},
	}
	want := map[string]any{
		"up":    "Infinity",
		"down":  "-Infinity",
		"plain": 2.5,
		"list":  []any{"Infinity", "x"},
		"child": map[string]any{"n": 3},
	}
	if diff := cmp.Diff(want, codec.Sanitize(input)); diff != "" {
		t.Fatalf("sanitize mismatch (-want +got):\n%s", diff)
	}
	if f, ok := input["up"].(float64); !ok || !math.IsInf(f, 1) {
		t.Fatalf("sanitize mutated its input: %v", input["up"])
	}
}

func TestReviveNarrowsNumbers(t *testing.T) {
	input := map[string]any{
		"number":   json.Number("3"),
		"fraction": json.Number("2.5"),
		"big":      int64(7),
		"whole":    4.0,
		"half":     4.5,
		"nested":   map[any]any{"limit": int64(500)},
	}
	want := map[string]any{
		"number":   3,
		"fraction": 2.5,
		"big":      7,
		"whole":    4,
		"half":     4.5,
		"nested":   map[string]any{"limit": 500},
	}
	if diff := cmp.Diff(want, codec.Revive(input)); diff != "" {
		t.Fatalf("revive mismatch (-want +got):\n%s", diff)
	}
}

func TestTOMLDropsNilSlots(t *testing.T) {
	tree := map[string]any{
		"matcher": nil,
		"Root":    map[string]any{"sorter": nil, "logLevel": 2},
	}
	raw, err := codec.Marshal(tree, codec.FormatTOML)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := codec.Unmarshal(raw, codec.FormatTOML)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{"Root": map[string]any{"logLevel": 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("toml mismatch (-want +got):\n%s", diff)
	}
	if _, ok := tree["matcher"]; !ok {
		t.Fatalf("encoding must not modify the input tree")
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]codec.Format{
		"":      codec.FormatJSON,
		"json":  codec.FormatJSON,
		" YAML": codec.FormatYAML,
		"yml":   codec.FormatYAML,
		"Toml":  codec.FormatTOML,
	}
	for input, want := range cases {
		got, err := codec.ParseFormat(input)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseFormat(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := codec.ParseFormat("xml"); !errors.Is(err, codec.ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]codec.Format{
		"overrides/user.json":      codec.FormatJSON,
		"dashboard.yaml":           codec.FormatYAML,
		"/etc/treeselect/ci.yml":   codec.FormatYAML,
		"component.TOML":           codec.FormatTOML,
		"nested.dir/settings.json": codec.FormatJSON,
	}
	for path, want := range cases {
		got, err := codec.FormatFromPath(path)
		if err != nil {
			t.Fatalf("FormatFromPath(%q): %v", path, err)
		}
		if got != want {
			t.Fatalf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
	for _, path := range []string{"settings", "settings.ini"} {
		if _, err := codec.FormatFromPath(path); !errors.Is(err, codec.ErrUnknownFormat) {
			t.Fatalf("FormatFromPath(%q): expected ErrUnknownFormat, got %v", path, err)
		}
	}
}

func TestUnmarshalEdges(t *testing.T) {
	got, err := codec.Unmarshal([]byte("  \n"), codec.FormatYAML)
	if err != nil {
		t.Fatalf("empty input: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty tree, got %v", got)
	}
	if _, err := codec.Unmarshal([]byte("{}"), codec.Format("ini")); !errors.Is(err, codec.ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	if _, err := codec.Unmarshal([]byte("{"), codec.FormatJSON); err == nil {
		t.Fatalf("expected malformed json to fail")
	}
}

func TestIsBoundPath(t *testing.T) {
	cases := map[string]bool{
		"pagination.pageSize":            true,
		"Root.options.scrollThreshold":   true,
		"Group.options.scrollThreshold":  true,
		"pagination":                     false,
		"Root.strings.allItems":          false,
		"Root.options.scrollThreshold.x": false,
		"":                               false,
	}
	for path, want := range cases {
		if got := codec.IsBoundPath(path); got != want {
			t.Fatalf("IsBoundPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func withoutNilSlots(t *testing.T, tree treeselect.Tree) treeselect.Tree {
	t.Helper()
	out := tree.Clone()
	for _, path := range tree.Paths() {
		if value, _ := tree.Get(path); value != nil {
			continue
		}
		next, err := out.Delete(path)
		if err != nil {
			t.Fatalf("delete %s: %v", path, err)
		}
		out = next
	}
	return out
}
