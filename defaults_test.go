package treeselect

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultsMatchFixture(t *testing.T) {
	want := loadTreeFixture(t, "defaults.json")
	got := Defaults()
	if !got.Equal(want) {
		t.Fatalf("defaults differ from fixture at %v", got.Diff(want))
	}
}

func TestDefaultsKeepEveryKeyOfBothLayers(t *testing.T) {
	merged := Defaults()
	for name, layer := range map[string]Tree{"private": PrivateDefaults(), "public": PublicDefaults()} {
		for _, path := range layer.Paths() {
			if !merged.Has(path) {
				t.Fatalf("%s key %q missing from merged defaults", name, path)
			}
		}
	}
}

func TestDefaultsSlotsArePresentAndEmpty(t *testing.T) {
	merged := Defaults()
	slots := []string{
		PathSearchMatcher,
		"Root.renderers", "Root.sorter",
		"Group.renderers", "Group.sorter",
		"Item.renderers", "Item.sorter",
		"Root.options.styles",
	}
	for _, path := range slots {
		value, ok := merged.Get(path)
		if !ok {
			t.Fatalf("slot %q missing", path)
		}
		if value != nil {
			t.Fatalf("slot %q expected empty, got %v", path, value)
		}
	}
}

func TestDefaultsInfinity(t *testing.T) {
	merged := Defaults()
	for _, path := range []string{PathPaginationPageSize, "Group.options.scrollThreshold"} {
		value, _ := merged.Get(path)
		f, ok := value.(float64)
		if !ok || !math.IsInf(f, 1) {
			t.Fatalf("%s expected +Inf, got %v", path, value)
		}
	}
}

func TestDefaultsConstructorsReturnFreshTrees(t *testing.T) {
	first := Defaults()
	first["logLevel"] = 5
	first["Root"].(map[string]any)["strings"].(map[string]any)["btnApply"] = "Go"

	second := Defaults()
	if second["logLevel"] != 1 {
		t.Fatalf("expected fresh logLevel, got %v", second["logLevel"])
	}
	if got, _ := second.Get("Root.strings.btnApply"); got != "Apply" {
		t.Fatalf("expected fresh strings, got %v", got)
	}
}

func TestOverlaySingleLeafChangesOnlyThatPath(t *testing.T) {
	type overrideCase struct {
		Name  string `json:"name"`
		Path  string `json:"path"`
		Value any    `json:"value"`
	}
	fx := loadFixture[struct {
		Cases []overrideCase `json:"cases"`
	}](t, "overrides.json")

	base := Defaults()
	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			override, err := Tree{}.Set(tc.Path, tc.Value)
			if err != nil {
				t.Fatalf("build override: %v", err)
			}
			got := Overlay(base, override)
			diff := got.Diff(base)
			if d := cmp.Diff([]string{tc.Path}, diff); d != "" {
				t.Fatalf("unexpected changed paths (-want +got):\n%s", d)
			}
			value, _ := got.Get(tc.Path)
			if !valuesEqual(value, tc.Value) {
				t.Fatalf("expected %v at %s, got %v", tc.Value, tc.Path, value)
			}
		})
	}
}

func TestOverlayDoesNotMutateBase(t *testing.T) {
	base := Defaults()
	saved := base.Clone()
	private := PrivateDefaults()
	savedPrivate := private.Clone()

	_ = Overlay(base, Tree{
		"Root": map[string]any{
			"view": map[string]any{
				"slots":  map[string]any{"selection": ".custom"},
				"styles": []any{"dark"},
			},
		},
		"selectionStrategy": map[string]any{"limit": 1},
	})
	_ = Overlay(private, PublicDefaults())

	if !base.Equal(saved) {
		t.Fatalf("base mutated at %v", base.Diff(saved))
	}
	if !private.Equal(savedPrivate) {
		t.Fatalf("private layer mutated at %v", private.Diff(savedPrivate))
	}
}

func TestOverlayNilOverrideKeepsDefault(t *testing.T) {
	got := Overlay(Defaults(), Tree{"selectionStrategy": map[string]any{"limit": nil}})
	if value, _ := got.Get(PathSelectionStrategyLimit); value != 500 {
		t.Fatalf("nil override should not replace default, got %v", value)
	}
}
