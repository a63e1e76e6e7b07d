package treeselect

import (
	"fmt"
	"testing"
)

func BenchmarkResolveWithTrace(b *testing.B) {
	layers := make([]Layer, 0, 10)
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("layer_%d", i)
		layers = append(layers, NewLayer(
			NewScope(name, 100-i),
			Overlay(Defaults(), Tree{
				"selectionStrategy": map[string]any{"limit": 100 - i},
				"Root":              map[string]any{"strings": map[string]any{"btnApply": name}},
			}),
		))
	}
	stack, err := NewStack(layers...)
	if err != nil {
		b.Fatalf("stack: %v", err)
	}
	settings, err := stack.Merge()
	if err != nil {
		b.Fatalf("merge: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := settings.ResolveWithTrace("Root.strings.btnApply"); err != nil {
			b.Fatalf("resolve: %v", err)
		}
	}
}

func BenchmarkOverlayDefaults(b *testing.B) {
	override := Tree{"Root": map[string]any{"options": map[string]any{"showFilter": true}}}
	base := Defaults()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Overlay(base, override)
	}
}
