package treeselect_test

import (
	"testing"

	treeselect "github.com/goliatone/go-treeselect"
	"github.com/goliatone/go-treeselect/schema/openapi"
)

func TestOpenAPIGeneratorIntegration(t *testing.T) {
	settings, err := treeselect.Resolve(treeselect.Tree{
		"search": map[string]any{"serverSide": true},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	wrapper := treeselect.New(settings.Tree(), openapi.Option(), treeselect.WithScopeSchema(true))

	doc, err := wrapper.Schema()
	if err != nil {
		t.Fatalf("Schema returned error: %v", err)
	}
	if doc.Format != treeselect.SchemaFormatOpenAPI {
		t.Fatalf("expected format %q, got %q", treeselect.SchemaFormatOpenAPI, doc.Format)
	}
	document, ok := doc.Document.(map[string]any)
	if !ok {
		t.Fatalf("expected document map, got %T", doc.Document)
	}
	paths := document["paths"].(map[string]any)
	operation := paths["/treeselect/settings"].(map[string]any)["put"].(map[string]any)
	content := operation["requestBody"].(map[string]any)["content"].(map[string]any)
	schema := content["application/json"].(map[string]any)["schema"].(map[string]any)
	properties := schema["properties"].(map[string]any)
	for _, key := range []string{"logLevel", "pagination", "search", "selectionStrategy", "Root", "Group", "Item"} {
		if _, ok := properties[key]; !ok {
			t.Fatalf("expected properties to include %s", key)
		}
	}
	if len(doc.Scopes) != 0 {
		t.Fatalf("a wrapper built with New has no layers, got scopes %+v", doc.Scopes)
	}
}

func TestSchemaScopesFollowStack(t *testing.T) {
	settings, err := treeselect.DefaultStack(
		treeselect.Tree{"pagination": map[string]any{"pageSize": 50}},
		nil,
		treeselect.Tree{"search": map[string]any{"serverSide": true}},
		openapi.Option(),
		treeselect.WithScopeSchema(true),
	)
	if err != nil {
		t.Fatalf("default stack: %v", err)
	}
	doc, err := settings.Schema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var names []string
	for _, scope := range doc.Scopes {
		names = append(names, scope.Name)
	}
	want := []string{"user", "dashboard", treeselect.ScopePublic, treeselect.ScopePrivate}
	if len(names) != len(want) {
		t.Fatalf("expected scopes %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected scopes %v, got %v", want, names)
		}
	}
}

func TestDescriptorSchemaDefault(t *testing.T) {
	doc, err := treeselect.New(treeselect.Defaults()).Schema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if doc.Format != treeselect.SchemaFormatDescriptors {
		t.Fatalf("expected descriptor format, got %q", doc.Format)
	}
	descriptors := doc.Document.([]treeselect.FieldDescriptor)
	index := map[string]string{}
	for i, d := range descriptors {
		if i > 0 && descriptors[i-1].Path >= d.Path {
			t.Fatalf("descriptors not sorted at %d: %q >= %q", i, descriptors[i-1].Path, d.Path)
		}
		index[d.Path] = d.Type
	}
	checks := map[string]string{
		treeselect.PathPaginationPageSize:     "float64",
		treeselect.PathSearchServerSide:       "bool",
		treeselect.PathSelectionStrategyLimit: "int",
		treeselect.PathSearchMatcher:          "nil",
		"Root.view.styles":                    "[]any",
		"Root.view.templates":                 "map[string]any",
	}
	for path, typ := range checks {
		if index[path] != typ {
			t.Fatalf("expected %s to be %s, got %q", path, typ, index[path])
		}
	}
}
