package treeselect

import (
	"fmt"
	"sort"
)

// FieldDescriptor describes a leaf path and the inferred Go type.
type FieldDescriptor struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// DefaultSchemaGenerator returns the built-in descriptor generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(value any) (SchemaDocument, error) {
	descriptors := deriveFieldDescriptors(value, "")
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}, nil
}

// Schema describes the resolved tree using the configured generator. With
// WithScopeSchema(true) the contributing scopes are attached, strongest
// first.
func (s *Settings) Schema() (SchemaDocument, error) {
	if s == nil {
		return SchemaDocument{}, fmt.Errorf("treeselect: settings are nil")
	}
	doc, err := s.schemaGenerator().Generate(map[string]any(s.Value))
	if err != nil {
		return SchemaDocument{}, fmt.Errorf("treeselect: generate schema: %w", err)
	}
	if s.cfg.scopeSchema && len(doc.Scopes) == 0 {
		doc.Scopes = s.SchemaScopes()
	}
	return doc, nil
}

// SchemaScopes lists the layers behind the resolved tree, strongest first.
func (s *Settings) SchemaScopes() []SchemaScope {
	if s == nil || len(s.layers) == 0 {
		return nil
	}
	scopes := make([]SchemaScope, 0, len(s.layers))
	for _, layer := range s.layers {
		scopes = append(scopes, SchemaScope{
			Name:       layer.Scope.Name,
			Label:      layer.Scope.Label,
			Priority:   layer.Scope.Priority,
			Metadata:   copyMetadata(layer.Scope.Metadata),
			SnapshotID: layer.SnapshotID,
		})
	}
	return scopes
}

func deriveFieldDescriptors(value any, prefix string) []FieldDescriptor {
	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			if prefix == "" {
				return nil
			}
			return []FieldDescriptor{{Path: prefix, Type: "map[string]any"}}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			fields = append(fields, deriveFieldDescriptors(typed[key], joinPath(prefix, key))...)
		}
		return fields
	case Tree:
		return deriveFieldDescriptors(map[string]any(typed), prefix)
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return []FieldDescriptor{{Path: prefix, Type: "[]" + elementType}}
	default:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: typeName(typed)}}
	}
}

func typeName(value any) string {
	if value == nil {
		// unset function slot
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}
