// Package openapi renders settings trees as OpenAPI 3 documents describing
// the overlay a consumer may submit.
package openapi

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	treeselect "github.com/goliatone/go-treeselect"
)

const componentPrefix = "#/components/schemas/"

type generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI schema generator.
func NewGenerator(opts ...GeneratorOption) treeselect.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{config: cfg}
}

// Option wires the OpenAPI generator into a Settings wrapper.
func Option(opts ...GeneratorOption) treeselect.Option {
	return treeselect.WithSchemaGenerator(NewGenerator(opts...))
}

func (g generator) Generate(value any) (treeselect.SchemaDocument, error) {
	schema, err := buildSchema(reflect.ValueOf(value))
	if err != nil {
		return treeselect.SchemaDocument{}, err
	}
	components := map[string]any{}
	if g.config.roleComponents {
		extractRoleComponents(schema, components)
	}
	body := schema
	if name := g.config.rootComponent; name != "" {
		components[name] = schema
		body = map[string]any{"$ref": componentPrefix + name}
	}

	document := map[string]any{
		"openapi": g.config.openAPIVersion,
		"info":    g.buildInfo(),
		"paths":   g.buildPaths(body),
	}
	if len(components) > 0 {
		document["components"] = map[string]any{"schemas": components}
	}
	if err := validateDocument(document); err != nil {
		return treeselect.SchemaDocument{}, err
	}
	return treeselect.SchemaDocument{
		Format:   treeselect.SchemaFormatOpenAPI,
		Document: document,
	}, nil
}

func (g generator) buildInfo() map[string]any {
	info := map[string]any{
		"title":   g.config.info.Title,
		"version": g.config.info.Version,
	}
	if g.config.info.Description != "" {
		info["description"] = g.config.info.Description
	}
	return info
}

func (g generator) buildPaths(body map[string]any) map[string]any {
	method := g.config.operation.Method
	if method == "" {
		method = "put"
	}
	responses := make(map[string]any, len(g.config.responses))
	for status, resp := range g.config.responses {
		responses[status] = map[string]any{"description": resp.Description}
	}
	operation := map[string]any{
		"operationId": g.config.operation.OperationID,
		"requestBody": map[string]any{
			"required": true,
			"content": map[string]any{
				g.config.contentType: map[string]any{"schema": body},
			},
		},
		"responses": responses,
	}
	if summary := strings.TrimSpace(g.config.operation.Summary); summary != "" {
		operation["summary"] = summary
	}
	return map[string]any{
		g.config.operation.Path: map[string]any{method: operation},
	}
}

// extractRoleComponents moves role subtrees of an object schema into
// components, leaving references behind.
func extractRoleComponents(schema map[string]any, components map[string]any) {
	properties, ok := schema["properties"].(map[string]any)
	if !ok {
		return
	}
	for _, role := range treeselect.Roles() {
		name := string(role)
		child, ok := properties[name].(map[string]any)
		if !ok || child["type"] != "object" {
			continue
		}
		component := "TreeSelect" + name
		components[component] = child
		properties[name] = map[string]any{"$ref": componentPrefix + component}
	}
}

func buildSchema(rv reflect.Value) (map[string]any, error) {
	if !rv.IsValid() {
		return slotSchema(), nil
	}

	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return slotSchema(), nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return slotSchema(), nil
		}
		return buildSchema(rv.Elem())
	case reflect.Bool:
		return map[string]any{"type": "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}, nil
	case reflect.Float32, reflect.Float64:
		if math.IsInf(rv.Float(), 0) {
			return boundSchema(), nil
		}
		return map[string]any{"type": "number"}, nil
	case reflect.String:
		return map[string]any{"type": "string"}, nil
	case reflect.Struct:
		if rv.Type() == reflect.TypeOf(time.Time{}) {
			return map[string]any{"type": "string", "format": "date-time"}, nil
		}
		return schemaForStruct(rv)
	case reflect.Map:
		return schemaForMap(rv)
	case reflect.Slice, reflect.Array:
		return schemaForSlice(rv)
	default:
		return nil, fmt.Errorf("openapi: unsupported kind %s", rv.Kind())
	}
}

// slotSchema describes an unset function slot: null or an expression.
func slotSchema() map[string]any {
	return map[string]any{
		"type":        "string",
		"nullable":    true,
		"description": "expression slot",
	}
}

// boundSchema describes an unbounded numeric setting.
func boundSchema() map[string]any {
	return map[string]any{
		"oneOf": []any{
			map[string]any{"type": "number"},
			map[string]any{"type": "string", "enum": []any{"Infinity"}},
		},
		"default": "Infinity",
	}
}

func schemaForMap(rv reflect.Value) (map[string]any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("openapi: map key type %s unsupported", rv.Type().Key())
	}
	keys := rv.MapKeys()
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, key.String())
	}
	sort.Strings(names)

	properties := make(map[string]any, len(names))
	for _, name := range names {
		child, err := buildSchema(rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		properties[name] = child
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}, nil
}

func schemaForStruct(rv reflect.Value) (map[string]any, error) {
	rt := rv.Type()
	properties := map[string]any{}
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			tagName := strings.Split(tag, ",")[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		child, err := buildSchema(rv.Field(i))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		properties[name] = child
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}, nil
}

func schemaForSlice(rv reflect.Value) (map[string]any, error) {
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return map[string]any{"type": "string", "format": "byte"}, nil
	}
	items := map[string]any{}
	if rv.Len() > 0 {
		first, err := buildSchema(rv.Index(0))
		if err != nil {
			return nil, err
		}
		items = first
	}
	return map[string]any{
		"type":  "array",
		"items": items,
	}, nil
}

var errInvalidDocument = errors.New("openapi: invalid document")

func validateDocument(document map[string]any) error {
	if version, _ := document["openapi"].(string); version == "" {
		return fmt.Errorf("%w: missing openapi version", errInvalidDocument)
	}
	info, _ := document["info"].(map[string]any)
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("%w: missing info.title", errInvalidDocument)
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("%w: no paths", errInvalidDocument)
	}
	for path := range paths {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%w: path %q must start with /", errInvalidDocument, path)
		}
	}
	return nil
}
