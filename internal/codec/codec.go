// Package codec reads and writes configuration trees as JSON, YAML or TOML.
// Unbounded values (+Inf/-Inf) travel as the strings "Infinity" and
// "-Infinity" since none of the formats carry them natively. Decoding only
// turns those strings back into numbers at the bound paths, so a label
// reading "Infinity" stays a label.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format names a serialisation format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

const (
	infinityLiteral         = "Infinity"
	negativeInfinityLiteral = "-Infinity"
)

// ErrUnknownFormat is returned for unsupported format names or extensions.
var ErrUnknownFormat = errors.New("codec: unknown format")

// ParseFormat converts a user supplied name into a Format.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, value)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// Encode writes tree to w in the requested format.
func Encode(w io.Writer, tree map[string]any, format Format) error {
	sanitized, _ := Sanitize(tree).(map[string]any)
	if sanitized == nil {
		sanitized = map[string]any{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sanitized); err != nil {
			return fmt.Errorf("codec: encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(sanitized); err != nil {
			return fmt.Errorf("codec: encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		if err := enc.Encode(dropNil(sanitized)); err != nil {
			return fmt.Errorf("codec: encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Marshal is a convenience wrapper around Encode.
func Marshal(tree map[string]any, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, tree, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a tree from r. Whole numbers decode as int, other numbers as
// float64 and "Infinity" literals at bound paths as +Inf.
func Decode(r io.Reader, format Format) (map[string]any, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: read: %w", err)
	}
	return Unmarshal(raw, format)
}

// Unmarshal decodes raw bytes in the given format.
func Unmarshal(raw []byte, format Format) (map[string]any, error) {
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("codec: decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("codec: decode yaml: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("codec: decode toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	revived, _ := Revive(out).(map[string]any)
	if revived == nil {
		revived = map[string]any{}
	}
	return revived, nil
}

// Sanitize returns a copy of value with infinite floats replaced by their
// string literals so the result can be handed to any encoder.
func Sanitize(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = Sanitize(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Sanitize(item)
		}
		return out
	case float64:
		return sanitizeFloat(typed)
	case float32:
		return sanitizeFloat(float64(typed))
	default:
		return value
	}
}

func sanitizeFloat(value float64) any {
	switch {
	case math.IsInf(value, 1):
		return infinityLiteral
	case math.IsInf(value, -1):
		return negativeInfinityLiteral
	default:
		return value
	}
}

// Revive is the inverse of Sanitize. "Infinity" literals become numbers only
// at bound paths (see IsBoundPath); elsewhere they stay text. It also narrows
// decoded numbers: json.Number, int64 and whole float64 values become int.
func Revive(value any) any {
	return revive(value, "")
}

func revive(value any, path string) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = revive(item, joinPath(path, key))
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			name := fmt.Sprint(key)
			out[name] = revive(item, joinPath(path, name))
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = revive(item, "")
		}
		return out
	case string:
		if !IsBoundPath(path) {
			return typed
		}
		switch typed {
		case infinityLiteral, "+Infinity":
			return math.Inf(1)
		case negativeInfinityLiteral:
			return math.Inf(-1)
		}
		return typed
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return int(i)
		}
		if f, err := typed.Float64(); err == nil {
			return narrowFloat(f)
		}
		return typed.String()
	case int64:
		return int(typed)
	case float64:
		return narrowFloat(typed)
	default:
		return value
	}
}

// boundPatterns are the dotted paths whose values may be unbounded. "*"
// matches any single segment.
var boundPatterns = [][]string{
	{"pagination", "pageSize"},
	{"*", "options", "scrollThreshold"},
}

// IsBoundPath reports whether path may hold an unbounded number.
func IsBoundPath(path string) bool {
	if path == "" {
		return false
	}
	segments := strings.Split(path, ".")
	for _, pattern := range boundPatterns {
		if matchSegments(pattern, segments) {
			return true
		}
	}
	return false
}

func matchSegments(pattern, segments []string) bool {
	if len(pattern) != len(segments) {
		return false
	}
	for i, segment := range pattern {
		if segment != "*" && segment != segments[i] {
			return false
		}
	}
	return true
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func narrowFloat(value float64) any {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return value
	}
	if value == math.Trunc(value) && math.Abs(value) < 1<<53 {
		return int(value)
	}
	return value
}

func dropNil(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for key, value := range tree {
		switch value := value.(type) {
		case nil:
			continue
		case map[string]any:
			out[key] = dropNil(value)
		default:
			out[key] = value
		}
	}
	return out
}
