package overrides

import (
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-treeselect"
	"github.com/goliatone/go-treeselect/internal/codec"
)

// ParseValue converts a textual value into the type a tree leaf would hold:
// bool, int, float64, +/-Infinity, nil for "null", otherwise the string
// itself.
func ParseValue(raw string) any {
	value := strings.TrimSpace(raw)
	switch value {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	case "Infinity", "+Infinity":
		return treeselect.Infinity
	case "-Infinity":
		return -treeselect.Infinity
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return raw
}

// ParseValueAt is ParseValue for a known path: "Infinity" only becomes a
// number at paths that may hold unbounded values.
func ParseValueAt(path, raw string) any {
	value := ParseValue(raw)
	if f, ok := value.(float64); ok && math.IsInf(f, 0) && !codec.IsBoundPath(path) {
		return strings.TrimSpace(raw)
	}
	return value
}

// ResolveKey maps an environment style name such as
// "ROOT__OPTIONS__SHOW_FILTER" onto a dotted path, matching each "__"
// separated segment against the keys of reference.
func ResolveKey(name string, reference map[string]any) string {
	return strings.Join(resolveSegments(strings.Split(name, "__"), reference), ".")
}

// resolveSegments maps raw key segments onto the keys of reference. Unknown
// segments are converted to lowerCamelCase and the walk stops descending.
func resolveSegments(segments []string, reference map[string]any) []string {
	out := make([]string, 0, len(segments))
	node := reference
	for _, segment := range segments {
		key, ok := matchKey(node, segment)
		if !ok {
			out = append(out, lowerCamel(segment))
			node = nil
			continue
		}
		out = append(out, key)
		node, _ = node[key].(map[string]any)
	}
	return out
}

func matchKey(node map[string]any, segment string) (string, bool) {
	if node == nil {
		return "", false
	}
	want := foldKey(segment)
	for key := range node {
		if foldKey(key) == want {
			return key, true
		}
	}
	return "", false
}

func foldKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", ""))
}

func lowerCamel(segment string) string {
	parts := strings.Split(strings.ToLower(segment), "_")
	var b strings.Builder
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			b.WriteString(strings.ToUpper(part[:1]) + part[1:])
			continue
		}
		b.WriteString(part)
	}
	return b.String()
}
