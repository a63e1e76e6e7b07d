package overrides

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/goliatone/go-treeselect"
	"github.com/goliatone/go-treeselect/internal/codec"
)

// DefaultEnvPrefix is the environment prefix used by the CLI.
const DefaultEnvPrefix = "TREESELECT_SET_"

// ErrInvalidAssignment is returned for assignments without "=" or with an
// invalid path.
var ErrInvalidAssignment = errors.New("overrides: invalid assignment")

// FromFile reads one override tree. The parser is picked from the file
// extension; JSON goes through the YAML parser.
func FromFile(path string) (treeselect.Tree, error) {
	format, err := codec.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("overrides: %w", err)
	}

	var parser koanf.Parser = yaml.Parser()
	if format == codec.FormatTOML {
		parser = toml.Parser()
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("overrides: load %s: %w", path, err)
	}
	return fromRaw(k.Raw()), nil
}

// FromEnv builds a tree from environment variables starting with prefix. It
// returns nil when no variable matches.
func FromEnv(prefix string) (treeselect.Tree, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	reference := map[string]any(treeselect.Defaults())

	k := koanf.New(".")
	provider := env.ProviderWithValue(prefix, ".", func(key, value string) (string, any) {
		name := strings.TrimPrefix(key, prefix)
		if name == "" {
			return "", nil
		}
		path := ResolveKey(name, reference)
		return path, ParseValueAt(path, value)
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, fmt.Errorf("overrides: load env %s*: %w", prefix, err)
	}
	raw := k.Raw()
	if len(raw) == 0 {
		return nil, nil
	}
	return fromRaw(raw), nil
}

// FromAssignments builds a tree from "path=value" pairs. Later assignments to
// the same path win.
func FromAssignments(assignments []string) (treeselect.Tree, error) {
	flat := make(map[string]any, len(assignments))
	for _, assignment := range assignments {
		path, value, ok := strings.Cut(assignment, "=")
		path = strings.TrimSpace(path)
		if !ok {
			return nil, fmt.Errorf("%w: %q has no '='", ErrInvalidAssignment, assignment)
		}
		if _, err := treeselect.SplitPath(path); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidAssignment, err)
		}
		flat[path] = ParseValueAt(path, value)
	}
	if len(flat) == 0 {
		return nil, nil
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(flat, "."), nil); err != nil {
		return nil, fmt.Errorf("overrides: load assignments: %w", err)
	}
	return fromRaw(k.Raw()), nil
}

// Loader gathers override sources in precedence order: files, then the
// environment, then assignments.
type Loader struct {
	Files       []string
	EnvPrefix   string
	Assignments []string
}

// Load returns the non-empty override trees, weakest first.
func (l Loader) Load() ([]treeselect.Tree, error) {
	var trees []treeselect.Tree
	for _, path := range l.Files {
		tree, err := FromFile(path)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	if l.EnvPrefix != "" {
		tree, err := FromEnv(l.EnvPrefix)
		if err != nil {
			return nil, err
		}
		if tree != nil {
			trees = append(trees, tree)
		}
	}
	tree, err := FromAssignments(l.Assignments)
	if err != nil {
		return nil, err
	}
	if tree != nil {
		trees = append(trees, tree)
	}
	return trees, nil
}

// Resolve loads the sources and resolves them over the defaults.
func (l Loader) Resolve(opts ...treeselect.Option) (*treeselect.Settings, error) {
	trees, err := l.Load()
	if err != nil {
		return nil, err
	}
	return treeselect.ResolveWith(opts, trees...)
}

// Paths lists the leaf paths every source touches, sorted and deduplicated.
func Paths(trees []treeselect.Tree) []string {
	seen := map[string]struct{}{}
	for _, tree := range trees {
		for _, path := range tree.Paths() {
			seen[path] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for path := range seen {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func fromRaw(raw map[string]any) treeselect.Tree {
	revived, _ := codec.Revive(raw).(map[string]any)
	if revived == nil {
		revived = map[string]any{}
	}
	return treeselect.Tree(revived)
}
