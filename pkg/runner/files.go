package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// ErrOutsideRoot is returned for patterns that climb above the filesystem
// root once joined with the base path.
var ErrOutsideRoot = errors.New("runner: pattern escapes the filesystem root")

// ResolveFiles expands cfg.Files inside fsys. dir is the directory of the
// descriptor relative to the root of fsys; BasePath and every pattern are
// resolved against it. Results keep declaration order, drop duplicates and
// honour Exclude. A pattern without wildcards must exist.
func ResolveFiles(fsys fs.FS, dir string, cfg Config) ([]string, error) {
	base := path.Join(dir, cfg.BasePath)

	excludes := make([]string, 0, len(cfg.Exclude))
	for _, pattern := range cfg.Exclude {
		full, err := rooted(base, pattern)
		if err != nil {
			return nil, err
		}
		excludes = append(excludes, full)
	}

	seen := map[string]struct{}{}
	var out []string
	for _, file := range cfg.Files {
		full, err := rooted(base, file.Pattern)
		if err != nil {
			return nil, err
		}
		matches, err := expand(fsys, full)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			if _, ok := seen[match]; ok || excluded(excludes, match) {
				continue
			}
			seen[match] = struct{}{}
			out = append(out, match)
		}
	}
	return out, nil
}

func rooted(base, pattern string) (string, error) {
	full := path.Join(base, pattern)
	if full == ".." || strings.HasPrefix(full, "../") || path.IsAbs(full) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, pattern)
	}
	return full, nil
}

func excluded(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if MatchPattern(pattern, name) {
			return true
		}
	}
	return false
}

// expand lists the regular files matching pattern in lexical order.
func expand(fsys fs.FS, pattern string) ([]string, error) {
	if !hasMeta(pattern) {
		info, err := fs.Stat(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("runner: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("runner: %s is a directory", pattern)
		}
		return []string{pattern}, nil
	}

	root := staticPrefix(pattern)
	var out []string
	err := fs.WalkDir(fsys, root, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && name == root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if MatchPattern(pattern, name) {
			out = append(out, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("runner: walk %s: %w", root, err)
	}
	return out, nil
}

// staticPrefix returns the leading directories of pattern that carry no
// wildcard, or ".".
func staticPrefix(pattern string) string {
	segments := strings.Split(pattern, "/")
	var prefix []string
	for _, segment := range segments[:len(segments)-1] {
		if hasMeta(segment) {
			break
		}
		prefix = append(prefix, segment)
	}
	if len(prefix) == 0 {
		return "."
	}
	return strings.Join(prefix, "/")
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// MatchPattern reports whether name matches a glob pattern. "*" and "?" stay
// inside one path segment as with path.Match, "**" spans zero or more
// segments. Malformed patterns never match.
func MatchPattern(pattern, name string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(name, "/"))
}

func matchSegments(pattern, name []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			for i := 0; i <= len(name); i++ {
				if matchSegments(rest, name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		ok, err := path.Match(pattern[0], name[0])
		if err != nil || !ok {
			return false
		}
		pattern, name = pattern[1:], name[1:]
	}
	return len(name) == 0
}
