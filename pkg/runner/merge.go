package runner

import (
	"fmt"

	"dario.cat/mergo"
)

// Merge overlays overrides onto base in order. Non-zero fields win; lists
// replace, preprocessors merge per pattern and reporter blocks merge field by
// field. Zero values (false, 0, "") never override, use Load to switch
// flags off. base and overrides are not modified.
func Merge(base Config, overrides ...Config) (Config, error) {
	out := base.Clone()
	for i, override := range overrides {
		if err := mergo.Merge(&out, override.Clone(), mergo.WithOverride); err != nil {
			return Config{}, fmt.Errorf("runner: merge override %d: %w", i, err)
		}
	}
	return out.Clone(), nil
}
