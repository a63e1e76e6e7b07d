package runner

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/goliatone/go-treeselect/internal/codec"
	"github.com/goliatone/go-treeselect/pkg/overrides"
)

// DefaultEnvPrefix is the environment prefix used by the CLI.
const DefaultEnvPrefix = "KARMA_"

// Load reads a descriptor over LegacyCI: the file at path (json, yaml or
// toml, skipped when empty), then environment variables starting with
// envPrefix (skipped when empty). Nested keys use "__" in variable names,
// lists are comma separated and durations are milliseconds or Go duration
// strings.
func Load(path, envPrefix string) (Config, error) {
	return LoadOver(LegacyCI(), path, envPrefix)
}

// LoadOver is Load with an explicit base descriptor.
func LoadOver(base Config, path, envPrefix string) (Config, error) {
	reference := base.Descriptor()

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(reference, ""), nil); err != nil {
		return Config{}, fmt.Errorf("runner: load base: %w", err)
	}

	if path != "" {
		format, err := codec.FormatFromPath(path)
		if err != nil {
			return Config{}, err
		}
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("runner: %w", err)
		}
		var parser koanf.Parser = yaml.Parser()
		if format == codec.FormatTOML {
			parser = toml.Parser()
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return Config{}, fmt.Errorf("runner: load %s: %w", path, err)
		}
	}

	if envPrefix != "" {
		provider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
			name := strings.TrimPrefix(key, envPrefix)
			if name == "" {
				return "", nil
			}
			return overrides.ResolveKey(name, reference), value
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, fmt.Errorf("runner: load env %s*: %w", envPrefix, err)
		}
	}

	var cfg Config
	conf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				millisecondsHookFunc(),
				logLevelHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				filePatternHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, conf); err != nil {
		return Config{}, fmt.Errorf("runner: decode: %w", err)
	}
	return cfg, nil
}

// millisecondsHookFunc decodes numbers as milliseconds and strings as either
// milliseconds or Go durations.
func millisecondsHookFunc() mapstructure.DecodeHookFunc {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != durationType {
			return data, nil
		}
		switch v := data.(type) {
		case int:
			return time.Duration(v) * time.Millisecond, nil
		case int64:
			return time.Duration(v) * time.Millisecond, nil
		case float64:
			return time.Duration(v * float64(time.Millisecond)), nil
		case string:
			trimmed := strings.TrimSpace(v)
			if ms, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
				return time.Duration(ms) * time.Millisecond, nil
			}
			d, err := time.ParseDuration(trimmed)
			if err != nil {
				return nil, fmt.Errorf("invalid duration %q", v)
			}
			return d, nil
		}
		return data, nil
	}
}

func logLevelHookFunc() mapstructure.DecodeHookFunc {
	levelType := reflect.TypeOf(LogLevel(""))
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != levelType || f.Kind() != reflect.String {
			return data, nil
		}
		level, _ := ParseLogLevel(reflect.ValueOf(data).String())
		return level, nil
	}
}

// filePatternHookFunc accepts bare strings for file entries.
func filePatternHookFunc() mapstructure.DecodeHookFunc {
	patternType := reflect.TypeOf(FilePattern{})
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != patternType || f.Kind() != reflect.String {
			return data, nil
		}
		return FilePattern{Pattern: reflect.ValueOf(data).String()}, nil
	}
}
