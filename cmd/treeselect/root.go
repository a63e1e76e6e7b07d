package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-treeselect"
	"github.com/goliatone/go-treeselect/internal/codec"
	"github.com/goliatone/go-treeselect/internal/logging"
	"github.com/goliatone/go-treeselect/pkg/activity"
	"github.com/goliatone/go-treeselect/pkg/overrides"
	"github.com/goliatone/go-treeselect/pkg/state"
)

const (
	processEnvPrefix = "TREESELECT_"
	activityChannel  = "cli"
	programCacheSize = 64
)

// processEnv holds the process level settings read from TREESELECT_*
// variables. Flags given on the command line take precedence.
type processEnv struct {
	Format    string `env:"FORMAT"`
	LogLevel  int    `env:"LOG_LEVEL"`
	DB        string `env:"DB"`
	Domain    string `env:"DOMAIN"`
	Engine    string `env:"ENGINE"`
	Dashboard string `env:"DASHBOARD"`
	Component string `env:"COMPONENT"`
	User      string `env:"USER"`
}

func parseProcessEnv() (processEnv, error) {
	var cfg processEnv
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: processEnvPrefix}); err != nil {
		return processEnv{}, fmt.Errorf("error reading environment: %w", err)
	}
	return cfg, nil
}

type rootOptions struct {
	verbosity   int
	format      string
	files       []string
	assignments []string
	envPrefix   string
	db          string
	domain      string
	engine      string
	dashboard   string
	component   string
	user        string
}

// applyEnv fills every flag the user did not set from the environment.
func (o *rootOptions) applyEnv(cmd *cobra.Command, cfg processEnv) {
	flags := cmd.Flags()
	pick := func(name string, target *string, value string) {
		if value != "" && !flags.Changed(name) {
			*target = value
		}
	}
	pick("format", &o.format, cfg.Format)
	pick("db", &o.db, cfg.DB)
	pick("domain", &o.domain, cfg.Domain)
	pick("engine", &o.engine, cfg.Engine)
	pick("dashboard", &o.dashboard, cfg.Dashboard)
	pick("component", &o.component, cfg.Component)
	pick("user", &o.user, cfg.User)
	if cfg.LogLevel > 0 && !flags.Changed("verbose") {
		o.verbosity = cfg.LogLevel
	}
}

// NewRootCmd creates the treeselect command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "treeselect",
		Short: "Inspect and resolve TreeSelect widget configuration",
		Long: `treeselect resolves the TreeSelect widget configuration from the built-in
private and public defaults, stored dashboard/component/user overrides,
override files, TREESELECT_SET_* variables and --set assignments.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parseProcessEnv()
			if err != nil {
				return err
			}
			opts.applyEnv(cmd, cfg)
			logging.SetupLogger(opts.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
			if _, err := codec.ParseFormat(opts.format); err != nil {
				return err
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	flags.StringVarP(&opts.format, "format", "f", string(codec.FormatJSON), "Output format: json, yaml or toml")
	flags.StringArrayVarP(&opts.files, "override", "o", nil, "Override file (json, yaml or toml); repeatable, later files win")
	flags.StringArrayVar(&opts.assignments, "set", nil, "Override a single path (path=value); repeatable")
	flags.StringVar(&opts.envPrefix, "env-prefix", overrides.DefaultEnvPrefix, "Prefix of override variables; empty disables them")
	flags.StringVar(&opts.db, "db", "", "SQLite database holding stored overrides")
	flags.StringVar(&opts.domain, "domain", "treeselect", "Settings domain of stored overrides")
	flags.StringVar(&opts.engine, "engine", "expr", "Expression engine for slot expressions")
	flags.StringVar(&opts.dashboard, "dashboard", "", "Dashboard id whose stored overrides are layered in")
	flags.StringVar(&opts.component, "component", "", "Component id whose stored overrides are layered in")
	flags.StringVar(&opts.user, "user", "", "User id whose stored overrides are layered in")

	rootCmd.AddCommand(
		newDefaultsCmd(opts),
		newResolveCmd(opts),
		newGetCmd(opts),
		newTraceCmd(opts),
		newDiffCmd(opts),
		newSchemaCmd(opts),
		newValidateCmd(opts),
		newMatchCmd(opts),
		newStoreCmd(opts),
		newKarmaCmd(),
	)
	return rootCmd
}

func (o *rootOptions) settingsOptions() ([]treeselect.Option, error) {
	logger := logging.GetLogger("treeselect")
	evaluator, err := treeselect.NewEvaluator(o.engine, treeselect.NewMemoryProgramCache(programCacheSize), treeselect.SearchFunctions())
	if err != nil {
		return nil, err
	}
	return []treeselect.Option{
		treeselect.WithEvaluator(evaluator),
		treeselect.WithEvaluatorLogger(logging.EvaluatorLogger(logger)),
		treeselect.WithScopeSchema(true),
	}, nil
}

func (o *rootOptions) hooks() activity.Hooks {
	return activity.Hooks{logging.ActivityHook(logging.GetLogger("activity"))}
}

// resolve builds the effective settings: defaults, stored scopes when a
// database is configured, then the command line sources.
func (o *rootOptions) resolve(ctx context.Context, extra ...treeselect.Option) (*treeselect.Settings, error) {
	settingsOpts, err := o.settingsOptions()
	if err != nil {
		return nil, err
	}
	settingsOpts = append(settingsOpts, extra...)

	trees, err := overrides.Loader{
		Files:       o.files,
		EnvPrefix:   o.envPrefix,
		Assignments: o.assignments,
	}.Load()
	if err != nil {
		return nil, err
	}
	log.Debug().Int("sources", len(trees)).Strs("paths", overrides.Paths(trees)).Msg("override sources loaded")

	if o.db == "" {
		settingsOpts = append(settingsOpts,
			treeselect.WithActivityHooks(o.hooks()),
			treeselect.WithActivityChannel(activityChannel),
		)
		return treeselect.ResolveWith(settingsOpts, trees...)
	}

	store, err := state.OpenSQLite(ctx, o.db)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	resolver := state.Resolver{Store: store, Hooks: o.hooks(), Channel: activityChannel, Options: settingsOpts}
	settings, err := resolver.ResolveWithDefaults(ctx, o.domain, o.storedScopes()...)
	if err != nil {
		return nil, err
	}
	if len(trees) > 0 {
		settings = settings.LayerWith(trees...)
	}
	return settings, nil
}

func (o *rootOptions) storedScopes() []treeselect.Scope {
	scopes := []treeselect.Scope{state.NewRef(o.domain, state.ScopeSystem, "").Scope}
	for _, entry := range []struct{ scope, id string }{
		{state.ScopeDashboard, o.dashboard},
		{state.ScopeComponent, o.component},
		{state.ScopeUser, o.user},
	} {
		if entry.id != "" {
			scopes = append(scopes, state.NewRef(o.domain, entry.scope, entry.id).Scope)
		}
	}
	return scopes
}

func (o *rootOptions) outputFormat() codec.Format {
	format, err := codec.ParseFormat(o.format)
	if err != nil {
		return codec.FormatJSON
	}
	return format
}

func writeTree(w io.Writer, tree map[string]any, format codec.Format) error {
	return codec.Encode(w, tree, format)
}

// writeValue prints maps in the requested format and every other value as a
// JSON literal.
func writeValue(w io.Writer, value any, format codec.Format) error {
	if tree, ok := value.(map[string]any); ok {
		return writeTree(w, tree, format)
	}
	raw, err := json.Marshal(codec.Sanitize(value))
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
