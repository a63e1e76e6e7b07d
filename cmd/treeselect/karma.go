package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-treeselect/pkg/runner"
)

type karmaOptions struct {
	config    string
	envPrefix string
}

func (k *karmaOptions) load() (runner.Config, error) {
	return runner.Load(k.config, k.envPrefix)
}

// dir returns the absolute directory the descriptor's basePath is relative
// to: the config file's directory, or the working directory without one.
func (k *karmaOptions) dir() (string, error) {
	if k.config == "" {
		return os.Getwd()
	}
	return filepath.Abs(filepath.Dir(k.config))
}

func newKarmaCmd() *cobra.Command {
	ko := &karmaOptions{}
	cmd := &cobra.Command{
		Use:   "karma",
		Short: "Work with the CI test runner descriptor",
	}
	cmd.PersistentFlags().StringVarP(&ko.config, "config", "c", "", "Descriptor overrides (json, yaml or toml) applied over the legacy CI defaults")
	cmd.PersistentFlags().StringVar(&ko.envPrefix, "karma-env-prefix", runner.DefaultEnvPrefix, "Prefix of descriptor override variables; empty disables them")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "render",
			Short: "Write the descriptor as a karma.conf.js module",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := ko.load()
				if err != nil {
					return err
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				return runner.Render(cmd.OutOrStdout(), cfg)
			},
		},
		&cobra.Command{
			Use:   "json",
			Short: "Write the descriptor as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := ko.load()
				if err != nil {
					return err
				}
				return runner.RenderJSON(cmd.OutOrStdout(), cfg)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the descriptor",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := ko.load()
				if err != nil {
					return err
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "descriptor is valid")
				return nil
			},
		},
		&cobra.Command{
			Use:   "files",
			Short: "List the files the descriptor loads, in load order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := ko.load()
				if err != nil {
					return err
				}
				dir, err := ko.dir()
				if err != nil {
					return err
				}
				rel := strings.TrimPrefix(filepath.ToSlash(dir), "/")
				if rel == "" {
					rel = "."
				}
				files, err := runner.ResolveFiles(os.DirFS("/"), rel, cfg)
				if err != nil {
					return err
				}
				for _, file := range files {
					fmt.Fprintln(cmd.OutOrStdout(), "/"+file)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "artifacts",
			Short: "List the report files and directories the descriptor produces",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := ko.load()
				if err != nil {
					return err
				}
				for _, artifact := range cfg.Artifacts() {
					fmt.Fprintln(cmd.OutOrStdout(), artifact)
				}
				return nil
			},
		},
	)
	return cmd
}
