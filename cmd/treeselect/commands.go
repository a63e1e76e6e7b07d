package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-treeselect"
	"github.com/goliatone/go-treeselect/schema/openapi"
)

func newDefaultsCmd(opts *rootOptions) *cobra.Command {
	var layer string
	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Print the built-in defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var tree treeselect.Tree
			switch layer {
			case "", "all":
				tree = treeselect.Defaults()
			case treeselect.ScopePrivate:
				tree = treeselect.PrivateDefaults()
			case treeselect.ScopePublic:
				tree = treeselect.PublicDefaults()
			default:
				return fmt.Errorf("unknown layer %q (want all, private or public)", layer)
			}
			return writeTree(cmd.OutOrStdout(), map[string]any(tree), opts.outputFormat())
		},
	}
	cmd.Flags().StringVar(&layer, "layer", "all", "Layer to print: all, private or public")
	return cmd
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print the effective configuration tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.resolve(cmd.Context())
			if err != nil {
				return err
			}
			return writeTree(cmd.OutOrStdout(), map[string]any(settings.Tree()), opts.outputFormat())
		},
	}
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Print the effective value at a dotted path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.resolve(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := treeselect.SplitPath(args[0]); err != nil {
				return err
			}
			value, ok := settings.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", treeselect.ErrPathNotFound, args[0])
			}
			return writeValue(cmd.OutOrStdout(), value, opts.outputFormat())
		},
	}
}

func newTraceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trace <path>",
		Short: "Show which layers contribute to a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.resolve(cmd.Context())
			if err != nil {
				return err
			}
			value, trace, err := settings.ResolveWithTrace(args[0])
			if err != nil {
				return err
			}

			layers := make([]any, 0, len(trace.Layers))
			for _, layer := range trace.Layers {
				entry := map[string]any{
					"scope":    layer.Scope.Name,
					"priority": layer.Scope.Priority,
					"found":    layer.Found,
				}
				if layer.Scope.Label != "" {
					entry["label"] = layer.Scope.Label
				}
				if layer.SnapshotID != "" {
					entry["snapshot_id"] = layer.SnapshotID
				}
				if layer.Value != nil {
					entry["value"] = layer.Value
				}
				layers = append(layers, entry)
			}
			out := map[string]any{"path": trace.Path, "layers": layers}
			if value != nil {
				out["value"] = value
			}
			if winner, ok := trace.Winner(); ok {
				out["winner"] = winner.Scope.Name
			}
			return writeTree(cmd.OutOrStdout(), out, opts.outputFormat())
		},
	}
}

func newDiffCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "List the paths where the effective tree differs from the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.resolve(cmd.Context())
			if err != nil {
				return err
			}
			defaults := treeselect.Defaults()
			out := map[string]any{}
			for _, path := range defaults.Diff(settings.Value) {
				change := map[string]any{}
				if before, ok := defaults.Get(path); ok && before != nil {
					change["default"] = before
				}
				if after, ok := settings.Get(path); ok && after != nil {
					change["value"] = after
				}
				out[path] = change
			}
			return writeTree(cmd.OutOrStdout(), out, opts.outputFormat())
		},
	}
}

func newSchemaCmd(opts *rootOptions) *cobra.Command {
	var openAPI bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Describe the effective tree as field descriptors or OpenAPI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []treeselect.Option
			if openAPI {
				extra = append(extra, openapi.Option(
					openapi.WithInfo("TreeSelect configuration", "1.0.0"),
					openapi.WithRoleComponents(true),
				))
			}
			settings, err := opts.resolve(cmd.Context(), extra...)
			if err != nil {
				return err
			}
			doc, err := settings.Schema()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"format":   doc.Format,
				"document": doc.Document,
				"scopes":   doc.Scopes,
			})
		},
	}
	cmd.Flags().BoolVar(&openAPI, "openapi", false, "Emit an OpenAPI document instead of field descriptors")
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.resolve(cmd.Context())
			if err != nil {
				return err
			}
			if err := settings.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}

func newMatchCmd(opts *rootOptions) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "match <fragment> <label>...",
		Short: "Filter and sort labels with the configured search matcher and sorter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedRole, err := treeselect.ParseRole(role)
			if err != nil {
				return err
			}
			settings, err := opts.resolve(cmd.Context())
			if err != nil {
				return err
			}
			matcher, err := settings.Matcher()
			if err != nil {
				return err
			}
			sorter, err := settings.Sorter(parsedRole)
			if err != nil {
				return err
			}

			entries := make([]treeselect.Entry, 0, len(args)-1)
			for i, label := range args[1:] {
				entries = append(entries, treeselect.Entry{ID: strconv.Itoa(i), Label: label, Value: label})
			}
			matched, err := treeselect.Filter(entries, args[0], matcher)
			if err != nil {
				return err
			}
			sorted, err := treeselect.SortEntries(matched, sorter)
			if err != nil {
				return err
			}
			for _, entry := range sorted {
				fmt.Fprintln(cmd.OutOrStdout(), entry.Label)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(treeselect.RoleItem), "Role whose sorter orders the matches")
	return cmd
}
