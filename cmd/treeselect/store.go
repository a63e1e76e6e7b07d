package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-treeselect"
	"github.com/goliatone/go-treeselect/pkg/activity"
	"github.com/goliatone/go-treeselect/pkg/overrides"
	"github.com/goliatone/go-treeselect/pkg/state"
)

var errDatabaseRequired = errors.New("a database is required (--db or TREESELECT_DB)")

type storeOptions struct {
	scope string
	id    string
	etag  string
	actor string
}

func (s *storeOptions) ref(domain string) (state.Ref, error) {
	ref := state.NewRef(domain, s.scope, s.id)
	if _, err := ref.Identifier(); err != nil {
		return state.Ref{}, err
	}
	return ref, nil
}

func (s *storeOptions) meta() state.Meta {
	meta := state.Meta{ETag: s.etag}
	if s.actor != "" {
		meta.Extra = map[string]string{"actor_id": s.actor}
	}
	return meta
}

func newStoreCmd(opts *rootOptions) *cobra.Command {
	so := &storeOptions{}
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage overrides stored in the SQLite database",
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&so.scope, "scope", state.ScopeUser, "Stored scope: system, dashboard, component or user")
	flags.StringVar(&so.id, "id", "", "Dashboard, component or user id of the stored scope")
	flags.StringVar(&so.etag, "etag", "", "Expected ETag of the stored tree")
	flags.StringVar(&so.actor, "actor", "", "Actor id recorded with the change")

	cmd.AddCommand(
		newStoreShowCmd(opts, so),
		newStoreSetCmd(opts, so),
		newStoreUnsetCmd(opts, so),
		newStoreDeleteCmd(opts, so),
		newStoreListCmd(opts),
	)
	return cmd
}

// withResolver opens the database for the duration of fn.
func withResolver(ctx context.Context, opts *rootOptions, fn func(*state.SQLStore, state.Resolver) error) error {
	if opts.db == "" {
		return errDatabaseRequired
	}
	store, err := state.OpenSQLite(ctx, opts.db)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store, state.Resolver{
		Store:   store,
		Hooks:   opts.hooks(),
		Channel: activityChannel,
		Verbs:   []string{activity.VerbOverrideSaved, activity.VerbOverrideDeleted},
	})
}

func newStoreShowCmd(opts *rootOptions, so *storeOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored override tree of a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := so.ref(opts.domain)
			if err != nil {
				return err
			}
			return withResolver(cmd.Context(), opts, func(store *state.SQLStore, _ state.Resolver) error {
				tree, meta, ok, err := store.Load(cmd.Context(), ref)
				if err != nil {
					return err
				}
				if !ok {
					tree = treeselect.Tree{}
				}
				return writeTree(cmd.OutOrStdout(), map[string]any{
					"snapshot_id": meta.SnapshotID,
					"etag":        meta.ETag,
					"tree":        map[string]any(tree),
				}, opts.outputFormat())
			})
		},
	}
}

func newStoreSetCmd(opts *rootOptions, so *storeOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <path=value>...",
		Short: "Store override values for a scope",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := so.ref(opts.domain)
			if err != nil {
				return err
			}
			patch, err := overrides.FromAssignments(args)
			if err != nil {
				return err
			}
			return mutate(cmd, opts, so, ref, func(tree *treeselect.Tree) error {
				*tree = treeselect.Overlay(*tree, patch)
				return nil
			})
		},
	}
}

func newStoreUnsetCmd(opts *rootOptions, so *storeOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <path>...",
		Short: "Remove stored override values from a scope",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := so.ref(opts.domain)
			if err != nil {
				return err
			}
			return mutate(cmd, opts, so, ref, func(tree *treeselect.Tree) error {
				for _, path := range args {
					next, err := tree.Delete(path)
					if err != nil {
						return err
					}
					*tree = next
				}
				return nil
			})
		},
	}
}

func mutate(cmd *cobra.Command, opts *rootOptions, so *storeOptions, ref state.Ref, fn state.Mutator) error {
	return withResolver(cmd.Context(), opts, func(_ *state.SQLStore, resolver state.Resolver) error {
		_, meta, err := resolver.Mutate(cmd.Context(), ref, so.meta(), fn)
		if err != nil {
			return err
		}
		key, _ := ref.Identifier()
		fmt.Fprintf(cmd.OutOrStdout(), "%s snapshot=%s etag=%s\n", key, meta.SnapshotID, meta.ETag)
		return nil
	})
}

func newStoreDeleteCmd(opts *rootOptions, so *storeOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the stored override tree of a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := so.ref(opts.domain)
			if err != nil {
				return err
			}
			return withResolver(cmd.Context(), opts, func(_ *state.SQLStore, resolver state.Resolver) error {
				deleted, err := resolver.Delete(cmd.Context(), ref, so.meta())
				if err != nil {
					return err
				}
				key, _ := ref.Identifier()
				if !deleted {
					fmt.Fprintf(cmd.OutOrStdout(), "%s not found\n", key)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s deleted\n", key)
				return nil
			})
		},
	}
}

func newStoreListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the stored override keys of the domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd.Context(), opts, func(store *state.SQLStore, _ state.Resolver) error {
				keys, err := store.Keys(cmd.Context(), opts.domain)
				if err != nil {
					return err
				}
				for _, key := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), key)
				}
				return nil
			})
		},
	}
}
