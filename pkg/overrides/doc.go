// Package overrides collects consumer override trees from files, the
// environment and "path=value" assignments.
//
// Sources are returned weakest first so they can be handed straight to
// treeselect.Overlay or treeselect.ResolveWith:
//
//	trees, err := overrides.Loader{
//		Files:       []string{"dashboard.yaml"},
//		EnvPrefix:   overrides.DefaultEnvPrefix,
//		Assignments: []string{"selectionStrategy.limit=25"},
//	}.Load()
//
// Environment keys use "__" between path segments. Each segment is matched
// against the defaults tree ignoring case and underscores, so
// TREESELECT_SET_ROOT__OPTIONS__SHOW_FILTER=true sets Root.options.showFilter.
package overrides
