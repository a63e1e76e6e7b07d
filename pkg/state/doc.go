// Package state persists consumer override trees per scope and resolves them
// into settings.
//
// Responsibilities:
//   - Store only loads, saves and deletes a single override tree for a
//     single Ref.
//   - Resolver loads trees for several scopes and merges them by building
//     treeselect layers and a treeselect stack.
//   - The root package stays persistence agnostic; all storage logic lives
//     behind Store implementations.
//
// Data flow:
//
//	Store -> Resolver -> treeselect.NewStack(...).Merge(...) -> *treeselect.Settings
//
// Provenance:
//
//	Meta.SnapshotID is copied onto treeselect.Layer.SnapshotID, which is then
//	visible through Settings.ResolveWithTrace and Settings.SchemaScopes.
//
// Deterministic keys:
//
//	Ref.Identifier() is the storage key: system/<domain>,
//	dashboard/<dashboard_id>/<domain>, component/<component_id>/<domain> and
//	user/<user_id>/<domain>.
package state
