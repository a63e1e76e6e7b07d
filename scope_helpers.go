package treeselect

// Recommended priorities for the standard layering chain. Higher numbers win.
const (
	ScopePriorityPrivate   = 100
	ScopePriorityPublic    = 200
	ScopePriorityDashboard = 300
	ScopePriorityComponent = 400
	ScopePriorityUser      = 500
	ScopePriorityOverride  = 1000
)

// Names of the built-in default scopes.
const (
	ScopePrivate = "private"
	ScopePublic  = "public"
)

// DefaultScopes returns the private and public default scopes.
func DefaultScopes() []Scope {
	return []Scope{
		NewScope(ScopePublic, ScopePriorityPublic, WithScopeLabel("Public Defaults")),
		NewScope(ScopePrivate, ScopePriorityPrivate, WithScopeLabel("Private Defaults")),
	}
}

func defaultLayers() []Layer {
	scopes := DefaultScopes()
	return []Layer{
		NewLayer(scopes[0], PublicDefaults()),
		NewLayer(scopes[1], PrivateDefaults()),
	}
}

// DefaultStack assembles the canonical chain (private → public → dashboard →
// component → user) and returns the merged settings. Nil trees are skipped.
func DefaultStack(dashboard, component, user Tree, opts ...Option) (*Settings, error) {
	layers := defaultLayers()
	optional := []struct {
		name     string
		label    string
		priority int
		tree     Tree
	}{
		{"dashboard", "Dashboard", ScopePriorityDashboard, dashboard},
		{"component", "Component", ScopePriorityComponent, component},
		{"user", "User", ScopePriorityUser, user},
	}
	for _, entry := range optional {
		if entry.tree == nil {
			continue
		}
		layers = append(layers, NewLayer(NewScope(entry.name, entry.priority, WithScopeLabel(entry.label)), entry.tree))
	}
	stack, err := NewStack(layers...)
	if err != nil {
		return nil, err
	}
	return stack.Merge(opts...)
}
