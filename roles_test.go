package treeselect

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := map[string]Role{
		"Root":   RoleRoot,
		"group":  RoleGroup,
		" ITEM ": RoleItem,
		"GrOuP":  RoleGroup,
	}
	for input, want := range tests {
		got, err := ParseRole(input)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", input, err)
		}
		if got != want {
			t.Fatalf("%q: expected %s, got %s", input, want, got)
		}
	}
	if _, err := ParseRole("Leaf"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestSettingsRoleSubtree(t *testing.T) {
	settings, err := Resolve(Tree{"logLevel": 4})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	item := settings.Role(RoleItem)
	if item[PathLogLevel] != 4 {
		t.Fatalf("expected logLevel to travel with the role, got %v", item[PathLogLevel])
	}
	if got, _ := item.Get("strings.btnOnlyThis"); got != "Only" {
		t.Fatalf("expected Item strings, got %v", got)
	}
	if item.Has("Root") {
		t.Fatalf("role subtree must not contain other roles")
	}

	item["strings"].(map[string]any)["btnOnlyThis"] = "mutated"
	if got, _ := settings.Get("Item.strings.btnOnlyThis"); got != "Only" {
		t.Fatalf("role subtree must be detached, got %v", got)
	}

	var nilSettings *Settings
	if got := nilSettings.Role(RoleRoot); len(got) != 0 {
		t.Fatalf("expected empty subtree for nil settings, got %v", got)
	}
}

func TestSettingsChildRole(t *testing.T) {
	settings, err := Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	tests := []struct {
		parent      Role
		hasChildren bool
		want        Role
	}{
		{RoleRoot, true, RoleGroup},
		{RoleRoot, false, RoleItem},
		{RoleGroup, true, RoleGroup},
		{RoleGroup, false, RoleItem},
	}
	for _, tc := range tests {
		got, err := settings.ChildRole(tc.parent, tc.hasChildren)
		if err != nil {
			t.Fatalf("%s/%v: unexpected error %v", tc.parent, tc.hasChildren, err)
		}
		if got != tc.want {
			t.Fatalf("%s/%v: expected %s, got %s", tc.parent, tc.hasChildren, tc.want, got)
		}
	}
	if _, err := settings.ChildRole(RoleItem, false); !errors.Is(err, ErrNoChildren) {
		t.Fatalf("expected ErrNoChildren for Item, got %v", err)
	}
}

func TestSettingsChildRoleOverride(t *testing.T) {
	settings, err := Resolve(Tree{"Group": map[string]any{"view": map[string]any{
		"childConfig": map[string]any{"withChildrenPrototype": "Item"},
	}}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, err := settings.ChildRole(RoleGroup, true)
	if err != nil || got != RoleItem {
		t.Fatalf("expected overridden prototype Item, got %s (%v)", got, err)
	}
	if got, _ := settings.Get("Group.view.childConfig.className"); got != "filter-group-child" {
		t.Fatalf("sibling childConfig keys must survive, got %v", got)
	}
}
