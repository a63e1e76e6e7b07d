package treeselect

import (
	"errors"
	"fmt"
	"strings"
)

// Role identifies which part of the widget hierarchy a configuration
// subtree drives.
type Role string

const (
	RoleRoot  Role = "Root"
	RoleGroup Role = "Group"
	RoleItem  Role = "Item"
)

var (
	// ErrUnknownRole is returned by ParseRole for names outside Roles().
	ErrUnknownRole = errors.New("treeselect: unknown role")
	// ErrNoChildren is returned when a role has no childConfig.
	ErrNoChildren = errors.New("treeselect: role has no children")
)

// Roles lists the roles in hierarchy order.
func Roles() []Role {
	return []Role{RoleRoot, RoleGroup, RoleItem}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole resolves a role name case-insensitively.
func ParseRole(name string) (Role, error) {
	trimmed := strings.TrimSpace(name)
	for _, role := range Roles() {
		if strings.EqualFold(trimmed, string(role)) {
			return role, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, name)
}

// Role returns the subtree configured for role together with the top-level
// logLevel, so a view can be built from the result alone.
func (s *Settings) Role(role Role) Tree {
	out := Tree{}
	if s == nil {
		return out
	}
	if sub, ok := asMap(s.Value[string(role)]); ok {
		out = Tree(sub).Clone()
	}
	if level, ok := s.Value[PathLogLevel]; ok {
		out[PathLogLevel] = level
	}
	return out
}

// ChildRole resolves the role used for children of parent. Children with
// their own children use withChildrenPrototype, leaves use
// withoutChildrenPrototype.
func (s *Settings) ChildRole(parent Role, hasChildren bool) (Role, error) {
	key := "withoutChildrenPrototype"
	if hasChildren {
		key = "withChildrenPrototype"
	}
	path := string(parent) + ".view.childConfig"
	value, ok := s.Get(path)
	if !ok || value == nil {
		return "", fmt.Errorf("%w: %s", ErrNoChildren, parent)
	}
	childConfig, ok := asMap(value)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T", ErrNoChildren, path, value)
	}
	name, ok := childConfig[key].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("%w: %s.%s not set", ErrNoChildren, path, key)
	}
	return ParseRole(name)
}
