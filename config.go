package treeselect

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/goliatone/go-treeselect/internal/codec"
	"github.com/goliatone/go-treeselect/internal/hydrate"
)

// Config is the typed view of a resolved settings tree.
type Config struct {
	LogLevel          int                     `json:"logLevel"`
	Pagination        PaginationConfig        `json:"pagination"`
	Search            SearchConfig            `json:"search"`
	SelectionStrategy SelectionStrategyConfig `json:"selectionStrategy"`
	Root              RoleConfig              `json:"Root"`
	Group             RoleConfig              `json:"Group"`
	Item              RoleConfig              `json:"Item"`
}

// PaginationConfig controls incremental rendering of long lists.
type PaginationConfig struct {
	PageSize                 Bound `json:"pageSize"`
	ThrottleTimeMilliseconds int   `json:"throttleTimeMilliseconds"`
}

// SearchConfig holds the filtering knobs. Matcher is a function slot: nil or
// an expression string.
type SearchConfig struct {
	ServerSide bool `json:"serverSide"`
	Matcher    any  `json:"matcher"`
}

// SelectionStrategyConfig selects how many entries may be picked.
type SelectionStrategyConfig struct {
	Type  string `json:"type"`
	Limit int    `json:"limit"`
}

// RoleConfig is the per-role subtree shared by Root, Group and Item.
type RoleConfig struct {
	Renderers any               `json:"renderers"`
	Sorter    any               `json:"sorter"`
	Options   RoleOptions       `json:"options"`
	Strings   map[string]string `json:"strings,omitempty"`
	View      ViewConfig        `json:"view"`
}

// RoleOptions are the documented per-role switches. Not every role uses
// every field.
type RoleOptions struct {
	ClassName                 string `json:"className,omitempty"`
	Styles                    any    `json:"styles,omitempty"`
	ShowCommitButtons         bool   `json:"showCommitButtons"`
	ShowFilter                bool   `json:"showFilter"`
	ShowGroupSelection        bool   `json:"showGroupSelection"`
	ShowButtonOnlyThis        bool   `json:"showButtonOnlyThis"`
	ShowButtonCollapse        bool   `json:"showButtonCollapse"`
	ShowSelectedItems         bool   `json:"showSelectedItems"`
	ShowNumberOfSelectedItems bool   `json:"showNumberOfSelectedItems"`
	ShowValue                 bool   `json:"showValue"`
	ShowIcons                 bool   `json:"showIcons"`
	ScrollThreshold           Bound  `json:"scrollThreshold"`
	IsResizable               bool   `json:"isResizable"`
	UseOverlay                bool   `json:"useOverlay"`
	ExpandMode                string `json:"expandMode,omitempty"`
}

// ViewConfig wires a role's view to the DOM.
type ViewConfig struct {
	Styles                   []any             `json:"styles,omitempty"`
	ThrottleTimeMilliseconds int               `json:"throttleTimeMilliseconds"`
	Templates                map[string]any    `json:"templates,omitempty"`
	Slots                    map[string]string `json:"slots,omitempty"`
	ChildConfig              *ChildConfig      `json:"childConfig,omitempty"`
	OverlaySimulateClick     bool              `json:"overlaySimulateClick"`
	Scrollbar                *ScrollbarConfig  `json:"scrollbar,omitempty"`
}

// ChildConfig names the roles used for child nodes.
type ChildConfig struct {
	WithChildrenPrototype    string `json:"withChildrenPrototype"`
	WithoutChildrenPrototype string `json:"withoutChildrenPrototype"`
	ClassName                string `json:"className"`
	AppendTo                 string `json:"appendTo,omitempty"`
}

// ScrollbarConfig picks the scrollbar engine and its options.
type ScrollbarConfig struct {
	Engine  string         `json:"engine"`
	Options map[string]any `json:"options,omitempty"`
}

// Bound is a numeric setting that may be unbounded. It decodes from a JSON
// number or the string "Infinity".
type Bound float64

// Unbounded is the infinite Bound.
var Unbounded = Bound(math.Inf(1))

// Infinite reports whether b has no upper limit.
func (b Bound) Infinite() bool {
	return math.IsInf(float64(b), 1)
}

// Int returns b as an int, clamping infinity to math.MaxInt.
func (b Bound) Int() int {
	if b.Infinite() {
		return math.MaxInt
	}
	return int(b)
}

func (b Bound) String() string {
	if b.Infinite() {
		return "Infinity"
	}
	return fmt.Sprint(float64(b))
}

// MarshalJSON implements json.Marshaler.
func (b Bound) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(b), 0) || math.IsNaN(float64(b)) {
		return json.Marshal(codec.Sanitize(float64(b)))
	}
	return json.Marshal(float64(b))
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bound) UnmarshalJSON(data []byte) error {
	var literal string
	if err := json.Unmarshal(data, &literal); err == nil {
		switch literal {
		case "Infinity", "+Infinity":
			*b = Unbounded
			return nil
		case "-Infinity":
			*b = Bound(math.Inf(-1))
			return nil
		}
		return fmt.Errorf("treeselect: invalid bound %q", literal)
	}
	var number float64
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("treeselect: invalid bound %s: %w", string(data), err)
	}
	*b = Bound(number)
	return nil
}

// ErrInvalidConfig is matched by every ValidationError.
var ErrInvalidConfig = errors.New("treeselect: invalid configuration")

// ErrSlotType is returned when a function slot holds neither nil nor an
// expression string.
var ErrSlotType = errors.New("treeselect: function slot must be nil or an expression string")

// ValidationError reports a rule violated at Path.
type ValidationError struct {
	Path    string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("treeselect: invalid %s: %s", e.Path, e.Message)
}

// Unwrap exposes ErrInvalidConfig plus any specific cause.
func (e *ValidationError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err != nil {
		return []error{ErrInvalidConfig, e.Err}
	}
	return []error{ErrInvalidConfig}
}

// KnownStrategies lists the accepted selectionStrategy.type values.
func KnownStrategies() []string {
	return []string{StrategyLimitedSelect, StrategyMultiSelect, StrategySingleSelect, StrategyNoSelect}
}

// Validate checks the typed configuration and returns every violation
// joined together, or nil.
func (c Config) Validate() error {
	v := &validator{}

	if c.LogLevel < 0 || c.LogLevel > 5 {
		v.addf(PathLogLevel, "must be between 0 and 5, got %d", c.LogLevel)
	}
	if c.Pagination.PageSize <= 0 {
		v.addf(PathPaginationPageSize, "must be positive or Infinity, got %s", c.Pagination.PageSize)
	}
	if c.Pagination.ThrottleTimeMilliseconds < 0 {
		v.addf(PathPaginationThrottle, "must not be negative, got %d", c.Pagination.ThrottleTimeMilliseconds)
	}
	v.slot(PathSearchMatcher, c.Search.Matcher)

	if !contains(KnownStrategies(), c.SelectionStrategy.Type) {
		v.addf(PathSelectionStrategyType, "unknown strategy %q (want one of %s)", c.SelectionStrategy.Type, strings.Join(KnownStrategies(), ", "))
	}
	if c.SelectionStrategy.Type == StrategyLimitedSelect && c.SelectionStrategy.Limit <= 0 {
		v.addf(PathSelectionStrategyLimit, "must be positive for %s, got %d", StrategyLimitedSelect, c.SelectionStrategy.Limit)
	}

	roles := map[Role]RoleConfig{RoleRoot: c.Root, RoleGroup: c.Group, RoleItem: c.Item}
	for _, role := range Roles() {
		v.role(role, roles[role])
	}

	if mode := c.Root.Options.ExpandMode; mode != ExpandModeAbsolute && mode != ExpandModeRelative {
		v.addf("Root.options.expandMode", "must be %q or %q, got %q", ExpandModeAbsolute, ExpandModeRelative, mode)
	}
	if c.Root.Options.ScrollThreshold <= 0 {
		v.addf("Root.options.scrollThreshold", "must be positive, got %s", c.Root.Options.ScrollThreshold)
	}
	if c.Group.Options.ScrollThreshold <= 0 {
		v.addf("Group.options.scrollThreshold", "must be positive, got %s", c.Group.Options.ScrollThreshold)
	}

	return v.err()
}

type validator struct {
	errs []error
}

func (v *validator) addf(path, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) slot(path string, value any) {
	switch value.(type) {
	case nil, string:
	default:
		v.errs = append(v.errs, &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("holds %T", value),
			Err:     ErrSlotType,
		})
	}
}

func (v *validator) role(role Role, cfg RoleConfig) {
	prefix := string(role)
	v.slot(prefix+".sorter", cfg.Sorter)
	v.slot(prefix+".renderers", cfg.Renderers)

	if cfg.View.ThrottleTimeMilliseconds < 0 {
		v.addf(prefix+".view.throttleTimeMilliseconds", "must not be negative, got %d", cfg.View.ThrottleTimeMilliseconds)
	}

	slots := make([]string, 0, len(cfg.View.Slots))
	for name := range cfg.View.Slots {
		slots = append(slots, name)
	}
	sort.Strings(slots)
	for _, name := range slots {
		if strings.TrimSpace(cfg.View.Slots[name]) == "" {
			v.addf(prefix+".view.slots."+name, "selector must not be empty")
		}
	}

	if child := cfg.View.ChildConfig; child != nil {
		for key, name := range map[string]string{
			"withChildrenPrototype":    child.WithChildrenPrototype,
			"withoutChildrenPrototype": child.WithoutChildrenPrototype,
		} {
			if _, err := ParseRole(name); err != nil {
				v.addf(prefix+".view.childConfig."+key, "%q is not a role", name)
			}
		}
	}

	if sb := cfg.View.Scrollbar; sb != nil && sb.Engine != ScrollbarCustom && sb.Engine != ScrollbarOptiscroll {
		v.addf(prefix+".view.scrollbar.engine", "must be %q or %q, got %q", ScrollbarCustom, ScrollbarOptiscroll, sb.Engine)
	}
}

func (v *validator) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	sort.SliceStable(v.errs, func(i, j int) bool {
		return v.errs[i].(*ValidationError).Path < v.errs[j].(*ValidationError).Path
	})
	return errors.Join(v.errs...)
}

func contains(values []string, needle string) bool {
	for _, value := range values {
		if value == needle {
			return true
		}
	}
	return false
}

// Config decodes the resolved tree into its typed view.
func (s *Settings) Config() (Config, error) {
	if s == nil {
		return Config{}, fmt.Errorf("treeselect: settings are nil")
	}
	decoder := hydrate.NewDecoder[Config](
		hydrate.WithPreHook[Config](sanitizeInfinity),
	)
	return decoder.Decode(hydrate.Context{
		Source: "settings",
		Scope:  s.strongestScope().Name,
	}, map[string]any(s.Value))
}

func sanitizeInfinity(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	sanitized, _ := codec.Sanitize(payload).(map[string]any)
	return sanitized, nil
}
