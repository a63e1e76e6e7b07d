package treeselect

import "github.com/goliatone/go-treeselect/layering"

// Selection strategies understood by selectionStrategy.type.
const (
	StrategyLimitedSelect = "LimitedSelect"
	StrategyMultiSelect   = "MultiSelect"
	StrategySingleSelect  = "SingleSelect"
	StrategyNoSelect      = "NoSelect"
)

// Expand modes accepted by Root.options.expandMode.
const (
	ExpandModeAbsolute = "absolute"
	ExpandModeRelative = "relative"
)

// Scrollbar engines accepted by Root.view.scrollbar.engine.
const (
	ScrollbarCustom     = "mCustomScrollbar"
	ScrollbarOptiscroll = "optiscroll"
)

// Recognised paths of the configuration surface.
const (
	PathLogLevel               = "logLevel"
	PathPaginationPageSize     = "pagination.pageSize"
	PathPaginationThrottle     = "pagination.throttleTimeMilliseconds"
	PathSearchServerSide       = "search.serverSide"
	PathSearchMatcher          = "search.matcher"
	PathSelectionStrategyType  = "selectionStrategy.type"
	PathSelectionStrategyLimit = "selectionStrategy.limit"
)

// PrivateDefaults returns the base template: view wiring (slots, child
// prototypes, throttles) and the function slots.
func PrivateDefaults() Tree {
	return Tree{
		"logLevel": 1,
		"pagination": map[string]any{
			"throttleTimeMilliseconds": 500,
		},
		"Root": map[string]any{
			"renderers": nil,
			"sorter":    nil,
			"view": map[string]any{
				"styles":                   []any{},
				"throttleTimeMilliseconds": 10,
				"templates":                map[string]any{},
				"slots": map[string]any{
					"selection": ".filter-root-control",
					"header":    ".filter-root-header",
					"footer":    ".filter-root-footer",
					"children":  ".filter-root-items",
					"overlay":   ".filter-overlay",
				},
				"childConfig": map[string]any{
					"withChildrenPrototype":    string(RoleGroup),
					"withoutChildrenPrototype": string(RoleItem),
					"className":                "filter-root-child",
					"appendTo":                 ".filter-root-items",
				},
				"overlaySimulateClick": true,
			},
		},
		"Group": map[string]any{
			"renderers": nil,
			"sorter":    nil,
			"view": map[string]any{
				"throttleTimeMilliseconds": 10,
				"templates":                map[string]any{},
				"slots": map[string]any{
					"selection": ".filter-group-header:eq(0)",
					"children":  ".filter-group-items",
				},
				"childConfig": map[string]any{
					"withChildrenPrototype":    string(RoleGroup),
					"withoutChildrenPrototype": string(RoleItem),
					"className":                "filter-group-child",
				},
			},
		},
		"Item": map[string]any{
			"renderers": nil,
			"sorter":    nil,
			"view": map[string]any{
				"styles":                   []any{},
				"throttleTimeMilliseconds": 10,
				"templates":                map[string]any{},
				"slots": map[string]any{
					"selection": ".filter-item-container",
				},
			},
		},
	}
}

// PublicDefaults returns the documented knobs: options, strings, pagination,
// search and selection strategy.
func PublicDefaults() Tree {
	return Tree{
		"pagination": map[string]any{
			"pageSize": Infinity,
		},
		"search": map[string]any{
			"serverSide": false,
			"matcher":    nil,
		},
		"selectionStrategy": map[string]any{
			"type":  StrategyLimitedSelect,
			"limit": 500,
		},
		"Root": map[string]any{
			"options": map[string]any{
				"className":                 "multi-select",
				"styles":                    nil,
				"showCommitButtons":         true,
				"showFilter":                false,
				"showGroupSelection":        true,
				"showButtonOnlyThis":        false,
				"showSelectedItems":         false,
				"showNumberOfSelectedItems": true,
				"showValue":                 false,
				"showIcons":                 true,
				"scrollThreshold":           12,
				"isResizable":               true,
				"useOverlay":                true,
				"expandMode":                ExpandModeAbsolute,
			},
			"strings": map[string]any{
				"isDisabled":     "Unavailable",
				"allItems":       "All",
				"noItems":        "None",
				"groupSelection": "All",
				"btnApply":       "Apply",
				"btnCancel":      "Cancel",
			},
			"view": map[string]any{
				"scrollbar": map[string]any{
					"engine": ScrollbarCustom,
					"options": map[string]any{
						"theme":                "dark",
						"alwaysTriggerOffsets": false,
						"onTotalScrollOffset":  100,
					},
				},
			},
		},
		"Group": map[string]any{
			"options": map[string]any{
				"showFilter":         false,
				"showCommitButtons":  false,
				"showGroupSelection": false,
				"showButtonOnlyThis": false,
				"showButtonCollapse": false,
				"showValue":          false,
				"showIcons":          true,
				"scrollThreshold":    Infinity,
				"isResizable":        false,
			},
			"strings": map[string]any{
				"allItems":       "All",
				"noItems":        "None",
				"groupSelection": "All",
				"btnApply":       "Apply",
				"btnCancel":      "Cancel",
			},
		},
		"Item": map[string]any{
			"options": map[string]any{
				"showButtonOnlyThis": false,
				"showValue":          false,
				"showIcons":          true,
			},
			"strings": map[string]any{
				"btnOnlyThis": "Only",
			},
		},
	}
}

// Defaults returns a fresh tree holding the private layer extended with the
// public one.
func Defaults() Tree {
	return Overlay(PrivateDefaults(), PublicDefaults())
}

// Overlay extends base with overrides (weakest to strongest) into a new tree.
// Neither base nor the overrides are modified.
func Overlay(base Tree, overrides ...Tree) Tree {
	sources := make([]map[string]any, 0, len(overrides)+1)
	sources = append(sources, map[string]any(base))
	for _, override := range overrides {
		sources = append(sources, map[string]any(override))
	}
	return Tree(layering.DeepExtend(sources...))
}
