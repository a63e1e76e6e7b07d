package treeselect

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrMatcherResult is returned when a matcher expression yields a
	// non-boolean value.
	ErrMatcherResult = errors.New("treeselect: matcher must return a boolean")
	// ErrSorterResult is returned when sort keys are neither both numbers nor
	// both strings.
	ErrSorterResult = errors.New("treeselect: sorter keys must be numbers or strings")
)

// Entry is one selectable node as seen by the search and sort slots.
type Entry struct {
	ID       string
	Label    string
	Value    any
	Group    string
	Selected bool
}

// Binding exposes the entry to slot expressions as `entry`.
func (e Entry) Binding() map[string]any {
	return map[string]any{
		"id":       e.ID,
		"label":    e.Label,
		"value":    e.Value,
		"group":    e.Group,
		"selected": e.Selected,
	}
}

// Matcher decides whether entry matches the search fragment.
type Matcher func(entry Entry, fragment string) (bool, error)

// Sorter orders two entries, returning a negative number when a sorts
// before b.
type Sorter func(a, b Entry) (int, error)

// DefaultMatcher is used when search.matcher is unset: a case-insensitive
// substring test on the label. An empty fragment matches everything.
func DefaultMatcher(entry Entry, fragment string) (bool, error) {
	if fragment == "" {
		return true, nil
	}
	return containsFold(entry.Label, fragment), nil
}

// KeepOrder is used when a role's sorter is unset.
func KeepOrder(Entry, Entry) (int, error) {
	return 0, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// CompileMatcher compiles expr into a Matcher. The expression sees `entry`
// and `fragment` and must evaluate to a boolean.
func CompileMatcher(evaluator Evaluator, expr string) (Matcher, error) {
	return compileMatcher(evaluator, expr, Scope{})
}

func compileMatcher(evaluator Evaluator, expr string, scope Scope) (Matcher, error) {
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	if strings.TrimSpace(expr) == "" {
		return nil, ErrEmptyExpression
	}
	rule, err := evaluator.Compile(expr, WithVariables("entry", "fragment"))
	if err != nil {
		return nil, err
	}
	return func(entry Entry, fragment string) (bool, error) {
		ctx := RuleContext{Snapshot: map[string]any{
			"entry":    entry.Binding(),
			"fragment": fragment,
		}}.withDefaultScope(scope)
		result, err := rule.Evaluate(ctx)
		if err != nil {
			return false, err
		}
		matched, ok := result.(bool)
		if !ok {
			return false, fmt.Errorf("%w: got %T from %q", ErrMatcherResult, result, expr)
		}
		return matched, nil
	}, nil
}

// CompileSorter compiles a sort-key expression into a Sorter. The
// expression sees `entry` and must return a number or a string; entries are
// ordered by ascending key.
func CompileSorter(evaluator Evaluator, expr string) (Sorter, error) {
	return compileSorter(evaluator, expr, Scope{})
}

func compileSorter(evaluator Evaluator, expr string, scope Scope) (Sorter, error) {
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	if strings.TrimSpace(expr) == "" {
		return nil, ErrEmptyExpression
	}
	rule, err := evaluator.Compile(expr, WithVariables("entry"))
	if err != nil {
		return nil, err
	}
	key := func(entry Entry) (any, error) {
		ctx := RuleContext{Snapshot: map[string]any{"entry": entry.Binding()}}.withDefaultScope(scope)
		return rule.Evaluate(ctx)
	}
	return func(a, b Entry) (int, error) {
		ka, err := key(a)
		if err != nil {
			return 0, err
		}
		kb, err := key(b)
		if err != nil {
			return 0, err
		}
		return compareKeys(ka, kb)
	}, nil
}

func compareKeys(a, b any) (int, error) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, fmt.Errorf("%w: %T vs %T", ErrSorterResult, a, b)
		}
		switch {
		case fa < fb:
			return -1, nil
		case fa > fb:
			return 1, nil
		default:
			return 0, nil
		}
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if !okA || !okB {
		return 0, fmt.Errorf("%w: %T vs %T", ErrSorterResult, a, b)
	}
	return strings.Compare(sa, sb), nil
}

// Filter returns the entries accepted by matcher, in input order. A nil
// matcher selects DefaultMatcher.
func Filter(entries []Entry, fragment string, matcher Matcher) ([]Entry, error) {
	if matcher == nil {
		matcher = DefaultMatcher
	}
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		ok, err := matcher(entry, fragment)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

// SortEntries returns a stably sorted copy of entries. The input slice is
// left untouched. A nil sorter keeps input order.
func SortEntries(entries []Entry, sorter Sorter) ([]Entry, error) {
	out := append([]Entry(nil), entries...)
	if sorter == nil || len(out) < 2 {
		return out, nil
	}
	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		cmp, err := sorter(out[i], out[j])
		if err != nil {
			sortErr = err
			return false
		}
		return cmp < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return out, nil
}

// Matcher compiles the search.matcher slot. An unset slot yields
// DefaultMatcher.
func (s *Settings) Matcher() (Matcher, error) {
	expr, err := s.slotExpression(PathSearchMatcher)
	if err != nil {
		return nil, err
	}
	if expr == "" {
		return DefaultMatcher, nil
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	matcher, err := compileMatcher(evaluator, expr, s.cfg.scope)
	s.logSlot(evaluator, PathSearchMatcher, expr, start, err)
	if err != nil {
		return nil, withErrorPath(err, PathSearchMatcher)
	}
	return func(entry Entry, fragment string) (bool, error) {
		ok, err := matcher(entry, fragment)
		return ok, withErrorPath(err, PathSearchMatcher)
	}, nil
}

// Sorter compiles the sorter slot of role. An unset slot yields KeepOrder.
func (s *Settings) Sorter(role Role) (Sorter, error) {
	path := string(role) + ".sorter"
	expr, err := s.slotExpression(path)
	if err != nil {
		return nil, err
	}
	if expr == "" {
		return KeepOrder, nil
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	sorter, err := compileSorter(evaluator, expr, s.cfg.scope)
	s.logSlot(evaluator, path, expr, start, err)
	if err != nil {
		return nil, withErrorPath(err, path)
	}
	return func(a, b Entry) (int, error) {
		cmp, err := sorter(a, b)
		return cmp, withErrorPath(err, path)
	}, nil
}

func (s *Settings) slotExpression(path string) (string, error) {
	value, _ := s.Get(path)
	switch typed := value.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(typed), nil
	default:
		return "", &ValidationError{Path: path, Message: fmt.Sprintf("holds %T", value), Err: ErrSlotType}
	}
}

func (s *Settings) logSlot(evaluator Evaluator, path, expr string, start time.Time, err error) {
	s.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   evaluatorEngineName(evaluator),
		Expr:     expr,
		Path:     path,
		Scope:    s.cfg.scope.Name,
		Duration: time.Since(start),
		Err:      err,
	})
}
