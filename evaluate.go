package treeselect

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoEvaluator is returned when no evaluator could be resolved.
	ErrNoEvaluator = errors.New("treeselect: evaluator not configured")
	// ErrEmptyExpression is returned for blank expressions.
	ErrEmptyExpression = errors.New("treeselect: expression must not be empty")
	// ErrUnknownEngine is returned by NewEvaluator for unsupported names.
	ErrUnknownEngine = errors.New("treeselect: unknown evaluator engine")
)

// Engines lists the evaluator names accepted by NewEvaluator. The js engine
// is only listed when the module is built with the js_eval tag.
func Engines() []string {
	engines := []string{engineExpr, engineCEL}
	if jsEvaluatorAvailable() {
		engines = append(engines, engineJS)
	}
	return engines
}

// NewEvaluator builds an evaluator by engine name sharing cache and registry.
// Either may be nil.
func NewEvaluator(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", engineExpr:
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry)), nil
	case engineCEL:
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry)), nil
	case engineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: js requires the js_eval build tag", ErrUnknownEngine)
		}
		return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}

// Evaluate runs expr against the resolved tree. Top-level keys of the tree
// are bound as variables.
func (s *Settings) Evaluate(expr string) (Response[any], error) {
	return s.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith runs expr using ctx, falling back to the resolved tree when
// ctx.Snapshot is nil and to the configured scope when ctx has none.
func (s *Settings) EvaluateWith(ctx RuleContext, expr string) (Response[any], error) {
	if strings.TrimSpace(expr) == "" {
		return Response[any]{}, ErrEmptyExpression
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return Response[any]{}, err
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]any(s.Value)
	}
	ctx = ctx.withDefaultScope(s.cfg.scope).withDefaults()
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	evalErr = wrapEvaluationError(evaluatorEngineName(evaluator), expr, ctx.scopeLabel(), evalErr)
	s.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   evaluatorEngineName(evaluator),
		Expr:     expr,
		Scope:    ctx.scopeLabel(),
		Duration: time.Since(start),
		Err:      evalErr,
	})
	if evalErr != nil {
		return Response[any]{}, evalErr
	}
	return Response[any]{Value: value}, nil
}

func (s *Settings) resolveEvaluator() (Evaluator, error) {
	if s == nil {
		return nil, ErrNoEvaluator
	}
	if evaluator := s.evaluator(); evaluator != nil {
		return evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if cache := s.programCache(); cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cache))
	}
	if registry := s.functionRegistry(); registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(registry))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	s.withEvaluator(defaultEvaluator)
	return defaultEvaluator, nil
}

type engineNamer interface {
	engine() string
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(engineNamer); ok {
		return named.engine()
	}
	return "custom"
}
