package treeselect

import (
	"errors"
	"fmt"
	"strings"
)

const errPrefix = "treeselect:"

// EvaluationError reports a failed slot expression together with the engine,
// the slot path and the scope it ran under.
type EvaluationError struct {
	Engine string
	Expr   string
	Path   string
	Scope  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s evaluator %s", errPrefix, e.Engine, describeExpression(e.Expr))
	if e.Path != "" {
		fmt.Fprintf(&b, " path=%s", e.Path)
	}
	fmt.Fprintf(&b, " scope=%s: %v", e.Scope, e.Err)
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), errPrefix) {
		return err
	}
	return fmt.Errorf("%s %s evaluator: %w", errPrefix, engine, err)
}

func wrapEvaluationError(engine, expr, scope string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Scope == "" {
			evalErr.Scope = scope
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Scope:  scope,
		Err:    err,
	}
}

func withErrorPath(err error, path string) error {
	var evalErr *EvaluationError
	if path != "" && errors.As(err, &evalErr) && evalErr.Path == "" {
		evalErr.Path = path
	}
	return err
}
