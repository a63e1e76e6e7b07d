package treeselect

import (
	"fmt"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
)

const engineCEL = "cel"

// callArity bounds the number of dynamic arguments accepted by registry
// functions and call() in CEL, which has no variadic overloads.
const callArity = 3

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Programs are
// type-checked, so every identifier must be either a snapshot key or a
// variable declared with WithVariables.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) engine() string { return engineCEL }

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(engineCEL, fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	snapshot := snapshotAsMap(ctx.Snapshot)
	program, err := e.loadOrCompile(expression, variableNames(snapshot, nil))
	if err != nil {
		return nil, wrapEvaluationError(engineCEL, expression, ctx.scopeLabel(), err)
	}
	return e.run(ctx, expression, program, snapshot)
}

func (e *celEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(engineCEL, fmt.Errorf("expression must not be empty"))
	}
	cfg := applyCompileOptions(opts)
	rule := &celCompiledRule{
		evaluator:  e,
		expression: expression,
		declared:   append([]string(nil), cfg.variables...),
	}
	if len(cfg.variables) > 0 {
		program, err := e.loadOrCompile(expression, variableNames(nil, cfg.variables))
		if err != nil {
			return nil, wrapEvaluationError(engineCEL, expression, "", err)
		}
		rule.program = program
	}
	return rule, nil
}

func (e *celEvaluator) run(ctx RuleContext, expression string, program celgo.Program, snapshot map[string]any) (any, error) {
	out, _, err := program.Eval(e.activation(ctx, snapshot))
	if err != nil {
		return nil, wrapEvaluationError(engineCEL, expression, ctx.scopeLabel(), err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) loadOrCompile(expression string, variables []string) (celgo.Program, error) {
	key := engineCEL + ":" + strings.Join(variables, ",") + ":" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(variables)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *celEvaluator) buildEnv(variables []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		ext.Strings(),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("scope", celgo.DynType),
	}
	for _, name := range variables {
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	if e.registry != nil {
		opts = append(opts, e.callFunction())
		for _, name := range e.registry.Names() {
			opts = append(opts, e.registryFunction(name))
		}
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(ctx RuleContext, snapshot map[string]any) map[string]any {
	activation := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
		"scope":    map[string]any{},
	}
	if binding := ctx.scopeBinding(); binding != nil {
		activation["scope"] = binding
	}
	for key, value := range snapshot {
		activation[key] = value
	}
	return activation
}

// registryFunction declares name with overloads for 0..callArity dynamic
// arguments.
func (e *celEvaluator) registryFunction(name string) celgo.EnvOption {
	overloads := make([]celgo.FunctionOpt, 0, callArity+1)
	for arity := 0; arity <= callArity; arity++ {
		argTypes := make([]*celgo.Type, arity)
		for i := range argTypes {
			argTypes[i] = celgo.DynType
		}
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("%s_dyn_%d", strings.ToLower(name), arity),
			argTypes,
			celgo.DynType,
			celgo.FunctionBinding(func(values ...ref.Val) ref.Val {
				return e.invoke(name, values)
			}),
		))
	}
	return celgo.Function(name, overloads...)
}

// callFunction declares call(name, args...) for parity with the other
// engines.
func (e *celEvaluator) callFunction() celgo.EnvOption {
	overloads := make([]celgo.FunctionOpt, 0, callArity+1)
	for arity := 0; arity <= callArity; arity++ {
		argTypes := []*celgo.Type{celgo.StringType}
		for i := 0; i < arity; i++ {
			argTypes = append(argTypes, celgo.DynType)
		}
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("call_string_dyn_%d", arity),
			argTypes,
			celgo.DynType,
			celgo.FunctionBinding(func(values ...ref.Val) ref.Val {
				name, ok := values[0].Value().(string)
				if !ok {
					return types.NewErr("treeselect: call name must be string")
				}
				return e.invoke(name, values[1:])
			}),
		))
	}
	return celgo.Function("call", overloads...)
}

func (e *celEvaluator) invoke(name string, values []ref.Val) ref.Val {
	args := make([]any, 0, len(values))
	for _, val := range values {
		args = append(args, val.Value())
	}
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
	declared   []string
	program    celgo.Program
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError(engineCEL, fmt.Errorf("compiled rule missing evaluator"))
	}
	ctx = ctx.withDefaults()
	snapshot := snapshotAsMap(ctx.Snapshot)
	program := r.program
	if program == nil || !declaresAll(r.declared, snapshot) {
		compiled, err := r.evaluator.loadOrCompile(r.expression, variableNames(snapshot, r.declared))
		if err != nil {
			return nil, wrapEvaluationError(engineCEL, r.expression, ctx.scopeLabel(), err)
		}
		program = compiled
	}
	return r.evaluator.run(ctx, r.expression, program, snapshot)
}

func variableNames(snapshot map[string]any, declared []string) []string {
	seen := map[string]struct{}{"now": {}, "args": {}, "metadata": {}, "scope": {}}
	var names []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for _, name := range declared {
		add(name)
	}
	for key := range snapshot {
		add(key)
	}
	sort.Strings(names)
	return names
}

func declaresAll(declared []string, snapshot map[string]any) bool {
	set := make(map[string]struct{}, len(declared))
	for _, name := range declared {
		set[name] = struct{}{}
	}
	for key := range snapshot {
		if _, ok := set[key]; !ok {
			return false
		}
	}
	return true
}
