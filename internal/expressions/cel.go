package expressions

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// celCostLimit caps the evaluation cost of a single CEL predicate run.
const celCostLimit = 100_000

// celVariables are the top-level names a CEL predicate can reference:
//   - action:   the descriptor under test
//   - criteria: the discovery request
var celVariables = []string{"action", "criteria"}

// CELEngine evaluates CEL predicates. Unlike expr, descriptor fields are only
// reachable through "action" because CEL requires declared variables.
type CELEngine struct {
	env      *cel.Env
	programs *programCache[cel.Program]
}

// NewCELEngine creates a CEL engine declaring celVariables as map(string, dyn).
func NewCELEngine() (*CELEngine, error) {
	opts := make([]cel.EnvOption, 0, len(celVariables))
	for _, name := range celVariables {
		opts = append(opts, cel.Variable(name, cel.MapType(cel.StringType, cel.DynType)))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &CELEngine{env: env, programs: newProgramCache[cel.Program]()}, nil
}

func (e *CELEngine) Name() string { return "cel" }

// Evaluate runs expression against data. Keys other than the declared
// variables are ignored and missing variables are empty maps.
func (e *CELEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, emptyExpression(e.Name())
	}
	prg, err := e.programs.load(expression, e.compile)
	if err != nil {
		return nil, err
	}

	activation := make(map[string]any, len(celVariables))
	for _, key := range celVariables {
		v, ok := data[key]
		if !ok || v == nil {
			v = map[string]any{}
		}
		activation[key] = v
	}

	out, _, err := prg.ContextEval(ctx, activation)
	if err != nil {
		return nil, evalError(e.Name(), expression, err)
	}
	return out.Value(), nil
}

func (e *CELEngine) compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, compileError(e.Name(), expression, issues.Err())
	}
	prg, err := e.env.Program(ast, cel.CostLimit(celCostLimit))
	if err != nil {
		return nil, compileError(e.Name(), expression, err)
	}
	return prg, nil
}

var _ Engine = (*CELEngine)(nil)
