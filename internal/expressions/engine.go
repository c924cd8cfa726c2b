package expressions

import (
	"context"
	"strings"

	"github.com/rendis/nodeforge/pkg/schema"
)

// Engine evaluates expressions over discovery data.
// Two predicate dialects (Expr, CEL) filter descriptors; GoJQ projects results.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// NewPredicateEngine returns the predicate engine registered under name.
// An empty name selects expr.
func NewPredicateEngine(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "expr":
		return NewExprEngine(), nil
	case "cel":
		return NewCELEngine()
	}
	return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown predicate engine %q (want expr or cel)", name)
}
