package expressions

import (
	"context"

	"github.com/rendis/nodeforge/pkg/schema"
)

// Predicate is a compiled-on-first-use boolean filter over action descriptors.
type Predicate struct {
	engine     Engine
	expression string
	criteria   map[string]any
}

// NewPredicate binds expression to engine. criteria is exposed to the
// expression as "criteria" and may be nil.
func NewPredicate(engine Engine, expression string, criteria map[string]any) *Predicate {
	return &Predicate{engine: engine, expression: expression, criteria: criteria}
}

// Matches evaluates the predicate against d. Non-boolean results are a
// validation error.
func (p *Predicate) Matches(ctx context.Context, d schema.ActionDescriptor) (bool, error) {
	fields := d.Fields()
	data := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		data[k] = v
	}
	data["action"] = fields
	if p.criteria != nil {
		data["criteria"] = p.criteria
	} else {
		data["criteria"] = map[string]any{}
	}

	out, err := p.engine.Evaluate(ctx, p.expression, data)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"predicate %q returned %T, want bool", p.expression, out).
			WithDetails(map[string]any{"expression": p.expression, "engine": p.engine.Name()})
	}
	return b, nil
}

// Expression returns the source text of the predicate.
func (p *Predicate) Expression() string { return p.expression }
