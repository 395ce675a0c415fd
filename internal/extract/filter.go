package extract

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/cel-go/cel"
)

// Filter is a compiled CEL predicate over extracted pairs. The expression
// sees category (the key prefix), account (Subject) and object (Object) and
// must return a bool. A nil Filter keeps everything.
type Filter struct {
	prog cel.Program
}

// CompileFilter compiles expr. An empty expression yields a nil Filter.
func CompileFilter(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("category", cel.StringType),
		cel.Variable("account", cel.StringType),
		cel.Variable("object", cel.StringType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "extract: cel env")
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, errors.Wrapf(iss.Err(), "extract: compile filter %q", expr)
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.Newf("extract: filter %q must return bool, got %s", expr, ast.OutputType())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(err, "extract: program %q", expr)
	}
	return &Filter{prog: prog}, nil
}

// Keep reports whether p in category passes the filter. Evaluation errors
// drop the pair.
func (f *Filter) Keep(category string, p Pair) bool {
	if f == nil {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"category": category,
		"account":  p.Subject,
		"object":   p.Object,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// Apply removes the pairs of set that fail the filter.
func (f *Filter) Apply(category string, set PairSet) {
	if f == nil {
		return
	}
	for p := range set {
		if !f.Keep(category, p) {
			delete(set, p)
		}
	}
}
