package expressions

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/torbjokv/formexpr/pkg/schema"
)

// Option configures a single top-level evaluation.
type Option func(*evalOptions)

type evalOptions struct {
	defaultValue any
	hasDefault   bool
	errorIntro   string
	logger       *slog.Logger
}

// WithDefault supplies a recovery value: evaluation errors are logged and
// the default returned instead, and a null result is replaced by it.
func WithDefault(v any) Option {
	return func(o *evalOptions) {
		o.defaultValue = v
		o.hasDefault = true
	}
}

// WithErrorIntro prefixes recovery log messages, typically identifying the
// configuration location the expression came from.
func WithErrorIntro(intro string) Option {
	return func(o *evalOptions) {
		o.errorIntro = intro
	}
}

// WithLogger routes recovery logging. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *evalOptions) {
		o.logger = l
	}
}

// Evaluate runs one expression against the given node binding and data
// sources.
//
// Errors raised by the language itself (unknown function, failed cast,
// failed lookup, ...) are recoverable: with WithDefault they are logged and
// the default substituted; without it they are re-raised as a fatal error
// embedding the expression, the failing path and the bound component.
// Any other error is a programming defect and propagates unchanged.
func Evaluate(expression any, binding Binding, sources *Sources, opts ...Option) (any, error) {
	o := evalOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	root := newContext(expression, binding, sources)

	out, err := evaluate(root)
	if err != nil {
		var xerr *schema.ExprError
		if !errors.As(err, &xerr) {
			return nil, err
		}
		if o.hasDefault {
			o.logger.Error("expression evaluation failed, using default value",
				slog.String("intro", o.errorIntro),
				slog.String("path", xerr.Path),
				slog.String("component", binding.Identifier()),
				slog.String("code", xerr.Code),
				slog.String("error", xerr.Message),
			)
			return o.defaultValue, nil
		}
		return nil, fatalError(expression, binding, xerr)
	}

	if out == nil && o.hasDefault {
		return o.defaultValue, nil
	}
	return out, nil
}

// evaluate is the recursive step: resolve the function, evaluate and cast
// each argument (slot 0 is the function name, so argument paths are
// 1-indexed), invoke the implementation, cast the result.
func evaluate(c *Context) (any, error) {
	expr, err := asExpression(c)
	if err != nil {
		return nil, err
	}

	name := expr[0].(string)
	def, ok := Lookup(name)
	if !ok {
		return nil, c.errorAt(schema.NewErrorf(schema.ErrCodeUnknownFunction,
			"unknown function %q", name))
	}

	rawArgs := expr[1:]
	if def.Validate != nil {
		if verr := def.Validate(rawArgs); verr != nil {
			var xerr *schema.ExprError
			if errors.As(verr, &xerr) {
				return nil, c.errorAt(xerr)
			}
			return nil, c.errorAt(schema.NewError(schema.ErrCodeValidation, verr.Error()))
		}
	}
	if def.Variadic && def.MinArgs >= 0 && len(rawArgs) < def.MinArgs {
		return nil, c.errorAt(schema.NewErrorf(schema.ErrCodeValidation,
			"expected at least %d argument(s) to %q, got %d", def.MinArgs, name, len(rawArgs)))
	}

	args := make([]any, len(rawArgs))
	for i, raw := range rawArgs {
		child := c.child(raw, fmt.Sprintf("[%d]", i+1))

		val := raw
		if _, isExpr := raw.([]any); isExpr {
			sub, err := evaluate(child)
			if err != nil {
				return nil, err
			}
			val = sub
		}

		if expected, hasExpected := def.argType(i); hasExpected && !def.castExempt(i) {
			cast, err := Cast(val, expected, child)
			if err != nil {
				return nil, err
			}
			val = cast
		}
		args[i] = val
	}

	out, err := def.Impl(c, args)
	if err != nil {
		return nil, err
	}

	if def.RawReturn {
		return out, nil
	}
	return Cast(out, def.Returns, c)
}

// asExpression checks the context's value is a structurally valid
// expression: a non-empty array whose first element is a string.
func asExpression(c *Context) ([]any, error) {
	expr, ok := c.expr.([]any)
	if !ok {
		return nil, c.errorAt(schema.NewErrorf(schema.ErrCodeValidation,
			"expression must be an array, got %s", KindOf(c.expr)))
	}
	if len(expr) == 0 {
		return nil, c.errorAt(schema.NewError(schema.ErrCodeValidation,
			"expression is empty; expected [function, ...arguments]"))
	}
	if _, ok := expr[0].(string); !ok {
		return nil, c.errorAt(schema.NewErrorf(schema.ErrCodeValidation,
			"first element of an expression must be a function name, got %s", KindOf(expr[0])))
	}
	return expr, nil
}

// fatalError wraps an unrecovered evaluation error with full diagnostic
// context for the caller.
func fatalError(expression any, binding Binding, cause *schema.ExprError) error {
	rendered, err := json.Marshal(expression)
	if err != nil {
		rendered = []byte(fmt.Sprintf("%v", expression))
	}
	return schema.NewErrorf(schema.ErrCodeEvaluation,
		"evaluation of %s failed: %s", rendered, cause.Message).
		WithPath(cause.Path).
		WithComponent(binding.Identifier()).
		WithCause(cause)
}
