package expressions

import (
	"strings"

	"github.com/torbjokv/formexpr/internal/layout"
	"github.com/torbjokv/formexpr/pkg/schema"
)

// builtins declares the closed function set of the expression language.
func builtins() []*Definition {
	return []*Definition{
		{
			Name:    "equals",
			Args:    []BaseType{BaseString, BaseString},
			Returns: BaseBoolean,
			MinArgs: -1,
			Impl: func(_ *Context, args []any) (any, error) {
				return argAt(args, 0) == argAt(args, 1), nil
			},
		},
		{
			Name:    "notEquals",
			Args:    []BaseType{BaseString, BaseString},
			Returns: BaseBoolean,
			MinArgs: -1,
			Impl: func(_ *Context, args []any) (any, error) {
				return argAt(args, 0) != argAt(args, 1), nil
			},
		},
		{
			Name:    "greaterThan",
			Args:    []BaseType{BaseNumber, BaseNumber},
			Returns: BaseBoolean,
			MinArgs: -1,
			Impl:    compareNumbers(func(a, b float64) bool { return a > b }),
		},
		{
			Name:    "greaterThanEq",
			Args:    []BaseType{BaseNumber, BaseNumber},
			Returns: BaseBoolean,
			MinArgs: -1,
			Impl:    compareNumbers(func(a, b float64) bool { return a >= b }),
		},
		{
			Name:    "lessThan",
			Args:    []BaseType{BaseNumber, BaseNumber},
			Returns: BaseBoolean,
			MinArgs: -1,
			Impl:    compareNumbers(func(a, b float64) bool { return a < b }),
		},
		{
			Name:    "lessThanEq",
			Args:    []BaseType{BaseNumber, BaseNumber},
			Returns: BaseBoolean,
			MinArgs: -1,
			Impl:    compareNumbers(func(a, b float64) bool { return a <= b }),
		},
		{
			Name:     "concat",
			Args:     []BaseType{BaseString},
			Returns:  BaseString,
			Variadic: true,
			MinArgs:  0,
			Impl: func(_ *Context, args []any) (any, error) {
				var b strings.Builder
				for _, a := range args {
					if s, ok := a.(string); ok {
						b.WriteString(s)
					}
				}
				return b.String(), nil
			},
		},
		{
			Name:     "and",
			Args:     []BaseType{BaseBoolean},
			Returns:  BaseBoolean,
			Variadic: true,
			MinArgs:  0,
			Impl: func(_ *Context, args []any) (any, error) {
				for _, a := range args {
					if a != true {
						return false, nil
					}
				}
				return true, nil
			},
		},
		{
			Name:     "or",
			Args:     []BaseType{BaseBoolean},
			Returns:  BaseBoolean,
			Variadic: true,
			MinArgs:  0,
			Impl: func(_ *Context, args []any) (any, error) {
				for _, a := range args {
					if a == true {
						return true, nil
					}
				}
				return false, nil
			},
		},
		{
			Name:    "if",
			Args:    []BaseType{BaseString, BaseString, BaseString, BaseString},
			Returns: BaseString,
			MinArgs: -1,
			// The condition and both branch values skip casting so
			// non-string sub-expression results flow through untouched.
			// The condition matches boolean true or the exact string
			// "true"; nothing else selects the then-branch.
			RawArgs:   []int{0, 1, 3},
			RawReturn: true,
			Validate:  validateIf,
			Impl: func(_ *Context, args []any) (any, error) {
				cond := argAt(args, 0)
				if cond == true || cond == "true" {
					return argAt(args, 1), nil
				}
				if len(args) >= 4 {
					return args[3], nil
				}
				return nil, nil
			},
		},
		{
			Name:    "instanceContext",
			Args:    []BaseType{BaseString},
			Returns: BaseString,
			MinArgs: -1,
			Impl:    fnInstanceContext,
		},
		{
			Name:    "frontendSettings",
			Args:    []BaseType{BaseString},
			Returns: BaseString,
			MinArgs: -1,
			Impl:    fnFrontendSettings,
		},
		{
			Name:    "component",
			Args:    []BaseType{BaseString},
			Returns: BaseString,
			MinArgs: -1,
			Impl:    fnComponent,
		},
		{
			Name:    "dataModel",
			Args:    []BaseType{BaseString},
			Returns: BaseString,
			MinArgs: -1,
			Impl:    fnDataModel,
		},
	}
}

// argAt returns args[i] or nil when the position is missing.
func argAt(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

// compareNumbers builds a numeric comparison that yields false, never an
// error, when either operand is null.
func compareNumbers(cmp func(a, b float64) bool) Implementation {
	return func(_ *Context, args []any) (any, error) {
		a, aok := argAt(args, 0).(float64)
		b, bok := argAt(args, 1).(float64)
		if !aok || !bok {
			return false, nil
		}
		return cmp(a, b), nil
	}
}

// validateIf accepts exactly 2 arguments, or exactly 4 where the third is
// the literal "else".
func validateIf(rawArgs []any) error {
	switch len(rawArgs) {
	case 2:
		return nil
	case 4:
		if rawArgs[2] != "else" {
			return schema.NewError(schema.ErrCodeValidation,
				`expected third argument of "if" to be the literal "else"`)
		}
		return nil
	default:
		return schema.NewErrorf(schema.ErrCodeValidation,
			`expected either 2 arguments (if) or 4 ("if" + "else"), got %d`, len(rawArgs))
	}
}

func fnInstanceContext(c *Context, args []any) (any, error) {
	key, _ := argAt(args, 0).(string)
	inst := c.Sources().Instance
	if inst == nil {
		return nil, c.errorAt(schema.NewError(schema.ErrCodeLookupNotFound,
			"no instance available for instanceContext lookup"))
	}
	val, ok := inst.ContextValue(key)
	if !ok {
		return nil, c.errorAt(schema.NewErrorf(schema.ErrCodeLookupNotFound,
			"unknown instance context key %q; valid keys: %s",
			key, strings.Join(schema.InstanceContextKeys(), ", ")))
	}
	return val, nil
}

func fnFrontendSettings(c *Context, args []any) (any, error) {
	key, _ := argAt(args, 0).(string)
	settings := c.Sources().Settings
	if settings == nil {
		return nil, nil
	}
	val, ok := settings.Get(key)
	if !ok {
		return nil, nil
	}
	return val, nil
}

func fnComponent(c *Context, args []any) (any, error) {
	id, _ := argAt(args, 0).(string)
	node, err := c.RequireNode()
	if err != nil {
		return nil, err
	}
	target := node.ClosestMatching(func(n *layout.Node) bool {
		return n.ID() == id || n.BaseID() == id
	})
	if target == nil {
		return nil, c.errorAt(schema.NewErrorf(schema.ErrCodeLookupNotFound,
			"unable to find component %q", id))
	}
	binding := target.Component().SimpleBinding()
	if binding == "" {
		return nil, c.errorAt(schema.NewErrorf(schema.ErrCodeLookupNotFound,
			"component %q has no simple data model binding", id))
	}
	path := target.TransposeDataModelPath(binding)
	return formDataValue(c, path), nil
}

func fnDataModel(c *Context, args []any) (any, error) {
	path, _ := argAt(args, 0).(string)
	node, err := c.RequireNode()
	if err != nil {
		return nil, err
	}
	return formDataValue(c, node.TransposeDataModelPath(path)), nil
}

// formDataValue reads a form data path, mapping absence to null.
func formDataValue(c *Context, path string) any {
	fd := c.Sources().FormData
	if fd == nil {
		return nil
	}
	val, ok := fd.Get(path)
	if !ok {
		return nil
	}
	return val
}
