package expressions

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torbjokv/formexpr/pkg/schema"
)

// BaseType is one of the three castable scalar types of the expression
// language. null is not a BaseType: it is a runtime value permitted where
// the target rule is nullable.
type BaseType string

const (
	BaseBoolean BaseType = "boolean"
	BaseString  BaseType = "string"
	BaseNumber  BaseType = "number"
)

// castRule declares how values coerce into one BaseType.
type castRule struct {
	nullable bool
	accepts  []Kind
	coerce   func(v any, c *Context) (any, error)
}

// castRules is the immutable, process-wide coercion table.
var castRules = map[BaseType]castRule{
	BaseBoolean: {
		nullable: true,
		accepts:  []Kind{KindBool, KindString, KindNumber},
		coerce:   coerceBoolean,
	},
	BaseString: {
		nullable: true,
		accepts:  []Kind{KindString, KindNumber, KindBool},
		coerce:   coerceString,
	},
	BaseNumber: {
		nullable: true,
		accepts:  []Kind{KindNumber, KindString},
		coerce:   coerceNumber,
	},
}

var (
	intPattern     = regexp.MustCompile(`^-?\d+$`)
	decimalPattern = regexp.MustCompile(`^-?\d+\.\d+$`)
)

// Cast coerces v into the target base type. Nullable targets map null,
// missing and the literal string "null" to nil without error. Unsupported
// source kinds fail with UNKNOWN_SOURCE_TYPE; supported kinds whose value
// cannot be represented in the target fail with UNEXPECTED_TYPE.
func Cast(v any, target BaseType, c *Context) (any, error) {
	rule, ok := castRules[target]
	if !ok {
		return nil, c.errorAt(schema.NewErrorf(schema.ErrCodeUnknownTargetType,
			"unknown target type %q", string(target)))
	}

	if rule.nullable && isNullLike(v) {
		return nil, nil
	}

	kind := KindOf(v)
	accepted := false
	for _, k := range rule.accepts {
		if k == kind {
			accepted = true
			break
		}
	}
	if !accepted {
		return nil, c.errorAt(schema.NewErrorf(schema.ErrCodeUnknownSourceType,
			"cannot cast %s to %s; accepted source kinds: %s",
			kind, target, acceptedKinds(rule)).
			WithDetails(map[string]any{"value": v}))
	}

	return rule.coerce(v, c)
}

// isNullLike reports whether v counts as null for a nullable target:
// nil or the exact literal string "null".
func isNullLike(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == "null"
}

func acceptedKinds(rule castRule) string {
	names := make([]string, 0, len(rule.accepts)+1)
	for _, k := range rule.accepts {
		names = append(names, k.String())
	}
	if rule.nullable {
		names = append(names, "null")
	}
	return strings.Join(names, ", ")
}

// coerceBoolean maps booleans through, the exact strings "true"/"false"
// directly, and strictly numeric representations via 1/0.
func coerceBoolean(v any, c *Context) (any, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch val {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		if intPattern.MatchString(val) || decimalPattern.MatchString(val) {
			f, err := strconv.ParseFloat(val, 64)
			if err == nil {
				if f == 1 {
					return true, nil
				}
				if f == 0 {
					return false, nil
				}
			}
		}
		return nil, c.errorAt(schema.NewErrorf(schema.ErrCodeUnexpectedType,
			"expected boolean, got value %q", val))
	default:
		f, ok := toFloat(v)
		if ok {
			if f == 1 {
				return true, nil
			}
			if f == 0 {
				return false, nil
			}
		}
		return nil, c.errorAt(schema.NewErrorf(schema.ErrCodeUnexpectedType,
			"expected boolean, got value %v", v))
	}
}

// coerceString serializes numbers and booleans to their canonical text form.
// String input is special-cased case-insensitively: "null" becomes nil and
// "true"/"false" canonicalize to lowercase; everything else passes through.
func coerceString(v any, _ *Context) (any, error) {
	switch val := v.(type) {
	case string:
		switch strings.ToLower(val) {
		case "null":
			return nil, nil
		case "true":
			return "true", nil
		case "false":
			return "false", nil
		}
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		f, _ := toFloat(v)
		return formatNumber(f), nil
	}
}

// coerceNumber passes numbers through and parses strings against strict
// integer and decimal patterns.
func coerceNumber(v any, c *Context) (any, error) {
	if f, ok := toFloat(v); ok {
		return f, nil
	}
	val, ok := v.(string)
	if !ok {
		return nil, c.errorAt(schema.NewErrorf(schema.ErrCodeUnexpectedType,
			"expected number, got value %v", v))
	}
	if intPattern.MatchString(val) || decimalPattern.MatchString(val) {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f, nil
		}
	}
	return nil, c.errorAt(schema.NewErrorf(schema.ErrCodeUnexpectedType,
		"expected number, got value %q", val))
}

// formatNumber renders a float in canonical scalar form: integers without a
// decimal point, everything else with the shortest exact representation.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
