package expressions

import "fmt"

// Resolve walks a JSON-like configuration value and replaces every embedded
// expression with its evaluated result. The input is never mutated; the
// output preserves the input's shape everywhere an expression was not found.
//
// Expression detection at an array:
//   - with a defaults map, the array is an expression exactly when the map
//     holds a non-nil entry for the array's dotted path; the entry doubles
//     as the recovery value for that expression,
//   - without a defaults map, a structural heuristic applies: the first
//     element names a known function and the rest of the array is a
//     plausible argument list.
//
// Detection through a defaults map means failures recover to the default;
// heuristic detection has no default, so failures are fatal.
func Resolve(input any, defaults map[string]any, binding Binding, sources *Sources, opts ...Option) (any, error) {
	s := &scanner{defaults: defaults, binding: binding, sources: sources, opts: opts}
	return s.resolve(input, nil)
}

type scanner struct {
	defaults map[string]any
	binding  Binding
	sources  *Sources
	opts     []Option
}

func (s *scanner) resolve(value any, path []string) (any, error) {
	switch v := value.(type) {
	case []any:
		return s.resolveArray(v, path)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, entry := range v {
			resolved, err := s.resolve(entry, append(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

func (s *scanner) resolveArray(arr []any, path []string) (any, error) {
	isExpr, defaultValue, hasDefault := s.detect(arr, path)
	if isExpr {
		opts := make([]Option, 0, len(s.opts)+2)
		opts = append(opts, s.opts...)
		opts = append(opts, WithErrorIntro(fmt.Sprintf(
			"resolving expression at %s for %s", renderPath(path), s.binding.Identifier())))
		if hasDefault {
			opts = append(opts, WithDefault(defaultValue))
		}
		return Evaluate(arr, s.binding, s.sources, opts...)
	}

	out := make([]any, len(arr))
	for i, entry := range arr {
		resolved, err := s.resolve(entry, append(path, fmt.Sprintf("[%d]", i)))
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

// detect decides whether an array at path is an expression and, when the
// decision came from the defaults map, which recovery value applies.
// A nil map entry counts the same as a missing key: not an expression.
func (s *scanner) detect(arr []any, path []string) (isExpr bool, defaultValue any, hasDefault bool) {
	if s.defaults != nil {
		v, ok := s.defaults[renderPath(path)]
		if !ok || v == nil {
			return false, nil, false
		}
		return true, v, true
	}
	return looksLikeExpression(arr), nil, false
}

// looksLikeExpression is the structural heuristic used when no defaults map
// is supplied: a non-empty array whose first element is a registered
// function name and whose remaining elements are scalars or nested arrays.
func looksLikeExpression(arr []any) bool {
	if len(arr) == 0 {
		return false
	}
	name, ok := arr[0].(string)
	if !ok {
		return false
	}
	if _, known := Lookup(name); !known {
		return false
	}
	for _, arg := range arr[1:] {
		switch KindOf(arg) {
		case KindNull, KindBool, KindNumber, KindString, KindArray:
		default:
			return false
		}
	}
	return true
}
