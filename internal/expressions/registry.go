package expressions

// Implementation is the Go body of a builtin function. Arguments arrive
// already cast per the definition's signature (except exempt positions);
// implementations read data sources and the bound node off the context.
type Implementation func(c *Context, args []any) (any, error)

// Definition declares one builtin: its signature, return type, modifiers
// and implementation. Definitions are registered once at init and never
// mutated, so the registry is safe for unlimited concurrent lookups.
type Definition struct {
	Name    string
	Args    []BaseType
	Returns BaseType

	// Variadic repeats the last signature type for all excess arguments.
	Variadic bool

	// MinArgs is the minimum accepted argument count for variadic
	// functions. -1 means no minimum beyond the signature itself.
	MinArgs int

	// RawArgs lists argument positions exempt from casting.
	RawArgs []int

	// RawReturn disables casting of the return value.
	RawReturn bool

	// Validate runs against the raw (uncast, unevaluated) arguments before
	// anything else; a non-nil error is reported as a validation failure.
	Validate func(rawArgs []any) error

	Impl Implementation
}

// argType returns the expected type for the 0-based argument position, or
// false when the position has no declared type.
func (d *Definition) argType(i int) (BaseType, bool) {
	if i < len(d.Args) {
		return d.Args[i], true
	}
	if d.Variadic && len(d.Args) > 0 {
		return d.Args[len(d.Args)-1], true
	}
	return "", false
}

// castExempt reports whether the 0-based argument position bypasses casting.
func (d *Definition) castExempt(i int) bool {
	for _, p := range d.RawArgs {
		if p == i {
			return true
		}
	}
	return false
}

// registry is the immutable builtin table, keyed by function name.
var registry = buildRegistry()

func buildRegistry() map[string]*Definition {
	defs := builtins()
	m := make(map[string]*Definition, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	return m
}

// Lookup resolves a function name against the builtin registry.
func Lookup(name string) (*Definition, bool) {
	d, ok := registry[name]
	return d, ok
}

// FunctionNames returns all registered function names. Order is unspecified.
func FunctionNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
