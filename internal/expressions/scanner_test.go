package expressions

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torbjokv/formexpr/pkg/schema"
)

func TestResolveIdempotence(t *testing.T) {
	// A tree with no expressions comes back deep-equal.
	input := map[string]any{
		"title":    "Person",
		"required": true,
		"rows":     []any{map[string]any{"c": float64(5)}, "x"},
		"nested":   map[string]any{"empty": nil},
	}

	out, err := Resolve(input, nil, RootBinding(), &Sources{})
	require.NoError(t, err)
	assert.Equal(t, input, out)

	// The output is a copy, not the same maps.
	outMap := out.(map[string]any)
	outMap["title"] = "mutated"
	assert.Equal(t, "Person", input["title"])
}

func TestResolveHeuristicDetection(t *testing.T) {
	input := map[string]any{
		"a": []any{"equals", "x", "x"},
		"b": map[string]any{"c": float64(5)},
	}

	out, err := Resolve(input, nil, RootBinding(), &Sources{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": true,
		"b": map[string]any{"c": float64(5)},
	}, out)
}

func TestResolveHeuristicRejections(t *testing.T) {
	tests := []struct {
		name  string
		input []any
	}{
		{"unknown function name", []any{"frobnicate", "x"}},
		{"non-string head", []any{42, "x"}},
		{"object argument", []any{"equals", map[string]any{}, "x"}},
		{"empty array", []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Resolve(tt.input, nil, RootBinding(), &Sources{})
			require.NoError(t, err)
			assert.Equal(t, tt.input, out)
		})
	}
}

func TestResolveWithDefaultsMap(t *testing.T) {
	input := map[string]any{
		"hidden":  []any{"equals", "a", "a"},
		"options": []any{"one", "two"},
	}
	defaults := map[string]any{
		"hidden": false,
	}

	out, err := Resolve(input, defaults, RootBinding(), &Sources{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"hidden": true,
		// Not in the defaults map: plain data, even though "one" is not a
		// function and the array could never be an expression anyway.
		"options": []any{"one", "two"},
	}, out)
}

func TestResolveDefaultsMapOverridesHeuristic(t *testing.T) {
	// With a defaults map, arrays that look like expressions but have no
	// entry stay untouched.
	input := map[string]any{
		"a": []any{"equals", "x", "x"},
	}
	out, err := Resolve(input, map[string]any{"other": true}, RootBinding(), &Sources{})
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestResolveNilDefaultEntry(t *testing.T) {
	// A nil entry counts as a missing key: not an expression.
	input := map[string]any{
		"a": []any{"equals", "x", "x"},
	}
	out, err := Resolve(input, map[string]any{"a": nil}, RootBinding(), &Sources{})
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestResolveDefaultRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	input := map[string]any{
		"hidden": []any{"instanceContext", "bogus"},
	}
	defaults := map[string]any{"hidden": false}

	out, err := Resolve(input, defaults, RootBinding(), &Sources{}, WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"hidden": false}, out)

	logged := buf.String()
	assert.Contains(t, logged, "resolving expression at hidden for <root>")
	assert.Contains(t, logged, schema.ErrCodeLookupNotFound)
}

func TestResolveHeuristicFailureIsFatal(t *testing.T) {
	// Heuristic detection has no default to fall back on.
	input := map[string]any{
		"hidden": []any{"instanceContext", "bogus"},
	}
	_, err := Resolve(input, nil, RootBinding(), &Sources{})
	assertFatal(t, err, schema.ErrCodeLookupNotFound)
}

func TestResolveNestedPaths(t *testing.T) {
	// Defaults map keys use dotted paths with bracketed indexes.
	input := map[string]any{
		"panel": map[string]any{
			"rows": []any{
				map[string]any{"title": []any{"concat", "row ", "one"}},
			},
		},
	}
	defaults := map[string]any{
		"panel.rows[0].title": "untitled",
	}

	out, err := Resolve(input, defaults, RootBinding(), &Sources{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"panel": map[string]any{
			"rows": []any{
				map[string]any{"title": "row one"},
			},
		},
	}, out)
}

func TestResolveScalarsPassThrough(t *testing.T) {
	for _, v := range []any{nil, "x", float64(3), true} {
		out, err := Resolve(v, nil, RootBinding(), &Sources{})
		require.NoError(t, err)
		assert.Equal(t, v, out)
	}
}
