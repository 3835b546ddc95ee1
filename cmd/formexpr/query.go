package main

import (
	"context"
	"fmt"

	"github.com/itchyny/gojq"
)

// runQuery applies a jq filter to the resolved layout output, so developers
// can slice the result without piping through external tools.
//
// jq expressions can produce multiple outputs. When there is exactly one, it
// is returned directly; multiple outputs are collected into a slice.
func runQuery(ctx context.Context, expression string, input any) (any, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("jq parse error in %q: %w", expression, err)
	}

	code, err := gojq.Compile(query,
		// Sandbox: return empty env to block $ENV and env access.
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, fmt.Errorf("jq compile error in %q: %w", expression, err)
	}

	iter := code.RunWithContext(ctx, input)

	var results []any
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := val.(error); isErr {
			return nil, fmt.Errorf("jq evaluation failed for %q: %w", expression, err)
		}
		results = append(results, val)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}
