// Package rules evaluates legacy conditional rendering rules: named textual
// boolean conditions over flat form data, used by layouts that predate array
// expressions. The array expression language in internal/expressions is the
// replacement; this engine keeps old configurations working.
package rules

import (
	"context"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/torbjokv/formexpr/pkg/schema"
)

// Action says what a matched rule does to its target components.
type Action string

const (
	ActionShow Action = "Show"
	ActionHide Action = "Hide"
)

// Rule is one conditional rendering rule.
type Rule struct {
	ID        string   `json:"id"`
	Condition string   `json:"condition"`
	Action    Action   `json:"action"`
	Targets   []string `json:"targets"`
}

// Engine compiles and evaluates rule conditions.
// Thread-safe: compiled *vm.Program objects are cached and reused across
// goroutines.
type Engine struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewEngine creates a new rule condition engine.
func NewEngine() *Engine {
	return &Engine{cache: make(map[string]*vm.Program)}
}

// Condition compiles (or retrieves from cache) a boolean condition and
// evaluates it against the provided form data. Every key of data is exposed
// as a top-level variable.
func (e *Engine) Condition(ctx context.Context, condition string, data map[string]any) (bool, error) {
	if condition == "" {
		return false, schema.NewError(schema.ErrCodeValidation, "empty rule condition")
	}

	prg, err := e.getOrCompile(condition, data)
	if err != nil {
		return false, err
	}

	env := data
	if env == nil {
		env = map[string]any{}
	}

	out, err := vm.Run(prg, env)
	if err != nil {
		return false, schema.NewErrorf(schema.ErrCodeEvaluation,
			"rule condition %q failed: %s", condition, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"condition": condition})
	}

	result, ok := out.(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeUnexpectedType,
			"rule condition %q returned %T, expected boolean", condition, out).
			WithDetails(map[string]any{"condition": condition})
	}
	return result, nil
}

// Hidden applies a rule set to form data and returns, per component ID,
// whether the component ends up hidden. Show rules reveal their targets on
// match, Hide rules conceal them; later rules win over earlier ones.
func (e *Engine) Hidden(ctx context.Context, ruleSet []Rule, data map[string]any) (map[string]bool, error) {
	hidden := make(map[string]bool)
	for _, r := range ruleSet {
		matched, err := e.Condition(ctx, r.Condition, data)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		for _, target := range r.Targets {
			hidden[target] = r.Action == ActionHide
		}
	}
	return hidden, nil
}

// getOrCompile returns a cached compiled program or compiles and caches a
// new one. The data map is used to infer the environment for compilation.
func (e *Engine) getOrCompile(condition string, data map[string]any) (*vm.Program, error) {
	e.mu.RLock()
	if prg, ok := e.cache[condition]; ok {
		e.mu.RUnlock()
		return prg, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check after acquiring write lock.
	if prg, ok := e.cache[condition]; ok {
		return prg, nil
	}

	env := data
	if env == nil {
		env = map[string]any{}
	}

	prg, err := expr.Compile(condition,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"rule condition compile error in %q: %s", condition, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"condition": condition})
	}

	e.cache[condition] = prg
	return prg, nil
}
