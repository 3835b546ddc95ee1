package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torbjokv/formexpr/internal/formdata"
)

func TestApplyRules(t *testing.T) {
	dir := t.TempDir()
	rulesFile := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(rulesFile, []byte(`[
		{"id": "hidePets", "condition": "HasPets == \"false\"", "action": "Hide",
		 "targets": ["petName", "extra-info"]}
	]`), 0o644))

	resolved := []any{
		map[string]any{"id": "name", "hidden": false},
		map[string]any{"id": "petName-0", "hidden": false},
		map[string]any{"id": "petName-1-2", "hidden": false},
		map[string]any{"id": "extra-info", "hidden": false},
	}
	fd := formdata.New(map[string]string{"HasPets": "false"})

	out, err := applyRules(context.Background(), rulesFile, resolved, fd)
	require.NoError(t, err)

	byID := make(map[string]map[string]any)
	for _, entry := range out {
		m := entry.(map[string]any)
		byID[m["id"].(string)] = m
	}

	// Untargeted components keep their resolved value.
	assert.Equal(t, false, byID["name"]["hidden"])

	// Targets match both plain ids and row-expanded variants.
	assert.Equal(t, true, byID["petName-0"]["hidden"])
	assert.Equal(t, true, byID["petName-1-2"]["hidden"])

	// Hyphenated ids match without suffix stripping.
	assert.Equal(t, true, byID["extra-info"]["hidden"])
}

func TestApplyRulesNoMatch(t *testing.T) {
	dir := t.TempDir()
	rulesFile := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(rulesFile, []byte(`[
		{"id": "never", "condition": "A == \"1\"", "action": "Hide", "targets": ["x"]}
	]`), 0o644))

	resolved := []any{map[string]any{"id": "x", "hidden": false}}
	out, err := applyRules(context.Background(), rulesFile, resolved, formdata.New(nil))
	require.NoError(t, err)
	assert.Equal(t, false, out[0].(map[string]any)["hidden"])
}

func TestApplyRulesBadFile(t *testing.T) {
	_, err := applyRules(context.Background(), "/nope/rules.json", nil, nil)
	assert.Error(t, err)
}
