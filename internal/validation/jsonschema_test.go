package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torbjokv/formexpr/pkg/schema"
)

func newTestValidator(t *testing.T) *LayoutValidator {
	t.Helper()
	v, err := NewLayoutValidator()
	require.NoError(t, err)
	return v
}

func TestValidatePage(t *testing.T) {
	v := newTestValidator(t)

	t.Run("valid page", func(t *testing.T) {
		page := `{
			"data": {
				"layout": [
					{"id": "name", "type": "Input",
					 "dataModelBindings": {"simpleBinding": "Person.Name"}},
					{"id": "people", "type": "Group", "maxCount": 3,
					 "dataModelBindings": {"group": "People"},
					 "children": ["age"]},
					{"id": "age", "type": "Input",
					 "hidden": ["equals", "x", "y"]}
				]
			}
		}`
		assert.NoError(t, v.ValidatePage([]byte(page)))
	})

	t.Run("plain boolean hidden", func(t *testing.T) {
		page := `{"data": {"layout": [{"id": "a", "type": "Input", "hidden": true}]}}`
		assert.NoError(t, v.ValidatePage([]byte(page)))
	})

	t.Run("empty input", func(t *testing.T) {
		assertValidation(t, v.ValidatePage(nil))
	})

	t.Run("invalid json", func(t *testing.T) {
		assertValidation(t, v.ValidatePage([]byte(`{"data":`)))
	})

	t.Run("missing data", func(t *testing.T) {
		assertValidation(t, v.ValidatePage([]byte(`{}`)))
	})

	t.Run("component without id", func(t *testing.T) {
		page := `{"data": {"layout": [{"type": "Input"}]}}`
		assertValidation(t, v.ValidatePage([]byte(page)))
	})

	t.Run("bad id characters", func(t *testing.T) {
		page := `{"data": {"layout": [{"id": "has spaces", "type": "Input"}]}}`
		assertValidation(t, v.ValidatePage([]byte(page)))
	})

	t.Run("hidden as object", func(t *testing.T) {
		page := `{"data": {"layout": [{"id": "a", "type": "Input", "hidden": {"x": 1}}]}}`
		assertValidation(t, v.ValidatePage([]byte(page)))
	})

	t.Run("maxCount below one", func(t *testing.T) {
		page := `{"data": {"layout": [{"id": "a", "type": "Group", "maxCount": 0}]}}`
		assertValidation(t, v.ValidatePage([]byte(page)))
	})
}

func TestValidatePageStructural(t *testing.T) {
	v := newTestValidator(t)

	t.Run("duplicate id", func(t *testing.T) {
		page := `{"data": {"layout": [
			{"id": "a", "type": "Input"},
			{"id": "a", "type": "Input"}
		]}}`
		err := v.ValidatePage([]byte(page))
		assertValidation(t, err)
		assert.Contains(t, err.Error(), "duplicate component id")
	})

	t.Run("dangling child", func(t *testing.T) {
		page := `{"data": {"layout": [
			{"id": "g", "type": "Group", "maxCount": 2, "children": ["ghost"]}
		]}}`
		err := v.ValidatePage([]byte(page))
		assertValidation(t, err)
		assert.Contains(t, err.Error(), "unknown child")
	})
}

func TestValidatePageCollectsViolations(t *testing.T) {
	v := newTestValidator(t)

	// Two broken components fail with the violations in the details.
	page := `{"data": {"layout": [
		{"id": "", "type": "Input"},
		{"id": "b", "type": ""}
	]}}`
	err := v.ValidatePage([]byte(page))
	require.Error(t, err)

	var xerr *schema.ExprError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, schema.ErrCodeValidation, xerr.Code)
	assert.NotEmpty(t, xerr.Details["violations"])
}

func assertValidation(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var xerr *schema.ExprError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, schema.ErrCodeValidation, xerr.Code)
}
