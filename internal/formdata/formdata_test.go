package formdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCopies(t *testing.T) {
	src := map[string]string{"a": "1"}
	fd := New(src)
	src["a"] = "mutated"

	v, ok := fd.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestGet(t *testing.T) {
	fd := New(map[string]string{
		"Person.Name": "Ada",
		"Empty":       "",
	})

	v, ok := fd.Get("Person.Name")
	assert.True(t, ok)
	assert.Equal(t, "Ada", v)

	// Present-but-empty differs from absent.
	v, ok = fd.Get("Empty")
	assert.True(t, ok)
	assert.Equal(t, "", v)

	_, ok = fd.Get("Missing")
	assert.False(t, ok)
}

func TestRowCount(t *testing.T) {
	fd := New(map[string]string{
		"People[0].Name":         "Bo",
		"People[0].Age":          "17",
		"People[2].Name":         "Cy",
		"People[10].Name":        "Di",
		"PeopleArchive[0].Name":  "old",
		"Pets[0].Toys[1].Label":  "ball",
	})

	// Distinct indexes directly under the binding, gaps included.
	assert.Equal(t, 3, fd.RowCount("People"))

	// Prefix match must stop at the bracket: PeopleArchive is not People.
	assert.Equal(t, 1, fd.RowCount("PeopleArchive"))

	// Nested bindings count their own level only.
	assert.Equal(t, 1, fd.RowCount("Pets"))
	assert.Equal(t, 1, fd.RowCount("Pets[0].Toys"))

	assert.Equal(t, 0, fd.RowCount("Nope"))
}

func TestPaths(t *testing.T) {
	fd := New(map[string]string{"b": "2", "a": "1", "c": "3"})
	assert.Equal(t, []string{"a", "b", "c"}, fd.Paths())
}

func TestAsAnyMap(t *testing.T) {
	fd := New(map[string]string{"a": "1"})
	m := fd.AsAnyMap()
	assert.Equal(t, map[string]any{"a": "1"}, m)
}
