// Package formdata holds the flat dotted-path representation of form data.
//
// Keys use the same traversal syntax as expression diagnostics and default
// value maps: dotted field names with bracketed row indexes, for example
// "Group[2].Field". All values are strings; typing happens in the expression
// engine's cast layer.
package formdata

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// FormData maps dotted data model paths to their current string values.
type FormData map[string]string

// New returns a FormData copied from m, so callers cannot mutate the engine's
// view mid-evaluation.
func New(m map[string]string) FormData {
	fd := make(FormData, len(m))
	for k, v := range m {
		fd[k] = v
	}
	return fd
}

// Get returns the value stored at path. The second result reports presence.
func (fd FormData) Get(path string) (string, bool) {
	v, ok := fd[path]
	return v, ok
}

var rowIndexPattern = regexp.MustCompile(`^\[(\d+)\]`)

// RowCount returns the number of rows present under a repeating group
// binding. A row i exists when any key starts with "binding[i]".
func (fd FormData) RowCount(binding string) int {
	seen := make(map[int]struct{})
	for key := range fd {
		if !strings.HasPrefix(key, binding) {
			continue
		}
		rest := key[len(binding):]
		m := rowIndexPattern.FindStringSubmatch(rest)
		if m == nil {
			continue
		}
		row, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		seen[row] = struct{}{}
	}
	return len(seen)
}

// Paths returns all keys in sorted order. Used for deterministic diagnostics.
func (fd FormData) Paths() []string {
	keys := make([]string, 0, len(fd))
	for k := range fd {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsAnyMap converts the form data into a map[string]any for engines that
// evaluate textual conditions over it.
func (fd FormData) AsAnyMap() map[string]any {
	out := make(map[string]any, len(fd))
	for k, v := range fd {
		out[k] = v
	}
	return out
}
