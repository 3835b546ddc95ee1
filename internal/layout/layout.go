// Package layout builds the runtime component tree from layout page
// definitions. Repeating groups are expanded into one node per data row, so
// every node has a concrete position that data model paths can be transposed
// against.
package layout

import (
	"fmt"
	"strings"

	"github.com/torbjokv/formexpr/pkg/schema"
)

// RowCounter reports how many rows of data exist under a repeating group
// binding. Implemented by formdata.FormData.
type RowCounter interface {
	RowCount(binding string) int
}

// Tree is the generated component tree of a single layout page.
type Tree struct {
	roots []*Node
	all   []*Node
	byID  map[string]*Node
}

// Node is a positioned component: a component definition plus the repeating
// group rows it sits inside.
type Node struct {
	tree     *Tree
	comp     *schema.Component
	parent   *Node
	children []*Node

	// rows holds one entry per enclosing repeating group, outermost first.
	rows []rowBinding
}

// rowBinding records the substitution a repeating group row contributes to
// data model paths: the group binding (with outer substitutions already
// applied) and the row index.
type rowBinding struct {
	binding string
	row     int
}

// Generate expands a layout page into its component tree. Repeating group
// subtrees are instantiated once per data row reported by data.
func Generate(page *schema.LayoutPage, data RowCounter) (*Tree, error) {
	if page == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "layout page is nil")
	}

	byID := make(map[string]*schema.Component, len(page.Data.Layout))
	claimed := make(map[string]bool)
	for _, comp := range page.Data.Layout {
		if comp.ID == "" {
			return nil, schema.NewError(schema.ErrCodeValidation, "component without id in layout")
		}
		if _, dup := byID[comp.ID]; dup {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "duplicate component id %q", comp.ID)
		}
		byID[comp.ID] = comp
	}
	for _, comp := range page.Data.Layout {
		for _, childID := range comp.Children {
			if _, ok := byID[childID]; !ok {
				return nil, schema.NewErrorf(schema.ErrCodeValidation,
					"component %q references unknown child %q", comp.ID, childID)
			}
			if claimed[childID] {
				return nil, schema.NewErrorf(schema.ErrCodeValidation,
					"component %q claimed by more than one group", childID)
			}
			claimed[childID] = true
		}
	}

	t := &Tree{byID: make(map[string]*Node)}
	for _, comp := range page.Data.Layout {
		if claimed[comp.ID] {
			continue // reachable through its group
		}
		node, err := t.build(comp, nil, nil, byID, data)
		if err != nil {
			return nil, err
		}
		t.roots = append(t.roots, node)
	}
	return t, nil
}

// build creates the node for comp and recurses into group children,
// expanding repeating groups row by row.
func (t *Tree) build(comp *schema.Component, parent *Node, rows []rowBinding, byID map[string]*schema.Component, data RowCounter) (*Node, error) {
	node := &Node{tree: t, comp: comp, parent: parent, rows: rows}
	t.all = append(t.all, node)
	t.byID[node.ID()] = node

	if len(comp.Children) == 0 {
		return node, nil
	}

	if comp.IsRepeatingGroup() {
		binding := comp.GroupBinding()
		if binding == "" {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"repeating group %q has no group binding", comp.ID)
		}
		resolved := transpose(binding, rows)
		count := 0
		if data != nil {
			count = data.RowCount(resolved)
		}
		for row := 0; row < count; row++ {
			childRows := append(append([]rowBinding{}, rows...), rowBinding{binding: resolved, row: row})
			for _, childID := range comp.Children {
				child, err := t.build(byID[childID], node, childRows, byID, data)
				if err != nil {
					return nil, err
				}
				node.children = append(node.children, child)
			}
		}
		return node, nil
	}

	for _, childID := range comp.Children {
		child, err := t.build(byID[childID], node, rows, byID, data)
		if err != nil {
			return nil, err
		}
		node.children = append(node.children, child)
	}
	return node, nil
}

// ID returns the concrete node identifier: the component id with one "-row"
// suffix per enclosing repeating group row.
func (n *Node) ID() string {
	if len(n.rows) == 0 {
		return n.comp.ID
	}
	var b strings.Builder
	b.WriteString(n.comp.ID)
	for _, rb := range n.rows {
		fmt.Fprintf(&b, "-%d", rb.row)
	}
	return b.String()
}

// BaseID returns the component id as written in the layout file.
func (n *Node) BaseID() string {
	return n.comp.ID
}

// Component returns the underlying component definition.
func (n *Node) Component() *schema.Component {
	return n.comp
}

// Parent returns the enclosing group node, or nil for top-level components.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the node's direct children in document order.
func (n *Node) Children() []*Node {
	return n.children
}

// ClosestMatching finds the nearest node satisfying pred: the node itself,
// then its ancestors, then the rest of the page. Among page-wide candidates
// the one sharing the deepest row context wins, so a lookup from inside a
// repeating group row resolves to that row's instance; ties fall back to
// document order. Returns nil when nothing matches.
func (n *Node) ClosestMatching(pred func(*Node) bool) *Node {
	for cur := n; cur != nil; cur = cur.parent {
		if pred(cur) {
			return cur
		}
	}
	var best *Node
	bestShared := -1
	for _, cand := range n.tree.all {
		if !pred(cand) {
			continue
		}
		if shared := n.sharedRows(cand); shared > bestShared {
			best, bestShared = cand, shared
		}
	}
	return best
}

// sharedRows counts how many leading row bindings n and other have in common.
func (n *Node) sharedRows(other *Node) int {
	shared := 0
	for i := 0; i < len(n.rows) && i < len(other.rows); i++ {
		if n.rows[i] != other.rows[i] {
			break
		}
		shared++
	}
	return shared
}

// TransposeDataModelPath substitutes the node's repeating group row indexes
// into path. A path outside every enclosing group binding is returned
// unchanged.
func (n *Node) TransposeDataModelPath(path string) string {
	return transpose(path, n.rows)
}

// transpose applies row substitutions outermost first. Each binding in rows
// already carries the substitutions of the rows before it, so a plain prefix
// match suffices at every step.
func transpose(path string, rows []rowBinding) string {
	for _, rb := range rows {
		indexed := fmt.Sprintf("%s[%d]", rb.binding, rb.row)
		switch {
		case path == rb.binding:
			path = indexed
		case strings.HasPrefix(path, rb.binding+"."):
			path = indexed + path[len(rb.binding):]
		}
	}
	return path
}

// Roots returns the page's top-level nodes in document order.
func (t *Tree) Roots() []*Node {
	return t.roots
}

// All returns every generated node in document order.
func (t *Tree) All() []*Node {
	return t.all
}

// ByID finds a node by its concrete identifier.
func (t *Tree) ByID(id string) (*Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}
