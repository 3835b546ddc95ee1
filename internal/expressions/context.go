package expressions

import (
	"strings"

	"github.com/torbjokv/formexpr/internal/layout"
	"github.com/torbjokv/formexpr/pkg/schema"
)

// FormDataReader looks up a form data value by dotted path.
type FormDataReader interface {
	Get(path string) (string, bool)
}

// SettingsReader looks up an application setting by key.
type SettingsReader interface {
	Get(key string) (string, bool)
}

// SettingsMap adapts a plain map to the SettingsReader interface.
type SettingsMap map[string]string

// Get returns the setting stored under key.
func (m SettingsMap) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Sources bundles the read-only data sources an evaluation may consult.
// All lookups are treated as immutable for the duration of one evaluation.
type Sources struct {
	FormData FormDataReader
	Instance *schema.Instance
	Settings SettingsReader
}

// Binding identifies the component tree position an expression is attached
// to: the evaluation root (no component context at all), explicitly no
// component, or one concrete node.
type Binding struct {
	kind bindingKind
	node *layout.Node
}

type bindingKind int

const (
	bindingRoot bindingKind = iota
	bindingAbsent
	bindingNode
)

// RootBinding marks an expression evaluated outside any component tree.
func RootBinding() Binding {
	return Binding{kind: bindingRoot}
}

// AbsentBinding marks an expression attached to no component.
func AbsentBinding() Binding {
	return Binding{kind: bindingAbsent}
}

// NodeBinding attaches an expression to a concrete component node.
func NodeBinding(n *layout.Node) Binding {
	if n == nil {
		return AbsentBinding()
	}
	return Binding{kind: bindingNode, node: n}
}

// Node returns the bound node. The bool result is false unless the binding
// is concrete.
func (b Binding) Node() (*layout.Node, bool) {
	if b.kind == bindingNode {
		return b.node, true
	}
	return nil, false
}

// Identifier renders the binding for diagnostics.
func (b Binding) Identifier() string {
	switch b.kind {
	case bindingNode:
		return b.node.ID()
	case bindingAbsent:
		return "<no component>"
	default:
		return "<root>"
	}
}

// Context is the per-step evaluation record: the expression under
// evaluation, the path from the evaluation root, the node binding and the
// data sources. A new Context is derived at every recursion step; contexts
// are never mutated.
type Context struct {
	expr    any
	path    []string
	binding Binding
	sources *Sources
}

func newContext(expr any, binding Binding, sources *Sources) *Context {
	if sources == nil {
		sources = &Sources{}
	}
	return &Context{expr: expr, binding: binding, sources: sources}
}

// child derives a Context for a sub-value, extending the path with segment.
// Index segments have the form "[i]" and attach to the previous segment
// when rendered.
func (c *Context) child(expr any, segment string) *Context {
	path := make([]string, 0, len(c.path)+1)
	path = append(path, c.path...)
	path = append(path, segment)
	return &Context{expr: expr, path: path, binding: c.binding, sources: c.sources}
}

// Path renders the traversal from the evaluation root, e.g. "a.b[2].c".
func (c *Context) Path() string {
	return renderPath(c.path)
}

func renderPath(segments []string) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 && !strings.HasPrefix(seg, "[") {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

// Binding returns the node binding shared by all contexts of one evaluation.
func (c *Context) Binding() Binding {
	return c.binding
}

// Sources returns the data source bundle.
func (c *Context) Sources() *Sources {
	return c.sources
}

// RequireNode returns the bound component node, or a NODE_REQUIRED error
// when the expression is not attached to a concrete component.
func (c *Context) RequireNode() (*layout.Node, error) {
	n, ok := c.binding.Node()
	if !ok {
		return nil, schema.NewError(schema.ErrCodeNodeRequired,
			"expression needs a component reference, but is not attached to any component").
			WithPath(c.Path())
	}
	return n, nil
}

// errorAt stamps an evaluation error with the context's path and component.
func (c *Context) errorAt(err *schema.ExprError) *schema.ExprError {
	if err.Path == "" {
		err.Path = c.Path()
	}
	if err.ComponentID == "" {
		if n, ok := c.binding.Node(); ok {
			err.ComponentID = n.ID()
		}
	}
	return err
}
