package schema

import "encoding/json"

// LayoutPage is the wire format of a single layout file:
//
//	{"data": {"layout": [ ...components... ]}}
type LayoutPage struct {
	Data LayoutData `json:"data"`
}

// LayoutData wraps the component list of a layout page.
type LayoutData struct {
	Layout []*Component `json:"layout"`
}

// Component is one component definition in a layout page. Any property value
// may be an embedded expression (an array whose first element is a function
// name); those stay as raw JSON-decoded values until the scanner resolves
// them. DataModelBindings ties the component to form data paths; the
// "simpleBinding" key is the one consulted by the component lookup function.
type Component struct {
	ID                string            `json:"id"`
	Type              string            `json:"type"`
	DataModelBindings map[string]string `json:"dataModelBindings,omitempty"`

	// Children lists child component IDs for Group components.
	Children []string `json:"children,omitempty"`

	// MaxCount > 1 marks a Group as repeating: its subtree is instantiated
	// once per data row and child IDs gain "-{row}" suffixes.
	MaxCount int `json:"maxCount,omitempty"`

	// Hidden is either a plain bool or an expression; resolved by the scanner.
	Hidden any `json:"hidden,omitempty"`

	// Extra carries the remaining component properties untouched, so the
	// scanner can resolve expressions anywhere in the configuration without
	// this package having to know every component type.
	Extra map[string]any `json:"-"`
}

// componentAlias avoids recursion in UnmarshalJSON/MarshalJSON.
type componentAlias Component

// knownComponentFields are the explicitly modeled JSON keys.
var knownComponentFields = map[string]struct{}{
	"id": {}, "type": {}, "dataModelBindings": {},
	"children": {}, "maxCount": {}, "hidden": {},
}

// UnmarshalJSON decodes the known fields and collects everything else in Extra.
func (c *Component) UnmarshalJSON(data []byte) error {
	var a componentAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range knownComponentFields {
		delete(all, k)
	}
	if len(all) == 0 {
		all = nil
	}
	*c = Component(a)
	c.Extra = all
	return nil
}

// MarshalJSON re-merges Extra with the known fields.
func (c *Component) MarshalJSON() ([]byte, error) {
	merged := make(map[string]any, len(c.Extra)+6)
	for k, v := range c.Extra {
		merged[k] = v
	}
	merged["id"] = c.ID
	merged["type"] = c.Type
	if len(c.DataModelBindings) > 0 {
		merged["dataModelBindings"] = c.DataModelBindings
	}
	if len(c.Children) > 0 {
		merged["children"] = c.Children
	}
	if c.MaxCount != 0 {
		merged["maxCount"] = c.MaxCount
	}
	if c.Hidden != nil {
		merged["hidden"] = c.Hidden
	}
	return json.Marshal(merged)
}

// IsRepeatingGroup reports whether the component is a repeating Group.
func (c *Component) IsRepeatingGroup() bool {
	return c.Type == "Group" && c.MaxCount > 1
}

// GroupBinding returns the data model binding a repeating Group iterates
// over, or "" when the component has none.
func (c *Component) GroupBinding() string {
	return c.DataModelBindings["group"]
}

// SimpleBinding returns the component's simple data model binding, or "".
func (c *Component) SimpleBinding() string {
	return c.DataModelBindings["simpleBinding"]
}
