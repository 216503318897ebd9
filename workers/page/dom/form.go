package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Field is one name/value pair of a serialized form.
type Field struct {
	Name  string
	Value string
}

// Get returns the first value submitted under name.
func Get(fields []Field, name string) string {
	for _, f := range fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func (e *Element) Name() string {
	v, _ := attr(e.node, "name")
	return v
}

// InputType is the lower-cased type of an <input>, "text" when unset.
func (e *Element) InputType() string {
	v, ok := attr(e.node, "type")
	if !ok || v == "" {
		return "text"
	}
	return strings.ToLower(v)
}

func (e *Element) Disabled() bool {
	return e.HasAttr("disabled")
}

func (e *Element) isCheckable() bool {
	if e.node.DataAtom != atom.Input {
		return false
	}
	t := e.InputType()
	return t == "checkbox" || t == "radio"
}

// Checked is the current checkedness of a checkbox or radio.
func (e *Element) Checked() bool {
	if v, ok := e.doc.checked[e.node]; ok {
		return v
	}
	return e.HasAttr("checked")
}

// SetChecked changes checkedness. Checking a radio unchecks the rest of its group.
func (e *Element) SetChecked(checked bool) {
	e.doc.checked[e.node] = checked
	if !checked || e.InputType() != "radio" || e.Name() == "" {
		return
	}
	scope := e.doc.root
	if form := e.Form(); form != nil {
		scope = form.node
	}
	for _, other := range e.doc.collect(scope, func(n *html.Node) bool { return n.DataAtom == atom.Input }) {
		if other.node != e.node && other.InputType() == "radio" && other.Name() == e.Name() {
			e.doc.checked[other.node] = false
		}
	}
}

// Value is the current value of a form control.
func (e *Element) Value() string {
	if v, ok := e.doc.values[e.node]; ok {
		return v
	}
	switch e.node.DataAtom {
	case atom.Textarea:
		return e.Text()
	case atom.Select:
		if opt := e.selectedOption(); opt != nil {
			return opt.optionValue()
		}
		return ""
	case atom.Option:
		return e.optionValue()
	}
	v, ok := attr(e.node, "value")
	if !ok && e.isCheckable() {
		return "on"
	}
	return v
}

// SetValue sets the current value. A <select> only accepts the value of one of its
// options and is left unchanged otherwise.
func (e *Element) SetValue(value string) error {
	if e.node.DataAtom == atom.Select {
		found := false
		for _, o := range e.doc.collect(e.node, func(n *html.Node) bool { return n.DataAtom == atom.Option }) {
			if o.optionValue() == value {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("select %q has no option with value %q", e.Name(), value)
		}
	}
	e.doc.values[e.node] = value
	return nil
}

func (e *Element) optionValue() string {
	if v, ok := attr(e.node, "value"); ok {
		return v
	}
	return strings.TrimSpace(e.Text())
}

func (e *Element) selectedOption() *Element {
	options := e.doc.collect(e.node, func(n *html.Node) bool { return n.DataAtom == atom.Option })
	if len(options) == 0 {
		return nil
	}
	for _, o := range options {
		if o.HasAttr("selected") {
			return o
		}
	}
	return options[0]
}

// Form returns the nearest enclosing <form>, or nil.
func (e *Element) Form() *Element {
	for p := e.node.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.Form {
			return e.doc.wrap(p)
		}
	}
	return nil
}

// Controls lists the input, textarea and select elements inside a form, in tree order.
func (e *Element) Controls() []*Element {
	return e.doc.collect(e.node, func(n *html.Node) bool {
		switch n.DataAtom {
		case atom.Input, atom.Textarea, atom.Select:
			return true
		}
		return false
	})
}

// FormData serializes the successful controls of a form the way a browser builds FormData:
// named and enabled controls only, checkboxes and radios only when checked, buttons and
// file inputs skipped.
func (e *Element) FormData() []Field {
	var fields []Field
	for _, c := range e.Controls() {
		name := c.Name()
		if name == "" || c.Disabled() {
			continue
		}
		if c.node.DataAtom == atom.Input {
			switch c.InputType() {
			case "submit", "button", "reset", "image", "file":
				continue
			case "checkbox", "radio":
				if !c.Checked() {
					continue
				}
			}
		}
		if c.node.DataAtom == atom.Select && c.HasAttr("multiple") {
			if _, dirty := e.doc.values[c.node]; !dirty {
				for _, o := range e.doc.collect(c.node, func(n *html.Node) bool { return n.DataAtom == atom.Option }) {
					if o.HasAttr("selected") {
						fields = append(fields, Field{Name: name, Value: o.optionValue()})
					}
				}
				continue
			}
		}
		fields = append(fields, Field{Name: name, Value: c.Value()})
	}
	return fields
}

// Reset drops every current value and checkedness inside the form, so controls fall back
// to the defaults from the markup.
func (e *Element) Reset() {
	for _, c := range e.Controls() {
		delete(e.doc.values, c.node)
		delete(e.doc.checked, c.node)
	}
}
