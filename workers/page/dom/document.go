// Package dom is a small headless document model over golang.org/x/net/html.
//
// It exposes just what the page components need from a browser DOM: lookups by id, class and
// name, text and attribute mutation, inline visibility, and form controls whose current value
// is tracked separately from the default written in the markup.
package dom

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type Document struct {
	root    *html.Node
	values  map[*html.Node]string
	checked map[*html.Node]bool
}

// Parse builds a Document from server-rendered HTML.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return NewDocument(root), nil
}

func NewDocument(root *html.Node) *Document {
	return &Document{
		root:    root,
		values:  make(map[*html.Node]string),
		checked: make(map[*html.Node]bool),
	}
}

func (d *Document) wrap(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	return &Element{doc: d, node: n}
}

// ByID returns the first element with the given id, or nil.
func (d *Document) ByID(id string) *Element {
	return d.wrap(find(d.root, func(n *html.Node) bool {
		v, ok := attr(n, "id")
		return ok && v == id
	}))
}

// First returns the first element carrying class, or nil.
func (d *Document) First(class string) *Element {
	return d.wrap(find(d.root, func(n *html.Node) bool { return hasClass(n, class) }))
}

// ByClass returns every element carrying class, in document order.
func (d *Document) ByClass(class string) []*Element {
	return d.collect(d.root, func(n *html.Node) bool { return hasClass(n, class) })
}

// InputsByName returns the <input> elements named name, in document order.
func (d *Document) InputsByName(name string) []*Element {
	return d.collect(d.root, func(n *html.Node) bool {
		if n.DataAtom != atom.Input {
			return false
		}
		v, ok := attr(n, "name")
		return ok && v == name
	})
}

// CreateElement returns a detached element.
func (d *Document) CreateElement(tag string) *Element {
	return d.wrap(&html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	})
}

// ScriptVar looks for `var name = value` (or let/const/window.name) in inline scripts and
// returns the literal value. Undefined and null count as missing.
func (d *Document) ScriptVar(name string) (string, bool) {
	re := regexp.MustCompile(`(?:\b(?:var|let|const)\s+|\bwindow\.)` + regexp.QuoteMeta(name) +
		`\s*=\s*(?:"([^"]*)"|'([^']*)'|([^;\s]+))`)

	scripts := d.collect(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Script })
	for _, s := range scripts {
		if _, external := attr(s.node, "src"); external {
			continue
		}
		m := re.FindStringSubmatch(s.Text())
		if m == nil {
			continue
		}
		value := m[1] + m[2] + m[3]
		value = strings.TrimSpace(value)
		if value == "" || value == "undefined" || value == "null" {
			return "", false
		}
		return value, true
	}
	return "", false
}

// Render writes the current tree as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

func (d *Document) collect(from *html.Node, match func(*html.Node) bool) []*Element {
	var out []*Element
	walk(from, func(n *html.Node) bool {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, d.wrap(n))
		}
		return true
	})
	return out
}

func find(from *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(from, func(n *html.Node) bool {
		if n.Type == html.ElementNode && match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// walk visits from and its descendants in document order until visit returns false.
func walk(from *html.Node, visit func(*html.Node) bool) bool {
	if !visit(from) {
		return false
	}
	for c := from.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}
