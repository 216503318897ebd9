package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Element is a handle on an element node of a Document.
type Element struct {
	doc  *Document
	node *html.Node
}

func (e *Element) Node() *html.Node { return e.node }

func (e *Element) Tag() string { return e.node.Data }

func (e *Element) ID() string {
	v, _ := attr(e.node, "id")
	return v
}

func (e *Element) Attr(key string) (string, bool) {
	return attr(e.node, key)
}

func (e *Element) HasAttr(key string) bool {
	_, ok := attr(e.node, key)
	return ok
}

// SetAttr assigns an attribute value. The value is stored verbatim and escaped on render.
func (e *Element) SetAttr(key, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: key, Val: value})
}

func (e *Element) RemoveAttr(key string) {
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		attrs = append(attrs, a)
	}
	e.node.Attr = attrs
}

func (e *Element) HasClass(class string) bool {
	return hasClass(e.node, class)
}

func (e *Element) AddClass(class string) {
	if e.HasClass(class) {
		return
	}
	v, _ := attr(e.node, "class")
	e.SetAttr("class", strings.TrimSpace(v+" "+class))
}

func (e *Element) RemoveClass(class string) {
	v, ok := attr(e.node, "class")
	if !ok {
		return
	}
	var kept []string
	for _, c := range strings.Fields(v) {
		if c != class {
			kept = append(kept, c)
		}
	}
	e.SetAttr("class", strings.Join(kept, " "))
}

// SetDisplay toggles the inline display declaration between block and none,
// leaving other inline styles untouched.
func (e *Element) SetDisplay(show bool) {
	display := "none"
	if show {
		display = "block"
	}

	style, _ := attr(e.node, "style")
	var decls []string
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" || styleProperty(decl) == "display" {
			continue
		}
		decls = append(decls, decl)
	}
	decls = append(decls, "display: "+display)
	e.SetAttr("style", strings.Join(decls, "; ")+";")
}

// Visible reports whether the inline style hides the element.
func (e *Element) Visible() bool {
	style, _ := attr(e.node, "style")
	visible := true
	for _, decl := range strings.Split(style, ";") {
		if styleProperty(decl) != "display" {
			continue
		}
		_, value, _ := strings.Cut(decl, ":")
		visible = strings.TrimSpace(strings.ToLower(value)) != "none"
	}
	return visible
}

func styleProperty(decl string) string {
	name, _, _ := strings.Cut(decl, ":")
	return strings.TrimSpace(strings.ToLower(name))
}

// SetText replaces the children with a single text node.
func (e *Element) SetText(text string) {
	e.Clear()
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Text is the concatenated text of all descendants.
func (e *Element) Text() string {
	var b strings.Builder
	walk(e.node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return b.String()
}

func (e *Element) Clear() {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
}

// AppendChild moves child under e, detaching it from its previous parent first.
func (e *Element) AppendChild(child *Element) {
	if child.node.Parent != nil {
		child.node.Parent.RemoveChild(child.node)
	}
	e.node.AppendChild(child.node)
}

// AppendText adds a text node after the existing children.
func (e *Element) AppendText(text string) {
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Children returns the element children of e.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// ByClass returns the descendants of e carrying class.
func (e *Element) ByClass(class string) []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, e.doc.collect(c, func(n *html.Node) bool { return hasClass(n, class) })...)
	}
	return out
}

// ByTag returns the descendants of e with the given tag name.
func (e *Element) ByTag(tag string) []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, e.doc.collect(c, func(n *html.Node) bool { return n.Data == tag })...)
	}
	return out
}
