package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element is the canonical handle for one element node. Two lookups of the
// same attached node always return the same *Element, which is what lets the
// engine key state scopes and listener sets by element identity.
type Element struct {
	doc *Document
	n   *html.Node

	listeners map[string][]*Listener

	// Live form-control state. A nil pointer means "no interaction yet":
	// reads fall through to the parsed attribute default, and a form reset
	// simply clears the overlay.
	value   *string
	checked *bool
}

// Document returns the owning document.
func (e *Element) Document() *Document { return e.doc }

// Tag returns the lower-case tag name.
func (e *Element) Tag() string { return e.n.Data }

// Node returns the underlying parse-tree node. Callers must not detach or
// reparent it directly; use the Element mutators so teardown stays correct.
func (e *Element) Node() *html.Node { return e.n }

// Attr returns the value of the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or def when absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// HasAttr reports whether the named attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// SetAttr sets the named attribute, replacing any existing value.
func (e *Element) SetAttr(name, val string) {
	for i, a := range e.n.Attr {
		if a.Key == name {
			e.n.Attr[i].Val = val
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: val})
}

// RemoveAttr removes the named attribute if present.
func (e *Element) RemoveAttr(name string) {
	for i, a := range e.n.Attr {
		if a.Key == name {
			e.n.Attr = append(e.n.Attr[:i], e.n.Attr[i+1:]...)
			return
		}
	}
}

// ToggleAttr adds the attribute with an empty value or removes it.
func (e *Element) ToggleAttr(name string, on bool) {
	if on {
		if !e.HasAttr(name) {
			e.SetAttr(name, "")
		}
	} else {
		e.RemoveAttr(name)
	}
}

// Attrs returns a copy of the element's attributes as a name to value map.
func (e *Element) Attrs() map[string]string {
	out := make(map[string]string, len(e.n.Attr))
	for _, a := range e.n.Attr {
		out[a.Key] = a.Val
	}
	return out
}

// ID returns the id attribute, or "".
func (e *Element) ID() string { return e.AttrOr("id", "") }

// HasClass reports whether the class attribute contains name.
func (e *Element) HasClass(name string) bool {
	for _, c := range strings.Fields(e.AttrOr("class", "")) {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass adds name to the class attribute if not already present.
func (e *Element) AddClass(name string) {
	if e.HasClass(name) || name == "" {
		return
	}
	cur := e.AttrOr("class", "")
	if cur == "" {
		e.SetAttr("class", name)
		return
	}
	e.SetAttr("class", cur+" "+name)
}

// RemoveClass removes name from the class attribute.
func (e *Element) RemoveClass(name string) {
	fields := strings.Fields(e.AttrOr("class", ""))
	kept := fields[:0]
	for _, c := range fields {
		if c != name {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		e.RemoveAttr("class")
		return
	}
	e.SetAttr("class", strings.Join(kept, " "))
}

// ToggleClass adds or removes name.
func (e *Element) ToggleClass(name string, on bool) {
	if on {
		e.AddClass(name)
	} else {
		e.RemoveClass(name)
	}
}

// Text returns the concatenated text of all descendant text nodes.
func (e *Element) Text() string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.n)
	return sb.String()
}

// SetText replaces the element's content with a single text node.
func (e *Element) SetText(text string) {
	e.removeChildren()
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// InnerHTML returns the serialized markup of the element's children.
func (e *Element) InnerHTML() string {
	var sb strings.Builder
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&sb, c)
	}
	return sb.String()
}

// OuterHTML returns the serialized markup of the element itself.
func (e *Element) OuterHTML() string {
	var sb strings.Builder
	_ = html.Render(&sb, e.n)
	return sb.String()
}

// SetInnerHTML replaces the element's content with parsed markup.
func (e *Element) SetInnerHTML(markup string) error {
	nodes, err := e.doc.parseFragment(markup)
	if err != nil {
		return err
	}
	e.removeChildren()
	for _, n := range nodes {
		e.n.AppendChild(n)
	}
	return nil
}

// AppendHTML parses markup and inserts it after the element's last child.
func (e *Element) AppendHTML(markup string) error {
	nodes, err := e.doc.parseFragment(markup)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		e.n.AppendChild(n)
	}
	return nil
}

// PrependHTML parses markup and inserts it before the element's first child.
func (e *Element) PrependHTML(markup string) error {
	nodes, err := e.doc.parseFragment(markup)
	if err != nil {
		return err
	}
	first := e.n.FirstChild
	for _, n := range nodes {
		if first != nil {
			e.n.InsertBefore(n, first)
		} else {
			e.n.AppendChild(n)
		}
	}
	return nil
}

// AppendChild moves child (and its subtree) to the end of e's children.
func (e *Element) AppendChild(child *Element) {
	detach(child.n)
	e.n.AppendChild(child.n)
}

// Remove detaches the element from its parent and releases the subtree's
// handles and listeners.
func (e *Element) Remove() {
	if e.n.Parent != nil {
		e.n.Parent.RemoveChild(e.n)
	}
	e.doc.releaseSubtree(e.n)
}

// ReplaceWith swaps the element for other in its parent, releasing this
// element's subtree. A detached element is left alone.
func (e *Element) ReplaceWith(other *Element) {
	parent := e.n.Parent
	if parent == nil {
		return
	}
	detach(other.n)
	parent.InsertBefore(other.n, e.n)
	parent.RemoveChild(e.n)
	e.doc.releaseSubtree(e.n)
}

// removeChildren detaches and releases every child node.
func (e *Element) removeChildren() {
	for e.n.FirstChild != nil {
		c := e.n.FirstChild
		e.n.RemoveChild(c)
		e.doc.releaseSubtree(c)
	}
}

// Parent returns the parent element, or nil at the tree root.
func (e *Element) Parent() *Element {
	for p := e.n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return e.doc.elem(p)
		}
	}
	return nil
}

// Children returns the element children in document order.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.elem(c))
		}
	}
	return out
}

// Contains reports whether other is e or a descendant of e.
func (e *Element) Contains(other *Element) bool {
	if other == nil {
		return false
	}
	for n := other.n; n != nil; n = n.Parent {
		if n == e.n {
			return true
		}
	}
	return false
}

// Attached reports whether the element is still part of its document tree.
func (e *Element) Attached() bool {
	for n := e.n; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

// Matches reports whether the element matches the selector.
func (e *Element) Matches(selector string) (bool, error) {
	sel, err := e.doc.compile(selector)
	if err != nil {
		return false, err
	}
	return sel.Match(e.n), nil
}

// Closest returns the nearest self-or-ancestor element matching the
// selector, or nil.
func (e *Element) Closest(selector string) (*Element, error) {
	sel, err := e.doc.compile(selector)
	if err != nil {
		return nil, err
	}
	for n := e.n; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && sel.Match(n) {
			return e.doc.elem(n), nil
		}
	}
	return nil, nil
}

// Query returns the first descendant matching the selector, or nil.
func (e *Element) Query(selector string) (*Element, error) {
	sel, err := e.doc.compile(selector)
	if err != nil {
		return nil, err
	}
	for _, n := range sel.MatchAll(e.n) {
		if n != e.n {
			return e.doc.elem(n), nil
		}
	}
	return nil, nil
}

// QueryAll returns every descendant matching the selector in document order.
// The element itself is never included, mirroring querySelectorAll.
func (e *Element) QueryAll(selector string) ([]*Element, error) {
	sel, err := e.doc.compile(selector)
	if err != nil {
		return nil, err
	}
	var out []*Element
	for _, n := range sel.MatchAll(e.n) {
		if n != e.n {
			out = append(out, e.doc.elem(n))
		}
	}
	return out, nil
}

// Form returns the nearest self-or-ancestor <form>, or nil.
func (e *Element) Form() *Element {
	for n := e.n; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && n.DataAtom == atom.Form {
			return e.doc.elem(n)
		}
	}
	return nil
}

// Focus marks the element as the document's active element and dispatches a
// non-bubbling focus event. Blur is implied for the previously focused
// element.
func (e *Element) Focus() {
	if prev := e.doc.focused; prev != nil && prev != e {
		prev.Blur()
	}
	e.doc.focused = e
	ev := NewEvent("focus")
	ev.Bubbles = false
	e.Dispatch(ev)
}

// Blur clears focus from the element if it is the active element and
// dispatches a non-bubbling blur event.
func (e *Element) Blur() {
	if e.doc.focused == e {
		e.doc.focused = nil
	}
	ev := NewEvent("blur")
	ev.Bubbles = false
	e.Dispatch(ev)
}

// detach removes n from its parent without releasing handles, for moves
// within or between documents.
func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
