package dom

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML page plus the bookkeeping the engine needs:
// canonical element wrappers, compiled selector cache, and the live
// form-control overlays.
type Document struct {
	root *html.Node // the #document node
	url  *url.URL

	elems     map[*html.Node]*Element
	selectors map[string]cascadia.Selector
	focused   *Element
}

// Parse reads a complete HTML document from r. pageURL is the address the
// document was loaded from and is used to resolve relative references; it may
// be empty for documents that never touch the network.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse document: %w", err)
	}
	d := &Document{
		root:      root,
		elems:     make(map[*html.Node]*Element),
		selectors: make(map[string]cascadia.Selector),
	}
	if pageURL != "" {
		if err := d.SetURL(pageURL); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// ParseString is Parse over an in-memory document.
func ParseString(src, pageURL string) (*Document, error) {
	return Parse(strings.NewReader(src), pageURL)
}

// URL returns the document's address, or nil if none was set.
func (d *Document) URL() *url.URL { return d.url }

// SetURL replaces the document's address.
func (d *Document) SetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("dom: document URL %q: %w", raw, err)
	}
	d.url = u
	return nil
}

// Root returns the <html> element.
func (d *Document) Root() *Element { return d.elem(findChild(d.root, atom.Html)) }

// Head returns the <head> element.
func (d *Document) Head() *Element {
	if root := findChild(d.root, atom.Html); root != nil {
		return d.elem(findChild(root, atom.Head))
	}
	return nil
}

// Body returns the <body> element.
func (d *Document) Body() *Element {
	if root := findChild(d.root, atom.Html); root != nil {
		return d.elem(findChild(root, atom.Body))
	}
	return nil
}

// Title returns the text of the <title> element, or "".
func (d *Document) Title() string {
	if t := d.titleElement(); t != nil {
		return t.Text()
	}
	return ""
}

// SetTitle sets the <title> text, creating the element under <head> if the
// document has a head but no title yet.
func (d *Document) SetTitle(title string) {
	if t := d.titleElement(); t != nil {
		t.SetText(title)
		return
	}
	if head := d.Head(); head != nil {
		t := d.CreateElement("title")
		t.SetText(title)
		head.n.AppendChild(t.n)
	}
}

func (d *Document) titleElement() *Element {
	head := d.Head()
	if head == nil {
		return nil
	}
	return d.elem(findChild(head.n, atom.Title))
}

// CreateElement returns a new detached element owned by this document.
func (d *Document) CreateElement(tag string) *Element {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	return d.elem(n)
}

// Adopt rebinds el into this document: the node is detached from its old
// tree, the old document's handles for the subtree are released, and the
// canonical handle is minted here, so later lookups resolve to it instead
// of a second wrapper. Adopting an element d already owns is a no-op.
func (d *Document) Adopt(el *Element) *Element {
	if el == nil {
		return nil
	}
	if el.doc == d {
		return el
	}
	detach(el.n)
	el.doc.releaseSubtree(el.n)
	return d.elem(el.n)
}

// Query returns the first element matching the selector, or nil if none
// does. The error reports an invalid selector, not an empty result.
func (d *Document) Query(selector string) (*Element, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	if n := sel.MatchFirst(d.root); n != nil {
		return d.elem(n), nil
	}
	return nil, nil
}

// QueryAll returns every element matching the selector in document order.
func (d *Document) QueryAll(selector string) ([]*Element, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	nodes := sel.MatchAll(d.root)
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, d.elem(n))
	}
	return out, nil
}

// Render writes the serialized document to w.
func (d *Document) Render(w io.Writer) error {
	if err := html.Render(w, d.root); err != nil {
		return fmt.Errorf("dom: render document: %w", err)
	}
	return nil
}

// HTML returns the serialized document.
func (d *Document) HTML() string {
	var sb strings.Builder
	_ = html.Render(&sb, d.root)
	return sb.String()
}

// Focused returns the element that last received focus, or nil.
func (d *Document) Focused() *Element { return d.focused }

// compile returns the cached cascadia selector for expr.
func (d *Document) compile(expr string) (cascadia.Selector, error) {
	if sel, ok := d.selectors[expr]; ok {
		return sel, nil
	}
	sel, err := cascadia.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("dom: selector %q: %w", expr, err)
	}
	d.selectors[expr] = sel
	return sel, nil
}

// elem returns the canonical wrapper for n, creating it on first sight.
func (d *Document) elem(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	if e, ok := d.elems[n]; ok {
		return e
	}
	e := &Element{doc: d, n: n}
	d.elems[n] = e
	return e
}

// releaseSubtree drops the wrappers, listeners and form overlays for n and
// everything below it. Called by the tree mutators when content is discarded
// so replaced subtrees tear down deterministically instead of leaking.
func (d *Document) releaseSubtree(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.releaseSubtree(c)
	}
	if e, ok := d.elems[n]; ok {
		e.listeners = nil
		e.value = nil
		e.checked = nil
		if d.focused == e {
			d.focused = nil
		}
		delete(d.elems, n)
	}
}

// parseFragment parses markup the way a browser parses innerHTML in flow
// content (div context). Content that needs a table or other special context
// should ride inside a <template>, which accepts anything.
func (d *Document) parseFragment(markup string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	return nodes, nil
}

// findChild returns the first element child of n with the given atom.
func findChild(n *html.Node, a atom.Atom) *html.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}
