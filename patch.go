package surf

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/a-h/templ"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// The patch wire format is a small XML-like envelope carrying an ordered
// sequence of region updates:
//
//	<d-patch>
//	  <surface target="#main"><h1>Updated</h1></surface>
//	  <surface target="#toast"><div class='toast'>Saved!</div></surface>
//	</d-patch>
//
// A response body without the wrapper is treated as plain content for the
// request's declared target.

const patchMarker = "<d-patch"

// Region is one (target selector, content) pair of a parsed patch.
// Immutable once parsed.
type Region struct {
	Target  string
	Content string
}

// IsPatch reports whether text looks like a patch payload. This is a cheap
// case-sensitive substring test meant to gate full parsing.
func IsPatch(text string) bool {
	return strings.Contains(text, patchMarker)
}

// ParsePatch parses a patch payload into its ordered regions. A payload
// without the d-patch wrapper yields ErrNotPatch; anything other than
// exactly one wrapper yields ErrMalformedPatch. A region missing its
// target attribute is skipped with a warning while the remaining regions
// still parse. Region content is the inner markup of a nested <template>
// wrapper when one is present, else the region's own inner markup.
func ParsePatch(text string) ([]Region, error) {
	return parsePatch(text, slog.Default())
}

func parsePatch(text string, log *slog.Logger) ([]Region, error) {
	if !IsPatch(text) {
		log.Warn("surf: payload has no d-patch wrapper")
		return nil, ErrNotPatch
	}
	ctx := &xhtml.Node{Type: xhtml.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := xhtml.ParseFragment(strings.NewReader(text), ctx)
	if err != nil {
		log.Warn("surf: cannot parse patch payload", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformedPatch, err)
	}

	var wrappers []*xhtml.Node
	for _, n := range nodes {
		collectElements(n, "d-patch", &wrappers)
	}
	if len(wrappers) != 1 {
		log.Warn("surf: expected exactly one d-patch wrapper", "found", len(wrappers))
		if len(wrappers) == 0 {
			return nil, ErrNotPatch
		}
		return nil, ErrMalformedPatch
	}

	var regions []Region
	for n := wrappers[0].FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xhtml.ElementNode || n.Data != "surface" {
			continue
		}
		target, ok := nodeAttr(n, "target")
		if !ok {
			log.Warn("surf: patch region without target attribute; skipped")
			continue
		}
		regions = append(regions, Region{Target: target, Content: regionContent(n)})
	}
	return regions, nil
}

// regionContent unwraps an optional <template> child, used to carry
// content (table rows, list items) that cannot ride directly inside the
// region element.
func regionContent(region *xhtml.Node) string {
	if tpl := soleElementChild(region); tpl != nil && tpl.DataAtom == atom.Template {
		return innerMarkup(tpl)
	}
	return innerMarkup(region)
}

func soleElementChild(n *xhtml.Node) *xhtml.Node {
	var found *xhtml.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xhtml.ElementNode:
			if found != nil {
				return nil
			}
			found = c
		case xhtml.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return nil
			}
		}
	}
	return found
}

func innerMarkup(n *xhtml.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = xhtml.Render(&sb, c)
	}
	return sb.String()
}

func collectElements(n *xhtml.Node, tag string, out *[]*xhtml.Node) {
	if n.Type == xhtml.ElementNode && n.Data == tag {
		*out = append(*out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectElements(c, tag, out)
	}
}

func nodeAttr(n *xhtml.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// PatchBuilder produces patch payloads server-side. Add regions fluently,
// then Render the wire text:
//
//	p := surf.NewPatch().
//	    Add("#main", mainHTML).
//	    Add("#toast", toastHTML)
//	io.WriteString(w, p.Render())
type PatchBuilder struct {
	regions []Region
	err     error
}

// NewPatch creates a new empty patch builder.
func NewPatch() *PatchBuilder {
	return &PatchBuilder{}
}

// Add appends a region update. Target is a CSS selector; content is the
// raw HTML to deliver for it.
func (p *PatchBuilder) Add(target, content string) *PatchBuilder {
	p.regions = append(p.regions, Region{Target: target, Content: content})
	return p
}

// AddComponent renders a templ component into a region. A render error is
// recorded and reported by Err; later regions still apply.
func (p *PatchBuilder) AddComponent(ctx context.Context, target string, c templ.Component) *PatchBuilder {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("surf: render patch region %q: %w", target, err)
		}
		return p
	}
	return p.Add(target, buf.String())
}

// Err returns the first component render error, if any.
func (p *PatchBuilder) Err() error { return p.err }

// Render generates the wire text. Target selectors are attribute-escaped;
// content is emitted verbatim.
func (p *PatchBuilder) Render() string {
	if len(p.regions) == 0 {
		return "<d-patch></d-patch>"
	}
	var sb strings.Builder
	sb.WriteString("<d-patch>\n")
	for _, r := range p.regions {
		fmt.Fprintf(&sb, "  <surface target=\"%s\">%s</surface>\n",
			html.EscapeString(r.Target), r.Content)
	}
	sb.WriteString("</d-patch>")
	return sb.String()
}

// String implements the Stringer interface.
func (p *PatchBuilder) String() string { return p.Render() }

// ContentType returns the Content-Type header value for patch responses.
func ContentType() string {
	return "text/html; charset=utf-8"
}
