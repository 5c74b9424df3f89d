package surf

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dsurf/surf/dom"
)

// surfaceLayer performs literal DOM content swaps for named regions. It is
// pure document manipulation: no state, no listeners; the preservation
// protocol wraps it when those matter.
type surfaceLayer struct {
	doc *dom.Document
	log *slog.Logger
}

// Apply swaps markup into the target element with the given mode.
func (s *surfaceLayer) Apply(el *dom.Element, markup string, mode SwapMode) {
	if el == nil {
		return
	}
	var err error
	switch mode {
	case SwapAppend:
		err = el.AppendHTML(markup)
	case SwapPrepend:
		err = el.PrependHTML(markup)
	default:
		err = el.SetInnerHTML(markup)
	}
	if err != nil {
		s.log.Warn("surf: surface swap failed", "mode", string(mode), "err", err)
	}
}

// Resolve maps a target selector to its element. The empty selector and
// "html" address the whole document. A selector that matches nothing is a
// recoverable error, logged by callers that choose to continue.
func (s *surfaceLayer) Resolve(target string) (*dom.Element, error) {
	if target == "" || target == "html" {
		return s.doc.Root(), nil
	}
	el, err := s.doc.Query(target)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, fmt.Errorf("%w: %q", ErrTargetNotFound, target)
	}
	return el, nil
}

// isDocumentRoot reports whether el is the whole-document root, which gets
// the head-merge/body-replace treatment instead of a plain content swap.
func (s *surfaceLayer) isDocumentRoot(el *dom.Element) bool {
	return el != nil && el == s.doc.Root()
}

// ReplaceDocument applies a full-page response: the new head is merged
// into the existing one by structural signature, the title is applied
// directly, and the body is replaced wholesale with its scripts recreated.
func (s *surfaceLayer) ReplaceDocument(markup string) {
	incoming, err := dom.ParseString(markup, "")
	if err != nil {
		s.log.Warn("surf: cannot parse document response", "err", err)
		return
	}
	if t := incoming.Title(); t != "" {
		s.doc.SetTitle(t)
	}
	s.mergeHead(incoming.Head())
	s.replaceBody(incoming.Body())
}

// mergeHead reconciles the existing <head> with the incoming one. Existing
// children whose structural signature matches an incoming child are kept
// in place, which preserves node identity for already-loaded stylesheets
// and avoids a flash of unstyled content. Unmatched existing children are
// removed, unmatched incoming children appended. <title> is excluded; it
// is applied directly by ReplaceDocument.
func (s *surfaceLayer) mergeHead(incoming *dom.Element) {
	head := s.doc.Head()
	if head == nil || incoming == nil {
		return
	}

	wanted := make(map[string]int)
	var order []string
	var fresh []*dom.Element
	for _, child := range incoming.Children() {
		if child.Tag() == "title" {
			continue
		}
		sig := headSignature(child)
		wanted[sig]++
		order = append(order, sig)
		fresh = append(fresh, child)
	}

	// Keep matching existing nodes in place, remove the rest.
	kept := make(map[string]int)
	for _, child := range head.Children() {
		if child.Tag() == "title" {
			continue
		}
		sig := headSignature(child)
		if kept[sig] < wanted[sig] {
			kept[sig]++
			continue
		}
		child.Remove()
	}

	// Append incoming nodes with no existing counterpart.
	appended := make(map[string]int)
	for i, child := range fresh {
		sig := order[i]
		if appended[sig] < kept[sig] {
			appended[sig]++
			continue
		}
		appended[sig]++
		// Re-home the node so the live document owns its handle.
		head.AppendChild(s.doc.Adopt(child))
	}
}

// headSignature computes the structural identity of a head child used for
// merge matching.
func headSignature(el *dom.Element) string {
	switch el.Tag() {
	case "title":
		return "title"
	case "link":
		return "link|" + el.AttrOr("href", "")
	case "meta":
		return "meta|" + el.AttrOr("name", "")
	case "script":
		return fmt.Sprintf("script|%s|%t|%t|%s",
			el.AttrOr("src", ""), el.HasAttr("async"), el.HasAttr("defer"), el.AttrOr("type", ""))
	case "style":
		return "style|" + strings.TrimSpace(el.Text())
	default:
		return el.OuterHTML()
	}
}

// replaceBody swaps the whole <body> content and recreates any <script>
// elements inside it. A browser does not execute scripts injected as part
// of parsed content; recreating each one as a fresh node with copied
// attributes and text is what makes them run.
func (s *surfaceLayer) replaceBody(incoming *dom.Element) {
	body := s.doc.Body()
	if body == nil || incoming == nil {
		return
	}
	if err := body.SetInnerHTML(incoming.InnerHTML()); err != nil {
		s.log.Warn("surf: cannot apply document body", "err", err)
		return
	}
	s.recreateScripts(body)
}

func (s *surfaceLayer) recreateScripts(root *dom.Element) {
	scripts, err := root.QueryAll("script")
	if err != nil {
		return
	}
	for _, old := range scripts {
		script := s.doc.CreateElement("script")
		for name, val := range old.Attrs() {
			script.SetAttr(name, val)
		}
		script.SetText(old.Text())
		old.ReplaceWith(script)
	}
}
