package surf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dsurf/surf/dom"
)

// pulseKind names the four network interactions.
type pulseKind string

const (
	pulseNavigate pulseKind = "navigate"
	pulseCommit   pulseKind = "commit"
	pulseAction   pulseKind = "action"
	pulseRefresh  pulseKind = "refresh"
)

// PulseInfo is the detail for pulse:start.
type PulseInfo struct {
	Kind   string
	URL    string
	Target string
}

// PulseResult is the detail for pulse:end.
type PulseResult struct {
	Kind    string
	URL     string
	Target  string
	Status  int
	Headers http.Header
	Body    string
}

// PulseError is the detail for pulse:error. Cancellation never produces
// one; a superseded request resolves silently.
type PulseError struct {
	Kind   string
	URL    string
	Target string
	Err    error
}

// pulseRequest is one prepared network interaction.
type pulseRequest struct {
	kind        pulseKind
	method      string
	url         string
	target      string
	body        []byte
	contentType string
	pushHistory bool
}

// pendingRequest associates a target with its in-flight request. At most
// one lives per target: issuing a new request for the same target cancels
// the previous one, and the loser's eventual resolution is a no-op.
type pendingRequest struct {
	cancel context.CancelFunc
	gen    uint64
}

// pulseClient issues pulse requests and applies their responses. All entry
// points run under the engine lock; only the fetch itself runs outside it.
type pulseClient struct {
	eng     *Engine
	pending map[string]*pendingRequest
	gen     uint64
}

func newPulseClient(eng *Engine) *pulseClient {
	return &pulseClient{eng: eng, pending: make(map[string]*pendingRequest)}
}

// start begins a pulse: emits pulse:start, enforces last-request-wins for
// the target, and hands the fetch to a background task. Must be called
// with the engine lock held.
func (p *pulseClient) start(req pulseRequest) {
	e := p.eng
	e.bus.Emit(EventPulseStart, PulseInfo{Kind: string(req.kind), URL: req.url, Target: req.target})

	if prev, ok := p.pending[req.target]; ok {
		prev.cancel()
	}
	p.gen++
	gen := p.gen
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if e.requestTimeout > 0 {
		ctx, cancel = context.WithTimeout(e.ctx, e.requestTimeout)
	} else {
		ctx, cancel = context.WithCancel(e.ctx)
	}
	p.pending[req.target] = &pendingRequest{cancel: cancel, gen: gen}

	e.tasks.Go(func() error {
		defer cancel()
		status, headers, body, err := p.fetch(ctx, req)

		e.mu.Lock()
		defer e.unlock()
		p.finish(req, gen, status, headers, body, err)
		return nil
	})
}

// fetch performs the HTTP exchange. It runs outside the engine lock.
func (p *pulseClient) fetch(ctx context.Context, req pulseRequest) (int, http.Header, string, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	hr, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return 0, nil, "", err
	}
	hr.Header.Set(HeaderRequest, "true")
	if req.target != "" {
		hr.Header.Set(HeaderTarget, req.target)
	}
	if req.contentType != "" {
		hr.Header.Set("Content-Type", req.contentType)
	}

	resp, err := p.eng.client.Do(hr)
	if err != nil {
		return 0, nil, "", err
	}
	defer resp.Body.Close()
	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, "", err
	}
	return resp.StatusCode, resp.Header, string(text), nil
}

// finish applies a completed pulse. Must be called with the engine lock
// held. A request superseded for its target is fully silent, as is a
// cancellation; a genuine failure emits pulse:error and is logged.
func (p *pulseClient) finish(req pulseRequest, gen uint64, status int, headers http.Header, body string, err error) {
	e := p.eng

	cur, ok := p.pending[req.target]
	if !ok || cur.gen != gen {
		return // superseded: the winning request owns the target now
	}
	delete(p.pending, req.target)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		err = fmt.Errorf("surf: %s %s %s: %w", req.kind, req.method, req.url, err)
		e.log.Error("surf: pulse failed", "kind", string(req.kind), "url", req.url, "err", err)
		e.bus.Emit(EventPulseError, PulseError{Kind: string(req.kind), URL: req.url, Target: req.target, Err: err})
		return
	}
	if status < 200 || status > 299 {
		err := fmt.Errorf("surf: %s %s %s: unexpected status %d", req.kind, req.method, req.url, status)
		e.log.Error("surf: pulse failed", "kind", string(req.kind), "url", req.url, "err", err)
		e.bus.Emit(EventPulseError, PulseError{Kind: string(req.kind), URL: req.url, Target: req.target, Err: err})
		return
	}

	e.applyResponse(req, body)

	if req.pushHistory {
		e.history.push(historyEntry{url: req.url, target: req.target, marked: true})
		_ = e.doc.SetURL(req.url)
	}
	e.bus.Emit(EventPulseEnd, PulseResult{
		Kind:    string(req.kind),
		URL:     req.url,
		Target:  req.target,
		Status:  status,
		Headers: headers,
		Body:    body,
	})
}

// applyResponse routes a successful body: patch payloads apply region by
// region, anything else is a single swap into the declared target (or the
// whole document when none was declared). Every swap runs inside the
// preservation protocol.
func (e *Engine) applyResponse(req pulseRequest, body string) {
	if IsPatch(body) {
		e.applyPatch(body)
		return
	}
	root, err := e.surfaces.Resolve(req.target)
	if err != nil {
		e.log.Warn("surf: pulse target unresolved; response dropped", "target", req.target, "err", err)
		return
	}
	if e.surfaces.isDocumentRoot(root) {
		e.withPreservation(root, func() { e.surfaces.ReplaceDocument(body) })
		return
	}
	mode := e.swapModeOf(root)
	e.withPreservation(root, func() { e.surfaces.Apply(root, body, mode) })
}

// applyPatch parses and applies a patch payload. The payload parses in
// full before any region is touched, so a malformed patch mutates
// nothing; a region whose target matches nothing is skipped while the
// rest still apply.
func (e *Engine) applyPatch(text string) error {
	regions, err := parsePatch(text, e.log)
	if err != nil {
		return err
	}
	for _, r := range regions {
		el, err := e.surfaces.Resolve(r.Target)
		if err != nil {
			e.log.Warn("surf: patch region target unresolved; skipped", "target", r.Target, "err", err)
			continue
		}
		if e.surfaces.isDocumentRoot(el) {
			e.withPreservation(el, func() { e.surfaces.ReplaceDocument(r.Content) })
			continue
		}
		mode := e.swapModeOf(el)
		e.withPreservation(el, func() { e.surfaces.Apply(el, r.Content, mode) })
	}
	return nil
}

// Navigate issues a GET pulse for url and applies the response to target
// (empty for the whole document), recording a history entry.
func (e *Engine) Navigate(url, target string) {
	e.mu.Lock()
	defer e.unlock()
	e.pulse.start(pulseRequest{
		kind:        pulseNavigate,
		method:      "GET",
		url:         url,
		target:      target,
		pushHistory: true,
	})
}

// Action issues a POST pulse with a JSON body and applies the response to
// target.
func (e *Engine) Action(url string, data map[string]any, target string) {
	e.mu.Lock()
	defer e.unlock()
	e.startAction(url, data, target)
}

func (e *Engine) startAction(url string, data map[string]any, target string) {
	body, err := json.Marshal(data)
	if err != nil {
		e.log.Warn("surf: cannot encode action data", "url", url, "err", err)
		body = []byte("{}")
	}
	e.pulse.start(pulseRequest{
		kind:        pulseAction,
		method:      "POST",
		url:         url,
		target:      target,
		body:        body,
		contentType: "application/json",
	})
}

// Refresh re-fetches the current page URL and applies the response to
// target, honoring the target's preferred swap mode.
func (e *Engine) Refresh(target string) {
	e.mu.Lock()
	defer e.unlock()
	e.startRefresh(target)
}

func (e *Engine) startRefresh(target string) {
	if e.doc == nil || e.doc.URL() == nil {
		e.log.Warn("surf: refresh without a document URL")
		return
	}
	e.pulse.start(pulseRequest{
		kind:   pulseRefresh,
		method: "GET",
		url:    e.doc.URL().String(),
		target: target,
	})
}

// Commit serializes and submits the form matched by formSel, applying the
// response to target. GET forms append the fields as a query string;
// other methods send a url-encoded body.
func (e *Engine) Commit(formSel, target string) error {
	e.mu.Lock()
	defer e.unlock()
	form, err := e.surfaces.Resolve(formSel)
	if err != nil {
		return err
	}
	e.startCommit(form, target)
	return nil
}

func (e *Engine) startCommit(form *dom.Element, target string) {
	vals := form.FormValues()
	method := strings.ToUpper(form.AttrOr("method", "GET"))
	action := form.AttrOr("action", "")
	if action == "" && e.doc.URL() != nil {
		action = e.doc.URL().String()
	}

	req := pulseRequest{kind: pulseCommit, method: method, url: action, target: target}
	if method == "GET" {
		sep := "?"
		if strings.Contains(action, "?") {
			sep = "&"
		}
		if encoded := vals.Encode(); encoded != "" {
			req.url = action + sep + encoded
		}
	} else {
		req.body = []byte(vals.Encode())
		req.contentType = "application/x-www-form-urlencoded"
	}
	e.pulse.start(req)
}

// wireTriggers attaches the declarative pulse triggers found on root and
// its descendants. Listeners are tracked in the signal binder's arena, so
// preservation tears them down with everything else. Default actions are
// prevented only when the engine actually handles the interaction.
func (e *Engine) wireTriggers(root *dom.Element) {
	for _, el := range matching(root, selNav) {
		el := el
		e.signals.track(el, el.On("click", func(ev *dom.Event) {
			url := el.AttrOr(attrNav, "")
			if url == "" {
				url = el.AttrOr("href", "")
			}
			if url == "" {
				e.log.Warn("surf: d-nav trigger without a URL", "tag", el.Tag())
				return
			}
			ev.PreventDefault()
			e.pulse.start(pulseRequest{
				kind:        pulseNavigate,
				method:      "GET",
				url:         url,
				target:      el.AttrOr(attrTarget, ""),
				pushHistory: true,
			})
		}))
	}

	for _, el := range matching(root, selRefresh) {
		el := el
		e.signals.track(el, el.On("click", func(ev *dom.Event) {
			ev.PreventDefault()
			e.startRefresh(refreshTarget(el))
		}))
	}

	for _, el := range matching(root, selAction) {
		el := el
		e.signals.track(el, el.On("click", func(ev *dom.Event) {
			url := el.AttrOr(attrAction, "")
			if url == "" {
				e.log.Warn("surf: d-action trigger without a URL", "tag", el.Tag())
				return
			}
			ev.PreventDefault()
			e.startAction(url, e.actionData(el), el.AttrOr(attrTarget, ""))
		}))
	}

	for _, el := range matching(root, selCommit) {
		el := el
		e.signals.track(el, el.On("submit", func(ev *dom.Event) {
			form := el.Form()
			if form == nil {
				e.log.Warn("surf: d-commit outside a form", "tag", el.Tag())
				return
			}
			ev.PreventDefault()
			e.startCommit(form, el.AttrOr(attrTarget, ""))
		}))
	}
}

// refreshTarget resolves where a d-refresh trigger applies its response:
// an explicit d-target, the d-refresh value itself, or the element's own
// id.
func refreshTarget(el *dom.Element) string {
	if t := el.AttrOr(attrTarget, ""); t != "" {
		return t
	}
	if t := el.AttrOr(attrRefresh, ""); t != "" {
		return t
	}
	if id := el.ID(); id != "" {
		return "#" + id
	}
	return ""
}

// actionData builds a d-action trigger's JSON payload: the enclosing
// cell's current state underneath the element's explicit data-* attributes
// (explicit attributes win on key collision).
func (e *Engine) actionData(el *dom.Element) map[string]any {
	data := make(map[string]any)
	if cell := cellOf(el); cell != nil {
		for k, v := range e.cells.Get(cell) {
			data[k] = v
		}
	}
	for name, val := range el.Attrs() {
		key, ok := strings.CutPrefix(name, "data-")
		if !ok {
			continue
		}
		data[key] = coerceScalar(val)
	}
	return data
}

// coerceScalar interprets a data-* attribute value as a number or boolean
// when it looks like one, else keeps the string.
func coerceScalar(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}

// matching returns root (if it matches) plus every descendant matching the
// selector.
func matching(root *dom.Element, selector string) []*dom.Element {
	var out []*dom.Element
	if ok, err := root.Matches(selector); err == nil && ok {
		out = append(out, root)
	}
	els, err := root.QueryAll(selector)
	if err != nil {
		return out
	}
	return append(out, els...)
}
