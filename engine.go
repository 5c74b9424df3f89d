package surf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/creachadair/taskgroup"
	"github.com/jonboulle/clockwork"

	"github.com/dsurf/surf/dom"
	"github.com/dsurf/surf/lib/encoding"
)

// Engine is the explicitly-constructed runtime context tying the pieces
// together: the document, the event bus, cell state, signal bindings,
// surfaces, the pulse client, history, and the module and plugin
// registries. Construct one per page; a fresh Engine per test gives full
// isolation.
//
// The engine serializes all document and state mutation: every public
// entry point and every pulse completion runs under one lock, to
// completion, so cell state and the DOM never interleave mid-update.
// Network fetches are the only suspension points and run outside the
// lock.
type Engine struct {
	mu sync.Mutex

	doc      *dom.Document
	bus      *Bus
	cells    *cellStore
	signals  *signalBinder
	surfaces *surfaceLayer
	pulse    *pulseClient
	history  *historyList
	modules  map[string]Module
	plugins  map[string]Plugin

	log            *slog.Logger
	client         *http.Client
	clock          clockwork.Clock
	requestTimeout time.Duration
	stateKey       []byte

	ctx    context.Context
	cancel context.CancelFunc
	tasks  *taskgroup.Group

	// ticks is the next-tick queue: work deferred until the current
	// synchronous entry point unwinds, so a deferred form reset cannot
	// race an in-flight submission's read of the field values.
	ticks []func()
}

// New constructs an engine. Load a document before interacting with it.
func New(opts ...Option) *Engine {
	e := &Engine{
		modules: make(map[string]Module),
		plugins: make(map[string]Plugin),
		log:     slog.Default(),
		client:  http.DefaultClient,
		clock:   clockwork.NewRealClock(),
		history: &historyList{},
		tasks:   taskgroup.New(nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.bus = NewBus(e.log)
	e.cells = newCellStore(e.bus, e.log)
	e.signals = newSignalBinder(e)
	e.pulse = newPulseClient(e)
	return e
}

// Load parses src as the engine's document and boots it: cells
// initialize, bindings and pulse triggers attach, and an initial history
// entry is synthesized for pageURL so the very first back-navigation
// behaves correctly.
func (e *Engine) Load(src, pageURL string) error {
	e.mu.Lock()
	defer e.unlock()

	doc, err := dom.ParseString(src, pageURL)
	if err != nil {
		return err
	}
	// Entries tied to a previous document would never prune (its elements
	// stay attached to their own tree); keyed state carries over.
	e.cells.resetLive()
	e.signals.reset()
	e.doc = doc
	e.surfaces = &surfaceLayer{doc: doc, log: e.log}

	root := doc.Root()
	if root == nil {
		return fmt.Errorf("surf: document has no root element")
	}
	e.initRegion(root)
	e.history.push(historyEntry{url: pageURL, marked: true})
	return nil
}

// Document returns the engine's live document, or nil before Load.
// Mutating it directly bypasses the preservation protocol; prefer the
// engine's own operations.
func (e *Engine) Document() *dom.Document { return e.doc }

// Bus returns the engine's event bus.
func (e *Engine) Bus() *Bus { return e.bus }

// Clock returns the engine clock, for plugins that schedule work.
func (e *Engine) Clock() clockwork.Clock { return e.clock }

// Logger returns the engine's diagnostic logger.
func (e *Engine) Logger() *slog.Logger { return e.log }

// On subscribes fn to one of the engine's lifecycle events.
func (e *Engine) On(name string, fn func(detail any)) *Subscription {
	e.mu.Lock()
	defer e.unlock()
	return e.bus.On(name, fn)
}

// Off removes a lifecycle subscription.
func (e *Engine) Off(sub *Subscription) {
	e.mu.Lock()
	defer e.unlock()
	e.bus.Off(sub)
}

// Query returns the first element matching the selector, nil when nothing
// matches, or an error for an invalid selector or unloaded engine.
func (e *Engine) Query(selector string) (*dom.Element, error) {
	e.mu.Lock()
	defer e.unlock()
	if e.doc == nil {
		return nil, ErrNotLoaded
	}
	return e.doc.Query(selector)
}

// QueryAll returns every element matching the selector in document order.
func (e *Engine) QueryAll(selector string) ([]*dom.Element, error) {
	e.mu.Lock()
	defer e.unlock()
	if e.doc == nil {
		return nil, ErrNotLoaded
	}
	return e.doc.QueryAll(selector)
}

// MustQuery is Query for selectors known to match; it panics otherwise.
// Intended for tests and demos.
func (e *Engine) MustQuery(selector string) *dom.Element {
	el, err := e.Query(selector)
	if err != nil {
		panic(err)
	}
	if el == nil {
		panic(fmt.Sprintf("surf: %q matched nothing", selector))
	}
	return el
}

// GetState returns the current state of the cell enclosing el (el itself
// when it is a cell), auto-initializing on first access. Elements outside
// any cell get an empty state.
func (e *Engine) GetState(el *dom.Element) State {
	e.mu.Lock()
	defer e.unlock()
	cell := cellOf(el)
	if cell == nil {
		return State{}
	}
	return e.cells.Get(cell)
}

// SetState shallow-merges partial into the state of the cell enclosing el
// and re-runs the cell's bindings when anything actually changed.
func (e *Engine) SetState(el *dom.Element, partial State) State {
	e.mu.Lock()
	defer e.unlock()
	cell := cellOf(el)
	if cell == nil {
		e.log.Warn("surf: SetState outside any d-cell")
		return State{}
	}
	st, changed := e.cells.Set(cell, partial)
	if changed {
		e.signals.updateBindings(cell)
	}
	return st
}

// Forget drops the identity-key state entry for key, the one explicit
// release in the state lifecycle.
func (e *Engine) Forget(key string) {
	e.mu.Lock()
	defer e.unlock()
	e.cells.Forget(key)
}

// ApplyPatch parses and applies a patch payload to the document, each
// region through the preservation protocol.
func (e *Engine) ApplyPatch(text string) error {
	e.mu.Lock()
	defer e.unlock()
	if e.doc == nil {
		return ErrNotLoaded
	}
	return e.applyPatch(text)
}

// Click dispatches a click on the element matched by selector.
func (e *Engine) Click(selector string) error {
	return e.Fire(selector, "click")
}

// Fire dispatches a synthetic event of the given type on the element
// matched by selector. All listener work, state mutation, and binding
// updates run to completion (including the next-tick queue) before Fire
// returns.
func (e *Engine) Fire(selector, eventType string) error {
	e.mu.Lock()
	defer e.unlock()
	if e.doc == nil {
		return ErrNotLoaded
	}
	el, err := e.doc.Query(selector)
	if err != nil {
		return err
	}
	if el == nil {
		return fmt.Errorf("%w: %q", ErrTargetNotFound, selector)
	}
	el.Dispatch(dom.NewEvent(eventType))
	return nil
}

// ExportState serializes the identity-key state map into a signed,
// URL-safe token, for carrying preserved state across processes or page
// loads. Requires WithStateKey.
func (e *Engine) ExportState() (string, error) {
	e.mu.Lock()
	defer e.unlock()
	if len(e.stateKey) == 0 {
		return "", ErrNoStateKey
	}
	codec, err := encoding.NewCodec(e.stateKey)
	if err != nil {
		return "", err
	}
	return codec.Encode(e.cells.keyed, false)
}

// ImportState verifies a token produced by ExportState and merges its
// entries into the identity-key store, so cells initializing afterward
// recover the imported state.
func (e *Engine) ImportState(token string) error {
	e.mu.Lock()
	defer e.unlock()
	if len(e.stateKey) == 0 {
		return ErrNoStateKey
	}
	codec, err := encoding.NewCodec(e.stateKey)
	if err != nil {
		return err
	}
	var imported map[string]map[string]any
	if err := codec.Decode(token, false, &imported); err != nil {
		return err
	}
	for key, st := range imported {
		e.cells.keyed[key] = State(st)
	}
	return nil
}

// Fetch performs a plain GET through the engine's HTTP client and returns
// the response body. Unlike a pulse it carries no partial-update header,
// so servers answer with a full page; use it to obtain the document for
// Load.
func (e *Engine) Fetch(url string) (string, error) {
	req, err := http.NewRequestWithContext(e.ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("surf: GET %s: unexpected status %d", url, resp.StatusCode)
	}
	return string(body), nil
}

// Wait blocks until every in-flight pulse has settled. Useful in tests
// and batch tools; a new pulse may start afterward.
func (e *Engine) Wait() {
	e.tasks.Wait()
}

// Close cancels all in-flight pulses and waits for them to unwind. The
// engine must not be used afterward.
func (e *Engine) Close() error {
	e.cancel()
	e.tasks.Wait()
	return nil
}

// nextTick queues fn to run when the current engine entry point unwinds,
// the headless rendering of a zero-delay timer.
func (e *Engine) nextTick(fn func()) {
	e.ticks = append(e.ticks, fn)
}

// unlock drains the next-tick queue and releases the engine lock. Every
// locked entry point unlocks through here.
func (e *Engine) unlock() {
	for len(e.ticks) > 0 {
		queue := e.ticks
		e.ticks = nil
		for _, fn := range queue {
			fn()
		}
	}
	e.mu.Unlock()
}
