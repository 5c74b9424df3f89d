package surf

import (
	"log/slog"

	"github.com/dsurf/surf/dom"
)

// State is the JSON-like state object owned by a cell: string keys, values
// of type string, float64, bool, nil, []any or nested map[string]any.
type State map[string]any

// CellEvent is the detail for cell:init and cell:change.
type CellEvent struct {
	Element *dom.Element
	State   State
	Changed State // nil for init; the applied partial for change
}

// WarnEvent is the detail for cell:warn. Kind identifies the diagnostic;
// currently "missing-id" (a cell without an identity key silently degrades
// to a seed reset on replacement) and "bad-seed".
type WarnEvent struct {
	Kind    string
	Element *dom.Element
	Message string
}

// cellStore owns per-element cell state plus the process-wide identity-key
// map used for cross-replacement recovery. Live state and the keyed entry
// share one map, so they can never drift apart.
type cellStore struct {
	bus *Bus
	log *slog.Logger

	states map[*dom.Element]State
	keyed  map[string]State
}

func newCellStore(bus *Bus, log *slog.Logger) *cellStore {
	return &cellStore{
		bus:    bus,
		log:    log,
		states: make(map[*dom.Element]State),
		keyed:  make(map[string]State),
	}
}

// Init initializes the cell rooted at el. An existing state under the
// element's identity key wins over the seed; a malformed seed recovers to
// an empty state with a diagnostic instead of failing. Calling Init on an
// element without the d-cell marker is a recoverable usage error: it logs
// and returns an empty state without registering anything.
func (c *cellStore) Init(el *dom.Element) State {
	if el == nil {
		return State{}
	}
	if !el.HasAttr(attrCell) {
		c.log.Warn("surf: cell init on element without d-cell", "tag", el.Tag(), "id", el.ID())
		return State{}
	}
	if st, ok := c.states[el]; ok {
		return st
	}

	key := el.AttrOr(attrID, "")
	if key == "" {
		c.log.Warn("surf: cell has no d-id; state will not survive replacement", "tag", el.Tag())
		c.bus.Emit(EventCellWarn, WarnEvent{
			Kind:    "missing-id",
			Element: el,
			Message: "cell has no d-id; state will not survive replacement",
		})
	}

	var st State
	if key != "" {
		if prior, ok := c.keyed[key]; ok {
			st = prior
		}
	}
	if st == nil {
		seed, err := parseSeed(el.AttrOr(attrCell, ""))
		if err != nil {
			c.log.Warn("surf: invalid cell seed", "seed", el.AttrOr(attrCell, ""), "err", err)
			c.bus.Emit(EventCellWarn, WarnEvent{
				Kind:    "bad-seed",
				Element: el,
				Message: err.Error(),
			})
			seed = State{}
		}
		st = seed
	}

	c.states[el] = st
	if key != "" {
		c.keyed[key] = st
	}
	c.bus.Emit(EventCellInit, CellEvent{Element: el, State: st})
	return st
}

// Get returns the cell's current state, initializing it on first use.
func (c *cellStore) Get(el *dom.Element) State {
	if st, ok := c.states[el]; ok {
		return st
	}
	return c.Init(el)
}

// Set shallow-merges partial into the cell's state: top-level keys only,
// nested objects replaced wholesale. A partial value of Undefined deletes
// the key. Keys whose value is already equal are skipped, and no
// cell:change event fires when nothing actually changed; the second
// result reports whether anything did, so callers can skip a redundant
// render pass. The identity-key entry shares the live map, so it is
// updated in lockstep.
func (c *cellStore) Set(el *dom.Element, partial State) (State, bool) {
	st := c.Get(el)
	changed := State{}
	for k, v := range partial {
		if IsUndefined(v) {
			if _, ok := st[k]; ok {
				delete(st, k)
				changed[k] = v
			}
			continue
		}
		if cur, ok := st[k]; ok && equalValues(cur, v) {
			continue
		}
		st[k] = v
		changed[k] = v
	}
	if len(changed) > 0 {
		c.bus.Emit(EventCellChange, CellEvent{Element: el, State: st, Changed: changed})
	}
	return st, len(changed) > 0
}

// Snapshot clones the state of every identity-keyed cell under root
// (including root itself), keyed by identity key. Used by the preservation
// protocol around a DOM mutation.
func (c *cellStore) Snapshot(root *dom.Element) map[string]State {
	snap := make(map[string]State)
	for _, el := range c.cellsUnder(root) {
		key := el.AttrOr(attrID, "")
		if key == "" {
			continue
		}
		if st, ok := c.states[el]; ok {
			snap[key] = cloneState(st)
		}
	}
	return snap
}

// Restore merges a snapshot back into the identity-key store, so cells
// re-initializing with a matching key recover pre-replacement state.
func (c *cellStore) Restore(snap map[string]State) {
	for key, st := range snap {
		c.keyed[key] = st
	}
}

// Forget drops the identity-key entry for key and severs the live cells
// bound to it, so a preservation snapshot cannot write the entry back and
// the next initialization under that key starts from the seed. This is the
// only way keyed state is ever released; stale entries otherwise persist
// for the page lifetime.
func (c *cellStore) Forget(key string) {
	delete(c.keyed, key)
	for el := range c.states {
		if el.AttrOr(attrID, "") == key {
			delete(c.states, el)
		}
	}
}

// resetLive drops every per-element entry, for a document reload. Keyed
// entries are kept, so the new document recovers them the same way a
// replaced region does.
func (c *cellStore) resetLive() {
	c.states = make(map[*dom.Element]State)
}

// prune drops live-state entries for elements no longer attached to their
// document. Keyed entries are untouched.
func (c *cellStore) prune() {
	for el := range c.states {
		if !el.Attached() {
			delete(c.states, el)
		}
	}
}

// cellsUnder returns root (if it is a cell) plus every cell beneath it.
func (c *cellStore) cellsUnder(root *dom.Element) []*dom.Element {
	var out []*dom.Element
	if root == nil {
		return nil
	}
	if root.HasAttr(attrCell) {
		out = append(out, root)
	}
	cells, err := root.QueryAll(selCell)
	if err != nil {
		return out
	}
	return append(out, cells...)
}

// cellOf returns the nearest self-or-ancestor cell element, or nil.
func cellOf(el *dom.Element) *dom.Element {
	if el == nil {
		return nil
	}
	cell, err := el.Closest(selCell)
	if err != nil {
		return nil
	}
	return cell
}
