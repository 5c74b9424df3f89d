package surf

import (
	"strings"

	"github.com/dsurf/surf/dom"
)

// UpdateEvent is the detail for signal:update, emitted once per binding
// pass over a cell.
type UpdateEvent struct {
	Cell *dom.Element
}

// signalBinder owns the per-element listener table: the explicit arena of
// every listener the engine has attached, both d-signal bindings and pulse
// triggers. The invariant it enforces is at most one live listener set per
// element; rebinding always removes the previous set before attaching a
// new one, so superseded handlers can neither leak nor double-fire.
type signalBinder struct {
	eng       *Engine
	listeners map[*dom.Element][]*dom.Listener
}

func newSignalBinder(eng *Engine) *signalBinder {
	return &signalBinder{eng: eng, listeners: make(map[*dom.Element][]*dom.Listener)}
}

// track records an engine-attached listener so unbind can tear it down.
func (sb *signalBinder) track(el *dom.Element, l *dom.Listener) {
	sb.listeners[el] = append(sb.listeners[el], l)
}

// unbindElement removes every listener the engine attached to el.
func (sb *signalBinder) unbindElement(el *dom.Element) {
	for _, l := range sb.listeners[el] {
		el.Off(l)
	}
	delete(sb.listeners, el)
}

// unbindAll detaches every tracked listener on root and its descendants.
// Run before a content swap so stale closures over soon-to-be-replaced
// elements cannot fire.
func (sb *signalBinder) unbindAll(root *dom.Element) {
	for el := range sb.listeners {
		if el == root || root.Contains(el) {
			sb.unbindElement(el)
		}
	}
}

// reset drops the whole arena, for a document reload. The old document is
// discarded with its listeners, so nothing needs detaching one by one.
func (sb *signalBinder) reset() {
	sb.listeners = make(map[*dom.Element][]*dom.Listener)
}

// bindAll (re)binds the d-signal attribute of root and every descendant
// carrying one.
func (sb *signalBinder) bindAll(root *dom.Element) {
	if root.HasAttr(attrSignal) {
		sb.bindElement(root)
	}
	els, err := root.QueryAll(selSignal)
	if err != nil {
		return
	}
	for _, el := range els {
		sb.bindElement(el)
	}
}

// bindElement parses el's d-signal attribute and attaches one listener per
// event: statement pair, after removing any previously attached set.
func (sb *signalBinder) bindElement(el *dom.Element) {
	sb.unbindElement(el)
	attr, ok := el.Attr(attrSignal)
	if !ok {
		return
	}
	for _, pair := range splitTop(attr, ';') {
		eventName, stmtSrc, found := splitPair(pair, ':')
		if !found {
			if strings.TrimSpace(pair) != "" {
				sb.eng.log.Warn("surf: d-signal entry without an event name", "entry", pair)
			}
			continue
		}
		eventName = strings.TrimSpace(eventName)
		st := parseStatement(stmtSrc)
		l := el.On(eventName, sb.handler(el, st))
		sb.track(el, l)
	}
}

// handler builds the listener for one parsed statement. Firing re-reads
// the enclosing cell's current state, executes the statement, and writes
// any non-empty change set back through the store, re-running the cell's
// bindings.
func (sb *signalBinder) handler(el *dom.Element, st statement) dom.Handler {
	return func(ev *dom.Event) {
		eng := sb.eng
		cell := cellOf(el)
		if cell == nil && st.kind != stmtSubmit && st.kind != stmtReset {
			eng.log.Warn("surf: d-signal outside any d-cell", "statement", st.src)
			return
		}
		var state State
		if cell != nil {
			state = eng.cells.Get(cell)
		}
		env := evalEnv{state: state, elem: el, event: ev, modules: eng.modules, log: eng.log}
		changes := eng.execute(st, env)
		if len(changes) > 0 && cell != nil {
			if _, changed := eng.cells.Set(cell, changes); changed {
				sb.updateBindings(cell)
			}
		}
	}
}

// updateBindings recomputes every text, visibility and attribute binding
// owned by cell from its current state. Elements whose nearest enclosing
// cell is a different (nested) cell are skipped; that isolation is the
// engine's critical invariant. An expression evaluating to Undefined
// leaves the DOM untouched for that binding.
func (sb *signalBinder) updateBindings(cell *dom.Element) {
	eng := sb.eng
	env := evalEnv{state: eng.cells.Get(cell), modules: eng.modules, log: eng.log}

	for _, el := range sb.owned(cell, selText) {
		v := evaluate(el.AttrOr(attrText, ""), env)
		if IsUndefined(v) {
			continue
		}
		el.SetText(stringify(v))
	}

	for _, el := range sb.owned(cell, selShow) {
		v := evaluate(el.AttrOr(attrShow, ""), env)
		if IsUndefined(v) {
			continue
		}
		el.ToggleAttr("hidden", !truthy(v))
	}

	for _, el := range sb.owned(cell, selAttr) {
		sb.applyAttrBindings(el, env)
	}

	eng.bus.Emit(EventSignalUpdate, UpdateEvent{Cell: cell})
}

// applyAttrBindings applies one element's d-attr list: ;-joined name:expr
// or class.name:expr sub-bindings. Boolean results toggle presence, other
// results are stringified into the attribute value.
func (sb *signalBinder) applyAttrBindings(el *dom.Element, env evalEnv) {
	attr, _ := el.Attr(attrAttr)
	for _, pair := range splitTop(attr, ';') {
		name, expr, found := splitPair(pair, ':')
		if !found {
			if strings.TrimSpace(pair) != "" {
				sb.eng.log.Warn("surf: d-attr entry without a name", "entry", pair)
			}
			continue
		}
		name = strings.TrimSpace(name)
		v := evaluate(expr, env)
		if IsUndefined(v) {
			continue
		}
		if cls, ok := strings.CutPrefix(name, "class."); ok {
			el.ToggleClass(cls, truthy(v))
			continue
		}
		if b, ok := v.(bool); ok {
			el.ToggleAttr(name, b)
			continue
		}
		el.SetAttr(name, stringify(v))
	}
}

// owned returns the binding elements under cell whose nearest enclosing
// cell is cell itself.
func (sb *signalBinder) owned(cell *dom.Element, selector string) []*dom.Element {
	els, err := cell.QueryAll(selector)
	if err != nil {
		return nil
	}
	out := els[:0]
	for _, el := range els {
		if cellOf(el) == cell {
			out = append(out, el)
		}
	}
	return out
}
