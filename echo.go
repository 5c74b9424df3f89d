package surf

import "github.com/dsurf/surf/dom"

// EchoEvent is the detail for echo:before and echo:after.
type EchoEvent struct {
	Root *dom.Element
}

// withPreservation runs an arbitrary DOM mutation of root's content while
// preserving identity-keyed cell state across it. The sequence is the
// engine's central correctness guarantee:
//
//  1. detach every event binding under root, so stale closures over
//     soon-to-be-replaced elements cannot fire;
//  2. snapshot cell states keyed by identity key;
//  3. run the mutation (the caller performs the actual content swap);
//  4. merge the snapshot back into the identity-key store, so a cell
//     re-initializing under the new content with a matching key recovers
//     its pre-replacement state rather than its seed;
//  5. re-initialize every cell under root and re-bind every event binding
//     and pulse trigger found there.
func (e *Engine) withPreservation(root *dom.Element, mutate func()) {
	if root == nil {
		return
	}
	e.bus.Emit(EventEchoBefore, EchoEvent{Root: root})

	e.signals.unbindAll(root)
	snap := e.cells.Snapshot(root)

	mutate()

	e.cells.Restore(snap)
	e.cells.prune()
	e.initRegion(root)

	e.bus.Emit(EventEchoAfter, EchoEvent{Root: root})
}

// initRegion boots root and everything under it: cells initialize (with
// identity-key recovery when present), event bindings and pulse triggers
// attach, and every cell gets an initial binding pass.
func (e *Engine) initRegion(root *dom.Element) {
	cells := e.cells.cellsUnder(root)
	for _, cell := range cells {
		e.cells.Init(cell)
	}
	e.signals.bindAll(root)
	e.wireTriggers(root)
	for _, cell := range cells {
		e.signals.updateBindings(cell)
	}
}
