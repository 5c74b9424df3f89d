package surf

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dsurf/surf/dom"
)

func testCellStore(t *testing.T) (*cellStore, *Bus) {
	t.Helper()
	bus := NewBus(quietLogger())
	return newCellStore(bus, quietLogger()), bus
}

func mustParse(t *testing.T, src string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(src, "https://example.test/")
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return doc
}

func mustQuery(t *testing.T, doc *dom.Document, sel string) *dom.Element {
	t.Helper()
	el, err := doc.Query(sel)
	if err != nil {
		t.Fatalf("Query(%q): %v", sel, err)
	}
	if el == nil {
		t.Fatalf("Query(%q): no match", sel)
	}
	return el
}

func TestCellInitSeed(t *testing.T) {
	doc := mustParse(t, `<div id="c" d-cell="count: 0, name: 'Ada'" d-id="c"></div>`)
	cells, bus := testCellStore(t)

	var inits []CellEvent
	bus.On(EventCellInit, func(detail any) {
		inits = append(inits, detail.(CellEvent))
	})

	el := mustQuery(t, doc, "#c")
	st := cells.Init(el)

	want := State{"count": float64(0), "name": "Ada"}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("seed state mismatch (-want +got):\n%s", diff)
	}
	if len(inits) != 1 {
		t.Fatalf("got %d cell:init events, want 1", len(inits))
	}
	if inits[0].Element != el {
		t.Error("cell:init carries wrong element")
	}

	// Re-init is a no-op returning the same state.
	again := cells.Init(el)
	again["count"] = float64(7)
	if st["count"] != float64(7) {
		t.Error("re-init did not return the live state map")
	}
	if len(inits) != 1 {
		t.Errorf("re-init fired cell:init again: %d events", len(inits))
	}
}

func TestCellInitBadSeed(t *testing.T) {
	doc := mustParse(t, `<div id="c" d-cell="count:" d-id="c"></div>`)
	cells, bus := testCellStore(t)

	var warns []WarnEvent
	bus.On(EventCellWarn, func(detail any) {
		warns = append(warns, detail.(WarnEvent))
	})

	st := cells.Init(mustQuery(t, doc, "#c"))
	if len(st) != 0 {
		t.Errorf("bad seed state = %v, want empty", st)
	}
	if len(warns) != 1 || warns[0].Kind != "bad-seed" {
		t.Fatalf("warns = %+v, want one bad-seed", warns)
	}
}

func TestCellInitMissingID(t *testing.T) {
	doc := mustParse(t, `<div id="c" d-cell="n: 1"></div>`)
	cells, bus := testCellStore(t)

	var warns []WarnEvent
	bus.On(EventCellWarn, func(detail any) {
		warns = append(warns, detail.(WarnEvent))
	})

	st := cells.Init(mustQuery(t, doc, "#c"))
	if st["n"] != float64(1) {
		t.Errorf("state = %v, want seed applied", st)
	}
	if len(warns) != 1 || warns[0].Kind != "missing-id" {
		t.Fatalf("warns = %+v, want one missing-id", warns)
	}
	if len(cells.keyed) != 0 {
		t.Errorf("keyed store = %v, want empty without d-id", cells.keyed)
	}
}

func TestCellInitWithoutMarker(t *testing.T) {
	doc := mustParse(t, `<div id="plain"></div>`)
	cells, _ := testCellStore(t)

	st := cells.Init(mustQuery(t, doc, "#plain"))
	if len(st) != 0 {
		t.Errorf("state = %v, want empty", st)
	}
	if len(cells.states) != 0 {
		t.Error("element without d-cell was registered")
	}
}

func TestCellSetMerge(t *testing.T) {
	doc := mustParse(t, `<div id="c" d-cell="a: 1, b: 1" d-id="c"></div>`)
	cells, bus := testCellStore(t)
	el := mustQuery(t, doc, "#c")
	cells.Init(el)

	var changes []CellEvent
	bus.On(EventCellChange, func(detail any) {
		changes = append(changes, detail.(CellEvent))
	})

	st, changed := cells.Set(el, State{"b": float64(2)})
	if !changed {
		t.Error("Set reported no change")
	}
	want := State{"a": float64(1), "b": float64(2)}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("merged state (-want +got):\n%s", diff)
	}
	if len(changes) != 1 {
		t.Fatalf("got %d cell:change events, want 1", len(changes))
	}
	if diff := cmp.Diff(State{"b": float64(2)}, changes[0].Changed); diff != "" {
		t.Errorf("changed partial (-want +got):\n%s", diff)
	}

	// Equal value: no event, no change.
	if _, changed := cells.Set(el, State{"b": float64(2)}); changed {
		t.Error("Set of an equal value reported a change")
	}
	if len(changes) != 1 {
		t.Errorf("equal-value Set fired cell:change: %d events", len(changes))
	}

	// Undefined deletes.
	st, changed = cells.Set(el, State{"a": Undefined})
	if !changed {
		t.Error("Undefined delete reported no change")
	}
	if _, ok := st["a"]; ok {
		t.Error("Undefined did not delete the key")
	}
	// Deleting an absent key is a no-op.
	if _, changed := cells.Set(el, State{"a": Undefined}); changed {
		t.Error("deleting an absent key reported a change")
	}
}

func TestCellKeyedRecovery(t *testing.T) {
	doc := mustParse(t, `
		<div id="old" d-cell="count: 0" d-id="counter"></div>
		<div id="new" d-cell="count: 0" d-id="counter"></div>`)
	cells, _ := testCellStore(t)

	oldEl := mustQuery(t, doc, "#old")
	cells.Init(oldEl)
	cells.Set(oldEl, State{"count": float64(5)})

	// A fresh element with the same identity key recovers the mutated
	// state; its seed is ignored.
	st := cells.Init(mustQuery(t, doc, "#new"))
	if st["count"] != float64(5) {
		t.Errorf("recovered count = %v, want 5", st["count"])
	}
}

func TestCellKeyedLockstep(t *testing.T) {
	doc := mustParse(t, `<div id="c" d-cell="n: 0" d-id="k"></div>`)
	cells, _ := testCellStore(t)
	el := mustQuery(t, doc, "#c")
	cells.Init(el)
	cells.Set(el, State{"n": float64(3)})

	if cells.keyed["k"]["n"] != float64(3) {
		t.Errorf("keyed entry = %v, want updated in lockstep", cells.keyed["k"])
	}
}

func TestCellForget(t *testing.T) {
	doc := mustParse(t, `<div id="c" d-cell="n: 9" d-id="k"></div>`)
	cells, _ := testCellStore(t)
	cells.Init(mustQuery(t, doc, "#c"))

	cells.Forget("k")
	if _, ok := cells.keyed["k"]; ok {
		t.Error("Forget did not drop the keyed entry")
	}
	// Forgetting twice is harmless.
	cells.Forget("k")
}

func TestCellForgetSurvivesSnapshot(t *testing.T) {
	doc := mustParse(t, `<div id="c" d-cell="n: 0" d-id="k"></div>`)
	cells, _ := testCellStore(t)
	el := mustQuery(t, doc, "#c")
	cells.Init(el)
	cells.Set(el, State{"n": float64(1)})

	cells.Forget("k")

	// A preservation pass over the still-live element must not write the
	// forgotten entry back.
	cells.Restore(cells.Snapshot(el))
	if _, ok := cells.keyed["k"]; ok {
		t.Fatal("forgotten key resurrected by snapshot/restore")
	}
	if got := cells.Init(el)["n"]; got != float64(0) {
		t.Errorf("n = %v after Forget, want the seed", got)
	}
}

func TestCellSnapshotRestore(t *testing.T) {
	doc := mustParse(t, `
		<section id="root">
			<div id="a" d-cell="n: 1" d-id="a"></div>
			<div id="b" d-cell="n: 2"></div>
		</section>`)
	cells, _ := testCellStore(t)
	root := mustQuery(t, doc, "#root")
	cells.Init(mustQuery(t, doc, "#a"))
	cells.Init(mustQuery(t, doc, "#b"))

	snap := cells.Snapshot(root)
	if len(snap) != 1 {
		t.Fatalf("snapshot has %d entries, want only the keyed cell", len(snap))
	}

	// The snapshot is a deep copy: mutating live state after does not
	// leak into it.
	cells.Set(mustQuery(t, doc, "#a"), State{"n": float64(99)})
	if snap["a"]["n"] != float64(1) {
		t.Errorf("snapshot n = %v, want the value at snapshot time", snap["a"]["n"])
	}

	cells.Forget("a")
	cells.Restore(snap)
	if cells.keyed["a"]["n"] != float64(1) {
		t.Errorf("restored n = %v, want 1", cells.keyed["a"]["n"])
	}
}

func TestCellOf(t *testing.T) {
	doc := mustParse(t, `
		<div id="outer" d-cell="a: 1">
			<div id="inner" d-cell="b: 2">
				<button id="btn"></button>
			</div>
			<span id="direct"></span>
		</div>
		<p id="orphan"></p>`)

	if got := cellOf(mustQuery(t, doc, "#btn")); got == nil || got.ID() != "inner" {
		t.Errorf("cellOf(btn) = %v, want the nearest cell", got)
	}
	if got := cellOf(mustQuery(t, doc, "#direct")); got == nil || got.ID() != "outer" {
		t.Errorf("cellOf(direct) = %v, want outer", got)
	}
	if got := cellOf(mustQuery(t, doc, "#inner")); got == nil || got.ID() != "inner" {
		t.Errorf("cellOf(inner) = %v, want itself", got)
	}
	if got := cellOf(mustQuery(t, doc, "#orphan")); got != nil {
		t.Errorf("cellOf(orphan) = %v, want nil", got)
	}
}
