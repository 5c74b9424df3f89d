package surf

import "testing"

func TestSignalCounter(t *testing.T) {
	eng := newTestEngine(t, `
		<div d-cell="count: 0" d-id="counter">
			<span id="out" d-text="count">0</span>
			<button id="inc" d-signal="click: count = count + 1">+</button>
			<button id="dec" d-signal="click: count = Math.max(count - 1, 0)">-</button>
		</div>`)

	for i := 0; i < 3; i++ {
		if err := eng.Click("#inc"); err != nil {
			t.Fatalf("Click(#inc): %v", err)
		}
	}
	if got := eng.MustQuery("#out").Text(); got != "3" {
		t.Errorf("after three increments, #out = %q, want 3", got)
	}

	for i := 0; i < 5; i++ {
		if err := eng.Click("#dec"); err != nil {
			t.Fatalf("Click(#dec): %v", err)
		}
	}
	// The decrement clamps at zero.
	if got := eng.MustQuery("#out").Text(); got != "0" {
		t.Errorf("after clamped decrements, #out = %q, want 0", got)
	}
	if got := eng.GetState(eng.MustQuery("#out"))["count"]; got != float64(0) {
		t.Errorf("count state = %v, want 0", got)
	}
}

func TestSignalMultipleStatements(t *testing.T) {
	eng := newTestEngine(t, `
		<div d-cell="a: 0, b: 0" d-id="c">
			<button id="btn" d-signal="click: a = a + 1; click: b = 'set'"></button>
		</div>`)

	if err := eng.Click("#btn"); err != nil {
		t.Fatalf("Click: %v", err)
	}
	st := eng.GetState(eng.MustQuery("#btn"))
	if st["a"] != float64(1) || st["b"] != "set" {
		t.Errorf("state = %v, want both statements applied", st)
	}
}

func TestSignalShowBinding(t *testing.T) {
	eng := newTestEngine(t, `
		<div d-cell="open: false" d-id="c">
			<div id="panel" d-show="open" hidden></div>
			<div id="closed" d-show="!open"></div>
			<button id="toggle" d-signal="click: open = !open"></button>
		</div>`)

	if err := eng.Click("#toggle"); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if eng.MustQuery("#panel").HasAttr("hidden") {
		t.Error("#panel still hidden after open = true")
	}
	if !eng.MustQuery("#closed").HasAttr("hidden") {
		t.Error("#closed not hidden after open = true")
	}

	if err := eng.Click("#toggle"); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if !eng.MustQuery("#panel").HasAttr("hidden") {
		t.Error("#panel not hidden after toggling back")
	}
}

func TestSignalAttrBindings(t *testing.T) {
	eng := newTestEngine(t, `
		<div d-cell="active: false, level: 2" d-id="c">
			<div id="box" d-attr="class.active: active; disabled: !active; data-level: level"></div>
			<button id="go" d-signal="click: active = true"></button>
		</div>`)

	if err := eng.Click("#go"); err != nil {
		t.Fatalf("Click: %v", err)
	}

	box := eng.MustQuery("#box")
	if !box.HasClass("active") {
		t.Error("class.active binding did not add the class")
	}
	if box.HasAttr("disabled") {
		t.Error("boolean binding did not remove disabled")
	}
	if got := box.AttrOr("data-level", ""); got != "2" {
		t.Errorf("data-level = %q, want 2", got)
	}
}

func TestSignalUndefinedLeavesDOM(t *testing.T) {
	eng := newTestEngine(t, `
		<div d-cell="count: 0" d-id="c">
			<span id="out" d-text="missing">untouched</span>
			<button id="btn" d-signal="click: count = count + 1"></button>
		</div>`)

	if err := eng.Click("#btn"); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if got := eng.MustQuery("#out").Text(); got != "untouched" {
		t.Errorf("Undefined binding rewrote the node: %q", got)
	}
}

func TestSignalNestedCellIsolation(t *testing.T) {
	eng := newTestEngine(t, `
		<div id="outer" d-cell="n: 0" d-id="outer">
			<span id="outerOut" d-text="n">0</span>
			<button id="outerInc" d-signal="click: n = n + 1"></button>
			<div id="inner" d-cell="n: 100" d-id="inner">
				<span id="innerOut" d-text="n">100</span>
				<button id="innerInc" d-signal="click: n = n + 1"></button>
			</div>
		</div>`)

	// The outer cell's update pass must not rewrite inner bindings.
	if err := eng.Click("#outerInc"); err != nil {
		t.Fatalf("Click(#outerInc): %v", err)
	}
	if got := eng.MustQuery("#outerOut").Text(); got != "1" {
		t.Errorf("outer binding = %q, want 1", got)
	}
	if got := eng.MustQuery("#innerOut").Text(); got != "100" {
		t.Errorf("outer update leaked into inner binding: %q", got)
	}

	// And the inner cell's update and state stay inside it.
	if err := eng.Click("#innerInc"); err != nil {
		t.Fatalf("Click(#innerInc): %v", err)
	}
	if got := eng.MustQuery("#innerOut").Text(); got != "101" {
		t.Errorf("inner binding = %q, want 101", got)
	}
	if got := eng.MustQuery("#outerOut").Text(); got != "1" {
		t.Errorf("inner update leaked into outer binding: %q", got)
	}
	if got := eng.GetState(eng.MustQuery("#outer"))["n"]; got != float64(1) {
		t.Errorf("outer n = %v, want 1", got)
	}
	if got := eng.GetState(eng.MustQuery("#inner"))["n"]; got != float64(101) {
		t.Errorf("inner n = %v, want 101", got)
	}
}

func TestSignalRebindReplacesListeners(t *testing.T) {
	eng := newTestEngine(t, `
		<div d-cell="count: 0" d-id="c">
			<button id="btn" d-signal="click: count = count + 1"></button>
		</div>`)

	// Rebinding the same element must replace, not stack, its listeners.
	btn := eng.MustQuery("#btn")
	eng.mu.Lock()
	eng.signals.bindElement(btn)
	eng.unlock()

	if err := eng.Click("#btn"); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if got := eng.GetState(eng.MustQuery("#btn"))["count"]; got != float64(1) {
		t.Errorf("count = %v after one click, want 1 (listener double-fired?)", got)
	}
}

func TestSignalOutsideCell(t *testing.T) {
	eng := newTestEngine(t, `<button id="stray" d-signal="click: count = count + 1"></button>`)

	// A warned no-op, never a panic.
	if err := eng.Click("#stray"); err != nil {
		t.Fatalf("Click: %v", err)
	}
}

func TestSignalModuleCall(t *testing.T) {
	eng := newTestEngine(t, `
		<div d-cell="v: 'x'" d-id="c">
			<button id="btn" d-signal="click: Track.hit('clicked', v)"></button>
		</div>`)

	var got []any
	eng.RegisterModule("Track", Module{
		"hit": func(args ...any) any {
			got = append(got, args...)
			return nil
		},
	})

	if err := eng.Click("#btn"); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if len(got) != 2 || got[0] != "clicked" || got[1] != "x" {
		t.Errorf("module call args = %v, want [clicked x]", got)
	}
}

func TestSignalThisValue(t *testing.T) {
	eng := newTestEngine(t, `
		<div d-cell="name: ''" d-id="c">
			<input id="field" value="Ada" d-signal="input: name = Cap.echo(this.value)">
			<span id="out" d-text="name"></span>
		</div>`)

	eng.RegisterModule("Cap", Module{
		"echo": func(args ...any) any {
			if len(args) == 0 {
				return Undefined
			}
			return args[0]
		},
	})

	if err := eng.Fire("#field", "input"); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if got := eng.MustQuery("#out").Text(); got != "Ada" {
		t.Errorf("#out = %q, want the input's live value", got)
	}
}
