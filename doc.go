// Package surf is a headless engine for attribute-driven reactive HTML.
//
// SURF pages are plain server-rendered HTML in which elements declare
// reactive behavior through d-* attributes: a d-cell attribute marks a
// subtree as a state scope with an inline seed, d-text/d-show/d-attr bind
// element output to expressions over that state, and d-signal attaches
// event-driven mutation statements. Server round-trips are declared with
// d-nav, d-commit, d-action and d-refresh and deliver either a bare HTML
// fragment for a single target or a <d-patch> payload updating several
// targets at once.
//
// This package is that engine made headless: it owns an in-memory
// document (package dom), interprets the attribute surface, dispatches
// synthetic events, performs real HTTP round-trips, and reconciles
// server-delivered content while preserving cell state. Use it to
// prerender SURF pages on the server, drive SURF applications in
// browserless tests, or build <d-patch> payloads.
//
// # State scopes
//
// A cell owns the state for its subtree. The d-cell value is an
// object-literal seed evaluated once; a d-id attribute gives the cell a
// stable identity key so its state survives content replacement:
//
//	<div d-cell="count: 0" d-id="counter">
//	  <span d-text="count"></span>
//	  <button d-signal="click: count = count + 1">+1</button>
//	</div>
//
// Bindings always resolve against the nearest enclosing cell; nested
// cells are fully isolated from their ancestors.
//
// # Driving the engine
//
// An Engine is constructed empty and then loads a document:
//
//	eng := surf.New(surf.WithLogger(logger))
//	if err := eng.Load(pageHTML, "https://example.com/"); err != nil { ... }
//	eng.Click("#increment")
//	state := eng.GetState(eng.MustQuery("#counter"))
//
// All interaction goes through the Engine, which serializes access to the
// document. Network interactions (pulses) run asynchronously; Wait blocks
// until in-flight pulses settle, and Close cancels them.
//
// # Preservation
//
// Any content swap runs inside the preservation protocol: event bindings
// under the mutated root are detached, cell states are snapshotted by
// identity key, the mutation runs, and cells re-initializing under the
// new content recover their pre-replacement state when their identity
// keys match. Listeners never leak or double-fire across a replacement
// boundary.
//
// # Patch payloads
//
// Servers respond to pulse requests (marked with the X-Surf-Request
// header) with either a bare fragment, applied to the request's declared
// target, or a multi-region payload built with NewPatch:
//
//	p := surf.NewPatch().
//	    Add("#main", "<h1>Updated</h1>").
//	    Add("#toast", "<div class='toast'>Saved!</div>")
//	w.Header().Set("Content-Type", surf.ContentType())
//	io.WriteString(w, p.Render())
//
// # Extension
//
// Named modules registered with RegisterModule become callable from
// expressions and statements (Format.upper(name)). Plugins install
// against the public facade via Use and observe the engine through its
// lifecycle events (cell:init, cell:change, cell:warn, signal:update,
// pulse:start, pulse:end, pulse:error, echo:before, echo:after).
package surf
