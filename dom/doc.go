// Package dom provides the headless document model the surf engine runs
// against.
//
// A Document wraps a golang.org/x/net/html parse tree and adds the pieces a
// browser would otherwise supply: identity-stable element handles, CSS
// selector queries (via cascadia), synthetic event dispatch with bubbling,
// and live form-control state distinct from parsed attribute defaults.
//
// # Element identity
//
// Every *html.Node is represented by exactly one *Element for the lifetime of
// the node's attachment to the document. Identity-keyed tables (state scopes,
// listener sets) rely on this: looking an element up twice yields the same
// pointer. Detaching a subtree (Remove, ReplaceChildren and the *HTML
// mutators) releases the wrappers and listeners underneath it, so replaced
// content cannot leak handles or fire stale listeners.
//
// # Events
//
// Dispatch is synchronous and bubbles from the target to the root, mirroring
// the browser's bubble phase. Listeners are invoked in registration order
// against a snapshot taken per element, so listeners added while an event is
// being dispatched do not observe that event.
//
// A Document is not safe for concurrent use; the engine serializes access.
package dom
