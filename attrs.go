package surf

// Declarative attribute surface. These are the attributes the engine reads
// off the document; everything else on an element is left alone.
const (
	// State scopes.
	attrCell = "d-cell" // seed expression; marks a state scope
	attrID   = "d-id"   // stable identity key for cross-replacement recovery

	// Bindings.
	attrText   = "d-text"   // text content binding
	attrShow   = "d-show"   // visibility binding (toggles hidden)
	attrAttr   = "d-attr"   // attribute/class bindings, ;-joined name:expr
	attrSignal = "d-signal" // event bindings, ;-joined event: statement

	// Pulse triggers.
	attrNav     = "d-nav"     // click: GET navigation, value or href is the URL
	attrCommit  = "d-commit"  // submit: form serialization round-trip
	attrAction  = "d-action"  // click: POST JSON, value is the URL
	attrRefresh = "d-refresh" // click: re-fetch the current page into a target
	attrTarget  = "d-target"  // target selector for the pulse response
	attrSwap    = "d-swap"    // swap mode for content applied to this element
)

// Request headers sent with every pulse so servers can distinguish partial
// updates from full-page loads.
const (
	// HeaderRequest is set to "true" on every engine-issued request.
	HeaderRequest = "X-Surf-Request"

	// HeaderTarget carries the target selector the response will be
	// applied to, when one was declared.
	HeaderTarget = "X-Surf-Target"
)

// selectors used when scanning regions of the document.
const (
	selCell    = "[d-cell]"
	selSignal  = "[d-signal]"
	selText    = "[d-text]"
	selShow    = "[d-show]"
	selAttr    = "[d-attr]"
	selNav     = "[d-nav]"
	selCommit  = "[d-commit]"
	selAction  = "[d-action]"
	selRefresh = "[d-refresh]"
)
