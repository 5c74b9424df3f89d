package surf

import "github.com/dsurf/surf/dom"

// SwapMode defines how delivered content is applied to a target element.
// Targets declare their preferred mode with the d-swap attribute; the
// default is SwapReplace.
type SwapMode string

const (
	// SwapReplace swaps the content in as the sole content of the target.
	SwapReplace SwapMode = "replace"

	// SwapAppend inserts the content after the target's last child.
	// Useful for growing lists and streams.
	SwapAppend SwapMode = "append"

	// SwapPrepend inserts the content before the target's first child.
	SwapPrepend SwapMode = "prepend"
)

// ParseSwapMode parses a d-swap attribute value. The empty string is the
// default SwapReplace; an unrecognized value also falls back to
// SwapReplace but reports false.
func ParseSwapMode(s string) (SwapMode, bool) {
	switch SwapMode(s) {
	case "":
		return SwapReplace, true
	case SwapReplace, SwapAppend, SwapPrepend:
		return SwapMode(s), true
	}
	return SwapReplace, false
}

// swapModeOf reads an element's preferred swap mode off its d-swap
// attribute, warning once per bad value via the engine log.
func (e *Engine) swapModeOf(el *dom.Element) SwapMode {
	if el == nil {
		return SwapReplace
	}
	raw := el.AttrOr(attrSwap, "")
	mode, ok := ParseSwapMode(raw)
	if !ok {
		e.log.Warn("surf: unrecognized d-swap value", "value", raw, "tag", el.Tag())
	}
	return mode
}
