package dom

import "golang.org/x/net/html"

// Handler is a synthetic event listener.
type Handler func(*Event)

// Listener is the registration handle returned by On. Go functions are not
// comparable, so removal goes through the handle rather than the browser's
// remove-by-function-reference.
type Listener struct {
	elem    *Element
	typ     string
	fn      Handler
	removed bool
}

// Type returns the event type the listener was registered for.
func (l *Listener) Type() string { return l.typ }

// Event is a synthetic DOM event. Target is the element Dispatch was called
// on; CurrentTarget is the element whose listener is currently running.
type Event struct {
	Type          string
	Target        *Element
	CurrentTarget *Element
	Detail        any

	// Bubbles controls whether the event travels up the ancestor chain.
	Bubbles bool

	defaultPrevented bool
	stopped          bool
	stoppedNow       bool
}

// NewEvent returns a bubbling event of the given type.
func NewEvent(typ string) *Event {
	return &Event{Type: typ, Bubbles: true}
}

// PreventDefault marks the event's default action as cancelled.
func (ev *Event) PreventDefault() { ev.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (ev *Event) DefaultPrevented() bool { return ev.defaultPrevented }

// StopPropagation stops the event from bubbling past the current element.
// Remaining listeners on the current element still run.
func (ev *Event) StopPropagation() { ev.stopped = true }

// StopImmediatePropagation stops the event entirely: no further listeners on
// the current element and no bubbling.
func (ev *Event) StopImmediatePropagation() {
	ev.stopped = true
	ev.stoppedNow = true
}

// On registers a listener for events of the given type on this element and
// returns its handle.
func (e *Element) On(typ string, fn Handler) *Listener {
	if e.listeners == nil {
		e.listeners = make(map[string][]*Listener)
	}
	l := &Listener{elem: e, typ: typ, fn: fn}
	e.listeners[typ] = append(e.listeners[typ], l)
	return l
}

// Off removes a previously registered listener. Removing a listener twice is
// a no-op.
func (e *Element) Off(l *Listener) {
	if l == nil || l.removed || l.elem != e {
		return
	}
	l.removed = true
	list := e.listeners[l.typ]
	for i, cand := range list {
		if cand == l {
			e.listeners[l.typ] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// Dispatch delivers ev to this element and, if the event bubbles, to each
// ancestor element in turn. It returns false if any listener called
// PreventDefault, matching the browser's dispatchEvent contract.
func (e *Element) Dispatch(ev *Event) bool {
	ev.Target = e
	for n := e.n; n != nil && n.Type == html.ElementNode; n = parentElement(n) {
		cur := e.doc.elem(n)
		ev.CurrentTarget = cur

		// Snapshot so listeners registered mid-dispatch wait for the
		// next event.
		list := append([]*Listener(nil), cur.listeners[ev.Type]...)
		for _, l := range list {
			if l.removed {
				continue
			}
			l.fn(ev)
			if ev.stoppedNow {
				return !ev.defaultPrevented
			}
		}
		if ev.stopped || !ev.Bubbles {
			break
		}
	}
	return !ev.defaultPrevented
}

// Click dispatches a click event and reports whether the default action
// survived.
func (e *Element) Click() bool {
	return e.Dispatch(NewEvent("click"))
}

func parentElement(n *html.Node) *html.Node {
	p := n.Parent
	if p != nil && p.Type == html.ElementNode {
		return p
	}
	return nil
}
