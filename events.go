package surf

import "log/slog"

// Lifecycle event names emitted on the engine's bus. Subscribe with
// Engine.On; details are the typed structs documented at each emit site.
const (
	EventCellInit     = "cell:init"     // detail: CellEvent
	EventCellChange   = "cell:change"   // detail: CellEvent
	EventCellWarn     = "cell:warn"     // detail: WarnEvent
	EventSignalUpdate = "signal:update" // detail: UpdateEvent
	EventPulseStart   = "pulse:start"   // detail: PulseInfo
	EventPulseEnd     = "pulse:end"     // detail: PulseResult
	EventPulseError   = "pulse:error"   // detail: PulseError
	EventEchoBefore   = "echo:before"   // detail: EchoEvent
	EventEchoAfter    = "echo:after"    // detail: EchoEvent
)

// Subscription is the registration handle returned by Bus.On. Go functions
// are not comparable, so removal goes through the handle.
type Subscription struct {
	name    string
	fn      func(detail any)
	removed bool
}

// Event returns the event name the subscription was registered for.
func (s *Subscription) Event() string { return s.name }

// Bus is a synchronous named-event dispatcher. Listeners run in
// registration order; a panicking listener is recovered and logged and
// does not prevent later listeners from running.
type Bus struct {
	log  *slog.Logger
	subs map[string][]*Subscription
}

// NewBus returns an empty bus logging through log.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{log: log, subs: make(map[string][]*Subscription)}
}

// On registers fn for events of the given name and returns its handle.
func (b *Bus) On(name string, fn func(detail any)) *Subscription {
	sub := &Subscription{name: name, fn: fn}
	b.subs[name] = append(b.subs[name], sub)
	return sub
}

// Off removes a previously registered subscription. Removing one twice is
// a no-op.
func (b *Bus) Off(sub *Subscription) {
	if sub == nil || sub.removed {
		return
	}
	sub.removed = true
	list := b.subs[sub.name]
	for i, cand := range list {
		if cand == sub {
			b.subs[sub.name] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Emit invokes every current listener for name, in registration order.
// The listener list is snapshotted first, so listeners added or removed
// during dispatch take effect on the next emit.
func (b *Bus) Emit(name string, detail any) {
	list := append([]*Subscription(nil), b.subs[name]...)
	for _, sub := range list {
		if sub.removed {
			continue
		}
		b.dispatch(sub, name, detail)
	}
}

func (b *Bus) dispatch(sub *Subscription, name string, detail any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("surf: event listener panicked", "event", name, "panic", r)
		}
	}()
	sub.fn(detail)
}
