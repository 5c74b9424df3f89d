// Package autorefresh periodically re-fetches regions marked with a
// d-poll attribute. It is a pure consumer of the engine's public surface:
// it discovers regions through queries, schedules against the engine
// clock, observes echo:after to pick up regions delivered by content
// swaps, and fires plain Refresh pulses.
//
//	<section id="feed" d-poll="5000">...</section>
//
// polls #feed every five seconds, firing once immediately on install.
package autorefresh

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dsurf/surf"
)

// Attr is the polling attribute: its value is the interval in
// milliseconds.
const Attr = "d-poll"

// Plugin implements surf.Plugin.
type Plugin struct {
	mu      sync.Mutex
	eng     *surf.Engine
	ctx     context.Context
	cancel  context.CancelFunc
	polling map[string]context.CancelFunc // by target selector
	sub     *surf.Subscription
}

// New returns an uninstalled plugin.
func New() *Plugin {
	return &Plugin{polling: make(map[string]context.CancelFunc)}
}

// Name implements surf.Plugin.
func (p *Plugin) Name() string { return "autorefresh" }

// Install starts polling every current d-poll region and rescans after
// every preservation pass so regions arriving in swapped content get
// picked up too.
func (p *Plugin) Install(eng *surf.Engine) error {
	p.mu.Lock()
	p.eng = eng
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.mu.Unlock()

	// Rescan runs on its own goroutine: bus listeners are delivered
	// inside engine entry points and must not re-enter the facade.
	p.sub = eng.On(surf.EventEchoAfter, func(any) { go p.Rescan() })
	p.Rescan()
	return nil
}

// Stop cancels every poller and the echo subscription. The plugin can be
// reinstalled afterward.
func (p *Plugin) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	if p.sub != nil && p.eng != nil {
		p.eng.Off(p.sub)
	}
	p.polling = make(map[string]context.CancelFunc)
}

// Rescan discovers d-poll regions and starts a poller for each target not
// already polled. Each poller fires once immediately, then on its
// interval, and retires when its target no longer matches anything.
func (p *Plugin) Rescan() {
	els, err := p.eng.QueryAll("[" + Attr + "]")
	if err != nil {
		return
	}
	for _, el := range els {
		ms, err := strconv.Atoi(el.AttrOr(Attr, ""))
		if err != nil || ms <= 0 {
			p.eng.Logger().Warn("autorefresh: invalid d-poll interval", "value", el.AttrOr(Attr, ""))
			continue
		}
		target := el.AttrOr("d-target", "")
		if target == "" {
			if id := el.ID(); id != "" {
				target = "#" + id
			}
		}
		if target == "" {
			p.eng.Logger().Warn("autorefresh: d-poll region needs an id or d-target", "tag", el.Tag())
			continue
		}
		p.startPoller(target, time.Duration(ms)*time.Millisecond)
	}
}

func (p *Plugin) startPoller(target string, interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.polling[target]; ok {
		return
	}
	ctx, cancel := context.WithCancel(p.ctx)
	p.polling[target] = cancel

	eng := p.eng
	go func() {
		defer p.retire(target)
		eng.Refresh(target)
		for {
			select {
			case <-ctx.Done():
				return
			case <-eng.Clock().After(interval):
			}
			if ctx.Err() != nil {
				return
			}
			if el, err := eng.Query(target); err != nil || el == nil {
				return
			}
			eng.Refresh(target)
		}
	}()
}

func (p *Plugin) retire(target string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cancel, ok := p.polling[target]; ok {
		cancel()
		delete(p.polling, target)
	}
}
