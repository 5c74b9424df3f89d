package surf

// historyEntry is one recorded navigation. Entries created by the engine
// are marked and carry enough of the original pulse to replay it;
// unmarked entries are assumed foreign and fall back to a full reload.
type historyEntry struct {
	url    string
	target string
	marked bool
}

// historyList is the engine's in-memory rendering of the browser history:
// a stack of entries with a cursor moved by back/forward traversal.
type historyList struct {
	entries []historyEntry
	pos     int
}

// push records a navigation. Navigating to the URL of the current entry
// replaces it in place rather than growing the stack; otherwise any
// forward entries are dropped and the new entry appended.
func (h *historyList) push(entry historyEntry) {
	if len(h.entries) == 0 {
		h.entries = []historyEntry{entry}
		h.pos = 0
		return
	}
	if h.entries[h.pos].url == entry.url {
		h.entries[h.pos] = entry
		return
	}
	h.entries = append(h.entries[:h.pos+1], entry)
	h.pos = len(h.entries) - 1
}

// current returns the entry under the cursor.
func (h *historyList) current() (historyEntry, bool) {
	if len(h.entries) == 0 {
		return historyEntry{}, false
	}
	return h.entries[h.pos], true
}

// back moves the cursor one entry toward the oldest and returns it.
func (h *historyList) back() (historyEntry, bool) {
	if h.pos == 0 {
		return historyEntry{}, false
	}
	h.pos--
	return h.entries[h.pos], true
}

// forward moves the cursor one entry toward the newest and returns it.
func (h *historyList) forward() (historyEntry, bool) {
	if h.pos >= len(h.entries)-1 {
		return historyEntry{}, false
	}
	h.pos++
	return h.entries[h.pos], true
}

// Back replays the previous history entry, the headless rendering of the
// browser's back button. Marked entries replay their recorded pulse; an
// unmarked entry's content is assumed stale, so it reloads as a full
// document. It reports whether there was an entry to go back to.
func (e *Engine) Back() bool {
	e.mu.Lock()
	defer e.unlock()
	entry, ok := e.history.back()
	if !ok {
		return false
	}
	e.replay(entry)
	return true
}

// Forward is the inverse traversal of Back.
func (e *Engine) Forward() bool {
	e.mu.Lock()
	defer e.unlock()
	entry, ok := e.history.forward()
	if !ok {
		return false
	}
	e.replay(entry)
	return true
}

func (e *Engine) replay(entry historyEntry) {
	target := entry.target
	if !entry.marked {
		// Foreign history entry: the recorded target means nothing, so
		// reload the whole document.
		target = ""
	}
	e.pulse.start(pulseRequest{
		kind:   pulseNavigate,
		method: "GET",
		url:    entry.url,
		target: target,
	})
}
