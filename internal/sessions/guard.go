package sessions

import "sync"

// guard serializes operations per session ID. Two requests against the
// same session run one after the other; requests against different
// sessions do not contend.
type guard struct {
	mu      sync.Mutex
	entries map[string]*guardEntry
}

type guardEntry struct {
	mu   sync.Mutex
	refs int
}

func newGuard() *guard {
	return &guard{entries: make(map[string]*guardEntry)}
}

// lock blocks until the caller holds the session's mutex and returns the
// matching unlock function.
func (g *guard) lock(sessionID string) func() {
	g.mu.Lock()
	entry, ok := g.entries[sessionID]
	if !ok {
		entry = &guardEntry{}
		g.entries[sessionID] = entry
	}
	entry.refs++
	g.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		g.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(g.entries, sessionID)
		}
		g.mu.Unlock()
	}
}
