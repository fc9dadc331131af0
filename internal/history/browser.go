// Package history keeps the state store and a browser history in step.
package history

import "sync"

type NavigationKind string

const (
	Push NavigationKind = "push"
	Pop  NavigationKind = "pop"
)

// Navigation is delivered to listeners whenever the current entry changes.
// Search is the query string of the new entry without its leading "?".
type Navigation struct {
	Kind   NavigationKind
	Search string
}

// Browser is the part of a browser's history the controller needs.
type Browser interface {
	Search() string
	Push(search string)
	Listen(fn func(Navigation)) (unlisten func())
}

// MemoryBrowser is an in-process history stack with a cursor. It is used by
// server-side sessions and by tests.
type MemoryBrowser struct {
	mu        sync.Mutex
	entries   []string
	index     int
	nextID    int
	listeners []listener
}

type listener struct {
	id int
	fn func(Navigation)
}

func NewMemoryBrowser(initial string) *MemoryBrowser {
	return &MemoryBrowser{entries: []string{trimSearch(initial)}}
}

// RestoreMemoryBrowser rebuilds a browser from persisted entries. An empty
// entry list yields a single empty entry and the index is clamped.
func RestoreMemoryBrowser(entries []string, index int) *MemoryBrowser {
	if len(entries) == 0 {
		return NewMemoryBrowser("")
	}
	restored := make([]string, len(entries))
	for i, entry := range entries {
		restored[i] = trimSearch(entry)
	}
	index = max(0, min(index, len(restored)-1))
	return &MemoryBrowser{entries: restored, index: index}
}

func (b *MemoryBrowser) Search() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries[b.index]
}

// Push drops any forward entries and appends search as the current entry.
func (b *MemoryBrowser) Push(search string) {
	search = trimSearch(search)
	b.mu.Lock()
	b.entries = append(b.entries[:b.index+1], search)
	b.index = len(b.entries) - 1
	b.mu.Unlock()
	b.emit(Navigation{Kind: Push, Search: search})
}

func (b *MemoryBrowser) Back() bool { return b.Go(-1) }

func (b *MemoryBrowser) Forward() bool { return b.Go(1) }

// Go moves the cursor by delta and emits a pop. It reports false and does
// nothing when the target is out of range.
func (b *MemoryBrowser) Go(delta int) bool {
	b.mu.Lock()
	target := b.index + delta
	if delta == 0 || target < 0 || target >= len(b.entries) {
		b.mu.Unlock()
		return false
	}
	b.index = target
	search := b.entries[target]
	b.mu.Unlock()
	b.emit(Navigation{Kind: Pop, Search: search})
	return true
}

// Load opens search as a new entry, as if typed into the address bar, and
// emits a pop so listeners replay it.
func (b *MemoryBrowser) Load(search string) {
	search = trimSearch(search)
	b.mu.Lock()
	b.entries = append(b.entries[:b.index+1], search)
	b.index = len(b.entries) - 1
	b.mu.Unlock()
	b.emit(Navigation{Kind: Pop, Search: search})
}

func (b *MemoryBrowser) Entries() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.entries...)
}

func (b *MemoryBrowser) Index() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index
}

func (b *MemoryBrowser) CanGoBack() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index > 0
}

func (b *MemoryBrowser) CanGoForward() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index < len(b.entries)-1
}

func (b *MemoryBrowser) Listen(fn func(Navigation)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, l := range b.listeners {
			if l.id == id {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// emit runs listeners outside the lock so they may read or push.
func (b *MemoryBrowser) emit(nav Navigation) {
	b.mu.Lock()
	listeners := append([]listener(nil), b.listeners...)
	b.mu.Unlock()
	for _, l := range listeners {
		l.fn(nav)
	}
}

func trimSearch(search string) string {
	if len(search) > 0 && search[0] == '?' {
		return search[1:]
	}
	return search
}
