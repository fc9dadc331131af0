package history

import (
	"sync"

	"bugomattic/api/internal/state"
	"bugomattic/api/internal/urlquery"
)

// Controller mirrors the URL-tracked state slices into a Browser and replays
// pop navigations into the store.
type Controller struct {
	store   *state.Store
	browser Browser
	codec   *urlquery.Codec

	mu       sync.Mutex
	started  bool
	unlisten func()
}

func New(store *state.Store, browser Browser) *Controller {
	return &Controller{
		store:   store,
		browser: browser,
		codec:   urlquery.New(state.TrackedKeys...),
	}
}

// Codec returns the codec used for the tracked keys.
func (c *Controller) Codec() *urlquery.Codec { return c.codec }

// UpdateHistoryWithState pushes the encoded tracked state as a new entry. It
// does nothing when the encoding equals the current search, so repeated calls
// never grow the history. It reports whether an entry was pushed.
func (c *Controller) UpdateHistoryWithState() bool {
	encoded := c.codec.Encode(state.SelectTrackedState(c.store.State()))
	if encoded == trimSearch(c.browser.Search()) {
		return false
	}
	c.browser.Push(encoded)
	return true
}

// Start registers the pop listener and replays the current search into the
// store. Later calls are no-ops.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.unlisten = c.browser.Listen(c.onNavigation)
	c.mu.Unlock()

	c.replay(c.browser.Search())
}

// Stop removes the pop listener. The controller cannot be restarted.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unlisten != nil {
		c.unlisten()
		c.unlisten = nil
	}
}

func (c *Controller) onNavigation(nav Navigation) {
	if nav.Kind != Pop {
		return
	}
	c.replay(nav.Search)
}

func (c *Controller) replay(search string) {
	c.store.Dispatch(state.HistoryReplace{Values: c.codec.Decode(search)})
}
