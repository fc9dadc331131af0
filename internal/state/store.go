package state

import "sync"

// Change is delivered to subscribers after an action is committed.
type Change struct {
	Action   Action
	Previous State
	Current  State
}

// Store serializes dispatches so no two reductions interleave.
type Store struct {
	mu          sync.Mutex
	state       State
	nextID      int
	subscribers []subscriber
}

type subscriber struct {
	id int
	fn func(Change)
}

func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// State returns the current state. Callers must treat slices in it as read-only.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch reduces a into the store, then notifies subscribers in
// registration order. Subscribers may dispatch further actions.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	previous := s.state
	s.state = Reduce(previous, a)
	change := Change{Action: a, Previous: previous, Current: s.state}
	subscribers := append([]subscriber(nil), s.subscribers...)
	s.mu.Unlock()

	for _, sub := range subscribers {
		sub.fn(change)
	}
}

// Subscribe registers fn for every committed change and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}
