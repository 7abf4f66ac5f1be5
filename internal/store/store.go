// Package store holds the chat UI state behind a reducer and lets any
// number of subscribers observe it.
package store

import (
	"sync"

	"drinkmate/supportchat/internal/logger"

	"go.uber.org/zap"
)

// Listener receives a snapshot after every dispatch. Listeners run on the
// dispatching goroutine and must not call Dispatch themselves.
type Listener func(State)

// Store is the single source of truth for the chat UI. Dispatch is safe for
// concurrent use; actions are applied one at a time in dispatch order.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
	log       *zap.Logger

	// notifyMu serializes listener delivery so snapshots arrive in order.
	notifyMu sync.Mutex
}

// New creates a store holding the initial state.
func New(log *zap.Logger) *Store {
	return &Store{
		state:     InitialState(),
		listeners: make(map[int]Listener),
		log:       logger.OrNop(log),
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies the actions in order and notifies subscribers once.
func (s *Store) Dispatch(actions ...Action) {
	if len(actions) == 0 {
		return
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	for _, a := range actions {
		s.state = Reduce(s.state, a)
		s.log.Debug("store action", zap.String("module", "store"), zap.String("action", Name(a)))
	}
	snapshot := s.state
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}
