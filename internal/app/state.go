// Package app owns the canonical application state, the legal state
// transition table, and the event bus that broadcasts state and
// operation lifecycle changes to front-end subscribers.
package app

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// State is the closed set of application states. Exactly one value is
// current at any instant.
type State interface {
	isState()

	// Name returns the state's discriminant for messages and logs.
	Name() string
}

// StateEmpty is the initial state: nothing selected, nothing loaded.
type StateEmpty struct{}

// StateFilesSelected holds the files picked for the next create.
type StateFilesSelected struct {
	Files []string
}

// StateArchiveLoaded holds the path of an opened archive.
type StateArchiveLoaded struct {
	Path string
}

// StateProcessing marks an operation in flight.
type StateProcessing struct {
	Operation Operation
}

// StateError holds the message of a failed operation.
type StateError struct {
	Message string
}

func (StateEmpty) isState()         {}
func (StateFilesSelected) isState() {}
func (StateArchiveLoaded) isState() {}
func (StateProcessing) isState()    {}
func (StateError) isState()         {}

func (StateEmpty) Name() string         { return "empty" }
func (StateFilesSelected) Name() string { return "files_selected" }
func (StateArchiveLoaded) Name() string { return "archive_loaded" }
func (StateProcessing) Name() string    { return "processing" }
func (StateError) Name() string         { return "error" }

// InvalidTransitionError reports a rejected state transition. The
// current state is left unchanged when this is returned.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From.Name(), e.To.Name())
}

// transitionAllowed is the fixed legal-transition table.
func transitionAllowed(from, to State) bool {
	switch from.(type) {
	case StateEmpty:
		switch to.(type) {
		case StateFilesSelected, StateArchiveLoaded:
			return true
		}
	case StateFilesSelected, StateArchiveLoaded:
		_, ok := to.(StateProcessing)
		return ok
	case StateProcessing:
		switch to.(type) {
		case StateEmpty, StateFilesSelected, StateArchiveLoaded, StateError:
			return true
		}
	case StateError:
		switch to.(type) {
		case StateEmpty, StateFilesSelected, StateArchiveLoaded:
			return true
		}
	}
	return false
}

// Manager owns the single canonical State and the event bus. All state
// mutation goes through TransitionTo or SetState under a write lock;
// reads never observe a torn value.
type Manager struct {
	mu     sync.RWMutex
	state  State
	bus    *Bus
	logger *zap.Logger
}

// NewManager creates a manager in StateEmpty with the given
// per-subscriber event buffer capacity.
func NewManager(logger *zap.Logger, busCapacity int) *Manager {
	return &Manager{
		state:  StateEmpty{},
		bus:    NewBus(busCapacity),
		logger: logger,
	}
}

// State returns the current application state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// TransitionTo validates the requested transition against the legal
// table. On an illegal pair it returns InvalidTransitionError and
// leaves the state unchanged. An accepted transition publishes
// StateChanged to all current subscribers before returning.
func (m *Manager) TransitionTo(to State) error {
	m.mu.Lock()
	from := m.state
	if !transitionAllowed(from, to) {
		m.mu.Unlock()
		return &InvalidTransitionError{From: from, To: to}
	}
	m.state = to
	m.mu.Unlock()

	m.logger.Debug("state transition",
		zap.String("from", from.Name()),
		zap.String("to", to.Name()))
	m.bus.Publish(StateChanged{State: to})
	return nil
}

// SetState forces the state without transition validation and
// publishes StateChanged. Reserved for coordinator-internal resets;
// front ends go through TransitionTo.
func (m *Manager) SetState(to State) {
	m.mu.Lock()
	m.state = to
	m.mu.Unlock()
	m.bus.Publish(StateChanged{State: to})
}

// Subscribe registers an event listener.
func (m *Manager) Subscribe() *Subscription {
	return m.bus.Subscribe()
}

// Emit publishes an event to all subscribers.
func (m *Manager) Emit(event Event) {
	m.bus.Publish(event)
}
