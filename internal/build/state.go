package build

import (
	"fmt"
	"slices"
	"sync"

	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
)

// State is the lifecycle state of a coordinator.
type State int

const (
	StateIdle State = iota
	StateBuilding
	StateWatching
	StateRebuilding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateWatching:
		return "watching"
	case StateRebuilding:
		return "rebuilding"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var transitions = map[State][]State{
	StateIdle:       {StateBuilding},
	StateBuilding:   {StateWatching},
	StateWatching:   {StateRebuilding, StateIdle},
	StateRebuilding: {StateWatching},
}

type stateMachine struct {
	mu      sync.RWMutex
	current State
}

func (m *stateMachine) get() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// to moves to next or returns an internal error naming the rejected transition.
func (m *stateMachine) to(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(transitions[m.current], next) {
		return ferrors.InternalError("invalid state transition").
			WithContext("from", m.current.String()).
			WithContext("to", next.String()).
			Build()
	}
	m.current = next
	return nil
}
