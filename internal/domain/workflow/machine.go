// Package workflow implements the forward-only state machine shared by every
// compliance record (KYC request, alert, screening result, STR case, policy,
// risk assessment).
package workflow

import (
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

// Machine is a fixed transition table over a string-backed status type.
// States without outgoing transitions are terminal.
type Machine[S ~string] struct {
	entity      string
	transitions map[S][]S
}

// NewMachine builds a machine. Every state must appear as a key, terminal
// states with an empty slice.
func NewMachine[S ~string](entity string, transitions map[S][]S) *Machine[S] {
	return &Machine[S]{entity: entity, transitions: transitions}
}

// Entity is the human-readable record name used in error messages.
func (m *Machine[S]) Entity() string {
	return m.entity
}

// Known reports whether s is a state of this machine.
func (m *Machine[S]) Known(s S) bool {
	_, ok := m.transitions[s]
	return ok
}

// Next returns the states reachable from s in one step.
func (m *Machine[S]) Next(s S) []S {
	return m.transitions[s]
}

// CanTransition reports whether requested is a permitted successor of current.
func (m *Machine[S]) CanTransition(current, requested S) bool {
	for _, next := range m.transitions[current] {
		if next == requested {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is a known state with no successors.
func (m *Machine[S]) IsTerminal(s S) bool {
	next, ok := m.transitions[s]
	return ok && len(next) == 0
}

// Validate returns the typed rejection for current -> requested, or nil.
// A terminal current state always yields AlreadyTerminal, whatever is requested.
func (m *Machine[S]) Validate(current, requested S) error {
	if m.IsTerminal(current) {
		return apperrors.AlreadyTerminal(m.entity, string(current))
	}
	if !m.Known(requested) {
		return apperrors.NewLocalizedValidationError("status",
			"unknown "+m.entity+" status: "+string(requested),
			"حالة غير معروفة: "+string(requested))
	}
	if !m.CanTransition(current, requested) {
		return apperrors.InvalidTransition(m.entity, string(current), string(requested))
	}
	return nil
}

// States lists every state in the table. Order is unspecified.
func (m *Machine[S]) States() []S {
	states := make([]S, 0, len(m.transitions))
	for s := range m.transitions {
		states = append(states, s)
	}
	return states
}

// Recheck is called after a conditional write matched no row. It validates the
// transition against the freshly loaded state; when that still passes, another
// writer changed the record in between and a conflict is returned.
func (m *Machine[S]) Recheck(fresh, requested S) error {
	if err := m.Validate(fresh, requested); err != nil {
		return err
	}
	return apperrors.Conflict(
		m.entity+" was modified concurrently, reload and retry",
		"تم تعديل "+m.entity+" من مستخدم آخر، يرجى إعادة التحميل والمحاولة مجدداً",
	)
}
