package models

import (
	"strings"

	"kedai/internal/apperrors"
)

// OrderStatus is a step of the order lifecycle.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// transitions lists the legal next states for each state. Moves are forward
// only; steps may be skipped. Terminal states have no exits.
var transitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending:   {StatusPreparing: true, StatusReady: true, StatusCompleted: true, StatusCancelled: true},
	StatusPreparing: {StatusReady: true, StatusCompleted: true, StatusCancelled: true},
	StatusReady:     {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

// ParseOrderStatus validates a wire token. Tokens are matched exactly after
// trimming surrounding space.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.TrimSpace(s))
	if !status.Valid() {
		return "", apperrors.Invalid("status", "unknown order status %q", s)
	}
	return status, nil
}

// Valid reports whether s is one of the five known statuses.
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transitions leave s.
func (s OrderStatus) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return transitions[from][to]
}

// Transition is the outcome of checking a requested status change.
type Transition struct {
	From OrderStatus
	To   OrderStatus
	// Noop is set when the order is already in the requested status.
	Noop bool
}

// Accrues reports whether the transition lands on completed from another
// status, which is the single point at which loyalty points are awarded.
func (t Transition) Accrues() bool {
	return !t.Noop && t.To == StatusCompleted && t.From != StatusCompleted
}

// PlanTransition checks a move against the transition table. Re-submitting
// the current status is allowed and yields a no-op.
func PlanTransition(from, to OrderStatus) (Transition, error) {
	if !to.Valid() {
		return Transition{}, apperrors.Invalid("status", "unknown order status %q", string(to))
	}
	if from == to {
		return Transition{From: from, To: to, Noop: true}, nil
	}
	if !CanTransition(from, to) {
		return Transition{}, &apperrors.TransitionError{From: string(from), To: string(to)}
	}
	return Transition{From: from, To: to}, nil
}
