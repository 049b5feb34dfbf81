// Package beds holds the occupancy state machine of shelter beds.
package beds

import (
	"errors"
	"fmt"
)

// Status is the occupancy state of a bed.
type Status string

const (
	Available   Status = "Available"
	Occupied    Status = "Occupied"
	Unavailable Status = "Unavailable"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case Available, Occupied, Unavailable:
		return true
	}
	return false
}

// Action is something a user can do to a bed.
type Action string

const (
	CheckIn     Action = "check-in"
	CheckOut    Action = "check-out"
	EditCheckIn Action = "edit-check-in"
	Archive     Action = "archive"
	MarkOpen    Action = "mark-available"
	MarkClosed  Action = "mark-unavailable"
)

var ErrInvalidTransition = errors.New("invalid bed transition")

// View is the part of a bed the state machine looks at.
type View struct {
	ID         int64
	Status     Status
	IsArchived bool
}

// Actions lists the row actions offered for a bed. Unavailable and archived
// beds offer none.
func Actions(b View) []Action {
	if b.IsArchived {
		return nil
	}
	switch b.Status {
	case Available:
		return []Action{CheckIn}
	case Occupied:
		return []Action{CheckOut, EditCheckIn}
	}
	return nil
}

// Offers reports whether a is among the row actions for b.
func Offers(b View, a Action) bool {
	for _, offered := range Actions(b) {
		if offered == a {
			return true
		}
	}
	return false
}

// Transition returns the state a bed in state from ends up in after action.
func Transition(from Status, action Action) (Status, error) {
	switch {
	case action == CheckIn && from == Available:
		return Occupied, nil
	case action == CheckOut && from == Occupied:
		return Available, nil
	case action == EditCheckIn && from == Occupied:
		return Occupied, nil
	case action == Archive && from.Valid():
		return from, nil
	case action == MarkClosed && from == Available:
		return Unavailable, nil
	case action == MarkOpen && from == Unavailable:
		return Available, nil
	}
	return from, fmt.Errorf("%w: cannot %s a bed that is %s", ErrInvalidTransition, action, from)
}

// Visible drops archived beds; archived beds are never rendered.
func Visible[T any](items []T, view func(T) View) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if !view(item).IsArchived {
			out = append(out, item)
		}
	}
	return out
}

// EditOptions lists the beds a check-in may be moved to: every non-archived
// Available bed plus the bed currently held.
func EditOptions[T any](items []T, view func(T) View, currentBedID int64) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		v := view(item)
		if v.IsArchived {
			continue
		}
		if v.Status == Available || v.ID == currentBedID {
			out = append(out, item)
		}
	}
	return out
}
