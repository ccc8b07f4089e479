package seating

import (
	"errors"
	"fmt"
)

var (
	ErrNoSeats          = errors.New("table must have at least one seat")
	ErrSeatOutOfRange   = errors.New("seat number out of range")
	ErrInvalidRule      = errors.New("invalid rule")
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	ErrParticipantNotEligible = errors.New("participant not eligible")
	ErrParticipantNotSeated   = errors.New("participant not seated")
	ErrTableNotFound          = errors.New("table not found")
	ErrTableNotActive         = errors.New("table not active")
	ErrSeatNotFound           = errors.New("seat not found")
	ErrSeatOccupied           = errors.New("seat occupied by another participant")
	ErrSourceMismatch         = errors.New("participant not at given source seat")
	ErrAlreadyInSeat          = errors.New("participant already in destination seat")
	ErrTableFull              = errors.New("table at maximum occupancy")
	ErrSeatEmpty              = errors.New("seat is empty")
	ErrTooFewOccupants        = errors.New("table needs at least two occupants")
	ErrLastTable              = errors.New("cannot break the last active table")
	ErrNothingToUndo          = errors.New("nothing to undo")
	ErrLayoutExists           = errors.New("layout already initialized")
	ErrNoLayout               = errors.New("layout not initialized")
	ErrNoParticipants         = errors.New("no eligible participants")

	ErrMaxTablesReached   = errors.New("maximum number of tables reached")
	ErrNotEnoughUnseated  = errors.New("not enough unseated participants for a new table")
	ErrInsufficientSeats  = errors.New("not enough seats for every participant")
	ErrInvariantViolation = errors.New("layout invariant violated")
	ErrLayoutHalted       = errors.New("layout halted after invariant violation; reinitialize")
)

// ValidationError rejects a request whose target is not legal. The layout is
// unchanged.
type ValidationError struct {
	Reason error
	Detail string
}

func (e *ValidationError) Error() string { return describe(e.Reason, e.Detail) }
func (e *ValidationError) Unwrap() error { return e.Reason }

func Invalid(reason error, format string, args ...any) error {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// StateConflictError reports that the client acted on stale state. Current
// carries the authoritative seat so the client can retry.
type StateConflictError struct {
	Reason      error
	TableNumber int
	Current     Seat
}

func (e *StateConflictError) Error() string {
	return describe(e.Reason, fmt.Sprintf("table %d seat %d", e.TableNumber, e.Current.Number))
}
func (e *StateConflictError) Unwrap() error { return e.Reason }

func Conflict(reason error, tableNumber int, current *Seat) error {
	return &StateConflictError{Reason: reason, TableNumber: tableNumber, Current: *current}
}

// CapacityError rejects a request that would exceed table limits.
type CapacityError struct {
	Reason error
	Detail string
}

func (e *CapacityError) Error() string { return describe(e.Reason, e.Detail) }
func (e *CapacityError) Unwrap() error { return e.Reason }

func OverCapacity(reason error, format string, args ...any) error {
	return &CapacityError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// InternalInvariantError is fatal to the layout instance that produced it.
type InternalInvariantError struct {
	Detail string
}

func (e *InternalInvariantError) Error() string { return describe(ErrInvariantViolation, e.Detail) }
func (e *InternalInvariantError) Unwrap() error { return ErrInvariantViolation }

func Corrupt(format string, args ...any) error {
	return &InternalInvariantError{Detail: fmt.Sprintf(format, args...)}
}

// Kind names the error class of err for wire messages and metrics.
func Kind(err error) string {
	var (
		v *ValidationError
		s *StateConflictError
		c *CapacityError
		i *InternalInvariantError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &v):
		return "validation"
	case errors.As(err, &s):
		return "conflict"
	case errors.As(err, &c):
		return "capacity"
	case errors.As(err, &i):
		return "internal"
	}
	return "unknown"
}

func describe(reason error, detail string) string {
	if detail == "" {
		return reason.Error()
	}
	return reason.Error() + ": " + detail
}
