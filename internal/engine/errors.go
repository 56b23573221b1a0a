package engine

import "errors"

var (
	// ErrUnknownHandle is returned when an operation references a handle that
	// was never created or has been purged. Always a caller bug.
	ErrUnknownHandle = errors.New("unknown card handle")

	// ErrUnknownZone is returned when an operation references a zone ID that
	// has not been created in this session.
	ErrUnknownZone = errors.New("unknown zone")

	// ErrDuplicateZone is returned when creating a zone whose ID is taken.
	ErrDuplicateZone = errors.New("zone already exists")

	// ErrHandleNotPresent is returned when a move names a source zone that
	// does not currently hold the handle. The state is left unchanged.
	ErrHandleNotPresent = errors.New("handle not present in source zone")

	// ErrDuplicateHandle is returned when a move would place a handle into a
	// zone that already holds it. The state is left unchanged.
	ErrDuplicateHandle = errors.New("handle already present in target zone")

	// ErrInsufficientCards is returned when a draw asks for more cards than
	// the zone holds. Recoverable; callers decide reshuffle or game-over.
	ErrInsufficientCards = errors.New("not enough cards in zone")

	// ErrUnorderedZone is returned when an operation that needs a defined
	// card order (shuffle, draw) targets an unordered zone.
	ErrUnorderedZone = errors.New("operation requires an ordered zone")

	// ErrCardRemoved is returned when an operation targets a handle that has
	// been removed from play.
	ErrCardRemoved = errors.New("card has been removed from play")

	// ErrDeterminismViolation is returned when replaying the event log yields
	// a state that differs from the live state. Fatal: it means a
	// non-deterministic step crept in or the log is corrupt, and cross-party
	// agreement is broken.
	ErrDeterminismViolation = errors.New("replayed state diverges from live state")
)
