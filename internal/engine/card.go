package engine

import "fmt"

// Handle is an opaque, stable identifier for a card instance. Handles are
// unique for the lifetime of a session and are never reused, even after the
// card leaves play. The zero value is never a valid handle.
type Handle uint64

func (h Handle) String() string {
	return fmt.Sprintf("card #%d", uint64(h))
}

// CardValue is the game-meaningful content of a card. The engine treats it as
// an opaque token; game logic layered above decides its encoding. A value is
// immutable once bound to a handle.
type CardValue string

// Participant identifies one party in a session.
type Participant string

// ResolvedCard is the outcome of resolving a handle for a participant. Known
// is false when the value is withheld; consuming code cannot mistake a
// withheld card for a real one.
type ResolvedCard struct {
	Handle Handle    `json:"handle"`
	Known  bool      `json:"known"`
	Value  CardValue `json:"value,omitempty"`
}
