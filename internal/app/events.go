package app

import "cardroom/internal/engine"

// EventKind identifies emitted session events for adapter dispatch.
type EventKind string

const (
	EventSessionStarted EventKind = "session_started"
	EventHandDealt      EventKind = "hand_dealt"
	EventCardsDrawn     EventKind = "cards_drawn"
	EventCardPlayed     EventKind = "card_played"
	EventCardRevealed   EventKind = "card_revealed"
	EventDeckReshuffled EventKind = "deck_reshuffled"
	EventViewUpdated    EventKind = "view_updated"
)

// Event is a session event with optional targeted recipients. Targeted events
// carry information only their recipients may see; adapters must never widen
// the recipient set.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []engine.Participant // empty means broadcast
}

type SessionStartedPayload struct {
	SessionID    string
	Participants []engine.Participant
	Zones        []engine.ZoneID
	DeckSize     int
	Seq          uint64
	StateHash    string
}

type HandDealtPayload struct {
	Participant engine.Participant
	Hand        []engine.ResolvedCard
}

type CardsDrawnPayload struct {
	Participant engine.Participant
	Count       int
	// Cards is populated only on the copy sent to the drawing participant.
	Cards []engine.ResolvedCard
}

type CardPlayedPayload struct {
	Participant engine.Participant
	Card        engine.ResolvedCard
}

type CardRevealedPayload struct {
	Handle engine.Handle
	To     engine.Participant
	Card   engine.ResolvedCard
}

type DeckReshuffledPayload struct {
	DeckSize   int
	SeedDigest string
}

type ViewUpdatedPayload struct {
	View engine.PlayerView
}
