package engine

import (
	"encoding/json"
	"fmt"
)

// EventKind identifies one kind of recorded state transition.
type EventKind string

const (
	EventZoneCreated  EventKind = "zone_created"
	EventCardCreated  EventKind = "card_created"
	EventCardMoved    EventKind = "card_moved"
	EventCardRevealed EventKind = "card_revealed"
	EventZoneShuffled EventKind = "zone_shuffled"
	EventCardPurged   EventKind = "card_purged"
)

// Event is an immutable record of one state transition. Events are totally
// ordered by Seq and form the append-only log; replaying the log from an
// empty state reconstructs the canonical state exactly.
type Event struct {
	Seq     uint64    `json:"seq"`
	Kind    EventKind `json:"kind"`
	Payload any       `json:"payload"`
}

// UnmarshalJSON decodes the payload into the concrete type named by Kind, so
// a log read back from the serializer replays with the same payload types as
// a live log.
func (ev *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Seq     uint64          `json:"seq"`
		Kind    EventKind       `json:"kind"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ev.Seq = raw.Seq
	ev.Kind = raw.Kind

	decode := func(into any) error {
		if err := json.Unmarshal(raw.Payload, into); err != nil {
			return fmt.Errorf("event %d: decode %s payload: %w", raw.Seq, raw.Kind, err)
		}
		return nil
	}
	switch raw.Kind {
	case EventZoneCreated:
		var p ZoneCreatedPayload
		if err := decode(&p); err != nil {
			return err
		}
		ev.Payload = p
	case EventCardCreated:
		var p CardCreatedPayload
		if err := decode(&p); err != nil {
			return err
		}
		ev.Payload = p
	case EventCardMoved:
		var p CardMovedPayload
		if err := decode(&p); err != nil {
			return err
		}
		ev.Payload = p
	case EventCardRevealed:
		var p CardRevealedPayload
		if err := decode(&p); err != nil {
			return err
		}
		ev.Payload = p
	case EventZoneShuffled:
		var p ZoneShuffledPayload
		if err := decode(&p); err != nil {
			return err
		}
		ev.Payload = p
	case EventCardPurged:
		var p CardPurgedPayload
		if err := decode(&p); err != nil {
			return err
		}
		ev.Payload = p
	default:
		return fmt.Errorf("event %d: unknown kind %q", raw.Seq, raw.Kind)
	}
	return nil
}

// ZoneCreatedPayload records a zone definition so replay can rebuild the
// session's zone layout from an empty state.
type ZoneCreatedPayload struct {
	Zone ZoneSpec `json:"zone"`
}

// CardCreatedPayload records a card entering play: its never-reused handle,
// its bound value, the zone and index it entered at, and its initial allowed
// set. The payload lives in the canonical log, which is only ever shared with
// the trusted serializer, never with clients.
type CardCreatedPayload struct {
	Handle  Handle        `json:"handle"`
	Value   CardValue     `json:"value"`
	Zone    ZoneID        `json:"zone"`
	Index   int           `json:"index"`
	Allowed []Participant `json:"allowed,omitempty"`
}

// CardMovedPayload records an atomic zone-to-zone movement with the resolved
// indices on both sides. An empty To zone means the card left play.
type CardMovedPayload struct {
	Handle    Handle `json:"handle"`
	From      ZoneID `json:"from"`
	To        ZoneID `json:"to,omitempty"`
	FromIndex int    `json:"from_index"`
	ToIndex   int    `json:"to_index"`
}

// CardRevealedPayload records a visibility grant. Grants are idempotent; a
// repeated grant appends no event, so each (handle, participant) pair appears
// at most once in the log.
type CardRevealedPayload struct {
	Handle      Handle      `json:"handle"`
	Participant Participant `json:"participant"`
}

// ZoneShuffledPayload records the resulting permutation, not merely the seed,
// so replay never re-invokes the shuffle algorithm. SeedDigest ties the event
// back to the consensus randomness that produced it.
type ZoneShuffledPayload struct {
	Zone        ZoneID   `json:"zone"`
	Permutation []Handle `json:"permutation"`
	SeedDigest  string   `json:"seed_digest"`
}

// CardPurgedPayload records the destruction of a removed card's secret entry.
// The handle is never reused afterwards.
type CardPurgedPayload struct {
	Handle Handle `json:"handle"`
}
