package app

import (
	"context"
	"errors"
	"fmt"

	"cardroom/internal/config"
	"cardroom/internal/engine"
	"cardroom/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Shared zone IDs. Each participant additionally gets an owner-only hand
// zone from HandZone.
const (
	ZoneDeck    engine.ZoneID = "deck"
	ZoneDiscard engine.ZoneID = "discard"
)

// HandZone returns the hand zone ID for a participant.
func HandZone(p engine.Participant) engine.ZoneID {
	return engine.ZoneID("hand:" + string(p))
}

var (
	ErrTooFewPlayers     = errors.New("not enough participants to start")
	ErrDeckTooSmall      = errors.New("deck too small for configured hands")
	ErrAlgorithmMismatch = errors.New("configured shuffle algorithm does not match engine")
	ErrUnknownPlayer     = errors.New("participant not seated in session")
	ErrNotInHand         = errors.New("card not in participant's hand")
)

// Service contains the game-rule use-cases layered on the engine: session
// setup, dealing, drawing, playing, and explicit reveals. It owns no state;
// the canonical GameState is passed into every call.
type Service struct {
	seeds ports.SeedSource
	table config.TableConfig
}

// NewService constructs a Service with the given consensus seed source and
// table configuration.
func NewService(seeds ports.SeedSource, table config.TableConfig) *Service {
	return &Service{seeds: seeds, table: table}
}

// StartSession builds the canonical state for a new session: zones from the
// table config, the full deck in the hidden deck zone, one consensus-seeded
// shuffle, and an opening hand dealt and revealed to each participant.
func (s *Service) StartSession(ctx context.Context, sessionID uuid.UUID, participants []engine.Participant) (*engine.GameState, []Event, error) {
	if len(participants) < 2 {
		return nil, nil, ErrTooFewPlayers
	}
	if s.table.ShuffleAlgorithm != "" && s.table.ShuffleAlgorithm != engine.ShuffleAlgorithm {
		return nil, nil, fmt.Errorf("%w: config %q, engine %q", ErrAlgorithmMismatch, s.table.ShuffleAlgorithm, engine.ShuffleAlgorithm)
	}
	deckSize := len(s.table.Suits) * s.table.RanksPerSuit
	if deckSize < len(participants)*s.table.HandSize {
		return nil, nil, fmt.Errorf("%w: %d cards, %d needed", ErrDeckTooSmall, deckSize, len(participants)*s.table.HandSize)
	}

	state := engine.NewGameState(sessionID)

	zones := []engine.ZoneSpec{
		{ID: ZoneDeck, Visibility: engine.VisibilityHidden, Ordering: engine.OrderingOrdered},
		{ID: ZoneDiscard, Visibility: engine.VisibilityPublic, Ordering: engine.OrderingOrdered},
	}
	for _, p := range participants {
		zones = append(zones, engine.ZoneSpec{
			ID:         HandZone(p),
			Owner:      p,
			Visibility: engine.VisibilityOwnerOnly,
			Ordering:   engine.OrderingUnordered,
		})
	}
	for _, spec := range zones {
		if err := state.CreateZone(spec); err != nil {
			return nil, nil, err
		}
	}

	// Deck construction: fully hidden cards, empty allowed set.
	for _, suit := range s.table.Suits {
		for rank := 1; rank <= s.table.RanksPerSuit; rank++ {
			value := engine.CardValue(fmt.Sprintf("%s%d", suit, rank))
			if _, err := state.CreateCard(value, ZoneDeck, engine.PositionBottom); err != nil {
				return nil, nil, err
			}
		}
	}

	seed, err := s.seeds.Seed(ctx, "initial-shuffle")
	if err != nil {
		return nil, nil, fmt.Errorf("seed source: %w", err)
	}
	if err := state.Shuffle(ZoneDeck, seed); err != nil {
		return nil, nil, err
	}

	events := make([]Event, 0, len(participants)+1)
	for _, p := range participants {
		drawn, err := state.Draw(ZoneDeck, HandZone(p), s.table.HandSize)
		if err != nil {
			return nil, nil, err
		}
		hand := make([]engine.ResolvedCard, 0, len(drawn))
		for _, h := range drawn {
			if err := state.GrantVisibility(h, p); err != nil {
				return nil, nil, err
			}
			rc, err := state.Resolve(h, p)
			if err != nil {
				return nil, nil, err
			}
			hand = append(hand, rc)
		}
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{Participant: p, Hand: hand},
			Recipients: []engine.Participant{p},
		})
	}

	deck, _ := state.Zone(ZoneDeck)
	events = append(events, Event{
		Kind: EventSessionStarted,
		Payload: SessionStartedPayload{
			SessionID:    sessionID.String(),
			Participants: append([]engine.Participant(nil), participants...),
			Zones:        state.ZoneIDs(),
			DeckSize:     deck.Size(),
			Seq:          state.EventSeq(),
			StateHash:    state.StateHash(),
		},
	})

	log.Debug().
		Str("session", sessionID.String()).
		Int("participants", len(participants)).
		Int("deck", deck.Size()).
		Msg("session started")

	return state, events, nil
}

// Draw moves count cards from the deck into the participant's hand and
// reveals each drawn card to that participant only. A short deck reshuffles
// the discard pile back in when the table allows it.
func (s *Service) Draw(ctx context.Context, state *engine.GameState, p engine.Participant, count int) ([]Event, error) {
	hand := HandZone(p)
	if _, err := state.Zone(hand); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, p)
	}

	var events []Event
	drawn, err := state.Draw(ZoneDeck, hand, count)
	if errors.Is(err, engine.ErrInsufficientCards) && s.table.AllowReshuffle {
		ev, rerr := s.reshuffle(ctx, state)
		if rerr != nil {
			return nil, rerr
		}
		events = append(events, ev)
		drawn, err = state.Draw(ZoneDeck, hand, count)
	}
	if err != nil {
		return events, err
	}

	cards := make([]engine.ResolvedCard, 0, len(drawn))
	for _, h := range drawn {
		if err := state.GrantVisibility(h, p); err != nil {
			return events, err
		}
		rc, err := state.Resolve(h, p)
		if err != nil {
			return events, err
		}
		cards = append(cards, rc)
	}

	// Everyone learns a draw happened; only the drawer learns the cards.
	events = append(events,
		Event{
			Kind:    EventCardsDrawn,
			Payload: CardsDrawnPayload{Participant: p, Count: len(drawn)},
		},
		Event{
			Kind:       EventCardsDrawn,
			Payload:    CardsDrawnPayload{Participant: p, Count: len(drawn), Cards: cards},
			Recipients: []engine.Participant{p},
		},
	)
	return events, nil
}

// reshuffle returns the discard pile to the deck and shuffles with a fresh
// consensus seed, domain-separated by the current event sequence number.
func (s *Service) reshuffle(ctx context.Context, state *engine.GameState) (Event, error) {
	discard, err := state.Zone(ZoneDiscard)
	if err != nil {
		return Event{}, err
	}
	for _, h := range discard.Cards() {
		if err := state.Move(h, ZoneDiscard, ZoneDeck, engine.PositionBottom); err != nil {
			return Event{}, err
		}
	}

	seed, err := s.seeds.Seed(ctx, fmt.Sprintf("reshuffle:%d", state.EventSeq()))
	if err != nil {
		return Event{}, fmt.Errorf("seed source: %w", err)
	}
	if err := state.Shuffle(ZoneDeck, seed); err != nil {
		return Event{}, err
	}

	deck, _ := state.Zone(ZoneDeck)
	digest := lastShuffleDigest(state)
	log.Info().Int("deck", deck.Size()).Str("seed_digest", digest).Msg("deck reshuffled from discard")
	return Event{
		Kind:    EventDeckReshuffled,
		Payload: DeckReshuffledPayload{DeckSize: deck.Size(), SeedDigest: digest},
	}, nil
}

// PlayCard moves a card from the participant's hand to the public discard
// pile. No visibility grant is needed: public zones resolve for everyone.
func (s *Service) PlayCard(state *engine.GameState, p engine.Participant, h engine.Handle) ([]Event, error) {
	hand := HandZone(p)
	hz, err := state.Zone(hand)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, p)
	}
	if !hz.Contains(h) {
		return nil, fmt.Errorf("%w: %v", ErrNotInHand, h)
	}
	if err := state.Move(h, hand, ZoneDiscard, engine.PositionBottom); err != nil {
		return nil, err
	}
	rc, err := state.Resolve(h, p)
	if err != nil {
		return nil, err
	}
	return []Event{{
		Kind:    EventCardPlayed,
		Payload: CardPlayedPayload{Participant: p, Card: rc},
	}}, nil
}

// RevealCard grants one participant visibility of a specific card, for game
// rules like peeking or forced reveals. The card value travels only to the
// newly allowed participant.
func (s *Service) RevealCard(state *engine.GameState, h engine.Handle, to engine.Participant) ([]Event, error) {
	if err := state.GrantVisibility(h, to); err != nil {
		return nil, err
	}
	rc, err := state.Resolve(h, to)
	if err != nil {
		return nil, err
	}
	return []Event{{
		Kind:       EventCardRevealed,
		Payload:    CardRevealedPayload{Handle: h, To: to, Card: rc},
		Recipients: []engine.Participant{to},
	}}, nil
}

// Views projects the canonical state for each participant and wraps the
// results as targeted events, one per recipient.
func (s *Service) Views(state *engine.GameState, participants []engine.Participant) []Event {
	events := make([]Event, 0, len(participants))
	for _, p := range participants {
		events = append(events, Event{
			Kind:       EventViewUpdated,
			Payload:    ViewUpdatedPayload{View: state.Project(p)},
			Recipients: []engine.Participant{p},
		})
	}
	return events
}

// lastShuffleDigest returns the seed digest of the most recent shuffle event.
func lastShuffleDigest(state *engine.GameState) string {
	events := state.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind != engine.EventZoneShuffled {
			continue
		}
		if p, ok := events[i].Payload.(engine.ZoneShuffledPayload); ok {
			return p.SeedDigest
		}
	}
	return ""
}
