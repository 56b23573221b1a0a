package nakama

import (
	"fmt"

	"cardroom/internal/app"
	"cardroom/internal/engine"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// marshalPayload encodes an event payload map as protojson over structpb,
// keeping a proto wire surface without generated bindings.
func marshalPayload(fields map[string]any) ([]byte, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build payload struct: %w", err)
	}
	return protojson.Marshal(s)
}

// unmarshalPayload decodes a client message into a flat field map.
func unmarshalPayload(data []byte) (map[string]any, error) {
	s := &structpb.Struct{}
	if len(data) > 0 {
		if err := protojson.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse payload: %w", err)
		}
	}
	return s.AsMap(), nil
}

func resolvedCardFields(rc engine.ResolvedCard) map[string]any {
	fields := map[string]any{
		"handle": float64(rc.Handle),
		"known":  rc.Known,
	}
	if rc.Known {
		fields["value"] = string(rc.Value)
	}
	return fields
}

func resolvedCardList(cards []engine.ResolvedCard) []any {
	out := make([]any, 0, len(cards))
	for _, rc := range cards {
		out = append(out, resolvedCardFields(rc))
	}
	return out
}

func viewFields(v engine.PlayerView) map[string]any {
	zones := make([]any, 0, len(v.Zones))
	for _, zv := range v.Zones {
		zone := map[string]any{
			"id":         string(zv.ID),
			"visibility": string(zv.Visibility),
			"size":       float64(zv.Size),
		}
		if zv.Owner != "" {
			zone["owner"] = string(zv.Owner)
		}
		if zv.Cards != nil {
			cards := make([]any, 0, len(zv.Cards))
			for _, c := range zv.Cards {
				cards = append(cards, resolvedCardFields(engine.ResolvedCard{
					Handle: c.Handle, Known: c.Known, Value: c.Value,
				}))
			}
			zone["cards"] = cards
		}
		zones = append(zones, zone)
	}
	return map[string]any{
		"session_id":  v.SessionID,
		"participant": string(v.Participant),
		"seq":         float64(v.Seq),
		"zones":       zones,
		"hash":        v.Hash(),
	}
}

func participantList(ps []engine.Participant) []any {
	out := make([]any, 0, len(ps))
	for _, p := range ps {
		out = append(out, string(p))
	}
	return out
}

func zoneIDList(ids []engine.ZoneID) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

// appEventMessage maps an app event to its opcode and payload fields.
func appEventMessage(ev app.Event) (int64, map[string]any, bool) {
	switch p := ev.Payload.(type) {
	case app.SessionStartedPayload:
		return OpSessionStarted, map[string]any{
			"session_id":   p.SessionID,
			"participants": participantList(p.Participants),
			"zones":        zoneIDList(p.Zones),
			"deck_size":    float64(p.DeckSize),
			"seq":          float64(p.Seq),
			"state_hash":   p.StateHash,
		}, true
	case app.HandDealtPayload:
		return OpHandDealt, map[string]any{
			"participant": string(p.Participant),
			"hand":        resolvedCardList(p.Hand),
		}, true
	case app.CardsDrawnPayload:
		fields := map[string]any{
			"participant": string(p.Participant),
			"count":       float64(p.Count),
		}
		if p.Cards != nil {
			fields["cards"] = resolvedCardList(p.Cards)
		}
		return OpCardsDrawn, fields, true
	case app.CardPlayedPayload:
		return OpCardPlayed, map[string]any{
			"participant": string(p.Participant),
			"card":        resolvedCardFields(p.Card),
		}, true
	case app.CardRevealedPayload:
		return OpCardRevealed, map[string]any{
			"handle": float64(p.Handle),
			"to":     string(p.To),
			"card":   resolvedCardFields(p.Card),
		}, true
	case app.DeckReshuffledPayload:
		return OpDeckReshuffled, map[string]any{
			"deck_size":   float64(p.DeckSize),
			"seed_digest": p.SeedDigest,
		}, true
	case app.ViewUpdatedPayload:
		return OpViewUpdated, viewFields(p.View), true
	default:
		return 0, nil, false
	}
}
