package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// ViewCard is one card as seen by a particular observer: always the handle,
// and the value only when the observer may resolve it.
type ViewCard struct {
	Handle Handle    `json:"handle"`
	Known  bool      `json:"known"`
	Value  CardValue `json:"value,omitempty"`
}

// ZoneView is one zone as seen by a particular observer. Hidden zones carry
// only their size; owner-only and public zones list handles in the zone's
// canonical order, so all observers agree on ordering and differ only in
// which values are withheld.
type ZoneView struct {
	ID         ZoneID      `json:"id"`
	Owner      Participant `json:"owner,omitempty"`
	Visibility Visibility  `json:"visibility"`
	Size       int         `json:"size"`
	Cards      []ViewCard  `json:"cards,omitempty"`
}

// PlayerView is the projection of canonical state for one participant. It is
// derived on demand, holds no lifecycle of its own, and never embeds a
// withheld value, so it is safe to transmit to an untrusted client.
type PlayerView struct {
	SessionID   string      `json:"session_id"`
	Participant Participant `json:"participant"`
	Seq         uint64      `json:"seq"`
	Zones       []ZoneView  `json:"zones"`
}

// Project computes the participant's view of the canonical state. Pure and
// deterministic: identical inputs produce byte-identical views, so view
// hashes are usable for equality-based tests.
func (g *GameState) Project(p Participant) PlayerView {
	view := PlayerView{
		SessionID:   g.sessionID.String(),
		Participant: p,
		Seq:         g.EventSeq(),
		Zones:       make([]ZoneView, 0, len(g.zoneOrder)),
	}
	for _, id := range g.zoneOrder {
		z := g.zones[id]
		zv := ZoneView{
			ID:         z.ID,
			Owner:      z.Owner,
			Visibility: z.Visibility,
			Size:       z.Size(),
		}
		if z.Visibility != VisibilityHidden {
			zv.Cards = g.projectCards(z, p)
		}
		view.Zones = append(view.Zones, zv)
	}
	return view
}

func (g *GameState) projectCards(z *Zone, p Participant) []ViewCard {
	handles := z.Cards()
	if z.Ordering == OrderingUnordered {
		// Canonical order for unordered zones is handle creation order, so
		// projections stay reproducible regardless of insertion history.
		sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	}
	cards := make([]ViewCard, 0, len(handles))
	public := z.Visibility == VisibilityPublic
	for _, h := range handles {
		rc, ok := g.secrets.resolve(h, p, public)
		if !ok {
			// A handle in a zone always has a secret entry; purge is only
			// legal for out-of-play cards.
			panic(fmt.Sprintf("engine: zone %q holds unknown %v", z.ID, h))
		}
		cards = append(cards, ViewCard{Handle: rc.Handle, Known: rc.Known, Value: rc.Value})
	}
	return cards
}

// Hash returns the sha256 hash of the view's canonical JSON form.
func (v PlayerView) Hash() string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("engine: view marshal: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
