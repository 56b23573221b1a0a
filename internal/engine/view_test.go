package engine

import (
	"testing"
)

// dealScenario is the canonical test setup: 52 hidden cards, one shuffle,
// five cards drawn into alice's hand and revealed to her.
func dealScenario(t *testing.T) (*GameState, []Handle) {
	t.Helper()
	g := newTableState(t)
	deckOf(t, g, 52)
	if err := g.Shuffle(zoneDeck, []byte{0x01, 0x02}); err != nil {
		t.Fatalf("shuffle: %v", err)
	}
	drawn, err := g.Draw(zoneDeck, zoneHandA, 5)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	for _, h := range drawn {
		if err := g.GrantVisibility(h, alice); err != nil {
			t.Fatalf("grant: %v", err)
		}
	}
	return g, drawn
}

func zoneView(t *testing.T, v PlayerView, id ZoneID) ZoneView {
	t.Helper()
	for _, zv := range v.Zones {
		if zv.ID == id {
			return zv
		}
	}
	t.Fatalf("view has no zone %q", id)
	return ZoneView{}
}

func TestProjectOwnerSeesHand(t *testing.T) {
	g, drawn := dealScenario(t)

	view := g.Project(alice)
	hand := zoneView(t, view, zoneHandA)
	if hand.Size != 5 || len(hand.Cards) != 5 {
		t.Fatalf("hand view size = %d/%d cards, want 5", hand.Size, len(hand.Cards))
	}
	for _, c := range hand.Cards {
		if !c.Known || c.Value == "" {
			t.Fatalf("owner's own card withheld: %+v", c)
		}
	}
	_ = drawn
}

func TestProjectOpponentSeesHandlesOnly(t *testing.T) {
	g, _ := dealScenario(t)

	viewA := g.Project(alice)
	viewB := g.Project(bob)

	handA := zoneView(t, viewA, zoneHandA)
	handB := zoneView(t, viewB, zoneHandA)

	if handB.Size != 5 || len(handB.Cards) != 5 {
		t.Fatalf("opponent view of hand = %d/%d, want size 5 with handles", handB.Size, len(handB.Cards))
	}
	for i, c := range handB.Cards {
		if c.Known || c.Value != "" {
			t.Fatalf("opponent sees value of %v", c.Handle)
		}
		// Both projections agree on handle ordering.
		if c.Handle != handA.Cards[i].Handle {
			t.Fatalf("handle order disagrees at %d: %v vs %v", i, c.Handle, handA.Cards[i].Handle)
		}
	}
}

func TestProjectHiddenZoneIsSizeOnly(t *testing.T) {
	g, _ := dealScenario(t)

	for _, p := range []Participant{alice, bob} {
		deck := zoneView(t, g.Project(p), zoneDeck)
		if deck.Size != 47 {
			t.Fatalf("deck size for %q = %d, want 47", p, deck.Size)
		}
		if deck.Cards != nil {
			t.Fatalf("hidden zone exposes handles to %q", p)
		}
	}
}

func TestProjectPublicZoneKnownToAll(t *testing.T) {
	g, drawn := dealScenario(t)
	if err := g.Move(drawn[0], zoneHandA, zoneDiscard, PositionBottom); err != nil {
		t.Fatalf("move: %v", err)
	}

	for _, p := range []Participant{alice, bob, "carol"} {
		discard := zoneView(t, g.Project(p), zoneDiscard)
		if len(discard.Cards) != 1 || !discard.Cards[0].Known {
			t.Fatalf("public card withheld from %q: %+v", p, discard.Cards)
		}
	}
}

func TestProjectSelectiveReveal(t *testing.T) {
	g, drawn := dealScenario(t)
	if err := g.GrantVisibility(drawn[2], bob); err != nil {
		t.Fatalf("grant: %v", err)
	}

	hand := zoneView(t, g.Project(bob), zoneHandA)
	known := 0
	for _, c := range hand.Cards {
		if c.Known {
			known++
			if c.Handle != drawn[2] {
				t.Fatalf("wrong card revealed: %v", c.Handle)
			}
		}
	}
	if known != 1 {
		t.Fatalf("revealed cards = %d, want exactly 1", known)
	}
}

func TestProjectDeterministic(t *testing.T) {
	g, _ := dealScenario(t)

	first := g.Project(bob)
	second := g.Project(bob)
	if first.Hash() != second.Hash() {
		t.Fatalf("identical projections hash differently")
	}

	// Projection is read-only: it must not disturb the canonical state.
	before := g.StateHash()
	g.Project(alice)
	g.Project(bob)
	if g.StateHash() != before {
		t.Fatalf("projection mutated canonical state")
	}
}

func TestProjectUnorderedZoneCanonicalOrder(t *testing.T) {
	g := newTableState(t)
	// Insert into the unordered hand in non-ascending handle order.
	h1 := mustCreate(t, g, "S1", zoneDeck)
	h2 := mustCreate(t, g, "S2", zoneDeck)
	h3 := mustCreate(t, g, "S3", zoneDeck)
	for _, h := range []Handle{h3, h1, h2} {
		if err := g.Move(h, zoneDeck, zoneHandA, PositionBottom); err != nil {
			t.Fatalf("move: %v", err)
		}
	}

	hand := zoneView(t, g.Project(alice), zoneHandA)
	want := []Handle{h1, h2, h3} // creation order, not insertion order
	for i := range want {
		if hand.Cards[i].Handle != want[i] {
			t.Fatalf("canonical order[%d] = %v, want %v", i, hand.Cards[i].Handle, want[i])
		}
	}
}
