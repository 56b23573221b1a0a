package engine

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

const (
	zoneDeck    ZoneID = "deck"
	zoneDiscard ZoneID = "discard"
	zoneHandA   ZoneID = "hand:alice"
	zoneHandB   ZoneID = "hand:bob"

	alice Participant = "alice"
	bob   Participant = "bob"
)

// newTableState builds a state with the standard zone layout used across the
// engine tests: hidden ordered deck, public ordered discard, owner-only
// unordered hands.
func newTableState(t *testing.T) *GameState {
	t.Helper()
	g := NewGameState(uuid.MustParse("00000000-0000-0000-0000-000000000001"))
	specs := []ZoneSpec{
		{ID: zoneDeck, Visibility: VisibilityHidden, Ordering: OrderingOrdered},
		{ID: zoneDiscard, Visibility: VisibilityPublic, Ordering: OrderingOrdered},
		{ID: zoneHandA, Owner: alice, Visibility: VisibilityOwnerOnly, Ordering: OrderingUnordered},
		{ID: zoneHandB, Owner: bob, Visibility: VisibilityOwnerOnly, Ordering: OrderingUnordered},
	}
	for _, spec := range specs {
		if err := g.CreateZone(spec); err != nil {
			t.Fatalf("create zone %q: %v", spec.ID, err)
		}
	}
	return g
}

func mustCreate(t *testing.T, g *GameState, value CardValue, zone ZoneID) Handle {
	t.Helper()
	h, err := g.CreateCard(value, zone, PositionBottom)
	if err != nil {
		t.Fatalf("create card %q: %v", value, err)
	}
	return h
}

func TestCreateZoneDuplicate(t *testing.T) {
	g := newTableState(t)
	err := g.CreateZone(ZoneSpec{ID: zoneDeck, Visibility: VisibilityHidden, Ordering: OrderingOrdered})
	if !errors.Is(err, ErrDuplicateZone) {
		t.Fatalf("err = %v, want ErrDuplicateZone", err)
	}
}

func TestCreateCardAssignsFreshHandles(t *testing.T) {
	g := newTableState(t)
	h1 := mustCreate(t, g, "S1", zoneDeck)
	h2 := mustCreate(t, g, "S2", zoneDeck)
	if h1 == h2 {
		t.Fatalf("handles not unique: %v", h1)
	}
	if h1 == 0 || h2 == 0 {
		t.Fatalf("zero handle assigned: %v %v", h1, h2)
	}
}

func TestOrderedInsertPositions(t *testing.T) {
	g := newTableState(t)
	bottom := mustCreate(t, g, "S1", zoneDeck)
	top, err := g.CreateCard("S2", zoneDeck, PositionTop)
	if err != nil {
		t.Fatalf("create at top: %v", err)
	}
	mid, err := g.CreateCard("S3", zoneDeck, Position(1))
	if err != nil {
		t.Fatalf("create at index: %v", err)
	}

	deck, err := g.Zone(zoneDeck)
	if err != nil {
		t.Fatalf("zone: %v", err)
	}
	want := []Handle{top, mid, bottom}
	got := deck.Cards()
	if len(got) != len(want) {
		t.Fatalf("deck size = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("deck[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMoveTransfersAtomically(t *testing.T) {
	g := newTableState(t)
	h := mustCreate(t, g, "S1", zoneDeck)

	if err := g.Move(h, zoneDeck, zoneHandA, PositionBottom); err != nil {
		t.Fatalf("move: %v", err)
	}

	deck, _ := g.Zone(zoneDeck)
	hand, _ := g.Zone(zoneHandA)
	if deck.Contains(h) {
		t.Fatalf("%v still in deck after move", h)
	}
	if !hand.Contains(h) {
		t.Fatalf("%v missing from hand after move", h)
	}
}

func TestMoveRejectionsLeaveStateUnchanged(t *testing.T) {
	g := newTableState(t)
	h := mustCreate(t, g, "S1", zoneDeck)

	tests := []struct {
		name string
		move func() error
		want error
	}{
		{
			name: "UnknownHandle",
			move: func() error { return g.Move(Handle(999), zoneDeck, zoneHandA, PositionBottom) },
			want: ErrUnknownHandle,
		},
		{
			name: "UnknownSourceZone",
			move: func() error { return g.Move(h, "limbo", zoneHandA, PositionBottom) },
			want: ErrUnknownZone,
		},
		{
			name: "UnknownTargetZone",
			move: func() error { return g.Move(h, zoneDeck, "limbo", PositionBottom) },
			want: ErrUnknownZone,
		},
		{
			name: "HandleNotPresentInSource",
			move: func() error { return g.Move(h, zoneDiscard, zoneHandA, PositionBottom) },
			want: ErrHandleNotPresent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := g.StateHash()
			seq := g.EventSeq()
			if err := tt.move(); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if g.StateHash() != before {
				t.Fatalf("state mutated by rejected move")
			}
			if g.EventSeq() != seq {
				t.Fatalf("event appended by rejected move")
			}
		})
	}
}

func TestHandleNeverInTwoZones(t *testing.T) {
	g := newTableState(t)
	h := mustCreate(t, g, "S1", zoneDeck)
	if err := g.Move(h, zoneDeck, zoneDiscard, PositionBottom); err != nil {
		t.Fatalf("move: %v", err)
	}

	present := 0
	for _, id := range g.ZoneIDs() {
		z, _ := g.Zone(id)
		if z.Contains(h) {
			present++
		}
	}
	if present != 1 {
		t.Fatalf("handle present in %d zones, want 1", present)
	}
}

func TestInsertRejectsCardStillInPlay(t *testing.T) {
	g := newTableState(t)
	h := mustCreate(t, g, "S1", zoneDeck)
	err := g.Insert(h, zoneDiscard, PositionBottom)
	if !errors.Is(err, ErrDuplicateHandle) {
		t.Fatalf("err = %v, want ErrDuplicateHandle", err)
	}
}

func TestRemoveInsertRoundTrip(t *testing.T) {
	g := newTableState(t)
	h := mustCreate(t, g, "S1", zoneDeck)
	mustCreate(t, g, "S2", zoneDeck)

	idx, err := g.Remove(h)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if idx != 0 {
		t.Fatalf("removed index = %d, want 0", idx)
	}
	for _, id := range g.ZoneIDs() {
		z, _ := g.Zone(id)
		if z.Contains(h) {
			t.Fatalf("removed handle still in %q", id)
		}
	}

	// Still resolvable while out of play.
	if _, err := g.Resolve(h, alice); err != nil {
		t.Fatalf("resolve removed card: %v", err)
	}

	if err := g.Insert(h, zoneDiscard, PositionBottom); err != nil {
		t.Fatalf("insert: %v", err)
	}
	discard, _ := g.Zone(zoneDiscard)
	if !discard.Contains(h) {
		t.Fatalf("handle missing after re-insert")
	}
}

func TestPurge(t *testing.T) {
	g := newTableState(t)
	h := mustCreate(t, g, "S1", zoneDeck)

	if err := g.Purge(h); !errors.Is(err, ErrDuplicateHandle) {
		t.Fatalf("purge in-play card: err = %v, want ErrDuplicateHandle", err)
	}

	if _, err := g.Remove(h); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := g.Purge(h); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, err := g.Resolve(h, alice); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("resolve purged: err = %v, want ErrUnknownHandle", err)
	}

	// The purged handle is never reused.
	next := mustCreate(t, g, "S2", zoneDeck)
	if next == h {
		t.Fatalf("handle %v reused after purge", h)
	}
}

func TestDraw(t *testing.T) {
	g := newTableState(t)
	var created []Handle
	for _, v := range []CardValue{"S1", "S2", "S3"} {
		created = append(created, mustCreate(t, g, v, zoneDeck))
	}

	drawn, err := g.Draw(zoneDeck, zoneHandA, 2)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if len(drawn) != 2 || drawn[0] != created[0] || drawn[1] != created[1] {
		t.Fatalf("drawn = %v, want top two of %v", drawn, created)
	}

	before := g.StateHash()
	if _, err := g.Draw(zoneDeck, zoneHandA, 2); !errors.Is(err, ErrInsufficientCards) {
		t.Fatalf("short draw: err = %v, want ErrInsufficientCards", err)
	}
	if g.StateHash() != before {
		t.Fatalf("state mutated by failed draw")
	}

	if _, err := g.Draw(zoneHandA, zoneDiscard, 1); !errors.Is(err, ErrUnorderedZone) {
		t.Fatalf("draw from unordered: err = %v, want ErrUnorderedZone", err)
	}
}
