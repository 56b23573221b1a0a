package engine

// Visibility is a zone-level policy. It belongs to the zone, not to the cards
// inside it: moving a card into a differently-visible zone does not touch the
// card's allowed set.
type Visibility string

const (
	// VisibilityPublic zones resolve every card for every participant.
	VisibilityPublic Visibility = "public"
	// VisibilityOwnerOnly zones expose handles to everyone but values only to
	// participants in a card's allowed set.
	VisibilityOwnerOnly Visibility = "owner_only"
	// VisibilityHidden zones expose only their size, even to the owner.
	VisibilityHidden Visibility = "hidden"
)

// Ordering declares whether a zone's card order is game-meaningful.
type Ordering string

const (
	OrderingOrdered   Ordering = "ordered"
	OrderingUnordered Ordering = "unordered"
)

// ZoneID names a zone within a session.
type ZoneID string

// Position selects where an ordered insert lands. Non-negative values are
// indices from the top; PositionBottom appends. Unordered zones always append.
type Position int

const (
	PositionTop    Position = 0
	PositionBottom Position = -1
)

// Zone is a collection of card handles with a visibility and ordering policy.
// A handle appears in at most one zone at any instant; all mutation goes
// through the owning GameState so that every movement is recorded.
type Zone struct {
	ID         ZoneID
	Owner      Participant // empty for shared zones
	Visibility Visibility
	Ordering   Ordering

	cards []Handle
}

// Size returns the number of cards currently in the zone.
func (z *Zone) Size() int {
	return len(z.cards)
}

// Cards returns a copy of the zone's contents in canonical order.
func (z *Zone) Cards() []Handle {
	return append([]Handle(nil), z.cards...)
}

// Contains reports whether the zone currently holds the handle.
func (z *Zone) Contains(h Handle) bool {
	return z.indexOf(h) >= 0
}

func (z *Zone) indexOf(h Handle) int {
	for i, c := range z.cards {
		if c == h {
			return i
		}
	}
	return -1
}

// resolveIndex maps a Position to the concrete insertion index.
func (z *Zone) resolveIndex(pos Position) int {
	if z.Ordering == OrderingUnordered || pos == PositionBottom || int(pos) > len(z.cards) {
		return len(z.cards)
	}
	if pos < 0 {
		return len(z.cards)
	}
	return int(pos)
}

// insertAt places the handle at the given concrete index.
func (z *Zone) insertAt(h Handle, idx int) {
	if idx < 0 || idx > len(z.cards) {
		idx = len(z.cards)
	}
	z.cards = append(z.cards, 0)
	copy(z.cards[idx+1:], z.cards[idx:])
	z.cards[idx] = h
}

// removeAt removes and returns the handle at the given index.
func (z *Zone) removeAt(idx int) Handle {
	h := z.cards[idx]
	z.cards = append(z.cards[:idx], z.cards[idx+1:]...)
	return h
}

func (z *Zone) clone() *Zone {
	out := *z
	out.cards = append([]Handle(nil), z.cards...)
	return &out
}

// ZoneSpec describes a zone to be created.
type ZoneSpec struct {
	ID         ZoneID      `json:"id"`
	Owner      Participant `json:"owner,omitempty"`
	Visibility Visibility  `json:"visibility"`
	Ordering   Ordering    `json:"ordering"`
}
