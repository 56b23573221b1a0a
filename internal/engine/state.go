package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/google/uuid"
)

// GameState is the canonical state of one session: the secret store, the
// zones, and the append-only event log. It is single-writer: exactly one
// logical execution applies operations at a time, and every mutation either
// fully applies and appends one or more events, or leaves the state untouched.
// Projection (Project, Snapshot, StateHash) is read-only and may run
// concurrently with other reads, but never with a mutation.
type GameState struct {
	sessionID uuid.UUID
	secrets   secretStore

	// zones are indexed for lookup but iterated via zoneOrder so that no map
	// iteration order ever reaches a deterministic output.
	zones     map[ZoneID]*Zone
	zoneOrder []ZoneID

	events     []Event
	nextHandle Handle
	removed    map[Handle]bool
}

// NewGameState constructs an empty canonical state for the given session.
func NewGameState(sessionID uuid.UUID) *GameState {
	return &GameState{
		sessionID:  sessionID,
		secrets:    newSecretStore(),
		zones:      make(map[ZoneID]*Zone),
		removed:    make(map[Handle]bool),
		nextHandle: 1,
	}
}

// SessionID returns the session identifier this state belongs to.
func (g *GameState) SessionID() uuid.UUID {
	return g.sessionID
}

// EventSeq returns the sequence number of the last appended event, for
// checkpointing. Zero when the log is empty.
func (g *GameState) EventSeq() uint64 {
	return uint64(len(g.events))
}

// Events returns a copy of the event log in sequence order.
func (g *GameState) Events() []Event {
	return append([]Event(nil), g.events...)
}

// Zone returns a copy of the named zone.
func (g *GameState) Zone(id ZoneID) (*Zone, error) {
	z, ok := g.zones[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, id)
	}
	return z.clone(), nil
}

// ZoneIDs returns the zone IDs in creation order.
func (g *GameState) ZoneIDs() []ZoneID {
	return append([]ZoneID(nil), g.zoneOrder...)
}

func (g *GameState) appendEvent(kind EventKind, payload any) {
	g.events = append(g.events, Event{
		Seq:     uint64(len(g.events)) + 1,
		Kind:    kind,
		Payload: payload,
	})
}

// CreateZone adds a zone to the session and records it in the log.
func (g *GameState) CreateZone(spec ZoneSpec) error {
	if _, ok := g.zones[spec.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateZone, spec.ID)
	}
	p := ZoneCreatedPayload{Zone: spec}
	g.applyZoneCreated(p)
	g.appendEvent(EventZoneCreated, p)
	return nil
}

func (g *GameState) applyZoneCreated(p ZoneCreatedPayload) {
	z := &Zone{
		ID:         p.Zone.ID,
		Owner:      p.Zone.Owner,
		Visibility: p.Zone.Visibility,
		Ordering:   p.Zone.Ordering,
	}
	g.zones[z.ID] = z
	g.zoneOrder = append(g.zoneOrder, z.ID)
}

// CreateCard binds a fresh, never-reused handle to value, places it into the
// given zone, and records the creation. The allowed set starts with exactly
// the given participants; pass none for a fully hidden card.
func (g *GameState) CreateCard(value CardValue, zone ZoneID, pos Position, allowed ...Participant) (Handle, error) {
	z, ok := g.zones[zone]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownZone, zone)
	}
	p := CardCreatedPayload{
		Handle:  g.nextHandle,
		Value:   value,
		Zone:    zone,
		Index:   z.resolveIndex(pos),
		Allowed: normalizeParticipants(allowed),
	}
	g.applyCardCreated(p)
	g.appendEvent(EventCardCreated, p)
	return p.Handle, nil
}

func (g *GameState) applyCardCreated(p CardCreatedPayload) {
	g.secrets.create(p.Handle, p.Value, p.Allowed)
	g.zones[p.Zone].insertAt(p.Handle, p.Index)
	if p.Handle >= g.nextHandle {
		g.nextHandle = p.Handle + 1
	}
}

// Move atomically transfers a handle between two zones. Either the removal
// and the insertion both happen and one Move event is appended, or the state
// is unchanged.
func (g *GameState) Move(h Handle, from, to ZoneID, pos Position) error {
	if _, ok := g.secrets.get(h); !ok {
		return fmt.Errorf("%w: %v", ErrUnknownHandle, h)
	}
	src, ok := g.zones[from]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownZone, from)
	}
	dst, ok := g.zones[to]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownZone, to)
	}
	fromIdx := src.indexOf(h)
	if fromIdx < 0 {
		return fmt.Errorf("%w: %v not in %q", ErrHandleNotPresent, h, from)
	}
	if dst.Contains(h) {
		return fmt.Errorf("%w: %v in %q", ErrDuplicateHandle, h, to)
	}
	p := CardMovedPayload{
		Handle:    h,
		From:      from,
		To:        to,
		FromIndex: fromIdx,
		ToIndex:   dst.resolveIndex(pos),
	}
	g.applyCardMoved(p)
	g.appendEvent(EventCardMoved, p)
	return nil
}

// Remove takes a handle out of play entirely and returns the index it held in
// its zone. The handle stays resolvable until purged.
func (g *GameState) Remove(h Handle) (int, error) {
	if _, ok := g.secrets.get(h); !ok {
		return 0, fmt.Errorf("%w: %v", ErrUnknownHandle, h)
	}
	z, idx := g.zoneOf(h)
	if z == nil {
		return 0, fmt.Errorf("%w: %v", ErrCardRemoved, h)
	}
	p := CardMovedPayload{Handle: h, From: z.ID, FromIndex: idx, ToIndex: -1}
	g.applyCardMoved(p)
	g.appendEvent(EventCardMoved, p)
	return idx, nil
}

// Insert returns a previously removed handle to play in the given zone.
func (g *GameState) Insert(h Handle, zone ZoneID, pos Position) error {
	if _, ok := g.secrets.get(h); !ok {
		return fmt.Errorf("%w: %v", ErrUnknownHandle, h)
	}
	z, ok := g.zones[zone]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownZone, zone)
	}
	if !g.removed[h] {
		if z.Contains(h) {
			return fmt.Errorf("%w: %v in %q", ErrDuplicateHandle, h, zone)
		}
		return fmt.Errorf("%w: %v is still in a zone", ErrDuplicateHandle, h)
	}
	p := CardMovedPayload{Handle: h, To: zone, FromIndex: -1, ToIndex: z.resolveIndex(pos)}
	g.applyCardMoved(p)
	g.appendEvent(EventCardMoved, p)
	return nil
}

func (g *GameState) applyCardMoved(p CardMovedPayload) {
	if p.From != "" {
		g.zones[p.From].removeAt(p.FromIndex)
	} else {
		delete(g.removed, p.Handle)
	}
	if p.To != "" {
		g.zones[p.To].insertAt(p.Handle, p.ToIndex)
	} else {
		g.removed[p.Handle] = true
	}
}

// GrantVisibility adds a participant to a card's allowed set. Idempotent: the
// first grant appends a Reveal event, repeats append nothing, so the log
// carries each grant exactly once and supports later leak audits.
func (g *GameState) GrantVisibility(h Handle, p Participant) error {
	e, ok := g.secrets.get(h)
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownHandle, h)
	}
	if !e.isAllowed(p) {
		payload := CardRevealedPayload{Handle: h, Participant: p}
		g.applyCardRevealed(payload)
		g.appendEvent(EventCardRevealed, payload)
	}
	return nil
}

func (g *GameState) applyCardRevealed(p CardRevealedPayload) {
	if e, ok := g.secrets.get(p.Handle); ok {
		e.grant(p.Participant)
	}
}

// Shuffle permutes an ordered zone with the pinned deterministic algorithm
// and records the resulting permutation. The same (contents, seed) pair
// yields the same permutation on every platform.
func (g *GameState) Shuffle(zone ZoneID, seed []byte) error {
	z, ok := g.zones[zone]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownZone, zone)
	}
	if z.Ordering != OrderingOrdered {
		return fmt.Errorf("%w: shuffle %q", ErrUnorderedZone, zone)
	}
	p := ZoneShuffledPayload{
		Zone:        zone,
		Permutation: permute(z.cards, seed),
		SeedDigest:  seedDigest(seed),
	}
	g.applyZoneShuffled(p)
	g.appendEvent(EventZoneShuffled, p)
	return nil
}

func (g *GameState) applyZoneShuffled(p ZoneShuffledPayload) {
	g.zones[p.Zone].cards = append([]Handle(nil), p.Permutation...)
}

// Draw removes count cards from the top of an ordered zone and appends them
// to the bottom of the target zone, in order. Fails without mutating when the
// source holds fewer than count cards.
func (g *GameState) Draw(from, to ZoneID, count int) ([]Handle, error) {
	src, ok := g.zones[from]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, from)
	}
	if _, ok := g.zones[to]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, to)
	}
	if src.Ordering != OrderingOrdered {
		return nil, fmt.Errorf("%w: draw from %q", ErrUnorderedZone, from)
	}
	if count < 0 || count > src.Size() {
		return nil, fmt.Errorf("%w: draw %d from %q holding %d", ErrInsufficientCards, count, from, src.Size())
	}
	drawn := make([]Handle, 0, count)
	for i := 0; i < count; i++ {
		h := src.cards[0]
		if err := g.Move(h, from, to, PositionBottom); err != nil {
			return drawn, err
		}
		drawn = append(drawn, h)
	}
	return drawn, nil
}

// Purge destroys the secret entry of a card that has left play. Its handle is
// never reused; later references fail with ErrUnknownHandle.
func (g *GameState) Purge(h Handle) error {
	if _, ok := g.secrets.get(h); !ok {
		return fmt.Errorf("%w: %v", ErrUnknownHandle, h)
	}
	if !g.removed[h] {
		return fmt.Errorf("%w: %v is still in a zone", ErrDuplicateHandle, h)
	}
	p := CardPurgedPayload{Handle: h}
	g.applyCardPurged(p)
	g.appendEvent(EventCardPurged, p)
	return nil
}

func (g *GameState) applyCardPurged(p CardPurgedPayload) {
	g.secrets.purge(p.Handle)
	delete(g.removed, p.Handle)
}

// Resolve returns the card value when the participant may see it: either the
// participant is in the card's allowed set, or the card sits in a public
// zone. Otherwise the withheld marker is returned.
func (g *GameState) Resolve(h Handle, p Participant) (ResolvedCard, error) {
	z, _ := g.zoneOf(h)
	rc, ok := g.secrets.resolve(h, p, z != nil && z.Visibility == VisibilityPublic)
	if !ok {
		return ResolvedCard{}, fmt.Errorf("%w: %v", ErrUnknownHandle, h)
	}
	return rc, nil
}

// zoneOf returns the zone currently holding the handle, or nil.
func (g *GameState) zoneOf(h Handle) (*Zone, int) {
	for _, id := range g.zoneOrder {
		z := g.zones[id]
		if idx := z.indexOf(h); idx >= 0 {
			return z, idx
		}
	}
	return nil, -1
}

// RevealsFor returns every Reveal event recorded for the handle, in sequence
// order, for auditing how a card's information spread.
func (g *GameState) RevealsFor(h Handle) []CardRevealedPayload {
	var out []CardRevealedPayload
	for _, ev := range g.events {
		if ev.Kind != EventCardRevealed {
			continue
		}
		if p, ok := ev.Payload.(CardRevealedPayload); ok && p.Handle == h {
			out = append(out, p)
		}
	}
	return out
}

// applyEvent mutates state for one replayed event without appending to the
// log. It must stay in lockstep with the live operation paths above.
func (g *GameState) applyEvent(ev Event) error {
	switch ev.Kind {
	case EventZoneCreated:
		p, ok := ev.Payload.(ZoneCreatedPayload)
		if !ok {
			return fmt.Errorf("event %d: bad %s payload", ev.Seq, ev.Kind)
		}
		g.applyZoneCreated(p)
	case EventCardCreated:
		p, ok := ev.Payload.(CardCreatedPayload)
		if !ok {
			return fmt.Errorf("event %d: bad %s payload", ev.Seq, ev.Kind)
		}
		g.applyCardCreated(p)
	case EventCardMoved:
		p, ok := ev.Payload.(CardMovedPayload)
		if !ok {
			return fmt.Errorf("event %d: bad %s payload", ev.Seq, ev.Kind)
		}
		g.applyCardMoved(p)
	case EventCardRevealed:
		p, ok := ev.Payload.(CardRevealedPayload)
		if !ok {
			return fmt.Errorf("event %d: bad %s payload", ev.Seq, ev.Kind)
		}
		g.applyCardRevealed(p)
	case EventZoneShuffled:
		p, ok := ev.Payload.(ZoneShuffledPayload)
		if !ok {
			return fmt.Errorf("event %d: bad %s payload", ev.Seq, ev.Kind)
		}
		g.applyZoneShuffled(p)
	case EventCardPurged:
		p, ok := ev.Payload.(CardPurgedPayload)
		if !ok {
			return fmt.Errorf("event %d: bad %s payload", ev.Seq, ev.Kind)
		}
		g.applyCardPurged(p)
	default:
		return fmt.Errorf("event %d: unknown kind %q", ev.Seq, ev.Kind)
	}
	return nil
}

// Replay reconstructs a canonical state from an empty initial state by
// applying events in sequence order. It is both the production recovery path
// and the verification tool backing Verify.
func Replay(sessionID uuid.UUID, events []Event) (*GameState, error) {
	g := NewGameState(sessionID)
	for i, ev := range events {
		if ev.Seq != uint64(i)+1 {
			return nil, fmt.Errorf("event %d: out-of-order seq %d", i+1, ev.Seq)
		}
		if err := g.applyEvent(ev); err != nil {
			return nil, err
		}
		g.events = append(g.events, ev)
	}
	return g, nil
}

// Verify replays the live log from empty and compares the result against the
// live state. A mismatch is ErrDeterminismViolation: non-determinism or
// corruption that breaks cross-party agreement, never to be ignored.
func (g *GameState) Verify() error {
	replayed, err := Replay(g.sessionID, g.Events())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeterminismViolation, err)
	}
	if !g.Equal(replayed) {
		return ErrDeterminismViolation
	}
	return nil
}

// Equal reports structural equality of two canonical states. Testing and
// verification hook; production logic relies on StateHash instead.
func (g *GameState) Equal(other *GameState) bool {
	return reflect.DeepEqual(g.Snapshot(), other.Snapshot())
}

// EventsEqual reports structural equality of two event logs.
func EventsEqual(a, b []Event) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// ZoneSnapshot is the serializable form of one zone.
type ZoneSnapshot struct {
	Spec  ZoneSpec `json:"spec"`
	Cards []Handle `json:"cards"`
}

// SecretSnapshot is the serializable form of one secret entry.
type SecretSnapshot struct {
	Handle  Handle        `json:"handle"`
	Value   CardValue     `json:"value"`
	Allowed []Participant `json:"allowed,omitempty"`
}

// Snapshot is the full serializable aggregate handed to the external codec.
// It contains every secret and the full log, so it is only ever shared with
// the trusted serializer, never transmitted to clients; clients receive
// PlayerViews.
type Snapshot struct {
	SessionID  string           `json:"session_id"`
	NextHandle Handle           `json:"next_handle"`
	Zones      []ZoneSnapshot   `json:"zones"`
	Secrets    []SecretSnapshot `json:"secrets"`
	Removed    []Handle         `json:"removed,omitempty"`
	Events     []Event          `json:"events"`
}

// Snapshot builds the canonical serializable form of the state. All ordering
// is explicit: zones by creation, secrets and removed handles ascending.
func (g *GameState) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:  g.sessionID.String(),
		NextHandle: g.nextHandle,
		Zones:      make([]ZoneSnapshot, 0, len(g.zoneOrder)),
		Events:     g.Events(),
	}
	for _, id := range g.zoneOrder {
		z := g.zones[id]
		snap.Zones = append(snap.Zones, ZoneSnapshot{
			Spec:  ZoneSpec{ID: z.ID, Owner: z.Owner, Visibility: z.Visibility, Ordering: z.Ordering},
			Cards: z.Cards(),
		})
	}
	for _, h := range g.secrets.handles() {
		e, _ := g.secrets.get(h)
		snap.Secrets = append(snap.Secrets, SecretSnapshot{
			Handle:  h,
			Value:   e.value,
			Allowed: append([]Participant(nil), e.allowed...),
		})
	}
	for h := range g.removed {
		snap.Removed = append(snap.Removed, h)
	}
	sort.Slice(snap.Removed, func(i, j int) bool { return snap.Removed[i] < snap.Removed[j] })
	return snap
}

// StateHash returns the sha256 content hash of the canonical state, used for
// cross-party agreement checks.
func (g *GameState) StateHash() string {
	data, err := json.Marshal(g.Snapshot())
	if err != nil {
		// Snapshot contains only marshalable types; reaching this means a
		// programming error in the engine itself.
		panic(fmt.Sprintf("engine: snapshot marshal: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// normalizeParticipants sorts and de-duplicates an allowed set.
func normalizeParticipants(in []Participant) []Participant {
	if len(in) == 0 {
		return nil
	}
	out := append([]Participant(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	dedup := out[:1]
	for _, p := range out[1:] {
		if p != dedup[len(dedup)-1] {
			dedup = append(dedup, p)
		}
	}
	return dedup
}
