package engine

import "sort"

// secretEntry binds a handle to its real value and the set of participants
// allowed to resolve it. The allowed set is kept sorted so that serialization
// and comparison never depend on insertion order.
type secretEntry struct {
	value   CardValue
	allowed []Participant
}

func (e *secretEntry) isAllowed(p Participant) bool {
	for _, a := range e.allowed {
		if a == p {
			return true
		}
	}
	return false
}

// grant adds the participant to the allowed set. Returns false when the
// participant was already allowed.
func (e *secretEntry) grant(p Participant) bool {
	if e.isAllowed(p) {
		return false
	}
	e.allowed = append(e.allowed, p)
	sort.Slice(e.allowed, func(i, j int) bool { return e.allowed[i] < e.allowed[j] })
	return true
}

func (e *secretEntry) clone() *secretEntry {
	return &secretEntry{
		value:   e.value,
		allowed: append([]Participant(nil), e.allowed...),
	}
}

// secretStore owns the handle-to-value relation for one session. It is state
// of the GameState aggregate, never a process-wide table, so concurrent
// sessions cannot interfere and tests construct isolated instances.
type secretStore struct {
	entries map[Handle]*secretEntry
}

func newSecretStore() secretStore {
	return secretStore{entries: make(map[Handle]*secretEntry)}
}

func (s *secretStore) create(h Handle, value CardValue, allowed []Participant) {
	e := &secretEntry{value: value}
	for _, p := range allowed {
		e.grant(p)
	}
	s.entries[h] = e
}

func (s *secretStore) get(h Handle) (*secretEntry, bool) {
	e, ok := s.entries[h]
	return e, ok
}

func (s *secretStore) purge(h Handle) {
	delete(s.entries, h)
}

// handles returns every known handle in ascending order.
func (s *secretStore) handles() []Handle {
	out := make([]Handle, 0, len(s.entries))
	for h := range s.entries {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// resolve applies the visibility rule: the value is known when the requesting
// participant is in the allowed set or the card sits in a public zone.
func (s *secretStore) resolve(h Handle, p Participant, inPublicZone bool) (ResolvedCard, bool) {
	e, ok := s.entries[h]
	if !ok {
		return ResolvedCard{}, false
	}
	if inPublicZone || e.isAllowed(p) {
		return ResolvedCard{Handle: h, Known: true, Value: e.value}, true
	}
	return ResolvedCard{Handle: h, Known: false}, true
}
