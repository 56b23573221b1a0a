package integration

import (
	"context"
	"crypto/sha256"
	"testing"

	"cardroom/internal/app"
	"cardroom/internal/config"
	"cardroom/internal/engine"

	"github.com/google/uuid"
)

// beaconStub stands in for the consensus randomness beacon: every replica
// holds the same root, so every replica derives the same seeds.
type beaconStub struct {
	root []byte
}

func (b beaconStub) Seed(_ context.Context, purpose string) ([]byte, error) {
	sum := sha256.Sum256(append(append([]byte(nil), b.root...), purpose...))
	return sum[:], nil
}

// replica is one independent copy of the session, as each consensus party
// would run it: its own Service, its own canonical state, same inputs.
type replica struct {
	svc   *app.Service
	state *engine.GameState
}

func newReplica(t *testing.T, sessionID uuid.UUID, players []engine.Participant, table config.TableConfig) *replica {
	t.Helper()
	svc := app.NewService(beaconStub{root: []byte("shared-beacon")}, table)
	state, _, err := svc.StartSession(context.Background(), sessionID, players)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return &replica{svc: svc, state: state}
}

// command is one deterministic input applied identically on every replica.
type command struct {
	name  string
	apply func(t *testing.T, r *replica)
}

func drawCmd(p engine.Participant, count int) command {
	return command{
		name: "draw",
		apply: func(t *testing.T, r *replica) {
			if _, err := r.svc.Draw(context.Background(), r.state, p, count); err != nil {
				t.Fatalf("draw %d for %s: %v", count, p, err)
			}
		},
	}
}

func playCmd(p engine.Participant, pick func(hand []engine.Handle) engine.Handle) command {
	return command{
		name: "play",
		apply: func(t *testing.T, r *replica) {
			hand, err := r.state.Zone(app.HandZone(p))
			if err != nil {
				t.Fatalf("hand zone for %s: %v", p, err)
			}
			if _, err := r.svc.PlayCard(r.state, p, pick(hand.Cards())); err != nil {
				t.Fatalf("play for %s: %v", p, err)
			}
		},
	}
}

func revealCmd(from, to engine.Participant, pick func(hand []engine.Handle) engine.Handle) command {
	return command{
		name: "reveal",
		apply: func(t *testing.T, r *replica) {
			hand, err := r.state.Zone(app.HandZone(from))
			if err != nil {
				t.Fatalf("hand zone for %s: %v", from, err)
			}
			if _, err := r.svc.RevealCard(r.state, pick(hand.Cards()), to); err != nil {
				t.Fatalf("reveal from %s to %s: %v", from, to, err)
			}
		},
	}
}

func lowest(hand []engine.Handle) engine.Handle {
	min := hand[0]
	for _, h := range hand[1:] {
		if h < min {
			min = h
		}
	}
	return min
}

// requireAgreement fails unless every replica holds the same canonical state
// and produces the same projections for every participant.
func requireAgreement(t *testing.T, step string, replicas []*replica, players []engine.Participant) {
	t.Helper()
	want := replicas[0].state.StateHash()
	for i, r := range replicas[1:] {
		if got := r.state.StateHash(); got != want {
			t.Fatalf("%s: replica %d state hash diverged", step, i+1)
		}
	}
	for _, p := range players {
		wantView := replicas[0].state.Project(p).Hash()
		for i, r := range replicas[1:] {
			if got := r.state.Project(p).Hash(); got != wantView {
				t.Fatalf("%s: replica %d view for %s diverged", step, i+1, p)
			}
		}
	}
}
