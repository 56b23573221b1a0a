package integration

import (
	"testing"

	"cardroom/internal/app"
	"cardroom/internal/config"
	"cardroom/internal/engine"
	"cardroom/internal/ports/jsoncodec"

	"github.com/google/uuid"
)

// TestReplicasConvergeOnFullGame drives three independent replicas through
// the same command stream and checks agreement after every step. This is the
// deployment model: each consensus party recomputes the session locally and
// compares hashes, so any divergence is a correctness bug.
func TestReplicasConvergeOnFullGame(t *testing.T) {
	sessionID := uuid.NewSHA1(uuid.NameSpaceURL, []byte("cardroom:integration-1"))
	players := []engine.Participant{"alice", "bob", "carol"}
	table := config.DefaultTableConfig()

	replicas := []*replica{
		newReplica(t, sessionID, players, table),
		newReplica(t, sessionID, players, table),
		newReplica(t, sessionID, players, table),
	}
	requireAgreement(t, "session start", replicas, players)

	commands := []command{
		drawCmd("alice", 2),
		playCmd("alice", lowest),
		drawCmd("bob", 1),
		revealCmd("bob", "carol", lowest),
		playCmd("bob", lowest),
		drawCmd("carol", 3),
		playCmd("carol", lowest),
		playCmd("alice", lowest),
		drawCmd("bob", 2),
	}

	for i, cmd := range commands {
		for _, r := range replicas {
			cmd.apply(t, r)
		}
		requireAgreement(t, cmd.name, replicas, players)
		if i == len(commands)/2 {
			for _, r := range replicas {
				if err := r.state.Verify(); err != nil {
					t.Fatalf("mid-game verify: %v", err)
				}
			}
		}
	}

	for _, r := range replicas {
		if err := r.state.Verify(); err != nil {
			t.Fatalf("final verify: %v", err)
		}
	}
}

// TestReplicaRecoversFromSnapshot restores a fresh replica from another
// replica's encoded snapshot and checks it continues in lockstep.
func TestReplicaRecoversFromSnapshot(t *testing.T) {
	sessionID := uuid.NewSHA1(uuid.NameSpaceURL, []byte("cardroom:integration-2"))
	players := []engine.Participant{"alice", "bob"}
	table := config.DefaultTableConfig()

	live := newReplica(t, sessionID, players, table)
	drawCmd("alice", 3).apply(t, live)
	playCmd("alice", lowest).apply(t, live)

	codec := jsoncodec.New()
	encoded, err := codec.EncodeState(live.state.Snapshot())
	if err != nil {
		t.Fatalf("encode snapshot: %v", err)
	}
	snap, err := codec.DecodeState(encoded)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	restoredState, err := engine.Replay(live.state.SessionID(), snap.Events)
	if err != nil {
		t.Fatalf("replay snapshot log: %v", err)
	}
	restored := &replica{svc: live.svc, state: restoredState}

	requireAgreement(t, "after restore", []*replica{live, restored}, players)

	// Both copies keep agreeing on further identical inputs.
	for _, cmd := range []command{drawCmd("bob", 2), playCmd("bob", lowest), drawCmd("alice", 1)} {
		cmd.apply(t, live)
		cmd.apply(t, restored)
		requireAgreement(t, cmd.name, []*replica{live, restored}, players)
	}
}

// TestDrainDeckExercisesReshuffle plays and draws until the deck cycles
// through the discard pile, proving the reshuffle path is deterministic too.
func TestDrainDeckExercisesReshuffle(t *testing.T) {
	sessionID := uuid.NewSHA1(uuid.NameSpaceURL, []byte("cardroom:integration-3"))
	players := []engine.Participant{"alice", "bob"}
	table := config.TableConfig{
		Suits:            []string{"S", "H"},
		RanksPerSuit:     6,
		HandSize:         4,
		AllowReshuffle:   true,
		ShuffleAlgorithm: engine.ShuffleAlgorithm,
	}

	replicas := []*replica{
		newReplica(t, sessionID, players, table),
		newReplica(t, sessionID, players, table),
	}

	// 12 cards, 8 dealt. Alternate playing and drawing so the deck runs dry
	// while the discard pile has cards to recycle.
	commands := []command{
		playCmd("alice", lowest),
		playCmd("alice", lowest),
		playCmd("bob", lowest),
		drawCmd("alice", 3), // deck 4 -> 1
		playCmd("bob", lowest),
		drawCmd("bob", 3), // deck 1, discard 4: reshuffle
	}
	for _, cmd := range commands {
		for _, r := range replicas {
			cmd.apply(t, r)
		}
		requireAgreement(t, cmd.name, replicas, players)
	}

	for _, r := range replicas {
		deck, err := r.state.Zone(app.ZoneDeck)
		if err != nil {
			t.Fatalf("deck zone: %v", err)
		}
		if deck.Size() != 2 {
			t.Fatalf("deck size = %d, want 2 after reshuffle and draw", deck.Size())
		}
		if err := r.state.Verify(); err != nil {
			t.Fatalf("verify after reshuffle: %v", err)
		}
	}
}
