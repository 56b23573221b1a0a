package nakama

import (
	"context"
	"database/sql"
	"encoding/hex"

	"cardroom/internal/app"
	"cardroom/internal/config"
	"cardroom/internal/engine"
	"cardroom/internal/ports"
	"cardroom/internal/ports/jsoncodec"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

// MatchState holds the authoritative runtime state for the Nakama match
// handler: seating, presences, and the single-writer canonical GameState.
// All mutation happens on the match loop goroutine, which satisfies the
// engine's single-writer discipline.
type MatchState struct {
	Seats     [4]string // user IDs, empty string means seat is empty
	OwnerSeat int       // seat index of the match owner
	Tick      int64

	Presences map[string]runtime.Presence
	Svc       *app.Service
	State     *engine.GameState
	Codec     ports.StateCodec
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) seatOf(userID string) int {
	for i, seat := range ms.Seats {
		if seat == userID {
			return i
		}
	}
	return -1
}

// participants returns the seated user IDs in seat order.
func (ms *MatchState) participants() []engine.Participant {
	var out []engine.Participant
	for _, seat := range ms.Seats {
		if seat != "" {
			out = append(out, engine.Participant(seat))
		}
	}
	return out
}

func newMatchHandler() runtime.Match {
	return &matchHandler{}
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	if err := config.LoadTableConfig("data/table_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load table config, using defaults: %v", err)
	}

	state := &MatchState{
		Presences: make(map[string]runtime.Presence),
		OwnerSeat: -1,
		Codec:     jsoncodec.New(),
	}

	label, err := marshalPayload(map[string]any{
		"open":  float64(state.GetOpenSeatsCount()),
		"state": "lobby",
	})
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(label)
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	if matchState.State != nil {
		return state, false, "session already running"
	}
	if matchState.GetOpenSeatsCount() <= 0 {
		return state, false, "match full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p

		for i, seatUserID := range matchState.Seats {
			if seatUserID == "" {
				matchState.Seats[i] = p.GetUserId()
				break
			}
		}
	}

	if matchState.OwnerSeat < 0 || matchState.Seats[matchState.OwnerSeat] == "" {
		for i, seatUserID := range matchState.Seats {
			if seatUserID != "" {
				matchState.OwnerSeat = i
				break
			}
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastSeating(matchState, dispatcher, logger, OpPlayerJoined)

	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())

		// Leaving frees the seat only while no session runs; a running
		// session keeps the seat so the participant's zones stay valid.
		if matchState.State == nil {
			if i := matchState.seatOf(p.GetUserId()); i >= 0 {
				matchState.Seats[i] = ""
				logger.Debug("MatchLeave: User %s left, seat %d freed.", p.GetUserId(), i)
			}
		}
	}

	if matchState.OwnerSeat >= 0 && matchState.Seats[matchState.OwnerSeat] == "" {
		matchState.OwnerSeat = -1
		for i, seatUserID := range matchState.Seats {
			if seatUserID != "" {
				matchState.OwnerSeat = i
				break
			}
		}
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating empty match.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastSeating(matchState, dispatcher, logger, OpPlayerLeft)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		fields, err := unmarshalPayload(msg.GetData())
		if err != nil {
			logger.Warn("MatchLoop: Invalid payload from %s: %v", msg.GetUserId(), err)
			continue
		}
		switch msg.GetOpCode() {
		case OpStartSession:
			mh.handleStartSession(ctx, matchState, dispatcher, logger, msg.GetUserId(), fields)
		case OpDrawCards:
			mh.handleDrawCards(ctx, matchState, dispatcher, logger, msg.GetUserId(), fields)
		case OpPlayCard:
			mh.handlePlayCard(matchState, dispatcher, logger, msg.GetUserId(), fields)
		case OpRevealCard:
			mh.handleRevealCard(matchState, dispatcher, logger, msg.GetUserId(), fields)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	return matchState
}

func (mh *matchHandler) handleStartSession(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, senderID string, fields map[string]any) {
	senderSeat := state.seatOf(senderID)

	if senderSeat != state.OwnerSeat {
		logger.Warn("StartSession: User %s tried to start but is not owner (owner_seat=%d)", senderID, state.OwnerSeat)
		mh.sendError(state, dispatcher, logger, senderID, 403, "only the owner can start the session")
		return
	}
	if state.State != nil {
		mh.sendError(state, dispatcher, logger, senderID, 409, "session already running")
		return
	}

	seedHex, _ := fields["seed_hex"].(string)
	seed, err := hex.DecodeString(seedHex)
	if err != nil || len(seed) == 0 {
		mh.sendError(state, dispatcher, logger, senderID, 400, "seed_hex must carry the consensus beacon output")
		return
	}

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	sessionID := uuid.NewSHA1(uuid.NameSpaceURL, []byte("cardroom:"+matchID))

	svc := app.NewService(newBeaconSeedSource(seed), config.GetTableConfig())
	gameState, events, err := svc.StartSession(ctx, sessionID, state.participants())
	if err != nil {
		logger.Error("StartSession: Failed to start session: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}

	state.Svc = svc
	state.State = gameState

	mh.updateLabel(state, dispatcher, logger)
	mh.dispatchAppEvents(state, dispatcher, logger, events)
	mh.pushViews(state, dispatcher, logger)

	logger.Info("StartSession: Session %s started with %d participants.", sessionID, len(state.participants()))
}

func (mh *matchHandler) handleDrawCards(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, senderID string, fields map[string]any) {
	if state.State == nil {
		mh.sendError(state, dispatcher, logger, senderID, 409, "session not started")
		return
	}

	count, _ := fields["count"].(float64)
	if count <= 0 {
		count = 1
	}

	events, err := state.Svc.Draw(ctx, state.State, engine.Participant(senderID), int(count))
	if err != nil {
		logger.Warn("DrawCards: User %s failed to draw %d: %v", senderID, int(count), err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}

	mh.dispatchAppEvents(state, dispatcher, logger, events)
	mh.pushViews(state, dispatcher, logger)
}

func (mh *matchHandler) handlePlayCard(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, senderID string, fields map[string]any) {
	if state.State == nil {
		mh.sendError(state, dispatcher, logger, senderID, 409, "session not started")
		return
	}

	handle, _ := fields["handle"].(float64)

	events, err := state.Svc.PlayCard(state.State, engine.Participant(senderID), engine.Handle(handle))
	if err != nil {
		logger.Warn("PlayCard: User %s failed to play %v: %v", senderID, engine.Handle(handle), err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}

	mh.dispatchAppEvents(state, dispatcher, logger, events)
	mh.pushViews(state, dispatcher, logger)
}

func (mh *matchHandler) handleRevealCard(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, senderID string, fields map[string]any) {
	if state.State == nil {
		mh.sendError(state, dispatcher, logger, senderID, 409, "session not started")
		return
	}

	handle, _ := fields["handle"].(float64)
	to, _ := fields["to"].(string)
	if state.seatOf(to) < 0 {
		mh.sendError(state, dispatcher, logger, senderID, 400, "unknown reveal target")
		return
	}

	// Only the card's current holder may share it.
	hz, err := state.State.Zone(app.HandZone(engine.Participant(senderID)))
	if err != nil || !hz.Contains(engine.Handle(handle)) {
		mh.sendError(state, dispatcher, logger, senderID, 403, "card is not in your hand")
		return
	}

	events, err := state.Svc.RevealCard(state.State, engine.Handle(handle), engine.Participant(to))
	if err != nil {
		logger.Warn("RevealCard: User %s failed to reveal %v: %v", senderID, engine.Handle(handle), err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}

	mh.dispatchAppEvents(state, dispatcher, logger, events)
	mh.pushViews(state, dispatcher, logger)
}

// dispatchAppEvents converts app events to opcodes and broadcasts them,
// honoring targeted recipients. Targeted events whose recipients are not
// connected are dropped, never widened to everyone else.
func (mh *matchHandler) dispatchAppEvents(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		opCode, fields, ok := appEventMessage(ev)
		if !ok {
			logger.Warn("Unknown event kind: %v", ev.Kind)
			continue
		}
		data, err := marshalPayload(fields)
		if err != nil {
			logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
			continue
		}

		var recipients []runtime.Presence
		if len(ev.Recipients) > 0 {
			for _, p := range ev.Recipients {
				if presence, ok := state.Presences[string(p)]; ok {
					recipients = append(recipients, presence)
				}
			}
			if len(recipients) == 0 {
				continue
			}
		}

		dispatcher.BroadcastMessage(opCode, data, recipients, nil, true)
	}
}

// pushViews projects the canonical state per seated participant, sends each
// projection privately, and broadcasts the state hash for agreement checks.
func (mh *matchHandler) pushViews(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.State == nil {
		return
	}
	mh.dispatchAppEvents(state, dispatcher, logger, state.Svc.Views(state.State, state.participants()))

	data, err := marshalPayload(map[string]any{
		"seq":        float64(state.State.EventSeq()),
		"state_hash": state.State.StateHash(),
	})
	if err != nil {
		logger.Error("Failed to marshal state hash: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpStateHash, data, nil, nil, true)
}

func (mh *matchHandler) broadcastSeating(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, opCode int64) {
	seats := make([]any, len(state.Seats))
	for i, seat := range state.Seats {
		seats[i] = seat
	}
	data, err := marshalPayload(map[string]any{
		"seats":      seats,
		"owner_seat": float64(state.OwnerSeat),
		"tick":       float64(state.Tick),
	})
	if err != nil {
		logger.Error("Failed to marshal seating: %v", err)
		return
	}
	dispatcher.BroadcastMessage(opCode, data, nil, nil, true)
}

// sendError sends a session error to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	data, err := marshalPayload(map[string]any{
		"code":    float64(code),
		"message": message,
	})
	if err != nil {
		logger.Error("Failed to marshal error event: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(OpSessionError, data, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	matchState := "lobby"
	if state.State != nil {
		matchState = "playing"
	}

	label, err := marshalPayload(map[string]any{
		"open":  float64(state.GetOpenSeatsCount()),
		"state": matchState,
	})
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(label)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

// MatchSignal exposes operator queries against the running session: a full
// snapshot through the serializer boundary, or an on-demand determinism check.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok || matchState.State == nil {
		return state, ""
	}

	switch data {
	case SignalSnapshot:
		encoded, err := matchState.Codec.EncodeState(matchState.State.Snapshot())
		if err != nil {
			logger.Error("MatchSignal: Failed to encode snapshot: %v", err)
			return state, ""
		}
		return state, string(encoded)
	case SignalVerify:
		if err := matchState.State.Verify(); err != nil {
			logger.Error("MatchSignal: Determinism check failed: %v", err)
			return state, err.Error()
		}
		return state, matchState.State.StateHash()
	}
	return state, ""
}
