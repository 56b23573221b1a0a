package nakama

const (
	// MatchNameCardroom is the authoritative match handler name registered with Nakama.
	MatchNameCardroom = "cardroom_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartSession int64 = 1
	OpDrawCards    int64 = 2
	OpPlayCard     int64 = 3
	OpRevealCard   int64 = 4

	// Server -> Client events
	OpPlayerJoined   int64 = 101
	OpPlayerLeft     int64 = 102
	OpSessionStarted int64 = 103
	OpHandDealt      int64 = 104 // send privately
	OpCardsDrawn     int64 = 105
	OpCardPlayed     int64 = 106
	OpCardRevealed   int64 = 107 // send privately
	OpDeckReshuffled int64 = 108
	OpViewUpdated    int64 = 109 // send privately, one projection per participant
	OpStateHash      int64 = 110
	OpSessionError   int64 = 111
)

// Match signals for operator tooling.
const (
	SignalSnapshot = "snapshot"
	SignalVerify   = "verify"
)
