package protocol

import "github.com/palemoky/bill-to-law/internal/game/engine"

// --- client requests ---

// JoinPayload attaches the socket to a room, creating it on first use.
// PlayerCount only matters when the room is created.
type JoinPayload struct {
	RoomCode    string `json:"roomCode"`
	AsIndex     *int   `json:"asIndex,omitempty"`
	PlayerCount *int   `json:"playerCount,omitempty"`
}

type RenamePayload struct {
	Index *int   `json:"index"`
	Name  string `json:"name"`
}

// ResyncPayload asks for every event after SinceSeq.
type ResyncPayload struct {
	SinceSeq int64 `json:"sinceSeq"`
}

type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // client clock, ms
}

// --- server responses ---

// JoinOKPayload is the full state a client reconciles from. Seq is the last
// event sequence number already reflected in State.
type JoinOKPayload struct {
	RoomCode string          `json:"roomCode"`
	You      int             `json:"you"`
	State    engine.Snapshot `json:"state"`
	EndIndex int             `json:"endIndex"`
	Seq      int64           `json:"seq"`
	Phase    string          `json:"phase"`
}

type PongPayload struct {
	ClientTimestamp int64 `json:"clientTimestamp"`
	ServerTimestamp int64 `json:"serverTimestamp"`
}
