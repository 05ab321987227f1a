// Package protocol defines the frames exchanged between room clients and the
// server.
package protocol

import (
	"encoding/json"

	"github.com/palemoky/bill-to-law/internal/game/engine"
)

// Message is the envelope for every frame. Seq is set only on frames that
// carry an engine event; it is the room's ordering counter.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Seq     int64           `json:"seq,omitempty"`
}

// MessageType names a frame.
type MessageType string

// Client → server.
const (
	MsgJoin        MessageType = "JOIN"
	MsgRoll        MessageType = "ROLL"
	MsgResolveCard MessageType = "RESOLVE_CARD"
	MsgRename      MessageType = "RENAME"
	MsgReset       MessageType = "RESET"
	MsgResync      MessageType = "RESYNC"
	MsgPing        MessageType = "PING"
)

// Server → client, outside the event stream.
const (
	MsgJoinOK   MessageType = "JOIN_OK"
	MsgSnapshot MessageType = "SNAPSHOT"
	MsgPong     MessageType = "PONG"
)

// Server → client, one per engine event.
const (
	MsgDiceRoll      = MessageType(engine.EventDiceRoll)
	MsgMoveStep      = MessageType(engine.EventMoveStep)
	MsgLanded        = MessageType(engine.EventLanded)
	MsgCardDrawn     = MessageType(engine.EventCardDrawn)
	MsgCardApplied   = MessageType(engine.EventCardApplied)
	MsgTurnEnd       = MessageType(engine.EventTurnEnd)
	MsgTurnBegin     = MessageType(engine.EventTurnBegin)
	MsgGameEnd       = MessageType(engine.EventGameEnd)
	MsgPlayerRenamed = MessageType(engine.EventPlayerRenamed)
)

// IsEvent reports whether t is a sequenced engine event.
func (t MessageType) IsEvent() bool {
	switch t {
	case MsgDiceRoll, MsgMoveStep, MsgLanded, MsgCardDrawn, MsgCardApplied,
		MsgTurnEnd, MsgTurnBegin, MsgGameEnd, MsgPlayerRenamed:
		return true
	}
	return false
}
