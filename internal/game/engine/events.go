package engine

import "github.com/palemoky/bill-to-law/internal/game/board"

// EventType names an engine event. The values double as wire message types.
type EventType string

const (
	EventDiceRoll      EventType = "DICE_ROLL"
	EventMoveStep      EventType = "MOVE_STEP"
	EventLanded        EventType = "LANDED"
	EventCardDrawn     EventType = "CARD_DRAWN"
	EventCardApplied   EventType = "CARD_APPLIED"
	EventTurnEnd       EventType = "TURN_END"
	EventTurnBegin     EventType = "TURN_BEGIN"
	EventGameEnd       EventType = "GAME_END"
	EventPlayerRenamed EventType = "PLAYER_RENAMED"
)

// Event is one step of observable progress. Payload is one of the *Payload
// types below, by value.
type Event struct {
	Type    EventType
	Payload any
}

type DiceRollPayload struct {
	PlayerID string `json:"playerId"`
	Value    int    `json:"value"`
}

type MoveStepPayload struct {
	PlayerID string `json:"playerId"`
	Position int    `json:"position"`
}

type LandedPayload struct {
	PlayerID string      `json:"playerId"`
	Position int         `json:"position"`
	Space    board.Space `json:"space"`
}

type CardDrawnPayload struct {
	PlayerID string     `json:"playerId"`
	Deck     string     `json:"deck"`
	Card     board.Card `json:"card"`
}

// CardAppliedPayload reports where the acting player ended up after the
// card's effect.
type CardAppliedPayload struct {
	PlayerID string `json:"playerId"`
	Index    int    `json:"index"`
	Position int    `json:"position"`
	Effect   string `json:"effect,omitempty"`
}

// TurnPayload is shared by TURN_END and TURN_BEGIN.
type TurnPayload struct {
	PlayerID string `json:"playerId"`
	Index    int    `json:"index"`
}

type GameEndPayload struct {
	Winners []Player `json:"winners"`
}

type PlayerRenamedPayload struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}
