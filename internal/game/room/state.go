package room

import "github.com/palemoky/bill-to-law/internal/game/engine"

// Phase 房间阶段，只由观察到的引擎事件推进
type Phase string

const (
	PhaseTurnBegin   Phase = "TURN_BEGIN"
	PhaseRolling     Phase = "ROLLING"
	PhaseMoving      Phase = "MOVING"
	PhaseCardPending Phase = "CARD_PENDING"
	PhaseEnded       Phase = "ENDED"
)

// nextPhase returns the phase after observing ev. Events that do not drive a
// transition leave the phase unchanged; ENDED is left only by TURN_BEGIN,
// which a reset emits.
func nextPhase(cur Phase, ev engine.EventType) Phase {
	switch ev {
	case engine.EventGameEnd:
		return PhaseEnded
	case engine.EventTurnBegin:
		return PhaseTurnBegin
	}
	if cur == PhaseEnded {
		return cur
	}
	switch ev {
	case engine.EventDiceRoll:
		return PhaseRolling
	case engine.EventMoveStep:
		return PhaseMoving
	case engine.EventCardDrawn:
		return PhaseCardPending
	case engine.EventCardApplied:
		return PhaseTurnBegin
	}
	return cur
}
