package board

import (
	"fmt"
	"strconv"
	"strings"
)

// EffectKind tags the variant held by an Effect.
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectMissTurn
	EffectExtraRoll
	EffectMoveBy
	EffectMoveStart
	EffectMoveEnd
	EffectPingPong
	EffectMovePrevious
	EffectMoveNearest
)

// Effect is a card command parsed from its colon-delimited text form.
// Steps is set for EffectMoveBy, Stage for EffectMovePrevious and
// EffectMoveNearest.
type Effect struct {
	Kind  EffectKind
	Steps int
	Stage Stage
}

// ParseEffect understands:
//
//	miss_turn | extra_roll | pingpong
//	move:<N> | move:start | move:end
//	move:previous:<stage> | move:nearest:<stage>
//
// Matching is case-insensitive. A stage name that does not exist is kept
// as-is and matches no space, so move:previous lands on the start space and
// move:nearest stays put. Anything else yields EffectNone.
func ParseEffect(s string) Effect {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), ":")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch parts[0] {
	case "miss_turn":
		if len(parts) == 1 {
			return Effect{Kind: EffectMissTurn}
		}
	case "extra_roll":
		if len(parts) == 1 {
			return Effect{Kind: EffectExtraRoll}
		}
	case "pingpong":
		if len(parts) == 1 {
			return Effect{Kind: EffectPingPong}
		}
	case "move":
		return parseMove(parts[1:])
	}
	return Effect{}
}

func parseMove(args []string) Effect {
	switch len(args) {
	case 1:
		switch args[0] {
		case "start":
			return Effect{Kind: EffectMoveStart}
		case "end":
			return Effect{Kind: EffectMoveEnd}
		}
		if n, err := strconv.Atoi(args[0]); err == nil {
			return Effect{Kind: EffectMoveBy, Steps: n}
		}
	case 2:
		st, _ := ParseStage(args[1])
		switch args[0] {
		case "previous":
			return Effect{Kind: EffectMovePrevious, Stage: st}
		case "nearest":
			return Effect{Kind: EffectMoveNearest, Stage: st}
		}
	}
	return Effect{}
}

// String renders the effect back into the card grammar.
func (e Effect) String() string {
	switch e.Kind {
	case EffectMissTurn:
		return "miss_turn"
	case EffectExtraRoll:
		return "extra_roll"
	case EffectMoveBy:
		return fmt.Sprintf("move:%d", e.Steps)
	case EffectMoveStart:
		return "move:start"
	case EffectMoveEnd:
		return "move:end"
	case EffectPingPong:
		return "pingpong"
	case EffectMovePrevious:
		return "move:previous:" + string(e.Stage)
	case EffectMoveNearest:
		return "move:nearest:" + string(e.Stage)
	default:
		return ""
	}
}
