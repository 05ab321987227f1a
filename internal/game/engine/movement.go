package engine

import "github.com/palemoky/bill-to-law/internal/game/board"

// advancePosition returns every intermediate position visited when moving
// steps spaces from from, in order. Movement stops at either end of the
// board, so the path never leaves [0, last] and never repeats a position.
func advancePosition(from, steps, last int) []int {
	dir := 1
	if steps < 0 {
		dir, steps = -1, -steps
	}

	path := make([]int, 0, steps)
	pos := from
	for range steps {
		next := board.Clamp(pos+dir, 0, last)
		if next == pos {
			break
		}
		pos = next
		path = append(path, pos)
	}
	return path
}

func (e *Engine) applyEffect(p *Player, eff board.Effect) {
	last := e.board.LastIndex()

	switch eff.Kind {
	case board.EffectMissTurn:
		p.SkipCount++
	case board.EffectExtraRoll:
		p.ExtraRoll = true
	case board.EffectMoveBy:
		p.Position = board.Clamp(p.Position+eff.Steps, 0, last)
	case board.EffectMoveStart:
		p.Position = 0
	case board.EffectMoveEnd:
		p.Position = last
	case board.EffectPingPong:
		prev, ok := e.board.Space(p.Position).Stage.Previous()
		if !ok {
			return
		}
		p.Position = e.previousOfStage(p.Position, prev)
	case board.EffectMovePrevious:
		p.Position = e.previousOfStage(p.Position, eff.Stage)
	case board.EffectMoveNearest:
		if pos, ok := e.nearestOfStage(p.Position, eff.Stage); ok {
			p.Position = pos
		}
	default:
		// Unrecognized or empty effects leave the player untouched.
	}
}

// previousOfStage finds the closest space strictly before from with the given
// stage, or the start space when there is none.
func (e *Engine) previousOfStage(from int, st board.Stage) int {
	for i := from - 1; i >= 0; i-- {
		if e.board.Spaces[i].Stage == st {
			return i
		}
	}
	return 0
}

// nearestOfStage searches backwards from (and including) from, then forwards.
func (e *Engine) nearestOfStage(from int, st board.Stage) (int, bool) {
	for i := from; i >= 0; i-- {
		if e.board.Spaces[i].Stage == st {
			return i, true
		}
	}
	for i := from + 1; i < len(e.board.Spaces); i++ {
		if e.board.Spaces[i].Stage == st {
			return i, true
		}
	}
	return 0, false
}
