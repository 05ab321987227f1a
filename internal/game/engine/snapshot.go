package engine

import (
	"fmt"

	"github.com/palemoky/bill-to-law/internal/game/board"
)

// Snapshot is a plain copy of everything needed to restore an engine over the
// same board.
type Snapshot struct {
	Players     []Player        `json:"players"`
	TurnIndex   int             `json:"turnIndex"`
	Decks       map[string]Deck `json:"decks"`
	PendingCard *PendingCard    `json:"pendingCard,omitempty"`
	Over        bool            `json:"over,omitempty"`
}

// Serialize returns a deep copy of the current state.
func (e *Engine) Serialize() Snapshot {
	snap := Snapshot{
		Players:   append([]Player(nil), e.players...),
		TurnIndex: e.turnIndex,
		Decks:     make(map[string]Deck, len(e.decks)),
		Over:      e.over,
	}
	for name, d := range e.decks {
		snap.Decks[name] = copyDeck(*d)
	}
	if e.pending != nil {
		pc := *e.pending
		snap.PendingCard = &pc
	}
	return snap
}

// Hydrate replaces the whole engine state with snap. Nothing from the previous
// state survives; a snapshot that violates the engine invariants is rejected
// and the engine is left unchanged.
func (e *Engine) Hydrate(snap Snapshot) error {
	if err := e.validate(snap); err != nil {
		return err
	}

	e.players = append([]Player(nil), snap.Players...)
	e.turnIndex = snap.TurnIndex
	e.decks = make(map[string]*Deck, len(snap.Decks))
	for name, d := range snap.Decks {
		cp := copyDeck(d)
		e.decks[name] = &cp
	}
	e.pending = nil
	if snap.PendingCard != nil {
		pc := *snap.PendingCard
		e.pending = &pc
	}
	e.over = snap.Over
	return nil
}

func (e *Engine) validate(snap Snapshot) error {
	n := len(snap.Players)
	if n < MinPlayers || n > MaxPlayers {
		return fmt.Errorf("%w: %d players", ErrInvalidSnapshot, n)
	}
	if snap.TurnIndex < 0 || snap.TurnIndex >= n {
		return fmt.Errorf("%w: turn index %d", ErrInvalidSnapshot, snap.TurnIndex)
	}
	last := e.board.LastIndex()
	seen := make(map[string]bool, n)
	for _, p := range snap.Players {
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate player %s", ErrInvalidSnapshot, p.ID)
		}
		seen[p.ID] = true
		if p.Position < 0 || p.Position > last {
			return fmt.Errorf("%w: player %s at %d", ErrInvalidSnapshot, p.ID, p.Position)
		}
		if p.SkipCount < 0 {
			return fmt.Errorf("%w: player %s skip count %d", ErrInvalidSnapshot, p.ID, p.SkipCount)
		}
	}
	if pc := snap.PendingCard; pc != nil {
		// Only the seat whose turn it is can hold a card.
		if snap.Over {
			return fmt.Errorf("%w: pending card after game end", ErrInvalidSnapshot)
		}
		if owner := snap.Players[snap.TurnIndex].ID; pc.PlayerID != owner {
			return fmt.Errorf("%w: pending card held by %s on %s's turn", ErrInvalidSnapshot, pc.PlayerID, owner)
		}
	}
	return nil
}

func copyDeck(d Deck) Deck {
	return Deck{
		DrawPile:    append([]board.Card(nil), d.DrawPile...),
		DiscardPile: append([]board.Card(nil), d.DiscardPile...),
	}
}
