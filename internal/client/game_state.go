package client

import (
	"fmt"

	"github.com/palemoky/bill-to-law/internal/game/board"
	"github.com/palemoky/bill-to-law/internal/game/engine"
	"github.com/palemoky/bill-to-law/internal/protocol"
)

// Room phases as the server reports them.
const (
	PhaseTurnBegin   = "TURN_BEGIN"
	PhaseRolling     = "ROLLING"
	PhaseMoving      = "MOVING"
	PhaseCardPending = "CARD_PENDING"
	PhaseEnded       = "ENDED"
)

const maxLogLines = 8

// GameState manages client-side game state. It is seeded by JOIN_OK or
// SNAPSHOT and then driven only by the ordered event stream, so it must be
// fed frames the network client already sequenced.
type GameState struct {
	RoomCode string
	You      int
	EndIndex int
	Phase    string
	Seq      int64
	Joined   bool

	Players     []engine.Player
	TurnIndex   int
	PendingCard *engine.PendingCard
	Over        bool
	Winners     []engine.Player

	LastRoll   int
	LastRoller string

	// Squares seen in LANDED events; the board itself is not sent.
	Spaces map[int]board.Space

	// Recent events, oldest first
	Log []string

	Decks *DeckCounter

	prev protocol.MessageType
}

// NewGameState creates a new game state
func NewGameState() *GameState {
	return &GameState{Decks: NewDeckCounter(), Spaces: make(map[int]board.Space)}
}

// Reset clears all game state
func (gs *GameState) Reset() {
	*gs = *NewGameState()
}

// Load replaces the mirror with a full server state.
func (gs *GameState) Load(p *protocol.JoinOKPayload) {
	if p.RoomCode != gs.RoomCode {
		gs.Spaces = make(map[int]board.Space)
		gs.Log = nil
	}
	gs.RoomCode = p.RoomCode
	gs.You = p.You
	gs.EndIndex = p.EndIndex
	gs.Phase = p.Phase
	gs.Seq = p.Seq
	gs.Joined = true

	gs.Players = append([]engine.Player(nil), p.State.Players...)
	gs.TurnIndex = p.State.TurnIndex
	gs.PendingCard = nil
	if p.State.PendingCard != nil {
		pc := *p.State.PendingCard
		gs.PendingCard = &pc
	}
	gs.Over = p.State.Over
	gs.Winners = nil
	gs.Decks.Load(p.State.Decks)
	gs.prev = ""
}

// Apply folds one frame into the mirror. Frames that do not carry state
// are ignored.
func (gs *GameState) Apply(msg *protocol.Message) error {
	switch msg.Type {
	case protocol.MsgJoinOK, protocol.MsgSnapshot:
		p, err := protocol.ParsePayload[protocol.JoinOKPayload](msg)
		if err != nil {
			return fmt.Errorf("%s: %w", msg.Type, err)
		}
		gs.Load(p)
		return nil
	}
	if !msg.Type.IsEvent() {
		return nil
	}

	if err := gs.applyEvent(msg); err != nil {
		return fmt.Errorf("%s #%d: %w", msg.Type, msg.Seq, err)
	}
	gs.Phase = nextPhase(gs.Phase, msg.Type)
	if msg.Seq > gs.Seq {
		gs.Seq = msg.Seq
	}
	gs.prev = msg.Type
	return nil
}

func (gs *GameState) applyEvent(msg *protocol.Message) error {
	switch msg.Type {
	case protocol.MsgDiceRoll:
		p, err := protocol.ParsePayload[engine.DiceRollPayload](msg)
		if err != nil {
			return err
		}
		gs.LastRoll = p.Value
		gs.LastRoller = p.PlayerID
		gs.logf("%s rolled %d", gs.nameOf(p.PlayerID), p.Value)

	case protocol.MsgMoveStep:
		p, err := protocol.ParsePayload[engine.MoveStepPayload](msg)
		if err != nil {
			return err
		}
		gs.moveTo(p.PlayerID, p.Position)

	case protocol.MsgLanded:
		p, err := protocol.ParsePayload[engine.LandedPayload](msg)
		if err != nil {
			return err
		}
		gs.moveTo(p.PlayerID, p.Position)
		gs.Spaces[p.Position] = p.Space
		gs.logf("%s landed on %d (%s)", gs.nameOf(p.PlayerID), p.Position, p.Space.Stage)

	case protocol.MsgCardDrawn:
		p, err := protocol.ParsePayload[engine.CardDrawnPayload](msg)
		if err != nil {
			return err
		}
		gs.PendingCard = &engine.PendingCard{PlayerID: p.PlayerID, Deck: p.Deck, Card: p.Card}
		gs.Decks.Draw(p.Deck)
		gs.logf("%s drew %q", gs.nameOf(p.PlayerID), p.Card.Title)

	case protocol.MsgCardApplied:
		p, err := protocol.ParsePayload[engine.CardAppliedPayload](msg)
		if err != nil {
			return err
		}
		gs.PendingCard = nil
		if pl := gs.player(p.Index); pl != nil {
			pl.Position = p.Position
			switch board.ParseEffect(p.Effect).Kind {
			case board.EffectMissTurn:
				pl.SkipCount++
			case board.EffectExtraRoll:
				pl.ExtraRoll = true
			}
		}
		gs.logf("%s: %s", gs.nameOf(p.PlayerID), p.Effect)

	case protocol.MsgTurnEnd:
		gs.PendingCard = nil

	case protocol.MsgTurnBegin:
		p, err := protocol.ParsePayload[engine.TurnPayload](msg)
		if err != nil {
			return err
		}
		// Only a reset begins a turn without ending one.
		if gs.prev == protocol.MsgTurnEnd {
			gs.advanceTurn()
		} else {
			gs.restart()
		}
		gs.TurnIndex = p.Index
		gs.logf("%s's turn", gs.nameOf(p.PlayerID))

	case protocol.MsgGameEnd:
		p, err := protocol.ParsePayload[engine.GameEndPayload](msg)
		if err != nil {
			return err
		}
		gs.Over = true
		gs.Winners = p.Winners
		for _, w := range p.Winners {
			gs.moveTo(w.ID, w.Position)
			gs.logf("%s wins", w.Name)
		}

	case protocol.MsgPlayerRenamed:
		p, err := protocol.ParsePayload[engine.PlayerRenamedPayload](msg)
		if err != nil {
			return err
		}
		if pl := gs.player(p.Index); pl != nil {
			pl.Name = p.Name
		}
	}
	return nil
}

// advanceTurn replays the engine's seat walk so skip counts and extra rolls
// stay in step; the server's index still wins.
func (gs *GameState) advanceTurn() {
	n := len(gs.Players)
	cur := gs.player(gs.TurnIndex)
	if n == 0 || cur == nil {
		return
	}
	if cur.ExtraRoll {
		cur.ExtraRoll = false
		return
	}

	limit := n
	for _, p := range gs.Players {
		limit += p.SkipCount
	}
	i := gs.TurnIndex
	for range limit {
		i = (i + 1) % n
		if gs.Players[i].SkipCount > 0 {
			gs.Players[i].SkipCount--
			continue
		}
		return
	}
}

func (gs *GameState) restart() {
	for i := range gs.Players {
		gs.Players[i].Position = 0
		gs.Players[i].SkipCount = 0
		gs.Players[i].ExtraRoll = false
	}
	gs.PendingCard = nil
	gs.Over = false
	gs.Winners = nil
	gs.LastRoll = 0
	gs.LastRoller = ""
	gs.Decks.Restore()
	gs.logf("game reset")
}

func nextPhase(cur string, t protocol.MessageType) string {
	switch t {
	case protocol.MsgGameEnd:
		return PhaseEnded
	case protocol.MsgTurnBegin:
		return PhaseTurnBegin
	}
	if cur == PhaseEnded {
		return cur
	}
	switch t {
	case protocol.MsgDiceRoll:
		return PhaseRolling
	case protocol.MsgMoveStep:
		return PhaseMoving
	case protocol.MsgCardDrawn:
		return PhaseCardPending
	case protocol.MsgCardApplied:
		return PhaseTurnBegin
	}
	return cur
}

// --- queries ---

// Me returns the local seat.
func (gs *GameState) Me() (engine.Player, bool) {
	if p := gs.player(gs.You); p != nil {
		return *p, true
	}
	return engine.Player{}, false
}

func (gs *GameState) IsMyTurn() bool {
	return gs.Joined && gs.TurnIndex == gs.You
}

// CanRoll mirrors the server's ROLL gate.
func (gs *GameState) CanRoll() bool {
	return gs.IsMyTurn() && !gs.Over && gs.Phase == PhaseTurnBegin
}

// CanResolve mirrors the server's RESOLVE_CARD gate.
func (gs *GameState) CanResolve() bool {
	return gs.IsMyTurn() && gs.Phase == PhaseCardPending
}

// PlayersAt returns the seats whose token is on space pos.
func (gs *GameState) PlayersAt(pos int) []engine.Player {
	var out []engine.Player
	for _, p := range gs.Players {
		if p.Position == pos {
			out = append(out, p)
		}
	}
	return out
}

func (gs *GameState) player(index int) *engine.Player {
	if index < 0 || index >= len(gs.Players) {
		return nil
	}
	return &gs.Players[index]
}

func (gs *GameState) moveTo(id string, pos int) {
	for i := range gs.Players {
		if gs.Players[i].ID == id {
			gs.Players[i].Position = pos
			return
		}
	}
}

func (gs *GameState) nameOf(id string) string {
	for _, p := range gs.Players {
		if p.ID == id {
			return p.Name
		}
	}
	return id
}

func (gs *GameState) logf(format string, args ...any) {
	gs.Log = append(gs.Log, fmt.Sprintf(format, args...))
	if len(gs.Log) > maxLogLines {
		gs.Log = gs.Log[len(gs.Log)-maxLogLines:]
	}
}
