// Package engine resolves turns of the board game: dice rolls, token
// movement, card draws and card effects. An Engine owns the state of exactly
// one game and reports every change through its event bus.
//
// Engine is not safe for concurrent use. Callers serialize access, and
// subscribers run synchronously inside the operation that emitted the event.
package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/palemoky/bill-to-law/internal/game/board"
)

const (
	MinPlayers     = 2
	MaxPlayers     = 6
	DefaultDieSize = 6
	maxNameLength  = 24
)

var (
	ErrGameOver        = errors.New("game is over")
	ErrCardPending     = errors.New("a drawn card is waiting to be resolved")
	ErrNoPendingCard   = errors.New("no card is pending")
	ErrInvalidPlayer   = errors.New("invalid player")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

var playerColors = []string{"#d64541", "#3a7bd5", "#2eaf6b", "#f2b632", "#8e5bb5", "#e8742f"}

// Rand is the source of dice rolls and shuffles. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Options configures a new engine. Zero values select the defaults.
type Options struct {
	Players      int
	DieSides     int
	ShuffleDecks bool
	Rand         Rand
	Logger       *zap.SugaredLogger
}

// Player is a seat at the table.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Position  int    `json:"position"`
	SkipCount int    `json:"skipCount"`
	ExtraRoll bool   `json:"extraRoll"`
}

// Deck holds the draw order and the cards already issued.
type Deck struct {
	DrawPile    []board.Card `json:"drawPile"`
	DiscardPile []board.Card `json:"discardPile"`
}

// PendingCard is a drawn card the acting player has not yet acknowledged.
type PendingCard struct {
	PlayerID string     `json:"playerId"`
	Deck     string     `json:"deck"`
	Card     board.Card `json:"card"`
}

// Engine is the mutable state of one game.
type Engine struct {
	board        *board.Board
	initialDecks map[string][]board.Card

	players   []Player
	turnIndex int
	decks     map[string]*Deck
	pending   *PendingCard
	over      bool

	rng      Rand
	dieSides int
	shuffle  bool
	log      *zap.SugaredLogger
	bus      bus
}

// New builds an engine over the given assets. Decks are copied, so assets may
// be shared between engines.
func New(assets *board.Assets, opts Options) *Engine {
	if opts.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	if opts.DieSides <= 0 {
		opts.DieSides = DefaultDieSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Players == 0 {
		opts.Players = MinPlayers
	}

	e := &Engine{
		board:        assets.Board,
		initialDecks: make(map[string][]board.Card, len(assets.Decks)),
		rng:          opts.Rand,
		dieSides:     opts.DieSides,
		shuffle:      opts.ShuffleDecks,
		log:          opts.Logger,
	}
	e.bus.log = opts.Logger

	for name, cards := range assets.Decks {
		order := append([]board.Card(nil), cards...)
		if e.shuffle {
			e.shuffleCards(order)
		}
		e.initialDecks[name] = order
	}

	e.players = makeRoster(board.Clamp(opts.Players, MinPlayers, MaxPlayers), nil)
	e.restoreDecks()
	return e
}

// Subscribe registers fn for every future event and returns a function that
// removes it.
func (e *Engine) Subscribe(fn Handler) func() {
	return e.bus.subscribe(fn)
}

func (e *Engine) emit(t EventType, payload any) {
	e.bus.publish(Event{Type: t, Payload: payload})
}

// --- turn resolution ---

// TakeTurn rolls the die for the active player and resolves the turn.
func (e *Engine) TakeTurn() error {
	return e.TakeTurnWithRoll(e.rng.IntN(e.dieSides) + 1)
}

// TakeTurnWithRoll resolves the active player's turn using roll. A negative
// roll moves the token backwards.
func (e *Engine) TakeTurnWithRoll(roll int) error {
	if e.over {
		return ErrGameOver
	}
	if e.pending != nil {
		return ErrCardPending
	}

	p := &e.players[e.turnIndex]
	e.emit(EventDiceRoll, DiceRollPayload{PlayerID: p.ID, Value: roll})

	for _, pos := range advancePosition(p.Position, roll, e.board.LastIndex()) {
		p.Position = pos
		e.emit(EventMoveStep, MoveStepPayload{PlayerID: p.ID, Position: pos})
	}

	space := e.board.Space(p.Position)
	e.emit(EventLanded, LandedPayload{PlayerID: p.ID, Position: p.Position, Space: space})

	if e.checkWin(p) {
		return nil
	}

	if space.Deck != "" {
		if card, ok := e.draw(space.Deck); ok {
			e.pending = &PendingCard{PlayerID: p.ID, Deck: space.Deck, Card: card}
			e.emit(EventCardDrawn, CardDrawnPayload{PlayerID: p.ID, Deck: space.Deck, Card: card})
			return nil
		}
	}

	e.completeTurn()
	return nil
}

// ResolvePendingCard applies the pending card to the player who drew it and
// finishes that player's turn.
func (e *Engine) ResolvePendingCard() error {
	if e.over {
		return ErrGameOver
	}
	if e.pending == nil {
		return ErrNoPendingCard
	}

	pc := *e.pending
	e.pending = nil

	idx := e.indexOf(pc.PlayerID)
	if idx < 0 {
		e.log.Warnw("pending card owner left the roster", "player", pc.PlayerID)
		e.completeTurn()
		return nil
	}

	p := &e.players[idx]
	e.applyEffect(p, pc.Card.Action())
	e.emit(EventCardApplied, CardAppliedPayload{
		PlayerID: p.ID,
		Index:    idx,
		Position: p.Position,
		Effect:   pc.Card.Effect,
	})

	if e.checkWin(p) {
		return nil
	}

	e.completeTurn()
	return nil
}

func (e *Engine) checkWin(p *Player) bool {
	if p.Position != e.board.LastIndex() {
		return false
	}
	e.over = true
	e.emit(EventGameEnd, GameEndPayload{Winners: []Player{*p}})
	return true
}

// completeTurn ends the active turn and activates the next eligible player.
func (e *Engine) completeTurn() {
	cur := &e.players[e.turnIndex]
	e.emit(EventTurnEnd, TurnPayload{PlayerID: cur.ID, Index: e.turnIndex})

	if cur.ExtraRoll {
		cur.ExtraRoll = false
	} else {
		e.turnIndex = e.nextTurn()
	}

	next := e.players[e.turnIndex]
	e.emit(EventTurnBegin, TurnPayload{PlayerID: next.ID, Index: e.turnIndex})
}

// nextTurn walks the roster from the active seat, consuming one skip from each
// player it passes over. Skip counts are finite, so the walk terminates.
func (e *Engine) nextTurn() int {
	i := e.turnIndex
	for {
		i = (i + 1) % len(e.players)
		if e.players[i].SkipCount > 0 {
			e.players[i].SkipCount--
			continue
		}
		return i
	}
}

// --- decks ---

func (e *Engine) draw(name string) (board.Card, bool) {
	d, ok := e.decks[name]
	if !ok {
		return board.Card{}, false
	}
	if len(d.DrawPile) == 0 {
		d.DrawPile, d.DiscardPile = d.DiscardPile, nil
		if e.shuffle {
			e.shuffleCards(d.DrawPile)
		}
	}
	if len(d.DrawPile) == 0 {
		return board.Card{}, false
	}

	card := d.DrawPile[0]
	d.DrawPile = d.DrawPile[1:]
	d.DiscardPile = append(d.DiscardPile, card)
	return card, true
}

func (e *Engine) restoreDecks() {
	e.decks = make(map[string]*Deck, len(e.initialDecks))
	for name, cards := range e.initialDecks {
		e.decks[name] = &Deck{DrawPile: append([]board.Card(nil), cards...)}
	}
}

func (e *Engine) shuffleCards(cards []board.Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := e.rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// --- roster ---

// SetPlayerCount resizes the roster to n players, clamped to [2,6]. Names of
// surviving seats are kept; positions, flags and the turn are reset. Whether
// the game has already started is the caller's concern.
func (e *Engine) SetPlayerCount(n int) {
	e.players = makeRoster(board.Clamp(n, MinPlayers, MaxPlayers), e.players)
	e.turnIndex = 0
	e.pending = nil
	e.over = false
}

// RenamePlayer changes the display name of seat index.
func (e *Engine) RenamePlayer(index int, name string) error {
	name = strings.TrimSpace(name)
	if index < 0 || index >= len(e.players) || name == "" {
		return ErrInvalidPlayer
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}

	e.players[index].Name = name
	e.emit(EventPlayerRenamed, PlayerRenamedPayload{Index: index, Name: name})
	return nil
}

// Reset puts every token back on the start space, restores the decks to their
// initial order and gives the first seat the turn. Any pending card is
// abandoned.
func (e *Engine) Reset() {
	for i := range e.players {
		e.players[i].Position = 0
		e.players[i].SkipCount = 0
		e.players[i].ExtraRoll = false
	}
	e.restoreDecks()
	e.turnIndex = 0
	e.pending = nil
	e.over = false

	first := e.players[0]
	e.emit(EventTurnBegin, TurnPayload{PlayerID: first.ID, Index: 0})
}

func makeRoster(n int, previous []Player) []Player {
	players := make([]Player, n)
	for i := range players {
		players[i] = Player{
			ID:    fmt.Sprintf("p%d", i+1),
			Name:  fmt.Sprintf("Player %d", i+1),
			Color: playerColors[i%len(playerColors)],
		}
		if i < len(previous) {
			players[i].Name = previous[i].Name
		}
	}
	return players
}

func (e *Engine) indexOf(playerID string) int {
	for i, p := range e.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// --- accessors ---

// TurnIndex returns the seat whose turn is active.
func (e *Engine) TurnIndex() int { return e.turnIndex }

// EndIndex returns the index of the winning space.
func (e *Engine) EndIndex() int { return e.board.LastIndex() }

// Over reports whether a player has reached the end space.
func (e *Engine) Over() bool { return e.over }

// PlayerCount returns the roster size.
func (e *Engine) PlayerCount() int { return len(e.players) }

// Players returns a copy of the roster.
func (e *Engine) Players() []Player {
	return append([]Player(nil), e.players...)
}

// PendingCard returns the card awaiting resolution, if any.
func (e *Engine) PendingCard() (PendingCard, bool) {
	if e.pending == nil {
		return PendingCard{}, false
	}
	return *e.pending, true
}
