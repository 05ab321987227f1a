// Package board describes the static layout of a game: the ordered list of
// spaces a token travels along and the card decks some of them draw from.
package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

// Asset file layout inside an asset filesystem.
const (
	BoardFile = "board.json"
	CardsDir  = "cards"
)

var (
	ErrEmptyBoard   = errors.New("board has no spaces")
	ErrSpaceIndex   = errors.New("space indices must run 0..n-1 without gaps")
	ErrUnknownStage = errors.New("unknown stage")
)

// Space is one square on the board. X and Y are rendering coordinates; the
// engine never looks at them.
type Space struct {
	Index int     `json:"index"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Stage Stage   `json:"stage"`
	Deck  string  `json:"deck,omitempty"`
}

// Board is the immutable list of spaces, ordered by index.
type Board struct {
	Spaces []Space `json:"spaces"`
}

// LastIndex returns the index of the final space.
func (b *Board) LastIndex() int {
	return len(b.Spaces) - 1
}

// Space returns the space at i, clamped to the board.
func (b *Board) Space(i int) Space {
	return b.Spaces[Clamp(i, 0, b.LastIndex())]
}

// DeckNames returns the distinct deck names referenced by spaces, sorted.
func (b *Board) DeckNames() []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, s := range b.Spaces {
		if s.Deck == "" || seen[s.Deck] {
			continue
		}
		seen[s.Deck] = true
		names = append(names, s.Deck)
	}
	sort.Strings(names)
	return names
}

// Validate checks the structural invariants the engine relies on. Whether the
// end stage sits on the last space is left to the content author.
func (b *Board) Validate() error {
	if len(b.Spaces) == 0 {
		return ErrEmptyBoard
	}
	for i, s := range b.Spaces {
		if s.Index != i {
			return fmt.Errorf("%w: position %d has index %d", ErrSpaceIndex, i, s.Index)
		}
		if !s.Stage.Valid() {
			return fmt.Errorf("%w %q on space %d", ErrUnknownStage, s.Stage, i)
		}
	}
	return nil
}

// Assets is everything a room needs to build an engine.
type Assets struct {
	Board *Board
	Decks map[string][]Card
}

// Load reads board.json and one cards/<deck>.json per deck the board names.
// Any missing or invalid file fails the whole load.
func Load(fsys fs.FS) (*Assets, error) {
	data, err := fs.ReadFile(fsys, BoardFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", BoardFile, err)
	}

	var b Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse %s: %w", BoardFile, err)
	}
	sort.SliceStable(b.Spaces, func(i, j int) bool { return b.Spaces[i].Index < b.Spaces[j].Index })
	if err := b.Validate(); err != nil {
		return nil, err
	}

	decks := make(map[string][]Card)
	for _, name := range b.DeckNames() {
		file := path.Join(CardsDir, name+".json")
		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read deck %q: %w", name, err)
		}
		var cards []Card
		if err := json.Unmarshal(raw, &cards); err != nil {
			return nil, fmt.Errorf("parse deck %q: %w", name, err)
		}
		decks[name] = cards
	}

	return &Assets{Board: &b, Decks: decks}, nil
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
