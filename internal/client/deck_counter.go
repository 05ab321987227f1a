package client

import (
	"maps"
	"slices"

	"github.com/palemoky/bill-to-law/internal/game/engine"
)

// DeckCount is how many cards of one deck are still face down.
type DeckCount struct {
	Remaining int
	Discarded int
}

// DeckCounter tracks draw piles from the event stream
type DeckCounter struct {
	decks map[string]DeckCount
}

// NewDeckCounter creates an empty counter
func NewDeckCounter() *DeckCounter {
	return &DeckCounter{decks: make(map[string]DeckCount)}
}

// Load replaces the counts with the piles of a snapshot
func (dc *DeckCounter) Load(decks map[string]engine.Deck) {
	dc.decks = make(map[string]DeckCount, len(decks))
	for name, d := range decks {
		dc.decks[name] = DeckCount{Remaining: len(d.DrawPile), Discarded: len(d.DiscardPile)}
	}
}

// Draw records one card drawn from deck. An exhausted draw pile is
// refilled from the discards first.
func (dc *DeckCounter) Draw(deck string) {
	c := dc.decks[deck]
	if c.Remaining == 0 {
		c.Remaining, c.Discarded = c.Discarded, 0
	}
	if c.Remaining > 0 {
		c.Remaining--
		c.Discarded++
	}
	dc.decks[deck] = c
}

// Restore puts every card back into its draw pile
func (dc *DeckCounter) Restore() {
	for name, c := range dc.decks {
		dc.decks[name] = DeckCount{Remaining: c.Remaining + c.Discarded}
	}
}

// Get returns the counts for deck
func (dc *DeckCounter) Get(deck string) DeckCount {
	return dc.decks[deck]
}

// Names returns the known decks in sorted order
func (dc *DeckCounter) Names() []string {
	return slices.Sorted(maps.Keys(dc.decks))
}
