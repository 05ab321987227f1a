package board

import (
	"encoding/json"
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEffect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Effect
	}{
		{"miss_turn", Effect{Kind: EffectMissTurn}},
		{"MISS_TURN", Effect{Kind: EffectMissTurn}},
		{"extra_roll", Effect{Kind: EffectExtraRoll}},
		{"pingpong", Effect{Kind: EffectPingPong}},
		{"move:3", Effect{Kind: EffectMoveBy, Steps: 3}},
		{"move:-2", Effect{Kind: EffectMoveBy, Steps: -2}},
		{"move:+4", Effect{Kind: EffectMoveBy, Steps: 4}},
		{"Move:Start", Effect{Kind: EffectMoveStart}},
		{"move:end", Effect{Kind: EffectMoveEnd}},
		{"move:previous:early", Effect{Kind: EffectMovePrevious, Stage: StageEarly}},
		{"move:nearest:Lords", Effect{Kind: EffectMoveNearest, Stage: StageLords}},
		{" move : previous : commons ", Effect{Kind: EffectMovePrevious, Stage: StageCommons}},
		{"move:previous:senate", Effect{Kind: EffectMovePrevious, Stage: Stage("senate")}},
		{"move:nearest:senate", Effect{Kind: EffectMoveNearest, Stage: Stage("senate")}},
		{"move:pingpong", Effect{}},
		{"move:backwards:early", Effect{}},
		{"move:sideways", Effect{}},
		{"move", Effect{}},
		{"miss_turn:2", Effect{}},
		{"teleport", Effect{}},
		{"", Effect{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseEffect(tt.in))
		})
	}
}

func TestEffect_StringRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"miss_turn", "extra_roll", "pingpong", "move:-3", "move:start", "move:end", "move:previous:lords", "move:nearest:early"} {
		assert.Equal(t, s, ParseEffect(s).String())
	}
	assert.Equal(t, "", Effect{}.String())
}

func TestStage_Previous(t *testing.T) {
	t.Parallel()

	_, ok := StageStart.Previous()
	assert.False(t, ok)

	prev, ok := StageLords.Previous()
	assert.True(t, ok)
	assert.Equal(t, StageCommons, prev)

	prev, ok = StageEnd.Previous()
	assert.True(t, ok)
	assert.Equal(t, StageImplementation, prev)
}

func TestCard_UnmarshalParsesEffect(t *testing.T) {
	t.Parallel()

	var cards []Card
	err := json.Unmarshal([]byte(`[{"id":"c1","title":"Filibuster","text":"Lose a turn","effect":"miss_turn"},{"id":7,"title":"Fast track","effect":"move:2"}]`), &cards)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, "c1", cards[0].ID)
	assert.Equal(t, EffectMissTurn, cards[0].Action().Kind)
	assert.Equal(t, "7", cards[1].ID)
	assert.Equal(t, Effect{Kind: EffectMoveBy, Steps: 2}, cards[1].Action())
}

func TestLoad(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"board.json": {Data: []byte(`{"spaces":[
			{"index":2,"x":30,"y":10,"stage":"commons","deck":"debate"},
			{"index":0,"x":10,"y":10,"stage":"Start"},
			{"index":1,"x":20,"y":10,"stage":"early","deck":"committee"},
			{"index":3,"x":40,"y":10,"stage":"end"}
		]}`)},
		"cards/debate.json":    {Data: []byte(`[{"id":"d1","title":"Amendment","text":"","effect":"move:-1"}]`)},
		"cards/committee.json": {Data: []byte(`[{"id":"k1","title":"Stalled","text":"","effect":"miss_turn"},{"id":"k2","title":"Nothing","text":"","effect":""}]`)},
	}

	assets, err := Load(fsys)
	require.NoError(t, err)

	assert.Equal(t, 3, assets.Board.LastIndex())
	assert.Equal(t, StageStart, assets.Board.Spaces[0].Stage)
	assert.Equal(t, "debate", assets.Board.Spaces[2].Deck)
	assert.Equal(t, []string{"committee", "debate"}, assets.Board.DeckNames())
	assert.Len(t, assets.Decks["committee"], 2)
	assert.Equal(t, EffectMoveBy, assets.Decks["debate"][0].Action().Kind)
}

func TestLoad_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{"missing board", fstest.MapFS{}},
		{"invalid json", fstest.MapFS{"board.json": {Data: []byte(`{"spaces":`)}}},
		{"empty board", fstest.MapFS{"board.json": {Data: []byte(`{"spaces":[]}`)}}},
		{"gap in indices", fstest.MapFS{"board.json": {Data: []byte(`{"spaces":[{"index":0,"stage":"start"},{"index":2,"stage":"end"}]}`)}}},
		{"unknown stage", fstest.MapFS{"board.json": {Data: []byte(`{"spaces":[{"index":0,"stage":"senate"}]}`)}}},
		{"missing deck", fstest.MapFS{"board.json": {Data: []byte(`{"spaces":[{"index":0,"stage":"start","deck":"ghost"}]}`)}}},
		{"bad deck", fstest.MapFS{
			"board.json":     {Data: []byte(`{"spaces":[{"index":0,"stage":"start","deck":"bad"}]}`)},
			"cards/bad.json": {Data: []byte(`{"not":"a list"}`)},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assets, err := Load(tt.fsys)
			assert.Error(t, err)
			assert.Nil(t, assets)
		})
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, Clamp(-4, 0, 9))
	assert.Equal(t, 9, Clamp(12, 0, 9))
	assert.Equal(t, 5, Clamp(5, 0, 9))
}

func TestLoad_BundledAssets(t *testing.T) {
	t.Parallel()

	assets, err := Load(os.DirFS("../../../assets"))
	require.NoError(t, err)

	b := assets.Board
	assert.Equal(t, StageStart, b.Space(0).Stage)
	assert.Equal(t, StageEnd, b.Space(b.LastIndex()).Stage)
	require.NotEmpty(t, b.DeckNames())
	for _, name := range b.DeckNames() {
		cards := assets.Decks[name]
		require.NotEmpty(t, cards, "deck %s", name)
		for _, c := range cards {
			assert.NotEqual(t, EffectNone, c.Action().Kind, "%s/%s has an unknown effect %q", name, c.ID, c.Effect)
		}
	}
}
