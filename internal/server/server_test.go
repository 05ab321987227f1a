package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/palemoky/bill-to-law/internal/config"
	"github.com/palemoky/bill-to-law/internal/game/board"
	"github.com/palemoky/bill-to-law/internal/game/engine"
	"github.com/palemoky/bill-to-law/internal/protocol"
	"github.com/palemoky/bill-to-law/internal/protocol/codec"
)

// testAssets is a ten space track; space 2 draws from "committee" when
// withDeck is set.
func testAssets(withDeck bool) *board.Assets {
	b := &board.Board{Spaces: make([]board.Space, 10)}
	for i := range b.Spaces {
		st := board.StageCommons
		switch i {
		case 0:
			st = board.StageStart
		case 9:
			st = board.StageEnd
		}
		b.Spaces[i] = board.Space{Index: i, Stage: st}
	}
	decks := map[string][]board.Card{}
	if withDeck {
		b.Spaces[2].Deck = "committee"
		decks["committee"] = []board.Card{board.NewCard("c1", "Referred", "", "extra_roll")}
	}
	return &board.Assets{Board: b, Decks: decks}
}

type scriptedRand struct {
	mu    sync.Mutex
	rolls []int
	next  int
}

func (r *scriptedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.rolls[r.next%len(r.rolls)] - 1
	r.next++
	return v % n
}

type testEnv struct {
	srv *Server
	ts  *httptest.Server
}

func newTestEnv(t *testing.T, assets *board.Assets, rolls []int, mutate func(*config.Config), opts ...Option) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Redis.Addr = ""
	cfg.Game.DieSides = 12
	cfg.Game.ShuffleDecks = false
	cfg.Security.RateLimit.MaxPerSecond = 100
	cfg.Security.MessageLimit.MaxPerSecond = 100
	if mutate != nil {
		mutate(cfg)
	}

	opts = append([]Option{
		WithAssetSource(func() (*board.Assets, error) { return assets, nil }),
		WithRand(func() engine.Rand { return &scriptedRand{rolls: rolls} }),
		WithLogger(zap.NewNop().Sugar()),
	}, opts...)
	srv, err := NewServer(cfg, opts...)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})
	return &testEnv{srv: srv, ts: ts}
}

type wsClient struct {
	t     *testing.T
	conn  *websocket.Conn
	codec codec.Codec
}

func (e *testEnv) dial(t *testing.T, query string, header http.Header) (*wsClient, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, resp, err
	}
	t.Cleanup(func() { _ = conn.Close() })

	cdc := codec.JSON
	if strings.Contains(query, "binary") {
		cdc = codec.Binary
	}
	return &wsClient{t: t, conn: conn, codec: cdc}, resp, nil
}

func (e *testEnv) mustDial(t *testing.T) *wsClient {
	t.Helper()
	c, _, err := e.dial(t, "", nil)
	require.NoError(t, err)
	return c
}

func (c *wsClient) send(msgType protocol.MessageType, payload any) {
	c.t.Helper()
	msg := protocol.MustNewMessage(msgType, payload)
	data, err := c.codec.Encode(msg)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(c.codec.FrameType(), data))
}

func (c *wsClient) read() *protocol.Message {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	frameType, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	require.Equal(c.t, c.codec.FrameType(), frameType)
	var msg protocol.Message
	require.NoError(c.t, c.codec.Decode(data, &msg))
	return &msg
}

// readUntil collects frames up to and including the first of type t.
func (c *wsClient) readUntil(t protocol.MessageType) []*protocol.Message {
	c.t.Helper()
	var out []*protocol.Message
	for {
		msg := c.read()
		out = append(out, msg)
		if msg.Type == t {
			return out
		}
	}
}

// expectNothingBeforePong proves earlier frames were dropped: the next frame
// after a PING must be its PONG.
func (c *wsClient) expectNothingBeforePong() {
	c.t.Helper()
	c.send(protocol.MsgPing, protocol.PingPayload{Timestamp: 42})
	msg := c.read()
	require.Equal(c.t, protocol.MsgPong, msg.Type)
	p, err := protocol.ParsePayload[protocol.PongPayload](msg)
	require.NoError(c.t, err)
	assert.Equal(c.t, int64(42), p.ClientTimestamp)
	assert.Positive(c.t, p.ServerTimestamp)
}

func (c *wsClient) join(code string, asIndex *int) *protocol.JoinOKPayload {
	c.t.Helper()
	c.send(protocol.MsgJoin, protocol.JoinPayload{RoomCode: code, AsIndex: asIndex})
	msg := c.read()
	require.Equal(c.t, protocol.MsgJoinOK, msg.Type)
	p, err := protocol.ParsePayload[protocol.JoinOKPayload](msg)
	require.NoError(c.t, err)
	return p
}

func seat(i int) *int { return &i }

func TestServer_JoinAssignsCurrentTurn(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testAssets(false), []int{1}, nil)
	a := env.mustDial(t)
	b := env.mustDial(t)

	pa := a.join("room-1", nil)
	pb := b.join("room-1", nil)
	assert.Equal(t, 0, pa.You)
	assert.Equal(t, 0, pb.You)
	assert.Equal(t, 9, pa.EndIndex)
	assert.Equal(t, int64(0), pb.Seq)
	assert.Equal(t, "TURN_BEGIN", pb.Phase)
	assert.Equal(t, 1, env.srv.roomManager.Count())
}

func TestServer_GameToEnd(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testAssets(false), []int{9}, nil)
	a := env.mustDial(t)
	b := env.mustDial(t)
	a.join("finale", seat(0))
	b.join("finale", seat(1))

	a.send(protocol.MsgRoll, nil)
	fa := a.readUntil(protocol.MsgGameEnd)
	fb := b.readUntil(protocol.MsgGameEnd)

	require.Len(t, fa, 12) // DICE_ROLL, 9 x MOVE_STEP, LANDED, GAME_END
	for i := range fa {
		assert.Equal(t, int64(i+1), fa[i].Seq)
		assert.Equal(t, fa[i].Seq, fb[i].Seq)
		assert.Equal(t, fa[i].Type, fb[i].Type)
	}

	a.send(protocol.MsgRoll, nil)
	b.send(protocol.MsgRoll, nil)
	a.expectNothingBeforePong()
	b.expectNothingBeforePong()

	// reset reopens the game and keeps counting
	b.send(protocol.MsgReset, nil)
	msg := a.read()
	assert.Equal(t, protocol.MsgTurnBegin, msg.Type)
	assert.Equal(t, int64(13), msg.Seq)
}

func TestServer_PendingCardBlocksRoll(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testAssets(true), []int{2}, nil)
	a := env.mustDial(t)
	a.join("cards", seat(0))

	a.send(protocol.MsgRoll, nil)
	frames := a.readUntil(protocol.MsgCardDrawn)
	drawn, err := protocol.ParsePayload[engine.CardDrawnPayload](frames[len(frames)-1])
	require.NoError(t, err)
	assert.Equal(t, "committee", drawn.Deck)
	assert.Equal(t, "c1", drawn.Card.ID)

	a.send(protocol.MsgRoll, nil)
	a.expectNothingBeforePong()

	a.send(protocol.MsgResolveCard, nil)
	frames = a.readUntil(protocol.MsgTurnBegin)
	assert.Equal(t, protocol.MsgCardApplied, frames[0].Type)
	begin, err := protocol.ParsePayload[engine.TurnPayload](frames[len(frames)-1])
	require.NoError(t, err)
	assert.Equal(t, 0, begin.Index, "extra roll keeps the seat")
}

func TestServer_NotYourTurnIsDropped(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testAssets(false), []int{1}, nil)
	b := env.mustDial(t)
	b.join("turns", seat(1))

	b.send(protocol.MsgRoll, nil)
	b.send(protocol.MsgResolveCard, nil)
	b.expectNothingBeforePong()
}

func TestServer_MalformedAndUnknownFramesAreDropped(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testAssets(false), []int{1}, nil)
	a := env.mustDial(t)

	require.NoError(t, a.conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	a.send("SHOUT", map[string]string{"text": "hello"})
	a.send(protocol.MsgJoin, nil)
	a.send(protocol.MsgRoll, nil)
	a.expectNothingBeforePong()

	a.join("ok", nil)
}

func TestServer_Rename(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testAssets(false), []int{1}, nil)
	a := env.mustDial(t)
	b := env.mustDial(t)
	a.join("names", seat(1))
	b.join("names", nil)

	a.send(protocol.MsgRename, protocol.RenamePayload{Index: seat(1), Name: "  Whip  "})
	msg := b.read()
	require.Equal(t, protocol.MsgPlayerRenamed, msg.Type)
	p, err := protocol.ParsePayload[engine.PlayerRenamedPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, engine.PlayerRenamedPayload{Index: 1, Name: "Whip"}, *p)
}

func TestServer_Resync(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testAssets(false), []int{3}, nil)
	a := env.mustDial(t)
	a.join("resync", nil)

	a.send(protocol.MsgRoll, nil)
	live := a.readUntil(protocol.MsgTurnBegin)

	a.send(protocol.MsgResync, protocol.ResyncPayload{SinceSeq: 4})
	replayed := a.readUntil(protocol.MsgTurnBegin)
	require.Len(t, replayed, len(live)-4)
	for i, msg := range replayed {
		assert.Equal(t, live[i+4].Seq, msg.Seq)
		assert.Equal(t, live[i+4].Type, msg.Type)
	}

	a.send(protocol.MsgResync, protocol.ResyncPayload{SinceSeq: 100})
	snap := a.read()
	require.Equal(t, protocol.MsgSnapshot, snap.Type)
	p, err := protocol.ParsePayload[protocol.JoinOKPayload](snap)
	require.NoError(t, err)
	assert.Equal(t, live[len(live)-1].Seq, p.Seq)
}

func TestServer_RedisReplay(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newTestEnv(t, testAssets(false), []int{2}, nil, WithRedisClient(rdb))
	a := env.mustDial(t)
	a.join("durable", nil)
	a.send(protocol.MsgRoll, nil)
	live := a.readUntil(protocol.MsgTurnBegin)

	assert.True(t, mr.Exists("replay:durable"))

	a.send(protocol.MsgResync, protocol.ResyncPayload{SinceSeq: 0})
	replayed := a.readUntil(protocol.MsgTurnBegin)
	require.Len(t, replayed, len(live))
	assert.JSONEq(t, string(live[0].Payload), string(replayed[0].Payload))
}

func TestServer_BinaryCodec(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testAssets(false), []int{1}, nil)
	a, _, err := env.dial(t, "?codec=binary", nil)
	require.NoError(t, err)

	p := a.join("bin", nil)
	assert.Equal(t, "bin", p.RoomCode)

	a.send(protocol.MsgRoll, nil)
	msg := a.read()
	assert.Equal(t, protocol.MsgDiceRoll, msg.Type)
	assert.Equal(t, int64(1), msg.Seq)

	_, resp, err := env.dial(t, "?codec=xml", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_OriginRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testAssets(false), []int{1}, func(cfg *config.Config) {
		cfg.Security.AllowedOrigins = []string{"https://chamber.example"}
	})

	bad, _, err := env.dial(t, "", http.Header{"Origin": {"https://evil.example"}})
	require.NoError(t, err, "socket is upgraded before the origin check")
	require.NoError(t, bad.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = bad.conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)

	good, _, err := env.dial(t, "", http.Header{"Origin": {"https://chamber.example"}})
	require.NoError(t, err)
	good.join("ok", nil)
}

func TestServer_ConnectionLimit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testAssets(false), []int{1}, func(cfg *config.Config) {
		cfg.Server.MaxConnections = 1
	})

	first := env.mustDial(t)
	first.join("full", nil)

	_, resp, err := env.dial(t, "", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// closing the first socket frees the slot
	require.NoError(t, first.conn.Close())
	require.Eventually(t, func() bool {
		c, _, err := env.dial(t, "", nil)
		if err != nil {
			return false
		}
		_ = c.conn.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testAssets(false), []int{1}, nil)
	a := env.mustDial(t)
	a.join("observed", nil)
	a.send(protocol.MsgRoll, nil)
	a.readUntil(protocol.MsgTurnBegin)

	resp, err := http.Get(env.ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","online":1,"rooms":1}`, string(body))

	resp, err = http.Get(env.ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "billtolaw_connections 1")
	assert.Contains(t, string(body), "billtolaw_active_rooms 1")
	assert.Contains(t, string(body), `billtolaw_events_broadcast_total{type="DICE_ROLL"} 1`)
}

func TestServer_DisconnectKeepsRoom(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testAssets(false), []int{2}, nil)
	a := env.mustDial(t)
	a.join("sticky", nil)
	a.send(protocol.MsgRoll, nil)
	a.readUntil(protocol.MsgTurnBegin)
	require.NoError(t, a.conn.Close())

	require.Eventually(t, func() bool { return env.srv.GetOnlineCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	b := env.mustDial(t)
	p := b.join("sticky", nil)
	assert.Equal(t, 1, p.You)
	assert.Equal(t, 2, p.State.Players[0].Position)
}
