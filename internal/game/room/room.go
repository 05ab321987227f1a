package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/bill-to-law/internal/apperrors"
	"github.com/palemoky/bill-to-law/internal/game/engine"
	"github.com/palemoky/bill-to-law/internal/protocol"
	"github.com/palemoky/bill-to-law/internal/server/metrics"
	"github.com/palemoky/bill-to-law/internal/server/storage"
	"github.com/palemoky/bill-to-law/internal/types"
)

const replayTimeout = 500 * time.Millisecond

// member 房间中的一个连接。多个连接可以占用同一座位
type member struct {
	client types.ClientInterface
	seat   int
}

// Room 游戏房间。所有操作在 mu 下串行执行，引擎事件在同一临界区内
// 推进阶段、分配序号并发送给每个连接；一次操作产生的帧在解锁前
// 批量写入重放日志。
type Room struct {
	Code      string
	CreatedAt time.Time

	mu      sync.Mutex
	engine  *engine.Engine
	phase   Phase
	seq     int64
	members map[string]*member

	replay  storage.ReplayLog
	unsaved []storage.Record
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
}

func newRoom(code string, eng *engine.Engine, replay storage.ReplayLog, m *metrics.Metrics, log *zap.SugaredLogger) *Room {
	r := &Room{
		Code:      code,
		CreatedAt: time.Now(),
		engine:    eng,
		phase:     PhaseTurnBegin,
		members:   make(map[string]*member),
		replay:    replay,
		metrics:   m,
		log:       log,
	}
	eng.Subscribe(r.onEvent)
	return r
}

// onEvent runs inside the engine operation, so r.mu is already held.
func (r *Room) onEvent(ev engine.Event) {
	msg, err := protocol.NewSequenced(protocol.MessageType(ev.Type), ev.Payload, r.seq+1)
	if err != nil {
		r.log.Errorw("encode event", "type", ev.Type, "error", err)
		return
	}
	r.seq++
	r.phase = nextPhase(r.phase, ev.Type)

	for _, m := range r.members {
		m.client.SendMessage(msg)
	}
	r.metrics.IncEventsBroadcast(string(ev.Type))

	if frame, err := msg.Encode(); err == nil {
		r.unsaved = append(r.unsaved, storage.Record{Seq: r.seq, Frame: frame})
	}
}

// flushReplay writes the frames of the operation that just ran. Caller holds
// r.mu, so a later Resync always sees them.
func (r *Room) flushReplay() {
	if len(r.unsaved) == 0 {
		return
	}
	recs := r.unsaved
	r.unsaved = nil

	ctx, cancel := context.WithTimeout(context.Background(), replayTimeout)
	defer cancel()
	if err := r.replay.Append(ctx, r.Code, recs...); err != nil {
		r.log.Warnw("replay append failed", "from", recs[0].Seq, "to", recs[len(recs)-1].Seq, "error", err)
	}
}

// Join attaches client to the room and answers with JOIN_OK. The seat is
// asIndex when it names an existing seat, else the seat whose turn it is.
func (r *Room) Join(client types.ClientInterface, asIndex *int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat := r.engine.TurnIndex()
	if asIndex != nil && *asIndex >= 0 && *asIndex < r.engine.PlayerCount() {
		seat = *asIndex
	}
	r.members[client.GetID()] = &member{client: client, seat: seat}
	client.SetRoom(r.Code)
	client.SendMessage(r.stateMessage(protocol.MsgJoinOK, seat))

	r.log.Infow("client joined", "client", client.GetID(), "seat", seat, "members", len(r.members))
	return seat
}

// Leave detaches a connection. The room and its game survive.
func (r *Room) Leave(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[clientID]
	if !ok {
		return
	}
	delete(r.members, clientID)
	m.client.SetRoom("")
	r.log.Infow("client left", "client", clientID, "seat", m.seat, "members", len(r.members))
}

// Roll takes a turn for the caller's seat.
func (r *Room) Roll(clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.flushReplay()

	if err := r.checkTurn(clientID, PhaseTurnBegin); err != nil {
		return err
	}
	if err := r.engine.TakeTurn(); err != nil {
		return fmt.Errorf("roll: %w", err)
	}
	return nil
}

// ResolveCard acknowledges the card the caller's seat drew.
func (r *Room) ResolveCard(clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.flushReplay()

	if err := r.checkTurn(clientID, PhaseCardPending); err != nil {
		return err
	}
	if err := r.engine.ResolvePendingCard(); err != nil {
		return fmt.Errorf("resolve card: %w", err)
	}
	return nil
}

func (r *Room) checkTurn(clientID string, want Phase) error {
	m, ok := r.members[clientID]
	if !ok {
		return apperrors.ErrNotInRoom
	}
	if r.phase != want {
		return apperrors.ErrWrongPhase
	}
	if m.seat != r.engine.TurnIndex() {
		return apperrors.ErrNotYourTurn
	}
	return nil
}

// Rename sets the name of seat index, or of the caller's own seat when index
// is nil. Allowed in any phase.
func (r *Room) Rename(clientID string, index *int, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.flushReplay()

	m, ok := r.members[clientID]
	if !ok {
		return apperrors.ErrNotInRoom
	}
	seat := m.seat
	if index != nil {
		seat = *index
	}
	if err := r.engine.RenamePlayer(seat, name); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidArgument, err)
	}
	return nil
}

// Reset restarts the game in place. Allowed in any phase.
func (r *Room) Reset(clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.flushReplay()

	if _, ok := r.members[clientID]; !ok {
		return apperrors.ErrNotInRoom
	}
	r.engine.Reset()
	r.log.Infow("game reset", "client", clientID, "seq", r.seq)
	return nil
}

// Resync brings the caller up to date from sinceSeq. Frames still held by the
// replay log are resent in order; when the log no longer covers the gap the
// caller gets a SNAPSHOT instead. A caller already at the head gets nothing.
func (r *Room) Resync(clientID string, sinceSeq int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[clientID]
	if !ok {
		return apperrors.ErrNotInRoom
	}
	if sinceSeq == r.seq {
		return nil
	}

	if sinceSeq >= 0 && sinceSeq < r.seq {
		ctx, cancel := context.WithTimeout(context.Background(), replayTimeout)
		recs, err := r.replay.Since(ctx, r.Code, sinceSeq)
		cancel()
		if err != nil {
			r.log.Warnw("replay read failed", "since", sinceSeq, "error", err)
		} else if msgs, ok := r.decodeContiguous(recs, sinceSeq); ok {
			for _, msg := range msgs {
				m.client.SendMessage(msg)
			}
			r.metrics.IncResync("replay")
			return nil
		}
	}

	m.client.SendMessage(r.stateMessage(protocol.MsgSnapshot, m.seat))
	r.metrics.IncResync("snapshot")
	return nil
}

// decodeContiguous accepts recs only if they are exactly sinceSeq+1..r.seq.
func (r *Room) decodeContiguous(recs []storage.Record, sinceSeq int64) ([]*protocol.Message, bool) {
	if int64(len(recs)) != r.seq-sinceSeq {
		return nil, false
	}
	msgs := make([]*protocol.Message, len(recs))
	for i, rec := range recs {
		if rec.Seq != sinceSeq+int64(i)+1 {
			return nil, false
		}
		msg, err := protocol.Decode(rec.Frame)
		if err != nil {
			r.log.Warnw("corrupt replay frame", "seq", rec.Seq, "error", err)
			return nil, false
		}
		msgs[i] = msg
	}
	return msgs, true
}

// stateMessage builds a JOIN_OK or SNAPSHOT frame. Caller holds r.mu.
func (r *Room) stateMessage(t protocol.MessageType, seat int) *protocol.Message {
	return protocol.MustNewMessage(t, protocol.JoinOKPayload{
		RoomCode: r.Code,
		You:      seat,
		State:    r.engine.Serialize(),
		EndIndex: r.engine.EndIndex(),
		Seq:      r.seq,
		Phase:    string(r.phase),
	})
}

// --- accessors ---

func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Room) Seq() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

func (r *Room) Snapshot() engine.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.Serialize()
}

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}
