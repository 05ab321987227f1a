package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/bill-to-law/internal/apperrors"
	"github.com/palemoky/bill-to-law/internal/game/room"
	"github.com/palemoky/bill-to-law/internal/protocol"
	"github.com/palemoky/bill-to-law/internal/server/metrics"
	"github.com/palemoky/bill-to-law/internal/types"
)

const joinTimeout = 5 * time.Second

// handlerFunc 统一的处理器函数签名
type handlerFunc func(client types.ClientInterface, msg *protocol.Message) error

// Handler 消息处理器。失败的消息被静默丢弃，只记录指标和调试日志
type Handler struct {
	roomManager *room.RoomManager
	metrics     *metrics.Metrics
	log         *zap.SugaredLogger
	handlers    map[protocol.MessageType]handlerFunc
}

// NewHandler 创建处理器
func NewHandler(rm *room.RoomManager, m *metrics.Metrics, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	h := &Handler{roomManager: rm, metrics: m, log: log}
	h.handlers = map[protocol.MessageType]handlerFunc{
		protocol.MsgJoin:        h.handleJoin,
		protocol.MsgRoll:        h.inRoom((*room.Room).Roll),
		protocol.MsgResolveCard: h.inRoom((*room.Room).ResolveCard),
		protocol.MsgReset:       h.inRoom((*room.Room).Reset),
		protocol.MsgRename:      h.handleRename,
		protocol.MsgResync:      h.handleResync,
		protocol.MsgPing:        h.handlePing,
	}
	return h
}

// Handle 处理消息。msg 在返回后可能被复用
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	fn, ok := h.handlers[msg.Type]
	if !ok {
		h.drop(client, msg.Type, apperrors.ErrUnknownType)
		return
	}
	h.metrics.IncMessagesReceived(string(msg.Type))
	if err := fn(client, msg); err != nil {
		h.drop(client, msg.Type, err)
	}
}

func (h *Handler) drop(client types.ClientInterface, t protocol.MessageType, err error) {
	reason := apperrors.ReasonOf(err)
	h.metrics.IncDropped(reason)
	h.log.Debugw("message dropped", "client", client.GetID(), "room", client.GetRoom(),
		"type", t, "reason", reason, "error", err)
}

// Disconnect detaches client from its room.
func (h *Handler) Disconnect(client types.ClientInterface) {
	if r := h.roomOf(client); r != nil {
		r.Leave(client.GetID())
	}
}

func (h *Handler) roomOf(client types.ClientInterface) *room.Room {
	code := client.GetRoom()
	if code == "" {
		return nil
	}
	return h.roomManager.GetRoom(code)
}

// inRoom adapts a room action that needs only the caller's id.
func (h *Handler) inRoom(action func(*room.Room, string) error) handlerFunc {
	return func(client types.ClientInterface, _ *protocol.Message) error {
		r := h.roomOf(client)
		if r == nil {
			return apperrors.ErrNotInRoom
		}
		return action(r, client.GetID())
	}
}

func (h *Handler) handleJoin(client types.ClientInterface, msg *protocol.Message) error {
	p, err := protocol.ParsePayload[protocol.JoinPayload](msg)
	if err != nil {
		return apperrors.ErrMalformed
	}

	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()
	r, err := h.roomManager.GetOrCreate(ctx, p.RoomCode, p.PlayerCount)
	if err != nil {
		return err
	}

	if prev := h.roomOf(client); prev != nil && prev != r {
		prev.Leave(client.GetID())
	}
	r.Join(client, p.AsIndex)
	return nil
}

func (h *Handler) handleRename(client types.ClientInterface, msg *protocol.Message) error {
	p, err := protocol.ParsePayload[protocol.RenamePayload](msg)
	if err != nil {
		return apperrors.ErrMalformed
	}
	r := h.roomOf(client)
	if r == nil {
		return apperrors.ErrNotInRoom
	}
	return r.Rename(client.GetID(), p.Index, p.Name)
}

func (h *Handler) handleResync(client types.ClientInterface, msg *protocol.Message) error {
	p, err := protocol.ParsePayload[protocol.ResyncPayload](msg)
	if err != nil {
		return apperrors.ErrMalformed
	}
	r := h.roomOf(client)
	if r == nil {
		return apperrors.ErrNotInRoom
	}
	return r.Resync(client.GetID(), p.SinceSeq)
}

func (h *Handler) handlePing(client types.ClientInterface, msg *protocol.Message) error {
	var ts int64
	if len(msg.Payload) > 0 {
		p, err := protocol.ParsePayload[protocol.PingPayload](msg)
		if err != nil {
			return apperrors.ErrMalformed
		}
		ts = p.Timestamp
	}
	client.SendMessage(protocol.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: ts,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
	return nil
}
