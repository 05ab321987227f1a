package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/palemoky/bill-to-law/internal/apperrors"
	"github.com/palemoky/bill-to-law/internal/logger"
	"github.com/palemoky/bill-to-law/internal/protocol"
	"github.com/palemoky/bill-to-law/internal/protocol/codec"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时（pong 等待时间）
	pongWait = 60 * time.Second

	// ping 发送间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小
	maxMessageSize = 4096

	sendBufferSize = 256

	// 超速次数达到后断开连接
	maxRateViolations = 5
)

// Client 代表一个 WebSocket 连接
type Client struct {
	ID string
	IP string

	server  *Server
	conn    *websocket.Conn
	codec   codec.Codec
	send    chan []byte
	release func()

	mu       sync.RWMutex
	roomCode string
	closed   bool

	disconnectOnce sync.Once
}

// NewClient 创建新客户端。release 在连接断开时调用一次
func NewClient(s *Server, conn *websocket.Conn, cdc codec.Codec, release func()) *Client {
	if release == nil {
		release = func() {}
	}
	return &Client{
		ID:      uuid.NewString(),
		server:  s,
		conn:    conn,
		codec:   cdc,
		send:    make(chan []byte, sendBufferSize),
		release: release,
	}
}

// ReadPump 从 WebSocket 读取消息
func (c *Client) ReadPump() {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r, "client", c.ID, "pump", "read")
		}
		c.handleDisconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	s := c.server
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Debugw("read error", "client", c.ID, "error", err)
			}
			return
		}

		allowed, violations := s.messageLimiter.AllowMessage(c.ID)
		if !allowed {
			s.metrics.IncDropped(apperrors.ErrRateLimited.Reason)
			if violations > maxRateViolations {
				s.log.Warnw("disconnecting flooding client", "client", c.ID, "ip", c.IP)
				return
			}
			continue
		}

		msg := codec.GetMessage()
		if err := c.codec.Decode(data, msg); err != nil {
			codec.PutMessage(msg)
			s.metrics.IncDropped(apperrors.ErrMalformed.Reason)
			s.log.Debugw("malformed frame", "client", c.ID, "error", err)
			continue
		}

		start := time.Now()
		s.handler.Handle(c, msg)
		s.metrics.ObserveMessageLatency(time.Since(start))
		codec.PutMessage(msg)
	}
}

// WritePump 向 WebSocket 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r, "client", c.ID, "pump", "write")
		}
		ticker.Stop()
		_ = c.conn.Close()
	}()

	frameType := c.codec.FrameType()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道已关闭
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(frameType, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 发送消息给客户端，从不阻塞；缓冲区满时关闭连接
func (c *Client) SendMessage(msg *protocol.Message) {
	data, err := c.codec.Encode(msg)
	if err != nil {
		c.server.log.Errorw("encode message", "client", c.ID, "type", msg.Type, "error", err)
		return
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	select {
	case c.send <- data:
		c.mu.RUnlock()
		return
	default:
	}
	c.mu.RUnlock()

	c.server.log.Warnw("send buffer full, closing", "client", c.ID)
	c.Close()
}

// handleDisconnect 处理断开连接：离开房间但保留房间和对局
func (c *Client) handleDisconnect() {
	c.disconnectOnce.Do(func() {
		c.server.handler.Disconnect(c)
		c.server.messageLimiter.RemoveClient(c.ID)
		c.server.unregisterClient(c)
		c.Close()
		c.release()
	})
}

// Close 关闭发送通道，WritePump 随后发送关闭帧
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) GetID() string {
	return c.ID
}

// SetRoom 设置客户端所在房间
func (c *Client) SetRoom(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = code
}

// GetRoom 获取客户端所在房间
func (c *Client) GetRoom() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}
