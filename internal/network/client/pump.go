package client

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/palemoky/bill-to-law/internal/logger"
	"github.com/palemoky/bill-to-law/internal/protocol"
	"github.com/palemoky/bill-to-law/internal/protocol/codec"
)

// readPump 从服务器读取消息
func (c *Client) readPump(conn *websocket.Conn, stop chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r, "pump", "read")
		}
		close(stop)
		_ = conn.Close()

		if c.canReconnect() {
			go c.tryReconnect()
			return
		}
		c.Close()
		if c.OnClose != nil {
			c.OnClose()
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		frameType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				if c.OnError != nil {
					c.OnError(err)
				}
			}
			return
		}

		msg := &protocol.Message{}
		if err := decoderFor(frameType).Decode(data, msg); err != nil {
			c.log.Debugw("dropping undecodable frame", "error", err)
			continue
		}
		if c.admit(msg) {
			c.dispatch(msg)
		}
	}
}

// The server answers in the codec we asked for, but the frame type is
// authoritative.
func decoderFor(frameType int) codec.Codec {
	if frameType == websocket.BinaryMessage {
		return codec.Binary
	}
	return codec.JSON
}

// admit runs the frame through sequencing and the state-carrying side
// effects. It reports whether the frame should reach the application.
func (c *Client) admit(msg *protocol.Message) bool {
	switch msg.Type {
	case protocol.MsgJoinOK, protocol.MsgSnapshot:
		p, err := protocol.ParsePayload[protocol.JoinOKPayload](msg)
		if err != nil {
			c.log.Debugw("dropping bad state frame", "type", msg.Type, "error", err)
			return false
		}
		c.seq.anchor(p.Seq)
		c.rememberSeat(p.RoomCode, p.You)
		return true

	case protocol.MsgPong:
		p, err := protocol.ParsePayload[protocol.PongPayload](msg)
		if err == nil {
			latency := time.Now().UnixMilli() - p.ClientTimestamp
			c.latency.Store(latency)
			if c.OnLatencyUpdate != nil {
				c.OnLatencyUpdate(latency)
			}
		}
		return true
	}

	if !msg.Type.IsEvent() {
		return true
	}
	v, since := c.seq.observe(msg.Seq)
	switch v {
	case drop:
		c.log.Debugw("dropping duplicate or early event", "type", msg.Type, "seq", msg.Seq)
		return false
	case resync:
		c.log.Infow("event gap, resyncing", "since", since, "got", msg.Seq)
		if err := c.Resync(since); err != nil {
			c.log.Warnw("resync request failed", "error", err)
		}
		return false
	}
	return true
}

func (c *Client) dispatch(msg *protocol.Message) {
	if c.OnMessage != nil {
		c.OnMessage(msg)
	}
	select {
	case c.receive <- msg:
	default:
		c.log.Warnw("receive buffer full, frame discarded", "type", msg.Type)
	}
}

// writePump 向服务器写入消息
func (c *Client) writePump(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	frameType := c.codec.FrameType()
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r, "pump", "write")
		}
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(frameType, data); err != nil {
				c.log.Debugw("write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-stop:
			return

		case <-c.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
