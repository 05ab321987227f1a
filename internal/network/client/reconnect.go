package client

import (
	"time"

	"github.com/palemoky/bill-to-law/internal/logger"
	"github.com/palemoky/bill-to-law/internal/protocol"
)

// StartHeartbeat 启动心跳检测
func (c *Client) StartHeartbeat() {
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if c.IsConnected() {
					_ = c.Ping()
				}
			case <-c.done:
				return
			}
		}
	}()
}

// rememberSeat pins the seat the server handed out so a rejoin reclaims it.
func (c *Client) rememberSeat(roomCode string, seat int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.join == nil || c.join.RoomCode != roomCode {
		return
	}
	c.join.AsIndex = &seat
}

// Only sockets that made it into a room are worth bringing back.
func (c *Client) canReconnect() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.join != nil && c.maxAttempts > 0 && !c.reconnecting.Load()
}

// tryReconnect 尝试重连，指数退避，成功后重新 JOIN 原房间
func (c *Client) tryReconnect() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r, "pump", "reconnect")
			c.reconnecting.Store(false)
		}
	}()

	backoff := c.interval
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if c.OnReconnecting != nil {
			c.OnReconnecting(attempt, c.maxAttempts)
		}

		select {
		case <-time.After(backoff):
		case <-c.done:
			c.reconnecting.Store(false)
			return
		}
		backoff = min(backoff*2, maxReconnectBackoff)

		conn, err := c.dial()
		if err != nil {
			c.log.Debugw("reconnect failed", "attempt", attempt, "error", err)
			continue
		}

		// Actions queued while offline were aimed at a state we no longer
		// know; the JOIN_OK that follows is the new baseline.
		c.drainSend()
		c.reconnecting.Store(false)
		c.attach(conn)
		if err := c.rejoin(); err != nil {
			c.log.Warnw("rejoin failed", "error", err)
			continue
		}

		c.log.Infow("reconnected", "attempt", attempt)
		if c.OnReconnect != nil {
			c.OnReconnect()
		}
		return
	}

	c.log.Warnw("giving up reconnecting", "attempts", c.maxAttempts)
	c.reconnecting.Store(false)
	c.Close()
	if c.OnClose != nil {
		c.OnClose()
	}
}

func (c *Client) drainSend() {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func (c *Client) rejoin() error {
	c.mu.RLock()
	if c.join == nil {
		c.mu.RUnlock()
		return nil
	}
	p := *c.join
	c.mu.RUnlock()
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgJoin, p))
}

// IsReconnecting 是否正在重连
func (c *Client) IsReconnecting() bool {
	return c.reconnecting.Load()
}
