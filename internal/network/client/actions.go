package client

import (
	"time"

	"github.com/palemoky/bill-to-law/internal/protocol"
)

// --- 便捷方法 ---

// Join 加入房间，房间不存在时由服务端创建
func (c *Client) Join(roomCode string, asIndex, playerCount *int) error {
	p := protocol.JoinPayload{RoomCode: roomCode, AsIndex: asIndex, PlayerCount: playerCount}
	c.mu.Lock()
	c.join = &p
	c.mu.Unlock()
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgJoin, p))
}

// Roll 掷骰
func (c *Client) Roll() error {
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgRoll, nil))
}

// ResolveCard 确认待处理的卡牌
func (c *Client) ResolveCard() error {
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgResolveCard, nil))
}

// Rename 改名；index 为 nil 时改自己的座位
func (c *Client) Rename(index *int, name string) error {
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgRename, protocol.RenamePayload{
		Index: index,
		Name:  name,
	}))
}

// Reset 重开
func (c *Client) Reset() error {
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgReset, nil))
}

// Resync 请求 since 之后的事件
func (c *Client) Resync(since int64) error {
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgResync, protocol.ResyncPayload{
		SinceSeq: since,
	}))
}

// Ping 发送心跳
func (c *Client) Ping() error {
	return c.SendMessage(protocol.MustNewMessage(protocol.MsgPing, protocol.PingPayload{
		Timestamp: time.Now().UnixMilli(),
	}))
}
