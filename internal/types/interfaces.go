package types

import (
	"github.com/palemoky/bill-to-law/internal/protocol"
)

// ClientInterface 定义客户端接口（用于打破 room 与 server 的循环依赖）
type ClientInterface interface {
	GetID() string
	GetRoom() string
	SetRoom(code string)
	// SendMessage enqueues msg without blocking.
	SendMessage(msg *protocol.Message)
	Close()
}
