// Package client is the websocket side of a room participant: it keeps the
// connection alive, orders the event stream by seq and rejoins after drops.
package client

import (
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/palemoky/bill-to-law/internal/protocol"
	"github.com/palemoky/bill-to-law/internal/protocol/codec"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// 心跳检测间隔
	heartbeatInterval = 5 * time.Second
	// 最大重连次数
	maxReconnectAttempts = 5
	// 重连间隔
	reconnectInterval = 2 * time.Second
	// 退避上限
	maxReconnectBackoff = 30 * time.Second

	bufferSize = 256
)

var (
	ErrClosed         = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
	ErrReceiveTimeout = errors.New("receive timeout")
)

// Option 客户端选项
type Option func(*Client)

// WithCodec selects the frame codec. The server is told via ?codec=.
func WithCodec(cd codec.Codec) Option {
	return func(c *Client) { c.codec = cd }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = l }
}

// WithReconnect overrides the reconnect policy. attempts <= 0 disables it.
func WithReconnect(attempts int, interval time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = attempts
		c.interval = interval
	}
}

// Client WebSocket 客户端
type Client struct {
	ServerURL string

	codec   codec.Codec
	log     *zap.SugaredLogger
	dialer  websocket.Dialer
	send    chan []byte
	receive chan *protocol.Message
	done    chan struct{}

	// 回调
	OnMessage       func(*protocol.Message) // 消息回调
	OnError         func(error)             // 错误回调
	OnClose         func()                  // 关闭回调
	OnReconnecting  func(attempt, max int)  // 正在重连回调
	OnReconnect     func()                  // 重连成功回调
	OnLatencyUpdate func(int64)             // 延迟更新回调

	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool
	join   *protocol.JoinPayload // last JOIN, replayed after a reconnect

	seq sequencer

	latency      atomic.Int64
	reconnecting atomic.Bool
	maxAttempts  int
	interval     time.Duration
}

// NewClient 创建客户端
func NewClient(serverURL string, opts ...Option) *Client {
	c := &Client{
		ServerURL:   serverURL,
		codec:       codec.JSON,
		log:         zap.NewNop().Sugar(),
		dialer:      websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		send:        make(chan []byte, bufferSize),
		receive:     make(chan *protocol.Message, bufferSize),
		done:        make(chan struct{}),
		maxAttempts: maxReconnectAttempts,
		interval:    reconnectInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect 连接服务器
func (c *Client) Connect() error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	c.attach(conn)
	return nil
}

func (c *Client) dialURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", err
	}
	if c.codec.Name() != codec.NameJSON {
		q := u.Query()
		q.Set("codec", c.codec.Name())
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) dial() (*websocket.Conn, error) {
	target, err := c.dialURL()
	if err != nil {
		return nil, err
	}
	conn, _, err := c.dialer.Dial(target, nil)
	return conn, err
}

// attach starts the pumps for a fresh connection. The send queue outlives
// connections; stop only lives as long as this one.
func (c *Client) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := make(chan struct{})
	go c.readPump(conn, stop)
	go c.writePump(conn, stop)
}

// SendMessage 发送消息
func (c *Client) SendMessage(msg *protocol.Message) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClosed
	}
	c.mu.RUnlock()

	data, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Receive 接收消息 (阻塞)
func (c *Client) Receive() (*protocol.Message, error) {
	select {
	case msg := <-c.receive:
		return msg, nil
	case <-c.done:
		return nil, ErrClosed
	}
}

// ReceiveWithTimeout 带超时接收消息
func (c *Client) ReceiveWithTimeout(timeout time.Duration) (*protocol.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-c.receive:
		return msg, nil
	case <-timer.C:
		return nil, ErrReceiveTimeout
	case <-c.done:
		return nil, ErrClosed
	}
}

// Close 关闭连接
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}

// IsConnected 是否已连接
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.conn != nil && !c.reconnecting.Load()
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Latency 最近一次 PING 的往返时间（毫秒）
func (c *Client) Latency() int64 {
	return c.latency.Load()
}

// LastSeq is the newest event seq delivered in order.
func (c *Client) LastSeq() int64 {
	return c.seq.last()
}

// RoomCode returns the room of the last JOIN, or "".
func (c *Client) RoomCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.join == nil {
		return ""
	}
	return c.join.RoomCode
}
