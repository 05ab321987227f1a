// Package ui is the terminal client: a bubbletea program that joins one
// room and mirrors it live.
package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	gameClient "github.com/palemoky/bill-to-law/internal/client"
	"github.com/palemoky/bill-to-law/internal/logger"
	netclient "github.com/palemoky/bill-to-law/internal/network/client"
	"github.com/palemoky/bill-to-law/internal/protocol"
	"github.com/palemoky/bill-to-law/internal/protocol/codec"
	"github.com/palemoky/bill-to-law/internal/ui/view"
)

// GamePhase 界面阶段
type GamePhase int

const (
	PhaseConnecting GamePhase = iota
	PhaseLobby
	PhaseJoining
	PhasePlaying
)

const (
	defaultWidth  = 80
	noticeTimeout = 3 * time.Second
)

// Conn is the part of the network client the UI drives.
type Conn interface {
	Connect() error
	Join(roomCode string, asIndex, playerCount *int) error
	Roll() error
	ResolveCard() error
	Rename(index *int, name string) error
	Reset() error
	Resync(since int64) error
	Receive() (*protocol.Message, error)
	StartHeartbeat()
	IsReconnecting() bool
	LastSeq() int64
	Latency() int64
	Close()
}

// Config 客户端启动参数
type Config struct {
	ServerURL string
	Room      string // empty asks for a code in the lobby
	Seat      *int
	Players   *int
	Binary    bool
}

// ServerMessage 服务器消息（用于 tea.Msg）
type ServerMessage struct {
	Msg *protocol.Message
}

// ConnectedMsg 连接成功消息
type ConnectedMsg struct{}

// ConnectionErrorMsg 连接错误消息
type ConnectionErrorMsg struct {
	Err error
}

// ReconnectingMsg 正在重连消息
type ReconnectingMsg struct {
	Attempt  int
	MaxTries int
}

// ReconnectSuccessMsg 重连成功消息
type ReconnectSuccessMsg struct{}

// ClearReconnectMsg 清除重连消息
type ClearReconnectMsg struct{}

// ClearErrorMsg 清除错误消息
type ClearErrorMsg struct{}

// OnlineModel 联网模式的 model
type OnlineModel struct {
	conn  Conn
	cfg   Config
	phase GamePhase
	state *gameClient.GameState
	log   *zap.SugaredLogger

	keys     keyMap
	input    textinput.Model
	spinner  spinner.Model
	renaming bool

	error            string
	reconnectMessage string
	reconnectChan    chan tea.Msg

	width  int
	height int
}

// NewOnlineModel 创建联网模式 model
func NewOnlineModel(cfg Config) *OnlineModel {
	reconnectChan := make(chan tea.Msg, 10)

	opts := []netclient.Option{netclient.WithLogger(logger.Named("client"))}
	if cfg.Binary {
		opts = append(opts, netclient.WithCodec(codec.Binary))
	}
	c := netclient.NewClient(cfg.ServerURL, opts...)

	// 通过 channel 把重连状态送进 Bubble Tea
	c.OnReconnecting = func(attempt, maxTries int) {
		select {
		case reconnectChan <- ReconnectingMsg{Attempt: attempt, MaxTries: maxTries}:
		default:
		}
	}
	c.OnReconnect = func() {
		select {
		case reconnectChan <- ReconnectSuccessMsg{}:
		default:
		}
	}

	return newOnlineModel(c, cfg, reconnectChan)
}

func newOnlineModel(conn Conn, cfg Config, reconnectChan chan tea.Msg) *OnlineModel {
	ti := textinput.New()
	ti.Placeholder = "room code"
	ti.CharLimit = 64
	ti.Width = 24
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &OnlineModel{
		conn:          conn,
		cfg:           cfg,
		phase:         PhaseConnecting,
		state:         gameClient.NewGameState(),
		log:           logger.Named("ui"),
		keys:          defaultKeyMap(),
		input:         ti,
		spinner:       sp,
		reconnectChan: reconnectChan,
		width:         defaultWidth,
	}
}

func (m *OnlineModel) Init() tea.Cmd {
	return tea.Batch(
		m.connectToServer(),
		m.spinner.Tick,
		textinput.Blink,
		m.listenForReconnect(),
	)
}

// listenForReconnect 监听重连消息
func (m *OnlineModel) listenForReconnect() tea.Cmd {
	return func() tea.Msg {
		return <-m.reconnectChan
	}
}

// connectToServer 连接服务器
func (m *OnlineModel) connectToServer() tea.Cmd {
	return func() tea.Msg {
		if err := m.conn.Connect(); err != nil {
			return ConnectionErrorMsg{Err: err}
		}
		return ConnectedMsg{}
	}
}

// listenForMessages 监听服务器消息
func (m *OnlineModel) listenForMessages() tea.Cmd {
	return func() tea.Msg {
		msg, err := m.conn.Receive()
		if err != nil {
			return ConnectionErrorMsg{Err: err}
		}
		return ServerMessage{Msg: msg}
	}
}

func (m *OnlineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if handled, cmd := m.handleKeyPress(msg); handled {
			return m, cmd
		}

	case ConnectedMsg:
		m.conn.StartHeartbeat()
		cmds = append(cmds, m.listenForMessages())
		if m.cfg.Room != "" {
			cmds = append(cmds, m.join(m.cfg.Room))
		} else {
			m.phase = PhaseLobby
		}

	case ConnectionErrorMsg:
		m.error = fmt.Sprintf("connection lost: %v (esc to quit)", msg.Err)
		m.phase = PhaseConnecting

	case ReconnectingMsg:
		m.reconnectMessage = fmt.Sprintf("🔄 reconnecting (%d/%d)...", msg.Attempt, msg.MaxTries)
		cmds = append(cmds, m.listenForReconnect())

	case ReconnectSuccessMsg:
		m.reconnectMessage = "✅ reconnected"
		cmds = append(cmds,
			tea.Tick(noticeTimeout, func(time.Time) tea.Msg { return ClearReconnectMsg{} }),
			m.listenForReconnect(),
		)

	case ClearReconnectMsg:
		m.reconnectMessage = ""

	case ClearErrorMsg:
		m.error = ""

	case ServerMessage:
		m.handleServerMessage(msg.Msg)
		cmds = append(cmds, m.listenForMessages())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *OnlineModel) handleServerMessage(msg *protocol.Message) {
	if err := m.state.Apply(msg); err != nil {
		m.log.Warnw("cannot apply frame", "type", msg.Type, "seq", msg.Seq, "error", err)
		return
	}
	if msg.Type == protocol.MsgJoinOK {
		m.phase = PhasePlaying
		m.error = ""
		m.input.Blur()
		m.input.Reset()
	}
}

func (m *OnlineModel) join(code string) tea.Cmd {
	m.phase = PhaseJoining
	m.error = ""
	m.cfg.Room = code
	return m.report(m.conn.Join(code, m.cfg.Seat, m.cfg.Players))
}

// report shows err for a few seconds.
func (m *OnlineModel) report(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	m.error = err.Error()
	return tea.Tick(noticeTimeout, func(time.Time) tea.Msg { return ClearErrorMsg{} })
}

func (m *OnlineModel) startRenaming() {
	m.renaming = true
	m.input.Reset()
	m.input.Placeholder = "new name"
	m.input.CharLimit = 32
	m.input.Focus()
}

func (m *OnlineModel) stopRenaming() {
	m.renaming = false
	m.input.Blur()
	m.input.Reset()
}

func (m *OnlineModel) View() string {
	switch m.phase {
	case PhaseConnecting:
		return view.ConnectingView(m.spinner.View(), "connecting to "+m.cfg.ServerURL, m.error)
	case PhaseLobby:
		return view.LobbyView(m.input.View(), m.error, m.width)
	case PhaseJoining:
		return view.ConnectingView(m.spinner.View(), "joining room "+m.cfg.Room, m.error)
	}

	help := m.helpLine()
	if m.renaming {
		help = m.input.View() + "\n" + help
	}
	st := view.Status{
		Latency:      m.conn.Latency(),
		Reconnecting: m.reconnectMessage,
		Error:        m.error,
	}
	return view.GameView(m.state, st, m.width, help)
}

// State exposes the mirrored room.
func (m *OnlineModel) State() *gameClient.GameState {
	return m.state
}

func (m *OnlineModel) Phase() GamePhase {
	return m.phase
}
