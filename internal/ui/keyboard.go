package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

var errReconnecting = errors.New("reconnecting, try again in a moment")

type keyMap struct {
	Roll    key.Binding
	Resolve key.Binding
	Reset   key.Binding
	Rename  key.Binding
	Resync  key.Binding
	Quit    key.Binding
	Submit  key.Binding
	Cancel  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Roll:    key.NewBinding(key.WithKeys("r", " "), key.WithHelp("r", "roll")),
		Resolve: key.NewBinding(key.WithKeys("c", "enter"), key.WithHelp("c", "resolve card")),
		Reset:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reset")),
		Rename:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "rename")),
		Resync:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "resync")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// helpLine lists the bindings usable right now.
func (m *OnlineModel) helpLine() string {
	var bindings []key.Binding
	switch {
	case m.renaming:
		bindings = []key.Binding{m.keys.Submit, m.keys.Cancel}
	default:
		if m.state.CanRoll() {
			bindings = append(bindings, m.keys.Roll)
		}
		if m.state.CanResolve() {
			bindings = append(bindings, m.keys.Resolve)
		}
		bindings = append(bindings, m.keys.Rename, m.keys.Reset, m.keys.Resync, m.keys.Quit)
	}

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

// handleKeyPress 处理按键消息，返回是否已处理和命令
func (m *OnlineModel) handleKeyPress(msg tea.KeyMsg) (bool, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.conn.Close()
		return true, tea.Quit
	}

	switch m.phase {
	case PhaseLobby:
		return m.handleLobbyKey(msg)
	case PhasePlaying:
		if m.renaming {
			return m.handleRenameKey(msg)
		}
		return m.handleGameKey(msg)
	}

	if key.Matches(msg, m.keys.Quit, m.keys.Cancel) {
		m.conn.Close()
		return true, tea.Quit
	}
	return false, nil
}

func (m *OnlineModel) handleLobbyKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.conn.Close()
		return true, tea.Quit
	case key.Matches(msg, m.keys.Submit):
		code := strings.TrimSpace(m.input.Value())
		if code == "" {
			m.error = "room code is required"
			return true, nil
		}
		return true, m.join(code)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return true, cmd
}

func (m *OnlineModel) handleRenameKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.stopRenaming()
		return true, nil
	case key.Matches(msg, m.keys.Submit):
		var cmd tea.Cmd
		if name := strings.TrimSpace(m.input.Value()); name != "" {
			cmd = m.report(m.conn.Rename(nil, name))
		}
		m.stopRenaming()
		return true, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return true, cmd
}

// handleGameKey only sends actions the mirrored phase allows; the server
// would drop the rest silently anyway.
func (m *OnlineModel) handleGameKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.conn.Close()
		return true, tea.Quit
	}
	// Frames queued while the socket is down are discarded on rejoin.
	if m.conn.IsReconnecting() {
		return true, m.report(errReconnecting)
	}

	switch {
	case key.Matches(msg, m.keys.Roll):
		if m.state.CanRoll() {
			return true, m.report(m.conn.Roll())
		}
	case key.Matches(msg, m.keys.Resolve):
		if m.state.CanResolve() {
			return true, m.report(m.conn.ResolveCard())
		}
	case key.Matches(msg, m.keys.Reset):
		return true, m.report(m.conn.Reset())
	case key.Matches(msg, m.keys.Resync):
		return true, m.report(m.conn.Resync(m.conn.LastSeq()))
	case key.Matches(msg, m.keys.Rename):
		m.startRenaming()
		return true, textinput.Blink
	default:
		return false, nil
	}
	return true, nil
}
