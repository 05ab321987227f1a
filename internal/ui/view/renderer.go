// Package view provides UI rendering functions.
package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	gameClient "github.com/palemoky/bill-to-law/internal/client"
	"github.com/palemoky/bill-to-law/internal/ui/common"
)

const cellWidth = 10

// Status is the connection state shown in the header.
type Status struct {
	Latency      int64
	Reconnecting string
	Error        string
}

// GameView renders the whole in-room screen.
func GameView(gs *gameClient.GameState, st Status, width int, help string) string {
	var sb strings.Builder

	sb.WriteString(HeaderView(gs, st, width))
	sb.WriteString("\n\n")
	sb.WriteString(BoardView(gs, width))
	sb.WriteString("\n")

	side := []string{RosterView(gs)}
	if card := CardView(gs); card != "" {
		side = append(side, card)
	}
	if result := ResultView(gs); result != "" {
		side = append(side, result)
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, side...))
	sb.WriteString("\n")

	if log := LogView(gs); log != "" {
		sb.WriteString(log)
		sb.WriteString("\n")
	}
	if st.Error != "" {
		sb.WriteString(common.ErrorStyle.Render(st.Error))
		sb.WriteString("\n")
	}
	sb.WriteString(common.HelpStyle.Render(help))
	return common.DocStyle.Render(sb.String())
}

// HeaderView shows the room, the local seat and link health.
func HeaderView(gs *gameClient.GameState, st Status, width int) string {
	title := common.TitleStyle(fmt.Sprintf("🏛  Room %s", gs.RoomCode))
	info := fmt.Sprintf("seat %d · seq %d · %dms", gs.You+1, gs.Seq, st.Latency)
	if st.Reconnecting != "" {
		info = st.Reconnecting
	}
	line := title + "  " + common.DimStyle.Render(info)
	return lipgloss.PlaceHorizontal(width, lipgloss.Left, line)
}

// BoardView lays the track out left to right, wrapping at width. Squares
// the client has not seen yet are uncoloured.
func BoardView(gs *gameClient.GameState, width int) string {
	perRow := max(1, width/cellWidth)

	var rows []string
	var row []string
	for i := 0; i <= gs.EndIndex; i++ {
		row = append(row, cell(gs, i))
		if len(row) == perRow {
			rows = append(rows, strings.Join(row, ""))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, strings.Join(row, ""))
	}
	return strings.Join(rows, "\n")
}

func cell(gs *gameClient.GameState, index int) string {
	label := fmt.Sprintf("%02d", index)
	if sp, ok := gs.Spaces[index]; ok {
		label = common.StageStyle(sp.Stage).Render(label)
		if sp.Deck != "" {
			label += "*"
		}
	} else {
		label = common.DimStyle.Render(label)
	}

	var tokens strings.Builder
	for seat, p := range gs.Players {
		if p.Position == index {
			tokens.WriteString(common.PlayerStyle(p.Color).Render(strconv.Itoa(seat + 1)))
		}
	}
	return lipgloss.NewStyle().Width(cellWidth).Render(label + " " + tokens.String())
}

// RosterView lists the seats with their position and flags.
func RosterView(gs *gameClient.GameState) string {
	var sb strings.Builder
	sb.WriteString("Players\n")
	for seat, p := range gs.Players {
		marker := "  "
		if seat == gs.TurnIndex && !gs.Over {
			marker = common.TurnIcon + " "
		}
		name := common.PlayerStyle(p.Color).Render(fmt.Sprintf("%d %s", seat+1, p.Name))
		fmt.Fprintf(&sb, "%s%s @%d", marker, name, p.Position)
		if p.SkipCount > 0 {
			fmt.Fprintf(&sb, " %s%d", common.SkipIcon, p.SkipCount)
		}
		if p.ExtraRoll {
			sb.WriteString(" " + common.ExtraIcon)
		}
		if seat == gs.You {
			sb.WriteString(" (you)")
		}
		sb.WriteString("\n")
	}
	if gs.LastRoll != 0 {
		fmt.Fprintf(&sb, "\nLast roll: %d", gs.LastRoll)
	}
	return common.BoxStyle.Render(strings.TrimRight(sb.String(), "\n"))
}

// CardView shows the pending card, or "" when there is none.
func CardView(gs *gameClient.GameState) string {
	pc := gs.PendingCard
	if pc == nil {
		return ""
	}
	body := fmt.Sprintf("%s %s\n%s\n\n%s", common.CardIcon, pc.Card.Title, pc.Card.Text,
		common.DimStyle.Render(fmt.Sprintf("%s · %s", pc.Deck, pc.Card.Effect)))
	return common.CardStyle.Render(body)
}

// ResultView announces the winners once the game is over.
func ResultView(gs *gameClient.GameState) string {
	if !gs.Over || len(gs.Winners) == 0 {
		return ""
	}
	names := make([]string, len(gs.Winners))
	for i, w := range gs.Winners {
		names[i] = w.Name
	}
	return common.BoxStyle.Render(common.SuccessStyle.Render(
		fmt.Sprintf("%s %s passed the bill!", common.WinnerIcon, strings.Join(names, ", "))))
}

// LogView prints the recent event lines.
func LogView(gs *gameClient.GameState) string {
	if len(gs.Log) == 0 {
		return ""
	}
	return common.DimStyle.Render(strings.Join(gs.Log, "\n"))
}

// LobbyView asks for a room code.
func LobbyView(input string, errMsg string, width int) string {
	var sb strings.Builder
	sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, common.TitleStyle("🏛  Bill to Law")))
	sb.WriteString("\n\n")
	sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, common.BoxStyle.Render("Room code\n"+input)))
	if errMsg != "" {
		sb.WriteString("\n")
		sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, common.ErrorStyle.Render(errMsg)))
	}
	sb.WriteString(common.PromptStyle.Render(
		lipgloss.PlaceHorizontal(width, lipgloss.Center, common.HelpStyle.Render("enter: join · esc: quit"))))
	return common.DocStyle.Render(sb.String())
}

// ConnectingView is shown until the socket is up or the room answered.
func ConnectingView(spinner, what, errMsg string) string {
	if errMsg != "" {
		return common.DocStyle.Render(common.ErrorStyle.Render(errMsg))
	}
	return common.DocStyle.Render(spinner + " " + what)
}
