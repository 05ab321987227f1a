// Package common provides shared styles and utilities for the UI.
package common

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/palemoky/bill-to-law/internal/game/board"
)

// Icon constants
const (
	TurnIcon    = "▶"
	WinnerIcon  = "👑"
	SkipIcon    = "⏸"
	ExtraIcon   = "⟳"
	CardIcon    = "📜"
	EmptySquare = "·"
)

// Lipgloss Styles
var (
	DocStyle     = lipgloss.NewStyle().Margin(1, 2)
	TitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Bold(true).Render
	BoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	CardStyle    = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("220")).Padding(0, 1)
	PromptStyle  = lipgloss.NewStyle().MarginTop(1)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	HelpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var stageColors = map[board.Stage]lipgloss.Color{
	board.StageStart:          "250",
	board.StageEarly:          "117",
	board.StageCommons:        "114",
	board.StageLords:          "176",
	board.StageImplementation: "215",
	board.StageEnd:            "220",
}

// StageStyle colours a square by its stage.
func StageStyle(st board.Stage) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(stageColors[st])
}

// PlayerStyle renders text in the player's token colour.
func PlayerStyle(hex string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Bold(true)
}
