// Package tui implements the Bubble Tea TUI for huddle.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/huddle/internal/styles"
)

// Tokyo Night color palette.
var (
	colorGreen  = styles.ColorGreen
	colorYellow = styles.ColorYellow
	colorBlue   = styles.ColorBlue
	colorGray   = styles.ColorGray
	colorWhite  = styles.ColorWhite
	colorRed    = lipgloss.Color("#f38ba8")
)

// Layout and text styles.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue).
			PaddingLeft(1)

	// Sidebar holding the room list.
	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), false, true, false, false).
			BorderForeground(colorGray).
			PaddingRight(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	selectedBorderStyle = lipgloss.NewStyle().
				Foreground(colorBlue)

	normalStyle = lipgloss.NewStyle()

	previewStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	timeStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	// Message senders.
	ownSenderStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	peerSenderStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	contentStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Italic(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	inputBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorGray)

	inputFocusedBorderStyle = inputBorderStyle.
				BorderForeground(colorBlue)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorBlue)
)

// Connection state badges.
var (
	connectedStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	connectingStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	disconnectedStyle = lipgloss.NewStyle().
				Foreground(colorRed)
)

// Modal styles.
var (
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBlue).
			Padding(1, 2)

	modalTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	modalHelpStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			MarginTop(1)

	modalButtonStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(lipgloss.Color("#3b4261")).
				Foreground(lipgloss.Color("#a9b1d6"))

	modalButtonSelectedStyle = lipgloss.NewStyle().
					Padding(0, 1).
					Background(colorBlue).
					Foreground(lipgloss.Color("#1a1b26")).
					Bold(true)
)

const iconDot = "•"
