// Package styles provides shared lipgloss styles for CLI and TUI components.
package styles

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Tokyo Night color palette.
var (
	ColorGreen  = lipgloss.Color("#9ece6a")
	ColorYellow = lipgloss.Color("#e0af68")
	ColorBlue   = lipgloss.Color("#7aa2f7")
	ColorGray   = lipgloss.Color("#565f89")
	ColorWhite  = lipgloss.Color("#c0caf5")
)

// GlamourStyle is the glamour standard style matching the palette.
const GlamourStyle = "tokyo-night"

// Banner ASCII art for the header.
const Banner = `
 ╦ ╦╦ ╦╔╦╗╔╦╗╦  ╔═╗
 ╠═╣║ ║ ║║ ║║║  ║╣
 ╩ ╩╚═╝═╩╝═╩╝╩═╝╚═╝`

// BannerStyle styles the ASCII art banner.
var BannerStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

// RoomStyle styles room titles in CLI output.
var RoomStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

// SenderStyle styles message senders in CLI output.
var SenderStyle = lipgloss.NewStyle().
	Foreground(ColorYellow)

// OwnSenderStyle styles the current user's messages in CLI output.
var OwnSenderStyle = lipgloss.NewStyle().
	Foreground(ColorGreen)

// MutedStyle styles timestamps and secondary text.
var MutedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// DividerStyle styles horizontal dividers.
var DividerStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// FormTheme returns the huh theme used by interactive prompts.
func FormTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = t.Focused.Title.Foreground(ColorBlue).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(ColorGray)
	t.Focused.TextInput.Prompt = t.Focused.TextInput.Prompt.Foreground(ColorBlue)
	t.Focused.TextInput.Cursor = t.Focused.TextInput.Cursor.Foreground(ColorYellow)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(lipgloss.Color("#f38ba8"))
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(lipgloss.Color("#f38ba8"))
	t.Focused.FocusedButton = t.Focused.FocusedButton.
		Foreground(lipgloss.Color("#1a1b26")).
		Background(ColorBlue)
	t.Focused.BlurredButton = t.Focused.BlurredButton.
		Foreground(lipgloss.Color("#a9b1d6")).
		Background(lipgloss.Color("#3b4261"))

	t.Blurred = t.Focused
	t.Blurred.Title = t.Blurred.Title.Foreground(ColorGray)

	return t
}
