package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/n0ko/message-feed/internal/config"
)

// Colors used throughout the application
var (
	// Primary colors
	PrimaryColor   = lipgloss.Color("#7C3AED") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	AccentColor    = lipgloss.Color("#3B82F6") // Blue

	// Neutral colors
	SurfaceColor = lipgloss.Color("#374151")
	BorderColor  = lipgloss.Color("#4B5563")

	// Text colors
	TextColor        = lipgloss.Color("#F9FAFB")
	TextMutedColor   = lipgloss.Color("#9CA3AF")
	TextErrorColor   = lipgloss.Color("#EF4444")
	TextWarningColor = lipgloss.Color("#F59E0B")
)

// Styles for different UI components
type Styles struct {
	// App-level styles
	StatusBar lipgloss.Style
	Title     lipgloss.Style
	HelpBar   lipgloss.Style
	Snack     lipgloss.Style
	Spinner   lipgloss.Style
	Paused    lipgloss.Style
	Live      lipgloss.Style
	Offline   lipgloss.Style

	// Panel styles
	Panel          lipgloss.Style
	PanelActive    lipgloss.Style
	PanelTitleText lipgloss.Style
	Empty          lipgloss.Style

	// Message card styles
	Card     lipgloss.Style
	CardMine lipgloss.Style
	CardFrom lipgloss.Style
	CardTime lipgloss.Style

	// Input styles
	Input            lipgloss.Style
	InputFocused     lipgloss.Style
	InputPrompt      lipgloss.Style
	InputText        lipgloss.Style
	InputPlaceholder lipgloss.Style
	InputCounter     lipgloss.Style
	InputOverLimit   lipgloss.Style

	// Share screen styles
	ShareContainer lipgloss.Style
	ShareTitle     lipgloss.Style
	ShareHelp      lipgloss.Style
}

// StylesFromTheme returns the default styles with the configured accent colors
func StylesFromTheme(theme config.ThemeConfig) *Styles {
	primary, secondary := PrimaryColor, SecondaryColor
	if theme.PrimaryColor != "" {
		primary = lipgloss.Color(theme.PrimaryColor)
	}
	if theme.SecondaryColor != "" {
		secondary = lipgloss.Color(theme.SecondaryColor)
	}
	return newStyles(primary, secondary)
}

// DefaultStyles returns the default application styles
func DefaultStyles() *Styles {
	return newStyles(PrimaryColor, SecondaryColor)
}

func newStyles(primary, secondary lipgloss.Color) *Styles {
	s := &Styles{}

	s.StatusBar = lipgloss.NewStyle().
		Foreground(TextColor).
		Background(SurfaceColor).
		Padding(0, 1)

	s.Title = lipgloss.NewStyle().
		Foreground(TextColor).
		Background(primary).
		Bold(true).
		Padding(0, 1)

	s.HelpBar = lipgloss.NewStyle().
		Foreground(TextMutedColor).
		Background(SurfaceColor).
		Padding(0, 1)

	s.Snack = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#000000")).
		Background(TextWarningColor).
		Bold(true).
		Padding(0, 1)

	s.Spinner = lipgloss.NewStyle().
		Foreground(secondary)

	s.Paused = lipgloss.NewStyle().
		Foreground(TextWarningColor).
		Bold(true)

	s.Live = lipgloss.NewStyle().
		Foreground(secondary)

	s.Offline = lipgloss.NewStyle().
		Foreground(TextMutedColor)

	// Panel styles
	s.Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 1)

	s.PanelActive = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(primary).
		Padding(0, 1)

	s.PanelTitleText = lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true)

	s.Empty = lipgloss.NewStyle().
		Foreground(TextMutedColor).
		Italic(true)

	// Message card styles
	s.Card = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(BorderColor).
		Foreground(TextColor).
		PaddingLeft(1).
		MarginBottom(1)

	s.CardMine = s.Card.
		BorderForeground(primary)

	s.CardFrom = lipgloss.NewStyle().
		Foreground(AccentColor).
		Bold(true)

	s.CardTime = lipgloss.NewStyle().
		Foreground(TextMutedColor).
		Italic(true)

	// Input styles
	s.Input = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 1)

	s.InputFocused = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(primary).
		Padding(0, 1)

	s.InputPrompt = lipgloss.NewStyle().
		Foreground(primary)

	s.InputText = lipgloss.NewStyle().
		Foreground(TextColor)

	s.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMutedColor)

	s.InputCounter = lipgloss.NewStyle().
		Foreground(TextMutedColor)

	s.InputOverLimit = lipgloss.NewStyle().
		Foreground(TextErrorColor).
		Bold(true)

	// Share screen styles
	s.ShareContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(primary).
		Padding(1, 2).
		Align(lipgloss.Center)

	s.ShareTitle = lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		MarginBottom(1).
		Align(lipgloss.Center)

	s.ShareHelp = lipgloss.NewStyle().
		Foreground(TextMutedColor).
		MarginTop(1).
		Align(lipgloss.Center)

	return s
}
