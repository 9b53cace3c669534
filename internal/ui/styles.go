package ui

import "github.com/charmbracelet/lipgloss"

// Colors for the UI theme
var (
	ColorPrimary   = lipgloss.Color("#A78BFA") // Soft Purple (Lavender 400)
	ColorSecondary = lipgloss.Color("#22D3EE") // Bright Cyan (Cyan 400)
	ColorSuccess   = lipgloss.Color("#059669") // Emerald 600
	ColorWarning   = lipgloss.Color("#D97706") // Amber 600
	ColorError     = lipgloss.Color("#DC2626") // Red 600
	ColorMuted     = lipgloss.Color("#9CA3AF") // Gray 400
	ColorText      = lipgloss.Color("#F1F5F9") // Slate 100
	ColorBg        = lipgloss.Color("#0F172A") // Slate 900
	ColorAccent    = lipgloss.Color("#F472B6") // Pink 400
)

// Styles contains all UI styles.
type Styles struct {
	UserName      lipgloss.Style
	AssistantName lipgloss.Style
	Text          lipgloss.Style
	Attachment    lipgloss.Style
	Error         lipgloss.Style
	Spinner       lipgloss.Style
	StatusBar     lipgloss.Style
	Staged        lipgloss.Style
	Input         lipgloss.Style
	Viewport      lipgloss.Style
	Muted         lipgloss.Style
}

// DefaultStyles returns the default UI styles.
func DefaultStyles() *Styles {
	return &Styles{
		UserName: lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true),

		AssistantName: lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true),

		Text: lipgloss.NewStyle().
			Foreground(ColorText),

		Attachment: lipgloss.NewStyle().
			Foreground(ColorAccent).
			MarginLeft(2),

		Error: lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true),

		Spinner: lipgloss.NewStyle().
			Foreground(ColorPrimary),

		StatusBar: lipgloss.NewStyle().
			Foreground(ColorMuted).
			Background(ColorBg).
			Padding(0, 1),

		Staged: lipgloss.NewStyle().
			Foreground(ColorWarning),

		Input: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1),

		Viewport: lipgloss.NewStyle().
			MarginBottom(1),

		Muted: lipgloss.NewStyle().
			Foreground(ColorMuted),
	}
}
