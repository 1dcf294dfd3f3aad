// Package theme provides the Lip Gloss color palette and reusable styles
// for the YAAN TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Sender labels used in the chat log.
const (
	SenderSystem    = "System"
	SenderUser      = "You"
	SenderAssistant = "YAAN"
	SenderError     = "Error"
)

// Sender colors.
var (
	ColorSystem    = lipgloss.Color("#9ca3af")
	ColorUser      = lipgloss.Color("#f9fafb")
	ColorAssistant = lipgloss.Color("#0078d4")
	ColorError     = lipgloss.Color("#dc2626")
)

// Connection colors.
var (
	ColorOnline     = lipgloss.Color("#107c10")
	ColorOffline    = lipgloss.Color("#dc2626")
	ColorConnecting = lipgloss.Color("#eab308")
)

// UI chrome colors.
var (
	ColorBorder = lipgloss.Color("#4b5563")
	ColorDimmed = lipgloss.Color("#6b7280")
	ColorBright = lipgloss.Color("#f9fafb")
	ColorAccent = lipgloss.Color("#0078d4")
)

// SenderColor returns the Lip Gloss color for a chat log sender label.
func SenderColor(sender string) lipgloss.Color {
	switch sender {
	case SenderSystem:
		return ColorSystem
	case SenderUser:
		return ColorUser
	case SenderAssistant:
		return ColorAssistant
	case SenderError:
		return ColorError
	default:
		return ColorDimmed
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright).
			Background(ColorAccent).
			Padding(0, 1)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)
)
