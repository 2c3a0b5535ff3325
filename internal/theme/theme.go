package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/alloci/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBrand   = lipgloss.AdaptiveColor{Dark: "#2FA865", Light: "#0A7C3A"}
	ColorBrandDk = lipgloss.AdaptiveColor{Dark: "#0A7C3A", Light: "#0F5132"}
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#0A7C3A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#9A6700"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#B00020"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FFFFFF")).
	Background(ColorBrandDk).
	Padding(0, 1)

// TabStyle renders an inactive tab in the header.
var TabStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Padding(0, 1)

// ActiveTabStyle renders the selected tab.
var ActiveTabStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBrand).
	Underline(true).
	Padding(0, 1)

// BadgeStyle renders the unread counter next to a tab.
var BadgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FFFFFF")).
	Background(ColorRed).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle wraps the detail view content area.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBrand).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBrand)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// DimmedStyle renders secondary text such as timestamps.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// ErrorStyle renders inline error messages.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed).
	Bold(true)

// SuccessStyle renders confirmations such as "Alerte publiée".
var SuccessStyle = lipgloss.NewStyle().
	Foreground(ColorGreen).
	Bold(true)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// UserBubbleStyle and AssistantBubbleStyle frame chat messages.
var (
	UserBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(ColorBrand).
			Padding(0, 1)

	AssistantBubbleStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorder).
				Padding(0, 1)
)

// DutyBadgeStyle marks an on-duty pharmacy ("De garde").
var DutyBadgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGreen).
	Padding(0, 1)

// AlertTypeStyle returns a color-coded style for the given alert type.
func AlertTypeStyle(t model.AlertType) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch t {
	case model.AlertFire:
		return base.Foreground(ColorRed)
	case model.AlertAccident:
		return base.Foreground(ColorOrange)
	case model.AlertFlood:
		return base.Foreground(ColorBlue)
	case model.AlertMissingPerson, model.AlertWantedNotice:
		return base.Foreground(ColorMagenta)
	default:
		return base.Foreground(ColorGray)
	}
}

// PaymentStatusStyle returns a color-coded chip for a payment status.
func PaymentStatusStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch status {
	case model.PaymentAccepted:
		return base.Foreground(ColorGreen)
	case model.PaymentRefused:
		return base.Foreground(ColorRed)
	case model.PaymentPending:
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorGray)
	}
}
