package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/alloci/internal/keys"
	"github.com/nhle/alloci/internal/theme"
)

// Model is the keyboard shortcuts overlay.
type Model struct {
	keys    *keys.KeyMap
	help    help.Model
	width   int
	height  int
	version string
}

// New creates a new help view model.
func New(km *keys.KeyMap, version string, width, height int) Model {
	h := help.New()
	h.ShowAll = true
	m := Model{keys: km, help: h, version: version}
	m.SetSize(width, height)
	return m
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorBrand).
		MarginBottom(1).
		Render("Allô Services CI " + m.version)

	about := theme.DimmedStyle.Render(
		"Alertes, pharmacies de garde et assistant Allô IA pour la Côte d'Ivoire.",
	)

	content := lipgloss.JoinVertical(lipgloss.Left, title, about, "", m.help.View(m.keys))

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = max(width-8, 0)
}
