package detail

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/alloci/internal/keys"
	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/theme"
	"github.com/nhle/alloci/internal/ui"
)

// BackMsg signals the parent to navigate back to the alerts feed.
type BackMsg struct{}

// Action names carried by ActionMsg.
const (
	ActionMarkRead = "mark_read"
	ActionResolve  = "resolve"
)

// ActionMsg asks the parent to run an action on the displayed alert.
type ActionMsg struct {
	Action  string
	AlertID string
}

// Model is the alert detail view.
type Model struct {
	alert    *model.Alert
	viewport viewport.Model
	keys     *keys.KeyMap
	now      func() time.Time
	width    int
	height   int
}

// New creates a new detail view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		now:      time.Now,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.MarkRead):
			if m.alert != nil && !m.alert.Read {
				return m, m.action(ActionMarkRead)
			}
			return m, nil

		case key.Matches(msg, m.keys.Resolve):
			if m.alert != nil {
				return m, m.action(ActionResolve)
			}
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) action(name string) tea.Cmd {
	id := m.alert.ID
	return func() tea.Msg {
		return ActionMsg{Action: name, AlertID: id}
	}
}

// View renders the detail view.
func (m Model) View() string {
	if m.alert == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Aucune alerte sélectionnée")
	}
	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.alert == nil {
		return ""
	}
	a := m.alert

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBrand)
	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	readBadge := theme.DimmedStyle.Render("non lu")
	if a.Read {
		readBadge = theme.SuccessStyle.Render("lu")
	}

	sections := []string{
		titleStyle.Render(a.Title),
		lipgloss.JoinHorizontal(lipgloss.Top,
			theme.AlertTypeStyle(a.Type).Render(a.Type.Label()), "  ", readBadge),
		"",
	}

	row := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, fmt.Sprintf("%-10s %s",
			metaStyle.Render(label), valStyle.Render(value)))
	}
	row("Ville:", a.City)
	row("Statut:", a.Status)
	if !a.CreatedAt.IsZero() {
		row("Publiée:", fmt.Sprintf("%s (%s)",
			a.CreatedAt.Local().Format("02/01/2006 15:04"),
			ui.RelativeTime(a.CreatedAt.Time, m.now())))
	}

	separator := lipgloss.NewStyle().
		Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	desc := a.Description
	if desc == "" {
		desc = theme.HelpStyle.Render("Pas de description")
	}
	sections = append(sections, lipgloss.NewStyle().Width(max(m.width-4, 20)).Render(desc))

	if len(a.Images) > 0 {
		sections = append(sections, "", separator, "",
			lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Photos (%d)", len(a.Images))))
		for i, img := range a.Images {
			sections = append(sections, fmt.Sprintf("  %d. %s", i+1, describeImage(img)))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// describeImage summarises a data URI as "image/png, 12 kB".
func describeImage(uri string) string {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return "image"
	}
	mime := strings.TrimSuffix(header, ";base64")
	size := base64.StdEncoding.DecodedLen(len(payload))
	return fmt.Sprintf("%s, %s", mime, humanize.Bytes(uint64(size)))
}

// SetAlert updates the alert being displayed and re-renders the content.
func (m *Model) SetAlert(a model.Alert) {
	m.alert = &a
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// MarkRead flags the displayed alert read if it matches alertID.
func (m *Model) MarkRead(alertID string) {
	if m.alert == nil || m.alert.ID != alertID {
		return
	}
	m.alert.Read = true
	m.viewport.SetContent(m.renderContent())
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.alert != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
