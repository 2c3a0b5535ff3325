package alerts

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/theme"
	"github.com/nhle/alloci/internal/ui"
)

// AlertItem wraps a model.Alert so it can be used in a bubbles/list.
type AlertItem struct {
	Alert model.Alert
}

// FilterValue returns the string used for fuzzy filtering.
func (i AlertItem) FilterValue() string { return i.Alert.Title + " " + i.Alert.City }

// itemDelegate draws an alert on two lines: badges and title, then
// city, age and the start of the description.
type itemDelegate struct {
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d itemDelegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d itemDelegate) Spacing() int { return 1 }

// Update handles per-item messages (unused).
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single alert.
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(AlertItem)
	if !ok {
		return
	}
	a := it.Alert

	marker := lipgloss.NewStyle().Foreground(theme.ColorBrand).Render("●")
	readBadge := ""
	if a.Read {
		marker = " "
		readBadge = theme.DimmedStyle.Render(" lu")
	}

	typeBadge := theme.AlertTypeStyle(a.Type).Render(a.Type.Label())
	title := ui.Truncate(a.Title, max(m.Width()-24, 10))

	city := a.City
	if city == "" {
		city = "Non disponible"
	}
	meta := theme.DimmedStyle.Render(fmt.Sprintf(
		"%s • %s • %s",
		city,
		ui.RelativeTime(a.CreatedAt.Time, d.now()),
		ui.Truncate(a.Description, max(m.Width()-40, 10)),
	))

	first := fmt.Sprintf("%s %s %s%s", marker, typeBadge, title, readBadge)
	second := "  " + meta

	style := lipgloss.NewStyle().PaddingLeft(2)
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}
	fmt.Fprint(w, style.Render(first+"\n"+second))
}
