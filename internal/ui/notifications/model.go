package notifications

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/alloci/internal/keys"
	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/theme"
	"github.com/nhle/alloci/internal/ui"
)

// Center is the notification store the view edits.
type Center interface {
	Items() []model.NotificationItem
	RemoveAt(index int)
	Clear()
}

// ChangedMsg tells the view the center's contents changed.
type ChangedMsg struct{}

type item struct {
	n model.NotificationItem
}

func (i item) FilterValue() string { return i.n.TitleText() }

type itemDelegate struct {
	now func() time.Time
}

func (d itemDelegate) Height() int { return 2 }

func (d itemDelegate) Spacing() int { return 1 }

func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(item)
	if !ok {
		return
	}
	n := it.n

	title := n.TitleText()
	if title == "" {
		title = "Notification"
	}
	age := theme.DimmedStyle.Render(ui.RelativeTime(n.ReceivedTime(), d.now()))
	first := fmt.Sprintf("%s  %s",
		lipgloss.NewStyle().Bold(true).Render(ui.Truncate(title, max(m.Width()-20, 10))), age)

	body := n.BodyText()
	if city := dataCity(n.Data); city != "" {
		body = strings.TrimSpace(body + " • " + city)
	}
	second := "  " + theme.DimmedStyle.Render(ui.Truncate(body, max(m.Width()-6, 10)))

	style := lipgloss.NewStyle().PaddingLeft(2)
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}
	fmt.Fprint(w, style.Render(first+"\n"+second))
}

// dataCity pulls the optional "city" field out of a push payload.
func dataCity(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var payload struct {
		City string `json:"city"`
	}
	if json.Unmarshal(data, &payload) != nil {
		return ""
	}
	return payload.City
}

// Model is the notification center view.
type Model struct {
	list    list.Model
	center  Center
	keys    *keys.KeyMap
	confirm bool
	width   int
	height  int
}

// New creates the notification center view.
func New(c Center, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, itemDelegate{now: time.Now}, width, height-1)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	m := Model{list: l, center: c, keys: k, width: width, height: height}
	m.Refresh()
	return m
}

// Refresh reloads the list from the center, keeping the cursor in range.
func (m *Model) Refresh() {
	items := m.center.Items()
	out := make([]list.Item, len(items))
	for i, n := range items {
		out[i] = item{n: n}
	}
	idx := m.list.Index()
	m.list.SetItems(out)
	if idx >= len(out) {
		idx = len(out) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
}

// Update handles messages for the notification center view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ChangedMsg:
		m.Refresh()
		return m, nil

	case tea.KeyMsg:
		if m.confirm {
			m.confirm = false
			if msg.String() == "y" || msg.String() == "o" {
				m.center.Clear()
				m.Refresh()
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Delete):
			if len(m.list.Items()) > 0 {
				m.center.RemoveAt(m.list.Index())
				m.Refresh()
			}
			return m, nil

		case key.Matches(msg, m.keys.ClearAll):
			if len(m.list.Items()) > 0 {
				m.confirm = true
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the notification center.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			theme.HeaderStyle.Render("Notifications"),
			"",
			theme.HelpStyle.Render("Aucune notification sur les dernières 24 heures."),
		)
	}
	footer := ""
	if m.confirm {
		footer = theme.ErrorStyle.Render("Tout effacer ? (o/n)")
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), footer)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-1)
}
