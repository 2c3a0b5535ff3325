package alerts

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/alloci/internal/api"
	"github.com/nhle/alloci/internal/keys"
	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/theme"
)

const requestTimeout = 15 * time.Second

// Backend is the subset of the API client used by the alerts feed.
type Backend interface {
	ListAlerts(ctx context.Context, f api.AlertFilter) ([]model.Alert, error)
	MarkAlertRead(ctx context.Context, alertID, userID string) error
	ResolveAlert(ctx context.Context, alertID string) error
}

// LoadedMsg carries a fetched alerts page.
type LoadedMsg struct {
	Alerts []model.Alert
	Err    error
}

// SelectedMsg asks the parent to open the alert detail.
type SelectedMsg struct {
	Alert model.Alert
}

// NewAlertMsg asks the parent to open the publish form.
type NewAlertMsg struct{}

// MarkedReadMsg reports the outcome of a mark-read request.
type MarkedReadMsg struct {
	AlertID string
	Err     error
}

// ResolvedMsg reports the outcome of a resolve request.
type ResolvedMsg struct {
	AlertID string
	Err     error
}

// Model is the alerts feed. Only alerts from the last window are shown.
type Model struct {
	list    list.Model
	backend Backend
	keys    *keys.KeyMap
	userID  string
	window  time.Duration
	now     func() time.Time
	status  string
	isErr   bool
	loading bool
	width   int
	height  int
}

// New creates the alerts feed.
func New(b Backend, k *keys.KeyMap, window time.Duration, width, height int) Model {
	if window <= 0 {
		window = model.DefaultAlertWindow
	}
	now := time.Now
	l := list.New([]list.Item{}, itemDelegate{now: now}, width, height-2)
	l.Title = "Alertes"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle
	l.SetStatusBarItemName("alerte", "alertes")

	return Model{
		list:    l,
		backend: b,
		keys:    k,
		window:  window,
		now:     now,
		loading: true,
		width:   width,
		height:  height,
	}
}

// Init loads the feed.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Load fetches the alerts in the background.
func (m Model) Load() tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		alerts, err := b.ListAlerts(ctx, api.AlertFilter{})
		return LoadedMsg{Alerts: alerts, Err: err}
	}
}

// SetUserID scopes mark-read requests to the signed-in user.
func (m *Model) SetUserID(id string) {
	m.userID = id
}

// Alerts returns the alerts currently displayed.
func (m Model) Alerts() []model.Alert {
	items := m.list.Items()
	out := make([]model.Alert, 0, len(items))
	for _, it := range items {
		if a, ok := it.(AlertItem); ok {
			out = append(out, a.Alert)
		}
	}
	return out
}

// Status returns the last status line and whether it is an error.
func (m Model) Status() (string, bool) {
	return m.status, m.isErr
}

// Update handles messages for the alerts feed.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.setStatus("Impossible de charger les alertes.", true)
			return m, nil
		}
		m.status = ""
		recent := model.FilterRecent(msg.Alerts, m.now(), m.window)
		items := make([]list.Item, len(recent))
		for i, a := range recent {
			items[i] = AlertItem{Alert: a}
		}
		return m, m.list.SetItems(items)

	case MarkedReadMsg:
		if msg.Err != nil {
			m.setStatus(errorText(msg.Err), true)
			return m, nil
		}
		m.setRead(msg.AlertID)
		return m, nil

	case ResolvedMsg:
		if msg.Err != nil {
			m.setStatus(errorText(msg.Err), true)
			return m, nil
		}
		m.setStatus("Alerte résolue.", false)
		return m, m.Load()

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		if it, ok := m.list.SelectedItem().(AlertItem); ok {
			return m, func() tea.Msg { return SelectedMsg{Alert: it.Alert} }
		}
		return m, nil

	case key.Matches(msg, m.keys.NewAlert):
		return m, func() tea.Msg { return NewAlertMsg{} }

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, m.Load()

	case key.Matches(msg, m.keys.MarkRead):
		it, ok := m.list.SelectedItem().(AlertItem)
		if !ok || it.Alert.Read {
			return m, nil
		}
		cmd := m.MarkRead(it.Alert.ID)
		if cmd == nil {
			m.setStatus("Connexion requise.", true)
		}
		return m, cmd

	case key.Matches(msg, m.keys.Resolve):
		if it, ok := m.list.SelectedItem().(AlertItem); ok {
			return m, m.Resolve(it.Alert.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// MarkRead returns a command marking alertID read for the current user,
// or nil when nobody is signed in.
func (m Model) MarkRead(alertID string) tea.Cmd {
	if m.userID == "" {
		return nil
	}
	b, userID := m.backend, m.userID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return MarkedReadMsg{AlertID: alertID, Err: b.MarkAlertRead(ctx, alertID, userID)}
	}
}

// Resolve returns a command resolving alertID.
func (m Model) Resolve(alertID string) tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return ResolvedMsg{AlertID: alertID, Err: b.ResolveAlert(ctx, alertID)}
	}
}

// setRead flags an alert read in place. It stays in the feed.
func (m *Model) setRead(alertID string) {
	for i, it := range m.list.Items() {
		a, ok := it.(AlertItem)
		if !ok || a.Alert.ID != alertID {
			continue
		}
		a.Alert.Read = true
		m.list.SetItem(i, a)
		return
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.isErr = isErr
}

// errorText returns the backend detail when there is one.
func errorText(err error) string {
	if d := api.ErrorDetail(err); d != "" {
		return d
	}
	return "Erreur"
}

// View renders the feed.
func (m Model) View() string {
	if m.loading && len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Chargement des alertes...")
	}
	if len(m.list.Items()) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			theme.HeaderStyle.Render("Alertes"),
			"",
			theme.HelpStyle.Render("Aucune alerte récente. n pour publier."),
			m.renderStatus(),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), m.renderStatus())
}

func (m Model) renderStatus() string {
	switch {
	case m.status == "":
		return ""
	case m.isErr:
		return theme.ErrorStyle.Render(m.status)
	default:
		return theme.SuccessStyle.Render(m.status)
	}
}

// SetSize updates the feed dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-1)
}
