package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	aiservice "github.com/nhle/alloci/internal/ai"
	"github.com/nhle/alloci/internal/api"
	"github.com/nhle/alloci/internal/keys"
	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/notify"
	"github.com/nhle/alloci/internal/push"
	"github.com/nhle/alloci/internal/session"
	appsync "github.com/nhle/alloci/internal/sync"
	"github.com/nhle/alloci/internal/ui"
	aiview "github.com/nhle/alloci/internal/ui/ai"
	"github.com/nhle/alloci/internal/ui/alertform"
	"github.com/nhle/alloci/internal/ui/alerts"
	"github.com/nhle/alloci/internal/ui/command"
	configview "github.com/nhle/alloci/internal/ui/config"
	"github.com/nhle/alloci/internal/ui/detail"
	helpview "github.com/nhle/alloci/internal/ui/help"
	"github.com/nhle/alloci/internal/ui/notifications"
	"github.com/nhle/alloci/internal/ui/pharmacies"
	"github.com/nhle/alloci/internal/ui/profile"
	"github.com/nhle/alloci/internal/ui/profileform"
)

// shutdownTimeout bounds the push receiver shutdown on quit.
const shutdownTimeout = 2 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewAlerts ViewState = iota
	ViewNotifications
	ViewPharmacies
	ViewAI
	ViewProfile
	ViewDetail
	ViewAlertForm
	ViewProfileForm
	ViewHelp
	ViewCommand
	ViewSettings
)

// tabViews lists the views reachable from the header, in tab order.
var tabViews = []ViewState{ViewAlerts, ViewNotifications, ViewPharmacies, ViewAI, ViewProfile}

// Deps are the long-lived components the UI drives. Push may be nil when
// the local receiver is disabled.
type Deps struct {
	Config     *model.AppConfig
	ConfigPath string
	API        *api.Client
	Session    *session.Session
	Center     *notify.Center
	Poller     *appsync.UnreadPoller
	Chat       *aiservice.Session
	Push       *push.Receiver
	Logger     zerolog.Logger
	Version    string
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the long-lived components.
type Model struct {
	deps         Deps
	logger       zerolog.Logger
	currentView  ViewState
	previousView ViewState
	activeTab    int
	layout       ui.Layout
	keys         *keys.KeyMap

	alertsView    alerts.Model
	detail        detail.Model
	alertForm     alertform.Model
	notifications notifications.Model
	pharmacies    pharmacies.Model
	aiView        aiview.Model
	profileView   profile.Model
	profileForm   profileform.Model
	helpView      helpview.Model
	commandView   command.Model
	settingsView  configview.Model

	ready       bool
	unreadCount int
	status      string
	statusErr   bool
}

// New creates the root application model.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	cfg := d.Config
	window := time.Duration(cfg.Alerts.WindowHours) * time.Hour

	m := Model{
		deps:          d,
		logger:        d.Logger,
		currentView:   ViewAlerts,
		keys:          k,
		alertsView:    alerts.New(d.API, k, window, 80, 24),
		detail:        detail.New(k, 80, 24),
		alertForm:     alertform.New(80, 24),
		notifications: notifications.New(d.Center, k, 80, 24),
		pharmacies:    pharmacies.New(d.API, k, cfg.Location.Point(), cfg.Location.MaxKM, 80, 24),
		aiView:        aiview.New(d.Chat, k, 80, 24),
		profileView:   profile.New(d.Session, d.API, k, cfg.Payments, 80, 24),
		profileForm:   profileform.New(80, 24),
		helpView:      helpview.New(k, d.Version, 80, 24),
		commandView:   command.New(80, 24),
		settingsView: configview.New(d.ConfigPath, *cfg,
			configview.CheckBackend, model.SaveConfig, k, 80, 24),
		unreadCount:   d.Poller.Count(),
	}
	m.alertsView.SetUserID(d.Session.UserID())
	return m
}

// Init loads the first screens, starts polling and, when enabled, waits
// for pushes.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.alertsView.Init(),
		m.pharmacies.Init(),
		m.deps.Poller.Start(),
		m.profileView.Reload(),
	}
	if m.deps.Push != nil {
		cmds = append(cmds, m.deps.Push.Wait())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.Width, m.layout.ContentHeight()
		m.alertsView.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.alertForm.SetSize(w, h)
		m.notifications.SetSize(w, h)
		m.pharmacies.SetSize(w, h)
		m.aiView.SetSize(w, h)
		m.profileView.SetSize(w, h)
		m.profileForm.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.settingsView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.UnreadCountMsg:
		m.unreadCount = msg.Count
		return m, m.deps.Poller.WaitForNextResult()

	case push.ReceivedMsg:
		return m.handlePush(msg.Payload)

	// Results of background requests go to their owner whatever is on
	// screen.
	case alerts.LoadedMsg, alerts.ResolvedMsg:
		var cmd tea.Cmd
		m.alertsView, cmd = m.alertsView.Update(msg)
		return m, cmd

	case alerts.MarkedReadMsg:
		var cmd tea.Cmd
		m.alertsView, cmd = m.alertsView.Update(msg)
		if msg.Err == nil {
			m.detail.MarkRead(msg.AlertID)
			m.deps.Poller.RefreshNow()
		}
		return m, cmd

	case alerts.SelectedMsg:
		m.detail.SetAlert(msg.Alert)
		m.previousView = m.currentView
		m.currentView = ViewDetail
		return m, nil

	case alerts.NewAlertMsg:
		return m.openAlertForm()

	case detail.BackMsg:
		m.currentView = ViewAlerts
		return m, nil

	case detail.ActionMsg:
		switch msg.Action {
		case detail.ActionMarkRead:
			if cmd := m.alertsView.MarkRead(msg.AlertID); cmd != nil {
				return m, cmd
			}
			m.setStatus("Connexion requise.", true)
			return m, nil
		case detail.ActionResolve:
			m.currentView = ViewAlerts
			return m, m.alertsView.Resolve(msg.AlertID)
		}
		return m, nil

	case alertform.SubmitMsg:
		m.currentView = ViewAlerts
		m.setStatus("Publication...", false)
		return m, alertform.Publish(m.deps.API, m.deps.Center, msg)

	case alertform.CancelMsg:
		m.currentView = ViewAlerts
		return m, nil

	case alertform.PublishedMsg:
		if msg.Err != nil {
			m.logger.Warn().Err(msg.Err).Msg("publishing alert")
			m.setStatus(errorDetail(msg.Err, "Impossible de publier l'alerte."), true)
			return m, nil
		}
		m.setStatus("Alerte publiée.", false)
		m.notifications.Refresh()
		m.deps.Poller.RefreshNow()
		return m, m.alertsView.Load()

	case notifications.ChangedMsg:
		var cmd tea.Cmd
		m.notifications, cmd = m.notifications.Update(msg)
		return m, cmd

	case pharmacies.LoadedMsg:
		var cmd tea.Cmd
		m.pharmacies, cmd = m.pharmacies.Update(msg)
		return m, cmd

	case aiview.ChunkMsg:
		// The chat keeps streaming while another tab is shown.
		var cmd tea.Cmd
		m.aiView, cmd = m.aiView.Update(msg)
		return m, cmd

	case profile.PremiumMsg, profile.HistoryMsg, profile.InitiatedMsg, profile.ValidatedMsg:
		var cmd tea.Cmd
		m.profileView, cmd = m.profileView.Update(msg)
		return m, cmd

	case profile.RegisterRequestMsg:
		m.previousView = m.currentView
		m.currentView = ViewProfileForm
		cmd := m.profileForm.StartRegister()
		return m, cmd

	case profile.EditRequestMsg:
		u := m.deps.Session.User()
		if u == nil {
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewProfileForm
		cmd := m.profileForm.StartEdit(*u)
		return m, cmd

	case profile.LogoutRequestMsg:
		return m, m.logout()

	case profileform.RegisterMsg:
		m.currentView = ViewProfile
		return m, m.register(msg.Input)

	case profileform.UpdateMsg:
		m.currentView = ViewProfile
		return m, m.updateProfile(msg.Update)

	case profileform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case configview.SavedMsg:
		return m.applySettings(msg.Config)

	case configview.ConfigDoneMsg:
		m.currentView = m.previousView
		return m, nil

	case userChangedMsg:
		return m.handleUserChanged(msg)

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(msg)

	case command.UnknownMsg:
		m.currentView = m.previousView
		m.setStatus("Commande inconnue: "+msg.Input, true)
		return m, nil

	case tea.KeyMsg:
		if next, cmd, handled := m.handleGlobalKeys(msg); handled {
			return next, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// capturesText reports whether the active view owns the keyboard for
// free text, in which case single-letter global keys are not intercepted.
func (m Model) capturesText() bool {
	switch m.currentView {
	case ViewAI, ViewAlertForm, ViewProfileForm, ViewCommand:
		return true
	case ViewSettings:
		return m.settingsView.Editing()
	case ViewPharmacies:
		return m.pharmacies.Searching()
	}
	return false
}

func (m Model) handleGlobalKeys(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m, m.quit(), true
	}

	if m.currentView == ViewAI {
		switch {
		case key.Matches(msg, m.keys.NextTab):
			next, cmd := m.switchTab(m.activeTab + 1)
			return next, cmd, true
		case key.Matches(msg, m.keys.Back) && !m.aiView.Streaming():
			next, cmd := m.switchTab(0)
			return next, cmd, true
		}
		return m, nil, false
	}

	if m.currentView == ViewCommand && key.Matches(msg, m.keys.Back) {
		m.currentView = m.previousView
		return m, nil, true
	}

	if m.capturesText() {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.isTabView() {
			return m, m.quit(), true
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		cmd := m.commandView.Focus()
		return m, cmd, true

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
	}

	if !m.isTabView() {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.TabAlerts):
		next, cmd := m.switchTab(0)
		return next, cmd, true
	case key.Matches(msg, m.keys.TabNotifications):
		next, cmd := m.switchTab(1)
		return next, cmd, true
	case key.Matches(msg, m.keys.TabPharmacies):
		next, cmd := m.switchTab(2)
		return next, cmd, true
	case key.Matches(msg, m.keys.TabAI):
		next, cmd := m.switchTab(3)
		return next, cmd, true
	case key.Matches(msg, m.keys.TabProfile):
		next, cmd := m.switchTab(4)
		return next, cmd, true
	case key.Matches(msg, m.keys.NextTab):
		next, cmd := m.switchTab(m.activeTab + 1)
		return next, cmd, true
	}
	return m, nil, false
}

func (m Model) isTabView() bool {
	for _, v := range tabViews {
		if m.currentView == v {
			return true
		}
	}
	return false
}

// switchTab activates tab i, wrapping around, and refreshes views whose
// data may have changed in the background.
func (m Model) switchTab(i int) (Model, tea.Cmd) {
	m.activeTab = i % len(tabViews)
	m.currentView = tabViews[m.activeTab]
	m.status = ""

	switch m.currentView {
	case ViewNotifications:
		m.notifications.Refresh()
	case ViewAI:
		cmd := m.aiView.Focus()
		return m, cmd
	case ViewProfile:
		cmd := m.profileView.Reload()
		return m, cmd
	}
	return m, nil
}

// handlePush records a received push in the notification center and
// bumps the unread counter ahead of the next poll.
func (m Model) handlePush(p push.Payload) (Model, tea.Cmd) {
	item := m.deps.Center.Receive(p.Title, p.Body, p.Data)
	m.unreadCount = m.deps.Poller.Increment()
	m.notifications.Refresh()
	m.logger.Debug().Str("id", item.ID).Msg("push received")

	m.setStatus("Nouvelle notification: "+item.TitleText(), false)
	return m, tea.Batch(m.deps.Push.Wait(), m.alertsView.Load())
}

func (m Model) openAlertForm() (Model, tea.Cmd) {
	userID, city := "", ""
	if u := m.deps.Session.User(); u != nil {
		userID, city = u.ID, u.City
	}
	m.previousView = m.currentView
	m.currentView = ViewAlertForm
	cmd := m.alertForm.Start(userID, city)
	return m, cmd
}

// executeCommand handles a command from the command palette.
func (m Model) executeCommand(c command.CommandMsg) (Model, tea.Cmd) {
	switch c.Name {
	case command.Refresh:
		m.deps.Poller.RefreshNow()
		m.notifications.Refresh()
		return m, tea.Batch(
			m.alertsView.Load(),
			m.pharmacies.Load(),
			m.profileView.Reload(),
			m.refreshUser(),
		)
	case command.Logout:
		return m, m.logout()
	case command.ClearNotifications:
		m.deps.Center.Clear()
		m.notifications.Refresh()
		m.setStatus("Notifications effacées.", false)
		return m, nil
	case command.NewChat:
		m.aiView.Reset()
		return m.switchTab(3)
	case command.City:
		next, cmd := m.switchTab(2)
		load := next.pharmacies.SetCity(pharmacies.MatchCity(c.Args))
		return next, tea.Batch(cmd, load)
	case command.Settings:
		m.previousView = m.currentView
		m.currentView = ViewSettings
		return m, nil
	case command.Quit:
		return m, m.quit()
	}
	return m, nil
}

// applySettings takes saved settings into use. The backend URL and push
// address apply from the next start.
func (m Model) applySettings(cfg model.AppConfig) (Model, tea.Cmd) {
	restart := cfg.Backend.BaseURL != m.deps.Config.Backend.BaseURL ||
		cfg.Push.ListenAddr != m.deps.Config.Push.ListenAddr
	*m.deps.Config = cfg

	m.pharmacies.SetLocation(cfg.Location.Point(), cfg.Location.MaxKM)
	m.deps.Chat.SetTemperature(cfg.AI.Temperature)

	if restart {
		m.setStatus("Paramètres enregistrés. Redémarrez pour changer de serveur.", false)
	} else {
		m.setStatus("Paramètres enregistrés.", false)
	}
	return m, nil
}

// quit stops background work before exiting.
func (m Model) quit() tea.Cmd {
	m.deps.Poller.Stop()
	m.deps.Chat.Stop()
	if err := m.deps.Center.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("flushing notifications")
	}
	if m.deps.Push != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := m.deps.Push.Close(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("stopping push receiver")
		}
	}
	return tea.Quit
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewAlerts:
		m.alertsView, cmd = m.alertsView.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewAlertForm:
		m.alertForm, cmd = m.alertForm.Update(msg)
	case ViewNotifications:
		m.notifications, cmd = m.notifications.Update(msg)
	case ViewPharmacies:
		m.pharmacies, cmd = m.pharmacies.Update(msg)
	case ViewAI:
		m.aiView, cmd = m.aiView.Update(msg)
	case ViewProfile:
		m.profileView, cmd = m.profileView.Update(msg)
	case ViewProfileForm:
		m.profileForm, cmd = m.profileForm.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	}

	return m, cmd
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func errorDetail(err error, fallback string) string {
	if d := api.ErrorDetail(err); d != "" {
		return d
	}
	return fallback
}
