package app

import (
	appsync "github.com/nhle/alloci/internal/sync"
	"github.com/nhle/alloci/internal/theme"
	"github.com/nhle/alloci/internal/ui"
)

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Chargement..."
	}

	tabs := []ui.Tab{
		{Label: "Alertes", Badge: m.unreadCount},
		{Label: "Notifications", Badge: m.deps.Center.Len()},
		{Label: "Pharmacies"},
		{Label: "Allô IA"},
		{Label: "Profil"},
	}
	header := m.layout.RenderHeader("Allô Services CI", tabs, m.activeTab, m.headerStatus())
	statusBar := m.layout.RenderStatusBar(m.statusLine())

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewAlerts:
		return m.alertsView.View()
	case ViewDetail:
		return m.detail.View()
	case ViewAlertForm:
		return m.alertForm.View()
	case ViewNotifications:
		return m.notifications.View()
	case ViewPharmacies:
		return m.pharmacies.View()
	case ViewAI:
		return m.aiView.View()
	case ViewProfile:
		return m.profileView.View()
	case ViewProfileForm:
		return m.profileForm.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewSettings:
		return m.settingsView.View()
	default:
		return ""
	}
}

// headerStatus shows who is signed in and whether the counter is stale.
func (m Model) headerStatus() string {
	who := "Invité"
	if u := m.deps.Session.User(); u != nil {
		who = u.FullName()
	}
	if m.deps.Poller.Status().State == appsync.SyncError {
		return "⚠ hors ligne | " + who
	}
	return who
}

func (m Model) statusLine() string {
	if m.status != "" {
		if m.statusErr {
			return theme.ErrorStyle.Render(m.status)
		}
		return m.status
	}
	return m.keyHints()
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? fermer l'aide | esc retour"
	case ViewCommand:
		return "enter exécuter | tab compléter | esc retour"
	case ViewDetail:
		return "esc retour | m marquer lu | x résoudre | j/k défiler"
	case ViewAlertForm, ViewProfileForm:
		return "enter valider | esc annuler"
	case ViewNotifications:
		return "d supprimer | C tout effacer | tab onglet suivant | q quitter"
	case ViewPharmacies:
		return "g de garde | l près de moi | / ville | r recharger | q quitter"
	case ViewAI:
		if m.aiView.Streaming() {
			return "ctrl+s / esc arrêter la réponse"
		}
		return "enter envoyer | ctrl+r récents | pgup/pgdown défiler | tab onglet suivant"
	case ViewProfile:
		return "e profil | p premium | f filtrer | L déconnexion | r recharger"
	default:
		return "enter ouvrir | n nouvelle alerte | m lu | x résoudre | : commandes | ? aide | q quitter"
	}
}
