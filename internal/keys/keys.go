package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Tabs
	TabAlerts        key.Binding
	TabNotifications key.Binding
	TabPharmacies    key.Binding
	TabAI            key.Binding
	TabProfile       key.Binding
	NextTab          key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh
	Refresh key.Binding

	// Alerts
	NewAlert key.Binding
	MarkRead key.Binding
	Resolve  key.Binding

	// Notifications
	Delete   key.Binding
	ClearAll key.Binding

	// Pharmacies
	ToggleDuty key.Binding
	NearMe     key.Binding
	Search     key.Binding

	// Profile
	Edit         key.Binding
	Subscribe    key.Binding
	ConfirmPay   key.Binding
	CancelPay    key.Binding
	FilterStatus key.Binding
	Logout       key.Binding

	// AI chat
	StopStream key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "bas"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "haut"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "ouvrir"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "retour"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quitter"),
		),
		TabAlerts: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "alertes"),
		),
		TabNotifications: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "notifications"),
		),
		TabPharmacies: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "pharmacies"),
		),
		TabAI: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "Allô IA"),
		),
		TabProfile: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "profil"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "onglet suivant"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "commandes"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "aide"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "actualiser"),
		),
		NewAlert: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "nouvelle alerte"),
		),
		MarkRead: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "marquer lue"),
		),
		Resolve: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "résoudre"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "supprimer"),
		),
		ClearAll: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "tout effacer"),
		),
		ToggleDuty: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "de garde"),
		),
		NearMe: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "près de moi"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filtrer par ville"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "modifier le profil"),
		),
		Subscribe: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "passer premium"),
		),
		ConfirmPay: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "confirmer le paiement"),
		),
		CancelPay: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "annuler le paiement"),
		),
		FilterStatus: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "filtrer les paiements"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "se déconnecter"),
		),
		StopStream: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "arrêter la réponse"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.NextTab, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.TabAlerts, k.TabNotifications, k.TabPharmacies, k.TabAI, k.TabProfile, k.NextTab},
		{k.Command, k.Help, k.Refresh},
		{k.NewAlert, k.MarkRead, k.Resolve, k.Delete, k.ClearAll},
		{k.ToggleDuty, k.NearMe, k.Search},
		{k.Edit, k.Subscribe, k.ConfirmPay, k.CancelPay, k.FilterStatus, k.Logout},
		{k.StopStream},
	}
}
