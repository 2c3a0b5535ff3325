package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/session"
)

const accountTimeout = 20 * time.Second

type accountAction int

const (
	actionRegistered accountAction = iota
	actionUpdated
	actionLoggedOut
	actionRefreshed
)

// userChangedMsg is sent after an account operation completes.
type userChangedMsg struct {
	action accountAction
	user   *model.User
	err    error
}

// register creates the account and makes it the active user.
func (m Model) register(in model.RegisterInput) tea.Cmd {
	s := m.deps.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), accountTimeout)
		defer cancel()
		u, err := s.Register(ctx, in)
		return userChangedMsg{action: actionRegistered, user: u, err: err}
	}
}

// updateProfile patches the active user's language and city.
func (m Model) updateProfile(in model.ProfileUpdate) tea.Cmd {
	s := m.deps.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), accountTimeout)
		defer cancel()
		u, err := s.UpdateProfile(ctx, in)
		return userChangedMsg{action: actionUpdated, user: u, err: err}
	}
}

// logout forgets the active user.
func (m Model) logout() tea.Cmd {
	s := m.deps.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), accountTimeout)
		defer cancel()
		err := s.Logout(ctx)
		return userChangedMsg{action: actionLoggedOut, err: err}
	}
}

// refreshUser reloads the persisted user from disk.
func (m Model) refreshUser() tea.Cmd {
	s := m.deps.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), accountTimeout)
		defer cancel()
		s.RefreshUserData(ctx)
		return userChangedMsg{action: actionRefreshed, user: s.User()}
	}
}

func (m Model) handleUserChanged(msg userChangedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn().Err(msg.err).Msg("account operation failed")
		switch {
		case errors.Is(msg.err, session.ErrNotLoggedIn):
			m.setStatus("Connexion requise.", true)
		case msg.action == actionRegistered:
			m.setStatus(errorDetail(msg.err, "Inscription impossible."), true)
		default:
			m.setStatus(errorDetail(msg.err, "Erreur"), true)
		}
		return m, nil
	}

	m.alertsView.SetUserID(m.deps.Session.UserID())

	switch msg.action {
	case actionRegistered:
		m.setStatus("Bienvenue "+msg.user.FirstName+" !", false)
	case actionUpdated:
		m.setStatus("Profil mis à jour.", false)
	case actionLoggedOut:
		m.setStatus("Déconnecté.", false)
	}
	return m, tea.Batch(m.profileView.Reload(), m.alertsView.Load())
}
