package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/alloci/internal/api"
	"github.com/nhle/alloci/internal/keys"
	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/theme"
	"github.com/nhle/alloci/internal/ui"
)

const requestTimeout = 20 * time.Second

// Payments is the part of the API used for premium subscriptions.
type Payments interface {
	InitiatePayment(ctx context.Context, provider string, req model.PaymentRequest) (*model.PaymentInitiation, error)
	ValidatePayment(ctx context.Context, provider string, v model.PaymentValidation) (string, error)
	PaymentHistory(ctx context.Context, userID, status string) ([]model.Payment, error)
}

// Account is the signed-in user source.
type Account interface {
	User() *model.User
	CheckPremium(ctx context.Context) (*model.SubscriptionStatus, error)
}

// RegisterRequestMsg asks the parent to open the sign-up form.
type RegisterRequestMsg struct{}

// EditRequestMsg asks the parent to open the profile editor.
type EditRequestMsg struct{}

// LogoutRequestMsg asks the parent to log the user out.
type LogoutRequestMsg struct{}

// PremiumMsg carries a subscription check.
type PremiumMsg struct {
	Status *model.SubscriptionStatus
	Err    error
}

// HistoryMsg carries the payment history.
type HistoryMsg struct {
	Payments []model.Payment
	Err      error
}

// InitiatedMsg carries a started payment.
type InitiatedMsg struct {
	Payment *model.PaymentInitiation
	Err     error
}

// ValidatedMsg carries the outcome of a payment validation.
type ValidatedMsg struct {
	Status string
	Err    error
}

// statusFilters is cycled by the filter key; "" shows everything.
var statusFilters = []string{"", model.PaymentAccepted, model.PaymentPending, model.PaymentRefused}

// Model shows the account, premium status and payment history.
type Model struct {
	account  Account
	payments Payments
	keys     *keys.KeyMap
	provider string
	amount   int

	premium   *model.SubscriptionStatus
	history   []model.Payment
	filterIdx int
	pending   *model.PaymentInitiation
	status    string
	isErr     bool
	width     int
	height    int
}

// New creates the profile view.
func New(acc Account, p Payments, k *keys.KeyMap, cfg model.PaymentsConfig, width, height int) Model {
	provider := cfg.Provider
	if provider == "" {
		provider = "cinetpay"
	}
	amount := cfg.AmountFCFA
	if amount <= 0 {
		amount = model.DefaultPremiumAmountFCFA
	}
	return Model{
		account:  acc,
		payments: p,
		keys:     k,
		provider: provider,
		amount:   amount,
		width:    width,
		height:   height,
	}
}

// Reload fetches premium status and payment history for the current user.
// It resets state when nobody is signed in.
func (m *Model) Reload() tea.Cmd {
	u := m.account.User()
	if u == nil {
		m.premium = nil
		m.history = nil
		m.pending = nil
		return nil
	}
	return tea.Batch(m.checkPremium(), m.loadHistory(u.ID))
}

func (m Model) checkPremium() tea.Cmd {
	acc := m.account
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		st, err := acc.CheckPremium(ctx)
		return PremiumMsg{Status: st, Err: err}
	}
}

func (m Model) loadHistory(userID string) tea.Cmd {
	p, status := m.payments, statusFilters[m.filterIdx]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		ps, err := p.PaymentHistory(ctx, userID, status)
		return HistoryMsg{Payments: ps, Err: err}
	}
}

func (m Model) initiate(userID string) tea.Cmd {
	p, provider := m.payments, m.provider
	req := model.PaymentRequest{UserID: userID, AmountFCFA: m.amount}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		init, err := p.InitiatePayment(ctx, provider, req)
		return InitiatedMsg{Payment: init, Err: err}
	}
}

func (m Model) validate(success bool) tea.Cmd {
	p, provider := m.payments, m.provider
	v := model.PaymentValidation{TransactionID: m.pending.TransactionID, Success: success}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		st, err := p.ValidatePayment(ctx, provider, v)
		return ValidatedMsg{Status: st, Err: err}
	}
}

// Update handles messages for the profile view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PremiumMsg:
		if msg.Err == nil {
			m.premium = msg.Status
		}
		return m, nil

	case HistoryMsg:
		if msg.Err != nil {
			m.history = nil
			return m, nil
		}
		m.history = msg.Payments
		return m, nil

	case InitiatedMsg:
		if msg.Err != nil {
			m.setStatus(detailOr(msg.Err, "Erreur paiement"), true)
			return m, nil
		}
		m.pending = msg.Payment
		m.setStatus("Lien de paiement prêt.", false)
		cmd := m.Reload()
		return m, cmd

	case ValidatedMsg:
		if msg.Err != nil {
			m.setStatus(detailOr(msg.Err, "Erreur paiement"), true)
			return m, nil
		}
		m.pending = nil
		if msg.Status == "paid" {
			m.setStatus("Paiement accepté. Premium actif.", false)
		} else {
			m.setStatus("Paiement annulé.", true)
		}
		cmd := m.Reload()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	u := m.account.User()
	if u == nil {
		if key.Matches(msg, m.keys.Edit) || key.Matches(msg, m.keys.Select) {
			return m, func() tea.Msg { return RegisterRequestMsg{} }
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Edit):
		return m, func() tea.Msg { return EditRequestMsg{} }

	case key.Matches(msg, m.keys.Logout):
		return m, func() tea.Msg { return LogoutRequestMsg{} }

	case key.Matches(msg, m.keys.Subscribe):
		if m.premium != nil && m.premium.IsPremium {
			m.setStatus("Premium déjà actif.", false)
			return m, nil
		}
		m.setStatus("Création du paiement...", false)
		return m, m.initiate(u.ID)

	case key.Matches(msg, m.keys.ConfirmPay):
		if m.pending == nil {
			return m, nil
		}
		return m, m.validate(true)

	case key.Matches(msg, m.keys.CancelPay):
		if m.pending == nil {
			return m, nil
		}
		return m, m.validate(false)

	case key.Matches(msg, m.keys.FilterStatus):
		m.filterIdx = (m.filterIdx + 1) % len(statusFilters)
		return m, m.loadHistory(u.ID)

	case key.Matches(msg, m.keys.Refresh):
		cmd := m.Reload()
		return m, cmd
	}
	return m, nil
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.isErr = isErr
}

func detailOr(err error, fallback string) string {
	if d := api.ErrorDetail(err); d != "" {
		return d
	}
	return fallback
}

// Pending returns the payment awaiting confirmation, if any.
func (m Model) Pending() *model.PaymentInitiation {
	return m.pending
}

// View renders the profile view.
func (m Model) View() string {
	brand := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBrand).Render("Allô Services CI")
	slogan := theme.DimmedStyle.Render("Tous les services essentiels en un clic")

	u := m.account.User()
	if u == nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			brand, slogan, "",
			"Créez un compte pour accéder au Premium.",
			theme.HelpStyle.Render("e ou entrée pour créer un compte"),
		)
	}

	sections := []string{
		brand, slogan, "",
		fmt.Sprintf("Bonjour %s", u.FullName()),
		"Téléphone: " + u.Phone,
	}
	if u.Email != "" {
		sections = append(sections, "Email: "+u.Email)
	}
	if u.City != "" {
		sections = append(sections, "Ville: "+u.City)
	}
	sections = append(sections, "Premium: "+m.premiumText(), "")

	if m.pending != nil {
		sections = append(sections,
			lipgloss.NewStyle().Bold(true).Render("Premium "+ui.FCFA(m.amount)+" / an"),
			"Ouvrez ce lien pour payer: "+lipgloss.NewStyle().Underline(true).Render(m.pending.CheckoutURL()),
			theme.HelpStyle.Render("v pour confirmer le paiement, c pour annuler"),
			"",
		)
	}

	switch {
	case m.status == "":
	case m.isErr:
		sections = append(sections, theme.ErrorStyle.Render(m.status), "")
	default:
		sections = append(sections, theme.SuccessStyle.Render(m.status), "")
	}

	sections = append(sections, m.renderHistory())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) premiumText() string {
	switch {
	case m.premium == nil:
		return theme.DimmedStyle.Render("...")
	case !m.premium.IsPremium:
		return "Inactif " + theme.HelpStyle.Render("(p pour "+ui.FCFA(m.amount)+" / an)")
	case m.premium.ExpiresAt != nil && !m.premium.ExpiresAt.IsZero():
		return theme.SuccessStyle.Render("Actif jusqu'au " + m.premium.ExpiresAt.Local().Format("02/01/2006"))
	default:
		return theme.SuccessStyle.Render("Actif")
	}
}

func statusLabel(status string) string {
	switch status {
	case model.PaymentAccepted:
		return "Accepté"
	case model.PaymentRefused:
		return "Refusé"
	case model.PaymentPending:
		return "En attente"
	case "":
		return "Tous"
	default:
		return status
	}
}

func (m Model) renderHistory() string {
	title := theme.HeaderStyle.Render("Historique des paiements") + " " +
		theme.DimmedStyle.Render("f: "+statusLabel(statusFilters[m.filterIdx]))

	if len(m.history) == 0 {
		return title + "\n" + theme.HelpStyle.Render("Aucun paiement.")
	}

	rows := []string{title}
	limit := max(m.height-14, 3)
	for i, p := range m.history {
		if i == limit {
			rows = append(rows, theme.DimmedStyle.Render(fmt.Sprintf("... %d autres", len(m.history)-limit)))
			break
		}
		provider := p.Provider
		if provider == "" {
			provider = "cinetpay"
		}
		date := "-"
		if !p.CreatedAt.IsZero() {
			date = p.CreatedAt.Local().Format("02/01/2006 15:04")
		}
		rows = append(rows, strings.Join([]string{
			lipgloss.NewStyle().Bold(true).Width(14).Render(ui.FCFA(p.AmountFCFA)),
			theme.PaymentStatusStyle(p.Status).Width(12).Render(statusLabel(p.Status)),
			theme.DimmedStyle.Render(date + " • " + provider + " • " + p.TransactionID),
		}, " "))
	}
	return strings.Join(rows, "\n")
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
