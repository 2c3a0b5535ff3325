package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/alloci/internal/api"
	"github.com/nhle/alloci/internal/keys"
	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/theme"
)

const checkTimeout = 10 * time.Second

// ConfigMode represents the current state of the settings view.
type ConfigMode int

const (
	ModeView           ConfigMode = iota // Show current settings
	ModeForm                             // Editing
	ModeValidating                       // Testing the backend
	ModeValidateResult                   // Show the failed test
)

// ConfigDoneMsg signals the settings view should close.
type ConfigDoneMsg struct{}

// SavedMsg carries the settings written to disk.
type SavedMsg struct {
	Config model.AppConfig
}

// ValidateResultMsg carries the result of a backend check.
type ValidateResultMsg struct {
	Err error
}

type savedInternalMsg struct {
	cfg model.AppConfig
	err error
}

// Checker probes a backend base URL.
type Checker func(ctx context.Context, baseURL string) error

// CheckBackend reads the anonymous unread count from baseURL.
func CheckBackend(ctx context.Context, baseURL string) error {
	_, err := api.NewClient(baseURL).UnreadCount(ctx, "")
	return err
}

// Saver writes a configuration.
type Saver func(path string, cfg *model.AppConfig) error

// formBindings holds the values bound to huh fields. It lives on the heap
// so the form keeps valid pointers while Model is copied.
type formBindings struct {
	baseURL     string
	lat         string
	lng         string
	maxKM       string
	temperature string
	pushAddr    string
}

// Model is the settings view.
type Model struct {
	mode    ConfigMode
	path    string
	cfg     model.AppConfig
	check   Checker
	save    Saver
	form    *huh.Form
	fields  *formBindings
	pending model.AppConfig

	validError error
	spinner    spinner.Model
	statusMsg  string

	keys          *keys.KeyMap
	width, height int
}

// New creates the settings view for the configuration stored at path.
func New(path string, cfg model.AppConfig, check Checker, save Saver, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:    ModeView,
		path:    path,
		cfg:     cfg,
		check:   check,
		save:    save,
		fields:  &formBindings{},
		spinner: sp,
		keys:    k,
		width:   width,
		height:  height,
	}
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ValidateResultMsg:
		if msg.Err != nil {
			m.validError = msg.Err
			m.mode = ModeValidateResult
			return m, nil
		}
		return m, m.write(m.pending)

	case savedInternalMsg:
		m.mode = ModeView
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Erreur d'enregistrement: %v", msg.err)
			return m, nil
		}
		m.cfg = msg.cfg
		m.statusMsg = "Paramètres enregistrés."
		saved := msg.cfg
		return m, func() tea.Msg { return SavedMsg{Config: saved} }

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	if m.mode == ModeForm {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeView:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return ConfigDoneMsg{} }
		case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Select):
			cmd := m.startForm()
			return m, cmd
		}
		return m, nil

	case ModeForm:
		return m.updateForm(msg)

	case ModeValidating:
		// Only allow escape during validation
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeView
		}
		return m, nil

	case ModeValidateResult:
		switch msg.String() {
		case "r":
			cmd := m.validate(m.pending)
			return m, cmd
		case "s":
			// Keep the settings even though the backend did not answer.
			return m, m.write(m.pending)
		case "enter", "esc":
			m.mode = ModeView
			m.validError = nil
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) startForm() tea.Cmd {
	*m.fields = formBindings{
		baseURL:     m.cfg.Backend.BaseURL,
		lat:         formatCoord(m.cfg.Location.Lat),
		lng:         formatCoord(m.cfg.Location.Lng),
		maxKM:       strconv.FormatFloat(m.cfg.Location.MaxKM, 'f', -1, 64),
		temperature: strconv.FormatFloat(m.cfg.AI.Temperature, 'f', -1, 64),
		pushAddr:    m.cfg.Push.ListenAddr,
	}
	m.statusMsg = ""
	m.mode = ModeForm
	m.form = m.buildForm()
	return m.form.Init()
}

func (m Model) buildForm() *huh.Form {
	f := m.fields
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Serveur").
				Description("URL du backend Allô Services (ex: https://allo-ci.example.com)").
				Value(&f.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Latitude").
				Description("Position utilisée pour « Près de moi », vide pour désactiver").
				Placeholder("5.3364").
				Value(&f.lat).
				Validate(validateRange(-90, 90, true)),
			huh.NewInput().
				Title("Longitude").
				Placeholder("-4.0267").
				Value(&f.lng).
				Validate(validateRange(-180, 180, true)),
			huh.NewInput().
				Title("Rayon (km)").
				Value(&f.maxKM).
				Validate(validateRange(0.5, 50, false)),
			huh.NewInput().
				Title("Température IA").
				Value(&f.temperature).
				Validate(validateRange(0, 2, false)),
			huh.NewInput().
				Title("Réception des notifications").
				Description("Adresse d'écoute locale, vide pour désactiver").
				Value(&f.pushAddr),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.pending = m.applyFields()
		cmd := m.validate(m.pending)
		return m, cmd
	}
	if m.form.State == huh.StateAborted {
		m.mode = ModeView
		return m, nil
	}

	return m, cmd
}

// applyFields returns the current settings with the form values applied.
// Fields were validated by the form.
func (m Model) applyFields() model.AppConfig {
	cfg := m.cfg
	f := m.fields
	cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(f.baseURL), "/")
	cfg.Location.Lat = parseOptional(f.lat)
	cfg.Location.Lng = parseOptional(f.lng)
	cfg.Location.MaxKM = parseOptional(f.maxKM)
	cfg.AI.Temperature = parseOptional(f.temperature)
	cfg.Push.ListenAddr = strings.TrimSpace(f.pushAddr)
	return cfg
}

func (m *Model) validate(cfg model.AppConfig) tea.Cmd {
	m.mode = ModeValidating
	m.validError = nil
	check := m.check
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
			defer cancel()
			return ValidateResultMsg{Err: check(ctx, cfg.Backend.BaseURL)}
		},
	)
}

func (m Model) write(cfg model.AppConfig) tea.Cmd {
	save, path := m.save, m.path
	return func() tea.Msg {
		return savedInternalMsg{cfg: cfg, err: save(path, &cfg)}
	}
}

// View renders the settings view.
func (m Model) View() string {
	switch m.mode {
	case ModeForm:
		return m.viewForm()
	case ModeValidating:
		return m.viewValidating()
	case ModeValidateResult:
		return m.viewValidateResult()
	default:
		return m.viewSettings()
	}
}

func (m Model) viewSettings() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render("Paramètres")
	label := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(22)

	location := "non renseignée"
	if p := m.cfg.Location.Point(); p != nil {
		location = fmt.Sprintf("%s, %s (%g km)", formatCoord(p.Lat), formatCoord(p.Lng), m.cfg.Location.MaxKM)
	}
	push := m.cfg.Push.ListenAddr
	if push == "" {
		push = "désactivée"
	}

	rows := []string{
		title, "",
		label.Render("Serveur") + m.cfg.Backend.BaseURL,
		label.Render("Position") + location,
		label.Render("Température IA") + strconv.FormatFloat(m.cfg.AI.Temperature, 'f', -1, 64),
		label.Render("Notifications") + push,
		label.Render("Fichier") + theme.DimmedStyle.Render(m.path),
		"",
	}
	if m.statusMsg != "" {
		rows = append(rows, theme.SuccessStyle.Render(m.statusMsg), "")
	}
	rows = append(rows, theme.HelpStyle.Render("e modifier | esc retour"))

	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(rows, "\n"))
}

func (m Model) viewForm() string {
	if m.form == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(m.form.View())
}

func (m Model) viewValidating() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	content := fmt.Sprintf(
		"%s Test du serveur...\n\nesc pour annuler.",
		m.spinner.View(),
	)

	return style.Render(content)
}

func (m Model) viewValidateResult() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	errStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorRed)
	msg := ""
	if m.validError != nil {
		msg = m.validError.Error()
	}
	content := errStyle.Render("Serveur injoignable") + "\n\n" +
		msg + "\n\n" +
		lipgloss.NewStyle().Foreground(theme.ColorGray).
			Render("r réessayer | s enregistrer quand même | esc retour")

	return style.Render(content)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Editing reports whether the form has keyboard focus.
func (m Model) Editing() bool {
	return m.mode == ModeForm
}

func (m Model) formWidth() int {
	w := m.width - 8
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func formatCoord(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseOptional(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("l'URL est requise")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("URL invalide: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("l'URL doit contenir le schéma et l'hôte (ex: https://example.com)")
	}
	return nil
}

func validateRange(lo, hi float64, optional bool) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			if optional {
				return nil
			}
			return fmt.Errorf("valeur requise")
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("nombre attendu")
		}
		if v < lo || v > hi {
			return fmt.Errorf("entre %g et %g", lo, hi)
		}
		return nil
	}
}
