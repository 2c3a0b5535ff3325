package profileform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/theme"
)

// RegisterMsg is dispatched when the sign-up form is completed.
type RegisterMsg struct {
	Input model.RegisterInput
}

// UpdateMsg is dispatched when the profile editor is completed.
type UpdateMsg struct {
	Update model.ProfileUpdate
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	firstName   string
	lastName    string
	email       string
	phone       string
	lang        string
	city        string
	acceptTerms bool
}

// Model is the sign-up / profile edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	editMode bool
	width    int
	height   int
}

// New creates a new profile form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{lang: "fr"},
		width:  width,
		height: height,
	}
}

// StartRegister initializes the form for creating an account.
func (m *Model) StartRegister() tea.Cmd {
	m.editMode = false
	*m.fb = formBindings{lang: "fr"}
	m.form = m.buildRegisterForm()
	return m.form.Init()
}

// StartEdit initializes the form with the current user's settings.
func (m *Model) StartEdit(u model.User) tea.Cmd {
	m.editMode = true
	lang := u.PreferredLang
	if lang == "" {
		lang = "fr"
	}
	*m.fb = formBindings{
		firstName: u.FirstName,
		lastName:  u.LastName,
		email:     u.Email,
		phone:     u.Phone,
		lang:      lang,
		city:      u.City,
	}
	m.form = m.buildEditForm()
	return m.form.Init()
}

// Update handles messages for the profile form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		return m, m.handleSubmit()
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the profile form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "Créer un compte"
	if m.editMode {
		titleText = "Modifier le profil"
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorBrand).
		MarginBottom(1).
		Render(titleText)

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(title + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func languageField(value *string) huh.Field {
	opts := make([]huh.Option[string], len(model.Languages))
	for i, code := range model.Languages {
		opts[i] = huh.NewOption(strings.ToUpper(code), code)
	}
	return huh.NewSelect[string]().
		Title("Langue").
		Options(opts...).
		Inline(true).
		Value(value)
}

func (m *Model) buildRegisterForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			languageField(&m.fb.lang),
			huh.NewInput().
				Title("Prénom").
				Value(&m.fb.firstName).
				Validate(validateRequired("Prénom")),
			huh.NewInput().
				Title("Nom").
				Value(&m.fb.lastName).
				Validate(validateRequired("Nom")),
			huh.NewInput().
				Title("Email (optionnel)").
				Value(&m.fb.email).
				Validate(validateOptionalEmail),
			huh.NewInput().
				Title("Téléphone").
				Placeholder("+225 07 00 00 00 00").
				Value(&m.fb.phone).
				Validate(validateRequired("Téléphone")),
			huh.NewConfirm().
				Title("J'accepte les CGU et la Politique de confidentialité").
				Affirmative("Oui").
				Negative("Non").
				Value(&m.fb.acceptTerms).
				Validate(validateAccepted),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) buildEditForm() *huh.Form {
	cityOpts := make([]huh.Option[string], 0, len(model.Cities)+1)
	cityOpts = append(cityOpts, huh.NewOption("Non renseignée", ""))
	for _, c := range model.Cities {
		cityOpts = append(cityOpts, huh.NewOption(c, c))
	}

	return huh.NewForm(
		huh.NewGroup(
			languageField(&m.fb.lang),
			huh.NewSelect[string]().
				Title("Ville").
				Options(cityOpts...).
				Height(8).
				Value(&m.fb.city),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	if m.editMode {
		lang, city := m.fb.lang, m.fb.city
		upd := model.ProfileUpdate{PreferredLang: &lang, City: &city}
		return func() tea.Msg { return UpdateMsg{Update: upd} }
	}

	in := model.RegisterInput{
		FirstName:     strings.TrimSpace(m.fb.firstName),
		LastName:      strings.TrimSpace(m.fb.lastName),
		Email:         strings.TrimSpace(m.fb.email),
		Phone:         strings.TrimSpace(m.fb.phone),
		PreferredLang: m.fb.lang,
		AcceptTerms:   m.fb.acceptTerms,
	}
	return func() tea.Msg { return RegisterMsg{Input: in} }
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 12)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s est requis", fieldName)
		}
		return nil
	}
}

func validateOptionalEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 || strings.ContainsAny(s, " \t") {
		return fmt.Errorf("adresse email invalide")
	}
	return nil
}

func validateAccepted(ok bool) error {
	if !ok {
		return fmt.Errorf("vous devez accepter les CGU pour continuer")
	}
	return nil
}
