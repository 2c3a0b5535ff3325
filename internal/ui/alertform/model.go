package alertform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/alloci/internal/api"
	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/theme"
)

// DefaultCity pre-fills the city field when the user has none.
const DefaultCity = "Abidjan"

const publishTimeout = 30 * time.Second

// SubmitMsg is dispatched when the form is completed.
type SubmitMsg struct {
	Alert      model.NewAlert
	ImagePaths []string
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// PublishedMsg reports the outcome of Publish.
type PublishedMsg struct {
	Alert *model.Alert
	Err   error
}

// Publisher creates alerts on the backend.
type Publisher interface {
	CreateAlert(ctx context.Context, in model.NewAlert) (*model.Alert, error)
}

// Notifier records a local notification.
type Notifier interface {
	Add(item model.NotificationItem)
}

// Publish encodes the photos, posts the alert and, on success, records a
// local notification carrying the title, description and city.
func Publish(p Publisher, n Notifier, msg SubmitMsg) tea.Cmd {
	return func() tea.Msg {
		in := msg.Alert
		in.Images = make([]string, 0, len(msg.ImagePaths))
		for _, path := range msg.ImagePaths {
			uri, err := api.EncodeImageFile(path)
			if err != nil {
				return PublishedMsg{Err: err}
			}
			in.Images = append(in.Images, uri)
		}

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		created, err := p.CreateAlert(ctx, in)
		if err != nil {
			return PublishedMsg{Err: err}
		}

		item := model.NotificationItem{
			Title: model.StringPtr(in.Title),
			Body:  model.StringPtr(in.Description),
		}
		ref := publishedRef{City: in.City}
		if created != nil {
			ref.AlertID = created.ID
		}
		// An unencodable ref still leaves the alert published; the entry
		// is kept without its payload.
		if data, err := json.Marshal(ref); err == nil {
			item.Data = data
		}
		n.Add(item)
		return PublishedMsg{Alert: created}
	}
}

// publishedRef is the payload of the local "alert published" entry.
type publishedRef struct {
	AlertID string `json:"alert_id,omitempty"`
	City    string `json:"city"`
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	alertType   model.AlertType
	city        string
	images      string
}

// Model is the new-alert form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	userID string
	width  int
	height int
}

// New creates a new alert form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{alertType: model.AlertOther, city: DefaultCity},
		width:  width,
		height: height,
	}
}

// Start resets the form for a new alert posted by userID from city.
func (m *Model) Start(userID, city string) tea.Cmd {
	if city == "" {
		city = DefaultCity
	}
	m.userID = userID
	*m.fb = formBindings{alertType: model.AlertOther, city: city}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the alert form.
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

// View renders the alert form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorBrand).
		MarginBottom(1).
		Render("Nouvelle alerte")

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(title + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	typeOpts := make([]huh.Option[model.AlertType], len(model.AlertTypes))
	for i, t := range model.AlertTypes {
		typeOpts[i] = huh.NewOption(t.Label(), t)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Titre").
				Value(&m.fb.title).
				Validate(validateRequired("Titre")),
			huh.NewText().
				Title("Description").
				Value(&m.fb.description).
				Validate(validateRequired("Description")),
			huh.NewSelect[model.AlertType]().
				Title("Type").
				Options(typeOpts...).
				Value(&m.fb.alertType),
			huh.NewInput().
				Title("Ville").
				Value(&m.fb.city),
			huh.NewText().
				Title("Photos").
				Description(fmt.Sprintf("Chemins de fichiers, un par ligne (%d max)", model.MaxAlertImages)).
				Lines(3).
				Value(&m.fb.images).
				Validate(validateImages),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	msg := SubmitMsg{
		Alert: model.NewAlert{
			Title:       strings.TrimSpace(m.fb.title),
			Description: strings.TrimSpace(m.fb.description),
			Type:        m.fb.alertType,
			City:        strings.TrimSpace(m.fb.city),
			PostedBy:    m.userID,
		},
		ImagePaths: imagePaths(m.fb.images),
	}
	return func() tea.Msg { return msg }
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 12)
}

// imagePaths splits the photos field into non-empty paths.
func imagePaths(s string) []string {
	var paths []string
	for _, line := range strings.Split(s, "\n") {
		if p := strings.TrimSpace(line); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func validateImages(s string) error {
	paths := imagePaths(s)
	if len(paths) > model.MaxAlertImages {
		return fmt.Errorf("%d photos maximum", model.MaxAlertImages)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("fichier introuvable: %s", p)
		}
	}
	return nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s est requis", fieldName)
		}
		return nil
	}
}
