package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/alloci/internal/theme"
)

// Names of the palette commands.
const (
	Refresh            = "refresh"
	Logout             = "logout"
	ClearNotifications = "clear"
	NewChat            = "newchat"
	City               = "city"
	Settings           = "settings"
	Quit               = "quit"
)

type spec struct {
	name    string
	aliases []string
	help    string
}

var commands = []spec{
	{Refresh, []string{"r"}, "recharger la vue"},
	{Logout, nil, "se déconnecter"},
	{ClearNotifications, []string{"clear-notifications"}, "vider les notifications"},
	{NewChat, []string{"new"}, "nouvelle conversation Allô IA"},
	{City, []string{"ville"}, "filtrer les pharmacies par ville"},
	{Settings, []string{"config", "parametres"}, "modifier les paramètres"},
	{Quit, []string{"q", "exit"}, "quitter"},
}

// CommandMsg is emitted when the user executes a known command.
type CommandMsg struct {
	Name string
	Args string
}

// UnknownMsg is emitted for input that names no command.
type UnknownMsg struct {
	Input string
}

// Parse resolves input into a command name and its arguments.
func Parse(input string) (CommandMsg, bool) {
	input = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), ":"))
	word, args, _ := strings.Cut(input, " ")
	word = strings.ToLower(word)
	for _, c := range commands {
		if word == c.name {
			return CommandMsg{Name: c.name, Args: strings.TrimSpace(args)}, true
		}
		for _, a := range c.aliases {
			if word == a {
				return CommandMsg{Name: c.name, Args: strings.TrimSpace(args)}, true
			}
		}
	}
	return CommandMsg{}, false
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "commande..."
	ti.Prompt = ": "
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			raw := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if raw == "" {
				return m, nil
			}
			if parsed, ok := Parse(raw); ok {
				return m, func() tea.Msg { return parsed }
			}
			return m, func() tea.Msg { return UnknownMsg{Input: raw} }

		case "tab":
			if s := m.suggestions(); len(s) == 1 {
				m.input.SetValue(s[0].name + " ")
				m.input.CursorEnd()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) suggestions() []spec {
	word, _, _ := strings.Cut(strings.TrimSpace(m.input.Value()), " ")
	word = strings.ToLower(word)
	var out []spec
	for _, c := range commands {
		if strings.HasPrefix(c.name, word) {
			out = append(out, c)
		}
	}
	return out
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	lines := []string{titleStyle.Render("Commandes"), m.input.View(), ""}
	for _, c := range m.suggestions() {
		lines = append(lines,
			lipgloss.NewStyle().Foreground(theme.ColorBrand).Width(10).Render(c.name)+
				theme.DimmedStyle.Render(c.help))
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
