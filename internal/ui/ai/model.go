package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	aiservice "github.com/nhle/alloci/internal/ai"
	"github.com/nhle/alloci/internal/keys"
	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/theme"
	"github.com/nhle/alloci/internal/ui"
)

// ChunkMsg carries one transcript change from the active turn. Closed is
// set once the turn's channel has been drained.
type ChunkMsg struct {
	Chunk  aiservice.StreamChunk
	Closed bool

	ch <-chan aiservice.StreamChunk
}

// Model is the Allô IA chat panel.
type Model struct {
	session  *aiservice.Session
	input    textarea.Model
	viewport viewport.Model
	keys     *keys.KeyMap

	ch        <-chan aiservice.StreamChunk
	streaming bool
	recentIdx int
	notice    string

	width  int
	height int
}

// New creates the chat panel around session.
func New(session *aiservice.Session, k *keys.KeyMap, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Écrire un message..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.CharLimit = 4000
	ta.Focus()

	m := Model{
		session:   session,
		input:     ta,
		viewport:  viewport.New(width, height),
		keys:      k,
		recentIdx: -1,
	}
	m.SetSize(width, height)
	m.refreshViewport()
	return m
}

// Init returns the initial command for the chat panel.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Streaming reports whether a reply is in flight.
func (m Model) Streaming() bool {
	return m.streaming
}

// Update handles messages for the chat panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ChunkMsg:
		return m.handleChunk(msg)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmds []tea.Cmd

	var taCmd tea.Cmd
	m.input, taCmd = m.input.Update(msg)
	cmds = append(cmds, taCmd)

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.StopStream), msg.String() == "esc" && m.streaming:
		m.session.Stop()
		return m, nil

	case msg.String() == "ctrl+r":
		m.cycleRecent()
		return m, nil

	case msg.String() == "pgup", msg.String() == "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case msg.String() == "enter":
		return m.send()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) send() (Model, tea.Cmd) {
	if m.streaming {
		return m, nil
	}

	ch, err := m.session.Send(context.Background(), m.input.Value())
	switch {
	case errors.Is(err, aiservice.ErrEmptyMessage):
		return m, nil
	case errors.Is(err, aiservice.ErrBusy):
		m.notice = "Une réponse est déjà en cours."
		return m, nil
	case err != nil:
		m.notice = aiservice.GenericErrorMessage
		return m, nil
	}

	m.input.Reset()
	m.notice = ""
	m.recentIdx = -1
	m.ch = ch
	m.streaming = true
	m.refreshViewport()
	return m, waitForNextChunk(ch)
}

func (m Model) handleChunk(msg ChunkMsg) (Model, tea.Cmd) {
	// Chunks from a turn abandoned by Reset are dropped.
	if m.ch == nil || msg.ch != m.ch {
		return m, nil
	}

	if msg.Closed {
		m.streaming = false
		m.ch = nil
		m.refreshViewport()
		return m, nil
	}
	m.refreshViewport()
	return m, waitForNextChunk(m.ch)
}

// waitForNextChunk returns a command that waits for the next chunk from
// the turn's channel.
func waitForNextChunk(ch <-chan aiservice.StreamChunk) tea.Cmd {
	return func() tea.Msg {
		chunk, ok := <-ch
		if !ok {
			return ChunkMsg{Closed: true, ch: ch}
		}
		return ChunkMsg{Chunk: chunk, ch: ch}
	}
}

// cycleRecent fills the input with the next recent prompt.
func (m *Model) cycleRecent() {
	recent := m.session.Recent()
	if len(recent) == 0 {
		return
	}
	m.recentIdx = (m.recentIdx + 1) % len(recent)
	m.input.SetValue(recent[m.recentIdx])
	m.input.CursorEnd()
}

// refreshViewport re-renders the transcript and scrolls to the bottom.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	msgs := m.session.Messages()
	if len(msgs) == 0 {
		return theme.HelpStyle.Render(
			"Posez vos questions sur la Côte d'Ivoire ou demandez un document.",
		)
	}

	bubbleWidth := max(m.viewport.Width*3/4, 10)
	labelStyle := lipgloss.NewStyle().Bold(true)

	var sections []string
	for _, msg := range msgs {
		switch msg.Role {
		case model.RoleUser:
			bubble := theme.UserBubbleStyle.MaxWidth(bubbleWidth).Render(msg.Content)
			sections = append(sections, lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Right, bubble))
		default:
			label := labelStyle.Foreground(theme.ColorBrand).Render("Allô IA")
			content := msg.Content
			if content == "" && m.streaming {
				content = "..."
			}
			bubble := theme.AssistantBubbleStyle.Width(bubbleWidth).Render(content)
			sections = append(sections, label, bubble)
		}
		sections = append(sections, "")
	}

	if m.streaming && m.session.State() == aiservice.StateSending {
		sections = append(sections, theme.HelpStyle.Render("Allô IA écrit..."))
	}

	return strings.Join(sections, "\n")
}

func (m Model) renderRecent() string {
	recent := m.session.Recent()
	if len(recent) == 0 {
		return ""
	}
	chips := make([]string, 0, 3)
	for i, p := range recent {
		if i == 3 {
			break
		}
		chips = append(chips, theme.TabStyle.Render(ui.Truncate(p, 24)))
	}
	return theme.DimmedStyle.Render("Récents (ctrl+r): ") + strings.Join(chips, " ")
}

// View renders the chat panel.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorBrand).
		Render("Allô IA")

	status := ""
	switch {
	case m.streaming:
		status = theme.HelpStyle.Render("ctrl+s pour arrêter")
	case m.notice != "":
		status = theme.ErrorStyle.Render(m.notice)
	}

	separator := lipgloss.NewStyle().
		Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-6, 80), 0)))

	parts := []string{title + "  " + status, m.viewport.View(), separator}
	if r := m.renderRecent(); r != "" {
		parts = append(parts, r)
	}
	parts = append(parts, m.input.View())

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(max(width-8, 10))

	// Title, separator, recent chips, input and the panel border.
	vpHeight := max(height-11, 4)
	m.viewport.Width = max(width-8, 10)
	m.viewport.Height = vpHeight
	m.refreshViewport()
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}

// Reset stops any reply and starts a new conversation.
func (m *Model) Reset() {
	m.session.Reset()
	m.streaming = false
	m.ch = nil
	m.notice = ""
	m.input.Reset()
	m.refreshViewport()
}
