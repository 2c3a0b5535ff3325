package pharmacies

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/nhle/alloci/internal/keys"
	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/theme"
)

const requestTimeout = 15 * time.Second

// Directory lists pharmacies.
type Directory interface {
	Pharmacies(ctx context.Context, q model.DirectoryQuery) ([]model.Pharmacy, error)
}

// LoadedMsg carries a directory page.
type LoadedMsg struct {
	Pharmacies []model.Pharmacy
	Err        error
}

type item struct {
	p model.Pharmacy
}

func (i item) FilterValue() string { return i.p.Name }

type itemDelegate struct {
	now func() time.Time
}

func (d itemDelegate) Height() int { return 2 }

func (d itemDelegate) Spacing() int { return 1 }

func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(item)
	if !ok {
		return
	}
	p := it.p

	first := lipgloss.NewStyle().Bold(true).Render(p.Name)
	if p.OnDuty(d.now()) {
		first += " " + theme.DutyBadgeStyle.Render("De garde")
	}

	var meta []string
	for _, s := range []string{p.Address, p.City, p.Phone} {
		if s != "" {
			meta = append(meta, s)
		}
	}
	second := "  " + theme.DimmedStyle.Render(strings.Join(meta, " • "))

	style := lipgloss.NewStyle().PaddingLeft(2)
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}
	fmt.Fprint(w, style.Render(first+"\n"+second))
}

// Model is the pharmacies directory with on-duty, city and near-me filters.
type Model struct {
	list      list.Model
	dir       Directory
	keys      *keys.KeyMap
	location  *model.LatLng
	maxKM     float64
	onDuty    bool
	nearMe    bool
	city      string
	searching bool
	search    textinput.Model
	err       string
	loading   bool
	width     int
	height    int
}

// New creates the pharmacies view. location stands in for device GPS and
// may be nil, in which case "near me" is unavailable.
func New(d Directory, k *keys.KeyMap, location *model.LatLng, maxKM float64, width, height int) Model {
	l := list.New([]list.Item{}, itemDelegate{now: time.Now}, width, height-3)
	l.Title = "Pharmacies"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "ville..."
	si.Prompt = "/ "
	si.Width = 30

	return Model{
		list:     l,
		dir:      d,
		keys:     k,
		location: location,
		maxKM:    maxKM,
		search:   si,
		loading:  true,
		width:    width,
		height:   height,
	}
}

// Init loads the unfiltered directory.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Query returns the directory query for the current filters.
func (m Model) Query() model.DirectoryQuery {
	q := model.DirectoryQuery{OnDuty: m.onDuty}
	if m.nearMe {
		q.Near = m.location
		q.MaxKM = m.maxKM
		return q
	}
	q.City = m.city
	return q
}

// Load fetches the directory with the current filters.
func (m Model) Load() tea.Cmd {
	d, q := m.dir, m.Query()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		ps, err := d.Pharmacies(ctx, q)
		return LoadedMsg{Pharmacies: ps, Err: err}
	}
}

// Update handles messages for the pharmacies view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = "Impossible de charger les pharmacies."
			return m, nil
		}
		m.err = ""
		items := make([]list.Item, len(msg.Pharmacies))
		for i, p := range msg.Pharmacies {
			items[i] = item{p: p}
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleDuty):
		m.onDuty = !m.onDuty
		return m.reload()

	case key.Matches(msg, m.keys.NearMe):
		if !m.nearMe && m.location == nil {
			m.err = "Localisation indisponible: renseignez location.lat et location.lng."
			return m, nil
		}
		m.nearMe = !m.nearMe
		if m.nearMe {
			// Near me implies on duty and clears the city filter.
			m.onDuty = true
			m.city = ""
		}
		return m.reload()

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(m.city)
		cmd := m.search.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Refresh):
		return m.reload()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		m.city = MatchCity(m.search.Value())
		if m.city != "" {
			m.nearMe = false
		}
		return m.reload()

	case "esc":
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) reload() (Model, tea.Cmd) {
	m.loading = true
	m.err = ""
	return m, m.Load()
}

// SetCity filters by city, leaving near-me mode, and returns the reload.
func (m *Model) SetCity(city string) tea.Cmd {
	m.city = city
	if city != "" {
		m.nearMe = false
	}
	m.loading = true
	m.err = ""
	return m.Load()
}

// SetLocation replaces the near-me position. A nil location leaves
// near-me mode.
func (m *Model) SetLocation(location *model.LatLng, maxKM float64) {
	m.location = location
	m.maxKM = maxKM
	if location == nil {
		m.nearMe = false
	}
}

// Searching reports whether the city input has focus.
func (m Model) Searching() bool {
	return m.searching
}

// fold lower-cases s and strips combining marks, so "Bouaké", "BOUAKÉ"
// and a decomposed "Bouake\u0301" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

// MatchCity returns the first known city whose name contains query,
// ignoring case and accents. An empty query clears the filter; a query
// matching no known city is used as typed.
func MatchCity(query string) string {
	q := fold(query)
	if q == "" {
		return ""
	}
	for _, c := range model.Cities {
		if fold(c) == q {
			return c
		}
	}
	for _, c := range model.Cities {
		if strings.Contains(fold(c), q) {
			return c
		}
	}
	return strings.TrimSpace(query)
}

func (m Model) renderFilters() string {
	chip := func(label string, on bool) string {
		if on {
			return theme.ActiveTabStyle.Render(label)
		}
		return theme.TabStyle.Render(label)
	}
	city := "Toutes les villes"
	if m.city != "" {
		city = m.city
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		chip("g De garde", m.onDuty),
		chip("l Près de moi", m.nearMe),
		chip("/ "+city, m.city != ""),
	)
}

// View renders the pharmacies view.
func (m Model) View() string {
	parts := []string{m.renderFilters()}
	if m.searching {
		parts = append(parts, m.search.View())
	}
	if m.err != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.err))
	}

	switch {
	case m.loading && len(m.list.Items()) == 0:
		parts = append(parts, theme.HelpStyle.Render("Chargement..."))
	case len(m.list.Items()) == 0:
		parts = append(parts, theme.HelpStyle.Render("Aucune pharmacie trouvée."))
	default:
		parts = append(parts, m.list.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-3)
}
