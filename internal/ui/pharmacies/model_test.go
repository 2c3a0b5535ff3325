package pharmacies

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/alloci/internal/keys"
	"github.com/nhle/alloci/internal/model"
)

type fakeDirectory struct {
	queries []model.DirectoryQuery
}

func (f *fakeDirectory) Pharmacies(_ context.Context, q model.DirectoryQuery) ([]model.Pharmacy, error) {
	f.queries = append(f.queries, q)
	return []model.Pharmacy{{ID: "p1", Name: "Pharmacie du Plateau"}}, nil
}

func press(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run feeds msg to m and executes any returned command once.
func run(m Model, msg tea.Msg) Model {
	m, cmd := m.Update(msg)
	if cmd != nil {
		if out := cmd(); out != nil {
			if loaded, ok := out.(LoadedMsg); ok {
				m, _ = m.Update(loaded)
			}
		}
	}
	return m
}

func TestDutyToggle(t *testing.T) {
	d := &fakeDirectory{}
	m := New(d, keys.DefaultKeyMap(), nil, 5, 80, 30)

	m = run(m, press("g"))
	if len(d.queries) != 1 || !d.queries[0].OnDuty {
		t.Fatalf("queries = %+v", d.queries)
	}
	if len(m.list.Items()) != 1 {
		t.Fatal("results should be listed")
	}
}

func TestNearMeWithoutLocation(t *testing.T) {
	d := &fakeDirectory{}
	m := New(d, keys.DefaultKeyMap(), nil, 5, 80, 30)

	m = run(m, press("l"))
	if len(d.queries) != 0 {
		t.Fatal("no request without a location")
	}
	if m.err == "" {
		t.Fatal("expected a location error")
	}
}

func TestNearMeForcesDutyAndClearsCity(t *testing.T) {
	d := &fakeDirectory{}
	loc := &model.LatLng{Lat: 5.32, Lng: -4.02}
	m := New(d, keys.DefaultKeyMap(), loc, 5, 80, 30)
	m.city = "Bouaké"

	m = run(m, press("l"))
	q := d.queries[len(d.queries)-1]
	if q.Near == nil || !q.OnDuty || q.City != "" || q.MaxKM != 5 {
		t.Fatalf("query = %+v", q)
	}
}

func TestCitySearch(t *testing.T) {
	d := &fakeDirectory{}
	m := New(d, keys.DefaultKeyMap(), nil, 5, 80, 30)

	m, _ = m.Update(press("/"))
	if !m.Searching() {
		t.Fatal("expected search mode")
	}
	m.search.SetValue("bouake")
	m = run(m, tea.KeyMsg{Type: tea.KeyEnter})

	q := d.queries[len(d.queries)-1]
	if q.City != "Bouaké" {
		t.Fatalf("city = %q, want Bouaké", q.City)
	}
}

func TestFoldStripsCombiningMarks(t *testing.T) {
	cases := map[string]string{
		"Bouaké":        "bouake",
		"bouake\u0301":  "bouake",
		"Dàloa":         "daloa",
		"Sü Ù":          "su u",
		"  San-Pédro  ": "san-pedro",
	}
	for in, want := range cases {
		if got := fold(in); got != want {
			t.Errorf("fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchCity(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"abidjan":      "Abidjan",
		"SAN-PEDRO":    "San-Pédro",
		"ferke":        "Ferkessédougou",
		"Grand-Bassam": "Grand-Bassam",
		"bouake\u0301": "Bouaké",
		"ODIENNÉ":      "Odienné",
		"séguéla":      "Séguéla",
	}
	for in, want := range cases {
		if got := MatchCity(in); got != want {
			t.Errorf("MatchCity(%q) = %q, want %q", in, got, want)
		}
	}
}
