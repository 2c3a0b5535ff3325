package notifications

import (
	"context"
	"encoding/json"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/alloci/internal/keys"
	"github.com/nhle/alloci/internal/notify"
	"github.com/nhle/alloci/tests/testutil"
)

func press(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newCenter(t *testing.T) *notify.Center {
	t.Helper()
	c := notify.NewCenter(context.Background(), testutil.NewTestStore(t))
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDeleteRemovesSelected(t *testing.T) {
	c := newCenter(t)
	c.Receive("Premier", "a", nil)
	c.Receive("Second", "b", nil)

	m := New(c, keys.DefaultKeyMap(), 80, 30)
	m, _ = m.Update(press("d"))

	items := c.Items()
	if len(items) != 1 || items[0].TitleText() != "Premier" {
		t.Fatalf("items = %+v, want only Premier", items)
	}
}

func TestClearAsksForConfirmation(t *testing.T) {
	c := newCenter(t)
	c.Receive("Alerte", "x", nil)
	m := New(c, keys.DefaultKeyMap(), 80, 30)

	m, _ = m.Update(press("C"))
	m, _ = m.Update(press("n"))
	if c.Len() != 1 {
		t.Fatal("declined clear should keep items")
	}

	m, _ = m.Update(press("C"))
	m, _ = m.Update(press("o"))
	if c.Len() != 0 {
		t.Fatalf("Len = %d after confirmed clear", c.Len())
	}
	if len(m.list.Items()) != 0 {
		t.Fatal("list should be empty")
	}
}

func TestChangedMsgRefreshes(t *testing.T) {
	c := newCenter(t)
	m := New(c, keys.DefaultKeyMap(), 80, 30)

	c.Receive("Nouveau", "", json.RawMessage(`{"city":"Abidjan"}`))
	m, _ = m.Update(ChangedMsg{})
	if len(m.list.Items()) != 1 {
		t.Fatalf("items = %d, want 1", len(m.list.Items()))
	}
}

func TestDataCity(t *testing.T) {
	if got := dataCity(json.RawMessage(`{"city":"Bouaké"}`)); got != "Bouaké" {
		t.Fatalf("dataCity = %q", got)
	}
	if got := dataCity(json.RawMessage(`[1]`)); got != "" {
		t.Fatalf("dataCity(array) = %q", got)
	}
}
