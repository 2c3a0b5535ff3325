package detail

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/alloci/internal/keys"
	"github.com/nhle/alloci/internal/model"
)

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestDescribeImage(t *testing.T) {
	got := describeImage("data:image/png;base64,iVBORw0KGgo=")
	if !strings.HasPrefix(got, "image/png, ") {
		t.Fatalf("describeImage = %q", got)
	}
	if got := describeImage("garbage"); got != "image" {
		t.Fatalf("describeImage(garbage) = %q", got)
	}
}

func TestMarkReadActionOnlyForUnread(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	m.SetAlert(model.Alert{ID: "a1", Title: "Incendie", Type: model.AlertFire})

	_, cmd := m.Update(keyPress("m"))
	if cmd == nil {
		t.Fatal("expected an action command")
	}
	act, ok := cmd().(ActionMsg)
	if !ok || act.Action != ActionMarkRead || act.AlertID != "a1" {
		t.Fatalf("action = %+v", act)
	}

	m.MarkRead("a1")
	if _, cmd := m.Update(keyPress("m")); cmd != nil {
		t.Fatal("an already read alert should not be marked again")
	}
}

func TestBackKey(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(BackMsg); !ok {
		t.Fatal("esc should go back")
	}
}
