package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	aiservice "github.com/nhle/alloci/internal/ai"
	"github.com/nhle/alloci/internal/api"
	"github.com/nhle/alloci/internal/credential"
	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/notify"
	"github.com/nhle/alloci/internal/push"
	"github.com/nhle/alloci/internal/session"
	appsync "github.com/nhle/alloci/internal/sync"
	"github.com/nhle/alloci/internal/ui/command"
	"github.com/nhle/alloci/tests/testutil"
)

func newTestApp(t *testing.T) Model {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/api/alerts/unread_count", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"count":0}`))
	})
	r.Get("/api/alerts", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Backend.BaseURL = srv.URL

	st := testutil.NewTestStore(t)
	client := api.NewClient(srv.URL)
	center := notify.NewCenter(context.Background(), st)
	t.Cleanup(func() { center.Close() })

	return New(Deps{
		Config:  cfg,
		API:     client,
		Session: session.New(st, client, credential.NewMemory(), zerolog.Nop()),
		Center:  center,
		Poller:  appsync.New(client, 0, zerolog.Nop()),
		Chat:    aiservice.NewSession(client),
		Push:    push.NewReceiver(zerolog.Nop()),
		Logger:  zerolog.Nop(),
		Version: "test",
	})
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	am, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return am, cmd
}

func TestPushFeedsCenterAndBadge(t *testing.T) {
	m := newTestApp(t)

	m, cmd := update(t, m, push.ReceivedMsg{Payload: push.Payload{Title: "Inondation", Body: "Route coupée"}})
	if cmd == nil {
		t.Fatal("expected the receiver to be awaited again")
	}
	if m.deps.Center.Len() != 1 {
		t.Fatalf("center len = %d, want 1", m.deps.Center.Len())
	}
	if m.unreadCount != 1 {
		t.Fatalf("unread = %d, want 1", m.unreadCount)
	}
	if !strings.Contains(m.status, "Inondation") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestTabKeys(t *testing.T) {
	m := newTestApp(t)

	m, _ = update(t, m, runes("2"))
	if m.currentView != ViewNotifications {
		t.Fatalf("view = %v, want notifications", m.currentView)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.currentView != ViewPharmacies {
		t.Fatalf("view = %v, want pharmacies", m.currentView)
	}
}

func TestChatKeepsLetterKeys(t *testing.T) {
	m := newTestApp(t)
	m, _ = update(t, m, runes("4"))
	if m.currentView != ViewAI {
		t.Fatalf("view = %v, want AI", m.currentView)
	}

	if _, _, handled := m.handleGlobalKeys(runes("q")); handled {
		t.Fatal("q should be typed into the chat, not quit")
	}
}

func TestClearCommand(t *testing.T) {
	m := newTestApp(t)
	m.deps.Center.Receive("a", "", nil)
	m.deps.Center.Receive("b", "", nil)

	m, _ = update(t, m, command.CommandMsg{Name: command.ClearNotifications})
	if m.deps.Center.Len() != 0 {
		t.Fatalf("center len = %d, want 0", m.deps.Center.Len())
	}
}

func TestCityCommand(t *testing.T) {
	m := newTestApp(t)

	m, cmd := update(t, m, command.CommandMsg{Name: command.City, Args: "bouake"})
	if m.currentView != ViewPharmacies {
		t.Fatalf("view = %v, want pharmacies", m.currentView)
	}
	if got := m.pharmacies.Query().City; got != "Bouaké" {
		t.Fatalf("city = %q, want Bouaké", got)
	}
	if cmd == nil {
		t.Fatal("expected a directory reload")
	}
}

func TestUnknownCommand(t *testing.T) {
	m := newTestApp(t)

	m, _ = update(t, m, command.UnknownMsg{Input: "foo"})
	if !m.statusErr || !strings.Contains(m.status, "foo") {
		t.Fatalf("status = %q err=%v", m.status, m.statusErr)
	}
}

func TestApplySettings(t *testing.T) {
	m := newTestApp(t)

	cfg := *m.deps.Config
	cfg.Location.MaxKM = 12
	m, _ = m.applySettings(cfg)
	if m.deps.Config.Location.MaxKM != 12 {
		t.Fatalf("max km = %v", m.deps.Config.Location.MaxKM)
	}
	if strings.Contains(m.status, "Redémarrez") {
		t.Fatalf("no restart needed, status = %q", m.status)
	}

	cfg.Backend.BaseURL = "https://autre.example.com"
	m, _ = m.applySettings(cfg)
	if !strings.Contains(m.status, "Redémarrez") {
		t.Fatalf("status = %q, want restart notice", m.status)
	}
}
