package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/alloci/internal/api"
	"github.com/nhle/alloci/internal/keys"
	"github.com/nhle/alloci/internal/model"
)

type fakeBackend struct {
	alerts   []model.Alert
	markErr  error
	marked   []string
	resolved []string
}

func (f *fakeBackend) ListAlerts(_ context.Context, _ api.AlertFilter) ([]model.Alert, error) {
	return f.alerts, nil
}

func (f *fakeBackend) MarkAlertRead(_ context.Context, alertID, userID string) error {
	f.marked = append(f.marked, alertID+"/"+userID)
	return f.markErr
}

func (f *fakeBackend) ResolveAlert(_ context.Context, alertID string) error {
	f.resolved = append(f.resolved, alertID)
	return nil
}

func at(t time.Time) model.Timestamp { return model.Timestamp{Time: t} }

func newTestModel(b Backend, now time.Time) Model {
	m := New(b, keys.DefaultKeyMap(), 24*time.Hour, 80, 30)
	m.now = func() time.Time { return now }
	return m
}

func TestLoadedKeepsOnlyRecentNewestFirst(t *testing.T) {
	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	b := &fakeBackend{alerts: []model.Alert{
		{ID: "old", Title: "Ancienne", CreatedAt: at(now.Add(-25 * time.Hour))},
		{ID: "a", Title: "Incendie", CreatedAt: at(now.Add(-2 * time.Hour))},
		{ID: "b", Title: "Inondation", CreatedAt: at(now.Add(-10 * time.Minute))},
	}}
	m := newTestModel(b, now)

	msg := m.Load()()
	m, _ = m.Update(msg)

	got := m.Alerts()
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("alerts = %+v, want [b a]", got)
	}
}

func TestMarkReadRequiresUser(t *testing.T) {
	m := newTestModel(&fakeBackend{}, time.Now())
	if cmd := m.MarkRead("a1"); cmd != nil {
		t.Fatal("MarkRead without a user should return nil")
	}
}

func TestMarkReadFlagsAlertInPlace(t *testing.T) {
	now := time.Now()
	b := &fakeBackend{alerts: []model.Alert{
		{ID: "a1", Title: "Accident", CreatedAt: at(now.Add(-time.Minute))},
	}}
	m := newTestModel(b, now)
	m, _ = m.Update(m.Load()())
	m.SetUserID("u1")

	msg := m.MarkRead("a1")()
	m, _ = m.Update(msg)

	if len(b.marked) != 1 || b.marked[0] != "a1/u1" {
		t.Fatalf("marked = %v", b.marked)
	}
	got := m.Alerts()
	if len(got) != 1 || !got[0].Read {
		t.Fatalf("alert not flagged read: %+v", got)
	}
}

func TestMarkReadFailureShowsDetail(t *testing.T) {
	m := newTestModel(&fakeBackend{}, time.Now())
	m, _ = m.Update(MarkedReadMsg{
		AlertID: "a1",
		Err:     &api.APIError{StatusCode: 404, Detail: "Alert not found"},
	})
	status, isErr := m.Status()
	if status != "Alert not found" || !isErr {
		t.Fatalf("status = %q (err=%v)", status, isErr)
	}

	m, _ = m.Update(MarkedReadMsg{AlertID: "a1", Err: errors.New("boom")})
	if status, _ := m.Status(); status != "Erreur" {
		t.Fatalf("status = %q, want Erreur", status)
	}
}

func TestResolveReloads(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(b, time.Now())

	m, cmd := m.Update(m.Resolve("a1")())
	if len(b.resolved) != 1 {
		t.Fatalf("resolved = %v", b.resolved)
	}
	if cmd == nil {
		t.Fatal("expected a reload command")
	}
	if _, ok := cmd().(LoadedMsg); !ok {
		t.Fatal("reload command should produce LoadedMsg")
	}
	if status, isErr := m.Status(); status == "" || isErr {
		t.Fatalf("status = %q (err=%v)", status, isErr)
	}
}

func TestNewAlertKey(t *testing.T) {
	m := newTestModel(&fakeBackend{}, time.Now())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(NewAlertMsg); !ok {
		t.Fatal("n should request the publish form")
	}
}
