package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/nhle/alloci/internal/model"
)

// newTestBackend mounts routes under /api and returns a client for it.
func newTestBackend(t *testing.T, routes func(r chi.Router)) *Client {
	t.Helper()

	r := chi.NewRouter()
	r.Route("/api", routes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return NewClient(srv.URL)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestMakeURL(t *testing.T) {
	tests := []struct {
		base string
		path string
		want string
	}{
		{"https://allo.ci", "/alerts", "https://allo.ci/api/alerts"},
		{"https://allo.ci/", "/alerts", "https://allo.ci/api/alerts"},
		{"https://allo.ci/api", "/alerts", "https://allo.ci/api/alerts"},
		{"https://allo.ci", "/api/alerts", "https://allo.ci/api/alerts"},
	}
	for _, tt := range tests {
		c := NewClient(tt.base)
		if got := c.makeURL(tt.path, nil); got != tt.want {
			t.Errorf("makeURL(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}

func TestAPIErrorCarriesDetail(t *testing.T) {
	c := newTestBackend(t, func(r chi.Router) {
		r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "User not found"})
		})
	})

	_, err := c.GetUser(context.Background(), "u1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Detail != "User not found" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if IsServerError(err) {
		t.Error("IsServerError(404) = true")
	}
}

func TestServerErrorIsNotRetried(t *testing.T) {
	calls := 0
	c := newTestBackend(t, func(r chi.Router) {
		r.Get("/alerts", func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	})

	_, err := c.ListAlerts(context.Background(), AlertFilter{})
	if !IsServerError(err) {
		t.Fatalf("IsServerError(%v) = false", err)
	}
	if calls != 1 {
		t.Errorf("backend called %d times, want 1", calls)
	}
}

func TestListAlertsFilters(t *testing.T) {
	c := newTestBackend(t, func(r chi.Router) {
		r.Get("/alerts", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("status") != "active" || r.URL.Query().Get("type") != "fire" {
				t.Errorf("query = %s", r.URL.RawQuery)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":"a1","title":"Feu","description":"d","type":"fire","created_at":"2024-05-01T10:00:00","status":"active"}]`))
		})
	})

	alerts, err := c.ListAlerts(context.Background(), AlertFilter{Status: "active", Type: model.AlertFire})
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID != "a1" || alerts[0].Read {
		t.Fatalf("alerts = %+v", alerts)
	}
	if alerts[0].CreatedAt.Hour() != 10 {
		t.Errorf("CreatedAt = %v, want 10:00 UTC", alerts[0].CreatedAt)
	}
}

func TestMarkAlertReadSendsUser(t *testing.T) {
	c := newTestBackend(t, func(r chi.Router) {
		r.Patch("/alerts/{id}/read", func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, "id") != "a1" {
				t.Errorf("id = %q", chi.URLParam(r, "id"))
			}
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["user_id"] != "u1" {
				t.Errorf("user_id = %q", body["user_id"])
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})
	})

	if err := c.MarkAlertRead(context.Background(), "a1", "u1"); err != nil {
		t.Fatalf("MarkAlertRead: %v", err)
	}
}

func TestUnreadCount(t *testing.T) {
	c := newTestBackend(t, func(r chi.Router) {
		r.Get("/alerts/unread_count", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("user_id") == "u1" {
				writeJSON(w, http.StatusOK, map[string]int{"count": 4})
				return
			}
			writeJSON(w, http.StatusOK, map[string]int{"count": 9})
		})
	})

	ctx := context.Background()
	if n, err := c.UnreadCount(ctx, "u1"); err != nil || n != 4 {
		t.Errorf("UnreadCount(u1) = %d, %v; want 4", n, err)
	}
	if n, err := c.UnreadCount(ctx, ""); err != nil || n != 9 {
		t.Errorf("UnreadCount(anonymous) = %d, %v; want 9", n, err)
	}
}

func TestUnreadCountRequiresCount(t *testing.T) {
	for _, body := range []string{`{}`, `{"count":null}`, `{"detail":"maintenance"}`} {
		t.Run(body, func(t *testing.T) {
			c := newTestBackend(t, func(r chi.Router) {
				r.Get("/alerts/unread_count", func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					_, _ = w.Write([]byte(body))
				})
			})

			_, err := c.UnreadCount(context.Background(), "")
			if !errors.Is(err, ErrMissingCount) {
				t.Fatalf("err = %v, want ErrMissingCount", err)
			}
		})
	}
}

func TestInitiatePaymentDefaultsAmount(t *testing.T) {
	c := newTestBackend(t, func(r chi.Router) {
		r.Post("/payments/{provider}/initiate", func(w http.ResponseWriter, r *http.Request) {
			var req model.PaymentRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.AmountFCFA != model.DefaultPremiumAmountFCFA {
				t.Errorf("amount = %d", req.AmountFCFA)
			}
			writeJSON(w, http.StatusOK, model.PaymentInitiation{
				TransactionID: "tx1",
				Provider:      chi.URLParam(r, "provider"),
				RedirectURL:   "https://checkout.example/tx1",
			})
		})
	})

	got, err := c.InitiatePayment(context.Background(), "cinetpay", model.PaymentRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}
	if got.Provider != "cinetpay" || got.CheckoutURL() != "https://checkout.example/tx1" {
		t.Errorf("initiation = %+v", got)
	}
}

func TestChatCompleteForcesNonStreaming(t *testing.T) {
	c := newTestBackend(t, func(r chi.Router) {
		r.Post("/ai/chat", func(w http.ResponseWriter, r *http.Request) {
			var req model.ChatRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Stream {
				t.Error("stream = true on completion request")
			}
			writeJSON(w, http.StatusOK, map[string]string{"content": "Bonjour!"})
		})
	})

	out, err := c.ChatComplete(context.Background(), model.ChatRequest{Stream: true})
	if err != nil {
		t.Fatalf("ChatComplete: %v", err)
	}
	if out.Text() != "Bonjour!" {
		t.Errorf("Text() = %q", out.Text())
	}
}

func TestChatStreamReturnsAnyStatus(t *testing.T) {
	c := newTestBackend(t, func(r chi.Router) {
		r.Post("/ai/chat", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
	})

	resp, err := c.ChatStream(context.Background(), model.ChatRequest{})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}
