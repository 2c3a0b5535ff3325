// Package push accepts push notifications on a local HTTP endpoint and
// hands them to the UI. It stands in for the platform push service a
// phone would use.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// maxBody bounds a single push payload.
const maxBody = 64 << 10

// Payload is one received notification, shaped like an Expo push message.
type Payload struct {
	Title string          `json:"title,omitempty"`
	Body  string          `json:"body,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ReceivedMsg is the tea.Msg delivered for every accepted push.
type ReceivedMsg struct {
	Payload Payload
}

// Receiver is the local push endpoint.
type Receiver struct {
	logger zerolog.Logger
	ch     chan Payload
	srv    *http.Server
	addr   string
}

// NewReceiver creates a receiver. Call Start to begin listening.
func NewReceiver(logger zerolog.Logger) *Receiver {
	r := &Receiver{
		logger: logger,
		ch:     make(chan Payload, 16),
	}
	r.srv = &http.Server{
		Handler:           r.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return r
}

// Handler returns the HTTP routes of the receiver.
func (r *Receiver) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(chiMiddleware.Recoverer)
	mux.Use(chiMiddleware.Heartbeat("/health"))
	mux.Post("/push", r.handlePush)
	return mux
}

func (r *Receiver) handlePush(w http.ResponseWriter, req *http.Request) {
	var p Payload
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBody))
	if err := dec.Decode(&p); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if p.Title == "" && p.Body == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "title or body required")
		return
	}

	select {
	case r.ch <- p:
		w.WriteHeader(http.StatusAccepted)
	default:
		r.logger.Warn().Str("title", p.Title).Msg("push queue full, dropping")
		writeDetail(w, http.StatusServiceUnavailable, "busy")
	}
}

// writeDetail writes a JSON error body in the backend's {"detail": ...}
// shape.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// Start listens on addr and serves in the background.
func (r *Receiver) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	r.addr = ln.Addr().String()

	go func() {
		if err := r.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error().Err(err).Msg("push receiver stopped")
		}
	}()
	r.logger.Info().Str("addr", r.addr).Msg("push receiver listening")
	return nil
}

// Addr returns the bound address once started.
func (r *Receiver) Addr() string {
	return r.addr
}

// Token is the device token registered with the backend for this
// receiver.
func (r *Receiver) Token() string {
	return "http://" + r.addr + "/push"
}

// Wait returns a tea.Cmd that blocks until the next push arrives.
// Call it again after handling each ReceivedMsg.
func (r *Receiver) Wait() tea.Cmd {
	return func() tea.Msg {
		p, ok := <-r.ch
		if !ok {
			return nil
		}
		return ReceivedMsg{Payload: p}
	}
}

// Close shuts the server down.
func (r *Receiver) Close(ctx context.Context) error {
	if err := r.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down push receiver: %w", err)
	}
	return nil
}
