// Package ai implements the Allô IA chat session: it sends the
// transcript to the completion endpoint, renders streamed replies
// incrementally, and falls back to a one-shot completion when streaming
// is unavailable.
package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/alloci/internal/api"
	"github.com/nhle/alloci/internal/model"
)

// User-facing assistant messages.
const (
	UnavailableMessage  = "Service IA indisponible. Réessayez plus tard."
	GenericErrorMessage = "Une erreur est survenue."
)

const (
	defaultTemperature = 0.5
	defaultMaxTokens   = 1000
	readBufferSize     = 4096
)

var (
	// ErrBusy is returned by Send while a reply is in flight.
	ErrBusy = errors.New("a reply is already in progress")

	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// State is the lifecycle of a single send.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// StreamChunk represents a change to the transcript while a reply is
// produced. Text is the fragment appended to message MessageID, or its
// full content when Replace is set.
type StreamChunk struct {
	MessageID string
	Text      string
	Replace   bool
	Done      bool
}

// ChatClient is the part of the backend client the session needs.
type ChatClient interface {
	ChatStream(ctx context.Context, req model.ChatRequest) (*http.Response, error)
	ChatComplete(ctx context.Context, req model.ChatRequest) (*model.ChatCompletion, error)
}

// Session holds one conversation with the assistant. Only one send may be
// in flight at a time.
type Session struct {
	client      ChatClient
	transcript  *Transcript
	recent      *RecentPrompts
	logger      zerolog.Logger
	maxTokens   int
	greeting    string
	now         func() time.Time

	mu          sync.Mutex
	state       State
	cancel      context.CancelFunc
	temperature float64
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRecentPrompts records every sent prompt in r.
func WithRecentPrompts(r *RecentPrompts) SessionOption {
	return func(s *Session) { s.recent = r }
}

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) SessionOption {
	return func(s *Session) {
		if t > 0 {
			s.temperature = t
		}
	}
}

// WithMaxTokens overrides the reply length limit.
func WithMaxTokens(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithGreeting opens the transcript with an assistant message.
func WithGreeting(text string) SessionOption {
	return func(s *Session) { s.greeting = strings.TrimSpace(text) }
}

// WithClock overrides the time source for message timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession creates a chat session backed by client.
func NewSession(client ChatClient, opts ...SessionOption) *Session {
	s := &Session{
		client:      client,
		logger:      zerolog.Nop(),
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.recent == nil {
		s.recent = LoadRecentPrompts(context.Background(), nil, s.logger)
	}
	s.transcript = NewTranscript(s.now)
	s.greet()
	return s
}

func (s *Session) greet() {
	if s.greeting != "" {
		s.transcript.Append(model.RoleAssistant, s.greeting)
	}
}

// Send appends the user message and starts producing the reply. The
// returned channel receives transcript changes and is closed when the
// turn ends, after the session is idle again.
func (s *Session) Send(ctx context.Context, text string) (<-chan StreamChunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.state = StateSending
	turnCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	userMsg := s.transcript.Append(model.RoleUser, text)
	req := model.ChatRequest{
		Messages:    s.transcript.Turns(),
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}
	s.mu.Unlock()

	s.recent.Add(ctx, text)

	ch := make(chan StreamChunk, 16)
	ch <- StreamChunk{MessageID: userMsg.ID, Text: text}

	go func() {
		defer close(ch)
		defer s.finish()

		s.run(turnCtx, req, ch)
		s.emit(turnCtx, ch, StreamChunk{Done: true})
	}()

	return ch, nil
}

// SetTemperature changes the sampling temperature for later turns.
// Non-positive values are ignored.
func (s *Session) SetTemperature(t float64) {
	if t <= 0 {
		return
	}
	s.mu.Lock()
	s.temperature = t
	s.mu.Unlock()
}

// Stop aborts the in-flight reply, if any. No marker is appended.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []model.ChatMessage {
	return s.transcript.Messages()
}

// Recent returns the recent prompts, most recent first.
func (s *Session) Recent() []string {
	return s.recent.List()
}

// Reset aborts any reply and starts a fresh transcript. A reply that
// arrives for the aborted turn is not appended.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.transcript.Reset()
	s.greet()
}

func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = StateIdle
}

// emit delivers c unless the turn was aborted.
func (s *Session) emit(ctx context.Context, ch chan<- StreamChunk, c StreamChunk) {
	select {
	case ch <- c:
	case <-ctx.Done():
	}
}

// appendAssistant adds a whole reply unless the turn was aborted. The
// check and the append happen under mu so a concurrent Reset cannot slip
// between them.
func (s *Session) appendAssistant(ctx context.Context, ch chan<- StreamChunk, content string) {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	msg := s.transcript.Append(model.RoleAssistant, content)
	s.mu.Unlock()

	s.emit(ctx, ch, StreamChunk{MessageID: msg.ID, Text: content})
}

func (s *Session) run(ctx context.Context, req model.ChatRequest, ch chan<- StreamChunk) {
	if s.stream(ctx, req, ch) {
		return
	}
	if ctx.Err() != nil {
		return
	}
	s.complete(ctx, req, ch)
}

// stream attempts a streaming reply. It reports whether the turn was
// handled; false asks for the non-streaming fallback.
func (s *Session) stream(ctx context.Context, req model.ChatRequest, ch chan<- StreamChunk) bool {
	req.Stream = true
	resp, err := s.client.ChatStream(ctx, req)
	if err != nil {
		if isAbort(ctx, err) {
			return true
		}
		s.logger.Warn().Err(err).Msg("chat stream request failed, falling back")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			s.logger.Warn().Int("status", resp.StatusCode).Msg("chat service unavailable")
			s.appendAssistant(ctx, ch, UnavailableMessage)
			return true
		}
		s.logger.Debug().Int("status", resp.StatusCode).Msg("chat stream refused, falling back")
		return false
	}
	if resp.Body == nil || resp.Body == http.NoBody || resp.ContentLength == 0 {
		return false
	}

	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return true
	}
	s.state = StateStreaming
	reply := s.transcript.Append(model.RoleAssistant, "")
	s.mu.Unlock()
	s.emit(ctx, ch, StreamChunk{MessageID: reply.ID})

	var dec StreamDecoder
	buf := make([]byte, readBufferSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				switch ev.Kind {
				case EventDone:
					return true
				case EventError:
					s.transcript.Replace(reply.ID, UnavailableMessage)
					s.emit(ctx, ch, StreamChunk{MessageID: reply.ID, Text: UnavailableMessage, Replace: true})
					return true
				case EventContent:
					s.transcript.Extend(reply.ID, ev.Content)
					s.emit(ctx, ch, StreamChunk{MessageID: reply.ID, Text: ev.Content})
				}
			}
		}
		if errors.Is(err, io.EOF) {
			if dec.Pending() > 0 {
				s.logger.Debug().Int("bytes", dec.Pending()).Msg("discarding incomplete stream line")
			}
			return true
		}
		if err != nil {
			if isAbort(ctx, err) {
				return true
			}
			s.logger.Warn().Err(err).Msg("chat stream interrupted, falling back")
			return false
		}
	}
}

// complete performs the one-shot fallback request.
func (s *Session) complete(ctx context.Context, req model.ChatRequest, ch chan<- StreamChunk) {
	req.Stream = false
	out, err := s.client.ChatComplete(ctx, req)
	if err != nil {
		if isAbort(ctx, err) {
			return
		}

		var apiErr *api.APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.StatusCode >= 500:
			s.appendAssistant(ctx, ch, UnavailableMessage)
		case errors.As(err, &apiErr) && apiErr.Detail != "":
			s.appendAssistant(ctx, ch, apiErr.Detail)
		default:
			s.logger.Warn().Err(err).Msg("chat completion failed")
			s.appendAssistant(ctx, ch, GenericErrorMessage)
		}
		return
	}

	s.appendAssistant(ctx, ch, out.Text())
}

// isAbort reports whether err comes from Stop or a canceled parent.
func isAbort(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled)
}
