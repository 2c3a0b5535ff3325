package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nhle/alloci/internal/api"
	"github.com/nhle/alloci/internal/model"
)

// chunkedBody returns its parts one Read at a time.
type chunkedBody struct {
	parts []string
}

func (b *chunkedBody) Read(p []byte) (int, error) {
	if len(b.parts) == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.parts[0])
	b.parts[0] = b.parts[0][n:]
	if b.parts[0] == "" {
		b.parts = b.parts[1:]
	}
	return n, nil
}

func (b *chunkedBody) Close() error { return nil }

// blockingBody sends its first part, then blocks until ctx ends.
type blockingBody struct {
	ctx  context.Context
	sent bool
	head string
}

func (b *blockingBody) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		return copy(p, b.head), nil
	}
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func (b *blockingBody) Close() error { return nil }

// failingBody returns a transport error after its head.
type failingBody struct {
	head string
	done bool
}

func (b *failingBody) Read(p []byte) (int, error) {
	if !b.done {
		b.done = true
		return copy(p, b.head), nil
	}
	return 0, errors.New("connection reset by peer")
}

func (b *failingBody) Close() error { return nil }

type fakeChat struct {
	mu          sync.Mutex
	stream      func(ctx context.Context) (*http.Response, error)
	complete    func(ctx context.Context) (*model.ChatCompletion, error)
	streamCalls int
	fallbacks   int
	lastReq     model.ChatRequest
}

func (f *fakeChat) ChatStream(ctx context.Context, req model.ChatRequest) (*http.Response, error) {
	f.mu.Lock()
	f.streamCalls++
	f.lastReq = req
	f.mu.Unlock()
	return f.stream(ctx)
}

func (f *fakeChat) ChatComplete(ctx context.Context, req model.ChatRequest) (*model.ChatCompletion, error) {
	f.mu.Lock()
	f.fallbacks++
	f.mu.Unlock()
	if f.complete == nil {
		return &model.ChatCompletion{Content: "fallback"}, nil
	}
	return f.complete(ctx)
}

func (f *fakeChat) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streamCalls, f.fallbacks
}

func okResponse(body io.ReadCloser) *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: body, ContentLength: -1}
}

func statusResponse(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: http.NoBody}
}

// drain consumes ch until it closes or the test times out.
func drain(t *testing.T, ch <-chan StreamChunk) []StreamChunk {
	t.Helper()
	var chunks []StreamChunk
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return chunks
			}
			chunks = append(chunks, c)
		case <-timeout:
			t.Fatal("timed out waiting for the turn to end")
			return nil
		}
	}
}

func assistantMessages(msgs []model.ChatMessage) []string {
	var out []string
	for _, m := range msgs {
		if m.Role == model.RoleAssistant {
			out = append(out, m.Content)
		}
	}
	return out
}

func TestBonjourScenario(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/ai/chat", func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range []string{
			`data: {"content":"Bon"}` + "\n",
			`data: {"content":"jour!"}` + "\n",
			"data: [DONE]\n",
		} {
			_, _ = io.WriteString(w, line)
			flusher.Flush()
		}
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	s := NewSession(api.NewClient(srv.URL))
	ch, err := s.Send(context.Background(), "Bonjour")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	drain(t, ch)

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("transcript = %+v, want 2 messages", msgs)
	}
	if msgs[0].Role != model.RoleUser || msgs[0].Content != "Bonjour" {
		t.Errorf("first = %+v, want user \"Bonjour\"", msgs[0])
	}
	if msgs[1].Role != model.RoleAssistant || msgs[1].Content != "Bonjour!" {
		t.Errorf("second = %+v, want assistant \"Bonjour!\"", msgs[1])
	}
}

func TestDoneStopsAndNextSendAccepted(t *testing.T) {
	f := &fakeChat{stream: func(context.Context) (*http.Response, error) {
		return okResponse(&chunkedBody{parts: []string{
			`data: {"content":"A"}` + "\n" + "data: [DONE]\n",
			`data: {"content":"ignored"}` + "\n",
		}}), nil
	}}
	s := NewSession(f)

	ch, err := s.Send(context.Background(), "one")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	drain(t, ch)

	if got := assistantMessages(s.Messages()); len(got) != 1 || got[0] != "A" {
		t.Fatalf("assistant = %q, want [\"A\"]", got)
	}
	if s.State() != StateIdle {
		t.Fatalf("state = %v, want idle", s.State())
	}

	ch, err = s.Send(context.Background(), "two")
	if err != nil {
		t.Fatalf("second Send: %v", err)
	}
	drain(t, ch)
	if _, fallbacks := f.counts(); fallbacks != 0 {
		t.Errorf("fallbacks = %d, want 0", fallbacks)
	}
}

func TestServerErrorAppendsUnavailableWithoutFallback(t *testing.T) {
	f := &fakeChat{stream: func(context.Context) (*http.Response, error) {
		return statusResponse(http.StatusServiceUnavailable), nil
	}}
	s := NewSession(f)

	ch, _ := s.Send(context.Background(), "Bonjour")
	drain(t, ch)

	got := assistantMessages(s.Messages())
	if len(got) != 1 || got[0] != UnavailableMessage {
		t.Errorf("assistant = %q, want exactly [%q]", got, UnavailableMessage)
	}
	if _, fallbacks := f.counts(); fallbacks != 0 {
		t.Errorf("fallbacks = %d, want 0", fallbacks)
	}
}

func TestFallbackCases(t *testing.T) {
	tests := []struct {
		name     string
		stream   func(ctx context.Context) (*http.Response, error)
		complete func(ctx context.Context) (*model.ChatCompletion, error)
		want     []string
	}{
		{
			name:   "client error status",
			stream: func(context.Context) (*http.Response, error) { return statusResponse(http.StatusBadRequest), nil },
			want:   []string{"fallback"},
		},
		{
			name: "no body",
			stream: func(context.Context) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
			},
			want: []string{"fallback"},
		},
		{
			name:   "transport error",
			stream: func(context.Context) (*http.Response, error) { return nil, errors.New("dial tcp: refused") },
			want:   []string{"fallback"},
		},
		{
			name: "mid-stream failure keeps partial reply",
			stream: func(context.Context) (*http.Response, error) {
				return okResponse(&failingBody{head: `data: {"content":"par"}` + "\n"}), nil
			},
			want: []string{"par", "fallback"},
		},
		{
			name:   "fallback server error",
			stream: func(context.Context) (*http.Response, error) { return statusResponse(http.StatusNotFound), nil },
			complete: func(context.Context) (*model.ChatCompletion, error) {
				return nil, &api.APIError{Method: "POST", Path: "/ai/chat", StatusCode: 502}
			},
			want: []string{UnavailableMessage},
		},
		{
			name:   "fallback detail",
			stream: func(context.Context) (*http.Response, error) { return statusResponse(http.StatusNotFound), nil },
			complete: func(context.Context) (*model.ChatCompletion, error) {
				return nil, &api.APIError{StatusCode: 403, Detail: "Premium requis"}
			},
			want: []string{"Premium requis"},
		},
		{
			name:   "fallback without detail",
			stream: func(context.Context) (*http.Response, error) { return statusResponse(http.StatusNotFound), nil },
			complete: func(context.Context) (*model.ChatCompletion, error) {
				return nil, &api.APIError{StatusCode: 422}
			},
			want: []string{GenericErrorMessage},
		},
		{
			name:   "fallback transport error",
			stream: func(context.Context) (*http.Response, error) { return statusResponse(http.StatusNotFound), nil },
			complete: func(context.Context) (*model.ChatCompletion, error) {
				return nil, errors.New("timeout")
			},
			want: []string{GenericErrorMessage},
		},
		{
			name:   "fallback uses detail when content empty",
			stream: func(context.Context) (*http.Response, error) { return statusResponse(http.StatusNotFound), nil },
			complete: func(context.Context) (*model.ChatCompletion, error) {
				return &model.ChatCompletion{Detail: "quota atteint"}, nil
			},
			want: []string{"quota atteint"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(&fakeChat{stream: tt.stream, complete: tt.complete})
			ch, err := s.Send(context.Background(), "question")
			if err != nil {
				t.Fatalf("Send: %v", err)
			}
			drain(t, ch)

			got := assistantMessages(s.Messages())
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("assistant = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStreamErrorEventReplacesReply(t *testing.T) {
	f := &fakeChat{stream: func(context.Context) (*http.Response, error) {
		return okResponse(&chunkedBody{parts: []string{
			`data: {"content":"Bon"}` + "\n",
			`data: {"error":"model overloaded"}` + "\n",
		}}), nil
	}}
	s := NewSession(f)

	ch, _ := s.Send(context.Background(), "Bonjour")
	chunks := drain(t, ch)

	got := assistantMessages(s.Messages())
	if len(got) != 1 || got[0] != UnavailableMessage {
		t.Errorf("assistant = %q, want [%q]", got, UnavailableMessage)
	}
	if _, fallbacks := f.counts(); fallbacks != 0 {
		t.Errorf("fallbacks = %d, want 0", fallbacks)
	}

	var replaced bool
	for _, c := range chunks {
		replaced = replaced || c.Replace
	}
	if !replaced {
		t.Error("no Replace chunk emitted for the error event")
	}
}

func TestStopAbortsWithoutMarker(t *testing.T) {
	f := &fakeChat{stream: func(ctx context.Context) (*http.Response, error) {
		return okResponse(&blockingBody{ctx: ctx, head: `data: {"content":"Bon"}` + "\n"}), nil
	}}
	s := NewSession(f)

	ch, err := s.Send(context.Background(), "Bonjour")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	// Wait until the first fragment has landed.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if got := assistantMessages(s.Messages()); len(got) == 1 && got[0] == "Bon" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first fragment never arrived")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := s.Send(context.Background(), "encore"); !errors.Is(err, ErrBusy) {
		t.Errorf("Send while streaming error = %v, want ErrBusy", err)
	}

	s.Stop()
	drain(t, ch)

	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
	got := assistantMessages(s.Messages())
	if len(got) != 1 || got[0] != "Bon" {
		t.Errorf("assistant = %q, want [\"Bon\"] with no marker", got)
	}
	if _, fallbacks := f.counts(); fallbacks != 0 {
		t.Errorf("fallbacks = %d, want 0", fallbacks)
	}
}

func TestSendRejectsBlank(t *testing.T) {
	s := NewSession(&fakeChat{})
	if _, err := s.Send(context.Background(), "  \n"); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("error = %v, want ErrEmptyMessage", err)
	}
}

func TestRequestCarriesTranscriptAndSettings(t *testing.T) {
	f := &fakeChat{stream: func(context.Context) (*http.Response, error) {
		return okResponse(&chunkedBody{parts: []string{"data: [DONE]\n"}}), nil
	}}
	s := NewSession(f, WithGreeting("Bonjour, je suis Allô IA."), WithTemperature(0.2), WithMaxTokens(300))

	ch, _ := s.Send(context.Background(), "Quels documents pour un passeport ?")
	drain(t, ch)

	req := f.lastReq
	if !req.Stream || req.Temperature != 0.2 || req.MaxTokens != 300 {
		t.Errorf("request settings = %+v", req)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != model.RoleAssistant || req.Messages[1].Role != model.RoleUser {
		t.Errorf("request messages = %+v, want greeting then user", req.Messages)
	}
	if got := s.Recent(); len(got) != 1 || got[0] != "Quels documents pour un passeport ?" {
		t.Errorf("Recent() = %v", got)
	}
}

func TestResetKeepsGreeting(t *testing.T) {
	f := &fakeChat{stream: func(context.Context) (*http.Response, error) {
		return statusResponse(http.StatusInternalServerError), nil
	}}
	s := NewSession(f, WithGreeting("Salut"))

	ch, _ := s.Send(context.Background(), "q")
	drain(t, ch)
	s.Reset()

	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Content != "Salut" {
		t.Errorf("after Reset = %+v, want only the greeting", msgs)
	}
}

func TestResetDropsLateReply(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		var s *Session
		f := &fakeChat{stream: func(context.Context) (*http.Response, error) {
			s.Reset()
			return statusResponse(http.StatusServiceUnavailable), nil
		}}
		s = NewSession(f)

		ch, err := s.Send(context.Background(), "Bonjour")
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		drain(t, ch)

		if msgs := s.Messages(); len(msgs) != 0 {
			t.Errorf("messages = %+v, want empty transcript", msgs)
		}
	})

	t.Run("fallback completion", func(t *testing.T) {
		var s *Session
		f := &fakeChat{
			stream: func(context.Context) (*http.Response, error) {
				return statusResponse(http.StatusBadRequest), nil
			},
			complete: func(context.Context) (*model.ChatCompletion, error) {
				s.Reset()
				return &model.ChatCompletion{Content: "trop tard"}, nil
			},
		}
		s = NewSession(f, WithGreeting("Salut"))

		ch, err := s.Send(context.Background(), "Bonjour")
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		drain(t, ch)

		msgs := s.Messages()
		if len(msgs) != 1 || msgs[0].Content != "Salut" {
			t.Errorf("messages = %+v, want only the greeting", msgs)
		}
		if s.State() != StateIdle {
			t.Errorf("state = %v, want idle", s.State())
		}
	})
}
