// Package session owns the single signed-in user of this device.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nhle/alloci/internal/credential"
	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/store"
)

// ErrNotLoggedIn is returned by operations that need a user.
var ErrNotLoggedIn = errors.New("not logged in")

// Backend is the part of the API the session calls.
type Backend interface {
	Register(ctx context.Context, in model.RegisterInput) (*model.User, error)
	UpdateUser(ctx context.Context, id string, in model.ProfileUpdate) (*model.User, error)
	CheckSubscription(ctx context.Context, userID string) (*model.SubscriptionStatus, error)
	RegisterPushToken(ctx context.Context, reg model.PushRegistration) error
}

// TokenStore keeps the device push token.
type TokenStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Session holds the active user and keeps it persisted under the auth
// key. Every change of user re-sends the push registration.
type Session struct {
	store   store.Store
	backend Backend
	tokens  TokenStore
	logger  zerolog.Logger

	mu       sync.Mutex
	user     *model.User
	onChange []func(*model.User)
}

// New creates a session. Call Load to restore the persisted user.
func New(st store.Store, backend Backend, tokens TokenStore, logger zerolog.Logger) *Session {
	return &Session{
		store:   st,
		backend: backend,
		tokens:  tokens,
		logger:  logger,
	}
}

// OnChange registers fn to run, outside the lock, whenever the user
// changes. fn receives nil on logout.
func (s *Session) OnChange(fn func(*model.User)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// Load restores the persisted user, if any. It is also used to refresh
// the in-memory user from disk.
func (s *Session) Load(ctx context.Context) (*model.User, error) {
	raw, err := s.store.Get(ctx, store.KeyAuthUser)
	if store.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}

	s.setUser(ctx, &u)
	return s.User(), nil
}

// RefreshUserData reloads the user from disk, ignoring failures.
func (s *Session) RefreshUserData(ctx context.Context) {
	if _, err := s.Load(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("refreshing user data")
	}
}

// User returns a copy of the active user, or nil.
func (s *Session) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// UserID returns the active user's id, or "".
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// Register creates an account and makes it the active user.
func (s *Session) Register(ctx context.Context, in model.RegisterInput) (*model.User, error) {
	u, err := s.backend.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	s.setUser(ctx, u)
	return s.User(), nil
}

// UpdateProfile patches the profile. The fields sent take precedence over
// the server response.
func (s *Session) UpdateProfile(ctx context.Context, in model.ProfileUpdate) (*model.User, error) {
	id := s.UserID()
	if id == "" {
		return nil, ErrNotLoggedIn
	}

	updated, err := s.backend.UpdateUser(ctx, id, in)
	if err != nil {
		return nil, err
	}

	merged := in.ApplyTo(*updated)
	if merged.ID == "" {
		merged.ID = id
	}
	if err := s.save(ctx, &merged); err != nil {
		return nil, err
	}
	s.setUser(ctx, &merged)
	return s.User(), nil
}

// CheckPremium asks the backend for the user's subscription and records
// the result on the user.
func (s *Session) CheckPremium(ctx context.Context) (*model.SubscriptionStatus, error) {
	id := s.UserID()
	if id == "" {
		return nil, ErrNotLoggedIn
	}

	st, err := s.backend.CheckSubscription(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := s.user != nil && s.user.ID == id && s.user.IsPremium != st.IsPremium
	var u model.User
	if changed {
		s.user.IsPremium = st.IsPremium
		u = *s.user
	}
	s.mu.Unlock()

	if changed {
		if err := s.save(ctx, &u); err != nil {
			s.logger.Warn().Err(err).Msg("saving premium flag")
		}
	}
	return st, nil
}

// Logout forgets the active user.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.store.Delete(ctx, store.KeyAuthUser); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	s.setUser(ctx, nil)
	return nil
}

// SetPushToken stores the device token and registers it for the current
// user. Registration failures are logged, not returned.
func (s *Session) SetPushToken(ctx context.Context, token string) error {
	if err := s.tokens.Set(credential.KeyPushToken, token); err != nil {
		return fmt.Errorf("storing push token: %w", err)
	}
	s.registerPush(ctx, s.User())
	return nil
}

// ClearPushToken forgets the device token, so later user changes do not
// register an endpoint that no longer listens.
func (s *Session) ClearPushToken() error {
	if err := s.tokens.Delete(credential.KeyPushToken); err != nil {
		return fmt.Errorf("clearing push token: %w", err)
	}
	return nil
}

func (s *Session) registerPush(ctx context.Context, u *model.User) {
	token, err := s.tokens.Get(credential.KeyPushToken)
	if err != nil || token == "" {
		return
	}

	reg := model.PushRegistration{Token: token, Platform: runtime.GOOS}
	if u != nil {
		reg.UserID = u.ID
		reg.City = u.City
	}
	if err := s.backend.RegisterPushToken(ctx, reg); err != nil {
		s.logger.Warn().Err(err).Msg("registering push token")
	}
}

func (s *Session) save(ctx context.Context, u *model.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	if err := s.store.Set(ctx, store.KeyAuthUser, string(data)); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// setUser swaps the active user and notifies listeners. Push registration
// is repeated when the id or city changed.
func (s *Session) setUser(ctx context.Context, u *model.User) {
	s.mu.Lock()
	prev := s.user
	s.user = u
	listeners := make([]func(*model.User), len(s.onChange))
	copy(listeners, s.onChange)
	s.mu.Unlock()

	if identityChanged(prev, u) {
		s.registerPush(ctx, u)
	}
	for _, fn := range listeners {
		fn(s.User())
	}
}

func identityChanged(a, b *model.User) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil || b == nil:
		return true
	}
	return a.ID != b.ID || a.City != b.City
}
