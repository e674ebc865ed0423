// Package session owns the client's authentication state: the token, the
// user it belongs to, and the durable copy of the token.
//
// Every mutation takes a generation number when it is issued. A backend
// result is applied only if its generation is still the latest, so a slow
// login can never overwrite a newer login or a logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/me/hackloud/internal/logging"
	"github.com/me/hackloud/internal/store"
	"github.com/me/hackloud/pkg/hackloud"
	"github.com/me/hackloud/pkg/model"
)

// TokenKey is the durable storage key of the session token.
const TokenKey = "DDToken"

// ErrSuperseded is returned by Login when a newer login or a logout was
// issued before its fetch settled. The session reflects the newer operation.
var ErrSuperseded = errors.New("session: superseded by a newer operation")

// UserFetcher resolves a token to the user that owns it.
// *hackloud.Client satisfies it.
type UserFetcher interface {
	FetchCurrentUser(ctx context.Context, token string) (*model.User, error)
}

// Manager is the single owner of session state. Consumers receive it by
// reference and read it through Snapshot.
type Manager struct {
	fetcher UserFetcher
	store   store.Store
	logger  *slog.Logger

	mu    sync.Mutex
	gen   uint64
	token string
	user  *model.User
	state model.SessionState
}

// NewManager returns an anonymous session manager.
func NewManager(fetcher UserFetcher, st store.Store, logger *slog.Logger) *Manager {
	return &Manager{
		fetcher: fetcher,
		store:   st,
		logger:  logging.OrDiscard(logger).With("component", "session"),
		state:   model.SessionAnonymous,
	}
}

// Start restores the session from durable storage. A stored token that no
// longer resolves to a user is purged; failures are logged, never returned.
func (m *Manager) Start(ctx context.Context) {
	token, ok, err := m.store.GetItem(ctx, TokenKey)
	if err != nil {
		m.logger.Warn("read stored token", "error", err)
		return
	}
	if !ok || token == "" {
		m.logger.Debug("no stored token")
		return
	}

	err = m.authenticate(ctx, token)
	switch {
	case err == nil:
		m.logger.Info("session restored")
	case errors.Is(err, ErrSuperseded):
		m.logger.Debug("startup validation superseded")
	default:
		m.logger.Info("stored token rejected, signed out", "error", err)
	}
}

// Login validates token against the backend. On success the session holds
// the token and its user and the token is written to durable storage. On
// failure the session and durable storage are cleared and the error is
// returned.
func (m *Manager) Login(ctx context.Context, token string) error {
	if token == "" {
		return hackloud.NewValidationError("Login", map[string]string{"token": "The field 'token' is required."})
	}
	if err := m.authenticate(ctx, token); err != nil {
		if errors.Is(err, ErrSuperseded) {
			return err
		}
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// authenticate runs the fetch-and-populate sequence shared by Start and Login.
func (m *Manager) authenticate(ctx context.Context, token string) error {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.state = model.SessionAuthenticating
	m.mu.Unlock()

	m.logger.Debug("authenticating", "generation", gen)
	user, fetchErr := m.fetcher.FetchCurrentUser(ctx, token)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return ErrSuperseded
	}
	if fetchErr != nil {
		if err := m.clearLocked(ctx); err != nil {
			m.logger.Warn("purge stored token", "error", err)
		}
		return fetchErr
	}
	if err := m.store.SetItem(ctx, TokenKey, token); err != nil {
		if rmErr := m.clearLocked(ctx); rmErr != nil {
			m.logger.Warn("purge stored token", "error", rmErr)
		}
		return fmt.Errorf("persist token: %w", err)
	}
	m.token = token
	m.user = user.Clone()
	m.state = model.SessionAuthenticated
	return nil
}

// Logout clears the session and durable storage. Memory is cleared even
// when the storage removal fails; that error is returned.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	if err := m.clearLocked(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	m.logger.Debug("logged out", "generation", m.gen)
	return nil
}

// Refresh re-fetches the user for the current token. It reports whether the
// user was updated. Failures leave the session untouched.
func (m *Manager) Refresh(ctx context.Context) bool {
	m.mu.Lock()
	token, gen := m.token, m.gen
	authenticated := m.state == model.SessionAuthenticated
	m.mu.Unlock()

	if token == "" || !authenticated {
		return false
	}

	user, err := m.fetcher.FetchCurrentUser(ctx, token)
	if err != nil {
		m.logger.Warn("refresh current user", "error", err)
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		m.logger.Debug("refresh superseded", "generation", gen)
		return false
	}
	m.user = user.Clone()
	return true
}

// clearLocked resets every field and purges durable storage. Callers hold mu.
func (m *Manager) clearLocked(ctx context.Context) error {
	m.token = ""
	m.user = nil
	m.state = model.SessionAnonymous
	return m.store.RemoveItem(ctx, TokenKey)
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.Session{Token: m.token, User: m.user.Clone(), State: m.state}
}

// Token returns the current token, or "" when signed out.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// IsAdmin reports whether the current user has the admin role.
func (m *Manager) IsAdmin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.IsAdmin()
}
