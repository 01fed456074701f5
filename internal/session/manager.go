// Package session tracks the backend session for a signed-in user and fans
// sign-out and account-deletion calls across the originating provider and the
// backend. State mirrors the mobile app's auth lifecycle: loading, then
// authenticated or unauthenticated.
package session

import (
	"context"
	"sync"

	"log/slog"

	"bookshell/internal/backend"
	"bookshell/internal/provider"
)

// Event identifies a session state transition.
type Event string

const (
	EventSignedIn           Event = "SIGNED_IN"
	EventSignedOut          Event = "SIGNED_OUT"
	EventTokenRefreshed     Event = "TOKEN_REFRESHED"
	EventTokenRefreshFailed Event = "TOKEN_REFRESH_FAILED"
)

// StateChange is delivered to subscribers on every transition.
type StateChange struct {
	Event   Event
	Session *backend.Session
}

// Warning records a secondary cleanup that failed without blocking the
// primary operation.
type Warning struct {
	Op  string
	Err error
}

// Result reports a completed sign-out or deletion. The primary operation
// succeeded; Warnings list provider-side cleanups that did not.
type Result struct {
	Warnings []Warning
}

// Warned reports whether the named cleanup failed.
func (r Result) Warned(op string) bool {
	for _, w := range r.Warnings {
		if w.Op == op {
			return true
		}
	}
	return false
}

// BackendAuth is the backend surface the manager needs.
type BackendAuth interface {
	GetUser(ctx context.Context, accessToken string) (*backend.User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*backend.Session, error)
	SignOut(ctx context.Context, accessToken, scope string) error
}

// TokenLookup resolves provider-side tokens for a backend user, e.g. from
// the naver_auth link table. May return zero Tokens when none are stored.
type TokenLookup func(ctx context.Context, user *backend.User) (provider.Tokens, error)

// Manager owns the current session and its transitions. All methods are safe
// for concurrent use; the app's single-threaded event loop maps to serialized
// access here.
type Manager struct {
	backend   BackendAuth
	providers *provider.Registry
	tokens    TokenLookup
	logger    *slog.Logger

	mu          sync.Mutex
	session     *backend.Session
	loading     bool
	subscribers map[int]chan StateChange
	nextSubID   int
}

// Option configures a Manager during construction.
type Option func(*Manager)

// WithTokenLookup wires provider token resolution for sign-out fan-out.
func WithTokenLookup(lookup TokenLookup) Option {
	return func(m *Manager) {
		m.tokens = lookup
	}
}

// NewManager creates a Manager. The backend client and provider registry are
// injected so tests can substitute fakes.
func NewManager(backendClient BackendAuth, providers *provider.Registry, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		backend:     backendClient,
		providers:   providers,
		logger:      logger,
		loading:     true,
		subscribers: make(map[int]chan StateChange),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the held session, or nil when unauthenticated.
func (m *Manager) Current() *backend.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// User returns the authenticated user, or nil.
func (m *Manager) User() *backend.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	return m.session.User
}

// IsAuthenticated reports whether a session is held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// IsLoading reports whether the initial session load is still in flight.
func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Subscribe registers for state changes. The returned cancel func must be
// called to release the subscription.
func (m *Manager) Subscribe() (<-chan StateChange, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	ch := make(chan StateChange, 8)
	m.subscribers[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// notify must be called with m.mu held.
func (m *Manager) notify(event Event, session *backend.Session) {
	for _, ch := range m.subscribers {
		select {
		case ch <- StateChange{Event: event, Session: session}:
		default:
			// Slow subscriber; drop rather than block the transition.
		}
	}
}

// SetSession adopts a freshly minted session, validating it against the
// backend when it carries no user.
func (m *Manager) SetSession(ctx context.Context, session *backend.Session) error {
	if session != nil && session.User == nil && session.AccessToken != "" {
		user, err := m.backend.GetUser(ctx, session.AccessToken)
		if err != nil {
			return err
		}
		session.User = user
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
	m.loading = false
	if session != nil {
		m.notify(EventSignedIn, session)
	}
	return nil
}

// Load restores the session state: it validates the held access token and
// falls back to a refresh. A rejected refresh token clears local state
// rather than surfacing an error, matching the app's cold-start behavior.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()

	if session == nil {
		m.finishLoad(nil, EventSignedOut)
		return nil
	}

	if _, err := m.backend.GetUser(ctx, session.AccessToken); err == nil {
		m.finishLoad(session, EventSignedIn)
		return nil
	}

	refreshed, err := m.backend.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		if backend.IsInvalidRefreshToken(err) || backend.IsSessionMissing(err) {
			m.logger.Info("stored session expired, clearing local state")
			m.finishLoad(nil, EventTokenRefreshFailed)
			return nil
		}
		m.finishLoad(nil, EventTokenRefreshFailed)
		return err
	}

	m.finishLoad(refreshed, EventTokenRefreshed)
	return nil
}

func (m *Manager) finishLoad(session *backend.Session, event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
	m.loading = false
	m.notify(event, session)
}

// Refresh exchanges the refresh token for a new session. Failure forces the
// unauthenticated state.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()

	if session == nil || session.RefreshToken == "" {
		return nil
	}

	refreshed, err := m.backend.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		m.mu.Lock()
		m.session = nil
		m.notify(EventTokenRefreshFailed, nil)
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.session = refreshed
	m.notify(EventTokenRefreshed, refreshed)
	m.mu.Unlock()
	return nil
}

// SignOut ends the session: the originating provider's sign-out runs
// best-effort, then the backend session is terminated. A missing backend
// session counts as success. Local state always clears.
func (m *Manager) SignOut(ctx context.Context) (Result, error) {
	return m.teardown(ctx, false)
}

// DeleteAccount mirrors SignOut but fully revokes the provider grant.
func (m *Manager) DeleteAccount(ctx context.Context) (Result, error) {
	return m.teardown(ctx, true)
}

func (m *Manager) teardown(ctx context.Context, revoke bool) (Result, error) {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()

	var result Result

	defer func() {
		m.mu.Lock()
		m.session = nil
		m.loading = false
		m.notify(EventSignedOut, nil)
		m.mu.Unlock()
	}()

	if session == nil {
		return result, nil
	}

	providerName := session.User.Provider()
	if providerName != "" {
		if err := m.providerCleanup(ctx, providerName, session, revoke); err != nil {
			op := "provider_sign_out"
			if revoke {
				op = "provider_revoke"
			}
			m.logger.Warn("provider cleanup failed", "provider", providerName, "op", op, "error", err)
			result.Warnings = append(result.Warnings, Warning{Op: op, Err: err})
		}
	}

	if err := m.backend.SignOut(ctx, session.AccessToken, "global"); err != nil {
		if !backend.IsSessionMissing(err) {
			return result, err
		}
		m.logger.Info("backend session already gone")
	}

	return result, nil
}

func (m *Manager) providerCleanup(ctx context.Context, name string, session *backend.Session, revoke bool) error {
	connector, err := m.providers.Get(name)
	if err != nil {
		return err
	}

	var tokens provider.Tokens
	if m.tokens != nil {
		tokens, err = m.tokens(ctx, session.User)
		if err != nil {
			return err
		}
	}

	if revoke {
		return connector.Revoke(ctx, tokens)
	}
	return connector.SignOut(ctx, tokens)
}
