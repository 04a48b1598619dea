package sekura

import (
	"context"
	"encoding/json"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/jonboulle/clockwork"
)

// AuthResult is what Login and Register hand back to the UI. They never
// return a Go error; failures are folded into the Error message so a screen
// can render it directly.
type AuthResult struct {
	Success bool
	Error   string
}

// AuthService is the slice of the remote API the session manager needs.
// *Client satisfies it.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*AuthPayload, error)
	Register(ctx context.Context, username, email, password string) (*AuthPayload, error)
}

// SessionObserver receives every session snapshot change.
type SessionObserver func(Session)

// SessionManager owns the in-memory session and drives the status graph.
// Construct one at process start and pass it by reference to the navigation
// guard and the feature coordinators; it replaces the ambient singleton the
// app shell would otherwise reach for.
type SessionManager struct {
	store   CredentialStore
	service AuthService

	mu        sync.Mutex
	session   Session
	restoring chan struct{}
	observers map[int]SessionObserver
	nextObs   int

	validator TokenValidator
	clock     clockwork.Clock
	logger    Logger
}

// NewSessionManager returns a manager in the unresolved state.
func NewSessionManager(store CredentialStore, service AuthService) *SessionManager {
	return &SessionManager{
		store:     store,
		service:   service,
		session:   Session{Status: StatusUnresolved},
		observers: map[int]SessionObserver{},
		clock:     clockwork.NewRealClock(),
		logger:    defaultLogger("session"),
	}
}

func (m *SessionManager) WithLogger(logger Logger) *SessionManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithClock injects a custom clock (useful for tests).
func (m *SessionManager) WithClock(clock clockwork.Clock) *SessionManager {
	if clock != nil {
		m.clock = clock
	}
	return m
}

// WithTokenValidator rejects persisted tokens during Restore, e.g.
// ExpiryValidator to drop expired JWTs instead of trusting them.
func (m *SessionManager) WithTokenValidator(v TokenValidator) *SessionManager {
	m.validator = v
	return m
}

// Current returns the latest session snapshot.
func (m *SessionManager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Token implements TokenSource for outgoing requests.
func (m *SessionManager) Token() string {
	return m.Current().Token
}

// Subscribe registers an observer and immediately delivers the current
// snapshot. The returned function unsubscribes.
func (m *SessionManager) Subscribe(obs SessionObserver) func() {
	if obs == nil {
		return func() {}
	}
	m.mu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = obs
	current := m.session
	m.mu.Unlock()

	obs(current)

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// Restore reads the persisted credential and settles the session status.
// Concurrent callers collapse onto the single in-flight restore: exactly one
// storage read sequence runs and every caller observes its result. Any
// storage or parse failure settles to anonymous; Restore never fails.
func (m *SessionManager) Restore(ctx context.Context) Session {
	m.mu.Lock()
	if ch := m.restoring; ch != nil {
		m.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
		}
		return m.Current()
	}

	ch := make(chan struct{})
	m.restoring = ch
	observers := m.applyLocked(Session{Status: StatusResolving})
	m.mu.Unlock()
	notify(observers, Session{Status: StatusResolving})

	started := m.clock.Now()
	next := m.readCredential(ctx)
	m.logger.Debug("session restored",
		"status", string(next.Status), "took", m.clock.Since(started))

	m.mu.Lock()
	observers = m.applyLocked(next)
	m.restoring = nil
	m.mu.Unlock()
	close(ch)
	notify(observers, next)

	return next
}

func (m *SessionManager) readCredential(ctx context.Context) Session {
	token, err := m.store.Get(ctx, KeyToken)
	if err != nil || token == "" {
		if err != nil && !goerrors.IsNotFound(err) {
			m.logger.Warn("token read failed, treating as absent", "error", err)
		}
		return Session{Status: StatusAnonymous}
	}

	raw, err := m.store.Get(ctx, KeyUser)
	if err != nil || raw == "" {
		if err != nil && !goerrors.IsNotFound(err) {
			m.logger.Warn("user read failed, treating as absent", "error", err)
		}
		return Session{Status: StatusAnonymous}
	}

	var user UserProfile
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		m.logger.Warn("persisted user payload does not parse", "error", err)
		return Session{Status: StatusAnonymous}
	}

	if m.validator != nil {
		if err := m.validator(token); err != nil {
			m.logger.Info("persisted token rejected", "error", err)
			return Session{Status: StatusAnonymous}
		}
	}

	return Session{Status: StatusAuthenticated, User: &user, Token: token}
}

// Login exchanges credentials for a token. On success the credential is
// persisted and the session becomes authenticated. On any failure the
// session is left untouched and the server message (or a fallback) is
// returned for display.
func (m *SessionManager) Login(ctx context.Context, email, password string) AuthResult {
	payload, err := m.service.Login(ctx, email, password)
	if err != nil {
		return AuthResult{Success: false, Error: authErrorMessage(err)}
	}
	m.establish(ctx, payload)
	return AuthResult{Success: true}
}

// Register creates an account and signs it in, with Login's semantics.
func (m *SessionManager) Register(ctx context.Context, username, email, password string) AuthResult {
	payload, err := m.service.Register(ctx, username, email, password)
	if err != nil {
		return AuthResult{Success: false, Error: authErrorMessage(err)}
	}
	m.establish(ctx, payload)
	return AuthResult{Success: true}
}

// establish persists the credential and flips the session to authenticated.
// Persistence failures are logged and swallowed: the session still works for
// this run, and the next restore simply lands on anonymous.
func (m *SessionManager) establish(ctx context.Context, payload *AuthPayload) {
	if err := m.store.Set(ctx, KeyToken, payload.Token); err != nil {
		m.logger.Warn("token persist failed", "error", err)
	}
	if raw, err := json.Marshal(payload.User); err == nil {
		if err := m.store.Set(ctx, KeyUser, string(raw)); err != nil {
			m.logger.Warn("user persist failed", "error", err)
		}
	}

	user := payload.User
	next := Session{Status: StatusAuthenticated, User: &user, Token: payload.Token}
	m.mu.Lock()
	observers := m.applyLocked(next)
	m.mu.Unlock()
	notify(observers, next)
}

// Logout clears the persisted credential and settles on anonymous. Removal
// completes before Logout returns; it is not fire-and-forget. Removal errors
// are logged and swallowed, and the in-memory state clears regardless.
func (m *SessionManager) Logout(ctx context.Context) {
	if err := m.store.Remove(ctx, KeyToken); err != nil {
		m.logger.Warn("token removal failed", "error", err)
	}
	if err := m.store.Remove(ctx, KeyUser); err != nil {
		m.logger.Warn("user removal failed", "error", err)
	}

	next := Session{Status: StatusAnonymous}
	m.mu.Lock()
	observers := m.applyLocked(next)
	m.mu.Unlock()
	notify(observers, next)
}

// applyLocked swaps the snapshot and returns the observers to notify once
// the lock is released. Callers hold mu. Observers get a copy of the set so
// one can unsubscribe from within its callback.
func (m *SessionManager) applyLocked(next Session) []SessionObserver {
	if next.Status != m.session.Status && !CanTransition(m.session.Status, next.Status) {
		m.logger.Debug("session transition outside graph",
			"from", string(m.session.Status), "to", string(next.Status))
	}
	m.session = next

	observers := make([]SessionObserver, 0, len(m.observers))
	for _, obs := range m.observers {
		observers = append(observers, obs)
	}
	return observers
}

func notify(observers []SessionObserver, snapshot Session) {
	for _, obs := range observers {
		obs(snapshot)
	}
}

// authErrorMessage extracts the server-provided message when there is one.
func authErrorMessage(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Message != "" {
		return rich.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallbackAuthError
}
