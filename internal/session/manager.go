package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/clubhub/backend/internal/models"
)

// Distinct error kinds so callers can tell a credential failure from a
// validation failure from a backend failure.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPasswordMismatch   = errors.New("password confirmation does not match")
)

// AuthService is the authentication-service port. The pgx-backed
// implementation lives in internal/auth; tests substitute a stub.
type AuthService interface {
	VerifyCredentials(ctx context.Context, email, password string) (*models.User, error)
	CreateAccount(ctx context.Context, p CreateAccountParams) (*models.User, error)
	LookupIdentity(ctx context.Context, identityKey string) (*models.User, error)
}

// CreateAccountParams are the fields submitted at registration.
type CreateAccountParams struct {
	Email    string
	Password string
	Name     string
	Role     models.Role
	ClubID   *uuid.UUID
}

// RegisterData is CreateAccountParams plus the client-side confirmation.
type RegisterData struct {
	CreateAccountParams
	ConfirmPassword string
}

// Phase is the coarse session lifecycle state driving view routing.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseUnauthenticated
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// State is the observable session state. IsAuthenticated is true iff User is
// present; IsLoading is true only during the initial restore and in-flight
// login/registration.
type State struct {
	User            *models.User `json:"user,omitempty"`
	IsAuthenticated bool         `json:"is_authenticated"`
	IsLoading       bool         `json:"is_loading"`
}

// TokenIssuer mints the opaque session token persisted in the TokenStore.
type TokenIssuer func(user *models.User) (string, error)

// Manager owns one session's state. It is the single writer; readers obtain
// snapshots via State. All credential work is delegated to the AuthService
// port and all token persistence to the TokenStore, so the manager itself
// never touches storage entries it does not own.
type Manager struct {
	mu       sync.Mutex
	state    State
	restored bool
	token    string
	store    TokenStore
	svc      AuthService
	issue    TokenIssuer
}

// NewManager creates a Manager in the loading phase. issue may be nil, in
// which case opaque random tokens are minted.
func NewManager(store TokenStore, svc AuthService, issue TokenIssuer) *Manager {
	if issue == nil {
		issue = func(*models.User) (string, error) { return uuid.NewString(), nil }
	}
	return &Manager{
		state: State{IsLoading: true},
		store: store,
		svc:   svc,
		issue: issue,
	}
}

// State returns a snapshot of the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Token returns the current session token, empty when unauthenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Phase reports the lifecycle phase of the session.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.state.IsLoading && !m.restored:
		return PhaseLoading
	case m.state.IsAuthenticated:
		return PhaseAuthenticated
	default:
		return PhaseUnauthenticated
	}
}

// Restore resolves the loading phase exactly once: if token is present in
// the store and its identity key resolves to a known user, the session
// becomes authenticated; otherwise unauthenticated. An unknown token or
// unresolvable identity key is a graceful fallback, not an error. Later
// calls return the current state unchanged.
func (m *Manager) Restore(ctx context.Context, token string) State {
	m.mu.Lock()
	if m.restored {
		defer m.mu.Unlock()
		return m.state
	}
	m.restored = true
	m.mu.Unlock()

	if token == "" {
		return m.resolve(nil, "")
	}
	identityKey, err := m.store.Lookup(ctx, token)
	if err != nil {
		return m.resolve(nil, "")
	}
	user, err := m.svc.LookupIdentity(ctx, identityKey)
	if err != nil || user == nil {
		return m.resolve(nil, "")
	}
	return m.resolve(user, token)
}

// Login verifies credentials and establishes the session. On failure no
// partial state change is observable and IsLoading is never left true.
func (m *Manager) Login(ctx context.Context, email, password string) (State, error) {
	m.setLoading(true)

	user, err := m.svc.VerifyCredentials(ctx, email, password)
	if err != nil {
		m.setLoading(false)
		return m.State(), err
	}
	return m.establish(ctx, user)
}

// Register creates a new account and establishes the session. The password
// confirmation is checked before any state mutation or storage write.
func (m *Manager) Register(ctx context.Context, data RegisterData) (State, error) {
	if data.Password != data.ConfirmPassword {
		return m.State(), ErrPasswordMismatch
	}
	if _, err := models.ParseRole(string(data.Role)); err != nil {
		return m.State(), err
	}
	m.setLoading(true)

	user, err := m.svc.CreateAccount(ctx, data.CreateAccountParams)
	if err != nil {
		m.setLoading(false)
		return m.State(), err
	}
	return m.establish(ctx, user)
}

// Logout clears the persisted token entry and moves the session to the
// unauthenticated terminal state.
func (m *Manager) Logout(ctx context.Context) (State, error) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()

	if token != "" {
		if err := m.store.Delete(ctx, token); err != nil {
			return m.State(), err
		}
	}
	return m.resolve(nil, ""), nil
}

// UpdateUser applies a profile mutation to the current user. No-op when
// unauthenticated.
func (m *Manager) UpdateUser(apply func(u *models.User)) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.User != nil {
		u := *m.state.User
		apply(&u)
		m.state.User = &u
	}
	return m.state
}

// establish mints and persists a token, then resolves to authenticated. A
// storage failure rolls back to unauthenticated rather than leaving a
// session without a persisted token.
func (m *Manager) establish(ctx context.Context, user *models.User) (State, error) {
	token, err := m.issue(user)
	if err != nil {
		m.setLoading(false)
		return m.State(), err
	}
	if err := m.store.Save(ctx, token, user.Email); err != nil {
		m.setLoading(false)
		return m.State(), err
	}
	return m.resolve(user, token), nil
}

// resolve sets the terminal state for the current operation, maintaining the
// invariant that IsAuthenticated is true iff a user is present.
func (m *Manager) resolve(user *models.User, token string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restored = true
	m.token = token
	m.state = State{
		User:            user,
		IsAuthenticated: user != nil,
		IsLoading:       false,
	}
	return m.state
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.state.IsLoading = v
	m.mu.Unlock()
}
