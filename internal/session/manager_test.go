package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clubhub/backend/internal/models"
)

type stubAuthService struct {
	users map[string]*models.User // email -> user, password is always "password"
}

func newStubAuthService() *stubAuthService {
	return &stubAuthService{users: map[string]*models.User{
		"leader@university.edu": {
			ID:    uuid.New(),
			Email: "leader@university.edu",
			Name:  "Tech Club Leader",
			Role:  models.RolePrimaryAdmin,
		},
	}}
}

func (s *stubAuthService) VerifyCredentials(_ context.Context, email, password string) (*models.User, error) {
	u, ok := s.users[email]
	if !ok || password != "password" {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *stubAuthService) CreateAccount(_ context.Context, p CreateAccountParams) (*models.User, error) {
	if _, ok := s.users[p.Email]; ok {
		return nil, ErrEmailTaken
	}
	u := &models.User{
		ID:        uuid.New(),
		Email:     p.Email,
		Name:      p.Name,
		Role:      p.Role,
		ClubID:    p.ClubID,
		CreatedAt: time.Now(),
	}
	s.users[p.Email] = u
	return u, nil
}

func (s *stubAuthService) LookupIdentity(_ context.Context, identityKey string) (*models.User, error) {
	u, ok := s.users[identityKey]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func checkInvariant(t *testing.T, st State) {
	t.Helper()
	if st.IsAuthenticated != (st.User != nil) {
		t.Fatalf("invariant violated: IsAuthenticated=%v with user=%v", st.IsAuthenticated, st.User)
	}
}

func TestRestoreWithoutToken(t *testing.T) {
	m := NewManager(NewMemoryStore(), newStubAuthService(), nil)
	if m.Phase() != PhaseLoading {
		t.Fatalf("expected loading phase before restore")
	}
	st := m.Restore(context.Background(), "")
	checkInvariant(t, st)
	if st.IsAuthenticated || st.IsLoading {
		t.Fatalf("expected unauthenticated resolved state, got %+v", st)
	}
	if m.Phase() != PhaseUnauthenticated {
		t.Fatalf("expected unauthenticated phase, got %s", m.Phase())
	}
}

func TestRestoreWithKnownToken(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Save(ctx, "tok-1", "leader@university.edu"); err != nil {
		t.Fatalf("save: %v", err)
	}
	m := NewManager(store, newStubAuthService(), nil)
	st := m.Restore(ctx, "tok-1")
	checkInvariant(t, st)
	if !st.IsAuthenticated || st.IsLoading {
		t.Fatalf("expected authenticated resolved state, got %+v", st)
	}
	if st.User.Email != "leader@university.edu" {
		t.Fatalf("restored wrong identity: %s", st.User.Email)
	}
}

func TestRestoreWithUnresolvableIdentity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Save(ctx, "tok-2", "ghost@university.edu"); err != nil {
		t.Fatalf("save: %v", err)
	}
	m := NewManager(store, newStubAuthService(), nil)
	st := m.Restore(ctx, "tok-2")
	checkInvariant(t, st)
	if st.IsAuthenticated || st.IsLoading {
		t.Fatalf("expected graceful unauthenticated fallback, got %+v", st)
	}
}

func TestRestoreResolvesOnlyOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Save(ctx, "tok-3", "leader@university.edu"); err != nil {
		t.Fatalf("save: %v", err)
	}
	m := NewManager(store, newStubAuthService(), nil)
	m.Restore(ctx, "")
	st := m.Restore(ctx, "tok-3")
	checkInvariant(t, st)
	if st.IsAuthenticated {
		t.Fatalf("second restore must not re-enter loading resolution")
	}
}

func TestLoginSuccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	m := NewManager(store, newStubAuthService(), nil)
	m.Restore(ctx, "")

	st, err := m.Login(ctx, "leader@university.edu", "password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	checkInvariant(t, st)
	if !st.IsAuthenticated || st.IsLoading {
		t.Fatalf("expected authenticated state, got %+v", st)
	}
	if m.Token() == "" {
		t.Fatalf("expected session token after login")
	}
	if key, err := store.Lookup(ctx, m.Token()); err != nil || key != "leader@university.edu" {
		t.Fatalf("token not persisted: key=%q err=%v", key, err)
	}
}

func TestLoginFailureLeavesNoPartialState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	m := NewManager(store, newStubAuthService(), nil)
	m.Restore(ctx, "")

	st, err := m.Login(ctx, "leader@university.edu", "wrong")
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	checkInvariant(t, st)
	if st.IsAuthenticated || st.IsLoading {
		t.Fatalf("failed login must leave unauthenticated, non-loading state: %+v", st)
	}
	if store.Len() != 0 {
		t.Fatalf("failed login must not write to the token store")
	}
}

func TestRegisterPasswordMismatch(t *testing.T) {
	store := NewMemoryStore()
	svc := newStubAuthService()
	ctx := context.Background()
	m := NewManager(store, svc, nil)
	m.Restore(ctx, "")

	st, err := m.Register(ctx, RegisterData{
		CreateAccountParams: CreateAccountParams{
			Email:    "new@university.edu",
			Password: "secret1",
			Name:     "New Member",
			Role:     models.RoleMember,
		},
		ConfirmPassword: "secret2",
	})
	if err != ErrPasswordMismatch {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	checkInvariant(t, st)
	if st.IsAuthenticated || st.IsLoading {
		t.Fatalf("mismatch must not mutate state: %+v", st)
	}
	if store.Len() != 0 {
		t.Fatalf("mismatch must not write to the token store")
	}
	if _, ok := svc.users["new@university.edu"]; ok {
		t.Fatalf("mismatch must not create an account")
	}
}

func TestRegisterRejectsInvalidRole(t *testing.T) {
	m := NewManager(NewMemoryStore(), newStubAuthService(), nil)
	ctx := context.Background()
	m.Restore(ctx, "")

	_, err := m.Register(ctx, RegisterData{
		CreateAccountParams: CreateAccountParams{
			Email:    "new@university.edu",
			Password: "secret",
			Name:     "New Member",
			Role:     models.Role("emperor"),
		},
		ConfirmPassword: "secret",
	})
	if err == nil {
		t.Fatalf("expected invalid role to be rejected")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	m := NewManager(NewMemoryStore(), newStubAuthService(), nil)
	ctx := context.Background()
	m.Restore(ctx, "")

	st, err := m.Register(ctx, RegisterData{
		CreateAccountParams: CreateAccountParams{
			Email:    "leader@university.edu",
			Password: "secret",
			Name:     "Impostor",
			Role:     models.RoleMember,
		},
		ConfirmPassword: "secret",
	})
	if err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	checkInvariant(t, st)
	if st.IsLoading {
		t.Fatalf("IsLoading must not be left true on an error path")
	}
}

func TestLogoutClearsStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	m := NewManager(store, newStubAuthService(), nil)
	m.Restore(ctx, "")
	if _, err := m.Login(ctx, "leader@university.edu", "password"); err != nil {
		t.Fatalf("login: %v", err)
	}

	st, err := m.Logout(ctx)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	checkInvariant(t, st)
	if st.IsAuthenticated || st.IsLoading || st.User != nil {
		t.Fatalf("expected unauthenticated terminal state, got %+v", st)
	}
	if store.Len() != 0 {
		t.Fatalf("logout must remove the persisted token entry")
	}
	if m.Phase() != PhaseUnauthenticated {
		t.Fatalf("expected unauthenticated phase after logout")
	}
}

func TestUpdateUser(t *testing.T) {
	m := NewManager(NewMemoryStore(), newStubAuthService(), nil)
	ctx := context.Background()
	m.Restore(ctx, "")
	if _, err := m.Login(ctx, "leader@university.edu", "password"); err != nil {
		t.Fatalf("login: %v", err)
	}

	st := m.UpdateUser(func(u *models.User) { u.Name = "Renamed" })
	checkInvariant(t, st)
	if st.User.Name != "Renamed" {
		t.Fatalf("expected profile update to apply, got %q", st.User.Name)
	}
}
