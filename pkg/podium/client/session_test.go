package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) listen(state State, _ *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *stateRecorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func TestSessionSignUpAndSignOut(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	store := &MemoryStore{}
	s := NewSession(New(srv.URL+"/api"), store)
	defer s.Dispose()

	var rec stateRecorder
	unsubscribe := s.Subscribe(rec.listen)
	defer unsubscribe()

	user, err := s.SignUp(ctx, "carol@example.com", "password123", "Carol")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if user.Email != "carol@example.com" {
		t.Errorf("Unexpected user: %+v", user)
	}
	if s.State() != StateAuthenticated || s.User() == nil {
		t.Fatalf("Expected authenticated, got %s", s.State())
	}
	stored, _ := store.Load()
	if stored.AccessToken == "" || stored.RefreshToken == "" {
		t.Errorf("Expected tokens to be stored, got %+v", stored)
	}

	me, err := s.Client().Me(ctx)
	if err != nil || me.ID != user.ID {
		t.Fatalf("Me: %+v, %v", me, err)
	}

	if err := s.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if s.State() != StateUnauthenticated || s.User() != nil {
		t.Errorf("Expected unauthenticated, got %s", s.State())
	}
	if stored, _ := store.Load(); !stored.Empty() {
		t.Errorf("Expected store to be cleared, got %+v", stored)
	}

	// The refresh token was revoked on the server
	if _, err := New(srv.URL+"/api").Refresh(ctx, stored.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected revoked refresh token, got %v", err)
	}

	if _, err := s.Client().Me(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated, got %v", err)
	}

	want := []State{StateInitializing, StateAuthenticated, StateUnauthenticated}
	got := rec.all()
	if len(got) != len(want) {
		t.Fatalf("Expected states %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("State %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestSessionSignInWrongPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	signedIn(t, srv, "dave@example.com", "Dave")

	s := NewSession(New(srv.URL+"/api"), nil)
	defer s.Dispose()
	if _, err := s.SignIn(context.Background(), "dave@example.com", "wrong-password"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	if s.State() == StateAuthenticated {
		t.Error("Expected session not to be authenticated")
	}
}

func TestSessionInitRestoresStoredTokens(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	store := &MemoryStore{}

	first := NewSession(New(srv.URL+"/api"), store)
	if _, err := first.SignUp(ctx, "erin@example.com", "password123", "Erin"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	first.Dispose()

	second := NewSession(New(srv.URL+"/api"), store)
	defer second.Dispose()
	if second.State() != StateInitializing {
		t.Fatalf("Expected initializing before Init, got %s", second.State())
	}
	if err := second.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if second.State() != StateAuthenticated {
		t.Fatalf("Expected authenticated, got %s", second.State())
	}
	if user := second.User(); user == nil || user.Email != "erin@example.com" {
		t.Errorf("Unexpected user: %+v", user)
	}
}

func TestSessionInitWithoutTokens(t *testing.T) {
	srv, _ := newTestServer(t)
	s := NewSession(New(srv.URL+"/api"), nil)
	defer s.Dispose()

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if s.State() != StateUnauthenticated {
		t.Errorf("Expected unauthenticated, got %s", s.State())
	}
}

func TestSessionInitWithRejectedTokens(t *testing.T) {
	srv, _ := newTestServer(t)
	store := &MemoryStore{}
	store.Save(Tokens{AccessToken: "not-a-jwt", RefreshToken: "unknown"})

	s := NewSession(New(srv.URL+"/api"), store)
	defer s.Dispose()

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if s.State() != StateUnauthenticated {
		t.Errorf("Expected unauthenticated, got %s", s.State())
	}
	if stored, _ := store.Load(); !stored.Empty() {
		t.Errorf("Expected rejected tokens to be cleared, got %+v", stored)
	}
}

func TestSessionRefreshesExpiringToken(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	store := &MemoryStore{}
	s := NewSession(New(srv.URL+"/api"), store)
	defer s.Dispose()

	if _, err := s.SignUp(ctx, "frank@example.com", "password123", "Frank"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	before, _ := store.Load()

	// Access tokens live an hour; pretend most of it has passed
	s.now = func() time.Time { return time.Now().Add(59*time.Minute + 30*time.Second) }

	if _, err := s.Client().Me(ctx); err != nil {
		t.Fatalf("Me: %v", err)
	}
	after, _ := store.Load()
	if after.RefreshToken == before.RefreshToken {
		t.Error("Expected the refresh token to rotate")
	}
	if s.State() != StateAuthenticated {
		t.Errorf("Expected authenticated, got %s", s.State())
	}

	// The old refresh token is spent
	if _, err := New(srv.URL+"/api").Refresh(ctx, before.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected spent refresh token to be rejected, got %v", err)
	}
}

func TestSessionStaleSignInIsDropped(t *testing.T) {
	s := NewSession(New("http://unused.invalid"), nil)
	defer s.Dispose()

	gen, err := s.begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	// A sign out lands while the sign in is in flight
	if err := s.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if s.apply(gen, &AuthResponse{Token: "t", RefreshToken: "r", User: User{ID: 1}}) {
		t.Error("Expected stale sign in to be dropped")
	}
	if s.State() != StateUnauthenticated {
		t.Errorf("Expected unauthenticated, got %s", s.State())
	}
}

func TestSessionDispose(t *testing.T) {
	s := NewSession(New("http://unused.invalid"), nil)

	var rec stateRecorder
	s.Subscribe(rec.listen)
	s.Dispose()
	s.Dispose()

	states := rec.all()
	if len(states) != 2 || states[1] != StateDisposed {
		t.Errorf("Expected one disposed notification, got %v", states)
	}
	if _, err := s.AccessToken(context.Background()); !errors.Is(err, ErrSessionDisposed) {
		t.Errorf("Expected ErrSessionDisposed, got %v", err)
	}
	if _, err := s.SignIn(context.Background(), "a@example.com", "password123"); !errors.Is(err, ErrSessionDisposed) {
		t.Errorf("Expected ErrSessionDisposed, got %v", err)
	}
}

func TestSessionUnsubscribe(t *testing.T) {
	srv, _ := newTestServer(t)
	s := NewSession(New(srv.URL+"/api"), nil)
	defer s.Dispose()

	var rec stateRecorder
	unsubscribe := s.Subscribe(rec.listen)
	unsubscribe()
	unsubscribe()

	if _, err := s.SignUp(context.Background(), "gina@example.com", "password123", "Gina"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if states := rec.all(); len(states) != 1 {
		t.Errorf("Expected only the initial notification, got %v", states)
	}
}
