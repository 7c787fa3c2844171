package client

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// State of a Session
type State string

const (
	StateInitializing    State = "initializing"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
	StateDisposed        State = "disposed"
)

// RefreshSkew is how close to expiry an access token gets refreshed
const RefreshSkew = time.Minute

// Listener is told about every session state change
type Listener func(state State, user *User)

// Session owns the signed-in user's tokens. It refreshes the access token
// before it expires and persists every new pair to its TokenStore.
//
// Each sign in or sign out starts a new generation. Responses that belong
// to an older generation are dropped, so a refresh finishing after a sign
// out cannot sign the user back in.
type Session struct {
	api   *Client
	store TokenStore
	now   func() time.Time

	refreshMu sync.Mutex

	mu        sync.Mutex
	state     State
	user      *User
	tokens    Tokens
	gen       uint64
	listeners map[uint64]Listener
	nextID    uint64
}

// NewSession creates a session that talks to api and keeps its tokens in
// store. api should not carry a token source of its own. A nil store keeps
// tokens in memory.
func NewSession(api *Client, store TokenStore) *Session {
	if store == nil {
		store = &MemoryStore{}
	}
	return &Session{
		api:       api,
		store:     store,
		now:       time.Now,
		state:     StateInitializing,
		listeners: make(map[uint64]Listener),
	}
}

// Client returns a client that authenticates as the session's user
func (s *Session) Client() *Client {
	return s.api.WithTokenSource(s)
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the signed-in user, or nil
func (s *Session) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyUser()
}

// Subscribe calls l with the current state and again on every change until
// the returned function is called
func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		l(StateDisposed, nil)
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	state, user := s.state, s.copyUser()
	s.mu.Unlock()

	l(state, user)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Init restores a stored session. It ends authenticated if the stored
// tokens still work, possibly after a refresh, and unauthenticated if
// there are none or the server rejects them. Network failures are
// returned and leave the stored tokens alone so Init can be retried.
func (s *Session) Init(ctx context.Context) error {
	tokens, err := s.store.Load()
	if err != nil {
		log.Printf("podium: failed to load stored session: %v", err)
		tokens = Tokens{}
	}

	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return ErrSessionDisposed
	}
	s.gen++
	gen := s.gen
	s.tokens = tokens
	s.mu.Unlock()

	if tokens.Empty() {
		s.reset(gen)
		return nil
	}

	user, err := s.Client().Me(ctx)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotAuthenticated) {
			s.reset(gen)
			return nil
		}
		return err
	}

	s.mu.Lock()
	if gen != s.gen || s.state == StateDisposed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateAuthenticated
	s.user = user
	s.mu.Unlock()
	s.notify()
	return nil
}

// SignUp creates an account and signs in as it
func (s *Session) SignUp(ctx context.Context, email, password, displayName string) (*User, error) {
	gen, err := s.begin()
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Register(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}
	if !s.apply(gen, resp) {
		return nil, ErrSuperseded
	}
	return &resp.User, nil
}

// SignIn signs in with email and password
func (s *Session) SignIn(ctx context.Context, email, password string) (*User, error) {
	gen, err := s.begin()
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !s.apply(gen, resp) {
		return nil, ErrSuperseded
	}
	return &resp.User, nil
}

// SignOut forgets the tokens. Revoking the refresh token on the server is
// best effort.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return ErrSessionDisposed
	}
	refresh := s.tokens.RefreshToken
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.reset(gen)

	if refresh != "" {
		if err := s.api.Logout(ctx, refresh); err != nil {
			log.Printf("podium: failed to revoke refresh token: %v", err)
		}
	}
	return nil
}

// Dispose stops the session. Listeners hear StateDisposed once and are
// dropped. Stored tokens are kept for the next run.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.state = StateDisposed
	s.user = nil
	s.tokens = Tokens{}
	listeners := s.listeners
	s.listeners = make(map[uint64]Listener)
	s.mu.Unlock()

	for _, l := range listeners {
		l(StateDisposed, nil)
	}
}

// AccessToken returns a valid access token, refreshing it when it is
// within RefreshSkew of expiry
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return "", ErrSessionDisposed
	}
	tokens := s.tokens
	s.mu.Unlock()

	if tokens.Empty() {
		return "", ErrNotAuthenticated
	}
	if tokens.AccessToken != "" && !s.expiring(tokens.AccessToken) {
		return tokens.AccessToken, nil
	}
	return s.refresh(ctx)
}

func (s *Session) refresh(ctx context.Context) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return "", ErrSessionDisposed
	}
	tokens, gen := s.tokens, s.gen
	s.mu.Unlock()

	// Another caller may have refreshed while we waited
	if tokens.AccessToken != "" && !s.expiring(tokens.AccessToken) {
		return tokens.AccessToken, nil
	}
	if tokens.RefreshToken == "" {
		return "", ErrNotAuthenticated
	}

	resp, err := s.api.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			s.reset(gen)
			return "", ErrNotAuthenticated
		}
		return "", err
	}
	if !s.apply(gen, resp) {
		return "", ErrNotAuthenticated
	}
	return resp.Token, nil
}

func (s *Session) expiring(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !s.now().Add(RefreshSkew).Before(claims.ExpiresAt.Time)
}

// begin starts a new generation for a sign in
func (s *Session) begin() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisposed {
		return 0, ErrSessionDisposed
	}
	s.gen++
	return s.gen, nil
}

// apply stores resp if gen is still current
func (s *Session) apply(gen uint64, resp *AuthResponse) bool {
	tokens := Tokens{AccessToken: resp.Token, RefreshToken: resp.RefreshToken}
	user := resp.User

	s.mu.Lock()
	if gen != s.gen || s.state == StateDisposed {
		s.mu.Unlock()
		return false
	}
	s.tokens = tokens
	s.user = &user
	s.state = StateAuthenticated
	if err := s.store.Save(tokens); err != nil {
		log.Printf("podium: failed to store session: %v", err)
	}
	s.mu.Unlock()

	s.notify()
	return true
}

// reset signs out locally if gen is still current
func (s *Session) reset(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state == StateDisposed {
		s.mu.Unlock()
		return
	}
	s.tokens = Tokens{}
	s.user = nil
	s.state = StateUnauthenticated
	if err := s.store.Clear(); err != nil {
		log.Printf("podium: failed to clear stored session: %v", err)
	}
	s.mu.Unlock()

	s.notify()
}

func (s *Session) notify() {
	s.mu.Lock()
	state, user := s.state, s.copyUser()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(state, user)
	}
}

// copyUser must be called with mu held
func (s *Session) copyUser() *User {
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}
