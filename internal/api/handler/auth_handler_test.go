package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/loginbox/user-portal/internal/api/view"
	"github.com/loginbox/user-portal/internal/core/domain"
	"github.com/loginbox/user-portal/internal/core/ports"
)

type stubAuthService struct {
	signupFn func(ctx context.Context, username, password string) (*domain.Account, error)
	loginFn  func(ctx context.Context, username, password string) (*ports.LoginResult, error)
	logoutFn func(ctx context.Context, token string) error

	loggedOutTokens []string
}

func (s *stubAuthService) Signup(ctx context.Context, username, password string) (*domain.Account, error) {
	return s.signupFn(ctx, username, password)
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) Logout(ctx context.Context, token string) error {
	s.loggedOutTokens = append(s.loggedOutTokens, token)
	if s.logoutFn != nil {
		return s.logoutFn(ctx, token)
	}
	return nil
}

type stubSessionStore struct {
	sessions  map[string]*domain.Session
	saveErr   error
	destroyed []string
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *stubSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	if session, ok := s.sessions[id]; ok {
		return session, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *stubSessionStore) Save(_ context.Context, session *domain.Session) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *stubSessionStore) Destroy(_ context.Context, id string) error {
	delete(s.sessions, id)
	s.destroyed = append(s.destroyed, id)
	return nil
}

type stubActivityQueue struct {
	updates []ports.ActivityUpdate
}

func (q *stubActivityQueue) Enqueue(update ports.ActivityUpdate) {
	q.updates = append(q.updates, update)
}

type stubAccountLister struct {
	accounts []*domain.Account
	err      error
}

func (s *stubAccountLister) FindByUsername(context.Context, string) (*domain.Account, error) {
	return nil, domain.ErrAccountNotFound
}

func (s *stubAccountLister) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	return a, nil
}

func (s *stubAccountLister) ListAll(context.Context) ([]*domain.Account, error) {
	return s.accounts, s.err
}

func (s *stubAccountLister) RecordLogin(context.Context, string, time.Time) error { return nil }

func (s *stubAccountLister) RecordLogout(context.Context, string, time.Time) error { return nil }

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	renderer, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	e.Renderer = renderer
	e.Validator = NewValidator()
	return e
}

func formRequest(method, path string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func newHandler(svc ports.AuthService, sessions ports.SessionStore, queue *stubActivityQueue, accounts ports.AccountRepository) *AuthHandler {
	if sessions == nil {
		sessions = newStubSessionStore()
	}
	if accounts == nil {
		accounts = &stubAccountLister{}
	}
	return NewAuthHandler(svc, accounts, sessions, queue, true, zerolog.Nop())
}

func TestLogin_Success(t *testing.T) {
	e := newTestEcho(t)
	sessions := newStubSessionStore()
	queue := &stubActivityQueue{}
	expires := time.Now().Add(time.Hour)
	svc := &stubAuthService{
		loginFn: func(_ context.Context, username, password string) (*ports.LoginResult, error) {
			if username != "alice" || password != "pw1" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return &ports.LoginResult{
				Token:     "signed-token",
				TokenID:   "jti-1",
				ExpiresAt: expires,
				Account:   &domain.Account{Username: "alice"},
			}, nil
		},
	}
	h := newHandler(svc, sessions, queue, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"pw1"}}), rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/home" {
		t.Fatalf("expected redirect to /home, got %q", loc)
	}

	login := cookieByName(t, rec, "login")
	if login == nil || login.Value != "Yes" {
		t.Fatalf("login cookie not set to Yes: %+v", login)
	}
	token := cookieByName(t, rec, "token")
	if token == nil || token.Value != "signed-token" {
		t.Fatalf("token cookie not set: %+v", token)
	}
	if !token.HttpOnly || !token.Secure {
		t.Fatalf("token cookie must be http-only and secure")
	}
	sid := cookieByName(t, rec, "sid")
	if sid == nil || sid.Value == "" {
		t.Fatalf("session cookie not set")
	}
	if _, err := sessions.Get(context.Background(), sid.Value); err != nil {
		t.Fatalf("session not stored: %v", err)
	}

	if len(queue.updates) != 1 || queue.updates[0].Kind != ports.ActivityLogin || queue.updates[0].Username != "alice" {
		t.Fatalf("expected one login activity update, got %+v", queue.updates)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	e := newTestEcho(t)
	queue := &stubActivityQueue{}
	svc := &stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	h := newHandler(svc, nil, queue, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"bad"}}), rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected re-rendered form with 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid username or password") {
		t.Fatalf("expected error message in form")
	}
	if len(queue.updates) != 0 {
		t.Fatalf("failed login must not enqueue activity")
	}
	if cookieByName(t, rec, "token") != nil {
		t.Fatalf("failed login must not issue a token cookie")
	}
}

func TestLogin_StoreFailureRedirectsToLogin(t *testing.T) {
	e := newTestEcho(t)
	svc := &stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.LoginResult, error) {
			return nil, errors.New("mongo down")
		},
	}
	h := newHandler(svc, nil, &stubActivityQueue{}, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"pw1"}}), rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestLogin_MissingFields(t *testing.T) {
	e := newTestEcho(t)
	svc := &stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.LoginResult, error) {
			t.Fatalf("service should not be called")
			return nil, nil
		},
	}
	h := newHandler(svc, nil, &stubActivityQueue{}, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/login", url.Values{"username": {"alice"}}), rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected re-rendered form, got %d", rec.Code)
	}
}

func TestLogout_FullFlow(t *testing.T) {
	e := newTestEcho(t)
	sessions := newStubSessionStore()
	sessions.sessions["sess-1"] = &domain.Session{ID: "sess-1", Username: "alice"}
	queue := &stubActivityQueue{}
	svc := &stubAuthService{}
	h := newHandler(svc, sessions, queue, nil)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "sess-1"})
	req.AddCookie(&http.Cookie{Name: "token", Value: "signed-token"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(queue.updates) != 1 || queue.updates[0].Kind != ports.ActivityLogout || queue.updates[0].Username != "alice" {
		t.Fatalf("expected one logout activity update, got %+v", queue.updates)
	}
	if len(sessions.destroyed) != 1 || sessions.destroyed[0] != "sess-1" {
		t.Fatalf("session not destroyed: %+v", sessions.destroyed)
	}
	if len(svc.loggedOutTokens) != 1 || svc.loggedOutTokens[0] != "signed-token" {
		t.Fatalf("token not passed to revocation: %+v", svc.loggedOutTokens)
	}

	login := cookieByName(t, rec, "login")
	if login == nil || login.Value != "No" {
		t.Fatalf("login cookie not set to No: %+v", login)
	}
	token := cookieByName(t, rec, "token")
	if token == nil || token.Value != "" || token.MaxAge >= 0 {
		t.Fatalf("token cookie not cleared: %+v", token)
	}
}

func TestLogout_WithoutSessionStillClearsCookies(t *testing.T) {
	e := newTestEcho(t)
	queue := &stubActivityQueue{}
	h := newHandler(&stubAuthService{}, nil, queue, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/logout", nil), rec)

	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login")
	}
	if len(queue.updates) != 0 {
		t.Fatalf("no activity update expected without a session")
	}
}

func TestSignup_Success(t *testing.T) {
	e := newTestEcho(t)
	svc := &stubAuthService{
		signupFn: func(_ context.Context, username, password string) (*domain.Account, error) {
			if username != "alice" || password != "pw1" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return &domain.Account{Username: username}, nil
		},
	}
	h := newHandler(svc, nil, &stubActivityQueue{}, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/signup", url.Values{"username": {"alice"}, "password": {"pw1"}}), rec)

	if err := h.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestSignup_UsernameTaken(t *testing.T) {
	e := newTestEcho(t)
	svc := &stubAuthService{
		signupFn: func(context.Context, string, string) (*domain.Account, error) {
			return nil, domain.ErrAccountExists
		},
	}
	h := newHandler(svc, nil, &stubActivityQueue{}, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/signup", url.Values{"username": {"alice"}, "password": {"pw2"}}), rec)

	if err := h.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected re-rendered signup form, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already taken") {
		t.Fatalf("expected username-taken message")
	}
}

func TestSignup_StoreFailure(t *testing.T) {
	e := newTestEcho(t)
	svc := &stubAuthService{
		signupFn: func(context.Context, string, string) (*domain.Account, error) {
			return nil, errors.New("mongo down")
		},
	}
	h := newHandler(svc, nil, &stubActivityQueue{}, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/signup", url.Values{"username": {"alice"}, "password": {"pw1"}}), rec)

	if err := h.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Error signing up") {
		t.Fatalf("expected generic signup error body")
	}
}

func TestRoot_RedirectsBySession(t *testing.T) {
	e := newTestEcho(t)
	sessions := newStubSessionStore()
	sessions.sessions["sess-1"] = &domain.Session{ID: "sess-1", Username: "alice"}
	h := newHandler(&stubAuthService{}, sessions, &stubActivityQueue{}, nil)

	// Live session → /home.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "sess-1"})
	rec := httptest.NewRecorder()
	if err := h.Root(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Header().Get("Location") != "/home" {
		t.Fatalf("expected /home, got %q", rec.Header().Get("Location"))
	}

	// No session → /login.
	rec = httptest.NewRecorder()
	if err := h.Root(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected /login, got %q", rec.Header().Get("Location"))
	}
}

func TestLoginForm_RedirectsWhenInSession(t *testing.T) {
	e := newTestEcho(t)
	sessions := newStubSessionStore()
	sessions.sessions["sess-1"] = &domain.Session{ID: "sess-1", Username: "alice"}
	h := newHandler(&stubAuthService{}, sessions, &stubActivityQueue{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "sess-1"})
	rec := httptest.NewRecorder()
	if err := h.LoginForm(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/home" {
		t.Fatalf("expected redirect to /home, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	if err := h.LoginForm(e.NewContext(httptest.NewRequest(http.MethodGet, "/login", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/login") {
		t.Fatalf("expected login form, got %d", rec.Code)
	}
}

func TestHome_RendersAccountTable(t *testing.T) {
	e := newTestEcho(t)
	accounts := &stubAccountLister{accounts: []*domain.Account{
		{Username: "alice", PasswordHash: "$2a$10$hash", LoginCount: 2, LoginTime: time.Now()},
		{Username: "bob", PasswordHash: "$2a$10$other", LoginCount: 0},
	}}
	h := newHandler(&stubAuthService{}, nil, &stubActivityQueue{}, accounts)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/home", nil), rec)
	c.Set("username", "alice")

	if err := h.Home(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{"alice", "bob", "$2a$10$hash", "N/A"} {
		if !strings.Contains(body, want) {
			t.Fatalf("home page missing %q", want)
		}
	}
}

func TestHome_MissingClaimsRedirects(t *testing.T) {
	e := newTestEcho(t)
	h := newHandler(&stubAuthService{}, nil, &stubActivityQueue{}, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/home", nil), rec)

	if err := h.Home(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d", rec.Code)
	}
}
