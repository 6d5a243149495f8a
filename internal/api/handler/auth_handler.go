package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/loginbox/user-portal/internal/api/metrics"
	"github.com/loginbox/user-portal/internal/api/middleware"
	"github.com/loginbox/user-portal/internal/core/domain"
	"github.com/loginbox/user-portal/internal/core/ports"
)

// Cookie names. The login cookie is purely informational; the session cookie
// keys the server-side session; the token cookie carries the JWT checked by
// the auth gate.
const (
	loginCookie   = "login"
	sessionCookie = "sid"
)

// ActivityQueue is the fire-and-forget sink for activity updates. Enqueue
// must not block the caller beyond buffered-channel capacity.
type ActivityQueue interface {
	Enqueue(update ports.ActivityUpdate)
}

type AuthHandler struct {
	authService ports.AuthService
	accounts    ports.AccountRepository
	sessions    ports.SessionStore
	activity    ActivityQueue
	secure      bool
	log         zerolog.Logger
}

func NewAuthHandler(
	authService ports.AuthService,
	accounts ports.AccountRepository,
	sessions ports.SessionStore,
	activity ActivityQueue,
	secureCookies bool,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		accounts:    accounts,
		sessions:    sessions,
		activity:    activity,
		secure:      secureCookies,
		log:         log,
	}
}

type credentialsForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type formData struct {
	Error string
}

type homeData struct {
	Accounts []*domain.Account
}

// Root redirects to /home when the browser holds a live session, otherwise
// to /login.
//
// @Summary      Entry point
// @Tags         auth
// @Success      302
// @Router       / [get]
func (h *AuthHandler) Root(c echo.Context) error {
	if h.hasSession(c) {
		return c.Redirect(http.StatusFound, "/home")
	}
	return c.Redirect(http.StatusFound, "/login")
}

// LoginForm serves the login page, or sends an already-logged-in browser to
// /home.
//
// @Summary      Login page
// @Tags         auth
// @Produce      html
// @Success      200
// @Router       /login [get]
func (h *AuthHandler) LoginForm(c echo.Context) error {
	if h.hasSession(c) {
		return c.Redirect(http.StatusFound, "/home")
	}
	return c.Render(http.StatusOK, "login.html", formData{})
}

// Login verifies the submitted credentials, opens a server-side session,
// issues the token cookie, and queues the activity update.
//
// @Summary      Login
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Param        username  formData  string  true  "Username"
// @Param        password  formData  string  true  "Password"
// @Success      302
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var form credentialsForm
	if err := c.Bind(&form); err != nil {
		return c.Render(http.StatusOK, "login.html", formData{Error: "Invalid username or password"})
	}
	if err := c.Validate(&form); err != nil {
		return c.Render(http.StatusOK, "login.html", formData{Error: "Invalid username or password"})
	}

	result, err := h.authService.Login(c.Request().Context(), form.Username, form.Password)
	if err != nil {
		// Unknown username and wrong password take the identical path.
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return c.Render(http.StatusOK, "login.html", formData{Error: "Invalid username or password"})
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		h.log.Error().Err(err).Msg("login failed")
		return c.Redirect(http.StatusFound, "/login")
	}

	session := &domain.Session{
		ID:        uuid.NewString(),
		Username:  result.Account.Username,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.sessions.Save(c.Request().Context(), session); err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		h.log.Error().Err(err).Msg("session save failed")
		return c.Redirect(http.StatusFound, "/login")
	}

	// Activity persistence must not hold up the redirect.
	h.activity.Enqueue(ports.ActivityUpdate{
		Username: result.Account.Username,
		Kind:     ports.ActivityLogin,
		At:       time.Now().UTC(),
	})

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	metrics.SessionsActive.Inc()

	h.setCookie(c, sessionCookie, session.ID, time.Time{})
	h.setCookie(c, loginCookie, "Yes", time.Time{})
	h.setCookie(c, middleware.TokenCookie, result.Token, result.ExpiresAt)

	h.log.Info().
		Str("username", result.Account.Username).
		Str("token_id", result.TokenID).
		Msg("login succeeded")

	return c.Redirect(http.StatusFound, "/home")
}

// Logout queues the logout activity, revokes the presented token, destroys
// the server-side session, and clears the cookies.
//
// @Summary      Logout
// @Tags         auth
// @Success      302
// @Router       /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	if sid, ok := h.sessionID(c); ok {
		if session, err := h.sessions.Get(ctx, sid); err == nil {
			h.activity.Enqueue(ports.ActivityUpdate{
				Username: session.Username,
				Kind:     ports.ActivityLogout,
				At:       time.Now().UTC(),
			})
			metrics.SessionsActive.Dec()
		} else if !errors.Is(err, domain.ErrSessionNotFound) {
			h.log.Error().Err(err).Msg("session lookup failed during logout")
		}
		if err := h.sessions.Destroy(ctx, sid); err != nil {
			h.log.Error().Err(err).Msg("session destroy failed")
		}
	}

	if cookie, err := c.Cookie(middleware.TokenCookie); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(ctx, cookie.Value); err != nil {
			h.log.Error().Err(err).Msg("token revocation failed")
		}
	}

	h.setCookie(c, loginCookie, "No", time.Time{})
	h.clearCookie(c, middleware.TokenCookie)
	h.clearCookie(c, sessionCookie)

	return c.Redirect(http.StatusFound, "/login")
}

// SignupForm serves the signup page.
//
// @Summary      Signup page
// @Tags         auth
// @Produce      html
// @Success      200
// @Router       /signup [get]
func (h *AuthHandler) SignupForm(c echo.Context) error {
	return c.Render(http.StatusOK, "signup.html", formData{})
}

// Signup creates a new account, or re-serves the form when the username is
// taken.
//
// @Summary      Signup
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Param        username  formData  string  true  "Username"
// @Param        password  formData  string  true  "Password"
// @Success      302
// @Failure      500  {string}  string
// @Router       /signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var form credentialsForm
	if err := c.Bind(&form); err != nil {
		return c.Render(http.StatusOK, "signup.html", formData{Error: "Username and password are required"})
	}
	if err := c.Validate(&form); err != nil {
		return c.Render(http.StatusOK, "signup.html", formData{Error: "Username and password are required"})
	}

	_, err := h.authService.Signup(c.Request().Context(), form.Username, form.Password)
	switch {
	case errors.Is(err, domain.ErrAccountExists):
		metrics.SignupsTotal.WithLabelValues("taken").Inc()
		return c.Render(http.StatusOK, "signup.html", formData{Error: "Username is already taken"})
	case errors.Is(err, domain.ErrInvalidCredentials):
		return c.Render(http.StatusOK, "signup.html", formData{Error: "Username and password are required"})
	case err != nil:
		metrics.SignupsTotal.WithLabelValues("error").Inc()
		h.log.Error().Err(err).Msg("signup failed")
		return c.String(http.StatusInternalServerError, "Error signing up")
	}

	metrics.SignupsTotal.WithLabelValues("created").Inc()
	return c.Redirect(http.StatusFound, "/login")
}

// Home renders the table of all registered accounts. The auth gate has
// already vouched for the caller by the time this runs.
//
// @Summary      Home page
// @Tags         auth
// @Produce      html
// @Success      200
// @Router       /home [get]
func (h *AuthHandler) Home(c echo.Context) error {
	if _, err := ctxUsername(c); err != nil {
		return c.Redirect(http.StatusFound, "/login")
	}

	accounts, err := h.accounts.ListAll(c.Request().Context())
	if err != nil {
		return err
	}

	return c.Render(http.StatusOK, "home.html", homeData{Accounts: accounts})
}

func (h *AuthHandler) hasSession(c echo.Context) bool {
	sid, ok := h.sessionID(c)
	if !ok {
		return false
	}
	_, err := h.sessions.Get(c.Request().Context(), sid)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		h.log.Error().Err(err).Msg("session lookup failed")
	}
	return err == nil
}

func (h *AuthHandler) sessionID(c echo.Context) (string, bool) {
	cookie, err := c.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (h *AuthHandler) setCookie(c echo.Context, name, value string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
