package middleware

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/loginbox/user-portal/internal/api/metrics"
	"github.com/loginbox/user-portal/internal/core/ports"
)

// TokenCookie is the cookie carrying the signed bearer token.
const TokenCookie = "token"

// Auth validates the JWT from the token cookie and injects its claims into
// the echo context. Every failure mode — missing cookie, bad signature,
// expiry, revoked issuance id — takes the same redirect to /login, so the
// caller cannot tell forgery from expiry.
func Auth(jwtSecret string, revoker ports.TokenRevoker) echo.MiddlewareFunc {
	secret := []byte(jwtSecret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(TokenCookie)
			if err != nil || cookie.Value == "" {
				metrics.TokenRejectionsTotal.WithLabelValues("missing").Inc()
				return c.Redirect(http.StatusFound, "/login")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !tkn.Valid {
				metrics.TokenRejectionsTotal.WithLabelValues("invalid").Inc()
				return c.Redirect(http.StatusFound, "/login")
			}

			tokenID, _ := claims["jti"].(string)
			if tokenID != "" {
				// Fail closed: if the revocation list cannot answer, the
				// token is not accepted.
				revoked, err := revoker.IsRevoked(c.Request().Context(), tokenID)
				if err != nil || revoked {
					metrics.TokenRejectionsTotal.WithLabelValues("revoked").Inc()
					return c.Redirect(http.StatusFound, "/login")
				}
			}

			c.Set("username", claims["username"])
			c.Set("jti", tokenID)

			return next(c)
		}
	}
}
