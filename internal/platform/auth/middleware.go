package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const SessionKey contextKey = "session"

// Claims is the JWT payload issued at sign-in. Roles uses RoleList so tokens
// minted with either a scalar or an array role claim parse the same way.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email"`
	Roles RoleList `json:"roles"`
}

// Session is the authenticated caller derived from a verified token. ActiveRole
// is resolved once at verification so every downstream check sees the same role.
type Session struct {
	UserID     uuid.UUID
	Email      string
	Roles      RoleList
	ActiveRole Role
}

// TokenIssuer mints signed HS256 tokens for authenticated accounts.
type TokenIssuer struct {
	signingKey []byte
	ttl        time.Duration
}

func NewTokenIssuer(signingKey []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{signingKey: signingKey, ttl: ttl}
}

// Issue creates a signed token carrying the account's identity and role set.
func (ti *TokenIssuer) Issue(userID uuid.UUID, email string, roles RoleList) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
		Email: email,
		Roles: roles,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.signingKey)
}

// Middleware verifies the bearer token and attaches a Session to the request
// context. Requests without a valid token are rejected with 401; route-level
// role checks happen later in RequireRole.
func Middleware(signingKey []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return signingKey, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			session := &Session{
				UserID:     userID,
				Email:      claims.Email,
				Roles:      claims.Roles,
				ActiveRole: ResolveRole(claims.Roles),
			}

			ctx := context.WithValue(c.Request().Context(), SessionKey, session)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// OptionalMiddleware behaves like Middleware but lets anonymous requests
// through with no session, so downstream guards can decide between a sign-in
// redirect and a denial. A present-but-invalid token is still rejected.
func OptionalMiddleware(signingKey []byte) echo.MiddlewareFunc {
	authenticate := Middleware(signingKey)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withAuth := authenticate(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}
			return withAuth(c)
		}
	}
}

// SessionFromContext returns the verified session, or nil for anonymous
// requests.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(SessionKey).(*Session)
	return s
}
