package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
)

// OfficeClaimKey is the echo context key holding the office_id claim. The
// office middleware reads it before falling back to headers.
const OfficeClaimKey = "jwt_office_id"

type Claims struct {
	jwt.RegisteredClaims
	OfficeID string   `json:"office_id"`
	Roles    []string `json:"roles"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey selects HS256 validation; JWKSURL is used when it is empty.
	SigningKey []byte
	Skipper    func(c echo.Context) bool
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	return token, ok && strings.EqualFold(scheme, "bearer") && token != ""
}

// JWTMiddleware validates the bearer token and publishes the subject, roles
// and office claim to the request.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	method := "RS256"
	var keys *remoteKeys
	if len(cfg.SigningKey) > 0 {
		method = "HS256"
	} else {
		keys = newRemoteKeys(cfg.JWKSURL)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{method})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			raw, ok := bearerToken(header)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			keyfunc := func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
			if keys != nil {
				keyfunc = keys.keyfunc(c.Request().Context())
			}
			claims := &Claims{}
			if _, err := parser.ParseWithClaims(raw, claims, keyfunc); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(OfficeClaimKey, claims.OfficeID)
			setPrincipal(c, claims.Subject, claims.Roles)
			return next(c)
		}
	}
}

// DevAuthMiddleware lets unauthenticated development requests through as an
// admin. No office claim is set, so the default office applies.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			setPrincipal(c, "dev-user", []string{RoleAdmin})
			return next(c)
		}
	}
}

func setPrincipal(c echo.Context, subject string, roles []string) {
	ctx := context.WithValue(c.Request().Context(), UserIDKey, subject)
	ctx = context.WithValue(ctx, UserRolesKey, roles)
	c.SetRequest(c.Request().WithContext(ctx))
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
