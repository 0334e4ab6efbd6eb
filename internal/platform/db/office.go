package db

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	OfficeIDKey contextKey = "office_id"
	DBConnKey   contextKey = "db_conn"
	TxKey       contextKey = "db_tx"
)

// JWTOfficeKey is the echo context key the auth middleware stores the
// office_id claim under.
const JWTOfficeKey = "jwt_office_id"

var officeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidOfficeID reports whether id can name an office schema.
func ValidOfficeID(id string) bool {
	return officeIDPattern.MatchString(id)
}

// OfficeSchema returns the Postgres schema holding an office's documents.
// "00" and "office_00" name the same schema.
func OfficeSchema(officeID string) string {
	id := strings.ToLower(officeID)
	if strings.HasPrefix(id, "office_") {
		return id
	}
	return "office_" + id
}

// OfficeMiddleware resolves the office of a request and stores it in the
// request context. With a pool it also pins a connection whose search_path
// is the office schema; the embedded store passes a nil pool.
func OfficeMiddleware(pool *pgxpool.Pool, defaultOffice string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			officeID := extractOfficeID(c, defaultOffice)

			if !ValidOfficeID(officeID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid office identifier")
			}

			ctx := context.WithValue(c.Request().Context(), OfficeIDKey, officeID)
			c.Set("office_id", officeID)

			if pool != nil {
				conn, err := pool.Acquire(ctx)
				if err != nil {
					return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
				}
				defer conn.Release()

				if _, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", OfficeSchema(officeID))); err != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "office resolution failed")
				}
				ctx = context.WithValue(ctx, DBConnKey, conn)
			}

			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// extractOfficeID checks the JWT claim, the X-Office-ID header and the
// office_id query parameter, in that order.
func extractOfficeID(c echo.Context, defaultOffice string) string {
	if oid, ok := c.Get(JWTOfficeKey).(string); ok && oid != "" {
		return oid
	}
	if oid := c.Request().Header.Get("X-Office-ID"); oid != "" {
		return oid
	}
	if oid := c.QueryParam("office_id"); oid != "" {
		return oid
	}
	return defaultOffice
}

// ConnFromContext returns the office-scoped connection, or nil.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// OfficeFromContext returns the office id of the request, or "".
func OfficeFromContext(ctx context.Context) string {
	oid, _ := ctx.Value(OfficeIDKey).(string)
	return oid
}

// WithOffice returns ctx carrying officeID, for callers outside HTTP.
func WithOffice(ctx context.Context, officeID string) context.Context {
	return context.WithValue(ctx, OfficeIDKey, officeID)
}

// CreateOfficeSchema creates an office schema and migrates it. A nil
// migrations FS only creates the schema.
func CreateOfficeSchema(ctx context.Context, pool *pgxpool.Pool, officeID string, migrations fs.FS) error {
	if !ValidOfficeID(officeID) {
		return fmt.Errorf("invalid office identifier: %s", officeID)
	}

	schema := OfficeSchema(officeID)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if migrations != nil {
		if _, err := NewMigrator(pool, migrations).Up(ctx, schema); err != nil {
			return fmt.Errorf("run migrations for %s: %w", schema, err)
		}
	}

	return nil
}
