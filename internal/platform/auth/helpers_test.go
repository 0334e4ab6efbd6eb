package auth

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != code {
		t.Fatalf("expected %d, got %v", code, err)
	}
}
