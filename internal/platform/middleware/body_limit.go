package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const fallbackBodyLimit = 1 << 20

var sizeSuffixes = []struct {
	suffix string
	shift  uint
}{
	{"G", 30},
	{"M", 20},
	{"K", 10},
}

// parseLimit reads sizes like "512K", "10M" or "10MB". A bare number is
// bytes and anything unreadable falls back to 1M.
func parseLimit(s string) int64 {
	s = strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "B")
	var shift uint
	for _, u := range sizeSuffixes {
		if strings.HasSuffix(s, u.suffix) {
			s, shift = strings.TrimSuffix(s, u.suffix), u.shift
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return fallbackBodyLimit
	}
	return n << shift
}

// isDocumentUpload reports whether the request posts a whole eligibility
// response, which carries the payer's HTML summary.
func isDocumentUpload(req *http.Request) bool {
	if req.Method != http.MethodPost {
		return false
	}
	path := strings.TrimSuffix(req.URL.Path, "/")
	return strings.HasSuffix(path, "/eligibility/flatten") || strings.HasSuffix(path, "/eligibility/project")
}

func payloadTooLarge(limit int64) error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", limit))
}

// tooLargeBody reports an overrun of http.MaxBytesReader as a 413.
type tooLargeBody struct{ io.ReadCloser }

func (b tooLargeBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return n, payloadTooLarge(maxErr.Limit)
	}
	return n, err
}

// BodyLimit caps request bodies at defaultLimit, or documentLimit for
// document uploads to flatten and project.
func BodyLimit(defaultLimit, documentLimit string) echo.MiddlewareFunc {
	small, large := parseLimit(defaultLimit), parseLimit(documentLimit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			limit := small
			if isDocumentUpload(req) {
				limit = large
			}
			if req.ContentLength > limit {
				return payloadTooLarge(limit)
			}
			req.Body = tooLargeBody{http.MaxBytesReader(c.Response(), req.Body, limit)}
			return next(c)
		}
	}
}
