package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is one page window over a list.
type Params struct {
	Limit  int
	Offset int
}

func queryInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(c.QueryParam(name))
	return n
}

// FromContext reads ?limit= and ?offset=. A missing or non-positive limit
// means DefaultLimit and limits cap at MaxLimit.
func FromContext(c echo.Context) Params {
	p := Params{Limit: queryInt(c, "limit"), Offset: max(queryInt(c, "offset"), 0)}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	p.Limit = min(p.Limit, MaxLimit)
	return p
}

// HasNext reports whether items remain after this page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// Response is the list envelope returned by collection routes.
type Response[T any] struct {
	Data    []T  `json:"data"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func NewResponse[T any](data []T, total int, p Params) *Response[T] {
	if data == nil {
		data = []T{}
	}
	return &Response[T]{Data: data, Total: total, Limit: p.Limit, Offset: p.Offset, HasMore: p.HasNext(total)}
}

// Page slices out the window p selects, for stores that cannot page in
// the query.
func Page[T any](items []T, p Params) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	return items[p.Offset:min(p.Offset+p.Limit, len(items))]
}
