package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Pinger is the part of a store the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolStats is the /health/db view of the connection pool.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

type healthReport struct {
	Status  string     `json:"status"`
	Error   string     `json:"error,omitempty"`
	Latency string     `json:"latency"`
	Pool    *PoolStats `json:"pool,omitempty"`
}

func statsOf(pool *pgxpool.Pool) *PoolStats {
	s := pool.Stat()
	return &PoolStats{
		TotalConns:      s.TotalConns(),
		IdleConns:       s.IdleConns(),
		AcquiredConns:   s.AcquiredConns(),
		MaxConns:        s.MaxConns(),
		AcquireCount:    s.AcquireCount(),
		AcquireDuration: s.AcquireDuration().String(),
	}
}

// HealthHandler pings the store and, for the postgres store, adds pool
// stats. The embedded store passes a nil pool.
func HealthHandler(store Pinger, pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		start := time.Now()
		err := store.Ping(ctx)
		report := healthReport{Status: "healthy", Latency: time.Since(start).String()}
		if pool != nil {
			report.Pool = statsOf(pool)
			report.Pool.Healthy = err == nil && report.Pool.TotalConns > 0
		}

		if err != nil {
			report.Status = "unhealthy"
			report.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, report)
		}
		return c.JSON(http.StatusOK, report)
	}
}
