package db

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is the slice of pgxpool.Pool the health endpoint needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports database reachability in the same envelope the
// service's /health endpoint uses.
func HealthHandler(p Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":   "unhealthy",
				"database": "down",
				"error":    err.Error(),
			})
		}

		return c.JSON(http.StatusOK, map[string]string{
			"status":   "healthy",
			"database": "up",
		})
	}
}
