package handler // declare the package name; contains HTTP handlers

import (
    "context"  // bounded dependency checks
    "net/http" // net/http provides status codes and response helpers
    "time"

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/referral-service/internal/middleware"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// Health is a liveness endpoint for load balancers.  It never touches
// dependencies.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Ready reports 503 when the database cannot be reached.  The driver error
// is logged, never returned.
func Ready(db Pinger, log *logrus.Logger) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := db.PingContext(ctx); err != nil {
            middleware.Logger(c, log).WithError(err).Warn("readiness: db ping failed")
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "db": "unreachable"})
        }
        return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
    }
}
