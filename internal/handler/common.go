package handler // handler defines http handlers

import (
    "context"       // context for repository calls
    "encoding/json" // stored document payloads
    "net/http"      // HTTP status codes
    "strconv"       // parsing path parameters
    "time"          // repository timeouts

    "github.com/labstack/echo/v4" // echo defines request context types
    "github.com/sirupsen/logrus"  // structured logging for 500s

    "github.com/iliyamo/referral-service/internal/middleware" // request-scoped logger
    "github.com/iliyamo/referral-service/internal/model"      // domain types
)

// dbTimeout bounds every repository call made from a handler.
const dbTimeout = 5 * time.Second

// UserReader is the read side of the users table.
type UserReader interface {
    GetByID(ctx context.Context, id uint64) (model.User, error)
    GetByLogin(ctx context.Context, login string) (model.User, error)
    List(ctx context.Context) ([]model.User, error)
}

// DocumentReader is the read side of the documents table.
type DocumentReader interface {
    ListByUser(ctx context.Context, userID uint64) ([]json.RawMessage, error)
    ListAllByUser(ctx context.Context) (map[uint64][]json.RawMessage, error)
}

// CacheInvalidator drops cached responses for a URL path.
type CacheInvalidator interface {
    Invalidate(ctx context.Context, path string) error
}

// userPath is the detail route for id, as seen by the response cache.
func userPath(id uint64) string { return "/user/" + strconv.FormatUint(id, 10) }

// parseID reads a positive integer path parameter in canonical decimal
// form.  "01" or "+1" are rejected so every user has exactly one cacheable
// path, the one userPath builds.
func parseID(c echo.Context, name string) (uint64, bool) {
    raw := c.Param(name)
    id, err := strconv.ParseUint(raw, 10, 64)
    if err != nil || id == 0 || strconv.FormatUint(id, 10) != raw {
        return 0, false
    }
    return id, true
}

// internalError logs err with request context and answers with a generic
// 500 so driver details never reach the client.
func internalError(c echo.Context, log *logrus.Logger, err error, msg string) error {
    middleware.Logger(c, log).WithError(err).Error(msg)
    return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal server error"})
}
