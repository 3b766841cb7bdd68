package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id (reusing a well-formed
// incoming X-Request-ID), stores a request-scoped logrus entry under
// "logger" and logs one line per completed request.
func RequestLogger(log *logrus.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            req := c.Request()

            rid := req.Header.Get(RequestIDHeader)
            if _, err := uuid.Parse(rid); err != nil {
                rid = uuid.NewString()
            }
            c.Response().Header().Set(RequestIDHeader, rid)

            entry := log.WithFields(logrus.Fields{
                "request_id": rid,
                "method":     req.Method,
                "path":       req.URL.Path,
                "ip":         c.RealIP(),
            })
            c.Set("logger", entry)

            err := next(c)
            if err != nil {
                // let Echo render the error so the logged status is final
                c.Error(err)
            }

            fields := logrus.Fields{
                "status":     c.Response().Status,
                "bytes":      c.Response().Size,
                "latency_ms": time.Since(start).Milliseconds(),
                "user_id":    subject(c),
            }
            switch status := c.Response().Status; {
            case status >= 500:
                entry.WithFields(fields).Error("request completed")
            case status >= 400:
                entry.WithFields(fields).Warn("request completed")
            default:
                entry.WithFields(fields).Info("request completed")
            }
            return nil
        }
    }
}

// Logger returns the request-scoped entry set by RequestLogger, or a
// standalone entry on log when the middleware is not installed.
func Logger(c echo.Context, log *logrus.Logger) *logrus.Entry {
    if e, ok := c.Get("logger").(*logrus.Entry); ok {
        return e
    }
    return logrus.NewEntry(log)
}
