package handler

import (
    "context"  // processor and cache calls
    "errors"   // errors.As / errors.Is for the service error taxonomy
    "io"       // reading the raw request body
    "net/http" // HTTP status codes

    "github.com/labstack/echo/v4" // Echo web framework
    "github.com/sirupsen/logrus"  // structured logging

    "github.com/iliyamo/referral-service/internal/middleware" // request-scoped logger
    "github.com/iliyamo/referral-service/internal/service"    // referral parsing and processing
)

// ReferralProcessor stores a validated referral.
type ReferralProcessor interface {
    Process(ctx context.Context, ref service.Referral) (service.Result, error)
}

// ReferralHandler serves POST /process-referral.
type ReferralHandler struct {
    Processor ReferralProcessor
    Cache     CacheInvalidator // optional
    Log       *logrus.Logger
}

func NewReferralHandler(p ReferralProcessor, cache CacheInvalidator, log *logrus.Logger) *ReferralHandler {
    if p == nil || log == nil {
        panic("nil dependency passed to NewReferralHandler")
    }
    return &ReferralHandler{Processor: p, Cache: cache, Log: log}
}

// ProcessReferral accepts { Data: { Users: [ { ..., Documents: [ {...} ] } ] } },
// upserts the user by login and attaches the document.  400 names the
// offending field, 500 hides persistence details.
func (h *ReferralHandler) ProcessReferral(c echo.Context) error {
    body, err := io.ReadAll(c.Request().Body)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
    }

    ref, err := service.ParseReferral(body)
    if err != nil {
        return h.writeError(c, err)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    res, err := h.Processor.Process(ctx, ref)
    if err != nil {
        return h.writeError(c, err)
    }

    if h.Cache != nil {
        if err := h.Cache.Invalidate(ctx, userPath(res.UserID)); err != nil {
            middleware.Logger(c, h.Log).WithError(err).Warn("cache invalidation failed")
        }
    }

    return c.JSON(http.StatusOK, echo.Map{
        "message": "document processed",
        "userId":  res.UserID,
        "created": res.Created,
    })
}

func (h *ReferralHandler) writeError(c echo.Context, err error) error {
    var ve *service.ValidationError
    switch {
    case errors.As(err, &ve):
        return c.JSON(http.StatusBadRequest, echo.Map{"message": ve.Message, "field": ve.Field})
    case errors.Is(err, service.ErrMalformedPayload):
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "expected Data.Users[0] with Documents[0]"})
    default:
        return internalError(c, h.Log, err, "process referral failed")
    }
}
