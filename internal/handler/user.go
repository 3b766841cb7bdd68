package handler

import (
    "context"       // request-scoped timeouts
    "encoding/json" // raw document payloads
    "errors"        // errors.Is comparisons
    "net/http" // HTTP status codes

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/referral-service/internal/model"
    "github.com/iliyamo/referral-service/internal/repository"
)

// UserHandler serves the read-only user endpoints.
type UserHandler struct {
    Users     UserReader
    Documents DocumentReader
    Log       *logrus.Logger
}

func NewUserHandler(users UserReader, docs DocumentReader, log *logrus.Logger) *UserHandler {
    if users == nil || docs == nil || log == nil {
        panic("nil dependency passed to NewUserHandler")
    }
    return &UserHandler{Users: users, Documents: docs, Log: log}
}

// GetUser handles GET /user/:userId and returns the user with every
// document submitted for it.
func (h *UserHandler) GetUser(c echo.Context) error {
    id, ok := parseID(c, "userId")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    u, err := h.Users.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
        }
        return internalError(c, h.Log, err, "load user failed")
    }
    docs, err := h.Documents.ListByUser(ctx, id)
    if err != nil {
        return internalError(c, h.Log, err, "load documents failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"user": model.UserWithDocuments{User: u, Documents: docs}})
}

// ListUsers handles GET /users (admin only) and returns every user with
// their documents.
func (h *UserHandler) ListUsers(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    users, err := h.Users.List(ctx)
    if err != nil {
        return internalError(c, h.Log, err, "list users failed")
    }
    byUser, err := h.Documents.ListAllByUser(ctx)
    if err != nil {
        return internalError(c, h.Log, err, "list documents failed")
    }

    out := make([]model.UserWithDocuments, 0, len(users))
    for _, u := range users {
        docs := byUser[u.ID]
        if docs == nil {
            docs = []json.RawMessage{}
        }
        out = append(out, model.UserWithDocuments{User: u, Documents: docs})
    }
    return c.JSON(http.StatusOK, echo.Map{"users": out})
}
