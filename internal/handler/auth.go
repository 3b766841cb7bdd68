package handler

import (
    "context"         // provides context with cancellation for DB calls
    "encoding/base64" // transport encoding of the login password
    "errors"          // errors.Is comparisons
    "net/http"        // HTTP status codes and primitives
    "time"            // token expiry in responses

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
    "github.com/sirupsen/logrus"  // structured logging

    "github.com/iliyamo/referral-service/internal/config"     // app configuration
    "github.com/iliyamo/referral-service/internal/repository" // repository sentinel errors
    "github.com/iliyamo/referral-service/internal/service"    // login normalization shared with referrals
    "github.com/iliyamo/referral-service/internal/utils"      // token issuing
)

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
    Verify(hash, plain string) bool
}

// AuthHandler bundles dependencies for the login endpoint.
type AuthHandler struct {
    Cfg    config.Config
    Users  UserReader
    Hasher PasswordVerifier
    Log    *logrus.Logger
}

func NewAuthHandler(cfg config.Config, u UserReader, hasher PasswordVerifier, log *logrus.Logger) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Hasher: hasher, Log: log}
}

// ----- DTOs -----

type loginReq struct {
    Login    string `json:"login"`
    Password string `json:"password"` // base64
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

// Login decodes the base64 password and checks it against the stored
// bcrypt hash.  Success returns an access token whose role claim gates the
// admin listing.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    req.Login = service.NormalizeLogin(req.Login)
    if req.Login == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "login/password required"})
    }
    password, ok := decodePassword(req.Password)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "password must be base64 encoded"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    u, err := h.Users.GetByLogin(ctx, req.Login)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid credentials"})
        }
        return internalError(c, h.Log, err, "login lookup failed")
    }
    // Stored passwords are bcrypt hashes, so the decoded candidate is
    // verified with bcrypt; a textual comparison against the hash could
    // never match.
    if !h.Hasher.Verify(u.PasswordHash, password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid credentials"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role(), h.Cfg.AccessTTLMin)
    if err != nil {
        return internalError(c, h.Log, err, "issue access token failed")
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message": "login successful",
        "access":  tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// decodePassword accepts standard and URL-safe base64, padded or not.
func decodePassword(s string) (string, bool) {
    for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
        if b, err := enc.DecodeString(s); err == nil {
            return string(b), true
        }
    }
    return "", false
}
