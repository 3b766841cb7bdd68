package middleware

// identity.go holds helpers shared across middleware files.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// subject returns the authenticated user id stored by JWTAuth, or "guest"
// when the request carried no valid token.
func subject(c echo.Context) string {
    if id, ok := c.Get("user_id").(uint64); ok && id != 0 {
        return strconv.FormatUint(id, 10)
    }
    return "guest"
}
