package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/referral-service/internal/handler"    // handlers implementing each endpoint
	"github.com/iliyamo/referral-service/internal/middleware" // JWT authentication and role enforcement
	"github.com/iliyamo/referral-service/internal/model"      // role names
)

// RegisterRoutes registers routes that do not require authentication:
// liveness and readiness probes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, log *logrus.Logger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db, log))
	}
}

// RegisterReferral exposes the referral intake endpoint.
func RegisterReferral(e *echo.Echo, r *handler.ReferralHandler) {
	e.POST("/process-referral", r.ProcessReferral)
}

// RegisterAuth exposes login.  There is no refresh or logout; access tokens
// simply expire.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	e.POST("/login", a.Login)
}

// RegisterUsers registers the read endpoints.  The detail route is public
// and goes through the response cache (nil means uncached); the listing
// requires an ADMIN access token.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, cache echo.MiddlewareFunc, jwtSecret string) {
	if cache != nil {
		e.GET("/user/:userId", u.GetUser, cache)
	} else {
		e.GET("/user/:userId", u.GetUser)
	}

	// route-level middleware; a "" group would put every unknown path behind auth
	e.GET("/users", u.ListUsers, middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
}
