// Package middleware provides authentication, logging, metrics, tracing and
// rate limiting middleware for the HTTP server.
package middleware

import (
	"context"
	"strings"

	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Locals keys shared with handlers.
const (
	LocalUserID = "userID"
	LocalClaims = "claims"
)

// Authenticator resolves a bearer token to a user id. The returned value is
// stored under LocalClaims when non-nil.
type Authenticator func(ctx context.Context, token string) (userID uint, claims any, err error)

// AdminCheck reports whether userID holds the admin role.
type AdminCheck func(ctx context.Context, userID uint) (bool, error)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserID returns the authenticated user id, if any.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalUserID).(uint)
	return id, ok && id != 0
}

// AuthRequired rejects requests without a valid bearer token. The
// authenticator decides what valid means, including revocation and account
// status, and its AppError is returned to the client unchanged.
func AuthRequired(authenticate Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		userID, claims, err := authenticate(c.UserContext(), token)
		if err != nil {
			return models.RespondWithError(c, models.StatusCode(err), err)
		}

		setUser(c, userID, claims)
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and lets
// the request through anonymously otherwise.
func OptionalAuth(authenticate Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, ok := BearerToken(c); ok {
			if userID, claims, err := authenticate(c.UserContext(), token); err == nil {
				setUser(c, userID, claims)
			}
		}
		return c.Next()
	}
}

// AdminRequired rejects non-admin users with 403. It must run after
// AuthRequired.
func AdminRequired(isAdmin AdminCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := UserID(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		admin, err := isAdmin(c.UserContext(), userID)
		if err != nil {
			Logger.ErrorContext(c.UserContext(), "admin check failed", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

func setUser(c *fiber.Ctx, userID uint, claims any) {
	c.Locals(LocalUserID, userID)
	if claims != nil {
		c.Locals(LocalClaims, claims)
	}
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}
