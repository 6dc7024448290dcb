package middleware

import (
	"errors"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"medilink_app_echo/internal/models"
	"medilink_app_echo/internal/workflow"
)

// Context keys set by RequireAuth for downstream handlers.
const (
	ContextUserKey  = "user"
	ContextActorKey = "actor"
)

// RequireAuth returns a middleware that verifies Firebase session cookies and
// loads the local user row. It also resolves the workflow actor, including the
// provider or insurer organization the user acts for.
func RequireAuth(authClient *auth.Client, db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Check if Firebase is initialized
			if authClient == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication is not configured")
			}

			// Get the session cookie
			cookie, err := c.Cookie("session")
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "please log in to continue")
			}

			// Verify the session cookie
			decodedToken, err := authClient.VerifySessionCookie(c.Request().Context(), cookie.Value)
			if err != nil {
				// Invalid session, clear the cookie
				clearCookie := &http.Cookie{
					Name:     "session",
					Value:    "",
					MaxAge:   -1,
					HttpOnly: true,
					Path:     "/",
				}
				c.SetCookie(clearCookie)
				return echo.NewHTTPError(http.StatusUnauthorized, "session expired, please log in again")
			}

			var user models.User
			if err := db.Where("firebase_uid = ?", decodedToken.UID).First(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "account not found")
				}
				return err
			}

			actor, err := resolveActor(db, user)
			if err != nil {
				return err
			}

			c.Set(ContextUserKey, user)
			c.Set(ContextActorKey, actor)

			return next(c)
		}
	}
}

// RequireRole restricts a route group to the given roles. Must run after
// RequireAuth.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(ContextUserKey).(models.User)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "please log in to continue")
			}
			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "you don't have permission to access this resource")
		}
	}
}

// resolveActor maps a user row to the workflow actor. Provider and insurer
// accounts act on behalf of the organization they are the contact for.
func resolveActor(db *gorm.DB, user models.User) (workflow.Actor, error) {
	actor := workflow.Actor{Role: user.Role, UserID: user.ID}

	switch user.Role {
	case models.RoleProvider:
		var provider models.Provider
		if err := db.Where("contact_user_id = ?", user.ID).First(&provider).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return actor, echo.NewHTTPError(http.StatusForbidden, "provider account is not linked to a clinic")
			}
			return actor, err
		}
		actor.ProviderID = provider.ID
	case models.RoleInsurer:
		var insurer models.Insurer
		if err := db.Where("contact_user_id = ?", user.ID).First(&insurer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return actor, echo.NewHTTPError(http.StatusForbidden, "insurer account is not linked to an organization")
			}
			return actor, err
		}
		actor.InsurerID = insurer.ID
	}

	return actor, nil
}

// CurrentUser returns the authenticated user set by RequireAuth.
func CurrentUser(c echo.Context) models.User {
	user, _ := c.Get(ContextUserKey).(models.User)
	return user
}

// CurrentActor returns the workflow actor set by RequireAuth.
func CurrentActor(c echo.Context) workflow.Actor {
	actor, _ := c.Get(ContextActorKey).(workflow.Actor)
	return actor
}
