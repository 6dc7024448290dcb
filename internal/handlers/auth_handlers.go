package handlers

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"medilink_app_echo/internal/models"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authClient *auth.Client
	db         *gorm.DB
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authClient *auth.Client, db *gorm.DB) *AuthHandler {
	return &AuthHandler{authClient: authClient, db: db}
}

// HandleLogin verifies the Firebase ID token and creates a session cookie
func (h *AuthHandler) HandleLogin(c echo.Context) error {
	if h.authClient == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Firebase not initialized",
		})
	}

	tokenString, err := bearerToken(c)
	if err != nil {
		return err
	}

	// Verify ID Token
	decodedToken, err := h.authClient.VerifyIDToken(c.Request().Context(), tokenString)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Invalid token",
		})
	}

	// The account must exist locally; registration is a separate step
	var user models.User
	if err := h.db.Where("firebase_uid = ?", decodedToken.UID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "Account not registered",
			})
		}
		return err
	}

	// Create Session Cookie (valid for 5 days)
	expiresIn := time.Hour * 24 * 5
	cookieValue, err := h.authClient.SessionCookie(c.Request().Context(), tokenString, expiresIn)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to create session",
		})
	}

	// Set HTTP-Only Cookie
	cookie := &http.Cookie{
		Name:     "session",
		Value:    cookieValue,
		MaxAge:   int(expiresIn.Seconds()),
		HttpOnly: true,
		Secure:   os.Getenv("ENV") == "production",
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "success",
		"role":   user.Role,
	})
}

// HandleRegister creates the local account for a verified Firebase user.
// Self-registration always produces a patient; elevated roles are assigned
// by an admin afterwards.
func (h *AuthHandler) HandleRegister(c echo.Context) error {
	if h.authClient == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Firebase not initialized",
		})
	}

	tokenString, err := bearerToken(c)
	if err != nil {
		return err
	}

	decodedToken, err := h.authClient.VerifyIDToken(c.Request().Context(), tokenString)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Invalid token",
		})
	}

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	var existing models.User
	err = h.db.Where("firebase_uid = ?", decodedToken.UID).First(&existing).Error
	if err == nil {
		return c.JSON(http.StatusConflict, map[string]string{
			"error": "Account already registered",
		})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	email, _ := decodedToken.Claims["email"].(string)
	user := models.User{
		FirebaseUID: decodedToken.UID,
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       email,
		Role:        models.RolePatient,
	}
	if err := h.db.Create(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create account")
	}

	return c.JSON(http.StatusCreated, user)
}

// HandleLogout clears the session cookie
func (h *AuthHandler) HandleLogout(c echo.Context) error {
	cookie := &http.Cookie{
		Name:     "session",
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, map[string]string{
		"status": "logged out",
	})
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
	}
	return tokenString, nil
}
