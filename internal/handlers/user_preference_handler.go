package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"medilink_app_echo/internal/middleware"
	"medilink_app_echo/internal/models"
)

type UserPreferenceHandler struct {
	DB *gorm.DB
}

func NewUserPreferenceHandler(db *gorm.DB) *UserPreferenceHandler {
	return &UserPreferenceHandler{DB: db}
}

// GetUserPreference returns the caller's delivery preference, defaulting to
// email when none has been saved yet
func (h *UserPreferenceHandler) GetUserPreference(c echo.Context) error {
	user := middleware.CurrentUser(c)

	var pref models.UserNotifPreference
	err := h.DB.Where("user_id = ?", user.ID).First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Default values
			pref = models.UserNotifPreference{
				UserID:             user.ID,
				Channel:            models.NotificationChannelEmail,
				WhatsappTargetType: models.WhatsappTargetTypePersonal,
			}
		} else {
			return echo.NewHTTPError(http.StatusInternalServerError, "Error fetching preference")
		}
	}

	return c.JSON(http.StatusOK, pref)
}

// UpdateUserPreference upserts the caller's delivery preference
func (h *UserPreferenceHandler) UpdateUserPreference(c echo.Context) error {
	user := middleware.CurrentUser(c)

	var req struct {
		Channel            models.NotificationChannel `json:"channel"`
		WhatsappTargetType string                     `json:"whatsapp_target_type"`
		WhatsappGroupID    string                     `json:"whatsapp_group_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	switch req.Channel {
	case models.NotificationChannelEmail, models.NotificationChannelWhatsapp, models.NotificationChannelNone:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown channel")
	}

	var pref models.UserNotifPreference
	err := h.DB.Where("user_id = ?", user.ID).First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			pref = models.UserNotifPreference{UserID: user.ID}
		} else {
			return echo.NewHTTPError(http.StatusInternalServerError, "Database error")
		}
	}

	pref.Channel = req.Channel
	if req.WhatsappTargetType != "" {
		pref.WhatsappTargetType = req.WhatsappTargetType
	}
	pref.WhatsappGroupID = req.WhatsappGroupID

	if err := h.DB.Save(&pref).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save preference")
	}

	return c.JSON(http.StatusOK, pref)
}
