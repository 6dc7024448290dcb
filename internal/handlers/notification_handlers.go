package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"medilink_app_echo/internal/middleware"
	"medilink_app_echo/internal/models"
)

type NotificationHandler struct {
	db *gorm.DB
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{db: db}
}

// ListNotifications returns the caller's notifications, newest first.
// ?unread=true narrows to unread ones.
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	user := middleware.CurrentUser(c)

	query := h.db.Where("user_id = ?", user.ID).Order("created_at desc").Limit(100)
	if c.QueryParam("unread") == "true" {
		query = query.Where("read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch notifications")
	}
	return c.JSON(http.StatusOK, notifications)
}

// MarkRead marks one notification as read
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	user := middleware.CurrentUser(c)

	result := h.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", c.Param("id"), user.ID).
		Update("read", true)
	if result.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update notification")
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "read"})
}

// MarkAllRead marks every unread notification of the caller as read
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	user := middleware.CurrentUser(c)

	err := h.db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", user.ID, false).
		Update("read", true).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update notifications")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "read"})
}
