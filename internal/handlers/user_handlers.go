package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"medilink_app_echo/internal/models"
	"medilink_app_echo/internal/services"
)

type UserHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

func NewUserHandler(db *gorm.DB, cache *services.RedisCache) *UserHandler {
	return &UserHandler{db: db, cache: cache}
}

// ListUsers returns all users, admin only
func (h *UserHandler) ListUsers(c echo.Context) error {
	var users []models.User
	if err := h.db.Order("created_at desc").Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch users")
	}
	return c.JSON(http.StatusOK, users)
}

// UpdateUser lets an admin change a user's profile and role
func (h *UserHandler) UpdateUser(c echo.Context) error {
	var user models.User
	if err := h.db.First(&user, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	var req struct {
		Name  string      `json:"name"`
		Phone string      `json:"phone"`
		Role  models.Role `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	switch req.Role {
	case "":
	case models.RolePatient, models.RoleProvider, models.RoleInsurer, models.RoleAdmin:
		user.Role = req.Role
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown role")
	}

	if err := h.db.Save(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user")
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser soft-deletes a user account, admin only
func (h *UserHandler) DeleteUser(c echo.Context) error {
	if err := h.db.Delete(&models.User{}, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete user")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// ListProviders returns the provider directory patients book against
func (h *UserHandler) ListProviders(c echo.Context) error {
	var providers []models.Provider
	if err := h.db.Order("name asc").Find(&providers).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch providers")
	}
	return c.JSON(http.StatusOK, providers)
}

// StoreProvider registers a clinic and links its contact account, admin only
func (h *UserHandler) StoreProvider(c echo.Context) error {
	var provider models.Provider
	if err := c.Bind(&provider); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	provider.ID = 0

	if err := h.db.Create(&provider).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create provider")
	}
	return c.JSON(http.StatusCreated, provider)
}

// StoreInsurer registers an HMO and links its contact account, admin only
func (h *UserHandler) StoreInsurer(c echo.Context) error {
	var insurer models.Insurer
	if err := c.Bind(&insurer); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	insurer.ID = 0

	if err := h.db.Create(&insurer).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create insurer")
	}
	return c.JSON(http.StatusCreated, insurer)
}
