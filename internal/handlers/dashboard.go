package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"medilink_app_echo/internal/middleware"
	"medilink_app_echo/internal/models"
	"medilink_app_echo/internal/services"
	"medilink_app_echo/internal/workflow"
)

// DashboardHandler serves the role-scoped landing counts
type DashboardHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

func NewDashboardHandler(db *gorm.DB, cache *services.RedisCache) *DashboardHandler {
	return &DashboardHandler{db: db, cache: cache}
}

// Dashboard returns the counters for the caller's role. Cached briefly per
// user; counts are informational, staleness under a minute is fine.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	user := middleware.CurrentUser(c)
	actor := middleware.CurrentActor(c)

	cacheKey := fmt.Sprintf("dashboard:%d", user.ID)
	counts, err := services.GetOrSet(h.cache, c.Request().Context(), cacheKey, time.Minute, func() (map[string]int64, error) {
		return h.countsFor(actor)
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to build dashboard")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"role":   user.Role,
		"counts": counts,
	})
}

func (h *DashboardHandler) countsFor(actor workflow.Actor) (map[string]int64, error) {
	counts := map[string]int64{}

	count := func(key string, query *gorm.DB) error {
		var n int64
		if err := query.Count(&n).Error; err != nil {
			return err
		}
		counts[key] = n
		return nil
	}

	appointments := func() *gorm.DB {
		q := h.db.Model(&models.Appointment{})
		switch actor.Role {
		case models.RolePatient:
			q = q.Where("patient_id = ?", actor.UserID)
		case models.RoleProvider:
			q = q.Where("provider_id = ?", actor.ProviderID)
		case models.RoleInsurer:
			q = q.Where("insurer_id = ?", actor.InsurerID)
		}
		return q
	}

	if err := count("appointments", appointments()); err != nil {
		return nil, err
	}
	if err := count("upcoming_appointments",
		appointments().Where("cancelled_at IS NULL AND scheduled_at > ?", time.Now())); err != nil {
		return nil, err
	}

	switch actor.Role {
	case models.RoleProvider:
		if err := count("pending_approvals",
			appointments().Where("provider_approval = ? AND cancelled_at IS NULL", models.ApprovalPending)); err != nil {
			return nil, err
		}
		if err := count("unpaid_claims",
			appointments().Where("claim_submitted_at IS NOT NULL AND claim_paid = ?", false)); err != nil {
			return nil, err
		}
	case models.RoleInsurer:
		if err := count("pending_approvals",
			appointments().Where("provider_approval = ? AND insurer_approval = ? AND cancelled_at IS NULL",
				models.ApprovalApproved, models.ApprovalPending)); err != nil {
			return nil, err
		}
		if err := count("unpaid_claims",
			appointments().Where("claim_submitted_at IS NOT NULL AND claim_paid = ?", false)); err != nil {
			return nil, err
		}
		if err := count("pending_subscriptions", h.db.Model(&models.PlanSubscription{}).
			Joins("JOIN insurance_plans ON insurance_plans.id = plan_subscriptions.plan_id").
			Where("insurance_plans.insurer_id = ? AND plan_subscriptions.status = ?",
				actor.InsurerID, models.SubscriptionPending)); err != nil {
			return nil, err
		}
	case models.RoleAdmin:
		if err := count("users", h.db.Model(&models.User{})); err != nil {
			return nil, err
		}
		if err := count("subscriptions", h.db.Model(&models.PlanSubscription{})); err != nil {
			return nil, err
		}
	case models.RolePatient:
		if err := count("unread_notifications", h.db.Model(&models.Notification{}).
			Where("user_id = ? AND read = ?", actor.UserID, false)); err != nil {
			return nil, err
		}
	}

	return counts, nil
}
