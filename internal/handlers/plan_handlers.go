package handlers

import (
	"errors"
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

const publicPlansCacheKey = "public:plans"

type PlanHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

func NewPlanHandler(db *gorm.DB, cache *services.RedisCache) *PlanHandler {
	return &PlanHandler{db: db, cache: cache}
}

// PublicPlan is the marketplace view of a plan
type PublicPlan struct {
	ID          uint              `json:"id"`
	InsurerName string            `json:"insurer_name"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Tiers       []models.PlanTier `json:"tiers"`
}

// ListPublicPlans returns every active plan across insurers, cached
func (h *PlanHandler) ListPublicPlans(c echo.Context) error {
	ctx := c.Request().Context()

	plans, err := services.GetOrSet(h.cache, ctx, publicPlansCacheKey, 5*time.Minute, func() ([]PublicPlan, error) {
		var rows []models.InsurancePlan
		err := h.db.Preload("Insurer").
			Where("active = ? AND deleted = ?", true, false).
			Order("name asc").
			Find(&rows).Error
		if err != nil {
			return nil, err
		}

		public := []PublicPlan{}
		for _, plan := range rows {
			public = append(public, PublicPlan{
				ID:          plan.ID,
				InsurerName: plan.Insurer.Name,
				Name:        plan.Name,
				Description: plan.Description,
				Tiers:       plan.Tiers(),
			})
		}
		return public, nil
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch plans")
	}

	return c.JSON(http.StatusOK, plans)
}

// ListPlans returns the insurer's own plans, including inactive ones.
// Soft-deleted plans stay out of every listing.
func (h *PlanHandler) ListPlans(c echo.Context) error {
	actor := middleware.CurrentActor(c)

	query := h.db.Where("deleted = ?", false).Order("name asc")
	if actor.Role == models.RoleInsurer {
		query = query.Where("insurer_id = ?", actor.InsurerID)
	}

	var plans []models.InsurancePlan
	if err := query.Find(&plans).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch plans")
	}
	return c.JSON(http.StatusOK, plans)
}

// StorePlan creates a new plan for the insurer
func (h *PlanHandler) StorePlan(c echo.Context) error {
	actor := middleware.CurrentActor(c)

	var plan models.InsurancePlan
	if err := c.Bind(&plan); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	plan.ID = 0
	plan.Deleted = false
	if actor.Role == models.RoleInsurer {
		plan.InsurerID = actor.InsurerID
	}

	if err := plan.ValidateTiers(); err != nil {
		return fmt.Errorf("%v: %w", err, workflow.ErrInvalidInput)
	}

	if err := h.db.Create(&plan).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create plan")
	}

	h.invalidatePublicCache(c)
	return c.JSON(http.StatusCreated, plan)
}

// UpdatePlan updates an existing plan's details and tiers
func (h *PlanHandler) UpdatePlan(c echo.Context) error {
	plan, err := h.loadOwnPlan(c)
	if err != nil {
		return err
	}

	var req models.InsurancePlan
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	plan.Name = req.Name
	plan.Description = req.Description
	plan.Price1, plan.Duration1 = req.Price1, req.Duration1
	plan.Price2, plan.Duration2 = req.Price2, req.Duration2
	plan.Price3, plan.Duration3 = req.Price3, req.Duration3
	plan.Price4, plan.Duration4 = req.Price4, req.Duration4

	if err := plan.ValidateTiers(); err != nil {
		return fmt.Errorf("%v: %w", err, workflow.ErrInvalidInput)
	}

	if err := h.db.Save(plan).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update plan")
	}

	h.invalidatePublicCache(c)
	return c.JSON(http.StatusOK, plan)
}

// TogglePlanActive flips the insurer-controlled visibility of a plan
func (h *PlanHandler) TogglePlanActive(c echo.Context) error {
	plan, err := h.loadOwnPlan(c)
	if err != nil {
		return err
	}

	plan.Active = !plan.Active
	if err := h.db.Save(plan).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update plan")
	}

	h.invalidatePublicCache(c)
	return c.JSON(http.StatusOK, plan)
}

// DeletePlan soft-flags a plan. The row stays so existing subscriptions keep
// resolving; it just disappears from every listing.
func (h *PlanHandler) DeletePlan(c echo.Context) error {
	plan, err := h.loadOwnPlan(c)
	if err != nil {
		return err
	}

	plan.Deleted = true
	plan.Active = false
	if err := h.db.Save(plan).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete plan")
	}

	h.invalidatePublicCache(c)
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *PlanHandler) loadOwnPlan(c echo.Context) (*models.InsurancePlan, error) {
	actor := middleware.CurrentActor(c)

	var plan models.InsurancePlan
	err := h.db.Where("deleted = ?", false).First(&plan, c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("plan %s: %w", c.Param("id"), workflow.ErrNotFound)
		}
		return nil, err
	}

	if actor.Role == models.RoleInsurer && plan.InsurerID != actor.InsurerID {
		return nil, fmt.Errorf("plan belongs to another insurer: %w", workflow.ErrUnauthorized)
	}
	return &plan, nil
}

func (h *PlanHandler) invalidatePublicCache(c echo.Context) {
	if err := h.cache.Delete(c.Request().Context(), publicPlansCacheKey); err != nil {
		c.Logger().Warnf("Failed to invalidate plan cache: %v", err)
	}
}
