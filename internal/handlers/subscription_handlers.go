package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"medilink_app_echo/internal/middleware"
	"medilink_app_echo/internal/models"
	"medilink_app_echo/internal/services"
	"medilink_app_echo/internal/workflow"
)

type SubscriptionHandler struct {
	db       *gorm.DB
	payments *services.PaymentService
}

func NewSubscriptionHandler(db *gorm.DB, payments *services.PaymentService) *SubscriptionHandler {
	return &SubscriptionHandler{db: db, payments: payments}
}

// SubscriptionResponse pairs a subscription with its derived display state.
// Expiry is computed here at read time and never written back.
type SubscriptionResponse struct {
	models.PlanSubscription
	DisplayState workflow.SubscriptionDisplay `json:"display_state"`
}

// PurchasePlan creates a pending subscription for the chosen plan tier and
// opens a gateway checkout session for it
func (h *SubscriptionHandler) PurchasePlan(c echo.Context) error {
	user := middleware.CurrentUser(c)

	var req PurchasePlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	var plan models.InsurancePlan
	err := h.db.Where("active = ? AND deleted = ?", true, false).First(&plan, req.PlanID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("plan %d: %w", req.PlanID, workflow.ErrNotFound)
		}
		return err
	}

	tier, ok := plan.Tier(req.Tier)
	if !ok {
		return fmt.Errorf("plan has no tier %d: %w", req.Tier, workflow.ErrInvalidInput)
	}

	now := time.Now()
	sub := models.PlanSubscription{
		UUID:           uuid.NewString(),
		PatientID:      user.ID,
		PlanID:         plan.ID,
		Tier:           req.Tier,
		Price:          tier.Price,
		DurationMonths: tier.DurationMonths,
		Status:         models.SubscriptionPending,
		StartDate:      now,
		EndDate:        now.AddDate(0, tier.DurationMonths, 0),
	}
	if err := h.db.Create(&sub).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create subscription")
	}

	result, err := h.payments.InitiatePayment(services.CheckoutRequest{
		Purpose:        models.PaymentPurposeSubscription,
		SubscriptionID: &sub.ID,
		UserID:         user.ID,
		UserName:       user.Name,
		UserEmail:      user.Email,
		ItemID:         sub.UUID,
		ItemName:       fmt.Sprintf("%s (tier %d)", plan.Name, req.Tier),
		Amount:         int64(tier.Price),
		CallbackURL:    "/subscriptions/" + sub.UUID,
		ForceNew:       req.ForceNew,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create payment session: "+err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"subscription": sub,
		"order_id":     result.OrderID,
		"token":        result.Token,
		"redirect_url": result.RedirectURL,
	})
}

// StoreExternalPlan records a plan the patient already holds outside the
// platform. No payment; stays pending until an admin verifies it.
func (h *SubscriptionHandler) StoreExternalPlan(c echo.Context) error {
	user := middleware.CurrentUser(c)

	var req ExternalPlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if req.InsurerName == "" || req.PlanName == "" || req.EnrolleeID == "" {
		return fmt.Errorf("insurer name, plan name and enrollee id are required: %w", workflow.ErrInvalidInput)
	}
	if !req.EndDate.After(req.StartDate) {
		return fmt.Errorf("end date must be after start date: %w", workflow.ErrInvalidInput)
	}

	sub := models.PlanSubscription{
		UUID:                uuid.NewString(),
		PatientID:           user.ID,
		Status:              models.SubscriptionPending,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		EnrolleeID:          req.EnrolleeID,
		External:            true,
		ExternalInsurerName: req.InsurerName,
		ExternalPlanName:    req.PlanName,
	}
	if err := h.db.Create(&sub).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create subscription")
	}

	return c.JSON(http.StatusCreated, sub)
}

// ListSubscriptions returns the subscriptions visible to the current actor
// with their derived display state
func (h *SubscriptionHandler) ListSubscriptions(c echo.Context) error {
	actor := middleware.CurrentActor(c)

	query := h.db.Preload("Plan").Preload("Patient").Order("created_at desc")
	switch actor.Role {
	case models.RolePatient:
		query = query.Where("patient_id = ?", actor.UserID)
	case models.RoleInsurer:
		query = query.
			Joins("JOIN insurance_plans ON insurance_plans.id = plan_subscriptions.plan_id").
			Where("insurance_plans.insurer_id = ?", actor.InsurerID)
	case models.RoleAdmin:
		// unrestricted
	default:
		return echo.NewHTTPError(http.StatusForbidden, "Subscriptions are not visible to this account")
	}

	var subs []models.PlanSubscription
	if err := query.Find(&subs).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch subscriptions")
	}

	now := time.Now()
	resp := make([]SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		resp = append(resp, SubscriptionResponse{
			PlanSubscription: sub,
			DisplayState:     workflow.ClassifySubscription(now, sub),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// ApproveSubscription activates a pending subscription and assigns the
// enrollee id. Insurers may only approve subscriptions to their own plans;
// external entries are verified by admins.
func (h *SubscriptionHandler) ApproveSubscription(c echo.Context) error {
	actor := middleware.CurrentActor(c)

	var sub models.PlanSubscription
	err := h.db.Preload("Plan").Where("uuid = ?", c.Param("uuid")).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("subscription %s: %w", c.Param("uuid"), workflow.ErrNotFound)
		}
		return err
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleInsurer:
		if sub.External || sub.Plan.InsurerID != actor.InsurerID {
			return fmt.Errorf("subscription belongs to another insurer: %w", workflow.ErrUnauthorized)
		}
	default:
		return fmt.Errorf("only the insurer or an admin can approve subscriptions: %w", workflow.ErrUnauthorized)
	}

	if sub.Status == models.SubscriptionApproved {
		return c.JSON(http.StatusOK, sub) // already approved, nothing to do
	}

	var body struct {
		EnrolleeID string `json:"enrollee_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if body.EnrolleeID != "" {
		sub.EnrolleeID = body.EnrolleeID
	}

	sub.Status = models.SubscriptionApproved
	sub.FailureReason = ""
	if err := h.db.Save(&sub).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to approve subscription")
	}

	// Keep the patient's current membership id on the profile
	if sub.EnrolleeID != "" {
		if err := h.db.Model(&models.User{}).Where("id = ?", sub.PatientID).
			Update("enrollee_id", sub.EnrolleeID).Error; err != nil {
			c.Logger().Warnf("Failed to update enrollee id for user %d: %v", sub.PatientID, err)
		}
	}

	return c.JSON(http.StatusOK, sub)
}
