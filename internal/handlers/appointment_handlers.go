package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"medilink_app_echo/internal/middleware"
	"medilink_app_echo/internal/models"
	"medilink_app_echo/internal/notify"
	"medilink_app_echo/internal/services"
	"medilink_app_echo/internal/tasks"
	"medilink_app_echo/internal/workflow"
)

type AppointmentHandler struct {
	db         *gorm.DB
	engine     *workflow.Engine
	dispatcher *notify.Dispatcher
	payments   *services.PaymentService
	midtrans   *services.MidtransService
}

func NewAppointmentHandler(db *gorm.DB, engine *workflow.Engine, dispatcher *notify.Dispatcher, payments *services.PaymentService, midtransClient *services.MidtransService) *AppointmentHandler {
	return &AppointmentHandler{
		db:         db,
		engine:     engine,
		dispatcher: dispatcher,
		payments:   payments,
		midtrans:   midtransClient,
	}
}

// AppointmentResponse pairs an appointment with the transitions the current
// actor may perform on it, so every client derives button visibility from the
// same predicates.
type AppointmentResponse struct {
	models.Appointment
	AvailableActions []string `json:"available_actions"`
}

// BookAppointment creates a new appointment for the authenticated patient.
// Insured bookings attach the insurer of the patient's current plan;
// out-of-pocket bookings capture payment through a gateway session.
func (h *AppointmentHandler) BookAppointment(c echo.Context) error {
	user := middleware.CurrentUser(c)

	var req BookAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	if !req.ScheduledAt.After(time.Now()) {
		return fmt.Errorf("scheduled time must be in the future: %w", workflow.ErrInvalidInput)
	}

	var provider models.Provider
	if err := h.db.First(&provider, req.ProviderID).Error; err != nil {
		return fmt.Errorf("provider %d: %w", req.ProviderID, workflow.ErrNotFound)
	}

	appt := models.Appointment{
		UUID:             uuid.NewString(),
		PatientID:        user.ID,
		ProviderID:       provider.ID,
		ScheduledAt:      req.ScheduledAt,
		Complaint:        req.Complaint,
		ProviderApproval: models.ApprovalPending,
		OutOfPocket:      req.OutOfPocket,
	}

	if req.OutOfPocket {
		if req.Amount <= 0 {
			return fmt.Errorf("out-of-pocket booking requires a positive amount: %w", workflow.ErrInvalidInput)
		}
		appt.InsurerApproval = models.ApprovalNotApplicable
	} else {
		insurerID, err := h.activeInsurerFor(user.ID)
		if err != nil {
			return err
		}
		appt.InsurerID = &insurerID
		appt.InsurerApproval = models.ApprovalPending
	}

	if err := h.db.Create(&appt).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create appointment")
	}

	// Queue the 24h reminder; booking never fails on this
	if reminderTask, err := tasks.AppointmentReminderTask.CreateTask(appt.ID, appt.ScheduledAt); err == nil {
		if err := h.db.Create(reminderTask).Error; err != nil {
			log.Printf("Failed to queue reminder for appointment %d: %v", appt.ID, err)
		}
	}

	if !req.OutOfPocket {
		return c.JSON(http.StatusCreated, appt)
	}

	result, err := h.payments.InitiatePayment(services.CheckoutRequest{
		Purpose:       models.PaymentPurposeAppointment,
		AppointmentID: &appt.ID,
		UserID:        user.ID,
		UserName:      user.Name,
		UserEmail:     user.Email,
		ItemID:        appt.UUID,
		ItemName:      fmt.Sprintf("Appointment at %s", provider.Name),
		Amount:        req.Amount,
		CallbackURL:   "/appointments/" + appt.UUID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create payment session: "+err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"appointment":  appt,
		"order_id":     result.OrderID,
		"token":        result.Token,
		"redirect_url": result.RedirectURL,
	})
}

// activeInsurerFor resolves the insurer covering a patient right now: the
// newest approved, unexpired subscription wins.
func (h *AppointmentHandler) activeInsurerFor(patientID uint) (uint, error) {
	var subs []models.PlanSubscription
	err := h.db.Preload("Plan").
		Where("patient_id = ? AND status = ?", patientID, models.SubscriptionApproved).
		Order("end_date desc").
		Find(&subs).Error
	if err != nil {
		return 0, err
	}

	now := time.Now()
	for _, sub := range subs {
		// External plans have no insurer account to route approvals to
		if sub.External {
			continue
		}
		if workflow.ClassifySubscription(now, sub) == workflow.SubscriptionDisplayApproved {
			return sub.Plan.InsurerID, nil
		}
	}
	return 0, fmt.Errorf("no active insurance plan, book out-of-pocket instead: %w", workflow.ErrInvalidInput)
}

// ListAppointments returns the appointments visible to the current actor
func (h *AppointmentHandler) ListAppointments(c echo.Context) error {
	actor := middleware.CurrentActor(c)

	query := h.db.Preload("Patient").Preload("Provider").Preload("Insurer").
		Order("scheduled_at desc")

	switch actor.Role {
	case models.RolePatient:
		query = query.Where("patient_id = ?", actor.UserID)
	case models.RoleProvider:
		query = query.Where("provider_id = ?", actor.ProviderID)
	case models.RoleInsurer:
		query = query.Where("insurer_id = ?", actor.InsurerID)
	case models.RoleAdmin:
		// unrestricted
	default:
		return echo.NewHTTPError(http.StatusForbidden, "Unknown role")
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch appointments")
	}

	resp := make([]AppointmentResponse, 0, len(appointments))
	for _, appt := range appointments {
		resp = append(resp, AppointmentResponse{
			Appointment:      appt,
			AvailableActions: availableActions(actor, appt),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// GetAppointment returns one appointment by its public UUID
func (h *AppointmentHandler) GetAppointment(c echo.Context) error {
	actor := middleware.CurrentActor(c)

	appt, err := h.loadAppointment(c.Param("uuid"))
	if err != nil {
		return err
	}
	if err := h.authorizeView(actor, *appt); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, AppointmentResponse{
		Appointment:      *appt,
		AvailableActions: availableActions(actor, *appt),
	})
}

// Transition endpoints. Each re-reads the row, runs the engine against the
// fresh state, saves on success and dispatches effects. A concurrent
// conflicting transition fails its precondition check and surfaces as 409.

func (h *AppointmentHandler) ApproveByProvider(c echo.Context) error {
	return h.transition(c, func(actor workflow.Actor, appt models.Appointment) (models.Appointment, []workflow.Effect, error) {
		return h.engine.ApproveByProvider(actor, appt)
	})
}

func (h *AppointmentHandler) RejectByProvider(c echo.Context) error {
	return h.transition(c, func(actor workflow.Actor, appt models.Appointment) (models.Appointment, []workflow.Effect, error) {
		return h.engine.RejectByProvider(actor, appt)
	})
}

func (h *AppointmentHandler) ApproveByInsurer(c echo.Context) error {
	return h.transition(c, func(actor workflow.Actor, appt models.Appointment) (models.Appointment, []workflow.Effect, error) {
		return h.engine.ApproveByInsurer(actor, appt)
	})
}

func (h *AppointmentHandler) RejectByInsurer(c echo.Context) error {
	return h.transition(c, func(actor workflow.Actor, appt models.Appointment) (models.Appointment, []workflow.Effect, error) {
		return h.engine.RejectByInsurer(actor, appt)
	})
}

func (h *AppointmentHandler) MarkQueried(c echo.Context) error {
	return h.transition(c, func(actor workflow.Actor, appt models.Appointment) (models.Appointment, []workflow.Effect, error) {
		return h.engine.MarkQueried(actor, appt)
	})
}

func (h *AppointmentHandler) Reschedule(c echo.Context) error {
	var req RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	return h.transition(c, func(actor workflow.Actor, appt models.Appointment) (models.Appointment, []workflow.Effect, error) {
		return h.engine.Reschedule(actor, appt, req.ScheduledAt)
	})
}

func (h *AppointmentHandler) SubmitClaim(c echo.Context) error {
	var req SubmitClaimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	return h.transition(c, func(actor workflow.Actor, appt models.Appointment) (models.Appointment, []workflow.Effect, error) {
		return h.engine.SubmitClaim(actor, appt, req.Amount)
	})
}

func (h *AppointmentHandler) MarkClaimPaid(c echo.Context) error {
	return h.transition(c, func(actor workflow.Actor, appt models.Appointment) (models.Appointment, []workflow.Effect, error) {
		return h.engine.MarkClaimPaid(actor, appt)
	})
}

// Cancel runs the cancel transition and, for a paid out-of-pocket booking,
// records the refund owed to the patient.
func (h *AppointmentHandler) Cancel(c echo.Context) error {
	return h.transitionThen(c, func(actor workflow.Actor, appt models.Appointment) (models.Appointment, []workflow.Effect, error) {
		return h.engine.Cancel(actor, appt)
	}, func(appt models.Appointment) {
		if appt.OutOfPocket {
			h.recordRefundIfPaid(appt)
		}
	})
}

// recordRefundIfPaid checks the gateway for a settled payment on this
// appointment and writes the refund row. Best-effort: a gateway hiccup is
// logged, never blocks the cancellation.
func (h *AppointmentHandler) recordRefundIfPaid(appt models.Appointment) {
	var session models.PaymentSession
	err := h.db.Where("purpose = ? AND appointment_id = ?", models.PaymentPurposeAppointment, appt.ID).
		Order("created_at desc").First(&session).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to look up payment session for appointment %d: %v", appt.ID, err)
		}
		return
	}

	status, err := h.midtrans.CheckTransaction(session.OrderID)
	if err != nil {
		log.Printf("Failed to check transaction %s: %v", session.OrderID, err)
		return
	}
	if status.TransactionStatus != "settlement" && status.TransactionStatus != "capture" {
		return
	}

	amount, _ := strconv.ParseFloat(status.GrossAmount, 64)

	refund := models.Refund{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		Amount:        amount,
		Gateway:       session.PaymentGateway,
		RefundDate:    time.Now(),
	}
	if err := h.db.Create(&refund).Error; err != nil {
		log.Printf("Failed to record refund for appointment %d: %v", appt.ID, err)
	}
}

type transitionFunc func(actor workflow.Actor, appt models.Appointment) (models.Appointment, []workflow.Effect, error)

func (h *AppointmentHandler) transition(c echo.Context, fn transitionFunc) error {
	return h.transitionThen(c, fn, nil)
}

// transitionThen runs a transition and, only once the new state is saved,
// invokes afterSave. Side effects that reference the transitioned state
// (refund rows for a cancellation) must not exist if the save fails.
func (h *AppointmentHandler) transitionThen(c echo.Context, fn transitionFunc, afterSave func(models.Appointment)) error {
	actor := middleware.CurrentActor(c)

	appt, err := h.loadAppointment(c.Param("uuid"))
	if err != nil {
		return err
	}

	updated, effects, err := fn(actor, *appt)
	if err != nil {
		return err
	}

	if err := h.db.Save(&updated).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save appointment")
	}

	if afterSave != nil {
		afterSave(updated)
	}
	h.dispatcher.Dispatch(updated, effects)

	return c.JSON(http.StatusOK, AppointmentResponse{
		Appointment:      updated,
		AvailableActions: availableActions(actor, updated),
	})
}

func (h *AppointmentHandler) loadAppointment(uuidParam string) (*models.Appointment, error) {
	var appt models.Appointment
	err := h.db.Where("uuid = ?", uuidParam).First(&appt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("appointment %s: %w", uuidParam, workflow.ErrNotFound)
		}
		return nil, err
	}
	return &appt, nil
}

func (h *AppointmentHandler) authorizeView(actor workflow.Actor, appt models.Appointment) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RolePatient:
		if appt.PatientID == actor.UserID {
			return nil
		}
	case models.RoleProvider:
		if appt.ProviderID == actor.ProviderID {
			return nil
		}
	case models.RoleInsurer:
		if appt.InsurerID != nil && *appt.InsurerID == actor.InsurerID {
			return nil
		}
	}
	return fmt.Errorf("appointment is not visible to this account: %w", workflow.ErrUnauthorized)
}

// availableActions filters the workflow predicates down to what this actor's
// role can actually do.
func availableActions(actor workflow.Actor, appt models.Appointment) []string {
	actions := []string{}

	providerSide := actor.Role == models.RoleAdmin ||
		(actor.Role == models.RoleProvider && appt.ProviderID == actor.ProviderID)
	insurerSide := actor.Role == models.RoleAdmin ||
		(actor.Role == models.RoleInsurer && appt.InsurerID != nil && *appt.InsurerID == actor.InsurerID)
	patientSide := actor.Role == models.RoleAdmin ||
		(actor.Role == models.RolePatient && appt.PatientID == actor.UserID)

	if providerSide {
		if workflow.CanApproveByProvider(appt) {
			actions = append(actions, "approve_provider")
		}
		if workflow.CanRejectByProvider(appt) {
			actions = append(actions, "reject_provider")
		}
		if !appt.Queried && appt.CancelledAt == nil {
			actions = append(actions, "mark_queried")
		}
		if workflow.CanSubmitClaim(appt) {
			actions = append(actions, "submit_claim")
		}
	}
	if insurerSide {
		if workflow.CanApproveByInsurer(appt) {
			actions = append(actions, "approve_insurer")
		}
		if workflow.CanRejectByInsurer(appt) {
			actions = append(actions, "reject_insurer")
		}
		if workflow.CanMarkClaimPaid(appt) {
			actions = append(actions, "mark_claim_paid")
		}
	}
	if patientSide {
		if workflow.CanCancel(appt) {
			actions = append(actions, "cancel")
		}
		if workflow.CanReschedule(appt) {
			actions = append(actions, "reschedule")
		}
	}
	return actions
}
