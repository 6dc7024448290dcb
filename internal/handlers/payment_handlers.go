package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"medilink_app_echo/internal/models"
	"medilink_app_echo/internal/services"
)

type PaymentHandler struct {
	db       *gorm.DB
	payments *services.PaymentService
	midtrans *services.MidtransService
}

func NewPaymentHandler(db *gorm.DB, payments *services.PaymentService, midtransClient *services.MidtransService) *PaymentHandler {
	return &PaymentHandler{db: db, payments: payments, midtrans: midtransClient}
}

// MidtransCallback handles gateway notifications. Every payload is verified
// against the server key and stored for audit before any state changes.
func (h *PaymentHandler) MidtransCallback(c echo.Context) error {
	var payload map[string]interface{}
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	orderID, _ := payload["order_id"].(string)
	statusCode, _ := payload["status_code"].(string)
	grossAmount, _ := payload["gross_amount"].(string)
	signatureKey, _ := payload["signature_key"].(string)
	transactionStatus, _ := payload["transaction_status"].(string)
	fraudStatus, _ := payload["fraud_status"].(string)

	if orderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing order_id")
	}
	if !h.midtrans.VerifySignature(orderID, statusCode, grossAmount, signatureKey) {
		return echo.NewHTTPError(http.StatusForbidden, "Invalid signature")
	}

	rawPayload, _ := json.Marshal(payload)
	history := models.PaymentCallbackHistory{
		PaymentGateway: models.PaymentGatewayMidtrans,
		OrderID:        orderID,
		Metadata:       rawPayload,
	}
	if err := h.db.Create(&history).Error; err != nil {
		log.Printf("Failed to record callback history for order %s: %v", orderID, err)
	}

	switch transactionStatus {
	case "capture":
		if fraudStatus == "accept" {
			h.handleSettlement(orderID)
		}
	case "settlement":
		h.handleSettlement(orderID)
	case "deny", "expire", "cancel", "failure":
		h.handleFailure(orderID, transactionStatus)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PaymentHandler) handleSettlement(orderID string) {
	session, err := h.payments.SettleSession(orderID)
	if err != nil {
		log.Printf("Failed to settle session for order %s: %v", orderID, err)
		return
	}

	// A settled subscription payment clears any previous failure and waits
	// for insurer approval; appointment payments need no further bookkeeping.
	if session.Purpose == models.PaymentPurposeSubscription && session.SubscriptionID != nil {
		err := h.db.Model(&models.PlanSubscription{}).
			Where("id = ?", *session.SubscriptionID).
			Update("failure_reason", "").Error
		if err != nil {
			log.Printf("Failed to clear failure reason for subscription %d: %v", *session.SubscriptionID, err)
		}
	}
}

func (h *PaymentHandler) handleFailure(orderID, transactionStatus string) {
	session, err := h.payments.SettleSession(orderID)
	if err != nil {
		log.Printf("Failed to settle session for order %s: %v", orderID, err)
		return
	}

	if session.Purpose == models.PaymentPurposeSubscription && session.SubscriptionID != nil {
		err := h.db.Model(&models.PlanSubscription{}).
			Where("id = ? AND status = ?", *session.SubscriptionID, models.SubscriptionPending).
			Update("failure_reason", "payment "+transactionStatus).Error
		if err != nil {
			log.Printf("Failed to record payment failure for subscription %d: %v", *session.SubscriptionID, err)
		}
	}
}
