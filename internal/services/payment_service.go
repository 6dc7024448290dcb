package services

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"medilink_app_echo/internal/models"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

type PaymentService struct {
	db             *gorm.DB
	midtransClient *MidtransService
}

func NewPaymentService(db *gorm.DB, midtransClient *MidtransService) *PaymentService {
	return &PaymentService{
		db:             db,
		midtransClient: midtransClient,
	}
}

// CheckoutRequest describes what a payment session is buying: either a plan
// subscription or an out-of-pocket appointment booking.
type CheckoutRequest struct {
	Purpose        models.PaymentPurpose
	SubscriptionID *uint
	AppointmentID  *uint
	UserID         uint
	UserName       string
	UserEmail      string
	ItemID         string
	ItemName       string
	Amount         int64
	CallbackURL    string
	ForceNew       bool
}

// InitiatePaymentResult holds the result of an initiation attempt
type InitiatePaymentResult struct {
	OrderID     string
	Token       string
	RedirectURL string
	IsExisting  bool
}

// CheckActiveSession returns the newest active session for the checkout
// target, or nil when there is none
func (s *PaymentService) CheckActiveSession(req CheckoutRequest) (*models.PaymentSession, error) {
	query := s.db.Where("purpose = ? AND is_active = ?", req.Purpose, true)
	switch req.Purpose {
	case models.PaymentPurposeSubscription:
		query = query.Where("subscription_id = ?", req.SubscriptionID)
	case models.PaymentPurposeAppointment:
		query = query.Where("appointment_id = ?", req.AppointmentID)
	}

	var existingSession models.PaymentSession
	err := query.Order("created_at desc").First(&existingSession).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // No active session
		}
		return nil, err
	}
	return &existingSession, nil
}

// InitiatePayment handles the logic for starting or resuming a payment session
func (s *PaymentService) InitiatePayment(req CheckoutRequest) (*InitiatePaymentResult, error) {
	// 1. Check for existing active session
	existingSession, err := s.CheckActiveSession(req)
	if err != nil {
		return nil, err
	}

	if existingSession != nil {
		// active session exists, check status with Midtrans
		statusResp, err := s.midtransClient.CheckTransaction(existingSession.OrderID)
		if err == nil {
			// Case 1: Payment already successful
			if statusResp.TransactionStatus == "settlement" || statusResp.TransactionStatus == "capture" {
				return nil, fmt.Errorf("payment already made")
			}

			// Case 2: Payment failed/expired/canceled
			if statusResp.TransactionStatus == "deny" || statusResp.TransactionStatus == "expire" || statusResp.TransactionStatus == "cancel" || statusResp.TransactionStatus == "failure" {
				existingSession.IsActive = false
				s.db.Save(existingSession)
				// Proceed to create new
			} else {
				// Case 3: Payment is Pending
				if req.ForceNew {
					// Cancel at Midtrans
					s.midtransClient.CancelTransaction(existingSession.OrderID)
					existingSession.IsActive = false
					s.db.Save(existingSession)
					// Proceed to create new
				} else {
					// Reuse existing
					var midtransResp snap.Response
					if err := json.Unmarshal(existingSession.ResponseMetadata, &midtransResp); err == nil {
						return &InitiatePaymentResult{
							OrderID:     existingSession.OrderID,
							Token:       midtransResp.Token,
							RedirectURL: midtransResp.RedirectURL,
							IsExisting:  true,
						}, nil
					}
					// If unmarshal fails, treat as broken
					existingSession.IsActive = false
					s.db.Save(existingSession)
				}
			}
		} else {
			// Check failed, assume session is invalid/broken locally
			existingSession.IsActive = false
			s.db.Save(existingSession)
		}
	}

	// 2. Create New Transaction
	orderID := fmt.Sprintf("%s-%s-%d", req.Purpose, req.ItemID, time.Now().Unix())

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: req.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.UserName,
			Email: req.UserEmail,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.ItemID,
				Name:  req.ItemName,
				Price: req.Amount,
				Qty:   1,
			},
		},
		Callbacks: &snap.Callbacks{
			Finish: req.CallbackURL,
		},
	}

	resp, err := s.midtransClient.CreateTransaction(orderID, req.Amount, snapReq)
	if err != nil {
		return nil, err
	}

	// 3. Create Session Record
	reqBytes, _ := json.Marshal(snapReq)
	respBytes, _ := json.Marshal(resp)

	session := models.PaymentSession{
		Purpose:          req.Purpose,
		SubscriptionID:   req.SubscriptionID,
		AppointmentID:    req.AppointmentID,
		UserID:           req.UserID,
		PaymentGateway:   models.PaymentGatewayMidtrans,
		OrderID:          orderID,
		IsActive:         true,
		RequestMetadata:  reqBytes,
		ResponseMetadata: respBytes,
	}
	s.db.Create(&session)

	return &InitiatePaymentResult{
		OrderID:     orderID,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
		IsExisting:  false,
	}, nil
}

// SettleSession deactivates the session for an order and returns it, so the
// callback handler can resolve what was being paid for
func (s *PaymentService) SettleSession(orderID string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	if err := s.db.Where("order_id = ?", orderID).First(&session).Error; err != nil {
		return nil, err
	}
	if session.IsActive {
		session.IsActive = false
		if err := s.db.Save(&session).Error; err != nil {
			return nil, err
		}
	}
	return &session, nil
}
