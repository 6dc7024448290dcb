package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"medilink_app_echo/internal/middleware"
	"medilink_app_echo/internal/models"
	"medilink_app_echo/internal/workflow"
)

type ClaimHandler struct {
	db *gorm.DB
}

func NewClaimHandler(db *gorm.DB) *ClaimHandler {
	return &ClaimHandler{db: db}
}

// ClaimResponse is one claim row on the provider/insurer claim screens
type ClaimResponse struct {
	Appointment models.Appointment `json:"appointment"`
	Age         workflow.ClaimAge  `json:"age"`
}

// ListClaims returns the claims visible to the current actor, bucketed by the
// 30-day age classification. The bucket comes from the :age path param
// (new, old or paid); it is derived at read time, never stored.
func (h *ClaimHandler) ListClaims(c echo.Context) error {
	actor := middleware.CurrentActor(c)

	bucket := workflow.ClaimAge(c.Param("age"))
	switch bucket {
	case workflow.ClaimAgeNew, workflow.ClaimAgeOld, workflow.ClaimAgePaid:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown claim bucket")
	}

	query := h.db.Preload("Patient").Preload("Provider").Preload("Insurer").
		Where("claim_submitted_at IS NOT NULL").
		Order("claim_submitted_at desc")

	switch actor.Role {
	case models.RoleProvider:
		query = query.Where("provider_id = ?", actor.ProviderID)
	case models.RoleInsurer:
		query = query.Where("insurer_id = ?", actor.InsurerID)
	case models.RoleAdmin:
		// unrestricted
	default:
		return echo.NewHTTPError(http.StatusForbidden, "Claims are not visible to this account")
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch claims")
	}

	now := time.Now()
	claims := []ClaimResponse{}
	for _, appt := range appointments {
		if appt.Claim == nil {
			continue
		}
		age := workflow.ClassifyClaim(now, *appt.Claim)
		if age != bucket {
			continue
		}
		claims = append(claims, ClaimResponse{Appointment: appt, Age: age})
	}

	return c.JSON(http.StatusOK, claims)
}
