package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// MaxPlanTiers is the number of (price, duration) pairs a plan may carry
const MaxPlanTiers = 4

var (
	ErrPlanNoBaseTier  = errors.New("plan must have at least one complete price/duration pair")
	ErrPlanPartialTier = errors.New("plan tier has price without duration or duration without price")
)

// PlanTier is one priced duration option of an insurance plan
type PlanTier struct {
	Price          float64 `json:"price"`
	DurationMonths int     `json:"duration_months"`
}

// InsurancePlan represents a priced, durable coverage product offered by an
// insurer. Up to four price/duration tiers; the first is mandatory and a tier
// with only one half set is a validation error.
type InsurancePlan struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	InsurerID   uint   `gorm:"index" json:"insurer_id"`
	Name        string `gorm:"type:varchar(255)" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	// Active is the insurer-controlled visibility toggle
	Active bool `gorm:"default:true" json:"active"`
	// Deleted is a soft flag: the plan disappears from every listing but
	// the row is never removed, so existing subscriptions keep resolving.
	Deleted bool `gorm:"default:false;index" json:"deleted"`

	Price1    float64 `gorm:"type:decimal(15,2)" json:"price_1"`
	Duration1 int     `json:"duration_1"`
	Price2    float64 `gorm:"type:decimal(15,2)" json:"price_2"`
	Duration2 int     `json:"duration_2"`
	Price3    float64 `gorm:"type:decimal(15,2)" json:"price_3"`
	Duration3 int     `json:"duration_3"`
	Price4    float64 `gorm:"type:decimal(15,2)" json:"price_4"`
	Duration4 int     `json:"duration_4"`

	// Relationships
	Insurer       Insurer            `gorm:"foreignKey:InsurerID" json:"insurer,omitempty"`
	Subscriptions []PlanSubscription `gorm:"foreignKey:PlanID" json:"subscriptions,omitempty"`
}

// Tiers returns the set tiers in order, skipping empty slots
func (p InsurancePlan) Tiers() []PlanTier {
	var tiers []PlanTier
	for _, t := range p.rawTiers() {
		if t.Price > 0 && t.DurationMonths > 0 {
			tiers = append(tiers, t)
		}
	}
	return tiers
}

// Tier returns the 1-based tier n, or false when that slot is not set
func (p InsurancePlan) Tier(n int) (PlanTier, bool) {
	raw := p.rawTiers()
	if n < 1 || n > MaxPlanTiers {
		return PlanTier{}, false
	}
	t := raw[n-1]
	if t.Price <= 0 || t.DurationMonths <= 0 {
		return PlanTier{}, false
	}
	return t, true
}

// ValidateTiers enforces the pricing rules: the first tier is mandatory and
// every slot must have price and duration set together or not at all.
func (p InsurancePlan) ValidateTiers() error {
	raw := p.rawTiers()
	if raw[0].Price <= 0 || raw[0].DurationMonths <= 0 {
		if raw[0].Price != 0 || raw[0].DurationMonths != 0 {
			return ErrPlanPartialTier
		}
		return ErrPlanNoBaseTier
	}
	for _, t := range raw[1:] {
		priceSet := t.Price != 0
		durationSet := t.DurationMonths != 0
		if priceSet != durationSet {
			return ErrPlanPartialTier
		}
		if priceSet && (t.Price < 0 || t.DurationMonths < 0) {
			return ErrPlanPartialTier
		}
	}
	return nil
}

func (p InsurancePlan) rawTiers() [MaxPlanTiers]PlanTier {
	return [MaxPlanTiers]PlanTier{
		{p.Price1, p.Duration1},
		{p.Price2, p.Duration2},
		{p.Price3, p.Duration3},
		{p.Price4, p.Duration4},
	}
}
