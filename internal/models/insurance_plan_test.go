package models

import (
	"errors"
	"testing"
)

func TestValidateTiers(t *testing.T) {
	tests := []struct {
		name     string
		plan     InsurancePlan
		expected error
	}{
		{
			name:     "no tiers at all",
			plan:     InsurancePlan{},
			expected: ErrPlanNoBaseTier,
		},
		{
			name:     "single complete tier",
			plan:     InsurancePlan{Price1: 15000, Duration1: 3},
			expected: nil,
		},
		{
			name:     "all four tiers complete",
			plan:     InsurancePlan{Price1: 15000, Duration1: 3, Price2: 28000, Duration2: 6, Price3: 52000, Duration3: 12, Price4: 95000, Duration4: 24},
			expected: nil,
		},
		{
			name:     "base tier price without duration",
			plan:     InsurancePlan{Price1: 15000},
			expected: ErrPlanPartialTier,
		},
		{
			name:     "base tier duration without price",
			plan:     InsurancePlan{Duration1: 3},
			expected: ErrPlanPartialTier,
		},
		{
			name:     "second tier price without duration",
			plan:     InsurancePlan{Price1: 15000, Duration1: 3, Price2: 28000},
			expected: ErrPlanPartialTier,
		},
		{
			name:     "fourth tier duration without price",
			plan:     InsurancePlan{Price1: 15000, Duration1: 3, Duration4: 24},
			expected: ErrPlanPartialTier,
		},
		{
			name:     "gap between tiers is allowed",
			plan:     InsurancePlan{Price1: 15000, Duration1: 3, Price3: 52000, Duration3: 12},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.ValidateTiers()
			if !errors.Is(err, tt.expected) {
				t.Errorf("ValidateTiers() = %v; want %v", err, tt.expected)
			}
		})
	}
}

func TestTiers(t *testing.T) {
	plan := InsurancePlan{Price1: 15000, Duration1: 3, Price3: 52000, Duration3: 12}

	tiers := plan.Tiers()
	if len(tiers) != 2 {
		t.Fatalf("Tiers() len = %d; want 2", len(tiers))
	}
	if tiers[0].Price != 15000 || tiers[1].DurationMonths != 12 {
		t.Errorf("Tiers() = %+v", tiers)
	}

	if _, ok := plan.Tier(1); !ok {
		t.Errorf("Tier(1) not found")
	}
	if _, ok := plan.Tier(2); ok {
		t.Errorf("Tier(2) should be empty")
	}
	if tier, ok := plan.Tier(3); !ok || tier.Price != 52000 {
		t.Errorf("Tier(3) = %+v, %v", tier, ok)
	}
	if _, ok := plan.Tier(5); ok {
		t.Errorf("Tier(5) out of range should be false")
	}
}
