package workflow

import (
	"testing"
	"time"

	"medilink_app_echo/internal/models"
)

func TestClassifyClaim(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		submittedAt time.Time
		paid        bool
		expected    ClaimAge
	}{
		{"submitted just now", now, false, ClaimAgeNew},
		{"29 days old", now.Add(-29 * 24 * time.Hour), false, ClaimAgeNew},
		{"one second inside the window", now.Add(-ClaimAgeWindow + time.Second), false, ClaimAgeNew},
		{"exactly 30 days old", now.Add(-ClaimAgeWindow), false, ClaimAgeOld},
		{"31 days old", now.Add(-31 * 24 * time.Hour), false, ClaimAgeOld},
		{"paid new claim", now.Add(-1 * 24 * time.Hour), true, ClaimAgePaid},
		{"paid old claim", now.Add(-60 * 24 * time.Hour), true, ClaimAgePaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := models.Claim{Amount: 100, SubmittedAt: &tt.submittedAt, Paid: tt.paid}
			got := ClassifyClaim(now, claim)
			if got != tt.expected {
				t.Errorf("ClassifyClaim() = %s; want %s", got, tt.expected)
			}
		})
	}
}

// every unpaid claim lands in exactly one of new/old
func TestClaimAgePartition(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	for days := 0; days <= 90; days++ {
		submitted := now.Add(-time.Duration(days) * 24 * time.Hour)
		claim := models.Claim{SubmittedAt: &submitted}
		got := ClassifyClaim(now, claim)
		if got != ClaimAgeNew && got != ClaimAgeOld {
			t.Fatalf("unpaid claim aged %d days classified as %s", days, got)
		}
		want := ClaimAgeNew
		if days >= 30 {
			want = ClaimAgeOld
		}
		if got != want {
			t.Errorf("claim aged %d days = %s; want %s", days, got, want)
		}
	}
}

func TestClassifySubscription(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		status   models.SubscriptionStatus
		endDate  time.Time
		expected SubscriptionDisplay
	}{
		{"approved and current", models.SubscriptionApproved, now.Add(30 * 24 * time.Hour), SubscriptionDisplayApproved},
		{"approved, ended yesterday", models.SubscriptionApproved, now.Add(-24 * time.Hour), SubscriptionDisplayExpired},
		{"approved, ends exactly now", models.SubscriptionApproved, now, SubscriptionDisplayApproved},
		{"pending with future end date", models.SubscriptionPending, now.Add(30 * 24 * time.Hour), SubscriptionDisplayPending},
		// pending dominates: never expired even past its window
		{"pending past its end date", models.SubscriptionPending, now.Add(-24 * time.Hour), SubscriptionDisplayPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := models.PlanSubscription{
				Status:    tt.status,
				StartDate: tt.endDate.AddDate(0, -6, 0),
				EndDate:   tt.endDate,
			}
			got := ClassifySubscription(now, sub)
			if got != tt.expected {
				t.Errorf("ClassifySubscription() = %s; want %s", got, tt.expected)
			}
		})
	}
}
