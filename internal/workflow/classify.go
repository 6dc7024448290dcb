package workflow

import (
	"time"

	"medilink_app_echo/internal/models"
)

// ClaimAgeWindow is the trailing window that separates new claims from old
// ones on the insurer and provider claim screens.
const ClaimAgeWindow = 30 * 24 * time.Hour

// ClaimAge is the derived listing bucket of a claim. Not stored.
type ClaimAge string

const (
	ClaimAgeNew  ClaimAge = "new"
	ClaimAgeOld  ClaimAge = "old"
	ClaimAgePaid ClaimAge = "paid"
)

// ClassifyClaim buckets a claim relative to now. The boundary is half-open:
// a claim is New while strictly less than 30 days old and Old from exactly
// 30 days onward. Paid claims live in their own bucket regardless of age.
func ClassifyClaim(now time.Time, claim models.Claim) ClaimAge {
	if claim.Paid {
		return ClaimAgePaid
	}
	if claim.SubmittedAt == nil || now.Sub(*claim.SubmittedAt) < ClaimAgeWindow {
		return ClaimAgeNew
	}
	return ClaimAgeOld
}

// SubscriptionDisplay is the derived presentation state of a plan
// subscription. Not stored; expiry is a read-time derivation.
type SubscriptionDisplay string

const (
	SubscriptionDisplayPending  SubscriptionDisplay = "pending"
	SubscriptionDisplayApproved SubscriptionDisplay = "approved"
	SubscriptionDisplayExpired  SubscriptionDisplay = "expired"
)

// ClassifySubscription derives the display state of a subscription. Pending
// dominates: a pending subscription is never shown as active or expired, even
// when its dates would say otherwise.
func ClassifySubscription(now time.Time, sub models.PlanSubscription) SubscriptionDisplay {
	if sub.Status == models.SubscriptionPending {
		return SubscriptionDisplayPending
	}
	if now.After(sub.EndDate) {
		return SubscriptionDisplayExpired
	}
	return SubscriptionDisplayApproved
}
