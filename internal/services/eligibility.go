package services

import (
	"time"

	"github.com/roktolink/roktolink-backend/internal/models"
)

// CooldownDays is the minimum gap between whole-blood donations.
const CooldownDays = 90

// Eligibility is the computed donation eligibility attached to every
// projected donor view. DaysUntilEligible is null when the donor is
// unwilling (no meaningful countdown exists).
type Eligibility struct {
	Eligible          bool `json:"eligible"`
	DaysUntilEligible *int `json:"days_until_eligible"`
}

// EvaluateEligibility decides whether a donor can donate at the given
// moment. Checks run in priority order: willingness, active deferral,
// then the donation cooldown. The cooldown boundary is inclusive: a
// donor whose last donation was exactly CooldownDays ago is eligible.
func EvaluateEligibility(donor *models.Donor, now time.Time) Eligibility {
	if !donor.WillingToDonate {
		return Eligibility{Eligible: false, DaysUntilEligible: nil}
	}

	if donor.DeferralUntil != nil && donor.DeferralUntil.After(now) {
		// Round partial days up so the countdown never reads zero while
		// the deferral is still active.
		days := ceilDays(donor.DeferralUntil.Sub(now))
		return Eligibility{Eligible: false, DaysUntilEligible: &days}
	}

	if donor.LastDonationDate == nil {
		zero := 0
		return Eligibility{Eligible: true, DaysUntilEligible: &zero}
	}

	// Whole days only; a partial day does not count as elapsed.
	elapsed := int(now.Sub(*donor.LastDonationDate).Hours() / 24)
	if elapsed >= CooldownDays {
		zero := 0
		return Eligibility{Eligible: true, DaysUntilEligible: &zero}
	}

	remaining := CooldownDays - elapsed
	return Eligibility{Eligible: false, DaysUntilEligible: &remaining}
}

func ceilDays(d time.Duration) int {
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}
