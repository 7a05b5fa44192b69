package order

import "time"

// DefaultReturnWindowDays is the standard return window after delivery
const DefaultReturnWindowDays = 7

// ReturnWindowPolicy decides whether a delivered order may still be returned.
// Eligibility is a pure function of the delivery date and the current time.
type ReturnWindowPolicy struct {
	WindowDays int
}

// DefaultReturnWindowPolicy returns the standard 7-day policy
func DefaultReturnWindowPolicy() ReturnWindowPolicy {
	return ReturnWindowPolicy{WindowDays: DefaultReturnWindowDays}
}

// NewReturnWindowPolicy creates a policy with a custom window. Non-positive
// windows fall back to the default.
func NewReturnWindowPolicy(windowDays int) ReturnWindowPolicy {
	if windowDays <= 0 {
		windowDays = DefaultReturnWindowDays
	}
	return ReturnWindowPolicy{WindowDays: windowDays}
}

// IsEligible reports whether a return is still accepted. An order that was
// never delivered is not eligible. The boundary is inclusive: delivered
// exactly WindowDays calendar days ago is still eligible.
func (p ReturnWindowPolicy) IsEligible(deliveryDate *time.Time, now time.Time) bool {
	if deliveryDate == nil {
		return false
	}
	return daysBetween(*deliveryDate, now) <= p.WindowDays
}

// daysBetween counts whole calendar days from a to b, observing both dates
// in b's location. The count is pure date arithmetic, so a DST transition
// inside the span cannot shift it. Negative spans (delivery recorded in the
// future) count as zero days.
func daysBetween(a, b time.Time) int {
	aYear, aMonth, aDay := a.In(b.Location()).Date()
	bYear, bMonth, bDay := b.Date()
	start := time.Date(aYear, aMonth, aDay, 0, 0, 0, 0, time.UTC)
	end := time.Date(bYear, bMonth, bDay, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}
