package eligibility

import (
	"time"
)

// PlanDateLayout is the payer's date format, e.g. "01/31/2024".
const PlanDateLayout = "01/02/2006"

// StatusActive is the plan status of a coverage in force.
const StatusActive = "Active"

// ActiveOn reports whether the plan is active and its coverage window, when
// both dates parse, contains t. Dates are whole days: the expiry day counts.
func (p *PlanSummary) ActiveOn(t time.Time) bool {
	if p == nil || p.Status != StatusActive {
		return false
	}
	start, errStart := time.ParseInLocation(PlanDateLayout, p.EffectiveDate, t.Location())
	end, errEnd := time.ParseInLocation(PlanDateLayout, p.ExpiryDate, t.Location())
	if errStart != nil || errEnd != nil {
		return true
	}
	return !t.Before(start) && t.Before(end.AddDate(0, 0, 1))
}

// SelectActive returns the index of the response whose plan is active on
// now, or -1. The last qualifying response wins.
func SelectActive(docs []*Response, now time.Time) int {
	found := -1
	for i, doc := range docs {
		if doc != nil && doc.PlanSummary.ActiveOn(now) {
			found = i
		}
	}
	return found
}
