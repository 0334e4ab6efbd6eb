package eligibility

import "strings"

// RemainingVisitsKey is the benefit key of the one row users may edit.
const RemainingVisitsKey = "Limitations (Remaining Visits)"

// BuildKey labels a record for grouping and display. The time period
// qualifier is appended in parentheses, followed by the quantity qualifier
// when the record also carries a quantity amount.
func BuildKey(r Record, label string) string {
	if r.TimePeriodQualifier == "" {
		return label
	}
	qualifiers := []string{r.TimePeriodQualifier}
	if r.QuantityAmount.Valid() && r.QuantityQualifier != "" {
		qualifiers = append(qualifiers, r.QuantityQualifier)
	}
	return label + " (" + strings.Join(qualifiers, " ") + ")"
}

// BenefitKey is BuildKey labelled with the record's own category.
func BenefitKey(r Record) string {
	return BuildKey(r, r.Category)
}

// NetworkKey turns "OUT OF NETWORK" into "out_of_network".
func NetworkKey(network string) string {
	return strings.ReplaceAll(strings.ToLower(network), " ", "_")
}

// NetworkType maps a grid key or a differently cased network type back to
// one of NetworkTypes. Anything else is returned unchanged.
func NetworkType(network string) string {
	key := NetworkKey(strings.TrimSpace(network))
	for _, nt := range NetworkTypes {
		if NetworkKey(nt) == key {
			return nt
		}
	}
	return network
}
