package eligibility

import "strings"

// UsageInfo describes how much of one network's limit has been used.
type UsageInfo struct {
	Max       float64 `json:"max"`
	Remaining float64 `json:"remaining"`
	Used      float64 `json:"used"`
	Label     string  `json:"label"`
}

// BenefitUsage is the usage of one service's limits, keyed by network.
type BenefitUsage struct {
	Service  string               `json:"service"`
	Networks map[string]UsageInfo `json:"networks"`
}

// Info returns the usage for network; the zero value when it has no limit.
func (u BenefitUsage) Info(network string) UsageInfo {
	return u.Networks[network]
}

// Usages lists the services whose limitations carry service deliveries,
// in response order. For each network the first limit delivery sets the
// maximum and label, and the first remaining record sets what is left. A
// network with no remaining record has used nothing.
func Usages(resp *Response) []BenefitUsage {
	out := []BenefitUsage{}
	if resp == nil {
		return out
	}
	for _, svc := range resp.Services {
		limits := map[string]Delivery{}
		remaining := map[string]float64{}
		var order []string
		for _, r := range svc.Records {
			if r.Category != CategoryLimitations {
				continue
			}
			if r.TimePeriodQualifier == QualifierRemaining {
				if _, ok := remaining[r.Network]; !ok {
					if v, ok := r.QuantityAmount.Float(); ok {
						remaining[r.Network] = v
					}
				}
				continue
			}
			if len(r.Deliveries) == 0 {
				continue
			}
			if _, ok := limits[r.Network]; !ok {
				limits[r.Network] = r.Deliveries[0]
				order = append(order, r.Network)
			}
		}
		if len(order) == 0 {
			continue
		}
		u := BenefitUsage{Service: svc.Name, Networks: make(map[string]UsageInfo, len(order))}
		for _, network := range order {
			d := limits[network]
			maxQty := d.TotalQuantity.Or(0)
			left, ok := remaining[network]
			if !ok {
				left = maxQty
			}
			u.Networks[network] = UsageInfo{
				Max:       maxQty,
				Remaining: left,
				Used:      maxQty - left,
				Label:     usageLabel(d),
			}
		}
		out = append(out, u)
	}
	return out
}

// usageLabel renders "Visits / 1 Years".
func usageLabel(d Delivery) string {
	period := strings.TrimSpace(d.TotalNumberOfPeriods.String() + " " + d.TimePeriodQualifier)
	return strings.TrimSpace(d.QuantityQualifier + " / " + period)
}
