package eligibility

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrServiceNotFound is returned when a patch names a service the response
// does not have.
var ErrServiceNotFound = errors.New("service not found")

// NetworkAmounts maps a network to a new remaining amount. Keys may be the
// network type ("IN NETWORK") or its grid key ("in_network").
type NetworkAmounts map[string]float64

func (a NetworkAmounts) lookup(network string) (float64, bool) {
	if v, ok := a[network]; ok {
		return v, true
	}
	v, ok := a[NetworkKey(network)]
	return v, ok
}

// AmountsFromBenefitRow reads the numeric network cells of an edited
// by-benefit row. Cells that are blank or not numbers are skipped.
func AmountsFromBenefitRow(row BenefitRow) NetworkAmounts {
	out := make(NetworkAmounts, len(NetworkTypes))
	for _, nt := range NetworkTypes {
		cell, ok := row.Networks[NetworkKey(nt)]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			continue
		}
		out[nt] = v
	}
	return out
}

// PatchSingleNetwork sets the remaining usage of serviceName for one network
// and returns the service's full updated record list. The amount is clamped
// to [0, limit] when the network has a limit record with a positive total
// quantity. A missing remaining record is appended. resp is not modified.
func PatchSingleNetwork(resp *Response, serviceName, network string, amount float64) ([]Record, error) {
	records, err := serviceRecords(resp, serviceName)
	if err != nil {
		return nil, err
	}
	return patchNetwork(records, serviceName, network, amount), nil
}

// PatchAllNetworks applies a per-network amount to each network type in
// order. Network types absent from amounts are left alone.
func PatchAllNetworks(resp *Response, serviceName string, amounts NetworkAmounts) ([]Record, error) {
	records, err := serviceRecords(resp, serviceName)
	if err != nil {
		return nil, err
	}
	for _, nt := range NetworkTypes {
		amount, ok := amounts.lookup(nt)
		if !ok {
			continue
		}
		records = patchNetwork(records, serviceName, nt, amount)
	}
	return records, nil
}

// PatchAllNetworksTo applies the same amount to every network type.
func PatchAllNetworksTo(resp *Response, serviceName string, amount float64) ([]Record, error) {
	records, err := serviceRecords(resp, serviceName)
	if err != nil {
		return nil, err
	}
	for _, nt := range NetworkTypes {
		records = patchNetwork(records, serviceName, nt, amount)
	}
	return records, nil
}

func serviceRecords(resp *Response, serviceName string) ([]Record, error) {
	idx := resp.ServiceIndex(serviceName)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrServiceNotFound, serviceName)
	}
	return slices.Clone(resp.Services[idx].Records), nil
}

// patchNetwork updates records in place, appending when needed.
func patchNetwork(records []Record, serviceName, network string, amount float64) []Record {
	remaining, limit := -1, -1
	for i, r := range records {
		if r.Category != CategoryLimitations || r.Network != network {
			continue
		}
		if r.TimePeriodQualifier == QualifierRemaining {
			if remaining < 0 {
				remaining = i
			}
		} else if limit < 0 {
			limit = i
		}
	}

	var maxQty float64
	var qualifier string
	if limit >= 0 && len(records[limit].Deliveries) > 0 {
		d := records[limit].Deliveries[0]
		maxQty = d.TotalQuantity.Or(0)
		qualifier = d.QuantityQualifier
	}
	final := amount
	if maxQty > 0 {
		final = min(max(amount, 0), maxQty)
	}

	if remaining >= 0 {
		records[remaining].QuantityAmount = Num(final)
		records[remaining].QuantityQualifier = qualifier
		return records
	}
	return append(records, remainingRecord(serviceName, network, Num(final), qualifier))
}

// WithRecords returns a copy of resp whose service serviceName holds records.
func WithRecords(resp *Response, serviceName string, records []Record) (*Response, error) {
	idx := resp.ServiceIndex(serviceName)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrServiceNotFound, serviceName)
	}
	out := *resp
	out.Services = slices.Clone(resp.Services)
	out.Services[idx].Records = records
	return &out, nil
}
