package eligibility

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// SortingMode selects the tabular layout of a service's records.
type SortingMode int

const (
	ByNetwork SortingMode = 1
	ByBenefit SortingMode = 2
)

// ErrUnknownMode is returned by ParseSortingMode for an unrecognised name.
var ErrUnknownMode = errors.New("unknown sorting mode")

// ParseSortingMode accepts "benefit" or "network" (with or without a "by_"
// prefix) or the numeric form. An empty string means by benefit.
func ParseSortingMode(s string) (SortingMode, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "by_") {
	case "", "benefit", "2":
		return ByBenefit, nil
	case "network", "1":
		return ByNetwork, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func (m SortingMode) String() string {
	switch m {
	case ByBenefit:
		return "benefit"
	case ByNetwork:
		return "network"
	}
	return fmt.Sprintf("SortingMode(%d)", int(m))
}

func (m SortingMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *SortingMode) UnmarshalText(b []byte) error {
	v, err := ParseSortingMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// defaultRemainingVisits is assumed when no limit record states a quantity.
const defaultRemainingVisits = 2

// BenefitRow is one row of the by-benefit grid: a benefit key with one cell
// per network. Network cells are keyed by NetworkKey and encoded inline.
type BenefitRow struct {
	Benefit       string            `json:"benefit"`
	Editable      bool              `json:"editable"`
	EditableCells []string          `json:"editable_cells"`
	Networks      map[string]string `json:"-"`
	Coverage      string            `json:"coverage"`
	Indicator     string            `json:"indicator"`
	Authorization string            `json:"authorization"`
	Messages      []string          `json:"messages"`
	Raw           map[string]Record `json:"raw"`
}

type benefitRowWire BenefitRow

func (r BenefitRow) MarshalJSON() ([]byte, error) {
	cells := make(map[string]json.RawMessage, len(r.Networks))
	for k, v := range r.Networks {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		cells[k] = b
	}
	return encodeExtra(benefitRowWire(r), cells)
}

// NetworkRow is one row of the by-network grid: one record under one network.
type NetworkRow struct {
	Network       string   `json:"network"`
	Benefit       string   `json:"benefit"`
	Editable      bool     `json:"editable"`
	EditableCells []string `json:"editable_cells"`
	Value         string   `json:"value"`
	Coverage      string   `json:"coverage"`
	Indicator     string   `json:"indicator"`
	Authorization string   `json:"authorization"`
	Messages      []string `json:"messages"`
	Raw           Record   `json:"raw"`
}

// Projection is a service's records in one layout.
type Projection struct {
	Service string       `json:"service"`
	Mode    SortingMode  `json:"mode"`
	Benefit []BenefitRow `json:"by_benefit,omitempty"`
	Network []NetworkRow `json:"by_network,omitempty"`
}

// Rows returns the projection rows as a value for generic consumers.
func (p Projection) Rows() any {
	if p.Mode == ByNetwork {
		return p.Network
	}
	return p.Benefit
}

// Len reports the number of rows in the active layout.
func (p Projection) Len() int {
	if p.Mode == ByNetwork {
		return len(p.Network)
	}
	return len(p.Benefit)
}

// Project lays out a service's records in the given mode. Any mode other
// than ByNetwork is treated as ByBenefit.
func Project(serviceName string, records []Record, mode SortingMode) Projection {
	if mode == ByNetwork {
		return Projection{Service: serviceName, Mode: ByNetwork, Network: ProjectByNetwork(serviceName, records)}
	}
	return Projection{Service: serviceName, Mode: ByBenefit, Benefit: ProjectByBenefit(serviceName, records)}
}

// ProjectResponse projects every service of resp in order.
func ProjectResponse(resp *Response, mode SortingMode) []Projection {
	if resp == nil {
		return []Projection{}
	}
	out := make([]Projection, 0, len(resp.Services))
	for _, svc := range resp.Services {
		out = append(out, Project(svc.Name, svc.Records, mode))
	}
	return out
}

// ProjectByBenefit groups records by benefit key, one row per key. Within
// a row the descriptive columns come from the last record of the group, and
// a record without a network blanks every network cell.
func ProjectByBenefit(serviceName string, records []Record) []BenefitRow {
	records = withRemainingVisits(serviceName, records, ByBenefit)

	groups := newOrderedGroups[Record]()
	for _, r := range records {
		groups.add(BenefitKey(r), r)
	}

	rows := make([]BenefitRow, 0, groups.len())
	groups.each(func(key string, group []Record) {
		row := BenefitRow{
			Benefit:       key,
			Editable:      key == RemainingVisitsKey,
			EditableCells: networkCells(),
			Networks:      make(map[string]string, len(NetworkTypes)),
			Raw:           make(map[string]Record, len(NetworkTypes)),
		}
		for _, r := range group {
			row.Coverage = r.CoverageLevel
			row.Indicator = r.PlanNetworkIndicator
			row.Authorization = r.AuthorizationRequired
			row.Messages = r.Messages
			if r.Network == "" {
				for _, nt := range NetworkTypes {
					nk := NetworkKey(nt)
					row.Networks[nk] = ""
					delete(row.Raw, nk)
				}
				continue
			}
			nk := NetworkKey(r.Network)
			row.Networks[nk] = ExtractValue(r)
			row.Raw[nk] = r
		}
		rows = append(rows, row)
	})
	return rows
}

// ProjectByNetwork emits one row per (network, record) pair. Records without
// a network appear under every network type.
func ProjectByNetwork(serviceName string, records []Record) []NetworkRow {
	records = withRemainingVisits(serviceName, records, ByNetwork)

	groups := newOrderedGroups[Record]()
	for _, r := range records {
		if r.Network != "" {
			groups.add(r.Network, r)
			continue
		}
		for _, nt := range NetworkTypes {
			groups.add(nt, r)
		}
	}

	rows := make([]NetworkRow, 0, len(records))
	groups.each(func(network string, group []Record) {
		for _, r := range group {
			benefit := BenefitKey(r)
			rows = append(rows, NetworkRow{
				Network:       network,
				Benefit:       benefit,
				Editable:      benefit == RemainingVisitsKey,
				EditableCells: []string{"value"},
				Value:         ExtractValue(r),
				Coverage:      r.CoverageLevel,
				Indicator:     r.PlanNetworkIndicator,
				Authorization: r.AuthorizationRequired,
				Messages:      r.Messages,
				Raw:           r,
			})
		}
	})
	return rows
}

func networkCells() []string {
	cells := make([]string, len(NetworkTypes))
	for i, nt := range NetworkTypes {
		cells[i] = NetworkKey(nt)
	}
	return cells
}

// withRemainingVisits returns records plus a synthesized remaining-visits
// limitation for each network that lacks one, when any record talks about
// visits. records itself is never appended to.
func withRemainingVisits(serviceName string, records []Record, mode SortingMode) []Record {
	if !slices.ContainsFunc(records, mentionsVisit) {
		return records
	}
	missing := missingRemainingNetworks(records, mode)
	if len(missing) == 0 {
		return records
	}
	amount := visitLimit(records)
	out := make([]Record, 0, len(records)+len(missing))
	out = append(out, records...)
	for _, nt := range missing {
		out = append(out, remainingRecord(serviceName, nt, Num(amount), QualifierVisits))
	}
	return out
}

func missingRemainingNetworks(records []Record, mode SortingMode) []string {
	if mode == ByBenefit {
		if slices.ContainsFunc(records, func(r Record) bool { return BenefitKey(r) == RemainingVisitsKey }) {
			return nil
		}
		return NetworkTypes
	}
	var missing []string
	for _, nt := range NetworkTypes {
		found := slices.ContainsFunc(records, func(r Record) bool {
			return r.IsRemainingLimitation() && (r.Network == nt || r.Network == "")
		})
		if !found {
			missing = append(missing, nt)
		}
	}
	return missing
}

// visitLimit is the first stated quantity of a limitation's first delivery.
func visitLimit(records []Record) float64 {
	for _, r := range records {
		if r.Category != CategoryLimitations || len(r.Deliveries) == 0 {
			continue
		}
		if q, ok := r.Deliveries[0].TotalQuantity.Float(); ok {
			return q
		}
	}
	return defaultRemainingVisits
}

// mentionsVisit checks the text fields of a record for "visit" in any case.
func mentionsVisit(r Record) bool {
	fields := []string{
		r.Category, r.Procedure, r.CoverageLevel, r.QuantityQualifier,
		r.TimePeriodQualifier, r.InsuranceType,
	}
	fields = append(fields, r.Messages...)
	for _, d := range r.Deliveries {
		fields = append(fields, d.QuantityQualifier, d.TimePeriodQualifier, d.DeliveryFrequency)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), "visit") {
			return true
		}
	}
	return false
}

func remainingRecord(serviceName, network string, amount Number, qualifier string) Record {
	return Record{
		Category:             CategoryLimitations,
		Procedure:            serviceName,
		Network:              network,
		PlanNetworkIndicator: IndicatorYes,
		TimePeriodQualifier:  QualifierRemaining,
		QuantityQualifier:    qualifier,
		QuantityAmount:       amount,
	}
}
