package eligibility

import (
	"encoding/json"
)

// Category and qualifier values the engine matches on.
const (
	CategoryLimitations = "Limitations"
	QualifierRemaining  = "Remaining"
	QualifierVisits     = "Visits"
	IndicatorYes        = "Yes"

	OthersServiceName  = "Others"
	PlanGeneralService = "Plan General"
)

// Network types a benefit is reported for, in display order.
const (
	InNetwork        = "IN NETWORK"
	OutOfNetwork     = "OUT OF NETWORK"
	OutOfServiceArea = "OUT OF SERVICE AREA"
)

// NetworkTypes is the closed, ordered set of network classes.
var NetworkTypes = []string{InNetwork, OutOfNetwork, OutOfServiceArea}

// Delivery is one entry of a record's HealthCareServiceDeliveries, e.g.
// "2 Visits / 1 Years".
type Delivery struct {
	QuantityQualifier    string `json:"QuantityQualifier,omitempty"`
	TimePeriodQualifier  string `json:"TimePeriodQualifier,omitempty"`
	TotalNumberOfPeriods Number `json:"TotalNumberOfPeriods,omitzero"`
	TotalQuantity        Number `json:"TotalQuantity,omitzero"`
	DeliveryFrequency    string `json:"DeliveryFrequency,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type deliveryWire Delivery

func (d *Delivery) UnmarshalJSON(data []byte) error {
	var w deliveryWire
	extra, err := decodeExtra(data, &w)
	if err != nil {
		return err
	}
	*d = Delivery(w)
	d.Extra = extra
	return nil
}

func (d Delivery) MarshalJSON() ([]byte, error) {
	return encodeExtra(deliveryWire(d), d.Extra)
}

// Record is one eligibility-or-benefit fact. At most one of the value fields
// is meaningful; see ValueOf for the precedence.
type Record struct {
	Category              string `json:"EligibilityOrBenefit,omitempty"`
	Procedure             string `json:"Procedure,omitempty"`
	Network               string `json:"PlanCoverageDescription,omitempty"`
	CoverageLevel         string `json:"CoverageLevel,omitempty"`
	PlanNetworkIndicator  string `json:"PlanNetworkIndicator,omitempty"`
	AuthorizationRequired string `json:"AuthorizationOrCertificationRequired,omitempty"`
	TimePeriodQualifier   string `json:"TimePeriodQualifier,omitempty"`
	QuantityQualifier     string `json:"QuantityQualifier,omitempty"`

	Percent        Number     `json:"Percent,omitzero"`
	MonetaryAmount Number     `json:"MonetaryAmount,omitzero"`
	QuantityAmount Number     `json:"QuantityAmount,omitzero"`
	Quantity       Number     `json:"Quantity,omitzero"`
	InsuranceType  string     `json:"InsuranceType,omitempty"`
	Deliveries     []Delivery `json:"HealthCareServiceDeliveries,omitempty"`

	Messages []string `json:"Message,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type recordWire Record

func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordWire
	extra, err := decodeExtra(data, &w)
	if err != nil {
		return err
	}
	*r = Record(w)
	r.Extra = extra
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	return encodeExtra(recordWire(r), r.Extra)
}

// IsRemainingLimitation reports whether r states how much of a cap is left.
func (r Record) IsRemainingLimitation() bool {
	return r.Category == CategoryLimitations && r.TimePeriodQualifier == QualifierRemaining
}

// Service is a named group of records ("Prophylaxis", "Others", "D0140").
type Service struct {
	Name    string   `json:"ServiceName"`
	Records []Record `json:"EligibilityDetails"`

	Extra map[string]json.RawMessage `json:"-"`
}

type serviceWire Service

func (s *Service) UnmarshalJSON(data []byte) error {
	var w serviceWire
	extra, err := decodeExtra(data, &w)
	if err != nil {
		return err
	}
	*s = Service(w)
	s.Extra = extra
	return nil
}

func (s Service) MarshalJSON() ([]byte, error) {
	return encodeExtra(serviceWire(s), s.Extra)
}

// PlanSummary is the PlanCoverageSummary block of a response.
type PlanSummary struct {
	Status        string `json:"Status,omitempty"`
	EffectiveDate string `json:"EffectiveDate,omitempty"`
	ExpiryDate    string `json:"ExpiryDate,omitempty"`
	PlanName      string `json:"PlanName,omitempty"`
	GroupName     string `json:"GroupName,omitempty"`
	GroupNumber   string `json:"GroupNumber,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type planSummaryWire PlanSummary

func (p *PlanSummary) UnmarshalJSON(data []byte) error {
	var w planSummaryWire
	extra, err := decodeExtra(data, &w)
	if err != nil {
		return err
	}
	*p = PlanSummary(w)
	p.Extra = extra
	return nil
}

func (p PlanSummary) MarshalJSON() ([]byte, error) {
	return encodeExtra(planSummaryWire(p), p.Extra)
}

// Subscriber is the subset of DemographicInfo.Subscriber shown with a plan.
type Subscriber struct {
	FirstName string `json:"Firstname"`
	LastName  string `json:"Lastname_R"`
	DOB       string `json:"DOB_R"`
	Gender    string `json:"Gender_R"`
	State     string `json:"State"`
	Zip       string `json:"Zip"`
}

const serviceDetailsKey = "ServiceDetails"

// Response is the root eligibility document. Services is nil when the
// payload has no usable ServiceDetails array; the raw value then stays in
// Extra and is written back untouched.
type Response struct {
	APIResponseCode    string          `json:"APIResponseCode,omitempty"`
	APIResponseMessage string          `json:"APIResponseMessage,omitempty"`
	PayerName          string          `json:"PayerName,omitempty"`
	PayerCode          string          `json:"PverifyPayerCode,omitempty"`
	PlanSummary        *PlanSummary    `json:"PlanCoverageSummary,omitempty"`
	Demographics       json.RawMessage `json:"DemographicInfo,omitempty"`
	DentalInfo         string          `json:"DentalInfo,omitempty"`

	Services []Service                  `json:"-"`
	Extra    map[string]json.RawMessage `json:"-"`
}

type responseWire Response

func (r *Response) UnmarshalJSON(data []byte) error {
	var w responseWire
	extra, err := decodeExtra(data, &w)
	if err != nil {
		return err
	}
	*r = Response(w)
	if raw, ok := extra[serviceDetailsKey]; ok {
		var services []Service
		if err := json.Unmarshal(raw, &services); err == nil && services != nil {
			r.Services = services
			delete(extra, serviceDetailsKey)
		}
	}
	if len(extra) == 0 {
		extra = nil
	}
	r.Extra = extra
	return nil
}

func (r Response) MarshalJSON() ([]byte, error) {
	extra := r.Extra
	if r.Services != nil {
		raw, err := json.Marshal(r.Services)
		if err != nil {
			return nil, err
		}
		extra = cloneExtra(extra)
		if extra == nil {
			extra = make(map[string]json.RawMessage, 1)
		}
		extra[serviceDetailsKey] = raw
	}
	return encodeExtra(responseWire(r), extra)
}

// Processed reports whether the payer answered the check with data.
func (r *Response) Processed() bool {
	return r != nil && r.APIResponseMessage == "Processed"
}

// ServiceIndex returns the position of the service named name, or -1.
func (r *Response) ServiceIndex(name string) int {
	if r == nil {
		return -1
	}
	for i := range r.Services {
		if r.Services[i].Name == name {
			return i
		}
	}
	return -1
}

// Subscriber decodes DemographicInfo.Subscriber; ok is false when absent.
func (r *Response) Subscriber() (Subscriber, bool) {
	var demo struct {
		Subscriber *Subscriber `json:"Subscriber"`
	}
	if r == nil || len(r.Demographics) == 0 {
		return Subscriber{}, false
	}
	if err := json.Unmarshal(r.Demographics, &demo); err != nil || demo.Subscriber == nil {
		return Subscriber{}, false
	}
	return *demo.Subscriber, true
}
