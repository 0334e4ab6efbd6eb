package pverify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	VerificationSelf      = "Self"
	VerificationDependent = "Dependent"

	// practiceTypeDental is the upstream practice type code for dentistry.
	practiceTypeDental = "86"
	dateLayout         = "01/02/2006"
)

var validate = validator.New()

// ErrInvalidForm wraps every form validation failure.
var ErrInvalidForm = errors.New("invalid verification form")

// Form is the eligibility verification form filled in at the front desk.
type Form struct {
	PayerCode        string `json:"payerCode" validate:"required,max=20"`
	PayerName        string `json:"payerName" validate:"required,max=200"`
	VerificationType string `json:"verificationType" validate:"required,oneof=Self Dependent"`

	ProviderName     string `json:"providerName" validate:"required,max=200"`
	ProviderNPI      string `json:"providerNpi" validate:"required,numeric,len=10"`
	ProviderGroupNPI string `json:"providerGroupNpi,omitempty" validate:"omitempty,numeric,len=10"`
	ProviderTaxID    string `json:"providerTaxId" validate:"required,max=20"`

	SubscriberMemberID   string `json:"subscriberMemberId" validate:"required,max=80"`
	SubscriberFirstName  string `json:"subscriberFirstName" validate:"required,max=100"`
	SubscriberMiddleName string `json:"subscriberMiddleName,omitempty" validate:"max=100"`
	SubscriberLastName   string `json:"subscriberLastName" validate:"required,max=100"`
	SubscriberDOB        string `json:"subscriberDob" validate:"required,datetime=01/02/2006"`
	SubscriberGender     string `json:"subscriberGender,omitempty" validate:"omitempty,oneof=M F U"`
	SubscriberSuffix     string `json:"subscriberSuffix,omitempty" validate:"max=10"`
	SubscriberSSN        string `json:"subscriberSsn,omitempty" validate:"omitempty,numeric,len=9"`
	SubscriberMedicareID string `json:"subscriberMedicareId,omitempty" validate:"max=80"`
	SubscriberMedicaidID string `json:"subscriberMedicaidId,omitempty" validate:"max=80"`

	PatientFirstName string `json:"patientFirstName,omitempty" validate:"required_if=VerificationType Dependent,max=100"`
	PatientLastName  string `json:"patientLastName,omitempty" validate:"required_if=VerificationType Dependent,max=100"`
	PatientDOB       string `json:"patientDob,omitempty" validate:"required_if=VerificationType Dependent"`

	FromDate    string `json:"fromDate" validate:"required,datetime=01/02/2006"`
	ToDate      string `json:"toDate" validate:"required,datetime=01/02/2006"`
	Location    string `json:"location,omitempty" validate:"max=100"`
	ReferenceID string `json:"referenceId,omitempty" validate:"max=100"`
}

// Validate checks the form fields against their tags.
func (f *Form) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	if f.PatientDOB != "" {
		if _, err := time.Parse(dateLayout, f.PatientDOB); err != nil {
			return fmt.Errorf("%w: patientDob must be MM/DD/YYYY", ErrInvalidForm)
		}
	}

	from, _ := time.Parse(dateLayout, f.FromDate)
	to, _ := time.Parse(dateLayout, f.ToDate)
	if to.Before(from) {
		return fmt.Errorf("%w: toDate is before fromDate", ErrInvalidForm)
	}
	return nil
}

// PatientKey identifies the patient a response is stored under:
// lower("{memberId}_{first}_{last}").
func (f *Form) PatientKey() string {
	return strings.ToLower(fmt.Sprintf("%s_%s_%s",
		strings.TrimSpace(f.SubscriberMemberID),
		strings.TrimSpace(f.SubscriberFirstName),
		strings.TrimSpace(f.SubscriberLastName)))
}

// Request is the DentalEligibilitySummary request body.
type Request struct {
	ClientUserID        int        `json:"ClientUserID"`
	PayerCode           string     `json:"PayerCode"`
	PayerName           string     `json:"PayerName"`
	Provider            Provider   `json:"Provider"`
	Subscriber          Subscriber `json:"Subscriber"`
	Dependent           *Dependent `json:"Dependent"`
	IsSubscriberPatient string     `json:"isSubscriberPatient"`
	DOSStartDate        string     `json:"doS_StartDate"`
	DOSEndDate          string     `json:"doS_EndDate"`
	PracticeTypeCode    string     `json:"PracticeTypeCode"`
	ReferenceID         string     `json:"ReferenceId"`
	Location            string     `json:"Location"`
	IncludeTextResponse bool       `json:"IncludeTextResponse"`
	IncludeHTMLResponse bool       `json:"IncludeHtmlResponse"`
}

type Provider struct {
	FullName   string `json:"FullName"`
	FirstName  string `json:"FirstName"`
	MiddleName string `json:"MiddleName"`
	LastName   string `json:"LastName"`
	NPI        string `json:"NPI"`
	TaxID      string `json:"TaxId"`
}

type Subscriber struct {
	FirstName  *string `json:"FirstName"`
	MiddleName *string `json:"MiddleName"`
	LastName   *string `json:"LastName"`
	DOB        *string `json:"DOB"`
	Gender     *string `json:"Gender"`
	Suffix     *string `json:"Suffix"`
	SSN        *string `json:"SSN"`
	MemberID   string  `json:"MemberID"`
	MedicareID *string `json:"MedicareId"`
	MedicaidID *string `json:"MedicaidId"`
}

type Dependent struct {
	Patient DependentPatient `json:"Patient"`
}

type DependentPatient struct {
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	DOB       string `json:"DOB"`
}

// BuildRequest maps a form onto the upstream request body. Empty optional
// subscriber fields are sent as null.
func BuildRequest(f *Form) Request {
	req := Request{
		PayerCode: f.PayerCode,
		PayerName: f.PayerName,
		Provider: Provider{
			FullName: f.ProviderName,
			LastName: f.ProviderName,
			NPI:      f.ProviderNPI,
			TaxID:    f.ProviderTaxID,
		},
		Subscriber: Subscriber{
			FirstName:  nullable(f.SubscriberFirstName),
			MiddleName: nullable(f.SubscriberMiddleName),
			LastName:   nullable(f.SubscriberLastName),
			DOB:        nullable(f.SubscriberDOB),
			Gender:     nullable(f.SubscriberGender),
			Suffix:     nullable(f.SubscriberSuffix),
			SSN:        nullable(f.SubscriberSSN),
			MemberID:   f.SubscriberMemberID,
			MedicareID: nullable(f.SubscriberMedicareID),
			MedicaidID: nullable(f.SubscriberMedicaidID),
		},
		IsSubscriberPatient: "False",
		DOSStartDate:        f.FromDate,
		DOSEndDate:          f.ToDate,
		PracticeTypeCode:    practiceTypeDental,
		ReferenceID:         f.ReferenceID,
		Location:            f.Location,
		IncludeTextResponse: true,
		IncludeHTMLResponse: true,
	}
	if f.VerificationType == VerificationSelf {
		req.IsSubscriberPatient = "True"
	}
	if f.VerificationType == VerificationDependent {
		req.Dependent = &Dependent{Patient: DependentPatient{
			FirstName: f.PatientFirstName,
			LastName:  f.PatientLastName,
			DOB:       f.PatientDOB,
		}}
	}
	return req
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
