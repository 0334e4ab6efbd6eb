package verification

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hmprotos/dentalverify/internal/eligibility"
)

var (
	ErrNotFound     = errors.New("eligibility response not found")
	ErrNotProcessed = errors.New("eligibility response was not processed by the payer")
	// ErrNoUpstream is returned by Check when no eligibility API is configured.
	ErrNoUpstream   = errors.New("eligibility API not configured")
	ErrInvalidPatch = errors.New("usage patch needs a network and amount, per-network amounts, or an amount for all networks")
)

// StoredResponse is one eligibility check kept for a patient of an office.
type StoredResponse struct {
	ID         uuid.UUID             `json:"id"`
	OfficeID   string                `json:"office_id"`
	PatientID  string                `json:"patient_id"`
	ResponseID string                `json:"response_id"`
	PayerCode  string                `json:"payer_code"`
	MemberID   string                `json:"member_id"`
	Processed  bool                  `json:"processed"`
	Document   *eligibility.Response `json:"document"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// UsagePatch is an edit of remaining usage for one service. Exactly one
// shape is used: Network with Amount, Amounts, Cells, or All with Amount.
type UsagePatch struct {
	Network string                     `json:"network,omitempty"`
	Amount  *float64                   `json:"amount,omitempty"`
	All     bool                       `json:"all,omitempty"`
	Amounts eligibility.NetworkAmounts `json:"amounts,omitempty"`
	// Cells are the per-network cells of an edited by-benefit row, as typed.
	Cells map[string]string `json:"cells,omitempty"`
}

// ActivePlan is the response whose plan covers a given day.
type ActivePlan struct {
	Response *StoredResponse            `json:"response"`
	Plan     *eligibility.PlanSummary   `json:"plan"`
	Usage    []eligibility.BenefitUsage `json:"usage"`
}
