package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hmprotos/dentalverify/internal/eligibility"
	"github.com/hmprotos/dentalverify/internal/platform/db"
	"github.com/hmprotos/dentalverify/internal/platform/pverify"
	"github.com/hmprotos/dentalverify/pkg/pagination"
)

//go:generate mockgen -source=service.go -destination=mock_checker_test.go -package=verification
//go:generate mockgen -source=repo.go -destination=mock_repo_test.go -package=verification

// EligibilityChecker runs an eligibility check against the payer.
type EligibilityChecker interface {
	Check(ctx context.Context, form *pverify.Form) (*eligibility.Response, error)
}

type Service struct {
	repo    Repository
	checker EligibilityChecker
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService wires the store and the upstream checker. A nil checker leaves
// only cached checks available.
func NewService(repo Repository, checker EligibilityChecker, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		checker: checker,
		logger:  logger.With().Str("component", "verification").Logger(),
		now:     time.Now,
	}
}

// CheckResult is a stored response and whether it came from the cache.
type CheckResult struct {
	Response *StoredResponse `json:"response"`
	Cached   bool            `json:"cached"`
}

// Check returns the newest processed response for the same patient, payer
// and member, or runs a new check, flattens it and stores it.
func (s *Service) Check(ctx context.Context, form *pverify.Form) (*CheckResult, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	patientID := form.PatientKey()
	log := s.logger.With().
		Str("office_id", db.OfficeFromContext(ctx)).
		Str("patient_id", patientID).
		Str("payer_code", form.PayerCode).
		Logger()

	cached, err := s.repo.FindCached(ctx, patientID, form.PayerCode, form.SubscriberMemberID)
	switch {
	case err == nil:
		log.Info().Str("response_id", cached.ResponseID).Msg("eligibility cache hit")
		return &CheckResult{Response: cached, Cached: true}, nil
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("looking up cached response: %w", err)
	}
	log.Debug().Msg("eligibility cache miss")

	if s.checker == nil {
		return nil, ErrNoUpstream
	}

	start := s.now()
	resp, err := s.checker.Check(ctx, form)
	if err != nil {
		log.Error().Err(err).Msg("eligibility check failed")
		return nil, fmt.Errorf("eligibility check: %w", err)
	}
	log.Info().
		Dur("latency", s.now().Sub(start)).
		Str("api_response", resp.APIResponseMessage).
		Msg("eligibility check completed")

	flat := eligibility.Flatten(resp)
	stored := &StoredResponse{
		ResponseID: newResponseID(),
		PatientID:  patientID,
		PayerCode:  form.PayerCode,
		MemberID:   form.SubscriberMemberID,
		Processed:  flat.Processed(),
		Document:   flat,
	}
	if err := s.repo.Save(ctx, stored); err != nil {
		return nil, fmt.Errorf("storing response: %w", err)
	}
	log.Info().
		Str("response_id", stored.ResponseID).
		Int("services", len(flat.Services)).
		Bool("processed", stored.Processed).
		Msg("eligibility response flattened and stored")

	return &CheckResult{Response: stored}, nil
}

// newResponseID returns a time-ordered id so key order follows check order.
func newResponseID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *Service) Get(ctx context.Context, patientID, responseID string) (*StoredResponse, error) {
	if err := validID(patientID); err != nil {
		return nil, err
	}
	if err := validID(responseID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, patientID, responseID)
}

func (s *Service) List(ctx context.Context, patientID string, p pagination.Params) ([]*StoredResponse, int, error) {
	if err := validID(patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, p)
}

// ActivePlan picks the patient's response whose plan is active today; the
// last qualifying response wins.
func (s *Service) ActivePlan(ctx context.Context, patientID string) (*ActivePlan, error) {
	items, _, err := s.List(ctx, patientID, pagination.Params{})
	if err != nil {
		return nil, err
	}
	docs := make([]*eligibility.Response, len(items))
	for i, it := range items {
		docs[i] = it.Document
	}
	idx := eligibility.SelectActive(docs, s.now())
	if idx < 0 {
		return nil, ErrNotFound
	}
	chosen := items[idx]
	return &ActivePlan{
		Response: chosen,
		Plan:     chosen.Document.PlanSummary,
		Usage:    eligibility.Usages(chosen.Document),
	}, nil
}

func (s *Service) processed(ctx context.Context, patientID, responseID string) (*StoredResponse, error) {
	stored, err := s.Get(ctx, patientID, responseID)
	if err != nil {
		return nil, err
	}
	if !stored.Document.Processed() {
		return nil, ErrNotProcessed
	}
	return stored, nil
}

// Projection builds the display rows of every service of a stored response.
func (s *Service) Projection(ctx context.Context, patientID, responseID string, mode eligibility.SortingMode) ([]eligibility.Projection, error) {
	stored, err := s.processed(ctx, patientID, responseID)
	if err != nil {
		return nil, err
	}
	return eligibility.ProjectResponse(stored.Document, mode), nil
}

// Usage summarises the visit limits of a stored response.
func (s *Service) Usage(ctx context.Context, patientID, responseID string) ([]eligibility.BenefitUsage, error) {
	stored, err := s.processed(ctx, patientID, responseID)
	if err != nil {
		return nil, err
	}
	return eligibility.Usages(stored.Document), nil
}

// PatchUsage applies a remaining-usage edit to one service and writes the
// service's records back into the stored document.
func (s *Service) PatchUsage(ctx context.Context, patientID, responseID, serviceName string, patch UsagePatch) (*StoredResponse, error) {
	if err := validID(patientID); err != nil {
		return nil, err
	}
	if err := validID(responseID); err != nil {
		return nil, err
	}

	apply, shape, err := patchFunc(serviceName, patch)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateRecords(ctx, patientID, responseID, func(doc *eligibility.Response) (int, []eligibility.Record, error) {
		if !doc.Processed() {
			return 0, nil, ErrNotProcessed
		}
		records, err := apply(doc)
		if err != nil {
			return 0, nil, err
		}
		return doc.ServiceIndex(serviceName), records, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("office_id", db.OfficeFromContext(ctx)).
		Str("patient_id", patientID).
		Str("response_id", responseID).
		Str("service", serviceName).
		Str("shape", shape).
		Msg("remaining usage patched")
	return updated, nil
}

func patchFunc(serviceName string, p UsagePatch) (func(*eligibility.Response) ([]eligibility.Record, error), string, error) {
	switch {
	case p.Network != "" && p.Amount != nil:
		network, amount := eligibility.NetworkType(p.Network), *p.Amount
		return func(doc *eligibility.Response) ([]eligibility.Record, error) {
			return eligibility.PatchSingleNetwork(doc, serviceName, network, amount)
		}, "single_network", nil
	case len(p.Amounts) > 0:
		return func(doc *eligibility.Response) ([]eligibility.Record, error) {
			return eligibility.PatchAllNetworks(doc, serviceName, p.Amounts)
		}, "per_network", nil
	case len(p.Cells) > 0:
		amounts := eligibility.AmountsFromBenefitRow(eligibility.BenefitRow{Networks: p.Cells})
		if len(amounts) == 0 {
			return nil, "", ErrInvalidPatch
		}
		return func(doc *eligibility.Response) ([]eligibility.Record, error) {
			return eligibility.PatchAllNetworks(doc, serviceName, amounts)
		}, "benefit_row", nil
	case p.All && p.Amount != nil:
		amount := *p.Amount
		return func(doc *eligibility.Response) ([]eligibility.Record, error) {
			return eligibility.PatchAllNetworksTo(doc, serviceName, amount)
		}, "all_networks", nil
	}
	return nil, "", ErrInvalidPatch
}

// ErrInvalidID is returned for patient or response ids that cannot be
// used as a storage path segment.
var ErrInvalidID = errors.New("invalid identifier")

func validID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "/\x00") || len(id) > 200 {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
