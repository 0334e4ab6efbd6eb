package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/hmprotos/dentalverify/internal/eligibility"
	"github.com/hmprotos/dentalverify/internal/platform/pverify"
	"github.com/hmprotos/dentalverify/pkg/pagination"
)

func newTestService(t *testing.T, repo Repository, checker EligibilityChecker) *Service {
	t.Helper()
	svc := NewService(repo, checker, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestService_Check(t *testing.T) {
	testCases := []struct {
		name          string
		seed          []*StoredResponse
		checkerResp   *eligibility.Response
		checkerErr    error
		expectCall    bool
		expectCached  bool
		expectedError error
	}{
		{
			name:        "miss_runs_check_and_flattens",
			checkerResp: sampleResponse(),
			expectCall:  true,
		},
		{
			name:         "hit_skips_upstream",
			seed:         []*StoredResponse{storedFor("w04277998_jina_alcobia", "r-old", sampleResponse())},
			expectCached: true,
		},
		{
			name:        "unprocessed_seed_is_not_a_hit",
			seed:        []*StoredResponse{storedFor("w04277998_jina_alcobia", "r-old", &eligibility.Response{APIResponseMessage: "Failed"})},
			checkerResp: sampleResponse(),
			expectCall:  true,
		},
		{
			name:          "upstream_error",
			checkerErr:    pverify.ErrUpstream,
			expectCall:    true,
			expectedError: pverify.ErrUpstream,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := newMemRepo(t)
			checker := NewMockEligibilityChecker(ctrl)
			for _, s := range tc.seed {
				require.NoError(t, repo.Save(context.Background(), s))
			}
			if tc.expectCall {
				checker.EXPECT().
					Check(gomock.Any(), gomock.Any()).
					Return(tc.checkerResp, tc.checkerErr)
			}

			svc := newTestService(t, repo, checker)
			result, err := svc.Check(context.Background(), sampleForm())

			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectCached, result.Cached)
			assert.Equal(t, "w04277998_jina_alcobia", result.Response.PatientID)
			if tc.expectCached {
				assert.Equal(t, "r-old", result.Response.ResponseID)
				return
			}

			assert.True(t, result.Response.Processed)
			assert.Equal(t, -1, result.Response.Document.ServiceIndex(eligibility.OthersServiceName), "stored flattened")
			stored, err := repo.Get(context.Background(), result.Response.PatientID, result.Response.ResponseID)
			require.NoError(t, err)
			assert.Equal(t, 2, stored.Document.ServiceIndex(eligibility.PlanGeneralService))
		})
	}
}

func TestService_CheckInvalidForm(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := newTestService(t, NewMockRepository(ctrl), NewMockEligibilityChecker(ctrl))
	form := sampleForm()
	form.ProviderNPI = "1"

	_, err := svc.Check(context.Background(), form)

	assert.ErrorIs(t, err, pverify.ErrInvalidForm)
}

func TestService_CheckWithoutUpstream(t *testing.T) {
	svc := newTestService(t, newMemRepo(t), nil)

	_, err := svc.Check(context.Background(), sampleForm())

	assert.ErrorIs(t, err, ErrNoUpstream)
}

func TestService_CheckStoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	checker := NewMockEligibilityChecker(ctrl)
	dbErr := errors.New("connection refused")

	t.Run("cache_lookup", func(t *testing.T) {
		repo.EXPECT().FindCached(gomock.Any(), "w04277998_jina_alcobia", "DE0171", "W04277998").Return(nil, dbErr)

		_, err := newTestService(t, repo, checker).Check(context.Background(), sampleForm())

		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("save", func(t *testing.T) {
		repo.EXPECT().FindCached(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, ErrNotFound)
		checker.EXPECT().Check(gomock.Any(), gomock.Any()).Return(sampleResponse(), nil)
		repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(dbErr)

		_, err := newTestService(t, repo, checker).Check(context.Background(), sampleForm())

		assert.ErrorIs(t, err, dbErr)
	})
}

func TestService_ProjectionAndUsage(t *testing.T) {
	repo := newMemRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, storedFor("p1", "r1", eligibility.Flatten(sampleResponse()))))
	require.NoError(t, repo.Save(ctx, storedFor("p1", "failed", &eligibility.Response{APIResponseMessage: "Failed"})))
	svc := newTestService(t, repo, nil)

	projections, err := svc.Projection(ctx, "p1", "r1", eligibility.ByBenefit)
	require.NoError(t, err)
	require.Len(t, projections, 3)
	assert.Equal(t, "Prophylaxis", projections[0].Service)

	usage, err := svc.Usage(ctx, "p1", "r1")
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, eligibility.UsageInfo{Max: 2, Remaining: 2, Used: 0, Label: "Visits / 1 Years"}, usage[0].Info(eligibility.InNetwork))

	_, err = svc.Projection(ctx, "p1", "failed", eligibility.ByNetwork)
	assert.ErrorIs(t, err, ErrNotProcessed)

	_, err = svc.Usage(ctx, "p1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, "p1/../p2", "r1")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestService_PatchUsage(t *testing.T) {
	amount := func(v float64) *float64 { return &v }

	testCases := []struct {
		name     string
		patch    UsagePatch
		expected map[string]float64
	}{
		{
			name:     "single_network_by_key",
			patch:    UsagePatch{Network: "in_network", Amount: amount(5)},
			expected: map[string]float64{eligibility.InNetwork: 2},
		},
		{
			name:     "per_network_amounts",
			patch:    UsagePatch{Amounts: eligibility.NetworkAmounts{"in_network": 1, eligibility.OutOfNetwork: 3}},
			expected: map[string]float64{eligibility.InNetwork: 1, eligibility.OutOfNetwork: 3},
		},
		{
			name:     "benefit_row_cells",
			patch:    UsagePatch{Cells: map[string]string{"in_network": "0", "out_of_network": ""}},
			expected: map[string]float64{eligibility.InNetwork: 0},
		},
		{
			name:  "all_networks",
			patch: UsagePatch{All: true, Amount: amount(1)},
			expected: map[string]float64{
				eligibility.InNetwork:        1,
				eligibility.OutOfNetwork:     1,
				eligibility.OutOfServiceArea: 1,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemRepo(t)
			ctx := context.Background()
			require.NoError(t, repo.Save(ctx, storedFor("p1", "r1", eligibility.Flatten(sampleResponse()))))
			svc := newTestService(t, repo, nil)

			updated, err := svc.PatchUsage(ctx, "p1", "r1", "Prophylaxis", tc.patch)
			require.NoError(t, err)

			got := map[string]float64{}
			for _, r := range updated.Document.Services[0].Records {
				if r.IsRemainingLimitation() {
					got[r.Network] = r.QuantityAmount.Or(-1)
				}
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestService_PatchUsageErrors(t *testing.T) {
	repo := newMemRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, storedFor("p1", "r1", sampleResponse())))
	require.NoError(t, repo.Save(ctx, storedFor("p1", "failed", &eligibility.Response{
		APIResponseMessage: "Failed",
		Services:           []eligibility.Service{{Name: "Prophylaxis"}},
	})))
	svc := newTestService(t, repo, nil)
	one := 1.0

	_, err := svc.PatchUsage(ctx, "p1", "r1", "Prophylaxis", UsagePatch{})
	assert.ErrorIs(t, err, ErrInvalidPatch)

	_, err = svc.PatchUsage(ctx, "p1", "r1", "Prophylaxis", UsagePatch{Cells: map[string]string{"in_network": "n/a"}})
	assert.ErrorIs(t, err, ErrInvalidPatch)

	_, err = svc.PatchUsage(ctx, "p1", "r1", "Orthodontics", UsagePatch{All: true, Amount: &one})
	assert.ErrorIs(t, err, eligibility.ErrServiceNotFound)

	_, err = svc.PatchUsage(ctx, "p1", "failed", "Prophylaxis", UsagePatch{All: true, Amount: &one})
	assert.ErrorIs(t, err, ErrNotProcessed)

	_, err = svc.PatchUsage(ctx, "p1", "missing", "Prophylaxis", UsagePatch{All: true, Amount: &one})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_ActivePlan(t *testing.T) {
	repo := newMemRepo(t)
	ctx := context.Background()

	expired := sampleResponse()
	expired.PlanSummary = &eligibility.PlanSummary{Status: eligibility.StatusActive, EffectiveDate: "01/01/2023", ExpiryDate: "12/31/2023"}
	current := sampleResponse()
	inactive := sampleResponse()
	inactive.PlanSummary = &eligibility.PlanSummary{Status: "Inactive", EffectiveDate: "01/01/2024", ExpiryDate: "12/31/2024"}
	for i, doc := range []*eligibility.Response{expired, current, inactive} {
		require.NoError(t, repo.Save(ctx, storedFor("p1", []string{"r1", "r2", "r3"}[i], doc)))
	}
	svc := newTestService(t, repo, nil)

	plan, err := svc.ActivePlan(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "r2", plan.Response.ResponseID)
	assert.Equal(t, "PPO Plus Premier", plan.Plan.PlanName)
	assert.Len(t, plan.Usage, 1)

	_, err = svc.ActivePlan(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	repo.EXPECT().
		ListByPatient(gomock.Any(), "p1", pagination.Params{Limit: 5, Offset: 5}).
		Return([]*StoredResponse{{ResponseID: "r6"}}, 6, nil)

	items, total, err := newTestService(t, repo, nil).List(context.Background(), "p1", pagination.Params{Limit: 5, Offset: 5})

	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Equal(t, "r6", items[0].ResponseID)
}
