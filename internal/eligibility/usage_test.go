package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsages(t *testing.T) {
	resp := prophylaxisResponse(
		visitLimitRecord(InNetwork, 2),
		remainingVisits(InNetwork, 1),
		visitLimitRecord(OutOfNetwork, 3),
	)

	usages := Usages(resp)

	require.Len(t, usages, 1, "fillings has no limits")
	u := usages[0]
	assert.Equal(t, "Prophylaxis", u.Service)
	assert.Equal(t, UsageInfo{Max: 2, Remaining: 1, Used: 1, Label: "Visits / 1 Years"}, u.Info(InNetwork))
	assert.Equal(t, UsageInfo{Max: 3, Remaining: 3, Used: 0, Label: "Visits / 1 Years"}, u.Info(OutOfNetwork))
	assert.Equal(t, UsageInfo{}, u.Info(OutOfServiceArea))
}

func TestUsages_Empty(t *testing.T) {
	assert.Empty(t, Usages(nil))
	assert.Empty(t, Usages(&Response{}))
}

func TestSelectActive(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	plan := func(status, from, to string) *Response {
		return &Response{PlanSummary: &PlanSummary{Status: status, EffectiveDate: from, ExpiryDate: to}}
	}

	testCases := []struct {
		name     string
		docs     []*Response
		expected int
	}{
		{name: "none", docs: nil, expected: -1},
		{name: "no_summary", docs: []*Response{{}}, expected: -1},
		{name: "inactive", docs: []*Response{plan("Inactive", "01/01/2024", "12/31/2024")}, expected: -1},
		{name: "expired", docs: []*Response{plan("Active", "01/01/2023", "12/31/2023")}, expected: -1},
		{name: "not_started", docs: []*Response{plan("Active", "07/01/2024", "12/31/2024")}, expected: -1},
		{name: "expiry_day_included", docs: []*Response{plan("Active", "01/01/2024", "06/15/2024")}, expected: 0},
		{name: "unparsed_dates_trust_status", docs: []*Response{plan("Active", "", "")}, expected: 0},
		{
			name: "last_match_wins",
			docs: []*Response{
				plan("Active", "01/01/2024", "12/31/2024"),
				plan("Inactive", "01/01/2024", "12/31/2024"),
				plan("Active", "06/01/2024", "05/31/2025"),
				nil,
			},
			expected: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SelectActive(tc.docs, now))
		})
	}
}
