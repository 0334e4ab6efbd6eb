package eligibility

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) (*Response, []byte) {
	t.Helper()
	data, err := os.ReadFile("testdata/response.json")
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal(data, &resp))
	return &resp, data
}

func TestResponse_Decode(t *testing.T) {
	resp, _ := loadFixture(t)

	assert.True(t, resp.Processed())
	assert.Equal(t, "DD001", resp.PayerCode)
	require.NotNil(t, resp.PlanSummary)
	assert.Equal(t, "Active", resp.PlanSummary.Status)
	assert.Contains(t, resp.PlanSummary.Extra, "PolicyType")
	assert.Contains(t, resp.Extra, "IsHMOPlan")

	require.Len(t, resp.Services, 3)
	prophy := resp.Services[0]
	assert.Equal(t, "Prophylaxis", prophy.Name)
	assert.Contains(t, prophy.Extra, "ServiceTypeCode")

	inNetwork := prophy.Records[0]
	p, ok := inNetwork.Percent.Float()
	assert.True(t, ok, "numeric string decodes as present")
	assert.Equal(t, 0.0, p)
	assert.Equal(t, 0.5, resp.Services[1].Records[2].Percent.Or(-1))

	d := prophy.Records[2].Deliveries[0]
	assert.Equal(t, 2.0, d.TotalQuantity.Or(0))
	assert.Equal(t, "Visits", d.QuantityQualifier)

	sub, ok := resp.Subscriber()
	require.True(t, ok)
	assert.Equal(t, "JINA", sub.FirstName)
	assert.Equal(t, "ALCOBIA", sub.LastName)
}

func TestResponse_RoundTripKeepsUnknownKeys(t *testing.T) {
	resp, raw := loadFixture(t)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))
}

func TestResponse_MalformedServiceDetails(t *testing.T) {
	raw := `{"APIResponseMessage":"Processed","ServiceDetails":"unavailable"}`
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	assert.Nil(t, resp.Services)
	assert.Equal(t, -1, resp.ServiceIndex("Others"))

	out, err := json.Marshal(Flatten(&resp))
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestNumber_Decode(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		valid   bool
		value   float64
		encoded string
	}{
		{name: "number", in: `12.5`, valid: true, value: 12.5, encoded: `12.5`},
		{name: "numeric_string", in: `"0.8"`, valid: true, value: 0.8, encoded: `"0.8"`},
		{name: "padded_string", in: `" 3 "`, valid: true, value: 3, encoded: `" 3 "`},
		{name: "empty_string", in: `""`, valid: false, encoded: `""`},
		{name: "not_a_number", in: `"N/A"`, valid: false, encoded: `"N/A"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tc.in), &n))
			assert.Equal(t, tc.valid, n.Valid())
			if tc.valid {
				assert.Equal(t, tc.value, n.Or(-1))
			}
			out, err := json.Marshal(n)
			require.NoError(t, err)
			assert.Equal(t, tc.encoded, string(out))
		})
	}
}

func TestNumber_OmittedWhenAbsent(t *testing.T) {
	out, err := json.Marshal(Record{Category: "Limitations", QuantityAmount: Num(4)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"EligibilityOrBenefit":"Limitations","QuantityAmount":4}`, string(out))
}
