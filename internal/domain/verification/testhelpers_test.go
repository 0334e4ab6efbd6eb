package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/hmprotos/dentalverify/internal/eligibility"
	"github.com/hmprotos/dentalverify/internal/platform/pverify"
)

func sampleResponse() *eligibility.Response {
	return &eligibility.Response{
		APIResponseCode:    "0",
		APIResponseMessage: "Processed",
		PayerName:          "Delta Dental of Washington",
		PlanSummary: &eligibility.PlanSummary{
			Status:        eligibility.StatusActive,
			EffectiveDate: "01/01/2024",
			ExpiryDate:    "12/31/2024",
			PlanName:      "PPO Plus Premier",
		},
		Services: []eligibility.Service{
			{Name: "Prophylaxis", Records: []eligibility.Record{
				{Category: "Co-Insurance", Network: eligibility.InNetwork, Percent: eligibility.Num(0)},
				{Category: eligibility.CategoryLimitations, Network: eligibility.InNetwork, Deliveries: []eligibility.Delivery{{
					QuantityQualifier:    "Visits",
					TotalQuantity:        eligibility.Num(2),
					TimePeriodQualifier:  "Years",
					TotalNumberOfPeriods: eligibility.Num(1),
				}}},
			}},
			{Name: eligibility.OthersServiceName, Records: []eligibility.Record{
				{Category: eligibility.CategoryLimitations, Procedure: "D0140", Network: eligibility.InNetwork},
				{Category: "Deductible", Network: eligibility.InNetwork, MonetaryAmount: eligibility.Num(50)},
			}},
		},
	}
}

func sampleForm() *pverify.Form {
	return &pverify.Form{
		PayerCode:           "DE0171",
		PayerName:           "Delta Dental of Washington",
		VerificationType:    pverify.VerificationSelf,
		ProviderName:        "Harbor Dental",
		ProviderNPI:         "1790036903",
		ProviderTaxID:       "203321275",
		SubscriberMemberID:  "W04277998",
		SubscriberFirstName: "Jina",
		SubscriberLastName:  "Alcobia",
		SubscriberDOB:       "04/27/1998",
		FromDate:            "06/01/2024",
		ToDate:              "06/01/2024",
	}
}

// newMemRepo returns a LevelDB repository on in-memory storage whose clock
// advances one second per call.
func newMemRepo(t *testing.T) *responseRepoLevelDB {
	t.Helper()
	ldb, err := leveldb.Open(storage.NewMemStorage(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ldb.Close() })

	repo := NewRepoLevelDB(ldb, "office_00").(*responseRepoLevelDB)
	clock := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func storedFor(patientID, responseID string, resp *eligibility.Response) *StoredResponse {
	return &StoredResponse{
		PatientID:  patientID,
		ResponseID: responseID,
		PayerCode:  "DE0171",
		MemberID:   "W04277998",
		Processed:  resp.Processed(),
		Document:   resp,
	}
}
