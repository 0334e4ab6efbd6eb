package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/hmprotos/dentalverify/internal/eligibility"
)

func testResponse() *eligibility.Response {
	return &eligibility.Response{
		APIResponseMessage: "Processed",
		Services: []eligibility.Service{
			{Name: "Prophylaxis", Records: []eligibility.Record{
				{Category: "Co-Insurance", Network: eligibility.InNetwork, Percent: eligibility.Num(0.2)},
			}},
			{Name: eligibility.OthersServiceName, Records: []eligibility.Record{
				{Category: "Deductible", Network: eligibility.OutOfNetwork, MonetaryAmount: eligibility.Num(50)},
			}},
		},
	}
}

func TestRows(t *testing.T) {
	rows := Rows("r1", testResponse())

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Service != "Prophylaxis" || rows[0].Value != "20%" || rows[0].Network != eligibility.InNetwork {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Service != eligibility.PlanGeneralService {
		t.Errorf("expected Others records under %q, got %q", eligibility.PlanGeneralService, rows[1].Service)
	}
	if rows[1].ResponseID != "r1" {
		t.Errorf("expected response id r1, got %q", rows[1].ResponseID)
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	n, err := w.WriteResponse("r1", testResponse())
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := w.WriteResponse("empty", nil); err != nil {
		t.Fatalf("write nil response: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n != 2 || w.Count() != 2 {
		t.Errorf("expected 2 rows written, got n=%d count=%d", n, w.Count())
	}

	rows, err := parquet.Read[Row](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows read, got %d", len(rows))
	}
	if rows[1].Benefit != "Deductible" || rows[1].Value != "$50.00" {
		t.Errorf("unexpected row: %+v", rows[1])
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.parquet")

	n, err := WriteFile(path, "r1", testResponse())
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(rows) != n {
		t.Errorf("expected %d rows, got %d", n, len(rows))
	}
}
