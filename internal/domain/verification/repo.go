package verification

import (
	"context"

	"github.com/hmprotos/dentalverify/internal/eligibility"
	"github.com/hmprotos/dentalverify/pkg/pagination"
)

// RecordsEdit picks the service to rewrite in doc and returns its index and
// new records. It runs while the stored document is locked.
type RecordsEdit func(doc *eligibility.Response) (service int, records []eligibility.Record, err error)

// Repository stores eligibility responses per office. The office comes from
// the context (db.WithOffice or the office middleware).
type Repository interface {
	// Save inserts r or replaces the document stored under its patient and
	// response ids.
	Save(ctx context.Context, r *StoredResponse) error
	Get(ctx context.Context, patientID, responseID string) (*StoredResponse, error)
	// ListByPatient returns a patient's responses oldest first. A zero
	// limit returns all of them.
	ListByPatient(ctx context.Context, patientID string, p pagination.Params) ([]*StoredResponse, int, error)
	// FindCached returns the newest processed response for the same payer
	// and member.
	FindCached(ctx context.Context, patientID, payerCode, memberID string) (*StoredResponse, error)
	// UpdateRecords replaces one service's record list inside a stored
	// document.
	UpdateRecords(ctx context.Context, patientID, responseID string, edit RecordsEdit) (*StoredResponse, error)
	Ping(ctx context.Context) error
}
