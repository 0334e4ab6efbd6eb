package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/hmprotos/dentalverify/internal/eligibility"
	"github.com/hmprotos/dentalverify/internal/platform/db"
	"github.com/hmprotos/dentalverify/pkg/pagination"
)

// responseRepoLevelDB keeps one JSON value per response under
// data/{office}/patients_data/{patient}/{response}.
type responseRepoLevelDB struct {
	db            *leveldb.DB
	defaultOffice string
	now           func() time.Time

	// mu serialises read-modify-write cycles.
	mu sync.Mutex
}

// OpenLevelDB opens (or creates) the embedded store at path.
func OpenLevelDB(path string) (*leveldb.DB, error) {
	ldb, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return ldb, nil
}

func NewRepoLevelDB(ldb *leveldb.DB, defaultOffice string) Repository {
	return &responseRepoLevelDB{db: ldb, defaultOffice: defaultOffice, now: time.Now}
}

func (r *responseRepoLevelDB) office(ctx context.Context) string {
	if oid := db.OfficeFromContext(ctx); oid != "" {
		return oid
	}
	return r.defaultOffice
}

func (r *responseRepoLevelDB) patientPrefix(ctx context.Context, patientID string) string {
	return fmt.Sprintf("data/%s/patients_data/%s/", r.office(ctx), patientID)
}

func (r *responseRepoLevelDB) key(ctx context.Context, patientID, responseID string) []byte {
	return []byte(r.patientPrefix(ctx, patientID) + responseID)
}

func (r *responseRepoLevelDB) load(ctx context.Context, patientID, responseID string) (*StoredResponse, error) {
	data, err := r.db.Get(r.key(ctx, patientID, responseID), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var e StoredResponse
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", patientID, responseID, err)
	}
	return &e, nil
}

func (r *responseRepoLevelDB) put(ctx context.Context, e *StoredResponse) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", e.PatientID, e.ResponseID, err)
	}
	return r.db.Put(r.key(ctx, e.PatientID, e.ResponseID), data, nil)
}

func (r *responseRepoLevelDB) Save(ctx context.Context, e *StoredResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	e.OfficeID = r.office(ctx)
	e.UpdatedAt = now

	existing, err := r.load(ctx, e.PatientID, e.ResponseID)
	switch {
	case err == nil:
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
	case errors.Is(err, ErrNotFound):
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.CreatedAt = now
	default:
		return err
	}
	return r.put(ctx, e)
}

func (r *responseRepoLevelDB) Get(ctx context.Context, patientID, responseID string) (*StoredResponse, error) {
	return r.load(ctx, patientID, responseID)
}

// all returns every response of a patient, oldest first.
func (r *responseRepoLevelDB) all(ctx context.Context, patientID string) ([]*StoredResponse, error) {
	iter := r.db.NewIterator(util.BytesPrefix([]byte(r.patientPrefix(ctx, patientID))), nil)
	defer iter.Release()

	items := []*StoredResponse{}
	for iter.Next() {
		var e StoredResponse
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		items = append(items, &e)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (r *responseRepoLevelDB) ListByPatient(ctx context.Context, patientID string, p pagination.Params) ([]*StoredResponse, int, error) {
	items, err := r.all(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	if p.Limit <= 0 {
		return pagination.Page(items, pagination.Params{Limit: len(items), Offset: p.Offset}), len(items), nil
	}
	return pagination.Page(items, p), len(items), nil
}

func (r *responseRepoLevelDB) FindCached(ctx context.Context, patientID, payerCode, memberID string) (*StoredResponse, error) {
	items, err := r.all(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for i := len(items) - 1; i >= 0; i-- {
		e := items[i]
		if e.Processed && e.PayerCode == payerCode && e.MemberID == memberID {
			return e, nil
		}
	}
	return nil, ErrNotFound
}

func (r *responseRepoLevelDB) UpdateRecords(ctx context.Context, patientID, responseID string, edit RecordsEdit) (*StoredResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.load(ctx, patientID, responseID)
	if err != nil {
		return nil, err
	}

	idx, records, err := edit(e.Document)
	if err != nil {
		return nil, err
	}
	if e.Document == nil || idx < 0 || idx >= len(e.Document.Services) {
		return nil, fmt.Errorf("%w: index %d", eligibility.ErrServiceNotFound, idx)
	}

	doc, err := eligibility.WithRecords(e.Document, e.Document.Services[idx].Name, records)
	if err != nil {
		return nil, err
	}
	e.Document = doc
	e.UpdatedAt = r.now().UTC()
	if err := r.put(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *responseRepoLevelDB) Ping(ctx context.Context) error {
	_, err := r.db.GetProperty("leveldb.num-files-at-level0")
	return err
}
