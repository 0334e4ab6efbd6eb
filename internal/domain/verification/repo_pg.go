package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hmprotos/dentalverify/internal/eligibility"
	"github.com/hmprotos/dentalverify/internal/platform/db"
	"github.com/hmprotos/dentalverify/pkg/pagination"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type responseRepoPG struct {
	pool          *pgxpool.Pool
	defaultOffice string
}

// NewRepoPG stores documents in the eligibility_response table of each
// office schema.
func NewRepoPG(pool *pgxpool.Pool, defaultOffice string) Repository {
	return &responseRepoPG{pool: pool, defaultOffice: defaultOffice}
}

func (r *responseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *responseRepoPG) office(ctx context.Context) string {
	if oid := db.OfficeFromContext(ctx); oid != "" {
		return oid
	}
	return r.defaultOffice
}

// table is the schema-qualified table of the request's office, so queries
// work with or without an office-pinned connection.
func (r *responseRepoPG) table(ctx context.Context) string {
	return pgx.Identifier{db.OfficeSchema(r.office(ctx)), "eligibility_response"}.Sanitize()
}

const respCols = `id, patient_id, response_id, payer_code, member_id, processed,
	document, created_at, updated_at`

func (r *responseRepoPG) scanRow(ctx context.Context, row pgx.Row) (*StoredResponse, error) {
	var (
		e   StoredResponse
		doc []byte
	)
	err := row.Scan(&e.ID, &e.PatientID, &e.ResponseID, &e.PayerCode, &e.MemberID, &e.Processed,
		&doc, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.OfficeID = r.office(ctx)
	if err := json.Unmarshal(doc, &e.Document); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", e.ResponseID, err)
	}
	return &e, nil
}

func (r *responseRepoPG) Save(ctx context.Context, e *StoredResponse) error {
	doc, err := json.Marshal(e.Document)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.OfficeID = r.office(ctx)
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO `+r.table(ctx)+` (id, patient_id, response_id, payer_code, member_id, processed, document)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (patient_id, response_id) DO UPDATE SET
			payer_code = EXCLUDED.payer_code,
			member_id = EXCLUDED.member_id,
			processed = EXCLUDED.processed,
			document = EXCLUDED.document,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		e.ID, e.PatientID, e.ResponseID, e.PayerCode, e.MemberID, e.Processed, string(doc),
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

func (r *responseRepoPG) Get(ctx context.Context, patientID, responseID string) (*StoredResponse, error) {
	return r.scanRow(ctx, r.conn(ctx).QueryRow(ctx,
		`SELECT `+respCols+` FROM `+r.table(ctx)+` WHERE patient_id = $1 AND response_id = $2`,
		patientID, responseID))
}

func (r *responseRepoPG) ListByPatient(ctx context.Context, patientID string, p pagination.Params) ([]*StoredResponse, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM `+r.table(ctx)+` WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	// LIMIT NULL is no limit.
	var limit interface{}
	if p.Limit > 0 {
		limit = p.Limit
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+respCols+` FROM `+r.table(ctx)+` WHERE patient_id = $1
		ORDER BY created_at, response_id LIMIT $2 OFFSET $3`,
		patientID, limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*StoredResponse{}
	for rows.Next() {
		e, err := r.scanRow(ctx, rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *responseRepoPG) FindCached(ctx context.Context, patientID, payerCode, memberID string) (*StoredResponse, error) {
	return r.scanRow(ctx, r.conn(ctx).QueryRow(ctx,
		`SELECT `+respCols+` FROM `+r.table(ctx)+`
		WHERE patient_id = $1 AND payer_code = $2 AND member_id = $3 AND processed
		ORDER BY created_at DESC, response_id DESC LIMIT 1`,
		patientID, payerCode, memberID))
}

// UpdateRecords locks the row, lets edit choose the new records and writes
// them with jsonb_set at ServiceDetails/{i}/EligibilityDetails.
func (r *responseRepoPG) UpdateRecords(ctx context.Context, patientID, responseID string, edit RecordsEdit) (*StoredResponse, error) {
	ctx, tx, err := db.BeginTx(ctx, r.pool)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := r.scanRow(ctx, tx.QueryRow(ctx,
		`SELECT `+respCols+` FROM `+r.table(ctx)+` WHERE patient_id = $1 AND response_id = $2 FOR UPDATE`,
		patientID, responseID))
	if err != nil {
		return nil, err
	}

	idx, records, err := edit(current.Document)
	if err != nil {
		return nil, err
	}
	if current.Document == nil || idx < 0 || idx >= len(current.Document.Services) {
		return nil, fmt.Errorf("%w: index %d", eligibility.ErrServiceNotFound, idx)
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}

	path := []string{"ServiceDetails", strconv.Itoa(idx), "EligibilityDetails"}
	updated, err := r.scanRow(ctx, tx.QueryRow(ctx,
		`UPDATE `+r.table(ctx)+` SET document = jsonb_set(document, $3::text[], $4::jsonb, false), updated_at = NOW()
		WHERE patient_id = $1 AND response_id = $2
		RETURNING `+respCols,
		patientID, responseID, path, string(raw)))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

func (r *responseRepoPG) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

