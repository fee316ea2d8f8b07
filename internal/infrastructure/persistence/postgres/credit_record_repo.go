package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	pgpkg "github.com/bibbank/bureau-service/pkg/postgres"
)

// CreditRecordRepo implements port.CreditRecordRepository. Each upsert also
// appends a row to credit_inquiries, so the latest record wins while the
// inquiry history is kept.
type CreditRecordRepo struct {
	pool *pgxpool.Pool
}

var _ port.CreditRecordRepository = (*CreditRecordRepo)(nil)

// NewCreditRecordRepo creates a new repository backed by PostgreSQL.
func NewCreditRecordRepo(pool *pgxpool.Pool) *CreditRecordRepo {
	return &CreditRecordRepo{pool: pool}
}

// Upsert stores record as the latest for its PAN.
func (r *CreditRecordRepo) Upsert(ctx context.Context, record model.CreditRecord) error {
	if record.PAN == "" {
		return errors.New("upsert credit record: pan is required")
	}
	identity, err := json.Marshal(record.Identity)
	if err != nil {
		return fmt.Errorf("upsert credit record: marshal identity: %w", err)
	}

	upsert := `
		INSERT INTO credit_records (
			pan, identity, score, score_source, provider_kind, raw_payload,
			active_emi_total, consent_granted, lender_matches, emi_details,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (pan) DO UPDATE SET
			identity         = EXCLUDED.identity,
			score            = EXCLUDED.score,
			score_source     = EXCLUDED.score_source,
			provider_kind    = EXCLUDED.provider_kind,
			raw_payload      = EXCLUDED.raw_payload,
			active_emi_total = EXCLUDED.active_emi_total,
			consent_granted  = EXCLUDED.consent_granted,
			lender_matches   = EXCLUDED.lender_matches,
			emi_details      = EXCLUDED.emi_details,
			updated_at       = EXCLUDED.updated_at
	`
	inquiry := `
		INSERT INTO credit_inquiries (id, pan, score, score_source, provider_kind, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`
	return pgpkg.WithTransaction(ctx, r.pool, func(q pgpkg.Querier) error {
		if _, err := q.Exec(ctx, upsert,
			record.PAN, identity, record.Score, record.ScoreSource, record.ProviderKind,
			nullJSON(record.RawPayload), record.ActiveEMITotal, record.ConsentGranted,
			nullJSON(record.LenderMatches), nullJSON(record.EMIDetails),
			record.CreatedAt, record.UpdatedAt,
		); err != nil {
			return fmt.Errorf("upsert credit record: %w", err)
		}
		if _, err := q.Exec(ctx, inquiry,
			uuid.New(), record.PAN, record.Score, record.ScoreSource, record.ProviderKind, record.UpdatedAt,
		); err != nil {
			return fmt.Errorf("record credit inquiry: %w", err)
		}
		return nil
	})
}

// FindLatestByPAN returns the stored record for pan or port.ErrNotFound.
func (r *CreditRecordRepo) FindLatestByPAN(ctx context.Context, pan string) (model.CreditRecord, error) {
	query := `
		SELECT pan, identity, score, score_source, provider_kind, raw_payload,
		       active_emi_total, consent_granted, lender_matches, emi_details,
		       created_at, updated_at
		FROM credit_records
		WHERE pan = $1
	`
	rec, err := scanCreditRecord(r.pool.QueryRow(ctx, query, pan))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CreditRecord{}, port.ErrNotFound
	}
	return rec, err
}

// CountInquiries returns how many inquiries were recorded for pan.
func (r *CreditRecordRepo) CountInquiries(ctx context.Context, pan string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM credit_inquiries WHERE pan = $1`, pan).Scan(&n); err != nil {
		return 0, fmt.Errorf("count credit inquiries: %w", err)
	}
	return n, nil
}

func scanCreditRecord(s scannable) (model.CreditRecord, error) {
	var (
		rec                           model.CreditRecord
		identity                      []byte
		raw, lenderMatches, emiDetail []byte
		total                         decimal.Decimal
		createdAt, updatedAt          time.Time
	)
	err := s.Scan(
		&rec.PAN, &identity, &rec.Score, &rec.ScoreSource, &rec.ProviderKind, &raw,
		&total, &rec.ConsentGranted, &lenderMatches, &emiDetail,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CreditRecord{}, err
		}
		return model.CreditRecord{}, fmt.Errorf("scan credit record: %w", err)
	}
	if len(identity) > 0 {
		if err := json.Unmarshal(identity, &rec.Identity); err != nil {
			return model.CreditRecord{}, fmt.Errorf("decode stored identity: %w", err)
		}
	}
	rec.RawPayload = raw
	rec.LenderMatches = lenderMatches
	rec.EMIDetails = emiDetail
	rec.ActiveEMITotal = total
	rec.CreatedAt = createdAt.UTC()
	rec.UpdatedAt = updatedAt.UTC()
	return rec, nil
}
