package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
)

// ReportCacheRepo implements port.ReportCacheRepository. Freshness is the
// caller's decision; the repository only stores the latest summary per PAN.
type ReportCacheRepo struct {
	pool *pgxpool.Pool
}

var _ port.ReportCacheRepository = (*ReportCacheRepo)(nil)

// NewReportCacheRepo creates a new repository backed by PostgreSQL.
func NewReportCacheRepo(pool *pgxpool.Pool) *ReportCacheRepo {
	return &ReportCacheRepo{pool: pool}
}

// Find returns the cached summary for pan or port.ErrNotFound.
func (r *ReportCacheRepo) Find(ctx context.Context, pan string) (model.ReportCacheEntry, error) {
	var (
		entry     model.ReportCacheEntry
		summary   []byte
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT pan, summary, created_at FROM report_cache WHERE pan = $1`, pan,
	).Scan(&entry.PAN, &summary, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ReportCacheEntry{}, port.ErrNotFound
	}
	if err != nil {
		return model.ReportCacheEntry{}, fmt.Errorf("find report cache entry: %w", err)
	}
	entry.Summary = summary
	entry.CreatedAt = createdAt.UTC()
	return entry, nil
}

// Upsert replaces the cached summary for entry.PAN.
func (r *ReportCacheRepo) Upsert(ctx context.Context, entry model.ReportCacheEntry) error {
	query := `
		INSERT INTO report_cache (pan, summary, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (pan) DO UPDATE SET
			summary    = EXCLUDED.summary,
			created_at = EXCLUDED.created_at
	`
	if _, err := r.pool.Exec(ctx, query, entry.PAN, nullJSON(entry.Summary), entry.CreatedAt); err != nil {
		return fmt.Errorf("upsert report cache entry: %w", err)
	}
	return nil
}
