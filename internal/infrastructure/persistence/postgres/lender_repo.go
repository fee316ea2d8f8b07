package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
)

// LenderRepo implements port.LenderRepository over the lender reference
// tables. Rate and amount columns are free text and are returned as stored.
type LenderRepo struct {
	pool *pgxpool.Pool
}

var _ port.LenderRepository = (*LenderRepo)(nil)

// NewLenderRepo creates a new repository backed by PostgreSQL.
func NewLenderRepo(pool *pgxpool.Pool) *LenderRepo {
	return &LenderRepo{pool: pool}
}

// minScoreExpr reads the leading three digits of minimum_credit_score, the
// way the column has always been populated ("650+", "700 and above"). Any
// other value is NULL, which no score satisfies.
const minScoreExpr = `CASE WHEN l.minimum_credit_score ~ '^[0-9]{3}'
	THEN CAST(LEFT(l.minimum_credit_score, 3) AS INTEGER) END`

const lenderColumns = `
	l.id::text, l.lender_name, l.lender_type, l.home_loan_roi, l.lap_roi,
	l.home_loan_ltv, l.remarks, l.loan_approval_time, l.processing_time,
	l.minimum_loan_amount, l.maximum_loan_amount, COALESCE(` + minScoreExpr + `, 0)`

// FindEligible returns lenders whose minimum score is at most score and
// whose home loan rate is set, cheapest lower-bound rate first.
func (r *LenderRepo) FindEligible(ctx context.Context, score int) ([]model.Lender, error) {
	query := `
		SELECT ` + lenderColumns + `
		FROM lenders l
		WHERE ` + minScoreExpr + ` <= $1
		  AND l.home_loan_roi IS NOT NULL
		  AND l.home_loan_roi != ''
		ORDER BY CAST(NULLIF(REGEXP_REPLACE(SPLIT_PART(l.home_loan_roi, '-', 1), '[^0-9.]', '', 'g'), '') AS FLOAT) NULLS LAST,
		         l.lender_name
	`
	return r.scanMany(ctx, query, score)
}

// FindApprovedForProject returns the lenders linked to the approved project
// with the given canonical name.
func (r *LenderRepo) FindApprovedForProject(ctx context.Context, canonicalName string) ([]model.Lender, error) {
	if canonicalName == "" {
		return nil, nil
	}
	query := `
		SELECT ` + lenderColumns + `
		FROM approved_projects ap
		JOIN approved_projects_lenders apl ON apl.project_id = ap.id
		JOIN lenders l ON l.id = apl.lender_id
		WHERE LOWER(ap.canonical_name) = LOWER($1)
		ORDER BY l.lender_name
	`
	return r.scanMany(ctx, query, canonicalName)
}

func (r *LenderRepo) scanMany(ctx context.Context, query string, args ...any) ([]model.Lender, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lenders: %w", err)
	}
	defer rows.Close()

	var result []model.Lender
	for rows.Next() {
		l, err := scanLender(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func scanLender(s scannable) (model.Lender, error) {
	var (
		l                                      model.Lender
		homeROI, lapROI, ltv, remarks          *string
		approval, processing, minLoan, maxLoan *string
	)
	err := s.Scan(
		&l.ID, &l.Name, &l.Type, &homeROI, &lapROI,
		&ltv, &remarks, &approval, &processing,
		&minLoan, &maxLoan, &l.MinimumScore,
	)
	if err != nil {
		return model.Lender{}, fmt.Errorf("scan lender: %w", err)
	}
	l.HomeLoanROI = nullText(homeROI)
	l.LAPROI = nullText(lapROI)
	l.HomeLoanLTV = nullText(ltv)
	l.Remarks = nullText(remarks)
	l.ApprovalTime = nullText(approval)
	l.ProcessingTime = nullText(processing)
	l.MinimumLoan = nullText(minLoan)
	l.MaximumLoan = nullText(maxLoan)
	return l, nil
}
