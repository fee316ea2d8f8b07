//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/infrastructure/persistence/postgres"
	"github.com/bibbank/bureau-service/pkg/testutil"
)

func TestRepositories(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	pc.Migrate(t, postgres.Migrations)

	t.Run("credit record upsert keeps the latest row", func(t *testing.T) {
		pc.Truncate(t, "credit_records", "credit_inquiries")
		repo := postgres.NewCreditRecordRepo(pc.Pool)
		now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

		score := 712
		first := model.CreditRecord{
			PAN:            testutil.TestPAN,
			Identity:       testutil.TestIdentityFields(),
			Score:          &score,
			ScoreSource:    "PRIMARY_BUREAU",
			ProviderKind:   "PRIMARY_BUREAU",
			RawPayload:     json.RawMessage(`{"result": {"customercibilScore": "712"}}`),
			ActiveEMITotal: decimal.RequireFromString("12500.50"),
			ConsentGranted: true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		require.NoError(t, repo.Upsert(ctx, first))

		second := first
		newer := 745
		second.Score = &newer
		second.ProviderKind = "SECONDARY_BUREAU"
		second.LenderMatches = json.RawMessage(`[{"name": "HDFC Bank"}]`)
		second.UpdatedAt = now.Add(time.Hour)
		require.NoError(t, repo.Upsert(ctx, second))

		got, err := repo.FindLatestByPAN(ctx, testutil.TestPAN)
		require.NoError(t, err)
		require.NotNil(t, got.Score)
		assert.Equal(t, 745, *got.Score)
		assert.Equal(t, "SECONDARY_BUREAU", got.ProviderKind)
		assert.True(t, got.ActiveEMITotal.Equal(decimal.RequireFromString("12500.50")))
		assert.Equal(t, "Asha", got.Identity.FirstName)
		assert.JSONEq(t, `[{"name": "HDFC Bank"}]`, string(got.LenderMatches))
		assert.Empty(t, got.EMIDetails)

		n, err := repo.CountInquiries(ctx, testutil.TestPAN)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("missing credit record", func(t *testing.T) {
		repo := postgres.NewCreditRecordRepo(pc.Pool)
		_, err := repo.FindLatestByPAN(ctx, "ZZZZZ9999Z")
		assert.ErrorIs(t, err, port.ErrNotFound)
	})

	t.Run("lenders", func(t *testing.T) {
		pc.Truncate(t, "approved_projects_lenders", "approved_projects", "lenders")
		_, err := pc.Pool.Exec(ctx, `
			INSERT INTO lenders (id, lender_name, lender_type, home_loan_roi, minimum_credit_score) VALUES
				('00000000-0000-0000-0000-000000000001', 'HDFC Bank', 'Bank', '8.75% - 9.65%', '700+'),
				('00000000-0000-0000-0000-000000000002', 'Axis Bank', 'Bank', '8.40%-9.10%', '650'),
				('00000000-0000-0000-0000-000000000003', 'Fin NBFC', 'NBFC', '11%', '600 and above'),
				('00000000-0000-0000-0000-000000000004', 'No Rate Co', 'NBFC', '', '500'),
				('00000000-0000-0000-0000-000000000005', 'Picky Bank', 'Bank', '8.10%', '800'),
				('00000000-0000-0000-0000-000000000006', 'Vague Bank', 'Bank', '7.90%', 'on request');
			INSERT INTO approved_projects (id, project_name, canonical_name) VALUES
				('00000000-0000-0000-0000-0000000000a1', 'Green Acres Phase 2', 'greenacresphase2');
			INSERT INTO approved_projects_lenders (project_id, lender_id) VALUES
				('00000000-0000-0000-0000-0000000000a1', '00000000-0000-0000-0000-000000000003'),
				('00000000-0000-0000-0000-0000000000a1', '00000000-0000-0000-0000-000000000006');
		`)
		require.NoError(t, err)
		repo := postgres.NewLenderRepo(pc.Pool)

		eligible, err := repo.FindEligible(ctx, 720)
		require.NoError(t, err)
		names := make([]string, 0, len(eligible))
		for _, l := range eligible {
			names = append(names, l.Name)
		}
		assert.Equal(t, []string{"Axis Bank", "HDFC Bank", "Fin NBFC"}, names, "ordered by lower-bound rate; an unreadable minimum is never eligible")
		assert.Equal(t, 650, eligible[0].MinimumScore)

		approved, err := repo.FindApprovedForProject(ctx, "GreenAcresPhase2")
		require.NoError(t, err)
		require.Len(t, approved, 2)
		assert.Equal(t, "Fin NBFC", approved[0].Name)
		assert.Equal(t, "00000000-0000-0000-0000-000000000003", approved[0].ID)
		assert.Equal(t, "Vague Bank", approved[1].Name)
		assert.Zero(t, approved[1].MinimumScore)

		none, err := repo.FindApprovedForProject(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("report cache", func(t *testing.T) {
		pc.Truncate(t, "report_cache")
		repo := postgres.NewReportCacheRepo(pc.Pool)

		_, err := repo.Find(ctx, testutil.TestPAN)
		assert.ErrorIs(t, err, port.ErrNotFound)

		created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, repo.Upsert(ctx, model.ReportCacheEntry{
			PAN:       testutil.TestPAN,
			Summary:   json.RawMessage(`{"summary": "ok"}`),
			CreatedAt: created,
		}))
		got, err := repo.Find(ctx, testutil.TestPAN)
		require.NoError(t, err)
		assert.JSONEq(t, `{"summary": "ok"}`, string(got.Summary))
		assert.True(t, got.CreatedAt.Equal(created))
		assert.True(t, got.IsFresh(created.Add(29*24*time.Hour), model.ReportCacheTTL))
	})
}
