package usecase_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bureau-service/internal/application/dto"
	"github.com/bibbank/bureau-service/internal/application/usecase"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

func storedRecord(pan string) model.CreditRecord {
	score := 781
	return model.CreditRecord{PAN: pan, Score: &score, RawPayload: json.RawMessage(primaryReport)}
}

func TestGenerateCreditReport_Execute(t *testing.T) {
	req := dto.CreditReportRequest{PAN: "ABCDE1234F"}

	cachedAt := func(age time.Duration) *mockReportCache {
		return &mockReportCache{
			findFunc: func(_ context.Context, pan string) (model.ReportCacheEntry, error) {
				return model.ReportCacheEntry{
					PAN:       pan,
					Summary:   json.RawMessage(`{"summary":"cached"}`),
					CreatedAt: time.Now().UTC().Add(-age),
				}, nil
			},
		}
	}
	records := func() *mockCreditRecordRepository {
		return &mockCreditRecordRepository{
			findLatestFunc: func(_ context.Context, pan string) (model.CreditRecord, error) {
				return storedRecord(pan), nil
			},
		}
	}

	t.Run("entry cached 10 days ago is served without generation", func(t *testing.T) {
		cache := cachedAt(10 * 24 * time.Hour)
		generator := &mockReportGenerator{}
		uc := usecase.NewGenerateCreditReportUseCase(cache, records(), generator, 0, nil, discardLogger())

		resp, err := uc.Execute(context.Background(), req)

		require.NoError(t, err)
		assert.True(t, resp.Cached)
		assert.JSONEq(t, `{"summary":"cached"}`, string(resp.Summary))
		assert.Zero(t, generator.calls)
		assert.Empty(t, cache.upserted)
	})

	t.Run("entry cached 40 days ago is regenerated and replaced", func(t *testing.T) {
		cache := cachedAt(40 * 24 * time.Hour)
		generator := &mockReportGenerator{}
		uc := usecase.NewGenerateCreditReportUseCase(cache, records(), generator, 0, nil, discardLogger())

		resp, err := uc.Execute(context.Background(), req)

		require.NoError(t, err)
		assert.False(t, resp.Cached)
		assert.JSONEq(t, `{"summary":"fresh"}`, string(resp.Summary))
		assert.Equal(t, 1, generator.calls)
		require.Len(t, cache.upserted, 1)
		assert.Equal(t, "ABCDE1234F", cache.upserted[0].PAN)
		assert.WithinDuration(t, time.Now(), cache.upserted[0].CreatedAt, time.Minute)
	})

	t.Run("miss passes the stored raw report to the generator", func(t *testing.T) {
		var got []byte
		generator := &mockReportGenerator{
			generateFunc: func(_ context.Context, raw []byte) (json.RawMessage, error) {
				got = raw
				return json.RawMessage(`{"summary":"fresh"}`), nil
			},
		}
		uc := usecase.NewGenerateCreditReportUseCase(&mockReportCache{}, records(), generator, 0, nil, discardLogger())

		_, err := uc.Execute(context.Background(), dto.CreditReportRequest{PAN: " abcde1234f "})

		require.NoError(t, err)
		assert.JSONEq(t, primaryReport, string(got))
	})

	t.Run("no stored record is IdentityNotFound", func(t *testing.T) {
		uc := usecase.NewGenerateCreditReportUseCase(&mockReportCache{}, &mockCreditRecordRepository{},
			&mockReportGenerator{}, 0, nil, discardLogger())

		_, err := uc.Execute(context.Background(), req)

		assert.True(t, model.IsReason(err, valueobject.ReasonIdentityNotFound))
	})

	t.Run("generator failure is UpstreamUnavailable and nothing is cached", func(t *testing.T) {
		cache := &mockReportCache{}
		generator := &mockReportGenerator{
			generateFunc: func(_ context.Context, _ []byte) (json.RawMessage, error) { return nil, assert.AnError },
		}
		uc := usecase.NewGenerateCreditReportUseCase(cache, records(), generator, 0, nil, discardLogger())

		_, err := uc.Execute(context.Background(), req)

		assert.True(t, model.IsReason(err, valueobject.ReasonUpstreamUnavailable))
		assert.Empty(t, cache.upserted)
	})

	t.Run("cache write failure still returns the report", func(t *testing.T) {
		cache := &mockReportCache{
			upsertFunc: func(_ context.Context, _ model.ReportCacheEntry) error { return assert.AnError },
		}
		uc := usecase.NewGenerateCreditReportUseCase(cache, records(), &mockReportGenerator{}, 0, nil, discardLogger())

		resp, err := uc.Execute(context.Background(), req)

		require.NoError(t, err)
		assert.NotEmpty(t, resp.Summary)
	})
}
