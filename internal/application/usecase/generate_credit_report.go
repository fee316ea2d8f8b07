package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bibbank/bureau-service/internal/application/dto"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
	"github.com/bibbank/bureau-service/pkg/observability"
)

// GenerateCreditReportUseCase returns the AI summary of an applicant's stored
// bureau report, regenerating it only when the cached copy is missing or
// older than the TTL.
type GenerateCreditReportUseCase struct {
	cache     port.ReportCacheRepository
	records   port.CreditRecordRepository
	generator port.ReportGenerator
	ttl       time.Duration
	metrics   *observability.BureauMetrics
	logger    *slog.Logger
}

// NewGenerateCreditReportUseCase wires dependencies. A non-positive ttl uses
// model.ReportCacheTTL.
func NewGenerateCreditReportUseCase(
	cache port.ReportCacheRepository,
	records port.CreditRecordRepository,
	generator port.ReportGenerator,
	ttl time.Duration,
	metrics *observability.BureauMetrics,
	logger *slog.Logger,
) *GenerateCreditReportUseCase {
	if ttl <= 0 {
		ttl = model.ReportCacheTTL
	}
	return &GenerateCreditReportUseCase{
		cache:     cache,
		records:   records,
		generator: generator,
		ttl:       ttl,
		metrics:   metrics,
		logger:    logger,
	}
}

// Execute returns the report summary for req.PAN.
func (uc *GenerateCreditReportUseCase) Execute(ctx context.Context, req dto.CreditReportRequest) (dto.CreditReportResponse, error) {
	pan := strings.ToUpper(strings.TrimSpace(req.PAN))
	if pan == "" {
		return dto.CreditReportResponse{}, model.NewPipelineError(valueobject.ReasonInvalidRequest, "pan is required", nil)
	}
	now := time.Now().UTC()
	log := uc.logger.With("pan_suffix", model.MaskedSuffix(pan))

	// 1. Fresh cache entry.
	entry, err := uc.cache.Find(ctx, pan)
	switch {
	case err == nil && entry.IsFresh(now, uc.ttl):
		uc.metrics.ReportCache(ctx, true)
		return dto.CreditReportResponse{PAN: pan, Summary: entry.Summary, Cached: true, GeneratedAt: entry.CreatedAt}, nil
	case err != nil && !errors.Is(err, port.ErrNotFound):
		log.WarnContext(ctx, "report cache read failed", "error", err)
	}
	uc.metrics.ReportCache(ctx, false)

	// 2. Stored bureau report.
	record, err := uc.records.FindLatestByPAN(ctx, pan)
	if errors.Is(err, port.ErrNotFound) {
		return dto.CreditReportResponse{}, model.NewPipelineError(valueobject.ReasonIdentityNotFound,
			"no credit record for applicant", err)
	}
	if err != nil {
		return dto.CreditReportResponse{}, fmt.Errorf("find credit record: %w", err)
	}
	if len(record.RawPayload) == 0 {
		return dto.CreditReportResponse{}, model.NewPipelineError(valueobject.ReasonScoreUnavailable,
			"no bureau report stored for applicant", nil)
	}

	// 3. Generate.
	summary, err := uc.generator.Generate(ctx, record.RawPayload)
	if err != nil {
		return dto.CreditReportResponse{}, model.NewPipelineError(valueobject.ReasonUpstreamUnavailable,
			"report generation failed", err)
	}

	// 4. Cache. Concurrent misses both write; the upsert makes that harmless.
	fresh := model.ReportCacheEntry{PAN: pan, Summary: summary, CreatedAt: now}
	if err := uc.cache.Upsert(ctx, fresh); err != nil {
		log.WarnContext(ctx, "report cache write failed", "error", err)
	}
	return dto.CreditReportResponse{PAN: pan, Summary: summary, GeneratedAt: now}, nil
}
