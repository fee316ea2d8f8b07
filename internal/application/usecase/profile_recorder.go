package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bibbank/bureau-service/internal/application/dto"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
)

// ProfileRecorder matches lenders for a completed profile and persists the
// per-PAN credit record. It is shared by every flow that ends with a score.
type ProfileRecorder struct {
	matcher *MatchLendersUseCase
	records port.CreditRecordRepository
	archive port.RawReportArchive
	logger  *slog.Logger
}

// NewProfileRecorder wires dependencies. archive may be nil.
func NewProfileRecorder(
	matcher *MatchLendersUseCase,
	records port.CreditRecordRepository,
	archive port.RawReportArchive,
	logger *slog.Logger,
) *ProfileRecorder {
	return &ProfileRecorder{
		matcher: matcher,
		records: records,
		archive: archive,
		logger:  logger,
	}
}

// Record ranks lenders for profile and upserts the credit record.
func (r *ProfileRecorder) Record(
	ctx context.Context,
	profile model.CreditProfile,
	loan model.LoanRequest,
) (dto.LenderMatchResponse, error) {
	now := time.Now().UTC()
	score := profile.ScoreOr(model.DefaultScore)

	// 1. Lenders.
	lenders, err := r.matcher.MatchForScore(ctx, score, profile.ScoreSource(), loan)
	if err != nil {
		return dto.LenderMatchResponse{}, fmt.Errorf("match lenders: %w", err)
	}

	// 2. Archive the raw report when configured.
	if r.archive != nil && len(profile.RawPayload()) > 0 {
		location, err := r.archive.Put(ctx, profile.Identity().PAN(), profile.RawPayload())
		if err != nil {
			r.logger.WarnContext(ctx, "archive raw report failed", "pan_suffix", profile.Identity().PANSuffix(), "error", err)
		} else {
			r.logger.DebugContext(ctx, "raw report archived", "location", location)
		}
	}

	// 3. Persist, most recent wins.
	if profile.Identity().PAN() == "" {
		return lenders, nil
	}
	matches, err := json.Marshal(map[string][]string{
		"approvedLenders": lenders.ApprovedLenders,
		"workingLenders":  lenders.WorkingLenders,
		"moreLenders":     lenders.MoreLenders,
	})
	if err != nil {
		return dto.LenderMatchResponse{}, fmt.Errorf("encode lender matches: %w", err)
	}
	emiDetails, err := json.Marshal(lenders.EMIData)
	if err != nil {
		return dto.LenderMatchResponse{}, fmt.Errorf("encode emi details: %w", err)
	}
	record := model.NewCreditRecord(profile, profile.ScoreSource().IsBureau(), matches, emiDetails, now)
	if err := r.records.Upsert(ctx, record); err != nil {
		return dto.LenderMatchResponse{}, fmt.Errorf("save credit record: %w", err)
	}
	return lenders, nil
}
