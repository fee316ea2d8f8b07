package usecase

import (
	"context"
	"log/slog"

	"github.com/bibbank/bureau-service/internal/application/dto"
)

// AssessEligibilityUseCase runs an eligibility check end to end: score
// source, bureau fallback, lender ranking and persistence.
type AssessEligibilityUseCase struct {
	fetch    *FetchCreditProfileUseCase
	recorder *ProfileRecorder
	logger   *slog.Logger
}

// NewAssessEligibilityUseCase wires dependencies.
func NewAssessEligibilityUseCase(
	fetch *FetchCreditProfileUseCase,
	recorder *ProfileRecorder,
	logger *slog.Logger,
) *AssessEligibilityUseCase {
	return &AssessEligibilityUseCase{
		fetch:    fetch,
		recorder: recorder,
		logger:   logger,
	}
}

// Execute assesses req. A consent-pending bureau returns otp_required with
// the transaction id to verify against.
func (uc *AssessEligibilityUseCase) Execute(ctx context.Context, req dto.CreditCheckRequest) (dto.EligibilityResponse, error) {
	// 1. Credit profile.
	out, err := uc.fetch.Fetch(ctx, req)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}
	if out.Status == dto.StatusOTPRequired {
		return dto.EligibilityResponse{
			Status:        dto.StatusOTPRequired,
			Message:       out.Message,
			TransactionID: out.TransactionID,
		}, nil
	}

	// 2. Lenders and persistence.
	lenders, err := uc.recorder.Record(ctx, out.Profile, out.Loan)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}

	uc.logger.InfoContext(ctx, "eligibility assessed",
		"pan_suffix", out.Identity.PANSuffix(),
		"score_source", out.Profile.ScoreSource().String(),
		"lenders", len(lenders.EMIData),
	)
	profile := toCreditProfileResponse(out)
	return dto.EligibilityResponse{
		Status:         dto.StatusCompleted,
		Message:        out.Message,
		Score:          profile.Score,
		ScoreSource:    profile.ScoreSource,
		ProviderKind:   profile.ProviderKind,
		ActiveEMITotal: profile.ActiveEMITotal,
		FellBack:       out.FellBack,
		Lenders:        &lenders,
	}, nil
}
