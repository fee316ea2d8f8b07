package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bibbank/bureau-service/internal/application/dto"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/service"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// MatchLendersUseCase ranks the lenders an applicant is eligible for.
type MatchLendersUseCase struct {
	lenders port.LenderRepository
	records port.CreditRecordRepository
	ranking *service.LenderRankingEngine
	logger  *slog.Logger
}

// NewMatchLendersUseCase wires dependencies.
func NewMatchLendersUseCase(
	lenders port.LenderRepository,
	records port.CreditRecordRepository,
	ranking *service.LenderRankingEngine,
	logger *slog.Logger,
) *MatchLendersUseCase {
	return &MatchLendersUseCase{
		lenders: lenders,
		records: records,
		ranking: ranking,
		logger:  logger,
	}
}

// Execute resolves the score to match against (stored score for the PAN,
// else the caller's score, else the default score) and ranks lenders.
func (uc *MatchLendersUseCase) Execute(ctx context.Context, req dto.MatchLendersRequest) (dto.LenderMatchResponse, error) {
	loan, err := model.NewLoanRequest(req.LoanAmount, req.TenureYears, req.PropertyName, "")
	if err != nil {
		return dto.LenderMatchResponse{}, model.NewPipelineError(valueobject.ReasonInvalidRequest, err.Error(), err)
	}

	// 1. Resolve the score.
	score, source, err := uc.resolveScore(ctx, req)
	if err != nil {
		return dto.LenderMatchResponse{}, err
	}

	// 2. Rank.
	return uc.MatchForScore(ctx, score, source, loan)
}

func (uc *MatchLendersUseCase) resolveScore(ctx context.Context, req dto.MatchLendersRequest) (int, valueobject.ScoreSource, error) {
	if req.PAN != "" {
		record, err := uc.records.FindLatestByPAN(ctx, model.NewApplicantIdentity(model.IdentityFields{PAN: req.PAN}).PAN())
		switch {
		case err == nil && record.Score != nil && *record.Score > 0:
			source, srcErr := valueobject.NewScoreSource(record.ScoreSource)
			if srcErr != nil {
				source = valueobject.ScoreSource{}
			}
			return *record.Score, source, nil
		case err != nil && !errors.Is(err, port.ErrNotFound):
			return 0, valueobject.ScoreSource{}, fmt.Errorf("find stored score: %w", err)
		}
	}
	if req.Score > 0 {
		return req.Score, valueobject.ScoreSourceUserProvided, nil
	}
	return model.DefaultScore, valueobject.ScoreSourceDefault, nil
}

// MatchForScore ranks lenders for a known score and computes each lender's
// EMI for loan.
func (uc *MatchLendersUseCase) MatchForScore(
	ctx context.Context,
	score int,
	source valueobject.ScoreSource,
	loan model.LoanRequest,
) (dto.LenderMatchResponse, error) {
	// 1. Score-eligible lenders.
	eligible, err := uc.lenders.FindEligible(ctx, score)
	if err != nil {
		return dto.LenderMatchResponse{}, fmt.Errorf("find eligible lenders: %w", err)
	}

	// 2. Lenders pre-approved for the property, if one was named.
	var approved []model.Lender
	if canonical := model.CanonicalName(loan.PropertyName); canonical != "" {
		approved, err = uc.lenders.FindApprovedForProject(ctx, canonical)
		if err != nil {
			uc.logger.WarnContext(ctx, "approved lender lookup failed", "property", loan.PropertyName, "error", err)
			approved = nil
		}
	}

	// 3. Rank and price.
	ranked := uc.ranking.Rank(eligible, approved)
	return toLenderMatchResponse(score, source, ranked, loan), nil
}

func toLenderMatchResponse(score int, source valueobject.ScoreSource, ranked model.RankedLenders, loan model.LoanRequest) dto.LenderMatchResponse {
	resp := dto.LenderMatchResponse{
		Score:           score,
		ScoreSource:     source.String(),
		ApprovedLenders: lenderNames(ranked.Approved),
		WorkingLenders:  lenderNames(ranked.Working),
		MoreLenders:     lenderNames(ranked.More),
		EMIData:         make([]dto.LenderOfferDTO, 0, ranked.Len()),
	}
	tiers := []struct {
		tier    model.LenderTier
		lenders []model.Lender
	}{
		{model.TierApproved, ranked.Approved},
		{model.TierWorking, ranked.Working},
		{model.TierMore, ranked.More},
	}
	for _, t := range tiers {
		for _, l := range t.lenders {
			emi, ok := service.CalculateEMI(loan.Amount, l.HomeLoanROI, loan.TenureYears)
			resp.EMIData = append(resp.EMIData, toLenderOfferDTO(t.tier, model.LenderOffer{Lender: l, EMI: emi, EMIAvailable: ok}))
		}
	}
	return resp
}

func toLenderOfferDTO(tier model.LenderTier, offer model.LenderOffer) dto.LenderOfferDTO {
	l := offer.Lender
	return dto.LenderOfferDTO{
		Lender:           l.Name,
		Tier:             string(tier),
		EMI:              service.FormatEMI(offer.EMI, offer.EMIAvailable),
		HomeLoanROI:      orUnavailable(l.HomeLoanROI),
		LenderType:       orUnavailable(l.Type),
		Remarks:          orUnavailable(l.Remarks),
		HomeLoanLTV:      orUnavailable(l.HomeLoanLTV),
		LoanApprovalTime: orUnavailable(l.ApprovalTime),
		ProcessingTime:   orUnavailable(l.ProcessingTime),
		MinLoanAmount:    orUnavailable(l.MinimumLoan),
		MaxLoanAmount:    orUnavailable(l.MaximumLoan),
	}
}

func lenderNames(ls []model.Lender) []string {
	names := make([]string, 0, len(ls))
	for _, l := range ls {
		names = append(names, l.Name)
	}
	return names
}

func orUnavailable(s string) string {
	if s == "" {
		return service.EMIUnavailable
	}
	return s
}
