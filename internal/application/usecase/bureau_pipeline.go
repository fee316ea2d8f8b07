package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/bureau-service/internal/domain/event"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/service"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
	"github.com/bibbank/bureau-service/pkg/observability"
)

// PipelineResult is the terminal state of one run of the bureau fallback
// state machine.
type PipelineResult struct {
	Outcome        model.BureauOutcome
	Profile        model.CreditProfile
	TransactionID  string
	Message        string
	FellBack       bool
	PrimaryFailure model.FailureClass
}

// BureauPipeline tries the primary bureau, then the secondary bureau when the
// primary failed. A consent-pending primary answer is returned as is; it
// never triggers the fallback.
type BureauPipeline struct {
	primary    port.PrimaryBureauClient
	secondary  port.SecondaryBureauClient
	normalizer *service.ProfileNormalizer
	publisher  port.EventPublisher
	metrics    *observability.BureauMetrics
	logger     *slog.Logger
}

// NewBureauPipeline wires dependencies.
func NewBureauPipeline(
	primary port.PrimaryBureauClient,
	secondary port.SecondaryBureauClient,
	normalizer *service.ProfileNormalizer,
	publisher port.EventPublisher,
	metrics *observability.BureauMetrics,
	logger *slog.Logger,
) *BureauPipeline {
	return &BureauPipeline{
		primary:    primary,
		secondary:  secondary,
		normalizer: normalizer,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run executes TryPrimary and, on failure, TrySecondary for identity.
func (p *BureauPipeline) Run(ctx context.Context, identity model.ApplicantIdentity, applicationID string) (PipelineResult, error) {
	inquiryID := uuid.NewString()
	log := p.logger.With("inquiry_id", inquiryID, "pan_suffix", identity.PANSuffix())

	// 1. Primary bureau.
	primary := p.primary.Initiate(ctx, identity, applicationID)
	p.metrics.BureauCall(ctx, valueobject.ProviderKindPrimaryBureau.String(), primary.Outcome.String())

	switch {
	case primary.IsNeedsConsent():
		log.InfoContext(ctx, "primary bureau requires consent", "transaction_id", primary.TransactionID)
		return PipelineResult{
			Outcome:       model.BureauOutcomeNeedsConsent,
			TransactionID: primary.TransactionID,
			Message:       primary.Reason,
		}, nil
	case primary.IsSuccess():
		profile, err := p.AcceptReport(ctx, inquiryID, primary, identity)
		if err == nil {
			return PipelineResult{Outcome: model.BureauOutcomeSuccess, Profile: profile}, nil
		}
		primary = model.BureauFailed(primary.Provider, model.FailureMalformed, err.Error())
	}

	// 2. Fallback to the secondary bureau. The primary is never retried.
	log.WarnContext(ctx, "primary bureau failed, falling back",
		"failure_class", string(primary.Failure),
		"reason", primary.Reason,
	)
	p.metrics.Fallback(ctx, string(primary.Failure))
	p.publish(ctx, event.NewBureauFallbackTriggered(
		inquiryID, identity.PANSuffix(), string(primary.Failure), primary.Reason, time.Now().UTC(),
	))

	secondary := p.secondary.FetchReport(ctx, identity)
	p.metrics.BureauCall(ctx, valueobject.ProviderKindSecondaryBureau.String(), secondary.Outcome.String())

	if !secondary.IsSuccess() {
		cause := fmt.Errorf("primary %s (%s); secondary %s (%s)",
			primary.Failure, primary.Reason, secondary.Failure, secondary.Reason)
		log.WarnContext(ctx, "secondary bureau failed", "failure_class", string(secondary.Failure), "reason", secondary.Reason)
		return PipelineResult{}, model.NewPipelineError(valueobject.ReasonScoreUnavailable,
			"credit score unavailable from both bureaus", cause)
	}

	profile, err := p.AcceptReport(ctx, inquiryID, secondary, identity)
	if err != nil {
		return PipelineResult{}, model.NewPipelineError(valueobject.ReasonScoreUnavailable,
			"credit score unavailable from both bureaus", err)
	}
	return PipelineResult{
		Outcome:        model.BureauOutcomeSuccess,
		Profile:        profile,
		FellBack:       true,
		PrimaryFailure: primary.Failure,
	}, nil
}

// AcceptReport normalizes a successful bureau result into a profile whose
// identity is the request identity overlaid with the bureau's own fields,
// and publishes CreditProfileCompleted.
func (p *BureauPipeline) AcceptReport(
	ctx context.Context,
	inquiryID string,
	result model.BureauResult,
	identity model.ApplicantIdentity,
) (model.CreditProfile, error) {
	normalized, err := p.normalizer.Normalize(result.RawPayload, result.Provider)
	if err != nil {
		return model.CreditProfile{}, fmt.Errorf("normalize %s payload: %w", result.Provider, err)
	}

	params := normalized.Params()
	if params.Score == nil && result.Score > 0 {
		score := result.Score
		params.Score = &score
		params.ScoreSource = result.Provider.ScoreSource()
	}
	params.Identity = identity.Merge(normalized.Identity())

	profile, err := model.NewCreditProfile(params)
	if err != nil {
		return model.CreditProfile{}, fmt.Errorf("build profile: %w", err)
	}
	if _, ok := profile.Score(); !ok {
		return model.CreditProfile{}, model.NewPipelineError(valueobject.ReasonScoreUnavailable,
			"bureau report carries no score", nil)
	}

	p.publish(ctx, profileCompleted(inquiryID, profile))
	return profile, nil
}

func (p *BureauPipeline) publish(ctx context.Context, evts ...event.DomainEvent) {
	if err := p.publisher.Publish(ctx, evts...); err != nil {
		p.logger.WarnContext(ctx, "publish events failed", "error", err)
	}
}

func profileCompleted(inquiryID string, profile model.CreditProfile) event.CreditProfileCompleted {
	var score *int
	if s, ok := profile.Score(); ok {
		score = &s
	}
	return event.NewCreditProfileCompleted(
		inquiryID,
		profile.Identity().PANSuffix(),
		score,
		profile.ScoreSource().String(),
		profile.ProviderKind().String(),
		profile.ActiveEMITotal(),
		time.Now().UTC(),
	)
}
