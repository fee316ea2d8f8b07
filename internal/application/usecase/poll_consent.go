package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/bureau-service/internal/application/dto"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
	"github.com/bibbank/bureau-service/pkg/observability"
)

// MessageConsentNotCompleted is reported when the polling budget runs out.
const MessageConsentNotCompleted = "Consent not completed and score not found after polling."

// PollPolicy bounds consent polling. Attempts × Interval is the only timeout.
type PollPolicy struct {
	Attempts int
	Interval time.Duration
}

// DefaultPollPolicy polls five times, fifteen seconds apart.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Attempts: 5, Interval: 15 * time.Second}
}

// PollConsentUseCase waits for data-sharing consent on a verified session.
type PollConsentUseCase struct {
	pipeline *BureauPipeline
	primary  port.PrimaryBureauClient
	consent  consentCompleter
	policy   PollPolicy
	metrics  *observability.BureauMetrics
	logger   *slog.Logger
}

// NewPollConsentUseCase wires dependencies. Non-positive policy values fall
// back to DefaultPollPolicy.
func NewPollConsentUseCase(
	pipeline *BureauPipeline,
	primary port.PrimaryBureauClient,
	sessions port.SessionStore,
	publisher port.EventPublisher,
	recorder *ProfileRecorder,
	policy PollPolicy,
	metrics *observability.BureauMetrics,
	logger *slog.Logger,
) *PollConsentUseCase {
	def := DefaultPollPolicy()
	if policy.Attempts <= 0 {
		policy.Attempts = def.Attempts
	}
	if policy.Interval <= 0 {
		policy.Interval = def.Interval
	}
	return &PollConsentUseCase{
		pipeline: pipeline,
		primary:  primary,
		consent: consentCompleter{
			sessions: sessionWriter{store: sessions, publisher: publisher, logger: logger},
			recorder: recorder,
		},
		policy:  policy,
		metrics: metrics,
		logger:  logger,
	}
}

// Execute polls until consent completes, the score shows up early, the
// attempt budget is spent or ctx is cancelled. Running out of attempts is
// reported as not_completed, not as an error.
func (uc *PollConsentUseCase) Execute(ctx context.Context, req dto.PollConsentRequest) (dto.ConsentResponse, error) {
	txn := strings.TrimSpace(req.TransactionID)
	if txn == "" {
		return dto.ConsentResponse{}, model.NewPipelineError(valueobject.ReasonInvalidRequest, "transaction id is required", nil)
	}
	log := uc.logger.With("transaction_id", txn)

	// 1. Load the session.
	session, err := uc.consent.sessions.find(ctx, txn)
	if err != nil {
		return dto.ConsentResponse{}, err
	}
	switch {
	case session.State().IsTerminal():
		return uc.consent.replay(ctx, session)
	case !session.State().Equal(valueobject.SessionStatePolling):
		return dto.ConsentResponse{Status: dto.StatusOTPRequired, TransactionID: txn, Message: session.Message()}, nil
	}

	identity := session.Identity()

	// 2. Poll.
	for attempt := 1; attempt <= uc.policy.Attempts; attempt++ {
		status, err := uc.primary.ConsentStatus(ctx, txn)
		switch {
		case err != nil:
			log.WarnContext(ctx, "consent status check failed", "attempt", attempt, "error", err)
		case status.Complete:
			log.InfoContext(ctx, "consent completed", "attempt", attempt)
			result, err := uc.pipeline.Run(ctx, identity, DefaultApplicationID(identity.PAN()))
			if err != nil {
				uc.metrics.ConsentPoll(ctx, "failed")
				if failErr := uc.consent.fail(ctx, session, pipelineMessage(err)); failErr != nil {
					log.WarnContext(ctx, "record failed session", "error", failErr)
				}
				return dto.ConsentResponse{}, err
			}
			if result.Outcome == model.BureauOutcomeSuccess {
				uc.metrics.ConsentPoll(ctx, "completed")
				return uc.finish(ctx, session, result.Profile, attempt)
			}
		}

		// Early exit when the score is released before consent flips.
		early := uc.primary.FetchReportByPAN(ctx, identity.PAN())
		if early.IsSuccess() {
			profile, err := uc.pipeline.AcceptReport(ctx, uuid.NewString(), early, identity)
			if err == nil {
				log.InfoContext(ctx, "score available before consent completed", "attempt", attempt)
				uc.metrics.ConsentPoll(ctx, "early_score")
				return uc.finish(ctx, session, profile, attempt)
			}
			log.WarnContext(ctx, "early report unusable", "attempt", attempt, "error", err)
		}

		if attempt == uc.policy.Attempts {
			break
		}
		if err := sleep(ctx, uc.policy.Interval); err != nil {
			uc.metrics.ConsentPoll(ctx, "cancelled")
			return dto.ConsentResponse{}, fmt.Errorf("poll consent: %w", err)
		}
	}

	// 3. Budget spent.
	uc.metrics.ConsentPoll(ctx, "timed_out")
	expired, err := session.Expire(uc.policy.Attempts, time.Now().UTC())
	if err != nil {
		return dto.ConsentResponse{}, fmt.Errorf("expire session: %w", err)
	}
	if err := uc.consent.sessions.save(ctx, expired, session.Version()); err != nil {
		return uc.consent.replayOnConflict(ctx, txn, err)
	}
	log.InfoContext(ctx, "consent polling timed out", "attempts", uc.policy.Attempts)
	return dto.ConsentResponse{
		Status:        dto.StatusNotCompleted,
		TransactionID: txn,
		Message:       MessageConsentNotCompleted,
		Attempts:      uc.policy.Attempts,
	}, nil
}

func (uc *PollConsentUseCase) finish(
	ctx context.Context,
	session model.BureauSession,
	profile model.CreditProfile,
	attempt int,
) (dto.ConsentResponse, error) {
	resp, err := uc.consent.complete(ctx, session, profile)
	if err != nil {
		return dto.ConsentResponse{}, err
	}
	resp.Attempts = attempt
	return resp, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
