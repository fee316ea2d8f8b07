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
)

// VerifyConsentOTPUseCase resumes a consent-pending bureau session once the
// customer has entered the OTP.
type VerifyConsentOTPUseCase struct {
	pipeline *BureauPipeline
	primary  port.PrimaryBureauClient
	consent  consentCompleter
	logger   *slog.Logger
}

// NewVerifyConsentOTPUseCase wires dependencies.
func NewVerifyConsentOTPUseCase(
	pipeline *BureauPipeline,
	primary port.PrimaryBureauClient,
	sessions port.SessionStore,
	publisher port.EventPublisher,
	recorder *ProfileRecorder,
	logger *slog.Logger,
) *VerifyConsentOTPUseCase {
	return &VerifyConsentOTPUseCase{
		pipeline: pipeline,
		primary:  primary,
		consent: consentCompleter{
			sessions: sessionWriter{store: sessions, publisher: publisher, logger: logger},
			recorder: recorder,
		},
		logger: logger,
	}
}

// Execute verifies the OTP for req.TransactionID. Retries against a finished
// session replay its result.
func (uc *VerifyConsentOTPUseCase) Execute(ctx context.Context, req dto.VerifyOTPRequest) (dto.ConsentResponse, error) {
	txn, otp := strings.TrimSpace(req.TransactionID), strings.TrimSpace(req.OTP)
	if txn == "" || otp == "" {
		return dto.ConsentResponse{}, model.NewPipelineError(valueobject.ReasonInvalidRequest,
			"transaction id and otp are required", nil)
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
	case session.State().Equal(valueobject.SessionStatePolling):
		return dto.ConsentResponse{Status: dto.StatusPolling, TransactionID: txn, Message: session.Message()}, nil
	}

	// 2. Verify with the bureau.
	verification, err := uc.primary.VerifyOTP(ctx, txn, otp)
	if err != nil {
		return dto.ConsentResponse{}, model.NewPipelineError(valueobject.ReasonUpstreamUnavailable,
			"OTP verification unavailable", err)
	}
	switch verification.Outcome {
	case port.OTPInvalid:
		log.InfoContext(ctx, "invalid consent otp")
		return dto.ConsentResponse{}, model.NewPipelineError(valueobject.ReasonInvalidRequest, "Invalid OTP", nil)
	case port.OTPVendorError:
		log.WarnContext(ctx, "bureau rejected otp verification", "message", verification.Message)
		if err := uc.consent.fail(ctx, session, verification.Message); err != nil {
			return dto.ConsentResponse{}, err
		}
		return dto.ConsentResponse{}, model.NewPipelineError(valueobject.ReasonUpstreamUnavailable, verification.Message, nil)
	}

	// 3. Verified: re-enter the pipeline with the stored identity.
	result, err := uc.pipeline.Run(ctx, session.Identity(), DefaultApplicationID(session.Identity().PAN()))
	if err != nil {
		if failErr := uc.consent.fail(ctx, session, pipelineMessage(err)); failErr != nil {
			log.WarnContext(ctx, "record failed session", "error", failErr)
		}
		return dto.ConsentResponse{}, err
	}
	if result.Outcome == model.BureauOutcomeSuccess {
		return uc.consent.complete(ctx, session, result.Profile)
	}

	// 4. Still waiting on data-sharing consent: hand over to the poller.
	polling, err := session.StartPolling(time.Now().UTC())
	if err != nil {
		return dto.ConsentResponse{}, fmt.Errorf("start polling: %w", err)
	}
	if err := uc.consent.sessions.save(ctx, polling, session.Version()); err != nil {
		return uc.consent.replayOnConflict(ctx, txn, err)
	}
	log.InfoContext(ctx, "otp verified, consent polling started")
	return dto.ConsentResponse{Status: dto.StatusPollingStarted, TransactionID: txn, Message: polling.Message()}, nil
}

func pipelineMessage(err error) string {
	var pe *model.PipelineError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}
