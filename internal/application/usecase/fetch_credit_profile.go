package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bibbank/bureau-service/internal/application/dto"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// MessageConsentOTPSent is returned when the primary bureau holds the report
// until the customer completes an OTP.
const MessageConsentOTPSent = "OTP sent to customer."

// ProfileOutcome is the model-level result of FetchCreditProfileUseCase.
type ProfileOutcome struct {
	Status        string
	Profile       model.CreditProfile
	Identity      model.ApplicantIdentity
	Loan          model.LoanRequest
	TransactionID string
	Message       string
	FellBack      bool
}

// FetchCreditProfileUseCase decides the score source for an applicant and
// runs the bureau pipeline when a bureau check is needed.
type FetchCreditProfileUseCase struct {
	pipeline *BureauPipeline
	sessions sessionWriter
	logger   *slog.Logger
}

// NewFetchCreditProfileUseCase wires dependencies.
func NewFetchCreditProfileUseCase(
	pipeline *BureauPipeline,
	sessions port.SessionStore,
	publisher port.EventPublisher,
	logger *slog.Logger,
) *FetchCreditProfileUseCase {
	return &FetchCreditProfileUseCase{
		pipeline: pipeline,
		sessions: sessionWriter{store: sessions, publisher: publisher, logger: logger},
		logger:   logger,
	}
}

// Execute fetches a credit profile for req.
func (uc *FetchCreditProfileUseCase) Execute(ctx context.Context, req dto.CreditCheckRequest) (dto.CreditProfileResponse, error) {
	out, err := uc.Fetch(ctx, req)
	if err != nil {
		return dto.CreditProfileResponse{}, err
	}
	return toCreditProfileResponse(out), nil
}

// Fetch is Execute without the DTO mapping.
func (uc *FetchCreditProfileUseCase) Fetch(ctx context.Context, req dto.CreditCheckRequest) (ProfileOutcome, error) {
	now := time.Now().UTC()

	// 1. Build the identity and loan request.
	identity := model.NewApplicantIdentity(toIdentityFields(req.Applicant))
	loan, err := model.NewLoanRequest(req.Loan.Amount, req.Loan.TenureYears, req.Loan.PropertyName, req.Loan.Profession)
	if err != nil {
		return ProfileOutcome{}, model.NewPipelineError(valueobject.ReasonInvalidRequest, err.Error(), err)
	}
	out := ProfileOutcome{Identity: identity, Loan: loan}

	// 2. Skip both bureaus for a trusted or declined score.
	switch {
	case req.HasScore && req.UserScore > 0:
		profile, err := model.NewUserProvidedCreditProfile(identity, req.UserScore, now)
		if err != nil {
			return ProfileOutcome{}, model.NewPipelineError(valueobject.ReasonInvalidRequest, err.Error(), err)
		}
		out.Status, out.Profile, out.Message = dto.StatusCompleted, profile, "User-provided score; bureau check skipped"
		return out, nil
	case req.DeclineCheck:
		out.Status = dto.StatusCompleted
		out.Profile = model.NewDefaultCreditProfile(identity, now)
		out.Message = "Bureau check declined; default score applied"
		return out, nil
	}

	// 3. A bureau inquiry needs a complete identity.
	if err := identity.Validate(); err != nil {
		return ProfileOutcome{}, model.NewPipelineError(valueobject.ReasonInvalidRequest, err.Error(), err)
	}
	applicationID := req.ApplicationID
	if applicationID == "" {
		applicationID = DefaultApplicationID(identity.PAN())
	}

	// 4. Run the fallback state machine.
	result, err := uc.pipeline.Run(ctx, identity, applicationID)
	if err != nil {
		return ProfileOutcome{}, err
	}
	if result.Outcome == model.BureauOutcomeSuccess {
		out.Status, out.Profile, out.FellBack = dto.StatusCompleted, result.Profile, result.FellBack
		out.Identity = result.Profile.Identity()
		out.Message = "Credit score available. Report and lenders fetched."
		return out, nil
	}

	// 5. Consent pending: keep the session so the OTP call can resume it.
	session, err := model.NewBureauSession(result.TransactionID, valueobject.ProviderKindPrimaryBureau, identity, loan, now)
	if err != nil {
		return ProfileOutcome{}, fmt.Errorf("open session: %w", err)
	}
	message := result.Message
	if message == "" {
		message = MessageConsentOTPSent
	}
	session, err = session.RequireOTP(message, now)
	if err != nil {
		return ProfileOutcome{}, fmt.Errorf("require otp: %w", err)
	}
	if err := uc.openSession(ctx, session); err != nil {
		return ProfileOutcome{}, err
	}

	out.Status, out.TransactionID, out.Message = dto.StatusOTPRequired, session.TransactionID(), message
	return out, nil
}

// openSession stores a new OTP-pending session. The bureau may hand back a
// transaction id it issued before: a finished session under that id is
// replaced, a pending one is left alone.
func (uc *FetchCreditProfileUseCase) openSession(ctx context.Context, session model.BureauSession) error {
	err := uc.sessions.save(ctx, session, 0)
	if !errors.Is(err, port.ErrSessionConflict) {
		return err
	}
	existing, findErr := uc.sessions.find(ctx, session.TransactionID())
	if findErr != nil {
		return err
	}
	switch {
	case existing.State().IsTerminal():
		return uc.sessions.save(ctx, session.Supersede(existing), existing.Version())
	case existing.State().Equal(valueobject.SessionStateOtpRequired):
		return nil
	}
	return model.NewPipelineError(valueobject.ReasonConsentRequired,
		"consent for this transaction is already being confirmed", err)
}

// DefaultApplicationID is the primary bureau application id used when the
// caller supplies none.
func DefaultApplicationID(pan string) string {
	return "BASIC" + model.MaskedSuffix(pan)
}

func toIdentityFields(a dto.ApplicantDTO) model.IdentityFields {
	return model.IdentityFields{
		PAN:       a.PAN,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		DOB:       a.DOB,
		Gender:    a.Gender,
		Phone:     a.Phone,
		Email:     a.Email,
		Pincode:   a.Pincode,
		State:     a.State,
		City:      a.City,
		Address:   a.Address,
	}
}

func toCreditProfileResponse(out ProfileOutcome) dto.CreditProfileResponse {
	resp := dto.CreditProfileResponse{
		Status:        out.Status,
		TransactionID: out.TransactionID,
		FellBack:      out.FellBack,
		Message:       out.Message,
	}
	if out.Status == dto.StatusCompleted {
		if s, ok := out.Profile.Score(); ok {
			resp.Score = &s
		}
		resp.ScoreSource = out.Profile.ScoreSource().String()
		resp.ProviderKind = out.Profile.ProviderKind().String()
		resp.ActiveEMITotal = out.Profile.ActiveEMITotal()
	}
	return resp
}
