package usecase

import (
	"context"
	"log/slog"

	"github.com/bibbank/bureau-service/internal/application/dto"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// PhoneConsentUseCase gates an eligibility check behind a phone OTP and
// resolves the applicant from the verified phone number.
type PhoneConsentUseCase struct {
	otp     port.OTPGateway
	resolve *ResolveIdentityUseCase
	assess  *AssessEligibilityUseCase
	logger  *slog.Logger
}

// NewPhoneConsentUseCase wires dependencies.
func NewPhoneConsentUseCase(
	otp port.OTPGateway,
	resolve *ResolveIdentityUseCase,
	assess *AssessEligibilityUseCase,
	logger *slog.Logger,
) *PhoneConsentUseCase {
	return &PhoneConsentUseCase{
		otp:     otp,
		resolve: resolve,
		assess:  assess,
		logger:  logger,
	}
}

// SendOTP asks the gateway to send an OTP to req.Phone.
func (uc *PhoneConsentUseCase) SendOTP(ctx context.Context, req dto.PhoneOTPRequest) (dto.PhoneOTPResponse, error) {
	return uc.dispatch(ctx, req.Phone, uc.otp.Send, "OTP sent")
}

// ResendOTP asks the gateway to send the OTP again.
func (uc *PhoneConsentUseCase) ResendOTP(ctx context.Context, req dto.PhoneOTPRequest) (dto.PhoneOTPResponse, error) {
	return uc.dispatch(ctx, req.Phone, uc.otp.Resend, "OTP resent")
}

func (uc *PhoneConsentUseCase) dispatch(
	ctx context.Context,
	rawPhone string,
	send func(context.Context, string) (bool, error),
	okMessage string,
) (dto.PhoneOTPResponse, error) {
	phone, err := requirePhone(rawPhone)
	if err != nil {
		return dto.PhoneOTPResponse{}, err
	}
	ok, err := send(ctx, phone)
	if err != nil {
		return dto.PhoneOTPResponse{}, model.NewPipelineError(valueobject.ReasonUpstreamUnavailable, "OTP gateway unavailable", err)
	}
	if !ok {
		return dto.PhoneOTPResponse{Success: false, Message: "OTP could not be sent"}, nil
	}
	return dto.PhoneOTPResponse{Success: true, Message: okMessage}, nil
}

// VerifyPhone checks the OTP, resolves the applicant behind the phone and
// runs the eligibility check for them.
func (uc *PhoneConsentUseCase) VerifyPhone(ctx context.Context, req dto.VerifyPhoneRequest) (dto.EligibilityResponse, error) {
	phone, err := requirePhone(req.Phone)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}

	// 1. OTP gate.
	ok, err := uc.otp.Verify(ctx, phone, req.OTP)
	if err != nil {
		return dto.EligibilityResponse{}, model.NewPipelineError(valueobject.ReasonUpstreamUnavailable, "OTP gateway unavailable", err)
	}
	if !ok {
		return dto.EligibilityResponse{}, model.NewPipelineError(valueobject.ReasonInvalidRequest, "Invalid OTP", nil)
	}

	// 2. Identity.
	resolved, err := uc.resolve.Resolve(ctx, phone, req.PAN)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}

	// 3. Eligibility.
	f := resolved.Identity.Fields()
	resp, err := uc.assess.Execute(ctx, dto.CreditCheckRequest{
		Applicant: dto.ApplicantDTO{
			PAN:       f.PAN,
			FirstName: f.FirstName,
			LastName:  f.LastName,
			DOB:       f.DOB,
			Gender:    f.Gender,
			Phone:     f.Phone,
			Email:     f.Email,
			Pincode:   f.Pincode,
			State:     f.State,
			City:      f.City,
			Address:   f.Address,
		},
		Loan:         req.Loan,
		DeclineCheck: req.DeclineCheck,
	})
	if err != nil {
		return dto.EligibilityResponse{}, err
	}
	resp.Degraded = resolved.Degraded
	return resp, nil
}

func requirePhone(raw string) (string, error) {
	phone := model.NewApplicantIdentity(model.IdentityFields{Phone: raw}).Phone()
	if phone == "" {
		return "", model.NewPipelineError(valueobject.ReasonInvalidRequest, "phone is required", nil)
	}
	return phone, nil
}
