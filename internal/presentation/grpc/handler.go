package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/bureau-service/internal/application/dto"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Use-case seams
// ---------------------------------------------------------------------------

type EligibilityAssessor interface {
	Execute(ctx context.Context, req dto.CreditCheckRequest) (dto.EligibilityResponse, error)
}

type OTPVerifier interface {
	Execute(ctx context.Context, req dto.VerifyOTPRequest) (dto.ConsentResponse, error)
}

type ConsentPoller interface {
	Execute(ctx context.Context, req dto.PollConsentRequest) (dto.ConsentResponse, error)
}

type LenderMatcher interface {
	Execute(ctx context.Context, req dto.MatchLendersRequest) (dto.LenderMatchResponse, error)
}

type ReportGenerator interface {
	Execute(ctx context.Context, req dto.CreditReportRequest) (dto.CreditReportResponse, error)
}

// UseCases groups the operations exposed over gRPC.
type UseCases struct {
	Assess  EligibilityAssessor
	Verify  OTPVerifier
	Poll    ConsentPoller
	Lenders LenderMatcher
	Report  ReportGenerator
}

// ---------------------------------------------------------------------------
// BureauHandler
// ---------------------------------------------------------------------------

// BureauHandler implements BureauServiceServer on top of the use cases.
type BureauHandler struct {
	UnimplementedBureauServiceServer
	uc     UseCases
	logger *slog.Logger
}

var _ BureauServiceServer = (*BureauHandler)(nil)

// NewBureauHandler creates a new handler with all use-case dependencies.
func NewBureauHandler(uc UseCases, logger *slog.Logger) *BureauHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BureauHandler{uc: uc, logger: logger}
}

func (h *BureauHandler) AssessEligibility(ctx context.Context, req *dto.CreditCheckRequest) (*dto.EligibilityResponse, error) {
	resp, err := h.uc.Assess.Execute(ctx, *req)
	return respond(ctx, h.logger, "AssessEligibility", resp, err)
}

func (h *BureauHandler) VerifyOTP(ctx context.Context, req *dto.VerifyOTPRequest) (*dto.ConsentResponse, error) {
	resp, err := h.uc.Verify.Execute(ctx, *req)
	return respond(ctx, h.logger, "VerifyOTP", resp, err)
}

func (h *BureauHandler) PollConsent(ctx context.Context, req *dto.PollConsentRequest) (*dto.ConsentResponse, error) {
	resp, err := h.uc.Poll.Execute(ctx, *req)
	return respond(ctx, h.logger, "PollConsent", resp, err)
}

func (h *BureauHandler) MatchLenders(ctx context.Context, req *dto.MatchLendersRequest) (*dto.LenderMatchResponse, error) {
	resp, err := h.uc.Lenders.Execute(ctx, *req)
	return respond(ctx, h.logger, "MatchLenders", resp, err)
}

func (h *BureauHandler) GetCreditReport(ctx context.Context, req *dto.CreditReportRequest) (*dto.CreditReportResponse, error) {
	resp, err := h.uc.Report.Execute(ctx, *req)
	return respond(ctx, h.logger, "GetCreditReport", resp, err)
}

func respond[T any](ctx context.Context, logger *slog.Logger, method string, resp T, err error) (*T, error) {
	if err != nil {
		st := StatusFromError(err)
		if st.Code() == codes.Internal {
			logger.ErrorContext(ctx, "rpc failed", "method", method, "error", err)
		}
		return nil, st.Err()
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

// StatusFromError maps a use-case error onto a gRPC status. Pipeline
// failures keep their reason code at the front of the message.
func StatusFromError(err error) *status.Status {
	switch {
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, "deadline exceeded")
	}
	var pe *model.PipelineError
	if !errors.As(err, &pe) {
		return status.New(codes.Internal, "internal error")
	}
	return status.New(reasonCode(pe.Reason), pe.Reason.String()+": "+pe.Message)
}

func reasonCode(r valueobject.ReasonCode) codes.Code {
	switch r {
	case valueobject.ReasonInvalidRequest:
		return codes.InvalidArgument
	case valueobject.ReasonIdentityNotFound:
		return codes.NotFound
	case valueobject.ReasonIdentityAmbiguous, valueobject.ReasonConsentRequired:
		return codes.FailedPrecondition
	case valueobject.ReasonConsentTimedOut:
		return codes.DeadlineExceeded
	case valueobject.ReasonUpstreamUnavailable, valueobject.ReasonScoreUnavailable:
		return codes.Unavailable
	case valueobject.ReasonMalformedUpstreamPayload:
		return codes.DataLoss
	default:
		return codes.Internal
	}
}
