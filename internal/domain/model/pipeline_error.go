package model

import (
	"errors"
	"fmt"

	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// PipelineError is a stage-fatal failure carrying a reason code callers can
// branch on and a message fit for the end user.
type PipelineError struct {
	Reason  valueobject.ReasonCode
	Message string
	Err     error
}

// NewPipelineError builds a PipelineError wrapping cause (which may be nil).
func NewPipelineError(reason valueobject.ReasonCode, message string, cause error) *PipelineError {
	return &PipelineError{Reason: reason, Message: message, Err: cause}
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// ReasonOf extracts the reason code from err, if it carries one.
func ReasonOf(err error) (valueobject.ReasonCode, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Reason, true
	}
	return valueobject.ReasonCode{}, false
}

// IsReason reports whether err is a PipelineError with the given reason.
func IsReason(err error, reason valueobject.ReasonCode) bool {
	r, ok := ReasonOf(err)
	return ok && r.Equal(reason)
}

// ---------------------------------------------------------------------------
// BureauResult – tagged outcome of a single bureau attempt
// ---------------------------------------------------------------------------

// BureauOutcome discriminates a BureauResult.
type BureauOutcome int

const (
	BureauOutcomeFailed BureauOutcome = iota
	BureauOutcomeSuccess
	BureauOutcomeNeedsConsent
)

func (o BureauOutcome) String() string {
	switch o {
	case BureauOutcomeSuccess:
		return "success"
	case BureauOutcomeNeedsConsent:
		return "needs_consent"
	default:
		return "failed"
	}
}

// FailureClass says why a bureau attempt failed.
type FailureClass string

const (
	FailureTransport    FailureClass = "transport"
	FailureVendorError  FailureClass = "vendor_error"
	FailureInternalFlag FailureClass = "internal_error_flag"
	FailureMissingScore FailureClass = "missing_score"
	FailureMalformed    FailureClass = "malformed_payload"
)

// BureauResult is what a bureau client returns instead of raising for
// expected branches.
type BureauResult struct {
	Outcome       BureauOutcome
	Provider      valueobject.ProviderKind
	RawPayload    []byte
	Score         int
	TransactionID string
	Failure       FailureClass
	Reason        string
}

// BureauSuccess builds a successful result.
func BureauSuccess(provider valueobject.ProviderKind, score int, raw []byte) BureauResult {
	return BureauResult{Outcome: BureauOutcomeSuccess, Provider: provider, Score: score, RawPayload: raw}
}

// BureauNeedsConsent builds a consent-pending result.
func BureauNeedsConsent(provider valueobject.ProviderKind, transactionID string, raw []byte) BureauResult {
	return BureauResult{Outcome: BureauOutcomeNeedsConsent, Provider: provider, TransactionID: transactionID, RawPayload: raw}
}

// BureauFailed builds a failed result.
func BureauFailed(provider valueobject.ProviderKind, class FailureClass, reason string) BureauResult {
	return BureauResult{Outcome: BureauOutcomeFailed, Provider: provider, Failure: class, Reason: reason}
}

func (r BureauResult) IsSuccess() bool      { return r.Outcome == BureauOutcomeSuccess }
func (r BureauResult) IsNeedsConsent() bool { return r.Outcome == BureauOutcomeNeedsConsent }
func (r BureauResult) IsFailed() bool       { return r.Outcome == BureauOutcomeFailed }
