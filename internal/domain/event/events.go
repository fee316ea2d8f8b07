package event

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/bureau-service/pkg/events"
)

// DomainEvent is an alias for the shared pkg/events.DomainEvent interface.
type DomainEvent = events.DomainEvent

const (
	TypeInquiryInitiated  = "bureau.inquiry.initiated"
	TypeConsentRequested  = "bureau.consent.requested"
	TypePollingStarted    = "bureau.consent.polling_started"
	TypeFallbackTriggered = "bureau.fallback.triggered"
	TypeProfileCompleted  = "bureau.inquiry.completed"
	TypeConsentTimedOut   = "bureau.consent.timed_out"
	TypeInquiryFailed     = "bureau.inquiry.failed"

	aggregateSession = "BureauSession"
	aggregateInquiry = "CreditInquiry"
)

// ---------------------------------------------------------------------------
// Session events
// ---------------------------------------------------------------------------

// BureauInquiryInitiated is raised when a session is opened with a bureau.
type BureauInquiryInitiated struct {
	events.BaseEvent
	Provider  string `json:"provider"`
	PANSuffix string `json:"pan_suffix"`
}

func NewBureauInquiryInitiated(transactionID, provider, panSuffix string, now time.Time) BureauInquiryInitiated {
	return BureauInquiryInitiated{
		BaseEvent: events.NewBaseEvent(TypeInquiryInitiated, transactionID, aggregateSession, now),
		Provider:  provider,
		PANSuffix: panSuffix,
	}
}

// ConsentRequested is raised when the bureau holds the report until the
// customer completes an OTP.
type ConsentRequested struct {
	events.BaseEvent
	TransactionID string `json:"transaction_id"`
	Provider      string `json:"provider"`
	PANSuffix     string `json:"pan_suffix"`
}

func NewConsentRequested(transactionID, provider, panSuffix string, now time.Time) ConsentRequested {
	return ConsentRequested{
		BaseEvent:     events.NewBaseEvent(TypeConsentRequested, transactionID, aggregateSession, now),
		TransactionID: transactionID,
		Provider:      provider,
		PANSuffix:     panSuffix,
	}
}

// ConsentPollingStarted is raised once the OTP is verified and the report
// still waits on data-sharing consent. Consumers run the consent poller.
type ConsentPollingStarted struct {
	events.BaseEvent
	TransactionID string `json:"transaction_id"`
	PANSuffix     string `json:"pan_suffix"`
}

func NewConsentPollingStarted(transactionID, panSuffix string, now time.Time) ConsentPollingStarted {
	return ConsentPollingStarted{
		BaseEvent:     events.NewBaseEvent(TypePollingStarted, transactionID, aggregateSession, now),
		TransactionID: transactionID,
		PANSuffix:     panSuffix,
	}
}

// ConsentTimedOut is raised when the polling budget is exhausted.
type ConsentTimedOut struct {
	events.BaseEvent
	Attempts int `json:"attempts"`
}

func NewConsentTimedOut(transactionID string, attempts int, now time.Time) ConsentTimedOut {
	return ConsentTimedOut{
		BaseEvent: events.NewBaseEvent(TypeConsentTimedOut, transactionID, aggregateSession, now),
		Attempts:  attempts,
	}
}

// BureauInquiryFailed is raised when a session ends without a score.
type BureauInquiryFailed struct {
	events.BaseEvent
	Reason string `json:"reason"`
}

func NewBureauInquiryFailed(transactionID, reason string, now time.Time) BureauInquiryFailed {
	return BureauInquiryFailed{
		BaseEvent: events.NewBaseEvent(TypeInquiryFailed, transactionID, aggregateSession, now),
		Reason:    reason,
	}
}

// ---------------------------------------------------------------------------
// Inquiry events
// ---------------------------------------------------------------------------

// BureauFallbackTriggered is raised when the primary bureau failed and the
// secondary bureau is being tried.
type BureauFallbackTriggered struct {
	events.BaseEvent
	PANSuffix    string `json:"pan_suffix"`
	FailureClass string `json:"failure_class"`
	Reason       string `json:"reason"`
}

func NewBureauFallbackTriggered(inquiryID, panSuffix, failureClass, reason string, now time.Time) BureauFallbackTriggered {
	return BureauFallbackTriggered{
		BaseEvent:    events.NewBaseEvent(TypeFallbackTriggered, inquiryID, aggregateInquiry, now),
		PANSuffix:    panSuffix,
		FailureClass: failureClass,
		Reason:       reason,
	}
}

// CreditProfileCompleted is raised once a canonical profile exists.
type CreditProfileCompleted struct {
	events.BaseEvent
	PANSuffix      string          `json:"pan_suffix"`
	Score          *int            `json:"score"`
	ScoreSource    string          `json:"score_source"`
	ProviderKind   string          `json:"provider_kind"`
	ActiveEMITotal decimal.Decimal `json:"active_emi_total"`
}

func NewCreditProfileCompleted(
	inquiryID, panSuffix string,
	score *int, scoreSource, providerKind string,
	activeEMITotal decimal.Decimal, now time.Time,
) CreditProfileCompleted {
	return CreditProfileCompleted{
		BaseEvent:      events.NewBaseEvent(TypeProfileCompleted, inquiryID, aggregateInquiry, now),
		PANSuffix:      panSuffix,
		Score:          score,
		ScoreSource:    scoreSource,
		ProviderKind:   providerKind,
		ActiveEMITotal: activeEMITotal,
	}
}
