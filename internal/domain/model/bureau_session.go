package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bibbank/bureau-service/internal/domain/event"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// BureauSession aggregate root
// ---------------------------------------------------------------------------

// BureauSession tracks one inquiry attempt across the initiate and
// verify-OTP calls. It is immutable: every transition returns a new copy
// with the version bumped, so stores can reject stale writes.
type BureauSession struct {
	transactionID string
	provider      valueobject.ProviderKind
	state         valueobject.SessionState
	identity      ApplicantIdentity
	loan          LoanRequest
	score         *int
	rawPayload    json.RawMessage
	message       string
	version       int
	createdAt     time.Time
	updatedAt     time.Time
	domainEvents  []event.DomainEvent
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewBureauSession opens a session in INITIATED state.
func NewBureauSession(
	transactionID string,
	provider valueobject.ProviderKind,
	identity ApplicantIdentity,
	loan LoanRequest,
	now time.Time,
) (BureauSession, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return BureauSession{}, errors.New("transaction ID is required")
	}
	if provider.IsZero() {
		return BureauSession{}, errors.New("provider is required")
	}
	s := BureauSession{
		transactionID: transactionID,
		provider:      provider,
		state:         valueobject.SessionStateInitiated,
		identity:      identity,
		loan:          loan,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}
	s.domainEvents = append(s.domainEvents, event.NewBureauInquiryInitiated(
		transactionID, provider.String(), identity.PANSuffix(), now,
	))
	return s, nil
}

// SessionSnapshot is the persisted form of a session.
type SessionSnapshot struct {
	TransactionID string          `json:"transaction_id"`
	Provider      string          `json:"provider"`
	State         string          `json:"state"`
	Identity      IdentityFields  `json:"identity"`
	Loan          LoanRequest     `json:"loan"`
	Score         *int            `json:"score,omitempty"`
	RawPayload    json.RawMessage `json:"raw_payload,omitempty"`
	Message       string          `json:"message,omitempty"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ReconstructBureauSession rebuilds a session from a snapshot without side-effects.
func ReconstructBureauSession(snap SessionSnapshot) (BureauSession, error) {
	provider, err := valueobject.NewProviderKind(snap.Provider)
	if err != nil {
		return BureauSession{}, err
	}
	state, err := valueobject.NewSessionState(snap.State)
	if err != nil {
		return BureauSession{}, err
	}
	return BureauSession{
		transactionID: snap.TransactionID,
		provider:      provider,
		state:         state,
		identity:      NewApplicantIdentity(snap.Identity),
		loan:          snap.Loan,
		score:         copyScore(snap.Score),
		rawPayload:    snap.RawPayload,
		message:       snap.Message,
		version:       snap.Version,
		createdAt:     snap.CreatedAt,
		updatedAt:     snap.UpdatedAt,
	}, nil
}

// Snapshot returns the persisted form.
func (s BureauSession) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		TransactionID: s.transactionID,
		Provider:      s.provider.String(),
		State:         s.state.String(),
		Identity:      s.identity.Fields(),
		Loan:          s.loan,
		Score:         copyScore(s.score),
		RawPayload:    s.rawPayload,
		Message:       s.message,
		Version:       s.version,
		CreatedAt:     s.createdAt,
		UpdatedAt:     s.updatedAt,
	}
}

// ---------------------------------------------------------------------------
// State transitions (each returns a new copy)
// ---------------------------------------------------------------------------

// RequireOTP transitions INITIATED -> OTP_REQUIRED and emits ConsentRequested.
func (s BureauSession) RequireOTP(message string, now time.Time) (BureauSession, error) {
	if !s.state.Equal(valueobject.SessionStateInitiated) {
		return s, valueobject.ErrInvalidStateTransition
	}
	next := s.advance(valueobject.SessionStateOtpRequired, now)
	next.message = message
	next.domainEvents = append(next.domainEvents, event.NewConsentRequested(
		s.transactionID, s.provider.String(), s.identity.PANSuffix(), now,
	))
	return next, nil
}

// StartPolling transitions OTP_REQUIRED -> POLLING once the OTP is verified
// and emits ConsentPollingStarted.
func (s BureauSession) StartPolling(now time.Time) (BureauSession, error) {
	if !s.state.Equal(valueobject.SessionStateOtpRequired) {
		return s, valueobject.ErrInvalidStateTransition
	}
	next := s.advance(valueobject.SessionStatePolling, now)
	next.message = "OTP verified. Waiting for consent."
	next.domainEvents = append(next.domainEvents, event.NewConsentPollingStarted(
		s.transactionID, s.identity.PANSuffix(), now,
	))
	return next, nil
}

// Complete records the released report. Allowed from any non-terminal state
// because a bureau may release the score at any point of the consent flow.
func (s BureauSession) Complete(score int, raw json.RawMessage, now time.Time) (BureauSession, error) {
	if s.state.IsTerminal() {
		return s, valueobject.ErrInvalidStateTransition
	}
	next := s.advance(valueobject.SessionStateCompleted, now)
	next.score = &score
	next.rawPayload = append(json.RawMessage(nil), raw...)
	next.message = "Credit score available."
	return next, nil
}

// Expire transitions POLLING -> EXPIRED and emits ConsentTimedOut.
func (s BureauSession) Expire(attempts int, now time.Time) (BureauSession, error) {
	if !s.state.Equal(valueobject.SessionStatePolling) {
		return s, valueobject.ErrInvalidStateTransition
	}
	next := s.advance(valueobject.SessionStateExpired, now)
	next.message = "Consent not completed within the polling window."
	next.domainEvents = append(next.domainEvents, event.NewConsentTimedOut(s.transactionID, attempts, now))
	return next, nil
}

// Fail moves any non-terminal session to FAILED and emits BureauInquiryFailed.
func (s BureauSession) Fail(reason string, now time.Time) (BureauSession, error) {
	if s.state.IsTerminal() {
		return s, valueobject.ErrInvalidStateTransition
	}
	next := s.advance(valueobject.SessionStateFailed, now)
	next.message = reason
	next.domainEvents = append(next.domainEvents, event.NewBureauInquiryFailed(s.transactionID, reason, now))
	return next, nil
}

// Supersede returns s with its version moved past prev's, so a new session
// can replace a finished one stored under the same transaction id.
func (s BureauSession) Supersede(prev BureauSession) BureauSession {
	next := s
	next.version = prev.version + s.version
	next.domainEvents = copyEvents(s.domainEvents)
	return next
}

func (s BureauSession) advance(state valueobject.SessionState, now time.Time) BureauSession {
	next := s
	next.state = state
	next.version = s.version + 1
	next.updatedAt = now
	next.domainEvents = copyEvents(s.domainEvents)
	return next
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (s BureauSession) TransactionID() string                  { return s.transactionID }
func (s BureauSession) Provider() valueobject.ProviderKind     { return s.provider }
func (s BureauSession) State() valueobject.SessionState        { return s.state }
func (s BureauSession) Identity() ApplicantIdentity            { return s.identity }
func (s BureauSession) Loan() LoanRequest                      { return s.loan }
func (s BureauSession) RawPayload() json.RawMessage            { return s.rawPayload }
func (s BureauSession) Message() string                        { return s.message }
func (s BureauSession) Version() int                           { return s.version }
func (s BureauSession) CreatedAt() time.Time                   { return s.createdAt }
func (s BureauSession) UpdatedAt() time.Time                   { return s.updatedAt }
func (s BureauSession) DomainEvents() []event.DomainEvent      { return s.domainEvents }

// Score returns the released score, if any.
func (s BureauSession) Score() (int, bool) {
	if s.score == nil {
		return 0, false
	}
	return *s.score, true
}

// ClearEvents returns a copy with an empty event list (call after publishing).
func (s BureauSession) ClearEvents() BureauSession {
	next := s
	next.domainEvents = nil
	return next
}

func copyEvents(src []event.DomainEvent) []event.DomainEvent {
	if len(src) == 0 {
		return nil
	}
	dst := make([]event.DomainEvent, len(src))
	copy(dst, src)
	return dst
}
