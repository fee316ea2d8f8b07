package valueobject

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// ScoreSource – immutable value object
// ---------------------------------------------------------------------------

// ScoreSource records where the score on a credit profile came from.
type ScoreSource struct {
	value string
}

const (
	scoreSourceUserProvided    = "USER_PROVIDED"
	scoreSourcePrimaryBureau   = "PRIMARY_BUREAU"
	scoreSourceSecondaryBureau = "SECONDARY_BUREAU"
	scoreSourceDefault         = "DEFAULT"
)

var (
	ScoreSourceUserProvided    = ScoreSource{value: scoreSourceUserProvided}
	ScoreSourcePrimaryBureau   = ScoreSource{value: scoreSourcePrimaryBureau}
	ScoreSourceSecondaryBureau = ScoreSource{value: scoreSourceSecondaryBureau}
	ScoreSourceDefault         = ScoreSource{value: scoreSourceDefault}
)

var validScoreSources = map[string]ScoreSource{
	scoreSourceUserProvided:    ScoreSourceUserProvided,
	scoreSourcePrimaryBureau:   ScoreSourcePrimaryBureau,
	scoreSourceSecondaryBureau: ScoreSourceSecondaryBureau,
	scoreSourceDefault:         ScoreSourceDefault,
}

// NewScoreSource creates a ScoreSource from a raw string.
func NewScoreSource(s string) (ScoreSource, error) {
	v, ok := validScoreSources[s]
	if !ok {
		return ScoreSource{}, fmt.Errorf("invalid score source: %q", s)
	}
	return v, nil
}

// String returns the string representation of the source.
func (s ScoreSource) String() string { return s.value }

// IsZero returns true if the source has not been initialised.
func (s ScoreSource) IsZero() bool { return s.value == "" }

// Equal returns true when both sources carry the same value.
func (s ScoreSource) Equal(other ScoreSource) bool { return s.value == other.value }

// IsBureau reports whether the score was returned by either bureau.
func (s ScoreSource) IsBureau() bool {
	return s.value == scoreSourcePrimaryBureau || s.value == scoreSourceSecondaryBureau
}

// ---------------------------------------------------------------------------
// ProviderKind – immutable value object
// ---------------------------------------------------------------------------

// ProviderKind identifies the upstream payload shape a raw report came from.
type ProviderKind struct {
	value string
}

const (
	providerKindPrimaryBureau   = "PRIMARY_BUREAU"
	providerKindSecondaryBureau = "SECONDARY_BUREAU"
	providerKindPANRegistry     = "PAN_REGISTRY"
	providerKindStoredRecord    = "STORED_RECORD"
)

var (
	ProviderKindPrimaryBureau   = ProviderKind{value: providerKindPrimaryBureau}
	ProviderKindSecondaryBureau = ProviderKind{value: providerKindSecondaryBureau}
	ProviderKindPANRegistry     = ProviderKind{value: providerKindPANRegistry}
	ProviderKindStoredRecord    = ProviderKind{value: providerKindStoredRecord}
)

var validProviderKinds = map[string]ProviderKind{
	providerKindPrimaryBureau:   ProviderKindPrimaryBureau,
	providerKindSecondaryBureau: ProviderKindSecondaryBureau,
	providerKindPANRegistry:     ProviderKindPANRegistry,
	providerKindStoredRecord:    ProviderKindStoredRecord,
}

// NewProviderKind creates a ProviderKind from a raw string.
func NewProviderKind(s string) (ProviderKind, error) {
	v, ok := validProviderKinds[s]
	if !ok {
		return ProviderKind{}, fmt.Errorf("invalid provider kind: %q", s)
	}
	return v, nil
}

// String returns the string representation of the kind.
func (k ProviderKind) String() string { return k.value }

// IsZero returns true if the kind has not been initialised.
func (k ProviderKind) IsZero() bool { return k.value == "" }

// Equal returns true when both kinds carry the same value.
func (k ProviderKind) Equal(other ProviderKind) bool { return k.value == other.value }

// ScoreSource maps a bureau payload kind to the source tag its score carries.
// Kinds that are not a direct bureau response return the zero ScoreSource.
func (k ProviderKind) ScoreSource() ScoreSource {
	switch k.value {
	case providerKindPrimaryBureau:
		return ScoreSourcePrimaryBureau
	case providerKindSecondaryBureau, providerKindPANRegistry:
		return ScoreSourceSecondaryBureau
	default:
		return ScoreSource{}
	}
}

// ---------------------------------------------------------------------------
// SessionState – immutable value object
// ---------------------------------------------------------------------------

// SessionState represents the lifecycle stage of a bureau session.
type SessionState struct {
	value string
}

const (
	sessionStateInitiated   = "INITIATED"
	sessionStateOtpRequired = "OTP_REQUIRED"
	sessionStatePolling     = "POLLING"
	sessionStateCompleted   = "COMPLETED"
	sessionStateExpired     = "EXPIRED"
	sessionStateFailed      = "FAILED"
)

var (
	SessionStateInitiated   = SessionState{value: sessionStateInitiated}
	SessionStateOtpRequired = SessionState{value: sessionStateOtpRequired}
	SessionStatePolling     = SessionState{value: sessionStatePolling}
	SessionStateCompleted   = SessionState{value: sessionStateCompleted}
	SessionStateExpired     = SessionState{value: sessionStateExpired}
	SessionStateFailed      = SessionState{value: sessionStateFailed}
)

var validSessionStates = map[string]SessionState{
	sessionStateInitiated:   SessionStateInitiated,
	sessionStateOtpRequired: SessionStateOtpRequired,
	sessionStatePolling:     SessionStatePolling,
	sessionStateCompleted:   SessionStateCompleted,
	sessionStateExpired:     SessionStateExpired,
	sessionStateFailed:      SessionStateFailed,
}

// NewSessionState creates a SessionState from a raw string.
func NewSessionState(s string) (SessionState, error) {
	v, ok := validSessionStates[s]
	if !ok {
		return SessionState{}, fmt.Errorf("invalid session state: %q", s)
	}
	return v, nil
}

// String returns the string representation.
func (s SessionState) String() string { return s.value }

// IsZero returns true when not initialised.
func (s SessionState) IsZero() bool { return s.value == "" }

// Equal returns true when both states match.
func (s SessionState) Equal(other SessionState) bool { return s.value == other.value }

// IsTerminal reports whether no further transition is possible.
func (s SessionState) IsTerminal() bool {
	return s.value == sessionStateCompleted || s.value == sessionStateExpired || s.value == sessionStateFailed
}

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidStateTransition = errors.New("invalid session state transition")
)
