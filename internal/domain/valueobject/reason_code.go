package valueobject

import "fmt"

// ---------------------------------------------------------------------------
// ReasonCode – machine-readable failure classification
// ---------------------------------------------------------------------------

// ReasonCode classifies a pipeline failure so callers can branch on it.
type ReasonCode struct {
	value string
}

const (
	reasonIdentityNotFound         = "IDENTITY_NOT_FOUND"
	reasonIdentityAmbiguous        = "IDENTITY_AMBIGUOUS"
	reasonUpstreamUnavailable      = "UPSTREAM_UNAVAILABLE"
	reasonConsentRequired          = "CONSENT_REQUIRED"
	reasonConsentTimedOut          = "CONSENT_TIMED_OUT"
	reasonScoreUnavailable         = "SCORE_UNAVAILABLE"
	reasonMalformedUpstreamPayload = "MALFORMED_UPSTREAM_PAYLOAD"
	reasonInvalidRequest           = "INVALID_REQUEST"
)

var (
	ReasonIdentityNotFound         = ReasonCode{value: reasonIdentityNotFound}
	ReasonIdentityAmbiguous        = ReasonCode{value: reasonIdentityAmbiguous}
	ReasonUpstreamUnavailable      = ReasonCode{value: reasonUpstreamUnavailable}
	ReasonConsentRequired          = ReasonCode{value: reasonConsentRequired}
	ReasonConsentTimedOut          = ReasonCode{value: reasonConsentTimedOut}
	ReasonScoreUnavailable         = ReasonCode{value: reasonScoreUnavailable}
	ReasonMalformedUpstreamPayload = ReasonCode{value: reasonMalformedUpstreamPayload}
	ReasonInvalidRequest           = ReasonCode{value: reasonInvalidRequest}
)

var validReasonCodes = map[string]ReasonCode{
	reasonIdentityNotFound:         ReasonIdentityNotFound,
	reasonIdentityAmbiguous:        ReasonIdentityAmbiguous,
	reasonUpstreamUnavailable:      ReasonUpstreamUnavailable,
	reasonConsentRequired:          ReasonConsentRequired,
	reasonConsentTimedOut:          ReasonConsentTimedOut,
	reasonScoreUnavailable:         ReasonScoreUnavailable,
	reasonMalformedUpstreamPayload: ReasonMalformedUpstreamPayload,
	reasonInvalidRequest:           ReasonInvalidRequest,
}

// NewReasonCode creates a ReasonCode from a raw string.
func NewReasonCode(s string) (ReasonCode, error) {
	v, ok := validReasonCodes[s]
	if !ok {
		return ReasonCode{}, fmt.Errorf("invalid reason code: %q", s)
	}
	return v, nil
}

func (r ReasonCode) String() string { return r.value }

func (r ReasonCode) IsZero() bool { return r.value == "" }

func (r ReasonCode) Equal(other ReasonCode) bool { return r.value == other.value }

// ---------------------------------------------------------------------------
// IdentityOutcome – classification of a mobile-to-identity lookup
// ---------------------------------------------------------------------------

// IdentityOutcome is the classified result of an identity lookup.
type IdentityOutcome struct {
	value string
}

const (
	identityOutcomeSuccess           = "SUCCESS"
	identityOutcomeNoRecord          = "NO_RECORD"
	identityOutcomeNameNotFound      = "NAME_NOT_FOUND"
	identityOutcomeSourceUnavailable = "SOURCE_UNAVAILABLE"
	identityOutcomeParseError        = "PARSE_ERROR"
)

var (
	IdentityOutcomeSuccess           = IdentityOutcome{value: identityOutcomeSuccess}
	IdentityOutcomeNoRecord          = IdentityOutcome{value: identityOutcomeNoRecord}
	IdentityOutcomeNameNotFound      = IdentityOutcome{value: identityOutcomeNameNotFound}
	IdentityOutcomeSourceUnavailable = IdentityOutcome{value: identityOutcomeSourceUnavailable}
	IdentityOutcomeParseError        = IdentityOutcome{value: identityOutcomeParseError}
)

func (o IdentityOutcome) String() string { return o.value }

func (o IdentityOutcome) Equal(other IdentityOutcome) bool { return o.value == other.value }

// IsSuccess reports whether the lookup produced a usable identity.
func (o IdentityOutcome) IsSuccess() bool { return o.value == identityOutcomeSuccess }

// ReasonCode maps a non-success outcome onto the pipeline failure taxonomy.
func (o IdentityOutcome) ReasonCode() ReasonCode {
	switch o.value {
	case identityOutcomeNoRecord:
		return ReasonIdentityNotFound
	case identityOutcomeNameNotFound:
		return ReasonIdentityAmbiguous
	case identityOutcomeSourceUnavailable:
		return ReasonUpstreamUnavailable
	case identityOutcomeParseError:
		return ReasonMalformedUpstreamPayload
	default:
		return ReasonCode{}
	}
}
