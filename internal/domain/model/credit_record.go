package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ReportCacheTTL is how long a generated AI report stays fresh.
const ReportCacheTTL = 30 * 24 * time.Hour

// CreditRecord is the persisted, most-recent-wins row kept per PAN. Its JSON
// form is the stored-record payload understood by the profile normalizer.
type CreditRecord struct {
	PAN            string          `json:"pan"`
	Identity       IdentityFields  `json:"identity"`
	Score          *int            `json:"score"`
	ScoreSource    string          `json:"score_source"`
	ProviderKind   string          `json:"provider_kind"`
	RawPayload     json.RawMessage `json:"raw_payload,omitempty"`
	ActiveEMITotal decimal.Decimal `json:"active_emi_total"`
	ConsentGranted bool            `json:"consent_granted"`
	LenderMatches  json.RawMessage `json:"lender_matches,omitempty"`
	EMIDetails     json.RawMessage `json:"emi_details,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewCreditRecord flattens a completed profile and its lender output.
func NewCreditRecord(p CreditProfile, consentGranted bool, lenderMatches, emiDetails json.RawMessage, now time.Time) CreditRecord {
	id := p.Identity()
	return CreditRecord{
		PAN:            id.PAN(),
		Identity:       id.Fields(),
		Score:          copyScore(p.score),
		ScoreSource:    p.ScoreSource().String(),
		ProviderKind:   p.ProviderKind().String(),
		RawPayload:     p.RawPayload(),
		ActiveEMITotal: p.ActiveEMITotal(),
		ConsentGranted: consentGranted,
		LenderMatches:  lenderMatches,
		EMIDetails:     emiDetails,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ---------------------------------------------------------------------------
// ReportCacheEntry
// ---------------------------------------------------------------------------

// ReportCacheEntry memoizes the AI summary generated for a PAN.
type ReportCacheEntry struct {
	PAN       string
	Summary   json.RawMessage
	CreatedAt time.Time
}

// IsFresh reports whether the entry is younger than ttl at now.
func (e ReportCacheEntry) IsFresh(now time.Time, ttl time.Duration) bool {
	if e.CreatedAt.IsZero() || len(e.Summary) == 0 {
		return false
	}
	return now.Sub(e.CreatedAt) < ttl
}
