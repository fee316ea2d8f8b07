package model

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// DefaultScore is the neutral score substituted when an applicant declines
// every bureau check.
const DefaultScore = 750

// ---------------------------------------------------------------------------
// Tradeline
// ---------------------------------------------------------------------------

// Tradeline is one reported credit account.
type Tradeline struct {
	CreditorName    string          `json:"creditor_name"`
	SubscriberCode  string          `json:"subscriber_code"`
	AccountType     string          `json:"account_type"`
	AccountNumber   string          `json:"account_number"`
	EMIAmount       decimal.Decimal `json:"emi_amount"`
	HasEMI          bool            `json:"has_emi"`
	LastPaymentDate string          `json:"last_payment_date"`
	StatusCode      string          `json:"status_code"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	DateClosed      string          `json:"date_closed"`
}

// IsOpen is true iff no closure date is present and the balance is non-zero.
func (t Tradeline) IsOpen() bool {
	return t.DateClosed == "" && !t.CurrentBalance.IsZero()
}

// DedupKey identifies the account across duplicate report sections.
func (t Tradeline) DedupKey() string {
	return t.SubscriberCode + "|" + t.AccountNumber
}

// ---------------------------------------------------------------------------
// CreditProfile – canonical, provider-agnostic, immutable
// ---------------------------------------------------------------------------

// CreditProfileParams carries everything needed to build a CreditProfile.
type CreditProfileParams struct {
	Score          *int
	ScoreSource    valueobject.ScoreSource
	ProviderKind   valueobject.ProviderKind
	ActiveEMITotal decimal.Decimal
	Tradelines     []Tradeline
	Identity       ApplicantIdentity
	RawPayload     json.RawMessage
	CreatedAt      time.Time
}

// CreditProfile is created once per completed inquiry and never mutated.
type CreditProfile struct {
	score          *int
	scoreSource    valueobject.ScoreSource
	providerKind   valueobject.ProviderKind
	activeEMITotal decimal.Decimal
	tradelines     []Tradeline
	identity       ApplicantIdentity
	rawPayload     json.RawMessage
	createdAt      time.Time
}

// NewCreditProfile validates p and builds a profile.
func NewCreditProfile(p CreditProfileParams) (CreditProfile, error) {
	if p.ScoreSource.Equal(valueobject.ScoreSourceDefault) && (p.Score == nil || *p.Score != DefaultScore) {
		return CreditProfile{}, errors.New("default score source requires the default score")
	}
	if p.Score == nil && (p.ScoreSource.IsBureau() || p.ScoreSource.Equal(valueobject.ScoreSourceUserProvided)) {
		return CreditProfile{}, errors.New("score is required for " + p.ScoreSource.String())
	}
	if p.Score != nil && *p.Score < 0 {
		return CreditProfile{}, errors.New("score must not be negative")
	}
	total := p.ActiveEMITotal
	if total.IsNegative() {
		total = decimal.Zero
	}
	return CreditProfile{
		score:          copyScore(p.Score),
		scoreSource:    p.ScoreSource,
		providerKind:   p.ProviderKind,
		activeEMITotal: total,
		tradelines:     append([]Tradeline(nil), p.Tradelines...),
		identity:       p.Identity,
		rawPayload:     append(json.RawMessage(nil), p.RawPayload...),
		createdAt:      p.CreatedAt,
	}, nil
}

// NewDefaultCreditProfile builds the profile used when the applicant
// declined every check.
func NewDefaultCreditProfile(identity ApplicantIdentity, now time.Time) CreditProfile {
	score := DefaultScore
	return CreditProfile{
		score:          &score,
		scoreSource:    valueobject.ScoreSourceDefault,
		activeEMITotal: decimal.Zero,
		identity:       identity,
		createdAt:      now,
	}
}

// NewUserProvidedCreditProfile builds a profile around a trusted caller score.
func NewUserProvidedCreditProfile(identity ApplicantIdentity, score int, now time.Time) (CreditProfile, error) {
	return NewCreditProfile(CreditProfileParams{
		Score:       &score,
		ScoreSource: valueobject.ScoreSourceUserProvided,
		Identity:    identity,
		CreatedAt:   now,
	})
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Score returns the score and whether one is present.
func (p CreditProfile) Score() (int, bool) {
	if p.score == nil {
		return 0, false
	}
	return *p.score, true
}

// ScoreOr returns the score or fallback when absent.
func (p CreditProfile) ScoreOr(fallback int) int {
	if s, ok := p.Score(); ok {
		return s
	}
	return fallback
}

func (p CreditProfile) ScoreSource() valueobject.ScoreSource   { return p.scoreSource }
func (p CreditProfile) ProviderKind() valueobject.ProviderKind { return p.providerKind }
func (p CreditProfile) ActiveEMITotal() decimal.Decimal        { return p.activeEMITotal }
func (p CreditProfile) Identity() ApplicantIdentity            { return p.identity }
func (p CreditProfile) CreatedAt() time.Time                   { return p.createdAt }

// Params returns the profile's fields so a caller can derive a new profile,
// e.g. with an enriched identity.
func (p CreditProfile) Params() CreditProfileParams {
	return CreditProfileParams{
		Score:          copyScore(p.score),
		ScoreSource:    p.scoreSource,
		ProviderKind:   p.providerKind,
		ActiveEMITotal: p.activeEMITotal,
		Tradelines:     p.Tradelines(),
		Identity:       p.identity,
		RawPayload:     p.RawPayload(),
		CreatedAt:      p.createdAt,
	}
}

// Tradelines returns a copy of the tradeline collection.
func (p CreditProfile) Tradelines() []Tradeline {
	return append([]Tradeline(nil), p.tradelines...)
}

// RawPayload returns a copy of the unmodified vendor payload.
func (p CreditProfile) RawPayload() json.RawMessage {
	return append(json.RawMessage(nil), p.rawPayload...)
}

// OpenTradelines returns the tradelines that are still active.
func (p CreditProfile) OpenTradelines() []Tradeline {
	var open []Tradeline
	for _, t := range p.tradelines {
		if t.IsOpen() {
			open = append(open, t)
		}
	}
	return open
}

func copyScore(s *int) *int {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
