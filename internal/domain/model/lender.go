package model

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Lender is a read-only record from the lender reference table.
type Lender struct {
	ID             string
	Name           string
	Type           string
	HomeLoanROI    string
	LAPROI         string
	HomeLoanLTV    string
	Remarks        string
	ApprovalTime   string
	ProcessingTime string
	MinimumLoan    string
	MaximumLoan    string
	MinimumScore   int
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// CanonicalName lowercases and strips everything but letters and digits.
func CanonicalName(name string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(name), "")
}

// DedupKey is the lender id, or its canonical name when no id is present.
func (l Lender) DedupKey() string {
	if id := strings.TrimSpace(l.ID); id != "" {
		return "id:" + id
	}
	return "name:" + CanonicalName(l.Name)
}

// LenderOffer is a lender with a request-scoped computed EMI.
type LenderOffer struct {
	Lender       Lender
	EMI          decimal.Decimal
	EMIAvailable bool
}

// LenderTier labels where an offer was placed by the ranking engine.
type LenderTier string

const (
	TierApproved LenderTier = "approved"
	TierWorking  LenderTier = "working"
	TierMore     LenderTier = "more"
)

// RankedLenders is the three-tier ranking output. No lender appears in more
// than one tier.
type RankedLenders struct {
	Approved []Lender
	Working  []Lender
	More     []Lender
}

// All returns every ranked lender in display order.
func (r RankedLenders) All() []Lender {
	out := make([]Lender, 0, r.Len())
	out = append(out, r.Approved...)
	out = append(out, r.Working...)
	return append(out, r.More...)
}

// Len is the total number of ranked lenders.
func (r RankedLenders) Len() int {
	return len(r.Approved) + len(r.Working) + len(r.More)
}
