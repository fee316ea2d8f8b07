package service

import (
	"math"
	"sort"
	"strings"

	"github.com/bibbank/bureau-service/internal/domain/model"
)

// ---------------------------------------------------------------------------
// Ranking policy
// ---------------------------------------------------------------------------

// PriorityBank is one brand in the priority-working tier. A lender matches
// when its canonical name contains any of the canonical Match tokens.
type PriorityBank struct {
	Name  string   `yaml:"name"`
	Match []string `yaml:"match"`
}

func (b PriorityBank) matches(l model.Lender) bool {
	name := model.CanonicalName(l.Name)
	for _, token := range b.Match {
		if t := model.CanonicalName(token); t != "" && strings.Contains(name, t) {
			return true
		}
	}
	return false
}

// RankingPolicy controls tier sizes and the priority bank order.
type RankingPolicy struct {
	PriorityBanks []PriorityBank
	ApprovedCap   int
	TotalCap      int
}

// DefaultPriorityBanks lists the public-sector bank ahead of the private ones.
var DefaultPriorityBanks = []PriorityBank{
	{Name: "SBI", Match: []string{"sbi", "state bank of india"}},
	{Name: "HDFC", Match: []string{"hdfc"}},
	{Name: "ICICI", Match: []string{"icici"}},
	{Name: "Axis", Match: []string{"axis"}},
	{Name: "Kotak", Match: []string{"kotak"}},
}

// DefaultRankingPolicy caps approved lenders at 5 and the whole list at 9.
func DefaultRankingPolicy() RankingPolicy {
	return RankingPolicy{
		PriorityBanks: DefaultPriorityBanks,
		ApprovedCap:   5,
		TotalCap:      9,
	}
}

// ---------------------------------------------------------------------------
// LenderRankingEngine
// ---------------------------------------------------------------------------

// LenderRankingEngine splits candidate lenders into the approved,
// priority-working and more tiers.
type LenderRankingEngine struct {
	policy RankingPolicy
}

// NewLenderRankingEngine creates an engine. Non-positive caps fall back to
// the defaults.
func NewLenderRankingEngine(policy RankingPolicy) *LenderRankingEngine {
	def := DefaultRankingPolicy()
	if policy.ApprovedCap <= 0 {
		policy.ApprovedCap = def.ApprovedCap
	}
	if policy.TotalCap <= 0 {
		policy.TotalCap = def.TotalCap
	}
	if policy.PriorityBanks == nil {
		policy.PriorityBanks = def.PriorityBanks
	}
	return &LenderRankingEngine{policy: policy}
}

// Policy returns the effective policy.
func (e *LenderRankingEngine) Policy() RankingPolicy { return e.policy }

// Rank orders eligible (score-filtered) and approved (project allow-listed)
// lenders. Approved lenders always come first, sorted by rate; no lender
// appears in more than one tier and the total never exceeds TotalCap.
func (e *LenderRankingEngine) Rank(eligible, approved []model.Lender) model.RankedLenders {
	// A lender is a duplicate when either its id or its canonical name has
	// already been placed, so rows with and without ids still collapse.
	seen := make(map[string]struct{})
	take := func(l model.Lender) bool {
		keys := []string{l.DedupKey(), "name:" + model.CanonicalName(l.Name)}
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				return false
			}
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		return true
	}

	var out model.RankedLenders
	for _, l := range SortByRate(approved) {
		if len(out.Approved) == e.policy.ApprovedCap || len(out.Approved) == e.policy.TotalCap {
			break
		}
		if take(l) {
			out.Approved = append(out.Approved, l)
		}
	}

	var remainder []model.Lender
	for _, l := range SortByRate(eligible) {
		if take(l) {
			remainder = append(remainder, l)
		}
	}

	room := e.policy.TotalCap - len(out.Approved)
	for _, bank := range e.policy.PriorityBanks {
		if len(out.Working) >= room {
			break
		}
		for i, l := range remainder {
			if bank.matches(l) {
				out.Working = append(out.Working, l)
				remainder = append(remainder[:i:i], remainder[i+1:]...)
				break
			}
		}
	}

	room -= len(out.Working)
	if room > len(remainder) {
		room = len(remainder)
	}
	if room > 0 {
		out.More = append([]model.Lender(nil), remainder[:room]...)
	}
	return out
}

// SortByRate returns a copy of lenders ordered by the lower bound of their
// home loan rate. Lenders without a parseable rate sort last; ties keep
// their input order.
func SortByRate(lenders []model.Lender) []model.Lender {
	out := append([]model.Lender(nil), lenders...)
	rate := func(l model.Lender) float64 {
		if v, ok := ParseRateLowerBound(l.HomeLoanROI); ok {
			return v
		}
		return math.Inf(1)
	}
	sort.SliceStable(out, func(i, j int) bool { return rate(out[i]) < rate(out[j]) })
	return out
}
