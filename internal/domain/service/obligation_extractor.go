package service

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bibbank/bureau-service/internal/domain/model"
)

// ---------------------------------------------------------------------------
// Active-obligation extractor
// ---------------------------------------------------------------------------

// Key aliases are compared after lowercasing and stripping non-alphanumerics,
// so "EMI_Amount", "emiAmount" and "EmiAmount" all match "emiamount".
var (
	accountNumberKeys = []string{"accountnumber", "accountno", "acctnumber", "accnumber"}
	subscriberKeys    = []string{"subscribercode", "subscriberid", "membercode", "subscribername", "institution"}
	creditorKeys      = []string{"creditorname", "subscribername", "institution", "lendername"}
	accountTypeKeys   = []string{"accounttype", "accounttypedescription", "accounttypesymbol", "type"}
	emiKeys           = []string{"emiamount", "emi", "installmentamount", "installment", "monthlypayment"}
	balanceKeys       = []string{"currentbalance", "balance", "outstandingbalance"}
	closedKeys        = []string{"dateclosed", "closeddate", "closedate"}
	lastPaymentKeys   = []string{"lastpaymentdate", "dateoflastpayment", "lastpayment"}
	statusKeys        = []string{"accountstatus", "statuscode", "status", "paymentstatus"}
)

// A node is tradeline-shaped when it has an account number plus at least one
// of these.
var tradelineSignalKeys = concat(emiKeys, balanceKeys, closedKeys)

var keyNoise = regexp.MustCompile(`[^a-z0-9]`)

func normKey(k string) string { return keyNoise.ReplaceAllString(strings.ToLower(k), "") }

// ObligationExtractor walks a raw bureau payload for tradeline-shaped nodes.
type ObligationExtractor struct{}

// NewObligationExtractor creates an extractor.
func NewObligationExtractor() *ObligationExtractor { return &ObligationExtractor{} }

// ExtractTradelines returns every tradeline found at any depth, deduplicated
// by (subscriberCode, accountNumber). A copy that carries an active EMI
// replaces an earlier copy that does not; otherwise the first occurrence wins.
func (e *ObligationExtractor) ExtractTradelines(root any) []model.Tradeline {
	var (
		out  []model.Tradeline
		seen = make(map[string]int)
	)
	walk(root, func(m map[string]any) {
		t := parseTradeline(m)
		key := t.DedupKey()
		if i, dup := seen[key]; dup {
			if !countsTowardEMI(out[i]) && countsTowardEMI(t) {
				out[i] = t
			}
			return
		}
		seen[key] = len(out)
		out = append(out, t)
	})
	return out
}

// ActiveEMITotal sums the EMI of open tradelines. Closed accounts, zero
// balances and sentinel EMI values are skipped before duplicates are
// collapsed. The total is never negative.
func (e *ObligationExtractor) ActiveEMITotal(tradelines []model.Tradeline) decimal.Decimal {
	total := decimal.Zero
	seen := make(map[string]struct{}, len(tradelines))
	for _, t := range tradelines {
		if !countsTowardEMI(t) {
			continue
		}
		if _, dup := seen[t.DedupKey()]; dup {
			continue
		}
		seen[t.DedupKey()] = struct{}{}
		total = total.Add(t.EMIAmount)
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

func countsTowardEMI(t model.Tradeline) bool { return t.IsOpen() && t.HasEMI }

// Extract is ExtractTradelines followed by ActiveEMITotal.
func (e *ObligationExtractor) Extract(root any) (decimal.Decimal, []model.Tradeline) {
	tradelines := e.ExtractTradelines(root)
	return e.ActiveEMITotal(tradelines), tradelines
}

// walk visits tradeline-shaped maps depth first in key order. A matched node
// is not descended into.
func walk(v any, visit func(map[string]any)) {
	switch node := v.(type) {
	case map[string]any:
		if isTradeline(node) {
			visit(node)
			return
		}
		for _, k := range sortedKeys(node) {
			walk(node[k], visit)
		}
	case []any:
		for _, item := range node {
			walk(item, visit)
		}
	}
}

func isTradeline(m map[string]any) bool {
	idx := indexKeys(m)
	return hasAny(idx, accountNumberKeys) && hasAny(idx, tradelineSignalKeys)
}

func parseTradeline(m map[string]any) model.Tradeline {
	field := func(aliases []string) Node {
		if n := lookupAlias(m, aliases); n.Present() {
			return n
		}
		// Some formats keep the installment on a nested block such as
		// GrantedTrade.
		for _, k := range sortedKeys(m) {
			if child, ok := m[k].(map[string]any); ok {
				if n := lookupAlias(child, aliases); n.Present() {
					return n
				}
			}
		}
		return Node{}
	}

	t := model.Tradeline{
		CreditorName:    field(creditorKeys).StringOr(""),
		SubscriberCode:  field(subscriberKeys).StringOr(""),
		AccountType:     field(accountTypeKeys).StringOr(""),
		AccountNumber:   field(accountNumberKeys).StringOr(""),
		LastPaymentDate: field(lastPaymentKeys).StringOr(""),
		StatusCode:      field(statusKeys).StringOr(""),
		DateClosed:      field(closedKeys).StringOr(""),
	}
	if bal, ok := field(balanceKeys).Decimal(); ok {
		t.CurrentBalance = bal
	}
	if emi, ok := field(emiKeys).Decimal(); ok && !emi.IsNegative() {
		t.EMIAmount = emi
		t.HasEMI = true
	}
	return t
}

func lookupAlias(m map[string]any, aliases []string) Node {
	idx := indexKeys(m)
	for _, a := range aliases {
		if orig, ok := idx[a]; ok {
			if n := Lookup(m, P(orig)); !n.IsEmpty() {
				return n
			}
		}
	}
	return Node{}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexKeys(m map[string]any) map[string]string {
	idx := make(map[string]string, len(m))
	for k := range m {
		nk := normKey(k)
		if _, taken := idx[nk]; !taken || k < idx[nk] {
			idx[nk] = k
		}
	}
	return idx
}

func hasAny(idx map[string]string, aliases []string) bool {
	for _, a := range aliases {
		if _, ok := idx[a]; ok {
			return true
		}
	}
	return false
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
