package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// EMIUnavailable is shown in place of an EMI that could not be computed.
const EMIUnavailable = "Data Not Available"

var leadingNumber = regexp.MustCompile(`^\d+(?:\.\d+)?`)

// ParseRateLowerBound reads the first numeric token of an advertised rate
// such as "8.35% - 9.10%" or "8.5". A range yields its lower bound.
func ParseRateLowerBound(rate string) (float64, bool) {
	s := strings.TrimSpace(rate)
	if i := strings.Index(s, "-"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, "%", ""))
	tok := leadingNumber.FindString(s)
	if tok == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// CalculateEMI returns the reducing-balance monthly installment for principal
// at the annual rate (percent, possibly a range) over years. The second
// return is false when the rate cannot be parsed, the tenure is zero or the
// principal is negative.
//
//	r   = rate / 1200
//	n   = years * 12
//	emi = P * r * (1+r)^n / ((1+r)^n - 1)
func CalculateEMI(principal decimal.Decimal, rate string, years int) (decimal.Decimal, bool) {
	annual, ok := ParseRateLowerBound(rate)
	if !ok || years <= 0 || principal.IsNegative() {
		return decimal.Zero, false
	}
	n := years * 12

	if annual == 0 {
		return principal.DivRound(decimal.NewFromInt(int64(n)), 2), true
	}

	r := annual / 1200.0
	factor := math.Pow(1+r, float64(n))
	emi := principal.InexactFloat64() * r * factor / (factor - 1)
	if math.IsNaN(emi) || math.IsInf(emi, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(emi).Round(2), true
}

// FormatEMI renders an EMI result for display.
func FormatEMI(emi decimal.Decimal, ok bool) string {
	if !ok {
		return EMIUnavailable
	}
	return emi.StringFixed(2)
}
