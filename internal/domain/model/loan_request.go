package model

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultTenureYears is used when the applicant leaves tenure blank.
const DefaultTenureYears = 20

// LoanRequest is the part of an applicant form that drives lender matching.
type LoanRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	TenureYears  int             `json:"tenure_years"`
	PropertyName string          `json:"property_name"`
	Profession   string          `json:"profession"`
}

// NewLoanRequest trims fields and applies the default tenure.
func NewLoanRequest(amount decimal.Decimal, tenureYears int, propertyName, profession string) (LoanRequest, error) {
	if amount.IsNegative() {
		return LoanRequest{}, errors.New("loan amount must not be negative")
	}
	if tenureYears < 0 {
		return LoanRequest{}, errors.New("tenure must not be negative")
	}
	if tenureYears == 0 {
		tenureYears = DefaultTenureYears
	}
	return LoanRequest{
		Amount:       amount,
		TenureYears:  tenureYears,
		PropertyName: strings.TrimSpace(propertyName),
		Profession:   strings.TrimSpace(profession),
	}, nil
}
