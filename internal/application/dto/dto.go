package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// ApplicantDTO is the applicant part of an eligibility form.
type ApplicantDTO struct {
	PAN       string `json:"pan"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
	Gender    string `json:"gender"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Pincode   string `json:"pincode"`
	State     string `json:"state"`
	City      string `json:"city"`
	Address   string `json:"address"`
}

// LoanDTO is the loan part of an eligibility form.
type LoanDTO struct {
	Amount       decimal.Decimal `json:"loan_amount"`
	TenureYears  int             `json:"tenure"`
	PropertyName string          `json:"property_name"`
	Profession   string          `json:"profession"`
}

// CreditCheckRequest starts an eligibility check. HasScore with a positive
// UserScore skips both bureaus; DeclineCheck skips them with the default score.
type CreditCheckRequest struct {
	Applicant     ApplicantDTO `json:"applicant"`
	Loan          LoanDTO      `json:"loan"`
	HasScore      bool         `json:"has_score"`
	UserScore     int          `json:"user_score"`
	DeclineCheck  bool         `json:"decline_check"`
	ApplicationID string       `json:"application_id"`
}

// ResolveIdentityRequest resolves an applicant from a phone number and an
// optional PAN.
type ResolveIdentityRequest struct {
	Phone string `json:"phone"`
	PAN   string `json:"pan"`
}

// VerifyOTPRequest submits the consent OTP for a pending bureau session.
type VerifyOTPRequest struct {
	TransactionID string `json:"transId"`
	OTP           string `json:"otp"`
}

// PollConsentRequest identifies a session waiting on data-sharing consent.
type PollConsentRequest struct {
	TransactionID string `json:"transId"`
}

// MatchLendersRequest asks for ranked lenders. Score is used only when no
// stored score exists for PAN.
type MatchLendersRequest struct {
	PAN          string          `json:"pan"`
	Score        int             `json:"score"`
	PropertyName string          `json:"property_name"`
	LoanAmount   decimal.Decimal `json:"loan_amount"`
	TenureYears  int             `json:"tenure"`
}

// CreditReportRequest identifies the applicant whose AI report is wanted.
type CreditReportRequest struct {
	PAN string `json:"pan"`
}

// PhoneOTPRequest sends or resends a phone OTP.
type PhoneOTPRequest struct {
	Phone string `json:"phone_number"`
}

// VerifyPhoneRequest checks a phone OTP and runs the eligibility check for
// the applicant resolved from that phone.
type VerifyPhoneRequest struct {
	Phone        string  `json:"phone_number"`
	OTP          string  `json:"otp"`
	PAN          string  `json:"pan"`
	Loan         LoanDTO `json:"loan"`
	DeclineCheck bool    `json:"decline_check"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// Statuses reported by the consent and eligibility flows.
const (
	StatusCompleted      = "completed"
	StatusOTPRequired    = "otp_required"
	StatusPollingStarted = "polling_started"
	StatusPolling        = "polling"
	StatusNotCompleted   = "not_completed"
	StatusExpired        = "expired"
	StatusFailed         = "failed"
)

// IdentityResponse is a resolved applicant identity.
type IdentityResponse struct {
	PAN       string `json:"pan"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
	Gender    string `json:"gender"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Pincode   string `json:"pincode"`
	State     string `json:"state"`
	City      string `json:"city"`
	Address   string `json:"address"`
	Degraded  bool   `json:"degraded"`
}

// CreditProfileResponse is the external form of a fetch attempt.
type CreditProfileResponse struct {
	Status         string          `json:"status"`
	TransactionID  string          `json:"transId,omitempty"`
	Score          *int            `json:"cibilScore,omitempty"`
	ScoreSource    string          `json:"score_source,omitempty"`
	ProviderKind   string          `json:"provider_kind,omitempty"`
	ActiveEMITotal decimal.Decimal `json:"active_emi_total"`
	FellBack       bool            `json:"fell_back"`
	Message        string          `json:"message"`
}

// LenderOfferDTO is one ranked lender with the request-scoped EMI.
type LenderOfferDTO struct {
	Lender           string `json:"lender"`
	Tier             string `json:"tier"`
	EMI              string `json:"emi"`
	HomeLoanROI      string `json:"home_loan_roi"`
	LenderType       string `json:"lender_type"`
	Remarks          string `json:"remarks"`
	HomeLoanLTV      string `json:"home_loan_ltv"`
	LoanApprovalTime string `json:"loan_approval_time"`
	ProcessingTime   string `json:"processing_time"`
	MinLoanAmount    string `json:"min_loan_amount"`
	MaxLoanAmount    string `json:"max_loan_amount"`
}

// LenderMatchResponse is the three-tier lender ranking.
type LenderMatchResponse struct {
	Score           int              `json:"cibilScore"`
	ScoreSource     string           `json:"score_source"`
	ApprovedLenders []string         `json:"approvedLenders"`
	WorkingLenders  []string         `json:"workingLenders"`
	MoreLenders     []string         `json:"moreLenders"`
	EMIData         []LenderOfferDTO `json:"emi_data"`
}

// EligibilityResponse is the result of a full eligibility check.
type EligibilityResponse struct {
	Status         string               `json:"status"`
	Message        string               `json:"message"`
	TransactionID  string               `json:"transId,omitempty"`
	Score          *int                 `json:"cibilScore,omitempty"`
	ScoreSource    string               `json:"score_source,omitempty"`
	ProviderKind   string               `json:"provider_kind,omitempty"`
	ActiveEMITotal decimal.Decimal      `json:"active_emi_total"`
	FellBack       bool                 `json:"fell_back"`
	Degraded       bool                 `json:"degraded_identity,omitempty"`
	Lenders        *LenderMatchResponse `json:"lenders,omitempty"`
}

// ConsentResponse is the result of OTP verification or consent polling.
type ConsentResponse struct {
	Status        string               `json:"status"`
	TransactionID string               `json:"transId"`
	Message       string               `json:"message"`
	Score         *int                 `json:"cibilScore,omitempty"`
	ScoreSource   string               `json:"score_source,omitempty"`
	Attempts      int                  `json:"attempts,omitempty"`
	Lenders       *LenderMatchResponse `json:"lenders,omitempty"`
}

// CreditReportResponse carries the AI summary of the stored bureau report.
type CreditReportResponse struct {
	PAN         string          `json:"pan"`
	Summary     json.RawMessage `json:"intell_response"`
	Cached      bool            `json:"cached"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// PhoneOTPResponse reports whether the OTP gateway accepted the request.
type PhoneOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
