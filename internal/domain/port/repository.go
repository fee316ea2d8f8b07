package port

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bibbank/bureau-service/internal/domain/event"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

var (
	// ErrNotFound is returned by repositories when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrSessionNotFound is returned when a transaction id is unknown or expired.
	ErrSessionNotFound = errors.New("bureau session not found")
	// ErrSessionConflict is returned when a session changed since it was read.
	ErrSessionConflict = errors.New("bureau session version conflict")
)

// ---------------------------------------------------------------------------
// Repository ports (driven/secondary adapters)
// ---------------------------------------------------------------------------

// CreditRecordRepository keeps one most-recent-wins row per PAN.
type CreditRecordRepository interface {
	Upsert(ctx context.Context, record model.CreditRecord) error
	FindLatestByPAN(ctx context.Context, pan string) (model.CreditRecord, error)
}

// LenderRepository reads the lender reference tables.
type LenderRepository interface {
	// FindEligible returns lenders whose minimum score is at most score and
	// whose home loan rate is present.
	FindEligible(ctx context.Context, score int) ([]model.Lender, error)
	// FindApprovedForProject returns lenders pre-approved for the project
	// with the given canonical name.
	FindApprovedForProject(ctx context.Context, canonicalName string) ([]model.Lender, error)
}

// ReportCacheRepository memoizes AI report summaries per PAN.
type ReportCacheRepository interface {
	Find(ctx context.Context, pan string) (model.ReportCacheEntry, error)
	Upsert(ctx context.Context, entry model.ReportCacheEntry) error
}

// SessionStore holds bureau sessions between the initiate and verify calls.
// Save succeeds only when the stored version equals expectedVersion;
// expectedVersion 0 means the session must not exist yet.
type SessionStore interface {
	Save(ctx context.Context, session model.BureauSession, expectedVersion int) error
	FindByTransactionID(ctx context.Context, transactionID string) (model.BureauSession, error)
}

// ---------------------------------------------------------------------------
// Event publisher port
// ---------------------------------------------------------------------------

// EventPublisher publishes domain events to external consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...event.DomainEvent) error
}

// ---------------------------------------------------------------------------
// External service ports
// ---------------------------------------------------------------------------

// PrimaryBureauClient talks to the consent-based primary bureau. Inquiry
// calls never return transport errors; they are folded into a failed
// BureauResult so the fallback is driven by data.
type PrimaryBureauClient interface {
	Initiate(ctx context.Context, identity model.ApplicantIdentity, applicationID string) model.BureauResult
	VerifyOTP(ctx context.Context, transactionID, otp string) (OTPVerification, error)
	ConsentStatus(ctx context.Context, transactionID string) (ConsentStatus, error)
	FetchReportByPAN(ctx context.Context, pan string) model.BureauResult
}

// SecondaryBureauClient talks to the direct-report secondary bureau.
type SecondaryBureauClient interface {
	FetchReport(ctx context.Context, identity model.ApplicantIdentity) model.BureauResult
}

// IdentityLookup resolves applicants against the identity registries.
type IdentityLookup interface {
	LookupByMobile(ctx context.Context, phone string) IdentityLookupResult
	VerifyPAN(ctx context.Context, pan string) IdentityLookupResult
}

// OTPGateway sends and checks phone OTPs.
type OTPGateway interface {
	Send(ctx context.Context, phone string) (bool, error)
	Resend(ctx context.Context, phone string) (bool, error)
	Verify(ctx context.Context, phone, otp string) (bool, error)
}

// ReportGenerator produces an AI summary of a raw bureau payload.
type ReportGenerator interface {
	Generate(ctx context.Context, raw []byte) (json.RawMessage, error)
}

// RawReportArchive stores raw bureau payloads and returns their location.
type RawReportArchive interface {
	Put(ctx context.Context, pan string, raw []byte) (string, error)
}

// ---------------------------------------------------------------------------
// Port value types
// ---------------------------------------------------------------------------

// OTPOutcome distinguishes the three answers to an OTP verification.
type OTPOutcome int

const (
	OTPVendorError OTPOutcome = iota
	OTPInvalid
	OTPVerified
)

// OTPVerification is the bureau's answer to an OTP submission.
type OTPVerification struct {
	Outcome OTPOutcome
	Message string
	Raw     json.RawMessage
}

// ConsentStatus is one poll of the consent endpoint.
type ConsentStatus struct {
	Complete bool
	Status   string
}

// IdentityLookupResult is a classified answer from an identity source.
type IdentityLookupResult struct {
	Outcome valueobject.IdentityOutcome
	Fields  model.IdentityFields
	Raw     json.RawMessage
	Message string
	Err     error
}
