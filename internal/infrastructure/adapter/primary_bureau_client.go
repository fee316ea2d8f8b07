package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/service"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Primary (consent-based) bureau
// ---------------------------------------------------------------------------

// PrimaryBureauPaths locates the four endpoints under the base URL.
type PrimaryBureauPaths struct {
	Initiate      string
	VerifyOTP     string
	ConsentStatus string
	Report        string
}

// DefaultPrimaryBureauPaths returns the vendor's documented routes.
func DefaultPrimaryBureauPaths() PrimaryBureauPaths {
	return PrimaryBureauPaths{
		Initiate:      "/api/v1/cibil/initiate",
		VerifyOTP:     "/api/v1/cibil/verify-otp",
		ConsentStatus: "/api/v1/cibil/consent-status",
		Report:        "/api/v1/cibil/report",
	}
}

const (
	consentStatusComplete = "Complete"
	otpStatusInvalid      = "InValidOtp"
)

// PrimaryBureauClient implements port.PrimaryBureauClient over HTTP. Every
// call is signed; inquiry failures are folded into a failed BureauResult.
type PrimaryBureauClient struct {
	client *vendorClient
	signer *RequestSigner
	paths  PrimaryBureauPaths
}

var _ port.PrimaryBureauClient = (*PrimaryBureauClient)(nil)

// NewPrimaryBureauClient creates a client. A nil doer uses a plain
// *http.Client with the configured timeout.
func NewPrimaryBureauClient(cfg VendorConfig, signer *RequestSigner, paths PrimaryBureauPaths, doer HTTPDoer, logger *slog.Logger) *PrimaryBureauClient {
	if cfg.Name == "" {
		cfg.Name = "primary-bureau"
	}
	return &PrimaryBureauClient{
		client: newVendorClient(cfg, doer, logger),
		signer: signer,
		paths:  paths,
	}
}

type initiateRequest struct {
	PANNumber     string `json:"panNumber"`
	MobileNumber  string `json:"mobileNumber"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	EmailAddress  string `json:"emailAddress"`
	DOB           string `json:"dob"`
	Gender        string `json:"gender"`
	PinCode       string `json:"pinCode"`
	ApplicationID string `json:"applicationId,omitempty"`
}

// Initiate starts an inquiry. A score in the answer is followed by a
// report-by-PAN fetch so the caller receives the full report; an answer
// carrying only a transaction id means the customer has to consent first.
func (c *PrimaryBureauClient) Initiate(ctx context.Context, identity model.ApplicantIdentity, applicationID string) model.BureauResult {
	kind := valueobject.ProviderKindPrimaryBureau

	dob := identity.DOB()
	if dob != "" {
		dob += "T00:00:00"
	}
	body, err := c.signedJSON(ctx, http.MethodPost, c.paths.Initiate, initiateRequest{
		PANNumber:     identity.PAN(),
		MobileNumber:  identity.Phone(),
		FirstName:     identity.FirstName(),
		LastName:      identity.LastName(),
		EmailAddress:  identity.Email(),
		DOB:           dob,
		Gender:        titleGender(identity.Gender()),
		PinCode:       identity.Pincode(),
		ApplicationID: applicationID,
	})
	if err != nil {
		return failedFromError(kind, err)
	}

	root, res, ok := decodeEnvelope(kind, body)
	if !ok {
		return res
	}
	if score, ok := service.Lookup(root, service.P("result", "cibilScore")).Int(); ok && score > 0 {
		if report := c.FetchReportByPAN(ctx, identity.PAN()); report.IsSuccess() {
			return report
		}
		return model.BureauSuccess(kind, score, body)
	}
	if txn, ok := service.Lookup(root, service.P("result", "transID")).String(); ok {
		return model.BureauNeedsConsent(kind, txn, body)
	}
	return model.BureauFailed(kind, model.FailureMissingScore, "no score and no transaction id in answer")
}

// VerifyOTP submits the customer's OTP. Transport failures are returned as
// errors so the caller can retry; vendor answers are classified.
func (c *PrimaryBureauClient) VerifyOTP(ctx context.Context, transactionID, otp string) (port.OTPVerification, error) {
	q := url.Values{}
	q.Set("TransId", transactionID)
	q.Set("Otp", otp)
	body, err := c.signedGet(ctx, c.paths.VerifyOTP, q, false)
	if err != nil {
		var se *StatusError
		if !errors.As(err, &se) {
			return port.OTPVerification{}, fmt.Errorf("verify otp: %w", err)
		}
		body = se.Body
	}

	root, decodeErr := service.DecodePayload(body)
	if decodeErr != nil {
		return port.OTPVerification{Outcome: port.OTPVendorError, Message: "unreadable OTP answer", Raw: body}, nil
	}
	if isErr, _ := service.Lookup(root, service.P("isError")).Bool(); isErr {
		msg := service.Lookup(root, service.P("responseException", "exceptionMessage")).StringOr("bureau reported an error")
		return port.OTPVerification{Outcome: port.OTPVendorError, Message: msg, Raw: body}, nil
	}
	status := service.Lookup(root, service.P("result", "cibilStatus")).StringOr("")
	if strings.EqualFold(status, otpStatusInvalid) {
		return port.OTPVerification{Outcome: port.OTPInvalid, Message: "Invalid OTP", Raw: body}, nil
	}
	if err != nil {
		return port.OTPVerification{Outcome: port.OTPVendorError, Message: err.Error(), Raw: body}, nil
	}
	return port.OTPVerification{Outcome: port.OTPVerified, Message: status, Raw: body}, nil
}

// ConsentStatus reads the data-sharing consent state of a transaction.
func (c *PrimaryBureauClient) ConsentStatus(ctx context.Context, transactionID string) (port.ConsentStatus, error) {
	q := url.Values{}
	q.Set("TransId", transactionID)
	body, err := c.signedGet(ctx, c.paths.ConsentStatus, q, true)
	if err != nil {
		return port.ConsentStatus{}, fmt.Errorf("consent status: %w", err)
	}
	root, err := service.DecodePayload(body)
	if err != nil {
		return port.ConsentStatus{}, fmt.Errorf("consent status: %w", err)
	}
	status := service.Lookup(root, service.P("result", "status")).StringOr("")
	return port.ConsentStatus{Complete: status == consentStatusComplete, Status: status}, nil
}

// FetchReportByPAN retrieves the full report, including its JSON body.
func (c *PrimaryBureauClient) FetchReportByPAN(ctx context.Context, pan string) model.BureauResult {
	kind := valueobject.ProviderKindPrimaryBureau
	q := url.Values{}
	q.Set("PanNumber", pan)
	q.Set("includeReportJson", "true")
	body, err := c.signedGet(ctx, c.paths.Report, q, true)
	if err != nil {
		return failedFromError(kind, err)
	}
	root, res, ok := decodeEnvelope(kind, body)
	if !ok {
		return res
	}
	score, ok := service.Lookup(root, service.P("result", "customercibilScore")).Int()
	if !ok || score <= 0 {
		return model.BureauFailed(kind, model.FailureMissingScore, "report carries no score")
	}
	return model.BureauSuccess(kind, score, body)
}

func (c *PrimaryBureauClient) signedJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	body, err := marshalCompact(payload)
	if err != nil {
		return nil, err
	}
	return c.client.send(ctx, vendorRequest{
		Method: method,
		URL:    c.client.cfg.BaseURL + path,
		Body:   body,
		Header: jsonHeader(),
		Sign:   c.signer.Sign,
	})
}

func (c *PrimaryBureauClient) signedGet(ctx context.Context, path string, q url.Values, idempotent bool) ([]byte, error) {
	return c.client.send(ctx, vendorRequest{
		Method:     http.MethodGet,
		URL:        c.client.cfg.BaseURL + path + "?" + q.Encode(),
		Header:     jsonHeader(),
		Idempotent: idempotent,
		Sign:       c.signer.Sign,
	})
}

// decodeEnvelope parses a bureau answer and folds the vendor's isError flag
// into a failed result.
func decodeEnvelope(kind valueobject.ProviderKind, body []byte) (any, model.BureauResult, bool) {
	root, err := service.DecodePayload(body)
	if err != nil {
		return nil, model.BureauFailed(kind, model.FailureMalformed, err.Error()), false
	}
	if isErr, _ := service.Lookup(root, service.P("isError")).Bool(); isErr {
		msg := service.Lookup(root, service.P("responseException", "exceptionMessage")).StringOr("vendor flagged an internal error")
		return nil, model.BureauFailed(kind, model.FailureInternalFlag, msg), false
	}
	return root, model.BureauResult{}, true
}

// failedFromError classifies a send error.
func failedFromError(kind valueobject.ProviderKind, err error) model.BureauResult {
	var se *StatusError
	if errors.As(err, &se) {
		return model.BureauFailed(kind, model.FailureVendorError, se.Error())
	}
	return model.BureauFailed(kind, model.FailureTransport, err.Error())
}

// titleGender renders the canonical gender the way bureau forms expect it.
func titleGender(g string) string {
	switch g {
	case "male":
		return "Male"
	case "female":
		return "Female"
	case "other":
		return "Other"
	}
	return ""
}
