package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// StubInvalidOTP is the one OTP the stub rejects.
const StubInvalidOTP = "000000"

// StubBureau is a development/test adapter standing in for every upstream:
// both bureaus, the identity registries, the OTP gateway and the report
// generator. Scores and identities are derived from a hash of the input so
// scenarios are repeatable. PANs ending in "C" take the consent path.
type StubBureau struct{}

var (
	_ port.PrimaryBureauClient   = (*StubBureau)(nil)
	_ port.SecondaryBureauClient = (*StubBureau)(nil)
	_ port.IdentityLookup        = (*StubBureau)(nil)
	_ port.OTPGateway            = (*StubBureau)(nil)
	_ port.ReportGenerator       = (*StubBureau)(nil)
)

// NewStubBureau creates a new stub adapter.
func NewStubBureau() *StubBureau {
	return &StubBureau{}
}

// StubScore returns a deterministic score between 300 and 850 for key.
func StubScore(key string) int {
	h := sha256.Sum256([]byte(key))
	num := binary.BigEndian.Uint32(h[:4])
	return 300 + int(num%551) // range [300, 850]
}

func stubTransactionID(pan string) string {
	h := sha256.Sum256([]byte("txn:" + pan))
	return "STUB-" + strings.ToUpper(hex.EncodeToString(h[:6]))
}

// Initiate returns a score, or a pending consent for PANs ending in "C".
func (s *StubBureau) Initiate(ctx context.Context, identity model.ApplicantIdentity, _ string) model.BureauResult {
	kind := valueobject.ProviderKindPrimaryBureau
	pan := identity.PAN()
	if pan == "" {
		return model.BureauFailed(kind, model.FailureMissingScore, "PAN is required")
	}
	if strings.HasSuffix(pan, "C") {
		raw := stubJSON(map[string]any{"result": map[string]any{"cibilScore": nil, "transID": stubTransactionID(pan)}})
		return model.BureauNeedsConsent(kind, stubTransactionID(pan), raw)
	}
	return s.FetchReportByPAN(ctx, pan)
}

// VerifyOTP accepts every OTP except StubInvalidOTP.
func (s *StubBureau) VerifyOTP(_ context.Context, _, otp string) (port.OTPVerification, error) {
	if otp == StubInvalidOTP {
		return port.OTPVerification{Outcome: port.OTPInvalid, Message: "Invalid OTP"}, nil
	}
	return port.OTPVerification{Outcome: port.OTPVerified, Message: "Success"}, nil
}

// ConsentStatus reports every consent as complete.
func (s *StubBureau) ConsentStatus(_ context.Context, _ string) (port.ConsentStatus, error) {
	return port.ConsentStatus{Complete: true, Status: consentStatusComplete}, nil
}

// FetchReportByPAN returns a minimal primary report for pan.
func (s *StubBureau) FetchReportByPAN(_ context.Context, pan string) model.BureauResult {
	score := StubScore(pan)
	raw := stubJSON(map[string]any{"result": map[string]any{
		"customercibilScore": fmt.Sprintf("%d", score),
		"reportJson":         map[string]any{"CCRResponse": map[string]any{}},
	}})
	return model.BureauSuccess(valueobject.ProviderKindPrimaryBureau, score, raw)
}

// FetchReport returns a minimal TrueLink report.
func (s *StubBureau) FetchReport(_ context.Context, identity model.ApplicantIdentity) model.BureauResult {
	score := StubScore("secondary:" + identity.PAN())
	raw := stubJSON(map[string]any{"cibilData": map[string]any{"GetCustomerAssetsResponse": map[string]any{
		"GetCustomerAssetsSuccess": map[string]any{"Asset": map[string]any{"TrueLinkCreditReport": map[string]any{
			"Borrower": map[string]any{"CreditScore": map[string]any{"riskScore": fmt.Sprintf("%d", score)}},
		}}},
	}}})
	return model.BureauSuccess(valueobject.ProviderKindSecondaryBureau, score, raw)
}

// LookupByMobile derives a PAN from the phone number.
func (s *StubBureau) LookupByMobile(_ context.Context, phone string) port.IdentityLookupResult {
	if phone == "" {
		return port.IdentityLookupResult{Outcome: valueobject.IdentityOutcomeNoRecord, Message: "phone is required"}
	}
	return port.IdentityLookupResult{
		Outcome: valueobject.IdentityOutcomeSuccess,
		Fields:  model.IdentityFields{PAN: StubPAN(phone), Phone: phone},
	}
}

// VerifyPAN returns fixed demographics for pan.
func (s *StubBureau) VerifyPAN(_ context.Context, pan string) port.IdentityLookupResult {
	return port.IdentityLookupResult{
		Outcome: valueobject.IdentityOutcomeSuccess,
		Fields: model.IdentityFields{
			PAN:       pan,
			FirstName: "Stub",
			LastName:  "Applicant",
			DOB:       "1990-01-01",
			Gender:    "male",
			Pincode:   DefaultPincode,
			State:     "Delhi",
			City:      "New Delhi",
		},
	}
}

// StubPAN derives a well-formed PAN (five letters, four digits, a letter)
// from key.
func StubPAN(key string) string {
	h := sha256.Sum256([]byte("pan:" + key))
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteByte('A' + h[i]%26)
	}
	for i := 5; i < 9; i++ {
		b.WriteByte('0' + h[i]%10)
	}
	b.WriteByte('A' + h[9]%26)
	return b.String()
}

// Send always succeeds.
func (s *StubBureau) Send(_ context.Context, _ string) (bool, error) { return true, nil }

// Resend always succeeds.
func (s *StubBureau) Resend(_ context.Context, _ string) (bool, error) { return true, nil }

// Verify accepts every OTP except StubInvalidOTP.
func (s *StubBureau) Verify(_ context.Context, _, otp string) (bool, error) {
	return otp != StubInvalidOTP, nil
}

// Generate returns a fixed summary echoing the payload size.
func (s *StubBureau) Generate(_ context.Context, raw []byte) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("raw report is required")
	}
	return stubJSON(map[string]any{"summary": "stub credit report", "source_bytes": len(raw)}), nil
}

func stubJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
