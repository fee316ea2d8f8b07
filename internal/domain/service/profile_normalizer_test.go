package service_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/service"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

const primaryFixture = `{
  "result": {
    "customercibilScore": "781",
    "reportJson": {"CCRResponse": {"CIRReportDataLst": [{"CIRReportData": {
      "IDAndContactInfo": {
        "PersonalInfo": {"Name": {"FirstName": " ASHA ", "LastName": "RAO"}, "DateOfBirth": "12-05-1990", "Gender": "Female"},
        "IdentityInfo": {"PANId": [{"IdNumber": "abcde1234f"}]},
        "EmailAddressInfo": [{"EmailAddress": "asha@example.com"}],
        "AddressInfo": [{"Postal": "560001", "State": "KA", "City": "Bengaluru"}]
      },
      "RetailAccountDetails": [
        {"AccountNumber": "XX11", "Institution": "HDFC Bank", "Balance": "250000", "InstallmentAmount": "9,000"},
        {"AccountNumber": "XX12", "Institution": "SBI", "Balance": "0", "InstallmentAmount": "5,000"}
      ]
    }}]}}
  }
}`

const secondaryFixture = `{
  "cibilData": {"GetCustomerAssetsResponse": {"GetCustomerAssetsSuccess": {"Asset": {"TrueLinkCreditReport": {
    "Borrower": {
      "CreditScore": {"riskScore": "0702"},
      "BorrowerName": {"Name": {"Forename": "Ravi", "Surname": "Kumar"}},
      "Birth": {"date": "1985-01-30+05:30"},
      "Gender": "Male",
      "EmailAddress": {"Email": "ravi@example.com"},
      "BorrowerAddress": [{"CreditAddress": {"PostalCode": 827001, "City": "Bokaro"}}]
    },
    "TradeLinePartition": [{"Tradeline": {
      "accountNumber": "TL9", "subscriberCode": "AXIS", "creditorName": "Axis Bank",
      "currentBalance": "100000", "GrantedTrade": {"EMIAmount": "4500"}
    }}]
  }}}}
}`

const secondaryProfileFixture = `{
  "transaction_id": "gl-123",
  "data": {"profile_data": {
    "score_detail": [
      {"type": "ERS", "version": "3.0", "value": "610"},
      {"type": "ERS", "version": "4.0", "value": "735"}
    ],
    "personal_details": {"full_name": "Meera Nair Iyer", "date_of_birth": "1992-11-03", "pan": "PQRSX6789K"},
    "email": [{"email": "meera@example.com"}, {"email": "other@example.com"}]
  }}
}`

const panRegistryFixture = `{
  "data": {"pan_data": {
    "document_id": "LMNOP4321Q",
    "name": "Vikram Singh",
    "date_of_birth": "1979-07-14",
    "gender": "M",
    "address_data": {"pincode": "110001", "state": "Delhi"}
  }}
}`

func newNormalizer() *service.ProfileNormalizer {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return service.NewProfileNormalizer(service.NewObligationExtractor()).WithClock(func() time.Time { return now })
}

func TestProfileNormalizer_PrimaryBureau(t *testing.T) {
	p, err := newNormalizer().Normalize([]byte(primaryFixture), valueobject.ProviderKindPrimaryBureau)
	require.NoError(t, err)

	score, ok := p.Score()
	require.True(t, ok)
	assert.Equal(t, 781, score)
	assert.True(t, p.ScoreSource().Equal(valueobject.ScoreSourcePrimaryBureau))

	id := p.Identity()
	assert.Equal(t, "ASHA", id.FirstName())
	assert.Equal(t, "ABCDE1234F", id.PAN())
	assert.Equal(t, "1990-05-12", id.DOB())
	assert.Equal(t, "female", id.Gender())
	assert.Equal(t, "asha@example.com", id.Email())
	assert.Equal(t, "560001", id.Pincode())

	assert.Len(t, p.Tradelines(), 2)
	assert.True(t, decimal.NewFromInt(9000).Equal(p.ActiveEMITotal()))
	assert.JSONEq(t, primaryFixture, string(p.RawPayload()))
}

func TestProfileNormalizer_SecondaryBureau(t *testing.T) {
	t.Run("truelink report with email as an object", func(t *testing.T) {
		p, err := newNormalizer().Normalize([]byte(secondaryFixture), valueobject.ProviderKindSecondaryBureau)
		require.NoError(t, err)

		assert.Equal(t, 702, p.ScoreOr(0))
		assert.True(t, p.ScoreSource().Equal(valueobject.ScoreSourceSecondaryBureau))
		assert.Equal(t, "ravi@example.com", p.Identity().Email())
		assert.Equal(t, "1985-01-30", p.Identity().DOB())
		assert.Equal(t, "827001", p.Identity().Pincode())
		assert.True(t, decimal.NewFromInt(4500).Equal(p.ActiveEMITotal()))
	})

	t.Run("profile report with email as a list and typed scores", func(t *testing.T) {
		p, err := newNormalizer().Normalize([]byte(secondaryProfileFixture), valueobject.ProviderKindSecondaryBureau)
		require.NoError(t, err)

		assert.Equal(t, 735, p.ScoreOr(0))
		assert.Equal(t, "meera@example.com", p.Identity().Email())
		assert.Equal(t, "Meera", p.Identity().FirstName())
		assert.Equal(t, "Nair Iyer", p.Identity().LastName())
		assert.Equal(t, "PQRSX6789K", p.Identity().PAN())
	})
}

func TestProfileNormalizer_PANRegistry(t *testing.T) {
	p, err := newNormalizer().Normalize([]byte(panRegistryFixture), valueobject.ProviderKindPANRegistry)
	require.NoError(t, err)

	_, ok := p.Score()
	assert.False(t, ok)
	assert.True(t, p.ScoreSource().IsZero())
	assert.Empty(t, p.Tradelines())

	id := p.Identity()
	assert.Equal(t, "LMNOP4321Q", id.PAN())
	assert.Equal(t, "Vikram", id.FirstName())
	assert.Equal(t, "Singh", id.LastName())
	assert.Equal(t, "male", id.Gender())
	assert.Equal(t, "Delhi", id.State())
}

func TestProfileNormalizer_StoredRecord(t *testing.T) {
	t.Run("recorded provider kind is kept", func(t *testing.T) {
		raw := `{"pan": "ABCDE1234F", "score": 781, "score_source": "PRIMARY_BUREAU", "provider_kind": "PRIMARY_BUREAU",
			"identity": {"first_name": "Asha", "phone": "9876543210"}, "raw_payload": ` + primaryFixture + `}`
		p, err := newNormalizer().Normalize([]byte(raw), valueobject.ProviderKindStoredRecord)
		require.NoError(t, err)

		assert.Equal(t, 781, p.ScoreOr(0))
		assert.True(t, p.ProviderKind().Equal(valueobject.ProviderKindPrimaryBureau))
		assert.Equal(t, "Asha", p.Identity().FirstName())
		assert.Equal(t, "asha@example.com", p.Identity().Email(), "gaps filled from the embedded report")
		assert.True(t, decimal.NewFromInt(9000).Equal(p.ActiveEMITotal()))
	})

	t.Run("inference labels the provider without changing numbers", func(t *testing.T) {
		raw := `{"pan": "ABCDE1234F", "cibil_score": 650, "raw_report": ` + secondaryFixture + `}`
		p, err := newNormalizer().Normalize([]byte(raw), valueobject.ProviderKindStoredRecord)
		require.NoError(t, err)

		assert.True(t, p.ProviderKind().Equal(valueobject.ProviderKindSecondaryBureau))
		assert.Equal(t, 650, p.ScoreOr(0), "stored score wins over the embedded riskScore")
		assert.True(t, p.ScoreSource().Equal(valueobject.ScoreSourceSecondaryBureau))
		assert.True(t, decimal.NewFromInt(4500).Equal(p.ActiveEMITotal()))
	})
}

func TestProfileNormalizer_MissingIntermediateNodes(t *testing.T) {
	kinds := []valueobject.ProviderKind{
		valueobject.ProviderKindPrimaryBureau,
		valueobject.ProviderKindSecondaryBureau,
		valueobject.ProviderKindPANRegistry,
		valueobject.ProviderKindStoredRecord,
	}
	payloads := []string{`{}`, `[]`, `{"result": null}`, `{"cibilData": "oops"}`, `{"data": {"profile_data": []}}`}

	for _, kind := range kinds {
		for _, raw := range payloads {
			t.Run(kind.String()+" "+raw, func(t *testing.T) {
				p, err := newNormalizer().Normalize([]byte(raw), kind)
				require.NoError(t, err)
				_, ok := p.Score()
				assert.False(t, ok)
				assert.True(t, p.ActiveEMITotal().IsZero())
			})
		}
	}
}

func TestProfileNormalizer_MalformedPayload(t *testing.T) {
	_, err := newNormalizer().Normalize([]byte(`{"result":`), valueobject.ProviderKindPrimaryBureau)
	require.Error(t, err)
	assert.True(t, model.IsReason(err, valueobject.ReasonMalformedUpstreamPayload))
}

func TestInferProviderKind(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want valueobject.ProviderKind
		ok   bool
	}{
		{"primary report", primaryFixture, valueobject.ProviderKindPrimaryBureau, true},
		{"truelink report", secondaryFixture, valueobject.ProviderKindSecondaryBureau, true},
		{"profile report", secondaryProfileFixture, valueobject.ProviderKindSecondaryBureau, true},
		{"status message", `{"message": "Credit score available. Report and lenders fetched."}`, valueobject.ProviderKindSecondaryBureau, true},
		{"unknown", `{"hello": "world"}`, valueobject.ProviderKind{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := service.InferProviderKind(decode(t, tt.raw))
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got))
		})
	}
}
