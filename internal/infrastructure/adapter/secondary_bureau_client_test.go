package adapter_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/service"
	"github.com/bibbank/bureau-service/internal/infrastructure/adapter"
)

const trueLinkReport = `{
  "cibilData": {"GetCustomerAssetsResponse": {"GetCustomerAssetsSuccess": {"Asset": {
    "TrueLinkCreditReport": {"Borrower": {"CreditScore": {"riskScore": "742"}}}
  }}}}
}`

const profileReport = `{
  "data": {"profile_data": {"score_detail": [
    {"type": "ERS", "version": "3.0", "value": "650"},
    {"type": "ERS", "version": "4.0", "value": "733"}
  ]}}
}`

func newSecondary(t *testing.T, product adapter.SecondaryProduct, handler http.HandlerFunc) *adapter.SecondaryBureauClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := vendorCfg(srv.URL + "/truelink/report")
	cfg.APIKey = "k-123"
	normalizer := service.NewProfileNormalizer(service.NewObligationExtractor())
	return adapter.NewSecondaryBureauClient(cfg, product, service.NewRegionTable(nil), normalizer, srv.Client(), nil)
}

func TestSecondaryBureauClient_TrueLink(t *testing.T) {
	var sent map[string]any
	client := newSecondary(t, adapter.ProductTrueLink, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/truelink/report", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &sent))
		_, _ = io.WriteString(w, trueLinkReport)
	})

	res := client.FetchReport(context.Background(), testIdentity())

	require.True(t, res.IsSuccess(), res.Reason)
	assert.Equal(t, 742, res.Score)
	assert.Equal(t, "Accept", sent["LegalCopyStatus"])
	assert.Equal(t, true, sent["UserConsentForDataSharing"])

	cust := sent["CustomerInfo"].(map[string]any)
	assert.Equal(t, "Female", cust["Gender"])
	assert.Equal(t, float64(9876543210), cust["PhoneNumber"].(map[string]any)["Number"])
	addr := cust["Address"].(map[string]any)
	assert.Equal(t, float64(560001), addr["PostalCode"])
	assert.Equal(t, float64(29), addr["Region"])
	assert.Equal(t, "TaxId", cust["IdentificationNumber"].(map[string]any)["IdentifierName"])
}

func TestSecondaryBureauClient_BureauProfile(t *testing.T) {
	var sent map[string]string
	client := newSecondary(t, adapter.ProductBureauProfile, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k-123", r.Header.Get("X-API-Key"))
		assert.Equal(t, "API-Key", r.Header.Get("X-Auth-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &sent))
		_, _ = io.WriteString(w, profileReport)
	})

	identity := model.NewApplicantIdentity(model.IdentityFields{
		PAN:       "ABCDE1234F",
		FirstName: "Asha",
		LastName:  "Rao",
		Phone:     "919876543210",
	})
	res := client.FetchReport(context.Background(), identity)

	require.True(t, res.IsSuccess(), res.Reason)
	assert.Equal(t, 733, res.Score, "ERS 4.0 wins over other versions")
	assert.Equal(t, "9876543210", sent["phone"])
	assert.Equal(t, "Asha Rao", sent["full_name"])
	assert.Equal(t, "NA", sent["address"])
	assert.Equal(t, "DL", sent["state"])
	assert.Equal(t, adapter.DefaultPincode, sent["pincode"])
	assert.Equal(t, "Y", sent["consent"])
}

func TestSecondaryBureauClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   model.FailureClass
	}{
		{"status 500 envelope", http.StatusOK, `{"status": "500", "message": "no data"}`, model.FailureInternalFlag},
		{"error flag", http.StatusOK, `{"isError": true}`, model.FailureInternalFlag},
		{"no score", http.StatusOK, `{"cibilData": {}}`, model.FailureMissingScore},
		{"not json", http.StatusOK, `<html>`, model.FailureMalformed},
		{"gateway error", http.StatusBadGateway, ``, model.FailureVendorError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newSecondary(t, adapter.ProductTrueLink, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			res := client.FetchReport(context.Background(), testIdentity())
			require.True(t, res.IsFailed())
			assert.Equal(t, tt.want, res.Failure)
		})
	}
}
