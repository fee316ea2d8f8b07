package adapter_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bureau-service/internal/domain/service"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
	"github.com/bibbank/bureau-service/internal/infrastructure/adapter"
)

const panSupremeAnswer = `{
  "status": "1",
  "result": {
    "first_name": " Asha ", "last_name": "Rao", "dob": "12-05-1990", "gender": "F",
    "email": "asha@example.com",
    "address": {"address_line_1": "12 MG Road", "address_line_5": "Bengaluru", "pin_code": "560001", "state": "Karnataka"}
  }
}`

const panRegistryAnswer = `{
  "data": {"pan_data": {
    "document_id": "ABCDE1234F", "name": "Asha Rao", "date_of_birth": "1990-05-12",
    "address_data": {"pincode": "560001", "state": "Karnataka"}
  }}
}`

type identityRoutes map[string]http.HandlerFunc

func newIdentityLookup(t *testing.T, routes identityRoutes) *adapter.IdentityLookupClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.URL.Path]
		if !ok {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	urls := adapter.IdentityURLs{}
	if _, ok := routes["/prefill"]; ok {
		urls.Prefill = srv.URL + "/prefill"
	}
	if _, ok := routes["/pan-supreme"]; ok {
		urls.PANSupreme = srv.URL + "/pan-supreme"
	}
	if _, ok := routes["/pan-registry"]; ok {
		urls.PANRegistry = srv.URL + "/pan-registry"
	}
	cfg := vendorCfg("")
	cfg.APIKey = "id-key"
	normalizer := service.NewProfileNormalizer(service.NewObligationExtractor())
	return adapter.NewIdentityLookupClient(cfg, urls, normalizer, srv.Client(), nil)
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestClientRefNum(t *testing.T) {
	now := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)
	ref := adapter.ClientRefNum(now)
	assert.Regexp(t, regexp.MustCompile(`^BBA070324[A-Z0-9]{3}$`), ref)
}

func TestIdentityLookupClient_LookupByMobile(t *testing.T) {
	t.Run("success carries the PAN", func(t *testing.T) {
		var sent map[string]any
		client := newIdentityLookup(t, identityRoutes{
			"/prefill": func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "id-key", r.Header.Get("x-api-key"))
				body, _ := io.ReadAll(r.Body)
				require.NoError(t, json.Unmarshal(body, &sent))
				_, _ = io.WriteString(w, `{"result": {"pan": "abcde1234f", "name": "ASHA RAO"}}`)
			},
		})

		res := client.LookupByMobile(context.Background(), "9876543210")

		require.True(t, res.Outcome.IsSuccess(), res.Message)
		assert.Equal(t, "ABCDE1234F", res.Fields.PAN)
		assert.Equal(t, "ASHA", res.Fields.FirstName)
		assert.Equal(t, "9876543210", sent["mobile_no"])
		assert.Equal(t, float64(1), sent["name_lookup"])
		assert.Regexp(t, `^BBA\d{6}[A-Z0-9]{3}$`, sent["client_ref_num"])
	})

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    valueobject.IdentityOutcome
	}{
		{"no record message", reply(http.StatusOK, `{"message": "No Record Found"}`), valueobject.IdentityOutcomeNoRecord},
		{"no record on error status", reply(http.StatusNotFound, `{"message": "no record found"}`), valueobject.IdentityOutcomeNoRecord},
		{"result without pan", reply(http.StatusOK, `{"result": {"name": "ASHA RAO"}}`), valueobject.IdentityOutcomeNameNotFound},
		{"no result object", reply(http.StatusOK, `{"status": "ok"}`), valueobject.IdentityOutcomeParseError},
		{"not json", reply(http.StatusOK, `<html>`), valueobject.IdentityOutcomeParseError},
		{"vendor down", reply(http.StatusServiceUnavailable, ``), valueobject.IdentityOutcomeSourceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newIdentityLookup(t, identityRoutes{"/prefill": tt.handler})
			res := client.LookupByMobile(context.Background(), "9876543210")
			assert.Equal(t, tt.want, res.Outcome, res.Message)
		})
	}

	t.Run("unconfigured source is unavailable", func(t *testing.T) {
		client := newIdentityLookup(t, identityRoutes{})
		res := client.LookupByMobile(context.Background(), "9876543210")
		assert.Equal(t, valueobject.IdentityOutcomeSourceUnavailable, res.Outcome)
	})
}

func TestIdentityLookupClient_VerifyPAN(t *testing.T) {
	t.Run("pan supreme success", func(t *testing.T) {
		client := newIdentityLookup(t, identityRoutes{
			"/pan-supreme": func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, `{"pan": "ABCDE1234F"}`, string(body))
				_, _ = io.WriteString(w, panSupremeAnswer)
			},
			"/pan-registry": func(w http.ResponseWriter, r *http.Request) {
				t.Error("registry must not be called when supreme succeeds")
			},
		})

		res := client.VerifyPAN(context.Background(), "ABCDE1234F")

		require.True(t, res.Outcome.IsSuccess(), res.Message)
		assert.Equal(t, "Asha", res.Fields.FirstName)
		assert.Equal(t, "1990-05-12", res.Fields.DOB)
		assert.Equal(t, "female", res.Fields.Gender)
		assert.Equal(t, "Bengaluru", res.Fields.City)
		assert.Equal(t, "Karnataka", res.Fields.State)
		assert.Equal(t, "12 MG Road", res.Fields.Address)
	})

	t.Run("falls back to the registry", func(t *testing.T) {
		client := newIdentityLookup(t, identityRoutes{
			"/pan-supreme": reply(http.StatusOK, `{"status": "0", "message": "invalid pan"}`),
			"/pan-registry": func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "API-Key", r.Header.Get("X-Auth-Type"))
				assert.Equal(t, "id-key", r.Header.Get("X-API-Key"))
				body, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, `{"pan_number": "ABCDE1234F", "consent": "Y"}`, string(body))
				_, _ = io.WriteString(w, panRegistryAnswer)
			},
		})

		res := client.VerifyPAN(context.Background(), "ABCDE1234F")

		require.True(t, res.Outcome.IsSuccess(), res.Message)
		assert.Equal(t, "ABCDE1234F", res.Fields.PAN)
		assert.Equal(t, "Asha", res.Fields.FirstName)
		assert.Equal(t, "Rao", res.Fields.LastName)
		assert.Equal(t, "560001", res.Fields.Pincode)
	})

	t.Run("supreme rejection without registry", func(t *testing.T) {
		client := newIdentityLookup(t, identityRoutes{
			"/pan-supreme": reply(http.StatusOK, `{"status": "0", "message": "invalid pan"}`),
		})
		res := client.VerifyPAN(context.Background(), "ABCDE1234F")
		assert.Equal(t, valueobject.IdentityOutcomeNoRecord, res.Outcome)
		assert.Contains(t, res.Message, "invalid pan")
	})

	t.Run("registry without pan data", func(t *testing.T) {
		client := newIdentityLookup(t, identityRoutes{
			"/pan-registry": reply(http.StatusOK, `{"data": {}, "message": "not found"}`),
		})
		res := client.VerifyPAN(context.Background(), "ABCDE1234F")
		assert.Equal(t, valueobject.IdentityOutcomeNoRecord, res.Outcome)
	})
}
