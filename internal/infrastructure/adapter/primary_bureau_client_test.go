package adapter_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/infrastructure/adapter"
)

const reportBody = `{"result": {"customercibilScore": "781", "reportJson": {"CCRResponse": {}}}}`

func testIdentity() model.ApplicantIdentity {
	return model.NewApplicantIdentity(model.IdentityFields{
		PAN:       "abcde1234f",
		FirstName: "Asha",
		LastName:  "Rao",
		DOB:       "12-05-1990",
		Gender:    "F",
		Phone:     "+91 98765 43210",
		Email:     "asha@example.com",
		Pincode:   "560001",
		State:     "Karnataka",
		City:      "Bengaluru",
	})
}

func vendorCfg(url string) adapter.VendorConfig {
	cfg := adapter.DefaultVendorConfig("test", url)
	cfg.RetryBackoffMs = 1
	cfg.RatePerSecond = 0
	return cfg
}

func newPrimary(t *testing.T, handler http.HandlerFunc) *adapter.PrimaryBureauClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return adapter.NewPrimaryBureauClient(vendorCfg(srv.URL), fixedSigner(), adapter.DefaultPrimaryBureauPaths(), srv.Client(), nil)
}

func TestPrimaryBureauClient_Initiate(t *testing.T) {
	paths := adapter.DefaultPrimaryBureauPaths()

	t.Run("score present fetches the full report", func(t *testing.T) {
		var sent map[string]any
		client := newPrimary(t, func(w http.ResponseWriter, r *http.Request) {
			assert.NotEmpty(t, r.Header.Get("Authorization"))
			assert.Equal(t, "bib-user", r.Header.Get("UserId"))
			switch r.URL.Path {
			case paths.Initiate:
				body, _ := io.ReadAll(r.Body)
				require.NoError(t, json.Unmarshal(body, &sent))
				_, _ = io.WriteString(w, `{"result": {"cibilScore": 781}}`)
			case paths.Report:
				assert.Equal(t, "ABCDE1234F", r.URL.Query().Get("PanNumber"))
				assert.Equal(t, "true", r.URL.Query().Get("includeReportJson"))
				_, _ = io.WriteString(w, reportBody)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		})

		res := client.Initiate(context.Background(), testIdentity(), "BASIC234F")

		require.True(t, res.IsSuccess(), res.Reason)
		assert.Equal(t, 781, res.Score)
		assert.JSONEq(t, reportBody, string(res.RawPayload))
		assert.Equal(t, "ABCDE1234F", sent["panNumber"])
		assert.Equal(t, "9876543210", sent["mobileNumber"])
		assert.Equal(t, "1990-05-12T00:00:00", sent["dob"])
		assert.Equal(t, "Female", sent["gender"])
		assert.Equal(t, "BASIC234F", sent["applicationId"])
		assert.Len(t, sent, 9, "initiate carries no address or region fields")
	})

	t.Run("transaction id without score needs consent", func(t *testing.T) {
		client := newPrimary(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"result": {"cibilScore": null, "transID": "T-100"}}`)
		})

		res := client.Initiate(context.Background(), testIdentity(), "")

		assert.True(t, res.IsNeedsConsent())
		assert.Equal(t, "T-100", res.TransactionID)
	})

	tests := []struct {
		name   string
		status int
		body   string
		want   model.FailureClass
	}{
		{"internal error flag in a success envelope", http.StatusOK, `{"isError": true, "responseException": {"exceptionMessage": "boom"}}`, model.FailureInternalFlag},
		{"zero score and no transaction", http.StatusOK, `{"result": {"cibilScore": "0"}}`, model.FailureMissingScore},
		{"vendor error status", http.StatusBadRequest, `{"message": "bad"}`, model.FailureVendorError},
		{"malformed body", http.StatusOK, `{"result":`, model.FailureMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newPrimary(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			res := client.Initiate(context.Background(), testIdentity(), "")
			require.True(t, res.IsFailed())
			assert.Equal(t, tt.want, res.Failure)
		})
	}

	t.Run("transport error is not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
		}))
		defer srv.Close()
		client := adapter.NewPrimaryBureauClient(vendorCfg(srv.URL), fixedSigner(), paths, srv.Client(), nil)

		res := client.Initiate(context.Background(), testIdentity(), "")

		require.True(t, res.IsFailed())
		assert.Equal(t, model.FailureTransport, res.Failure)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestPrimaryBureauClient_VerifyOTP(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   port.OTPOutcome
	}{
		{"verified", http.StatusOK, `{"result": {"cibilStatus": "Success"}}`, port.OTPVerified},
		{"invalid otp", http.StatusOK, `{"result": {"cibilStatus": "InValidOtp"}}`, port.OTPInvalid},
		{"vendor error flag", http.StatusBadRequest, `{"isError": true, "responseException": {"exceptionMessage": "expired"}}`, port.OTPVendorError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newPrimary(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "T-100", r.URL.Query().Get("TransId"))
				assert.Equal(t, "123456", r.URL.Query().Get("Otp"))
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			got, err := client.VerifyOTP(context.Background(), "T-100", "123456")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Outcome)
		})
	}

	t.Run("transport failure is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		client := adapter.NewPrimaryBureauClient(vendorCfg(srv.URL), fixedSigner(), adapter.DefaultPrimaryBureauPaths(), nil, nil)

		_, err := client.VerifyOTP(context.Background(), "T-100", "123456")
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "123456", "query string is not leaked")
	})
}

func TestPrimaryBureauClient_ConsentStatus(t *testing.T) {
	var calls atomic.Int32
	client := newPrimary(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"result": {"status": "Complete"}}`)
	})

	got, err := client.ConsentStatus(context.Background(), "T-100")

	require.NoError(t, err)
	assert.True(t, got.Complete)
	assert.Equal(t, int32(2), calls.Load(), "status reads are retried")
}

func TestPrimaryBureauClient_FetchReportByPAN(t *testing.T) {
	t.Run("report with score", func(t *testing.T) {
		client := newPrimary(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, reportBody)
		})
		res := client.FetchReportByPAN(context.Background(), "ABCDE1234F")
		require.True(t, res.IsSuccess())
		assert.Equal(t, 781, res.Score)
	})

	t.Run("report without score", func(t *testing.T) {
		client := newPrimary(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"result": {}}`)
		})
		res := client.FetchReportByPAN(context.Background(), "ABCDE1234F")
		require.True(t, res.IsFailed())
		assert.Equal(t, model.FailureMissingScore, res.Failure)
	})
}
