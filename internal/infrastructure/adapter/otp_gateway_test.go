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

	"github.com/bibbank/bureau-service/internal/infrastructure/adapter"
)

func TestOTPGatewayClient(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	answer := `{"success": true}`
	status := http.StatusOK

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		w.WriteHeader(status)
		_, _ = io.WriteString(w, answer)
	}))
	defer srv.Close()
	client := adapter.NewOTPGatewayClient(vendorCfg(srv.URL+"/"), srv.Client(), nil)
	ctx := context.Background()

	t.Run("send", func(t *testing.T) {
		ok, err := client.Send(ctx, "9876543210")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "/otp_send", gotPath)
		assert.Equal(t, map[string]string{"phone_number": "9876543210"}, gotBody)
	})

	t.Run("resend", func(t *testing.T) {
		ok, err := client.Resend(ctx, "9876543210")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "/otp_resend", gotPath)
	})

	t.Run("verify rejected", func(t *testing.T) {
		answer = `{"success": false, "message": "wrong otp"}`
		ok, err := client.Verify(ctx, "9876543210", "1234")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "/otp_verify", gotPath)
		assert.Equal(t, "1234", gotBody["otp"])
	})

	t.Run("non-2xx is a negative answer", func(t *testing.T) {
		answer, status = `{"success": true}`, http.StatusBadRequest
		ok, err := client.Verify(ctx, "9876543210", "1234")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestOTPGatewayClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := adapter.NewOTPGatewayClient(vendorCfg(srv.URL), nil, nil)

	_, err := client.Send(context.Background(), "9876543210")
	require.Error(t, err)
}
