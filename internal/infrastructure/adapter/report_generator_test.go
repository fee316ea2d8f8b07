package adapter_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bureau-service/internal/infrastructure/adapter"
)

func TestReportGeneratorClient_Generate(t *testing.T) {
	t.Run("uploads the payload as a file part", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			data, _ := io.ReadAll(file)
			assert.JSONEq(t, reportBody, string(data))
			assert.Equal(t, "credit_report.json", header.Filename)
			_, _ = io.WriteString(w, `{"summary": "healthy"}`)
		}))
		defer srv.Close()
		client := adapter.NewReportGeneratorClient(vendorCfg(srv.URL), srv.Client(), nil)

		got, err := client.Generate(context.Background(), []byte(reportBody))

		require.NoError(t, err)
		assert.JSONEq(t, `{"summary": "healthy"}`, string(got))
	})

	t.Run("error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()
		client := adapter.NewReportGeneratorClient(vendorCfg(srv.URL), srv.Client(), nil)

		_, err := client.Generate(context.Background(), []byte(reportBody))
		require.Error(t, err)
	})

	t.Run("non-json answer", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "<html>")
		}))
		defer srv.Close()
		client := adapter.NewReportGeneratorClient(vendorCfg(srv.URL), srv.Client(), nil)

		_, err := client.Generate(context.Background(), []byte(reportBody))
		require.Error(t, err)
	})
}
