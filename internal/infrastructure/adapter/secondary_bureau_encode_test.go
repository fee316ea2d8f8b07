package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/service"
)

func TestSecondaryBureauClient_EncodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request is sent when the payload cannot be encoded")
	}))
	defer srv.Close()

	normalizer := service.NewProfileNormalizer(service.NewObligationExtractor())
	client := NewSecondaryBureauClient(DefaultVendorConfig("secondary", srv.URL), ProductTrueLink, nil, normalizer, srv.Client(), nil)
	client.encode = func(any) ([]byte, error) { return nil, errors.New("unsupported value") }

	res := client.FetchReport(context.Background(), model.NewApplicantIdentity(model.IdentityFields{PAN: "ABCDE1234F"}))

	require.True(t, res.IsFailed())
	assert.Equal(t, model.FailureMalformed, res.Failure)
	assert.Contains(t, res.Reason, "unsupported value")
}
