package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// RequireReason fails the test unless err is a PipelineError carrying want.
func RequireReason(t *testing.T, err error, want valueobject.ReasonCode) *model.PipelineError {
	t.Helper()
	require.Error(t, err)
	var pe *model.PipelineError
	require.True(t, errors.As(err, &pe), "expected a pipeline error, got %v", err)
	assert.Equal(t, want.String(), pe.Reason.String())
	return pe
}

// AssertErrorContains checks that err contains the expected substring.
func AssertErrorContains(t *testing.T, err error, expected string) {
	t.Helper()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), expected)
}
