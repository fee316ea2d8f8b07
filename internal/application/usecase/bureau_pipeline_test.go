package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bureau-service/internal/domain/event"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

func TestBureauPipeline_Run(t *testing.T) {
	t.Run("primary success skips the secondary bureau", func(t *testing.T) {
		primary := &mockPrimaryBureau{
			initiateFunc: func(_ context.Context, _ model.ApplicantIdentity, _ string) model.BureauResult {
				return primarySuccess()
			},
		}
		secondary := &mockSecondaryBureau{}
		publisher := &mockEventPublisher{}

		result, err := newPipeline(primary, secondary, publisher).Run(context.Background(), testIdentity(), "BASIC234F")

		require.NoError(t, err)
		assert.Equal(t, model.BureauOutcomeSuccess, result.Outcome)
		assert.False(t, result.FellBack)
		assert.Equal(t, 781, result.Profile.ScoreOr(0))
		assert.True(t, result.Profile.ScoreSource().Equal(valueobject.ScoreSourcePrimaryBureau))
		assert.True(t, decimal.NewFromInt(12500).Equal(result.Profile.ActiveEMITotal()))
		assert.Equal(t, "Asha", result.Profile.Identity().FirstName(), "request identity kept")
		assert.Equal(t, "asha@example.com", result.Profile.Identity().Email(), "bureau fields merged in")
		assert.Empty(t, secondary.identities)
		assert.Equal(t, []string{event.TypeProfileCompleted}, publisher.types())
	})

	t.Run("primary transport failure calls the secondary exactly once", func(t *testing.T) {
		primary := &mockPrimaryBureau{}
		secondary := &mockSecondaryBureau{}
		publisher := &mockEventPublisher{}

		result, err := newPipeline(primary, secondary, publisher).Run(context.Background(), testIdentity(), "BASIC234F")

		require.NoError(t, err)
		assert.Equal(t, 1, primary.initiateCalls, "primary is not retried")
		require.Len(t, secondary.identities, 1)
		assert.Equal(t, "ABCDE1234F", secondary.identities[0].PAN())
		assert.Equal(t, "Karnataka", secondary.identities[0].State())
		assert.True(t, result.FellBack)
		assert.Equal(t, model.FailureTransport, result.PrimaryFailure)
		assert.Equal(t, 702, result.Profile.ScoreOr(0))
		assert.True(t, result.Profile.ScoreSource().Equal(valueobject.ScoreSourceSecondaryBureau))
		assert.Equal(t, []string{event.TypeFallbackTriggered, event.TypeProfileCompleted}, publisher.types())
	})

	t.Run("every primary failure class triggers the fallback", func(t *testing.T) {
		classes := []model.FailureClass{
			model.FailureVendorError,
			model.FailureInternalFlag,
			model.FailureMissingScore,
			model.FailureMalformed,
		}
		for _, class := range classes {
			t.Run(string(class), func(t *testing.T) {
				primary := &mockPrimaryBureau{
					initiateFunc: func(_ context.Context, _ model.ApplicantIdentity, _ string) model.BureauResult {
						return model.BureauFailed(valueobject.ProviderKindPrimaryBureau, class, "boom")
					},
				}
				secondary := &mockSecondaryBureau{}

				result, err := newPipeline(primary, secondary, &mockEventPublisher{}).Run(context.Background(), testIdentity(), "x")

				require.NoError(t, err)
				assert.Len(t, secondary.identities, 1)
				assert.Equal(t, class, result.PrimaryFailure)
			})
		}
	})

	t.Run("unparseable primary payload falls back", func(t *testing.T) {
		primary := &mockPrimaryBureau{
			initiateFunc: func(_ context.Context, _ model.ApplicantIdentity, _ string) model.BureauResult {
				return model.BureauSuccess(valueobject.ProviderKindPrimaryBureau, 700, []byte(`{"result":`))
			},
		}
		secondary := &mockSecondaryBureau{}

		result, err := newPipeline(primary, secondary, &mockEventPublisher{}).Run(context.Background(), testIdentity(), "x")

		require.NoError(t, err)
		assert.Len(t, secondary.identities, 1)
		assert.Equal(t, model.FailureMalformed, result.PrimaryFailure)
	})

	t.Run("needs consent never calls the secondary", func(t *testing.T) {
		primary := &mockPrimaryBureau{
			initiateFunc: func(_ context.Context, _ model.ApplicantIdentity, _ string) model.BureauResult {
				return model.BureauNeedsConsent(valueobject.ProviderKindPrimaryBureau, "TXN-9", nil)
			},
		}
		secondary := &mockSecondaryBureau{}
		publisher := &mockEventPublisher{}

		result, err := newPipeline(primary, secondary, publisher).Run(context.Background(), testIdentity(), "x")

		require.NoError(t, err)
		assert.Equal(t, model.BureauOutcomeNeedsConsent, result.Outcome)
		assert.Equal(t, "TXN-9", result.TransactionID)
		assert.Empty(t, secondary.identities)
		assert.Empty(t, publisher.types())
	})

	t.Run("both bureaus failing is ScoreUnavailable", func(t *testing.T) {
		primary := &mockPrimaryBureau{}
		secondary := &mockSecondaryBureau{
			fetchReportFunc: func(_ context.Context, _ model.ApplicantIdentity) model.BureauResult {
				return model.BureauFailed(valueobject.ProviderKindSecondaryBureau, model.FailureTransport, "timeout")
			},
		}

		_, err := newPipeline(primary, secondary, &mockEventPublisher{}).Run(context.Background(), testIdentity(), "x")

		require.Error(t, err)
		assert.True(t, model.IsReason(err, valueobject.ReasonScoreUnavailable))
		assert.Contains(t, err.Error(), "timeout")
	})

	t.Run("a low score is a success", func(t *testing.T) {
		primary := &mockPrimaryBureau{
			initiateFunc: func(_ context.Context, _ model.ApplicantIdentity, _ string) model.BureauResult {
				return model.BureauSuccess(valueobject.ProviderKindPrimaryBureau, 320, []byte(`{"result": {"cibilScore": "320"}}`))
			},
		}
		secondary := &mockSecondaryBureau{}

		result, err := newPipeline(primary, secondary, &mockEventPublisher{}).Run(context.Background(), testIdentity(), "x")

		require.NoError(t, err)
		assert.Equal(t, 320, result.Profile.ScoreOr(0))
		assert.Empty(t, secondary.identities)
	})

	t.Run("publish failures do not fail the inquiry", func(t *testing.T) {
		primary := &mockPrimaryBureau{
			initiateFunc: func(_ context.Context, _ model.ApplicantIdentity, _ string) model.BureauResult {
				return primarySuccess()
			},
		}
		publisher := &mockEventPublisher{
			publishFunc: func(_ context.Context, _ ...event.DomainEvent) error { return assert.AnError },
		}

		result, err := newPipeline(primary, &mockSecondaryBureau{}, publisher).Run(context.Background(), testIdentity(), "x")

		require.NoError(t, err)
		assert.Equal(t, 781, result.Profile.ScoreOr(0))
	})
}
