package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bureau-service/internal/domain/service"
	"github.com/bibbank/bureau-service/internal/infrastructure/adapter"
	"github.com/bibbank/bureau-service/internal/infrastructure/config"
	"github.com/bibbank/bureau-service/pkg/residency"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestBuildUpstreams(t *testing.T) {
	normalizer := service.NewProfileNormalizer(service.NewObligationExtractor())

	t.Run("stubs", func(t *testing.T) {
		up := buildUpstreams(config.Config{UseStubBureaus: true}, normalizer, discard())
		assert.IsType(t, &adapter.StubBureau{}, up.primary)
		assert.IsType(t, &adapter.StubBureau{}, up.reports)
	})

	t.Run("vendors", func(t *testing.T) {
		var cfg config.Config
		cfg.Primary.BaseURL = "https://bureau.example"
		cfg.Secondary.ProfileURL = "https://profile.example/report"
		up := buildUpstreams(cfg, normalizer, discard())
		assert.IsType(t, &adapter.PrimaryBureauClient{}, up.primary)
		assert.IsType(t, &adapter.SecondaryBureauClient{}, up.secondary)
		assert.IsType(t, &adapter.IdentityLookupClient{}, up.identity)
	})
}

func TestVendorConfig(t *testing.T) {
	got := vendorConfig("otp-gateway", config.VendorConfig{
		BaseURL:        "https://otp.example",
		APIKey:         "k",
		TimeoutSeconds: 7,
		MaxRetries:     1,
		RetryBackoffMs: 50,
		RatePerSecond:  3,
		Burst:          2,
	})
	assert.Equal(t, adapter.VendorConfig{
		Name:           "otp-gateway",
		BaseURL:        "https://otp.example",
		APIKey:         "k",
		TimeoutSeconds: 7,
		MaxRetries:     1,
		RetryBackoffMs: 50,
		RatePerSecond:  3,
		Burst:          2,
	}, got)
}

func TestBuildArchive(t *testing.T) {
	t.Run("no bucket disables the archive", func(t *testing.T) {
		a, err := buildArchive(context.Background(), config.ArchiveConfig{}, discard())
		require.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("bucket outside the jurisdiction", func(t *testing.T) {
		_, err := buildArchive(context.Background(), config.ArchiveConfig{
			Bucket:       "reports",
			Region:       "us-east-1",
			Jurisdiction: "IN",
		}, discard())
		var v *residency.Violation
		assert.True(t, errors.As(err, &v))
	})
}

func TestBuildValidator(t *testing.T) {
	_, err := buildValidator(config.AuthConfig{Issuer: "bib-gateway"})
	assert.Error(t, err, "some key material is required")

	svc, err := buildValidator(config.AuthConfig{Secret: "s", Issuer: "bib-gateway"})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}
