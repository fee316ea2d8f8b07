package main

import (
	"context"
	"log/slog"

	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/service"
	"github.com/bibbank/bureau-service/internal/infrastructure/adapter"
	"github.com/bibbank/bureau-service/internal/infrastructure/archive"
	"github.com/bibbank/bureau-service/internal/infrastructure/config"
	"github.com/bibbank/bureau-service/pkg/residency"
)

// upstreams are the outbound integrations of the pipeline.
type upstreams struct {
	primary   port.PrimaryBureauClient
	secondary port.SecondaryBureauClient
	identity  port.IdentityLookup
	otp       port.OTPGateway
	reports   port.ReportGenerator
}

func buildUpstreams(cfg config.Config, normalizer *service.ProfileNormalizer, logger *slog.Logger) upstreams {
	if cfg.UseStubBureaus {
		logger.Warn("using stub bureaus; no vendor is called")
		stub := adapter.NewStubBureau()
		return upstreams{primary: stub, secondary: stub, identity: stub, otp: stub, reports: stub}
	}

	regions := service.NewRegionTable(cfg.RegionCodes)

	secondaryCfg := vendorConfig("secondary-bureau", cfg.Secondary.VendorConfig)
	product := adapter.ProductTrueLink
	if cfg.Secondary.ProfileURL != "" {
		secondaryCfg.BaseURL = cfg.Secondary.ProfileURL
		product = adapter.ProductBureauProfile
	}

	return upstreams{
		primary: adapter.NewPrimaryBureauClient(
			vendorConfig("primary-bureau", cfg.Primary.VendorConfig),
			adapter.NewRequestSigner(cfg.Primary.UserID, cfg.Primary.SecretKey),
			adapter.DefaultPrimaryBureauPaths(),
			nil, logger,
		),
		secondary: adapter.NewSecondaryBureauClient(secondaryCfg, product, regions, normalizer, nil, logger),
		identity: adapter.NewIdentityLookupClient(
			vendorConfig("identity", cfg.Identity.VendorConfig),
			adapter.IdentityURLs{
				Prefill:     cfg.Identity.PrefillURL,
				PANSupreme:  cfg.Identity.PANSupremeURL,
				PANRegistry: cfg.Identity.PANRegistryURL,
			},
			normalizer, nil, logger,
		),
		otp:     adapter.NewOTPGatewayClient(vendorConfig("otp-gateway", cfg.OTP), nil, logger),
		reports: adapter.NewReportGeneratorClient(vendorConfig("report-generator", cfg.Report), nil, logger),
	}
}

func vendorConfig(name string, v config.VendorConfig) adapter.VendorConfig {
	return adapter.VendorConfig{
		Name:           name,
		BaseURL:        v.BaseURL,
		APIKey:         v.APIKey,
		TimeoutSeconds: v.TimeoutSeconds,
		MaxRetries:     v.MaxRetries,
		RetryBackoffMs: v.RetryBackoffMs,
		RatePerSecond:  v.RatePerSecond,
		Burst:          v.Burst,
	}
}

// buildArchive returns a nil archive when no bucket is configured. A bucket
// outside the applicants' jurisdiction is a startup error.
func buildArchive(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) (port.RawReportArchive, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}
	err := residency.NewDefaultPolicy().CheckStorage(
		residency.Jurisdiction(cfg.Jurisdiction), residency.ClassCreditReport, residency.Region(cfg.Region))
	if err != nil {
		return nil, err
	}
	client, err := archive.NewS3Client(ctx, archive.S3Config{Region: cfg.Region, Endpoint: cfg.Endpoint})
	if err != nil {
		logger.Warn("raw report archive disabled", "error", err)
		return nil, nil
	}
	logger.Info("archiving raw reports", "bucket", cfg.Bucket, "prefix", cfg.Prefix, "region", cfg.Region)
	return archive.NewS3Archive(client, cfg.Bucket, cfg.Prefix), nil
}
