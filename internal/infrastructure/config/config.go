package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bibbank/bureau-service/internal/domain/service"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string

	TLS           bool
	SASLEnabled   bool
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string

	// PollingWorkers bounds how many consent polls run at once.
	PollingWorkers int
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

// VendorConfig is shared by every outbound HTTP integration.
type VendorConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
	MaxRetries     int
	RetryBackoffMs int

	// RatePerSecond <= 0 disables throttling.
	RatePerSecond float64
	Burst         int
}

type PrimaryBureauConfig struct {
	VendorConfig
	UserID    string
	SecretKey string
}

type SecondaryBureauConfig struct {
	VendorConfig
	// ProfileURL selects the bureau-profile product instead of TrueLink when set.
	ProfileURL string
}

type IdentityConfig struct {
	VendorConfig
	PrefillURL     string
	PANSupremeURL  string
	PANRegistryURL string
}

type ArchiveConfig struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string

	// Jurisdiction of the applicants whose reports are archived; the
	// region must satisfy its data localization rules.
	Jurisdiction string
}

type AuthConfig struct {
	Secret        string
	PublicKeyPEM  string
	PublicKeyFile string
	Issuer        string
}

type TracingConfig struct {
	Endpoint   string
	Insecure   bool
	SampleRate float64
}

type LogConfig struct {
	Level  string
	Format string
}

// PollingConfig bounds the consent poller.
type PollingConfig struct {
	Attempts int           `yaml:"attempts"`
	Interval time.Duration `yaml:"interval"`
}

// RankingConfig is the lender ranking policy.
type RankingConfig struct {
	PriorityBanks []service.PriorityBank `yaml:"priority_banks"`
	ApprovedCap   int                    `yaml:"approved_cap"`
	TotalCap      int                    `yaml:"total_cap"`
}

// Overlay is the YAML document read from BUREAU_CONFIG_FILE. Zero fields
// leave the environment values in place.
type Overlay struct {
	Ranking        RankingConfig  `yaml:"ranking"`
	Polling        PollingConfig  `yaml:"polling"`
	RegionCodes    map[string]int `yaml:"region_codes"`
	ReportCacheTTL time.Duration  `yaml:"report_cache_ttl"`
}

type Config struct {
	GRPCPort    int
	HTTPPort    int
	ServiceName string

	// GRPCTLSCertFile and GRPCTLSKeyFile enable TLS on the gRPC listener
	// when both are set.
	GRPCTLSCertFile string
	GRPCTLSKeyFile  string
	GRPCReflection  bool

	DB        DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Primary   PrimaryBureauConfig
	Secondary SecondaryBureauConfig
	Identity  IdentityConfig
	OTP       VendorConfig
	Report    VendorConfig
	Archive   ArchiveConfig
	Auth      AuthConfig
	Tracing   TracingConfig
	Log       LogConfig

	Polling        PollingConfig
	Ranking        RankingConfig
	RegionCodes    map[string]int
	ReportCacheTTL time.Duration

	// UseStubBureaus swaps every vendor client for the deterministic stubs.
	UseStubBureaus bool
}

// Validate reports every missing required setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.DB.Password == "" {
		errs = append(errs, errors.New("DB_PASSWORD is required"))
	}
	if !c.UseStubBureaus {
		if c.Primary.BaseURL == "" {
			errs = append(errs, errors.New("PRIMARY_BUREAU_URL is required"))
		}
		if c.Primary.UserID == "" || c.Primary.SecretKey == "" {
			errs = append(errs, errors.New("PRIMARY_BUREAU_USER_ID and PRIMARY_BUREAU_SECRET are required"))
		}
		if c.Secondary.BaseURL == "" && c.Secondary.ProfileURL == "" {
			errs = append(errs, errors.New("SECONDARY_BUREAU_URL or SECONDARY_BUREAU_PROFILE_URL is required"))
		}
	}
	if c.Polling.Attempts <= 0 {
		errs = append(errs, fmt.Errorf("polling attempts must be positive, got %d", c.Polling.Attempts))
	}
	if c.Ranking.ApprovedCap > c.Ranking.TotalCap {
		errs = append(errs, fmt.Errorf("approved cap %d exceeds total cap %d", c.Ranking.ApprovedCap, c.Ranking.TotalCap))
	}
	return errors.Join(errs...)
}

// Load reads the environment and applies the optional YAML overlay named by
// BUREAU_CONFIG_FILE.
func Load() (Config, error) {
	cfg := fromEnv()
	if path := os.Getenv("BUREAU_CONFIG_FILE"); path != "" {
		overlay, err := LoadOverlay(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Apply(overlay)
	}
	return cfg, nil
}

func fromEnv() Config {
	ranking := service.DefaultRankingPolicy()
	return Config{
		GRPCPort:    getEnvInt("GRPC_PORT", 9095),
		HTTPPort:    getEnvInt("HTTP_PORT", 8095),
		ServiceName: getEnv("SERVICE_NAME", "bureau-service"),

		GRPCTLSCertFile: getEnv("GRPC_TLS_CERT_FILE", ""),
		GRPCTLSKeyFile:  getEnv("GRPC_TLS_KEY_FILE", ""),
		GRPCReflection:  getEnvBool("GRPC_REFLECTION", false),

		DB: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "bib"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "bib_bureau"),
			SSLMode:  getEnv("DB_SSLMODE", "require"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
		},
		Kafka: KafkaConfig{
			Brokers:        getEnvList("KAFKA_BROKERS", ""),
			Topic:          getEnv("KAFKA_TOPIC", "bureau-events"),
			ConsumerGroup:  getEnv("KAFKA_CONSUMER_GROUP", "bureau-consent-poller"),
			TLS:            getEnvBool("KAFKA_TLS", false),
			SASLEnabled:    getEnvBool("KAFKA_SASL_ENABLED", false),
			SASLMechanism:  getEnv("KAFKA_SASL_MECHANISM", "PLAIN"),
			SASLUsername:   getEnv("KAFKA_SASL_USERNAME", ""),
			SASLPassword:   getEnv("KAFKA_SASL_PASSWORD", ""),
			PollingWorkers: getEnvInt("CONSENT_POLL_WORKERS", 8),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			SessionTTL: getEnvDuration("SESSION_TTL", 24*time.Hour),
		},
		Primary: PrimaryBureauConfig{
			VendorConfig: vendorFromEnv("PRIMARY_BUREAU", 5),
			UserID:       getEnv("PRIMARY_BUREAU_USER_ID", ""),
			SecretKey:    getEnv("PRIMARY_BUREAU_SECRET", ""),
		},
		Secondary: SecondaryBureauConfig{
			VendorConfig: vendorFromEnv("SECONDARY_BUREAU", 5),
			ProfileURL:   getEnv("SECONDARY_BUREAU_PROFILE_URL", ""),
		},
		Identity: IdentityConfig{
			VendorConfig:   vendorFromEnv("IDENTITY", 10),
			PrefillURL:     getEnv("IDENTITY_PREFILL_URL", ""),
			PANSupremeURL:  getEnv("IDENTITY_PAN_SUPREME_URL", ""),
			PANRegistryURL: getEnv("IDENTITY_PAN_REGISTRY_URL", ""),
		},
		OTP:    vendorFromEnv("OTP", 10),
		Report: vendorFromEnv("REPORT", 2),
		Archive: ArchiveConfig{
			Bucket:       getEnv("ARCHIVE_BUCKET", ""),
			Region:       getEnv("ARCHIVE_REGION", "ap-south-1"),
			Prefix:       getEnv("ARCHIVE_PREFIX", "bureau-reports"),
			Endpoint:     getEnv("ARCHIVE_ENDPOINT", ""),
			Jurisdiction: getEnv("ARCHIVE_JURISDICTION", "IN"),
		},
		Auth: AuthConfig{
			Secret:        getEnv("JWT_SECRET", ""),
			PublicKeyPEM:  getEnv("JWT_PUBLIC_KEY", ""),
			PublicKeyFile: getEnv("JWT_PUBLIC_KEY_FILE", ""),
			Issuer:        getEnv("JWT_ISSUER", "bib-gateway"),
		},
		Tracing: TracingConfig{
			Endpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:   getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRate: getEnvFloat("OTEL_TRACES_SAMPLE_RATE", 1),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Polling: PollingConfig{
			Attempts: getEnvInt("CONSENT_POLL_ATTEMPTS", 5),
			Interval: getEnvDuration("CONSENT_POLL_INTERVAL", 15*time.Second),
		},
		Ranking: RankingConfig{
			PriorityBanks: ranking.PriorityBanks,
			ApprovedCap:   ranking.ApprovedCap,
			TotalCap:      ranking.TotalCap,
		},
		ReportCacheTTL: getEnvDuration("REPORT_CACHE_TTL", 30*24*time.Hour),
		UseStubBureaus: getEnvBool("USE_STUB_BUREAUS", false),
	}
}

func vendorFromEnv(prefix string, rate float64) VendorConfig {
	return VendorConfig{
		BaseURL:        getEnv(prefix+"_URL", ""),
		APIKey:         getEnv(prefix+"_API_KEY", ""),
		TimeoutSeconds: getEnvInt(prefix+"_TIMEOUT_SECONDS", 30),
		MaxRetries:     getEnvInt(prefix+"_MAX_RETRIES", 2),
		RetryBackoffMs: getEnvInt(prefix+"_RETRY_BACKOFF_MS", 200),
		RatePerSecond:  getEnvFloat(prefix+"_RATE_PER_SECOND", rate),
		Burst:          getEnvInt(prefix+"_BURST", 1),
	}
}

// LoadOverlay reads and parses a YAML overlay file.
func LoadOverlay(path string) (Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overlay{}, fmt.Errorf("load config overlay %s: %w", path, err)
	}
	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Overlay{}, fmt.Errorf("parse config overlay %s: %w", path, err)
	}
	return o, nil
}

// Apply merges the non-zero overlay fields into c.
func (c *Config) Apply(o Overlay) {
	if len(o.Ranking.PriorityBanks) > 0 {
		c.Ranking.PriorityBanks = o.Ranking.PriorityBanks
	}
	if o.Ranking.ApprovedCap > 0 {
		c.Ranking.ApprovedCap = o.Ranking.ApprovedCap
	}
	if o.Ranking.TotalCap > 0 {
		c.Ranking.TotalCap = o.Ranking.TotalCap
	}
	if o.Polling.Attempts > 0 {
		c.Polling.Attempts = o.Polling.Attempts
	}
	if o.Polling.Interval > 0 {
		c.Polling.Interval = o.Polling.Interval
	}
	if len(o.RegionCodes) > 0 {
		c.RegionCodes = o.RegionCodes
	}
	if o.ReportCacheTTL > 0 {
		c.ReportCacheTTL = o.ReportCacheTTL
	}
}

// RankingPolicy converts the ranking section for the domain engine.
func (c Config) RankingPolicy() service.RankingPolicy {
	return service.RankingPolicy{
		PriorityBanks: c.Ranking.PriorityBanks,
		ApprovedCap:   c.Ranking.ApprovedCap,
		TotalCap:      c.Ranking.TotalCap,
	}
}

func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Timeout is the per-request HTTP timeout.
func (v VendorConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, fallback), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
