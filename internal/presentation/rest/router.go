package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bibbank/bureau-service/internal/application/dto"
	"github.com/bibbank/bureau-service/pkg/auth"
)

// ---------------------------------------------------------------------------
// Use-case seams
// ---------------------------------------------------------------------------

type EligibilityAssessor interface {
	Execute(ctx context.Context, req dto.CreditCheckRequest) (dto.EligibilityResponse, error)
}

type OTPVerifier interface {
	Execute(ctx context.Context, req dto.VerifyOTPRequest) (dto.ConsentResponse, error)
}

type ConsentPoller interface {
	Execute(ctx context.Context, req dto.PollConsentRequest) (dto.ConsentResponse, error)
}

type LenderMatcher interface {
	Execute(ctx context.Context, req dto.MatchLendersRequest) (dto.LenderMatchResponse, error)
}

type ReportGenerator interface {
	Execute(ctx context.Context, req dto.CreditReportRequest) (dto.CreditReportResponse, error)
}

type PhoneConsent interface {
	SendOTP(ctx context.Context, req dto.PhoneOTPRequest) (dto.PhoneOTPResponse, error)
	ResendOTP(ctx context.Context, req dto.PhoneOTPRequest) (dto.PhoneOTPResponse, error)
	VerifyPhone(ctx context.Context, req dto.VerifyPhoneRequest) (dto.EligibilityResponse, error)
}

// UseCases groups the operations exposed over HTTP.
type UseCases struct {
	Assess  EligibilityAssessor
	Verify  OTPVerifier
	Poll    ConsentPoller
	Lenders LenderMatcher
	Report  ReportGenerator
	Phone   PhoneConsent
}

// RouterConfig wires the router.
type RouterConfig struct {
	UseCases  UseCases
	Health    *HealthHandler
	Metrics   http.Handler
	Validator auth.TokenValidator
	Logger    *slog.Logger
}

// Router is the public HTTP API.
type Router struct {
	uc     UseCases
	engine *gin.Engine
	logger *slog.Logger
}

// Open routes skip authentication.
var openRoutes = []string{"/healthz", "/readyz", "/metrics"}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	engine := gin.New()
	r := &Router{uc: cfg.UseCases, engine: engine, logger: logger}

	engine.Use(gin.Recovery(), r.requestLogger())

	health := cfg.Health
	if health == nil {
		health = NewHealthHandler("bureau-service")
	}
	engine.GET("/healthz", health.liveness)
	engine.GET("/readyz", health.readiness)
	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	v1 := engine.Group("/v1",
		auth.GinMiddleware(cfg.Validator, openRoutes...),
		auth.GinRequireRole(auth.RoleLoanOfficer, auth.RoleAPIClient, auth.RoleOperator, auth.RoleAdmin),
	)
	{
		v1.POST("/credit/initiate", r.handleInitiate)
		v1.POST("/credit/otp/verify", r.handleVerifyOTP)
		v1.GET("/credit/consent/:transId", r.handlePollConsent)

		v1.POST("/consent/send-otp", r.handleSendOTP)
		v1.POST("/consent/resend-otp", r.handleResendOTP)
		v1.POST("/consent/verify-phone", r.handleVerifyPhone)

		v1.POST("/lenders/match", r.handleMatchLenders)
		v1.GET("/reports/:pan", r.handleReport)
	}

	return r
}

// Handler returns the router as an http.Handler.
func (r *Router) Handler() http.Handler { return r.engine }

func (r *Router) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		r.logger.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
