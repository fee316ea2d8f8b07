package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/service"
)

// OTPGatewayClient implements port.OTPGateway against the phone OTP service.
// A non-2xx answer or success=false is a negative answer, not an error; only
// transport failures are returned as errors.
type OTPGatewayClient struct {
	client *vendorClient
}

var _ port.OTPGateway = (*OTPGatewayClient)(nil)

// NewOTPGatewayClient creates a client rooted at cfg.BaseURL.
func NewOTPGatewayClient(cfg VendorConfig, doer HTTPDoer, logger *slog.Logger) *OTPGatewayClient {
	if cfg.Name == "" {
		cfg.Name = "otp-gateway"
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &OTPGatewayClient{client: newVendorClient(cfg, doer, logger)}
}

type otpRequest struct {
	PhoneNumber string `json:"phone_number"`
	OTP         string `json:"otp,omitempty"`
}

// Send delivers a fresh OTP to phone.
func (c *OTPGatewayClient) Send(ctx context.Context, phone string) (bool, error) {
	return c.call(ctx, "/otp_send", otpRequest{PhoneNumber: phone})
}

// Resend re-delivers the pending OTP.
func (c *OTPGatewayClient) Resend(ctx context.Context, phone string) (bool, error) {
	return c.call(ctx, "/otp_resend", otpRequest{PhoneNumber: phone})
}

// Verify checks otp against the one sent to phone.
func (c *OTPGatewayClient) Verify(ctx context.Context, phone, otp string) (bool, error) {
	return c.call(ctx, "/otp_verify", otpRequest{PhoneNumber: phone, OTP: otp})
}

func (c *OTPGatewayClient) call(ctx context.Context, path string, req otpRequest) (bool, error) {
	body, err := c.client.postJSON(ctx, c.client.cfg.BaseURL+path, req)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			c.client.logger.WarnContext(ctx, "otp gateway refused", "path", path, "status", se.Code)
			return false, nil
		}
		return false, fmt.Errorf("otp gateway %s: %w", path, err)
	}
	root, err := service.DecodePayload(body)
	if err != nil {
		return false, nil
	}
	ok, _ := service.Lookup(root, service.P("success")).Bool()
	return ok, nil
}
