package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/bibbank/bureau-service/internal/domain/port"
)

// ReportGeneratorClient implements port.ReportGenerator by uploading the raw
// bureau payload as a multipart "file" part and returning the JSON summary.
type ReportGeneratorClient struct {
	client *vendorClient
}

var _ port.ReportGenerator = (*ReportGeneratorClient)(nil)

// NewReportGeneratorClient creates a client posting to cfg.BaseURL.
func NewReportGeneratorClient(cfg VendorConfig, doer HTTPDoer, logger *slog.Logger) *ReportGeneratorClient {
	if cfg.Name == "" {
		cfg.Name = "report-generator"
	}
	return &ReportGeneratorClient{client: newVendorClient(cfg, doer, logger)}
}

// Generate uploads raw and returns the generated report.
func (c *ReportGeneratorClient) Generate(ctx context.Context, raw []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "credit_report.json")
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	if _, err := part.Write(raw); err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", mw.FormDataContentType())
	header.Set("Accept", "application/json")
	body, err := c.client.send(ctx, vendorRequest{
		Method: http.MethodPost,
		URL:    c.client.cfg.BaseURL,
		Body:   buf.Bytes(),
		Header: header,
	})
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("generate report: %s returned a non-JSON body", c.client.cfg.Name)
	}
	return json.RawMessage(body), nil
}
