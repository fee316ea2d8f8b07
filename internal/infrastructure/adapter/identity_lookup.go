package adapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/service"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Identity registries
// ---------------------------------------------------------------------------

// IdentityURLs are the full endpoints of the identity sources. An empty URL
// disables that source.
type IdentityURLs struct {
	// Prefill resolves a mobile number to a PAN.
	Prefill string
	// PANSupreme returns demographics for a PAN.
	PANSupreme string
	// PANRegistry is the second PAN source, tried when PANSupreme fails.
	PANRegistry string
}

const (
	prefillNoRecord  = "no record found"
	panSupremeStatus = "1"
	refNumAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// IdentityLookupClient implements port.IdentityLookup over the prefill and
// PAN verification vendors. Answers are parsed with the PAN-registry
// extraction map so both PAN sources yield the same field set.
type IdentityLookupClient struct {
	client     *vendorClient
	urls       IdentityURLs
	normalizer *service.ProfileNormalizer
	now        func() time.Time
}

var _ port.IdentityLookup = (*IdentityLookupClient)(nil)

// NewIdentityLookupClient creates a client. cfg.BaseURL is unused; the
// sources are addressed by urls.
func NewIdentityLookupClient(cfg VendorConfig, urls IdentityURLs, normalizer *service.ProfileNormalizer, doer HTTPDoer, logger *slog.Logger) *IdentityLookupClient {
	if cfg.Name == "" {
		cfg.Name = "identity"
	}
	return &IdentityLookupClient{
		client:     newVendorClient(cfg, doer, logger),
		urls:       urls,
		normalizer: normalizer,
		now:        time.Now,
	}
}

// ClientRefNum returns a vendor reference of the form BBA + ddmmyy + three
// random characters from [A-Z0-9].
func ClientRefNum(now time.Time) string {
	id := uuid.New()
	var b strings.Builder
	b.WriteString("BBA")
	b.WriteString(now.Format("020106"))
	for i := 0; i < 3; i++ {
		b.WriteByte(refNumAlphabet[int(id[i])%len(refNumAlphabet)])
	}
	return b.String()
}

type prefillRequest struct {
	ClientRefNum string `json:"client_ref_num"`
	MobileNo     string `json:"mobile_no"`
	NameLookup   int    `json:"name_lookup"`
}

// LookupByMobile asks the prefill source for the PAN registered to phone.
func (c *IdentityLookupClient) LookupByMobile(ctx context.Context, phone string) port.IdentityLookupResult {
	if c.urls.Prefill == "" {
		return port.IdentityLookupResult{
			Outcome: valueobject.IdentityOutcomeSourceUnavailable,
			Message: "mobile lookup is not configured",
		}
	}
	body, err := c.client.postJSON(ctx, c.urls.Prefill, prefillRequest{
		ClientRefNum: ClientRefNum(c.now()),
		MobileNo:     phone,
		NameLookup:   1,
	})

	root, decodeErr := service.DecodePayload(body)
	if decodeErr == nil && strings.EqualFold(service.Lookup(root, service.P("message")).StringOr(""), prefillNoRecord) {
		return port.IdentityLookupResult{
			Outcome: valueobject.IdentityOutcomeNoRecord,
			Message: "No record found for the given mobile number.",
			Raw:     body,
		}
	}
	if err != nil {
		return unavailable(err)
	}
	if decodeErr != nil {
		return port.IdentityLookupResult{Outcome: valueobject.IdentityOutcomeParseError, Message: "unreadable mobile lookup answer", Err: decodeErr}
	}
	if _, ok := service.Lookup(root, service.P("result")).Map(); !ok {
		return port.IdentityLookupResult{Outcome: valueobject.IdentityOutcomeParseError, Message: "mobile lookup answer has no result", Raw: body}
	}
	if _, ok := service.Lookup(root, service.P("result", "pan")).String(); !ok {
		return port.IdentityLookupResult{
			Outcome: valueobject.IdentityOutcomeNameNotFound,
			Message: "PAN number not returned by mobile lookup",
			Raw:     body,
		}
	}
	return c.success(body)
}

type panSupremeRequest struct {
	PAN string `json:"pan"`
}

type panRegistryRequest struct {
	PANNumber string `json:"pan_number"`
	Consent   string `json:"consent"`
}

// VerifyPAN returns demographics for pan, trying PANSupreme and then the
// PAN registry.
func (c *IdentityLookupClient) VerifyPAN(ctx context.Context, pan string) port.IdentityLookupResult {
	res := port.IdentityLookupResult{
		Outcome: valueobject.IdentityOutcomeSourceUnavailable,
		Message: "PAN verification is not configured",
	}
	if c.urls.PANSupreme != "" {
		res = c.panSupreme(ctx, pan)
		if res.Outcome.IsSuccess() {
			return res
		}
		c.client.logger.WarnContext(ctx, "pan supreme failed",
			"pan_suffix", model.MaskedSuffix(pan),
			"outcome", res.Outcome.String(),
		)
	}
	if c.urls.PANRegistry != "" {
		res = c.panRegistry(ctx, pan)
	}
	return res
}

func (c *IdentityLookupClient) panSupreme(ctx context.Context, pan string) port.IdentityLookupResult {
	body, err := c.client.postJSON(ctx, c.urls.PANSupreme, panSupremeRequest{PAN: pan})
	if err != nil {
		return unavailable(err)
	}
	root, err := service.DecodePayload(body)
	if err != nil {
		return port.IdentityLookupResult{Outcome: valueobject.IdentityOutcomeParseError, Message: "unreadable PAN answer", Err: err}
	}
	if status := service.Lookup(root, service.P("status")).StringOr(""); status != panSupremeStatus {
		msg := service.Lookup(root, service.P("message")).StringOr("No message")
		return port.IdentityLookupResult{
			Outcome: valueobject.IdentityOutcomeNoRecord,
			Message: "PAN verification failed: " + msg,
			Raw:     body,
		}
	}
	return c.success(body)
}

func (c *IdentityLookupClient) panRegistry(ctx context.Context, pan string) port.IdentityLookupResult {
	payload, err := marshalCompact(panRegistryRequest{PANNumber: pan, Consent: "Y"})
	if err != nil {
		return unavailable(err)
	}
	header := jsonHeader()
	header.Set("X-Auth-Type", "API-Key")
	body, err := c.client.send(ctx, vendorRequest{Method: http.MethodPost, URL: c.urls.PANRegistry, Body: payload, Header: header})
	if err != nil {
		return unavailable(err)
	}
	root, err := service.DecodePayload(body)
	if err != nil {
		return port.IdentityLookupResult{Outcome: valueobject.IdentityOutcomeParseError, Message: "unreadable PAN registry answer", Err: err}
	}
	if _, ok := service.Lookup(root, service.P("data", "pan_data")).Map(); !ok {
		msg := service.Lookup(root, service.P("message")).StringOr("PAN registry returned no data")
		return port.IdentityLookupResult{Outcome: valueobject.IdentityOutcomeNoRecord, Message: msg, Raw: body}
	}
	return c.success(body)
}

func (c *IdentityLookupClient) success(body []byte) port.IdentityLookupResult {
	profile, err := c.normalizer.Normalize(body, valueobject.ProviderKindPANRegistry)
	if err != nil {
		return port.IdentityLookupResult{Outcome: valueobject.IdentityOutcomeParseError, Message: "unreadable identity answer", Err: err}
	}
	return port.IdentityLookupResult{
		Outcome: valueobject.IdentityOutcomeSuccess,
		Fields:  profile.Identity().Fields(),
		Raw:     body,
	}
}

func unavailable(err error) port.IdentityLookupResult {
	msg := "identity source unavailable"
	var se *StatusError
	if errors.As(err, &se) {
		msg = se.Error()
	}
	return port.IdentityLookupResult{Outcome: valueobject.IdentityOutcomeSourceUnavailable, Message: msg, Err: err}
}
