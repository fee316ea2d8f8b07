package adapter

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/service"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Secondary (direct-report) bureau
// ---------------------------------------------------------------------------

// SecondaryProduct selects which report product the secondary bureau serves.
type SecondaryProduct string

const (
	// ProductTrueLink posts a CustomerInfo document and returns a TrueLink report.
	ProductTrueLink SecondaryProduct = "truelink"
	// ProductBureauProfile posts a flat applicant profile and returns typed scores.
	ProductBureauProfile SecondaryProduct = "bureau_profile"
)

// DefaultPincode is sent when the applicant's pincode is unknown.
const DefaultPincode = "201310"

// SecondaryBureauClient implements port.SecondaryBureauClient. It builds the
// request from the identity alone, so it needs no prior consent step.
type SecondaryBureauClient struct {
	client     *vendorClient
	product    SecondaryProduct
	regions    *service.RegionTable
	normalizer *service.ProfileNormalizer
	encode     func(any) ([]byte, error)
}

var _ port.SecondaryBureauClient = (*SecondaryBureauClient)(nil)

// NewSecondaryBureauClient creates a client posting to cfg.BaseURL.
func NewSecondaryBureauClient(
	cfg VendorConfig,
	product SecondaryProduct,
	regions *service.RegionTable,
	normalizer *service.ProfileNormalizer,
	doer HTTPDoer,
	logger *slog.Logger,
) *SecondaryBureauClient {
	if cfg.Name == "" {
		cfg.Name = "secondary-bureau"
	}
	if regions == nil {
		regions = service.NewRegionTable(nil)
	}
	return &SecondaryBureauClient{
		client:     newVendorClient(cfg, doer, logger),
		product:    product,
		regions:    regions,
		normalizer: normalizer,
		encode:     marshalCompact,
	}
}

type trueLinkRequest struct {
	CustomerInfo              trueLinkCustomer `json:"CustomerInfo"`
	LegalCopyStatus           string           `json:"LegalCopyStatus"`
	UserConsentForDataSharing bool             `json:"UserConsentForDataSharing"`
}

type trueLinkCustomer struct {
	Name struct {
		Forename string `json:"Forename"`
		Surname  string `json:"Surname"`
	} `json:"Name"`
	IdentificationNumber struct {
		IdentifierName string `json:"IdentifierName"`
		ID             string `json:"Id"`
	} `json:"IdentificationNumber"`
	Address struct {
		StreetAddress string `json:"StreetAddress"`
		City          string `json:"City"`
		PostalCode    int    `json:"PostalCode"`
		Region        int    `json:"Region"`
		AddressType   int    `json:"AddressType"`
	} `json:"Address"`
	EmailID     string `json:"EmailID"`
	DateOfBirth string `json:"DateOfBirth"`
	PhoneNumber struct {
		Number int64 `json:"Number"`
	} `json:"PhoneNumber"`
	Gender string `json:"Gender"`
}

type bureauProfileRequest struct {
	Phone       string `json:"phone"`
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	PAN         string `json:"pan"`
	Address     string `json:"address"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	Consent     string `json:"consent"`
}

// FetchReport requests a report for identity and classifies the answer.
func (c *SecondaryBureauClient) FetchReport(ctx context.Context, identity model.ApplicantIdentity) model.BureauResult {
	kind := valueobject.ProviderKindSecondaryBureau

	req, err := c.request(identity)
	if err != nil {
		return model.BureauFailed(kind, model.FailureMalformed, "encode report request: "+err.Error())
	}
	body, err := c.client.send(ctx, req)
	if err != nil {
		return failedFromError(kind, err)
	}

	root, res, ok := decodeEnvelope(kind, body)
	if !ok {
		return res
	}
	if status, _ := service.Lookup(root, service.P("status")).String(); status == "500" {
		return model.BureauFailed(kind, model.FailureInternalFlag, "report envelope carries status 500")
	}
	profile, err := c.normalizer.Normalize(body, kind)
	if err != nil {
		return model.BureauFailed(kind, model.FailureMalformed, err.Error())
	}
	score, ok := profile.Score()
	if !ok || score <= 0 {
		return model.BureauFailed(kind, model.FailureMissingScore, "report carries no score")
	}
	return model.BureauSuccess(kind, score, body)
}

func (c *SecondaryBureauClient) request(identity model.ApplicantIdentity) (vendorRequest, error) {
	var payload any
	header := jsonHeader()
	if c.product == ProductBureauProfile {
		payload = c.profilePayload(identity)
		if c.client.cfg.APIKey != "" {
			header.Set("X-API-Key", c.client.cfg.APIKey)
			header.Set("X-Auth-Type", "API-Key")
		}
	} else {
		payload = c.trueLinkPayload(identity)
	}
	body, err := c.encode(payload)
	if err != nil {
		return vendorRequest{}, err
	}
	return vendorRequest{Method: http.MethodPost, URL: c.client.cfg.BaseURL, Body: body, Header: header}, nil
}

func (c *SecondaryBureauClient) trueLinkPayload(id model.ApplicantIdentity) trueLinkRequest {
	var cust trueLinkCustomer
	cust.Name.Forename = id.FirstName()
	cust.Name.Surname = id.LastName()
	cust.IdentificationNumber.IdentifierName = "TaxId"
	cust.IdentificationNumber.ID = id.PAN()
	cust.Address.StreetAddress = id.Address()
	cust.Address.City = id.City()
	cust.Address.PostalCode, _ = strconv.Atoi(pincodeOrDefault(id.Pincode()))
	cust.Address.Region = c.regions.Code(id.State())
	cust.Address.AddressType = 1
	cust.EmailID = id.Email()
	cust.DateOfBirth = id.DOB()
	cust.PhoneNumber.Number, _ = strconv.ParseInt(lastN(id.Phone(), 10), 10, 64)
	cust.Gender = titleGender(id.Gender())
	return trueLinkRequest{
		CustomerInfo:              cust,
		LegalCopyStatus:           "Accept",
		UserConsentForDataSharing: true,
	}
}

func (c *SecondaryBureauClient) profilePayload(id model.ApplicantIdentity) bureauProfileRequest {
	address := id.Address()
	if address == "" {
		address = "NA"
	}
	return bureauProfileRequest{
		Phone:       lastN(id.Phone(), 10),
		FullName:    id.FullName(),
		DateOfBirth: id.DOB(),
		PAN:         id.PAN(),
		Address:     address,
		State:       c.regions.Abbreviation(id.State()),
		Pincode:     pincodeOrDefault(id.Pincode()),
		Consent:     "Y",
	}
}

func pincodeOrDefault(p string) string {
	if p == "" {
		return DefaultPincode
	}
	return p
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
