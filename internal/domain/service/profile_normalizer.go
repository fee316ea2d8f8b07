package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Extraction maps
// ---------------------------------------------------------------------------

// scoreListRule picks a score out of a list of typed score entries, e.g.
// [{"type":"ERS","version":"4.0","value":"781"}].
type scoreListRule struct {
	path    Path
	typ     string
	version string
}

// extractionMap is the fixed set of paths read for one provider kind. Each
// field lists candidate paths in priority order.
type extractionMap struct {
	score      []Path
	scoreLists []scoreListRule
	pan        []Path
	firstName  []Path
	lastName   []Path
	fullName   []Path
	dob        []Path
	gender     []Path
	email      []Path
	phone      []Path
	pincode    []Path
	state      []Path
	city       []Path
	address    []Path
	tradelines bool
}

func join(base Path, steps ...any) Path {
	out := make(Path, 0, len(base)+len(steps))
	out = append(out, base...)
	return append(out, steps...)
}

var (
	equifaxContact = P("result", "reportJson", "CCRResponse", "CIRReportDataLst", 0, "CIRReportData", "IDAndContactInfo")
	equifaxScores  = P("result", "reportJson", "CCRResponse", "CIRReportDataLst", 0, "CIRReportData", "ScoreDetails")

	trueLinkBorrower = P("cibilData", "GetCustomerAssetsResponse", "GetCustomerAssetsSuccess", "Asset", "TrueLinkCreditReport", "Borrower")
	profileData      = P("data", "profile_data")

	panSupreme  = P("result")
	panRegistry = P("data", "pan_data")
)

var primaryBureauMap = extractionMap{
	score: []Path{
		P("result", "customercibilScore"),
		P("result", "cibilScore"),
		P("cibilScore"),
	},
	scoreLists: []scoreListRule{{path: equifaxScores, typ: "ERS", version: "4.0"}},
	pan:        []Path{join(equifaxContact, "IdentityInfo", "PANId", 0, "IdNumber")},
	firstName:  []Path{join(equifaxContact, "PersonalInfo", "Name", "FirstName")},
	lastName:   []Path{join(equifaxContact, "PersonalInfo", "Name", "LastName")},
	fullName:   []Path{join(equifaxContact, "PersonalInfo", "Name", "FullName")},
	dob:        []Path{join(equifaxContact, "PersonalInfo", "DateOfBirth")},
	gender:     []Path{join(equifaxContact, "PersonalInfo", "Gender")},
	email:      []Path{join(equifaxContact, "EmailAddressInfo")},
	phone:      []Path{join(equifaxContact, "PhoneInfo", 0, "Number")},
	pincode:    []Path{join(equifaxContact, "AddressInfo", 0, "Postal")},
	state:      []Path{join(equifaxContact, "AddressInfo", 0, "State")},
	city:       []Path{join(equifaxContact, "AddressInfo", 0, "City")},
	address:    []Path{join(equifaxContact, "AddressInfo", 0, "Address")},
	tradelines: true,
}

var secondaryBureauMap = extractionMap{
	score: []Path{
		join(trueLinkBorrower, "CreditScore", "riskScore"),
		join(trueLinkBorrower, "CreditScore", 0, "riskScore"),
	},
	scoreLists: []scoreListRule{{path: join(profileData, "score_detail"), typ: "ERS", version: "4.0"}},
	firstName: []Path{
		join(trueLinkBorrower, "BorrowerName", "Name", "Forename"),
		join(trueLinkBorrower, "BorrowerName", 0, "Name", "Forename"),
	},
	lastName: []Path{
		join(trueLinkBorrower, "BorrowerName", "Name", "Surname"),
		join(trueLinkBorrower, "BorrowerName", 0, "Name", "Surname"),
	},
	fullName: []Path{join(profileData, "personal_details", "full_name")},
	dob: []Path{
		join(trueLinkBorrower, "Birth", "date"),
		join(trueLinkBorrower, "Birth", 0, "date"),
		join(profileData, "personal_details", "date_of_birth"),
	},
	gender: []Path{
		join(trueLinkBorrower, "Gender"),
		join(profileData, "personal_details", "gender"),
	},
	email: []Path{
		join(trueLinkBorrower, "EmailAddress"),
		join(profileData, "email"),
	},
	pan: []Path{join(profileData, "personal_details", "pan")},
	pincode: []Path{
		join(trueLinkBorrower, "BorrowerAddress", 0, "CreditAddress", "PostalCode"),
		join(trueLinkBorrower, "BorrowerAddress", "CreditAddress", "PostalCode"),
		join(profileData, "address", 0, "pincode"),
	},
	city: []Path{
		join(trueLinkBorrower, "BorrowerAddress", 0, "CreditAddress", "City"),
	},
	tradelines: true,
}

var panRegistryMap = extractionMap{
	pan: []Path{
		join(panRegistry, "document_id"),
		join(panSupreme, "pan"),
		P("pan"),
	},
	firstName: []Path{join(panSupreme, "first_name")},
	lastName:  []Path{join(panSupreme, "last_name")},
	fullName: []Path{
		join(panRegistry, "name"),
		join(panSupreme, "name"),
	},
	dob: []Path{
		join(panSupreme, "dob"),
		join(panRegistry, "date_of_birth"),
	},
	gender: []Path{
		join(panSupreme, "gender"),
		join(panRegistry, "gender"),
	},
	email: []Path{
		join(panSupreme, "email"),
		join(panRegistry, "email"),
	},
	phone: []Path{join(panSupreme, "mobile")},
	pincode: []Path{
		join(panSupreme, "address", "pin_code"),
		join(panRegistry, "address_data", "pincode"),
	},
	state: []Path{
		join(panSupreme, "address", "state"),
		join(panRegistry, "address_data", "state"),
	},
	city: []Path{
		join(panSupreme, "address", "address_line_5"),
		join(panRegistry, "address_data", "city"),
	},
	address: []Path{
		join(panSupreme, "address", "address_line_1"),
		join(panRegistry, "address_data", "line_1"),
	},
}

var storedRecordMap = extractionMap{
	score: []Path{
		P("score"),
		P("cibil_score"),
		P("cibilScore"),
	},
	pan:        []Path{P("pan"), P("identity", "pan")},
	firstName:  []Path{P("identity", "first_name")},
	lastName:   []Path{P("identity", "last_name")},
	fullName:   []Path{P("name")},
	dob:        []Path{P("identity", "dob"), P("dob")},
	gender:     []Path{P("identity", "gender")},
	email:      []Path{P("identity", "email"), P("email")},
	phone:      []Path{P("identity", "phone"), P("phone")},
	pincode:    []Path{P("identity", "pincode"), P("location")},
	state:      []Path{P("identity", "state")},
	city:       []Path{P("identity", "city")},
	address:    []Path{P("identity", "address")},
	tradelines: true,
}

var extractionMaps = map[valueobject.ProviderKind]extractionMap{
	valueobject.ProviderKindPrimaryBureau:   primaryBureauMap,
	valueobject.ProviderKindSecondaryBureau: secondaryBureauMap,
	valueobject.ProviderKindPANRegistry:     panRegistryMap,
	valueobject.ProviderKindStoredRecord:    storedRecordMap,
}

// ---------------------------------------------------------------------------
// ProfileNormalizer
// ---------------------------------------------------------------------------

// ProfileNormalizer turns a raw upstream payload into a CreditProfile.
type ProfileNormalizer struct {
	extractor *ObligationExtractor
	now       func() time.Time
}

// NewProfileNormalizer creates a normalizer using extractor for tradelines.
func NewProfileNormalizer(extractor *ObligationExtractor) *ProfileNormalizer {
	return &ProfileNormalizer{extractor: extractor, now: time.Now}
}

// WithClock returns a copy of n that stamps profiles using now.
func (n *ProfileNormalizer) WithClock(now func() time.Time) *ProfileNormalizer {
	c := *n
	c.now = now
	return &c
}

// Normalize decodes raw and extracts a profile for kind. Only undecodable
// JSON or an unknown kind is an error; missing fields are simply absent.
func (n *ProfileNormalizer) Normalize(raw []byte, kind valueobject.ProviderKind) (model.CreditProfile, error) {
	em, ok := extractionMaps[kind]
	if !ok {
		return model.CreditProfile{}, fmt.Errorf("normalize: unknown provider kind %q", kind.String())
	}
	root, err := DecodePayload(raw)
	if err != nil {
		return model.CreditProfile{}, model.NewPipelineError(
			valueobject.ReasonMalformedUpstreamPayload, "upstream payload is not valid JSON", err)
	}

	params := model.CreditProfileParams{
		ProviderKind: kind,
		Identity:     em.identity(root),
		RawPayload:   append([]byte(nil), raw...),
		CreatedAt:    n.now().UTC(),
	}
	if score, ok := em.extractScore(root); ok {
		params.Score = &score
		params.ScoreSource = kind.ScoreSource()
	}
	if kind.Equal(valueobject.ProviderKindStoredRecord) {
		n.applyStoredRecord(root, &params)
	}
	if em.tradelines {
		params.ActiveEMITotal, params.Tradelines = n.extractor.Extract(root)
	}
	return model.NewCreditProfile(params)
}

// applyStoredRecord labels a cached record with the provider it originally
// came from and fills identity gaps from the embedded bureau payload. The
// score and obligation total already extracted are left as they are.
func (n *ProfileNormalizer) applyStoredRecord(root any, params *model.CreditProfileParams) {
	embedded := FirstPresent(root, P("raw_payload"), P("raw_report"), P("raw"))

	kind, ok := valueobject.ProviderKind{}, false
	if s, present := Lookup(root, P("provider_kind")).String(); present {
		if k, err := valueobject.NewProviderKind(s); err == nil && !k.Equal(valueobject.ProviderKindStoredRecord) {
			kind, ok = k, true
		}
	}
	if !ok && embedded.Present() {
		kind, ok = InferProviderKind(embedded.Value())
	}
	if ok {
		params.ProviderKind = kind
		if em, known := extractionMaps[kind]; known && embedded.Present() {
			params.Identity = em.identity(embedded.Value()).Merge(params.Identity)
		}
	}

	if params.Score == nil {
		return
	}
	if s, present := Lookup(root, P("score_source")).String(); present {
		if src, err := valueobject.NewScoreSource(s); err == nil {
			params.ScoreSource = src
			return
		}
	}
	params.ScoreSource = params.ProviderKind.ScoreSource()
}

// ---------------------------------------------------------------------------
// Provider inference
// ---------------------------------------------------------------------------

var (
	primaryFingerprints   = []string{"customercibilScore", "CCRResponse", "transID"}
	secondaryFingerprints = []string{"TrueLinkCreditReport", "cibilData", "profile_data", "score_detail"}
	secondaryMessages     = []string{"credit score available. report and lenders fetched."}
)

// InferProviderKind classifies a payload of unknown origin by its
// fingerprints. It is used for display labels only.
func InferProviderKind(root any) (valueobject.ProviderKind, bool) {
	if s, ok := Lookup(root, P("message")).String(); ok {
		for _, m := range secondaryMessages {
			if strings.EqualFold(s, m) {
				return valueobject.ProviderKindSecondaryBureau, true
			}
		}
	}
	if containsKey(root, secondaryFingerprints, 6) {
		return valueobject.ProviderKindSecondaryBureau, true
	}
	if containsKey(root, primaryFingerprints, 6) {
		return valueobject.ProviderKindPrimaryBureau, true
	}
	return valueobject.ProviderKind{}, false
}

func containsKey(v any, keys []string, depth int) bool {
	if depth < 0 {
		return false
	}
	switch node := v.(type) {
	case map[string]any:
		for _, k := range keys {
			if _, ok := node[k]; ok {
				return true
			}
		}
		for _, child := range node {
			if containsKey(child, keys, depth-1) {
				return true
			}
		}
	case []any:
		for _, child := range node {
			if containsKey(child, keys, depth-1) {
				return true
			}
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Field helpers
// ---------------------------------------------------------------------------

func (em extractionMap) extractScore(root any) (int, bool) {
	for _, p := range em.score {
		if v, ok := Lookup(root, p).Int(); ok && v > 0 {
			return v, true
		}
	}
	for _, rule := range em.scoreLists {
		for _, item := range Lookup(root, rule.path).List() {
			m, ok := item.Map()
			if !ok {
				continue
			}
			typ, _ := lookupAlias(m, []string{"type"}).String()
			ver, _ := lookupAlias(m, []string{"version"}).String()
			if !strings.EqualFold(typ, rule.typ) || ver != rule.version {
				continue
			}
			if v, ok := lookupAlias(m, []string{"value", "score"}).Int(); ok && v > 0 {
				return v, true
			}
		}
	}
	return 0, false
}

func (em extractionMap) identity(root any) model.ApplicantIdentity {
	str := func(paths []Path) string { return FirstPresent(root, paths...).StringOr("") }

	first, last := str(em.firstName), str(em.lastName)
	if first == "" {
		first, last = splitFullName(str(em.fullName), last)
	}
	return model.NewApplicantIdentity(model.IdentityFields{
		PAN:       str(em.pan),
		FirstName: first,
		LastName:  last,
		DOB:       str(em.dob),
		Gender:    str(em.gender),
		Phone:     str(em.phone),
		Email:     firstEmail(FirstPresent(root, em.email...)),
		Pincode:   str(em.pincode),
		State:     str(em.state),
		City:      str(em.city),
		Address:   str(em.address),
	})
}

// firstEmail accepts a bare string, an object with an email key or a list of
// either.
func firstEmail(n Node) string {
	if s, ok := n.String(); ok {
		return s
	}
	for _, item := range n.List() {
		if s, ok := item.String(); ok {
			return s
		}
		if m, ok := item.Map(); ok {
			if s, ok := lookupAlias(m, []string{"email", "emailaddress", "emailid"}).String(); ok {
				return s
			}
		}
	}
	return ""
}

func splitFullName(full, last string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", last
	case 1:
		return parts[0], last
	}
	if last == "" {
		last = strings.Join(parts[1:], " ")
	}
	return parts[0], last
}
