package model

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// ApplicantIdentity value object
// ---------------------------------------------------------------------------

// IdentityFields is the loose, serialisable form of an applicant identity.
// It is what identity sources, forms and stored sessions exchange.
type IdentityFields struct {
	PAN       string `json:"pan"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
	Gender    string `json:"gender"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Pincode   string `json:"pincode"`
	State     string `json:"state"`
	City      string `json:"city"`
	Address   string `json:"address"`
}

// ApplicantIdentity is immutable once built. All strings are trimmed and the
// date of birth is held as YYYY-MM-DD (empty when it could not be parsed).
type ApplicantIdentity struct {
	pan       string
	firstName string
	lastName  string
	dob       string
	gender    string
	phone     string
	email     string
	pincode   string
	state     string
	city      string
	address   string
}

// NewApplicantIdentity normalizes f into an identity.
func NewApplicantIdentity(f IdentityFields) ApplicantIdentity {
	dob, _ := NormalizeDOB(f.DOB)
	return ApplicantIdentity{
		pan:       strings.ToUpper(strings.TrimSpace(f.PAN)),
		firstName: strings.TrimSpace(f.FirstName),
		lastName:  strings.TrimSpace(f.LastName),
		dob:       dob,
		gender:    normalizeGender(f.Gender),
		phone:     normalizePhone(f.Phone),
		email:     strings.TrimSpace(f.Email),
		pincode:   strings.TrimSpace(f.Pincode),
		state:     strings.TrimSpace(f.State),
		city:      strings.TrimSpace(f.City),
		address:   strings.TrimSpace(f.Address),
	}
}

// Validate checks the fields a bureau inquiry cannot be made without.
func (a ApplicantIdentity) Validate() error {
	var errs []error
	if a.pan == "" {
		errs = append(errs, errors.New("pan is required"))
	}
	if a.phone == "" {
		errs = append(errs, errors.New("phone is required"))
	}
	if a.firstName == "" {
		errs = append(errs, errors.New("first name is required"))
	}
	return errors.Join(errs...)
}

// Merge returns a copy where every non-empty field of authoritative replaces
// the corresponding field of a. Bureau payloads are passed as authoritative
// over registry lookups.
func (a ApplicantIdentity) Merge(authoritative ApplicantIdentity) ApplicantIdentity {
	next := a
	next.pan = pick(authoritative.pan, a.pan)
	next.firstName = pick(authoritative.firstName, a.firstName)
	next.lastName = pick(authoritative.lastName, a.lastName)
	next.dob = pick(authoritative.dob, a.dob)
	next.gender = pick(authoritative.gender, a.gender)
	next.phone = pick(authoritative.phone, a.phone)
	next.email = pick(authoritative.email, a.email)
	next.pincode = pick(authoritative.pincode, a.pincode)
	next.state = pick(authoritative.state, a.state)
	next.city = pick(authoritative.city, a.city)
	next.address = pick(authoritative.address, a.address)
	return next
}

// Fields returns the serialisable form.
func (a ApplicantIdentity) Fields() IdentityFields {
	return IdentityFields{
		PAN:       a.pan,
		FirstName: a.firstName,
		LastName:  a.lastName,
		DOB:       a.dob,
		Gender:    a.gender,
		Phone:     a.phone,
		Email:     a.email,
		Pincode:   a.pincode,
		State:     a.state,
		City:      a.city,
		Address:   a.address,
	}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (a ApplicantIdentity) PAN() string       { return a.pan }
func (a ApplicantIdentity) FirstName() string { return a.firstName }
func (a ApplicantIdentity) LastName() string  { return a.lastName }
func (a ApplicantIdentity) DOB() string       { return a.dob }
func (a ApplicantIdentity) Gender() string    { return a.gender }
func (a ApplicantIdentity) Phone() string     { return a.phone }
func (a ApplicantIdentity) Email() string     { return a.email }
func (a ApplicantIdentity) Pincode() string   { return a.pincode }
func (a ApplicantIdentity) State() string     { return a.state }
func (a ApplicantIdentity) City() string      { return a.city }
func (a ApplicantIdentity) Address() string   { return a.address }

// FullName joins first and last name.
func (a ApplicantIdentity) FullName() string {
	return strings.TrimSpace(a.firstName + " " + a.lastName)
}

// IsZero reports whether no field is set.
func (a ApplicantIdentity) IsZero() bool { return a == ApplicantIdentity{} }

// PANSuffix returns the last four PAN characters, safe for logs.
func (a ApplicantIdentity) PANSuffix() string { return MaskedSuffix(a.pan) }

// MaskedSuffix returns the last four characters of an identifier.
func MaskedSuffix(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}

// ---------------------------------------------------------------------------
// Normalisation helpers
// ---------------------------------------------------------------------------

var dobLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02Z07:00",
}

// NormalizeDOB converts a date of birth in any of the upstream formats
// (YYYY-MM-DD, DD-MM-YYYY, ISO timestamps with or without offset, or a bare
// date with an offset suffix) to YYYY-MM-DD.
func NormalizeDOB(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	// "1990-05-12+05:30" style: drop the offset and retry on the date part.
	if i := strings.IndexAny(s, "+T "); i == 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

var nonDigit = regexp.MustCompile(`\D`)

func normalizePhone(raw string) string {
	digits := nonDigit.ReplaceAllString(raw, "")
	if len(digits) == 12 && strings.HasPrefix(digits, "91") {
		digits = digits[2:]
	}
	return digits
}

func normalizeGender(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "m", "male":
		return "male"
	case "f", "female":
		return "female"
	case "":
		return ""
	default:
		return "other"
	}
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}
