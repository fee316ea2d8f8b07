// Package residency enforces where regulated data may be stored. Bureau
// reports and applicant identities fall under data localization rules, so
// every storage location is checked against the jurisdiction of the data
// subject before it is used.
package residency

import (
	"fmt"
	"slices"
	"strings"
)

// Jurisdiction is a regulatory jurisdiction with localization rules.
type Jurisdiction string

const (
	JurisdictionIN Jurisdiction = "IN"
	JurisdictionSG Jurisdiction = "SG"
	JurisdictionEU Jurisdiction = "EU"
)

// DataClass is the sensitivity of the data being stored.
type DataClass string

const (
	// ClassCreditReport is a raw or summarized bureau report.
	ClassCreditReport DataClass = "CREDIT_REPORT"
	// ClassPII is applicant identity data: PAN, phone, address.
	ClassPII DataClass = "PII"
	// ClassOperational is logs, metrics and configuration.
	ClassOperational DataClass = "OPERATIONAL"
)

// Region is a cloud region or data center.
type Region string

// Rule lists the regions a jurisdiction permits for regulated data.
type Rule struct {
	Jurisdiction   Jurisdiction
	StorageRegions []Region
}

// DefaultRules returns the built-in localization rules.
func DefaultRules() []Rule {
	return []Rule{
		{Jurisdiction: JurisdictionIN, StorageRegions: []Region{"ap-south-1", "ap-south-2"}},
		{Jurisdiction: JurisdictionSG, StorageRegions: []Region{"ap-southeast-1"}},
		{Jurisdiction: JurisdictionEU, StorageRegions: []Region{"eu-west-1", "eu-central-1"}},
	}
}

// Violation is returned when a storage location breaks a rule.
type Violation struct {
	Jurisdiction Jurisdiction
	Class        DataClass
	Region       Region
	Reason       string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("residency: %s data of jurisdiction %s cannot be stored in %q: %s",
		v.Class, v.Jurisdiction, v.Region, v.Reason)
}

// Policy evaluates storage locations against a rule set.
type Policy struct {
	rules map[Jurisdiction]Rule
}

// NewPolicy creates a policy. Later rules replace earlier ones for the same
// jurisdiction.
func NewPolicy(rules ...Rule) *Policy {
	p := &Policy{rules: make(map[Jurisdiction]Rule, len(rules))}
	for _, r := range rules {
		p.rules[r.Jurisdiction] = r
	}
	return p
}

// NewDefaultPolicy creates a policy with DefaultRules.
func NewDefaultPolicy() *Policy {
	return NewPolicy(DefaultRules()...)
}

// CheckStorage returns a *Violation when data of class belonging to
// jurisdiction may not be stored in region. Operational data is never
// restricted.
func (p *Policy) CheckStorage(j Jurisdiction, class DataClass, region Region) error {
	if class == ClassOperational {
		return nil
	}
	rule, ok := p.rules[Jurisdiction(strings.ToUpper(string(j)))]
	if !ok {
		return &Violation{Jurisdiction: j, Class: class, Region: region, Reason: "unknown jurisdiction"}
	}
	if region == "" {
		return &Violation{Jurisdiction: j, Class: class, Region: region, Reason: "no region given"}
	}
	if !slices.Contains(rule.StorageRegions, Region(strings.ToLower(string(region)))) {
		return &Violation{Jurisdiction: j, Class: class, Region: region, Reason: "region is outside the jurisdiction"}
	}
	return nil
}
