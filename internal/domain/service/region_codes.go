package service

import (
	"fmt"
	"strings"
)

// OtherTerritoryCode is used for any state the table does not know.
const OtherTerritoryCode = 97

// DefaultStateAbbreviation is used by the secondary bureau when the state is
// unmapped.
const DefaultStateAbbreviation = "DL"

var defaultRegionCodes = map[string]int{
	"jammu & kashmir":                      1,
	"jammu and kashmir":                    1,
	"himachal pradesh":                     2,
	"punjab":                               3,
	"chandigarh":                           4,
	"uttarakhand":                          5,
	"haryana":                              6,
	"delhi":                                7,
	"rajasthan":                            8,
	"uttar pradesh":                        9,
	"bihar":                                10,
	"sikkim":                               11,
	"arunachal pradesh":                    12,
	"nagaland":                             13,
	"manipur":                              14,
	"mizoram":                              15,
	"tripura":                              16,
	"meghalaya":                            17,
	"assam":                                18,
	"west bengal":                          19,
	"jharkhand":                            20,
	"odisha":                               21,
	"chhattisgarh":                         22,
	"madhya pradesh":                       23,
	"gujarat":                              24,
	"daman and diu":                        25,
	"dadra & nagar haveli and daman & diu": 26,
	"maharashtra":                          27,
	"andhra pradesh":                       28,
	"karnataka":                            29,
	"goa":                                  30,
	"lakshadweep":                          31,
	"kerala":                               32,
	"tamil nadu":                           33,
	"puducherry":                           34,
	"andaman & nicobar islands":            35,
	"telangana":                            36,
	"andhra pradesh (new)":                 37,
	"ladakh":                               38,
	"other territory":                      97,
	"centre / central jurisdiction":        99,
}

var defaultStateAbbreviations = map[string]string{
	"andhra pradesh":    "AP",
	"arunachal pradesh": "AR",
	"assam":             "AS",
	"bihar":             "BR",
	"chhattisgarh":      "CG",
	"goa":               "GA",
	"gujarat":           "GJ",
	"haryana":           "HR",
	"himachal pradesh":  "HP",
	"jharkhand":         "JH",
	"karnataka":         "KA",
	"kerala":            "KL",
	"madhya pradesh":    "MP",
	"maharashtra":       "MH",
	"manipur":           "MN",
	"meghalaya":         "ML",
	"mizoram":           "MZ",
	"nagaland":          "NL",
	"odisha":            "OR",
	"punjab":            "PB",
	"rajasthan":         "RJ",
	"sikkim":            "SK",
	"tamil nadu":        "TN",
	"telangana":         "TS",
	"tripura":           "TR",
	"uttar pradesh":     "UP",
	"uttarakhand":       "UT",
	"west bengal":       "WB",
	"delhi":             "DL",
	"jammu and kashmir": "JK",
	"jammu & kashmir":   "JK",
}

// RegionTable maps state names to the numeric region codes the primary
// bureau expects and the two-letter codes the secondary bureau expects.
type RegionTable struct {
	codes         map[string]int
	abbreviations map[string]string
}

// NewRegionTable returns the built-in table with overrides applied on top.
// Override keys are matched the same way lookups are.
func NewRegionTable(overrides map[string]int) *RegionTable {
	t := &RegionTable{
		codes:         make(map[string]int, len(defaultRegionCodes)+len(overrides)),
		abbreviations: defaultStateAbbreviations,
	}
	for k, v := range defaultRegionCodes {
		t.codes[k] = v
	}
	for k, v := range overrides {
		t.codes[stateKey(k)] = v
	}
	return t
}

// Code returns the numeric region code for state, or OtherTerritoryCode.
func (t *RegionTable) Code(state string) int {
	if c, ok := t.codes[stateKey(state)]; ok {
		return c
	}
	return OtherTerritoryCode
}

// PaddedCode is Code rendered as two digits.
func (t *RegionTable) PaddedCode(state string) string {
	return fmt.Sprintf("%02d", t.Code(state))
}

// Abbreviation returns the two-letter state code, or DefaultStateAbbreviation.
func (t *RegionTable) Abbreviation(state string) string {
	if a, ok := t.abbreviations[stateKey(state)]; ok {
		return a
	}
	return DefaultStateAbbreviation
}

func stateKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
