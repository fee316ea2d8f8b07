package testutil

import (
	"github.com/bibbank/bureau-service/internal/domain/model"
)

// Deterministic applicant data for repository and transport tests.
const (
	TestPAN   = "ABCDE1234F"
	TestPhone = "9876543210"
)

// TestIdentityFields returns a complete, bureau-eligible identity.
func TestIdentityFields() model.IdentityFields {
	return model.IdentityFields{
		PAN:       TestPAN,
		FirstName: "Asha",
		LastName:  "Rao",
		DOB:       "1990-05-12",
		Gender:    "female",
		Phone:     TestPhone,
		Email:     "asha@example.com",
		Pincode:   "560001",
		State:     "Karnataka",
		City:      "Bengaluru",
		Address:   "12 MG Road",
	}
}
