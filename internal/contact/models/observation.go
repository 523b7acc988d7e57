package models

import "strings"

// Observation is the (email, phoneNumber) pair supplied in a resolution
// request. Empty fields mean "not supplied". Values are kept as given; only
// matching folds the email.
type Observation struct {
	Email       string
	PhoneNumber string
}

// IsEmpty reports whether neither attribute is supplied. Empty observations
// are rejected before any store access.
func (o Observation) IsEmpty() bool {
	return o.Email == "" && o.PhoneNumber == ""
}

// EmailKey returns the fold-lowered email for matching.
func (o Observation) EmailKey() (string, bool) {
	if o.Email == "" {
		return "", false
	}
	return strings.ToLower(o.Email), true
}

// PhoneKey returns the phone number for exact matching.
func (o Observation) PhoneKey() (string, bool) {
	if o.PhoneNumber == "" {
		return "", false
	}
	return o.PhoneNumber, true
}
