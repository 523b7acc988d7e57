package handler

import (
	"strings"

	"unify/internal/contact/models"
	dErrors "unify/pkg/domain-errors"
)

// IdentifyRequest is the HTTP request body for POST /identify.
type IdentifyRequest struct {
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
}

// Validate normalizes the request and rejects empty observations.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *IdentifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if r.Email != nil {
		trimmed := strings.TrimSpace(*r.Email)
		r.Email = &trimmed
	}
	if r.PhoneNumber != nil {
		trimmed := strings.TrimSpace(*r.PhoneNumber)
		r.PhoneNumber = &trimmed
	}

	if deref(r.Email) == "" && deref(r.PhoneNumber) == "" {
		return dErrors.New(dErrors.CodeValidation, "at least one of email or phoneNumber must be provided")
	}
	return nil
}

// Observation converts the validated request into the domain observation.
func (r *IdentifyRequest) Observation() models.Observation {
	return models.Observation{
		Email:       deref(r.Email),
		PhoneNumber: deref(r.PhoneNumber),
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
