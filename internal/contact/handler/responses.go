package handler

import (
	"unify/internal/contact/models"
)

// IdentifyResponse is the HTTP response for POST /identify.
type IdentifyResponse struct {
	Contact ContactView `json:"contact"`
}

// ContactView is the consolidated identity portion of the response.
type ContactView struct {
	PrimaryContactID    int64    `json:"primaryContactId"`
	Emails              []string `json:"emails"`
	PhoneNumbers        []string `json:"phoneNumbers"`
	SecondaryContactIDs []int64  `json:"secondaryContactIds"`
}

// FromView converts a domain IdentityView to an HTTP response.
func FromView(view *models.IdentityView) *IdentifyResponse {
	return &IdentifyResponse{
		Contact: ContactView{
			PrimaryContactID:    view.PrimaryContactID,
			Emails:              view.Emails,
			PhoneNumbers:        view.PhoneNumbers,
			SecondaryContactIDs: view.SecondaryContactIDs,
		},
	}
}
