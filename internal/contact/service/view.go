package service

import (
	"unify/internal/contact/models"
	pstrings "unify/pkg/platform/strings"
)

// assembleView projects the one-hop cluster fetch into the consolidated
// identity. The primary's own email and phone lead their lists; the remaining
// members contribute in fetch order with duplicates removed (emails
// case-insensitively, phones exactly). Pure projection, no side effects.
func assembleView(primaryID int64, related []models.Contact) *models.IdentityView {
	emails := make([]string, 0, len(related)+1)
	phones := make([]string, 0, len(related)+1)
	secondaryIDs := make([]int64, 0, len(related))

	for i := range related {
		c := &related[i]
		if c.ID != primaryID {
			continue
		}
		if c.Email != nil {
			emails = append(emails, *c.Email)
		}
		if c.PhoneNumber != nil {
			phones = append(phones, *c.PhoneNumber)
		}
		break
	}

	for i := range related {
		c := &related[i]
		if c.ID == primaryID {
			continue
		}
		secondaryIDs = append(secondaryIDs, c.ID)
		if c.Email != nil {
			emails = append(emails, *c.Email)
		}
		if c.PhoneNumber != nil {
			phones = append(phones, *c.PhoneNumber)
		}
	}

	return &models.IdentityView{
		PrimaryContactID:    primaryID,
		Emails:              pstrings.DedupeOrderedFold(emails),
		PhoneNumbers:        pstrings.DedupeOrdered(phones),
		SecondaryContactIDs: secondaryIDs,
	}
}
