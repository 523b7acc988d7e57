package models

import (
	"strings"
	"time"
)

// LinkPrecedence marks a contact as the canonical record of its cluster or as
// a subordinate linked to one.
type LinkPrecedence string

const (
	PrecedencePrimary   LinkPrecedence = "primary"
	PrecedenceSecondary LinkPrecedence = "secondary"
)

// Contact is the only persisted entity.
//
// Invariants:
//   - At least one of Email/PhoneNumber is set (enforced upstream by request
//     validation; the store never sees an empty observation).
//   - LinkPrecedence == secondary implies LinkedID points at an existing
//     primary; secondaries never point at other secondaries.
//   - LinkPrecedence == primary implies LinkedID == nil.
//   - CreatedAt is immutable and is the primary-selection key; ID breaks ties.
//   - Precedence only ever transitions primary → secondary (cluster merge),
//     never back.
type Contact struct {
	ID             int64          `json:"id"`
	Email          *string        `json:"email,omitempty"`
	PhoneNumber    *string        `json:"phoneNumber,omitempty"`
	LinkedID       *int64         `json:"linkedId,omitempty"`
	LinkPrecedence LinkPrecedence `json:"linkPrecedence"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      *time.Time     `json:"deletedAt,omitempty"`
}

// EmailKey returns the fold-lowered email for matching. Emails compare
// case-insensitively but are stored and displayed as given.
func (c *Contact) EmailKey() (string, bool) {
	if c.Email == nil || *c.Email == "" {
		return "", false
	}
	return strings.ToLower(*c.Email), true
}

// PhoneKey returns the phone number for matching. Phones compare by exact
// value.
func (c *Contact) PhoneKey() (string, bool) {
	if c.PhoneNumber == nil || *c.PhoneNumber == "" {
		return "", false
	}
	return *c.PhoneNumber, true
}

// IsPrimary reports whether the contact is currently the canonical record of
// its cluster.
func (c *Contact) IsPrimary() bool {
	return c.LinkPrecedence == PrecedencePrimary
}

// Older reports whether c wins primary selection against other:
// earliest CreatedAt first, lowest ID on equal timestamps.
func (c *Contact) Older(other *Contact) bool {
	if !c.CreatedAt.Equal(other.CreatedAt) {
		return c.CreatedAt.Before(other.CreatedAt)
	}
	return c.ID < other.ID
}

// IdentityView is the consolidated identity returned to callers.
// Emails and PhoneNumbers start with the primary's own values; the remaining
// entries follow in fetch order with duplicates removed.
type IdentityView struct {
	PrimaryContactID    int64    `json:"primaryContactId"`
	Emails              []string `json:"emails"`
	PhoneNumbers        []string `json:"phoneNumbers"`
	SecondaryContactIDs []int64  `json:"secondaryContactIds"`
}
