package service

import (
	"context"
	"time"

	"unify/internal/contact/models"
)

// Store is the persistence surface the resolution engine needs. Implementations
// return pkg/platform/sentinel errors; the service translates them into domain
// errors before they reach a handler.
type Store interface {
	// FindByEmailOrPhone returns every contact whose email matches emailKey
	// case-insensitively or whose phone number equals phone exactly. Either
	// key may be empty, meaning that attribute was not supplied. Matching is
	// pure attribute equality; links are not followed. An empty result is not
	// an error.
	FindByEmailOrPhone(ctx context.Context, emailKey, phone string) ([]models.Contact, error)

	// FindLinked returns every contact whose folded email is in emailKeys,
	// whose phone number is in phones, or whose id or linkedId is in ids.
	// It is the batched edge lookup behind the cluster closure; empty slices
	// match nothing.
	FindLinked(ctx context.Context, emailKeys, phones []string, ids []int64) ([]models.Contact, error)

	// FindByIDOrLinkedID returns the contact with the given id together with
	// every contact whose linkedId equals it, ordered by id.
	FindByIDOrLinkedID(ctx context.Context, id int64) ([]models.Contact, error)

	// Insert persists a new contact and assigns its ID.
	Insert(ctx context.Context, c *models.Contact) error

	// UpdatePrecedence relabels a contact and repoints its link.
	UpdatePrecedence(ctx context.Context, id int64, precedence models.LinkPrecedence, linkedID *int64, now time.Time) error
}

// StoreTx runs a function against the store inside a single transaction.
// Every write the function performs is rolled back if it returns an error,
// so a failed resolution never leaves a cluster with two primaries or a
// secondary with a dangling link.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(store Store) error) error
}

// Locker serializes resolutions that touch overlapping attribute values.
// Keys are acquired as a set; two requests with disjoint key sets never
// contend.
type Locker interface {
	Lock(ctx context.Context, keys []string) error
	Unlock(ctx context.Context, keys []string)
}
