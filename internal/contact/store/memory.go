package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"unify/internal/contact/models"
	"unify/internal/contact/service"
	"unify/pkg/platform/sentinel"
)

// InMemory keeps contacts in a mutex-guarded map. It backs unit tests and
// store-less local runs; it intentionally favors clarity over performance.
type InMemory struct {
	mu       sync.RWMutex
	contacts map[int64]*models.Contact
	nextID   int64
}

// NewInMemory constructs an empty in-memory contact store.
func NewInMemory() *InMemory {
	return &InMemory{contacts: make(map[int64]*models.Contact)}
}

func (s *InMemory) FindByEmailOrPhone(_ context.Context, emailKey, phone string) ([]models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Contact
	for _, c := range s.contacts {
		if key, ok := c.EmailKey(); ok && emailKey != "" && key == emailKey {
			out = append(out, *c)
			continue
		}
		if key, ok := c.PhoneKey(); ok && phone != "" && key == phone {
			out = append(out, *c)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *InMemory) FindLinked(_ context.Context, emailKeys, phones []string, ids []int64) ([]models.Contact, error) {
	emailSet := stringSet(emailKeys)
	phoneSet := stringSet(phones)
	idSet := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Contact
	for _, c := range s.contacts {
		if matchesLinked(c, emailSet, phoneSet, idSet) {
			out = append(out, *c)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *InMemory) FindByIDOrLinkedID(_ context.Context, id int64) ([]models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Contact
	for _, c := range s.contacts {
		if c.ID == id || (c.LinkedID != nil && *c.LinkedID == id) {
			out = append(out, *c)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *InMemory) Insert(_ context.Context, c *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	c.ID = s.nextID
	stored := *c
	s.contacts[c.ID] = &stored
	return nil
}

func (s *InMemory) UpdatePrecedence(_ context.Context, id int64, precedence models.LinkPrecedence, linkedID *int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.LinkPrecedence = precedence
	c.LinkedID = linkedID
	c.UpdatedAt = now
	return nil
}

// snapshot and restore give MemoryTx cheap whole-store rollback.
func (s *InMemory) snapshot() (map[int64]*models.Contact, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(map[int64]*models.Contact, len(s.contacts))
	for id, c := range s.contacts {
		copied := *c
		snap[id] = &copied
	}
	return snap, s.nextID
}

func (s *InMemory) restore(snap map[int64]*models.Contact, nextID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = snap
	s.nextID = nextID
}

func matchesLinked(c *models.Contact, emailSet, phoneSet map[string]struct{}, idSet map[int64]struct{}) bool {
	if key, ok := c.EmailKey(); ok {
		if _, hit := emailSet[key]; hit {
			return true
		}
	}
	if key, ok := c.PhoneKey(); ok {
		if _, hit := phoneSet[key]; hit {
			return true
		}
	}
	if _, hit := idSet[c.ID]; hit {
		return true
	}
	if c.LinkedID != nil {
		if _, hit := idSet[*c.LinkedID]; hit {
			return true
		}
	}
	return false
}

func stringSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func sortByID(contacts []models.Contact) {
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].ID < contacts[j].ID })
}

// MemoryTx serializes resolutions over an InMemory store and rolls the store
// back to its pre-transaction state when the function fails, mirroring the
// atomicity the Postgres runner gets from real transactions.
type MemoryTx struct {
	mu    sync.Mutex
	store *InMemory
}

// NewMemoryTx constructs a transaction runner over the given store.
func NewMemoryTx(store *InMemory) *MemoryTx {
	return &MemoryTx{store: store}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(store service.Store) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap, nextID := t.store.snapshot()
	if err := fn(t.store); err != nil {
		t.store.restore(snap, nextID)
		return err
	}
	return nil
}
