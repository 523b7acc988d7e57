package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"unify/internal/contact/models"
	"unify/internal/contact/service"
	"unify/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) insert(email, phone string, precedence models.LinkPrecedence, linkedID *int64, created time.Time) *models.Contact {
	c := &models.Contact{
		LinkPrecedence: precedence,
		LinkedID:       linkedID,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	if email != "" {
		c.Email = &email
	}
	if phone != "" {
		c.PhoneNumber = &phone
	}
	s.Require().NoError(s.store.Insert(s.ctx, c))
	return c
}

func (s *MemoryStoreSuite) TestInsertAssignsMonotonicIDs() {
	now := time.Now()
	first := s.insert("a@x.com", "111", models.PrecedencePrimary, nil, now)
	second := s.insert("b@x.com", "222", models.PrecedencePrimary, nil, now)

	s.Equal(int64(1), first.ID)
	s.Equal(int64(2), second.ID)
}

func (s *MemoryStoreSuite) TestFindByEmailOrPhone() {
	now := time.Now()
	s.insert("A@X.com", "111", models.PrecedencePrimary, nil, now)
	s.insert("b@x.com", "222", models.PrecedencePrimary, nil, now)

	s.Run("matches email case-insensitively", func() {
		found, err := s.store.FindByEmailOrPhone(s.ctx, "a@x.com", "")
		s.Require().NoError(err)
		s.Require().Len(found, 1)
		s.Equal("A@X.com", *found[0].Email)
	})

	s.Run("matches phone exactly", func() {
		found, err := s.store.FindByEmailOrPhone(s.ctx, "", "222")
		s.Require().NoError(err)
		s.Require().Len(found, 1)
		s.Equal(int64(2), found[0].ID)
	})

	s.Run("matches either attribute", func() {
		found, err := s.store.FindByEmailOrPhone(s.ctx, "a@x.com", "222")
		s.Require().NoError(err)
		s.Len(found, 2)
	})

	s.Run("empty result is not an error", func() {
		found, err := s.store.FindByEmailOrPhone(s.ctx, "nobody@x.com", "999")
		s.Require().NoError(err)
		s.Empty(found)
	})
}

func (s *MemoryStoreSuite) TestFindLinked() {
	now := time.Now()
	p := s.insert("a@x.com", "111", models.PrecedencePrimary, nil, now)
	sec := s.insert("b@x.com", "", models.PrecedenceSecondary, &p.ID, now)
	s.insert("c@x.com", "333", models.PrecedencePrimary, nil, now)

	s.Run("matches by folded email", func() {
		found, err := s.store.FindLinked(s.ctx, []string{"b@x.com"}, nil, nil)
		s.Require().NoError(err)
		s.Require().Len(found, 1)
		s.Equal(sec.ID, found[0].ID)
	})

	s.Run("matches links in both directions", func() {
		// The primary's id finds its secondaries; the secondary's linkedId
		// finds the primary.
		found, err := s.store.FindLinked(s.ctx, nil, nil, []int64{p.ID})
		s.Require().NoError(err)
		s.Len(found, 2)
	})

	s.Run("empty inputs match nothing", func() {
		found, err := s.store.FindLinked(s.ctx, nil, nil, nil)
		s.Require().NoError(err)
		s.Empty(found)
	})
}

func (s *MemoryStoreSuite) TestFindByIDOrLinkedID() {
	now := time.Now()
	p := s.insert("a@x.com", "111", models.PrecedencePrimary, nil, now)
	s.insert("b@x.com", "", models.PrecedenceSecondary, &p.ID, now)
	s.insert("c@x.com", "333", models.PrecedencePrimary, nil, now)

	found, err := s.store.FindByIDOrLinkedID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(found, 2)
	s.Equal(p.ID, found[0].ID, "results ordered by id")
}

func (s *MemoryStoreSuite) TestUpdatePrecedence() {
	now := time.Now()
	p := s.insert("a@x.com", "111", models.PrecedencePrimary, nil, now)
	other := s.insert("b@x.com", "222", models.PrecedencePrimary, nil, now)

	later := now.Add(time.Minute)
	s.Require().NoError(s.store.UpdatePrecedence(s.ctx, other.ID, models.PrecedenceSecondary, &p.ID, later))

	found, err := s.store.FindByIDOrLinkedID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(found, 2)
	s.Equal(models.PrecedenceSecondary, found[1].LinkPrecedence)
	s.Equal(p.ID, *found[1].LinkedID)
	s.True(found[1].UpdatedAt.Equal(later))
	s.True(found[1].CreatedAt.Equal(now), "createdAt is immutable")
}

func (s *MemoryStoreSuite) TestUpdatePrecedenceUnknownID() {
	err := s.store.UpdatePrecedence(s.ctx, 42, models.PrecedenceSecondary, nil, time.Now())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func TestMemoryTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	mem := NewInMemory()
	tx := NewMemoryTx(mem)

	boom := errors.New("boom")
	err := tx.RunInTx(ctx, func(store service.Store) error {
		email := "a@x.com"
		if insertErr := store.Insert(ctx, &models.Contact{
			Email:          &email,
			LinkPrecedence: models.PrecedencePrimary,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}); insertErr != nil {
			return insertErr
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the function error, got %v", err)
	}

	found, err := mem.FindByEmailOrPhone(ctx, "a@x.com", "")
	if err != nil {
		t.Fatalf("find after rollback: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("expected rollback to discard the insert, found %d rows", len(found))
	}

	// A fresh insert after rollback must not reuse a rolled-back id in a
	// surprising way; it restarts from the snapshot's counter.
	email := "b@x.com"
	if err := tx.RunInTx(ctx, func(store service.Store) error {
		return store.Insert(ctx, &models.Contact{
			Email:          &email,
			LinkPrecedence: models.PrecedencePrimary,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		})
	}); err != nil {
		t.Fatalf("insert after rollback: %v", err)
	}
	found, _ = mem.FindByEmailOrPhone(ctx, "b@x.com", "")
	if len(found) != 1 || found[0].ID != 1 {
		t.Fatalf("expected id counter restored by rollback, got %+v", found)
	}
}
