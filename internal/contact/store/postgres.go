package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"unify/internal/contact/models"
	"unify/pkg/platform/sentinel"
)

// querier is satisfied by *sql.DB and *sql.Tx so the same store code serves
// both transactional and direct access.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const contactColumns = `id, email, phone_number, linked_id, link_precedence, created_at, updated_at, deleted_at`

// Postgres persists contacts in PostgreSQL using plain SQL.
type Postgres struct {
	db querier
}

// NewPostgres constructs a PostgreSQL-backed contact store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// WithTx rebinds the store to a transaction. The resolution tx runner uses
// this so every read and write of one resolution shares the transaction.
func (s *Postgres) WithTx(tx *sql.Tx) *Postgres {
	return &Postgres{db: tx}
}

// EnsureSchema bootstraps the contacts table and its attribute indexes.
// Idempotent; runs at startup.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id              BIGSERIAL PRIMARY KEY,
	email           TEXT,
	phone_number    TEXT,
	linked_id       BIGINT REFERENCES contacts(id),
	link_precedence TEXT NOT NULL CHECK (link_precedence IN ('primary', 'secondary')),
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts (lower(email));
CREATE INDEX IF NOT EXISTS idx_contacts_phone ON contacts (phone_number);
CREATE INDEX IF NOT EXISTS idx_contacts_linked_id ON contacts (linked_id);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("bootstrap contacts schema: %w", err)
	}
	return nil
}

func (s *Postgres) FindByEmailOrPhone(ctx context.Context, emailKey, phone string) ([]models.Contact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE ($1::text <> '' AND email IS NOT NULL AND lower(email) = $1)
		   OR ($2::text <> '' AND phone_number IS NOT NULL AND phone_number = $2)
		ORDER BY id`
	contacts, err := s.queryContacts(ctx, query, emailKey, phone)
	if err != nil {
		return nil, fmt.Errorf("find by email or phone: %w", TranslateErr(err))
	}
	return contacts, nil
}

func (s *Postgres) FindLinked(ctx context.Context, emailKeys, phones []string, ids []int64) ([]models.Contact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE (email IS NOT NULL AND lower(email) = ANY($1))
		   OR (phone_number IS NOT NULL AND phone_number = ANY($2))
		   OR id = ANY($3)
		   OR linked_id = ANY($3)
		ORDER BY id`
	contacts, err := s.queryContacts(ctx, query, pq.Array(emailKeys), pq.Array(phones), pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("find linked: %w", TranslateErr(err))
	}
	return contacts, nil
}

func (s *Postgres) FindByIDOrLinkedID(ctx context.Context, id int64) ([]models.Contact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE id = $1 OR linked_id = $1
		ORDER BY id`
	contacts, err := s.queryContacts(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("find by id or linked id: %w", TranslateErr(err))
	}
	return contacts, nil
}

func (s *Postgres) Insert(ctx context.Context, c *models.Contact) error {
	query := `
		INSERT INTO contacts (email, phone_number, linked_id, link_precedence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := s.db.QueryRowContext(ctx, query,
		nullString(c.Email),
		nullString(c.PhoneNumber),
		nullInt64(c.LinkedID),
		string(c.LinkPrecedence),
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert contact: %w", TranslateErr(err))
	}
	return nil
}

func (s *Postgres) UpdatePrecedence(ctx context.Context, id int64, precedence models.LinkPrecedence, linkedID *int64, now time.Time) error {
	query := `
		UPDATE contacts
		SET link_precedence = $1, linked_id = $2, updated_at = $3
		WHERE id = $4`
	res, err := s.db.ExecContext(ctx, query, string(precedence), nullInt64(linkedID), now, id)
	if err != nil {
		return fmt.Errorf("update precedence: %w", TranslateErr(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update precedence: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) queryContacts(ctx context.Context, query string, args ...any) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var (
			c         models.Contact
			email     sql.NullString
			phone     sql.NullString
			linkedID  sql.NullInt64
			deletedAt sql.NullTime
		)
		if err := rows.Scan(&c.ID, &email, &phone, &linkedID, &c.LinkPrecedence, &c.CreatedAt, &c.UpdatedAt, &deletedAt); err != nil {
			return nil, err
		}
		if email.Valid {
			c.Email = &email.String
		}
		if phone.Valid {
			c.PhoneNumber = &phone.String
		}
		if linkedID.Valid {
			c.LinkedID = &linkedID.Int64
		}
		if deletedAt.Valid {
			c.DeletedAt = &deletedAt.Time
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// TranslateErr maps retryable Postgres failures onto sentinel.ErrConflict so
// the service can re-run the resolution, and connectivity failures onto
// sentinel.ErrUnavailable.
func TranslateErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %v", sentinel.ErrConflict, err)
		case "23505": // unique_violation
			return fmt.Errorf("%w: %v", sentinel.ErrConflict, err)
		case "08000", "08003", "08006": // connection failures
			return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
		}
	}
	return err
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
