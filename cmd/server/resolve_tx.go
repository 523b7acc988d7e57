package main

import (
	"context"
	"database/sql"
	"time"

	contactservice "unify/internal/contact/service"
	contactstore "unify/internal/contact/store"
	dErrors "unify/pkg/domain-errors"
)

const defaultResolveTxTimeout = 5 * time.Second

// resolvePostgresTx runs a full resolution inside one serializable Postgres
// transaction: cluster reads, demotions, and inserts either all commit or all
// roll back. Serialization conflicts surface as sentinel.ErrConflict through
// the store's error translation, and the service retries the resolution.
type resolvePostgresTx struct {
	db      *sql.DB
	store   *contactstore.Postgres
	timeout time.Duration
}

func newResolvePostgresTx(db *sql.DB, store *contactstore.Postgres) *resolvePostgresTx {
	return &resolvePostgresTx{db: db, store: store}
}

func (t *resolvePostgresTx) RunInTx(ctx context.Context, fn func(store contactservice.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultResolveTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(t.store.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return contactstore.TranslateErr(err)
	}
	return nil
}
