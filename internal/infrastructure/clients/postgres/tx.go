package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

type txKey struct{}

// Executor is the subset of *sql.DB and *sql.Tx the adapters need
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxFromContext returns the transaction carried by ctx, if any
func TxFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// Executor returns the transaction in ctx, falling back to the pool
func (c *Client) Executor(ctx context.Context) Executor {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return c.db
}

// WithinTx runs fn in a transaction carried by the context passed to fn.
// Nested calls join the outer transaction.
func (c *Client) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.FromStoreError("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				log.Error().Err(rbErr).Msg("transaction rollback failed")
			}
		}
	}()

	if c.statementTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", c.statementTimeout.Milliseconds())
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return apperrors.FromStoreError("set statement timeout", err)
		}
	}

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return apperrors.FromStoreError("commit transaction", err)
	}
	return nil
}
