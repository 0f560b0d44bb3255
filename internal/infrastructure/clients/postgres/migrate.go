package postgres

import (
	"context"
	_ "embed"

	"github.com/rs/zerolog/log"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the embedded DDL
func Schema() string {
	return schemaSQL
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (c *Client) Migrate(ctx context.Context) error {
	return c.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := c.Executor(ctx).ExecContext(ctx, schemaSQL); err != nil {
			return apperrors.FromStoreError("apply schema", err)
		}
		log.Info().Msg("database schema applied")
		return nil
	})
}
