package database

import (
	"database/sql"
	"time"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func formatDate(t time.Time) string {
	return t.Format(entities.VisitDateLayout)
}
