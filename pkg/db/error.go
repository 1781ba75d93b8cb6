package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Unique-constraint violation messages for the dialects Open supports:
// postgres (23505), mysql (1062) and sqlite (2067).
var duplicateKeyMarkers = []string{
	"duplicate key value violates unique constraint",
	"Error 1062",
	"UNIQUE constraint failed",
}

// IsDuplicateKeyErr reports whether err is a unique-constraint violation.
// The seeder relies on it to keep repeated boots idempotent.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()
	for _, marker := range duplicateKeyMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
