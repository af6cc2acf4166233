package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by point lookups when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an insert or update violates a unique index.
	ErrConflict = errors.New("unique constraint violation")
)

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isDuplicateKey(err):
		return errors.Join(ErrConflict, err)
	default:
		return err
	}
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	// MySQL 1062 and SQLite constraint messages when the dialector does not translate.
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "Error 1062") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
