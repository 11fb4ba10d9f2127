package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isDuplicateKey detects unique-constraint violations across drivers.
// GORM translates them when the dialector supports it; the string checks
// cover MySQL (1062) and SQLite for drivers that do not.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
