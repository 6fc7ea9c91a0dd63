package binding

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/relsync/internal/ir"
)

// ConstraintError reports a write rejected by a database constraint.
// Key is one of the ir.Key*_VIOLATION codes.
type ConstraintError struct {
	Key string
	Err error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// IsConstraintError returns true if the error resulted from a database
// constraint violation.
func IsConstraintError(err error) bool {
	_, ok := ConstraintKey(err)
	return ok
}

// ConstraintKey returns the ValidationError key of a constraint violation.
//
// A *ConstraintError in the chain wins. Otherwise the message is matched
// against the texts SQLite uses, so errors from other Table
// implementations and test doubles are classified too.
func ConstraintKey(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Key, true
	}
	switch msg := err.Error(); {
	case containsAny(msg, "UNIQUE constraint failed", "PRIMARY KEY constraint failed"):
		return ir.KeyUniqueViolation, true
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return ir.KeyForeignKey, true
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return ir.KeyNotNull, true
	case strings.Contains(msg, "CHECK constraint failed"):
		return ir.KeyCheck, true
	}
	return "", false
}

// IsUniqueConstraintError reports if the error resulted from a uniqueness
// constraint violation, e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	key, _ := ConstraintKey(err)
	return key == ir.KeyUniqueViolation
}

// IsForeignKeyConstraintError reports if the error resulted from a
// foreign-key constraint violation, e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	key, _ := ConstraintKey(err)
	return key == ir.KeyForeignKey
}

// IsNotNullConstraintError reports if the error resulted from writing NULL
// into a NOT NULL column.
func IsNotNullConstraintError(err error) bool {
	key, _ := ConstraintKey(err)
	return key == ir.KeyNotNull
}

// IsCheckConstraintError reports if the error resulted from a check
// constraint violation.
func IsCheckConstraintError(err error) bool {
	key, _ := ConstraintKey(err)
	return key == ir.KeyCheck
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
