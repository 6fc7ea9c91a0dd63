package binding

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/relsync/internal/ir"
)

func TestConstraintKey(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantKey string
		wantOK  bool
	}{
		{"nil", nil, "", false},
		{"plain", errors.New("disk I/O error"), "", false},
		{"unique", errors.New("UNIQUE constraint failed: tags.label"), ir.KeyUniqueViolation, true},
		{"primary key", errors.New("PRIMARY KEY constraint failed: tags.id"), ir.KeyUniqueViolation, true},
		{"foreign key", errors.New("FOREIGN KEY constraint failed"), ir.KeyForeignKey, true},
		{"not null", errors.New("NOT NULL constraint failed: orders.customerId"), ir.KeyNotNull, true},
		{"check", errors.New("CHECK constraint failed: qty"), ir.KeyCheck, true},
		{"wrapped", fmt.Errorf("insert: %w", errors.New("UNIQUE constraint failed: x")), ir.KeyUniqueViolation, true},
		{"typed wins", &ConstraintError{Key: ir.KeyCheck, Err: errors.New("UNIQUE constraint failed")}, ir.KeyCheck, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := ConstraintKey(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantOK, IsConstraintError(tt.err))
		})
	}
}

func TestConstraintPredicates(t *testing.T) {
	unique := &ConstraintError{Key: ir.KeyUniqueViolation, Err: errors.New("dup")}
	assert.True(t, IsUniqueConstraintError(unique))
	assert.False(t, IsForeignKeyConstraintError(unique))
	assert.True(t, IsForeignKeyConstraintError(errors.New("FOREIGN KEY constraint failed")))
	assert.True(t, IsNotNullConstraintError(errors.New("NOT NULL constraint failed: a.b")))
	assert.True(t, IsCheckConstraintError(errors.New("CHECK constraint failed: c")))
	assert.ErrorIs(t, fmt.Errorf("wrap: %w", unique), unique.Err)
}
