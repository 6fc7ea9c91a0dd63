package synchronizer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/roach88/relsync/internal/ir"
)

// Clock supplies the instant used for "now" default values.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// KeyGenerator produces primary keys for uuid and ulid attributes that an
// insert leaves empty.
type KeyGenerator interface {
	NewKey(t ir.AttributeType) (string, error)
}

// RandomKeys generates time-sortable keys: UUIDv7 for uuid attributes and
// monotonic ULIDs for ulid attributes.
//
// Thread-safety: RandomKeys is stateless and safe for concurrent use.
type RandomKeys struct{}

// NewKey returns a fresh key for an attribute of type t.
func (RandomKeys) NewKey(t ir.AttributeType) (string, error) {
	switch t {
	case ir.TypeUUID:
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generate uuid: %w", err)
		}
		return id.String(), nil
	case ir.TypeULID:
		return ulid.Make().String(), nil
	default:
		return "", fmt.Errorf("no generated keys for type %q", t)
	}
}
