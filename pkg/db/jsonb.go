package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB stores V in a PostgreSQL jsonb column. AI output is kept opaque at the
// schema level and typed only in Go.
type JSONB[T any] struct {
	V T
}

// NewJSONB wraps v for storage.
func NewJSONB[T any](v T) JSONB[T] {
	return JSONB[T]{V: v}
}

func (j JSONB[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb column: %w", err)
	}
	return b, nil
}

func (j *JSONB[T]) Scan(src interface{}) error {
	var zero T
	switch s := src.(type) {
	case nil:
		j.V = zero
		return nil
	case []byte:
		return j.unmarshal(s)
	case string:
		return j.unmarshal([]byte(s))
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}

func (j *JSONB[T]) unmarshal(b []byte) error {
	var v T
	if len(b) > 0 {
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("unmarshal jsonb column: %w", err)
		}
	}
	j.V = v
	return nil
}

func (j JSONB[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.V)
}

func (j *JSONB[T]) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &j.V)
}
