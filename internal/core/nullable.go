package core

import (
	"bytes"
	"encoding/json"
)

// Nullable is an optional field of a partial update. Set is false when the
// field was absent; Set with Valid false means an explicit null.
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// Some builds a present, non-null value.
func Some[T any](v T) Nullable[T] { return Nullable[T]{Set: true, Valid: true, Value: v} }

// Null builds an explicit null.
func Null[T any]() Nullable[T] { return Nullable[T]{Set: true} }

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(b, []byte("null")) {
		n.Valid = false
		return nil
	}
	if err := json.Unmarshal(b, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Ptr returns nil for null and a fresh pointer otherwise.
func (n Nullable[T]) Ptr() *T {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// ApplyTo overwrites *dst when the field was present.
func (n Nullable[T]) ApplyTo(dst **T) {
	if n.Set {
		*dst = n.Ptr()
	}
}
