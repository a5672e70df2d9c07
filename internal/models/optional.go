package models

import "encoding/json"

// Optional distinguishes the three JSON states a PATCH field can be in:
// absent (Set=false), explicit null (Set=true, Valid=false), and present
// (Set=true, Valid=true). Absent fields are left untouched by an update;
// explicit nulls clear the stored value.
type Optional[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Valid: true, Value: v}
}

// Null returns an explicit-null Optional.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		return nil
	}
	if err := json.Unmarshal(b, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
