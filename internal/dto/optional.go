package dto

import "encoding/json"

// Optional distinguishes the three states a PATCH field can be in: absent
// from the payload, explicitly null, or carrying a value. A plain pointer
// collapses "don't touch" and "clear", which loses the partial-update
// semantics, so patch DTOs use this wrapper for clearable fields.
type Optional[T any] struct {
	// Set reports whether the field appeared in the payload at all.
	Set bool
	// Value is nil when the field was given as null.
	Value *T
}

// UnmarshalJSON is only invoked by encoding/json when the key is present,
// which is what makes the absent/null distinction observable.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
