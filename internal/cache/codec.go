package cache

import (
	"encoding/json"
	"fmt"
)

// Decode unmarshals the value of e into a fresh T. ok is false when e holds no
// value.
func Decode[T any](e Entry) (value T, ok bool, err error) {
	if !e.HasValue() {
		return value, false, nil
	}
	if err := json.Unmarshal(e.Value, &value); err != nil {
		return value, false, fmt.Errorf("decode %s: %w", e.Key, err)
	}
	return value, true, nil
}

// Lookup is Decode over the current entry at key.
func Lookup[T any](s *Store, key Key) (T, bool, error) {
	return Decode[T](s.Get(key))
}

func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode cache value: %w", err)
	}
	return b, nil
}
