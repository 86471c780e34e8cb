package mutation

import (
	"encoding/json"
	"fmt"

	"github.com/bassista/mealsync/internal/cache"
)

// Patch is the optimistic prediction for one key. Transform receives the
// current bytes (nil when the key holds no value) and returns the predicted
// bytes. Returning the input unchanged leaves the key alone; returning nil
// drops the key's value.
type Patch struct {
	Key       cache.Key
	Transform func(current []byte) ([]byte, error)
}

// PatchList predicts a collection key. fn works on a freshly decoded copy, so
// the rollback snapshot can never be touched. Keys without a value are left
// absent: there is nothing to predict from.
func PatchList[T any](key cache.Key, fn func([]T) []T) Patch {
	return Patch{
		Key: key,
		Transform: func(current []byte) ([]byte, error) {
			if current == nil {
				return nil, nil
			}
			var list []T
			if err := json.Unmarshal(current, &list); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
			return json.Marshal(fn(list))
		},
	}
}

// PatchOne predicts a single-entity key by mutating a decoded draft.
func PatchOne[T any](key cache.Key, fn func(*T)) Patch {
	return Patch{
		Key: key,
		Transform: func(current []byte) ([]byte, error) {
			if current == nil {
				return nil, nil
			}
			var draft T
			if err := json.Unmarshal(current, &draft); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
			fn(&draft)
			return json.Marshal(draft)
		},
	}
}

// PatchDrop predicts that key disappears, e.g. the detail view of a deleted
// entity.
func PatchDrop(key cache.Key) Patch {
	return Patch{
		Key: key,
		Transform: func([]byte) ([]byte, error) {
			return nil, nil
		},
	}
}
