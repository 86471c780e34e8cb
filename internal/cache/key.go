package cache

import (
	"sort"
	"strings"
)

// Resource names used as the first half of every key and on the push channel.
const (
	Groceries   = "groceries"
	Recipes     = "recipes"
	Recipe      = "recipe"
	Ingredients = "ingredients"
	Schedule    = "schedule"
	Invitations = "invitations"
)

// Key identifies one cached query: a resource plus an optional sub key
// (a recipe id, a date batch).
type Key struct {
	Resource string
	Sub      string
}

func NewKey(resource string, sub ...string) Key {
	return Key{Resource: resource, Sub: strings.Join(sub, "/")}
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) Key {
	resource, sub, _ := strings.Cut(s, "/")
	return Key{Resource: resource, Sub: sub}
}

func (k Key) String() string {
	if k.Sub == "" {
		return k.Resource
	}
	return k.Resource + "/" + k.Sub
}

func (k Key) IsZero() bool {
	return k.Resource == ""
}

// SortKeys returns a sorted copy of keys without duplicates.
func SortKeys(keys []Key) []Key {
	seen := make(map[Key]struct{}, len(keys))
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(b []byte) error {
	*k = ParseKey(string(b))
	return nil
}
