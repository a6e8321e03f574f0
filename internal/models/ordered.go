package models

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Routing iterates endpoint sets and related endpoints in the order backends
// declare them, so those JSON objects decode into insertion-ordered maps.

func NewOrderedMap[V any]() *orderedmap.OrderedMap[string, V] {
	return orderedmap.New[string, V]()
}

// Each visits entries in declaration order. A nil map has none.
func Each[V any](m *orderedmap.OrderedMap[string, V], fn func(key string, value V)) {
	if m == nil {
		return
	}
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

func Keys[V any](m *orderedmap.OrderedMap[string, V]) []string {
	var keys []string
	Each(m, func(key string, _ V) {
		keys = append(keys, key)
	})
	return keys
}

// Lookup is Get that tolerates a missing object.
func Lookup[V any](m *orderedmap.OrderedMap[string, V], key string) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	return m.Get(key)
}
