package blueprint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Map is an ordered, string-keyed blueprint node.
//
// Values are *Map, []any, string, json.Number, int64, float64, bool or nil.
// Keys keep their original spelling; lookups that go through Lookup are
// case-insensitive and resolve to the first matching key in document order.
type Map struct {
	entries []entry
	index   map[string]int // lowercased key -> first entry index
}

type entry struct {
	Key   string
	Value any
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Keys returns the keys in document order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.Key
	}
	return keys
}

// Get returns the value stored under exactly key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	for _, e := range m.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Lookup finds key case-insensitively. It returns the key as spelled in the
// document together with its value.
func (m *Map) Lookup(key string) (string, any, bool) {
	if m == nil {
		return "", nil, false
	}
	i, ok := m.index[strings.ToLower(key)]
	if !ok {
		return "", nil, false
	}
	e := m.entries[i]
	return e.Key, e.Value, true
}

// LookupMap finds a child Map case-insensitively. ok is false when the key is
// absent or its value is not a Map.
func (m *Map) LookupMap(key string) (*Map, bool) {
	_, v, ok := m.Lookup(key)
	if !ok {
		return nil, false
	}
	child, ok := v.(*Map)
	return child, ok
}

// LookupString finds a string value case-insensitively.
func (m *Map) LookupString(key string) (string, bool) {
	_, v, ok := m.Lookup(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set stores value under exactly key, replacing an existing entry with the
// same spelling or appending a new one.
func (m *Map) Set(key string, value any) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	for i := range m.entries {
		if m.entries[i].Key == key {
			m.entries[i].Value = value
			return
		}
	}
	m.entries = append(m.entries, entry{Key: key, Value: value})
	lower := strings.ToLower(key)
	if _, ok := m.index[lower]; !ok {
		m.index[lower] = len(m.entries) - 1
	}
}

// SetIfAbsent stores value under key unless a case-insensitive match already
// holds a value. A match holding nil or "" is filled in place, keeping the
// document's spelling. It reports whether it wrote.
func (m *Map) SetIfAbsent(key string, value any) bool {
	existing, v, ok := m.Lookup(key)
	if ok && !isBlank(v) {
		return false
	}
	if ok {
		key = existing
	}
	m.Set(key, value)
	return true
}

// EnsureMap returns the child Map under key (case-insensitive), creating an
// empty one spelled as key when absent. It fails if the key holds a
// non-map value.
func (m *Map) EnsureMap(key string) (*Map, error) {
	existing, v, ok := m.Lookup(key)
	if !ok || v == nil {
		if ok {
			key = existing
		}
		child := NewMap()
		m.Set(key, child)
		return child, nil
	}
	child, isMap := v.(*Map)
	if !isMap {
		return nil, fmt.Errorf("%w: %q is %T, not an object", ErrInvalidBlueprint, existing, v)
	}
	return child, nil
}

// Delete removes the entry spelled exactly key.
func (m *Map) Delete(key string) {
	m.deleteWhere(func(k string) bool { return k == key })
}

// DeleteFold removes every entry whose key matches key case-insensitively.
func (m *Map) DeleteFold(key string) {
	m.deleteWhere(func(k string) bool { return strings.EqualFold(k, key) })
}

func (m *Map) deleteWhere(match func(string) bool) {
	if m == nil {
		return
	}
	kept := m.entries[:0]
	for _, e := range m.entries {
		if !match(e.Key) {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(m.entries); i++ {
		m.entries[i] = entry{}
	}
	m.entries = kept
	m.reindex()
}

func (m *Map) reindex() {
	m.index = make(map[string]int, len(m.entries))
	for i, e := range m.entries {
		lower := strings.ToLower(e.Key)
		if _, ok := m.index[lower]; !ok {
			m.index[lower] = i
		}
	}
}

// Clone returns a deep copy of m.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	out := &Map{
		entries: make([]entry, len(m.entries)),
		index:   make(map[string]int, len(m.index)),
	}
	for i, e := range m.entries {
		out.entries[i] = entry{Key: e.Key, Value: cloneValue(e.Value)}
	}
	for k, v := range m.index {
		out.index[k] = v
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// MarshalJSON encodes the map as a JSON object in document order.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", e.Key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (m *Map) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}
