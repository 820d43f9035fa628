package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// canonicalize converts a configuration value into a form the stdlib
// JSON encoder accepts, giving domain value types a canonical textual
// representation: durations and any fmt.Stringer render as their string
// form. Maps and slices are walked recursively. A value that is neither
// a Stringer nor JSON-marshalable is an error, not a silent omission.
func canonicalize(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return t, nil
	case time.Duration:
		return t.String(), nil
	case fmt.Stringer:
		return t.String(), nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			cv, err := canonicalize(val)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = cv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			cv, err := canonicalize(val)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = cv
		}
		return out, nil
	case []string:
		return t, nil
	default:
		if _, err := json.Marshal(t); err != nil {
			return nil, fmt.Errorf("configuration value of type %T is not serializable", t)
		}
		return t, nil
	}
}

// orderedMap is a JSON object that marshals its keys in insertion
// order. The stdlib encoder sorts map keys, which is the right policy
// for the manager block but wrong for per-browser-id maps and the
// column legend, where first-seen order carries meaning.
type orderedMap struct {
	keys   []string
	values map[string]any
}

func newOrderedMap() *orderedMap {
	return &orderedMap{values: make(map[string]any)}
}

// Set adds or replaces a key. A replaced key keeps its original
// position.
func (m *orderedMap) Set(key string, value any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *orderedMap) Len() int {
	return len(m.keys)
}

func (m *orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valueJSON, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		buf.Write(valueJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalSorted renders a value as indented JSON with object keys in
// lexical order (stdlib map ordering), canonicalizing domain values
// first.
func marshalSorted(v map[string]any) (string, error) {
	cv, err := canonicalize(v)
	if err != nil {
		return "", err
	}
	data, marshalErr := json.MarshalIndent(cv, "", "  ")
	if marshalErr != nil {
		return "", marshalErr
	}
	return string(data), nil
}

// marshalIndented renders an ordered map as indented JSON preserving
// insertion order. Hand-assembled because the stdlib indenter applied
// to a custom Marshaler drops the space after colons that the indented
// blocks elsewhere in the report have.
func marshalIndented(m *orderedMap) (string, error) {
	if m.Len() == 0 {
		return "{}", nil
	}

	var b strings.Builder
	b.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString("\n  ")
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return "", err
		}
		b.Write(keyJSON)
		b.WriteString(": ")
		valueJSON, err := json.Marshal(m.values[key])
		if err != nil {
			return "", fmt.Errorf("key %q: %w", key, err)
		}
		b.Write(valueJSON)
	}
	b.WriteString("\n}")
	return b.String(), nil
}

// marshalCompact renders an ordered map as single-line JSON.
func marshalCompact(m *orderedMap) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
