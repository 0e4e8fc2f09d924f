package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Metadata keys shared by every remote document.
const (
	FieldID           = "id"
	FieldOwnerID      = "owner_id"
	FieldLastModified = "last_modified"
	FieldSyncStatus   = "sync_status"
	FieldDeleted      = "deleted"
)

// timeKey wraps timestamps on the wire so they decode back into time.Time
// instead of plain strings.
const timeKey = "$time"

// Document is the flat key-value form of a record as stored remotely.
// Values are strings, numbers, bools, time.Time, nested maps and slices of
// maps.
type Document map[string]any

// ChangeType tells what happened to a remote document.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// DocumentChange is a single event delivered by a remote subscription.
// Document is empty for ChangeRemoved.
type DocumentChange struct {
	Type       ChangeType `json:"type"`
	Collection string     `json:"collection"`
	ID         string     `json:"id"`
	Document   Document   `json:"document,omitempty"`
}

// String returns a required string field.
func (d Document) String(key string) (string, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return "", missingField(key)
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(key, "string", v)
	}
	return s, nil
}

// OptionalString returns a string field, or "" when it is absent.
func (d Document) OptionalString(key string) (string, error) {
	if v, ok := d[key]; !ok || v == nil {
		return "", nil
	}
	return d.String(key)
}

// Float returns a required numeric field.
func (d Document) Float(key string) (float64, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return 0, missingField(key)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, wrongType(key, "number", v)
	}
	return f, nil
}

// OptionalFloat returns nil when the field is absent, keeping "unknown"
// apart from an explicit zero.
func (d Document) OptionalFloat(key string) (*float64, error) {
	if v, ok := d[key]; !ok || v == nil {
		return nil, nil
	}
	f, err := d.Float(key)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// OptionalBool returns false when the field is absent.
func (d Document) OptionalBool(key string) (bool, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, wrongType(key, "bool", v)
	}
	return b, nil
}

// Time returns a required timestamp field in UTC.
func (d Document) Time(key string) (time.Time, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return time.Time{}, missingField(key)
	}
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, wrongType(key, "timestamp", v)
	}
	return t.UTC(), nil
}

// Documents returns a required array of embedded maps.
func (d Document) Documents(key string) ([]Document, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return nil, missingField(key)
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []Document:
		out := make([]Document, len(t))
		copy(out, t)
		return out, nil
	case []map[string]any:
		out := make([]Document, 0, len(t))
		for _, m := range t {
			out = append(out, Document(m))
		}
		return out, nil
	default:
		return nil, wrongType(key, "array", v)
	}

	out := make([]Document, 0, len(items))
	for i, item := range items {
		doc, ok := toDocument(item)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is %T, want map", ErrMalformedDocument, key, i, item)
		}
		out = append(out, doc)
	}
	return out, nil
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneValue(map[string]any(d)).(map[string]any))
}

// MarshalJSON encodes timestamps as {"$time": RFC3339Nano}.
func (d Document) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	return json.Marshal(encodeValue(map[string]any(d), false))
}

// UnmarshalJSON reverses MarshalJSON.
func (d *Document) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*d = nil
		return nil
	}

	decoded, err := decodeValue(raw)
	if err != nil {
		return err
	}
	*d = Document(decoded.(map[string]any))
	return nil
}

// Equivalent reports whether two documents describe the same record state.
// The sync status is ignored and timestamps are compared at millisecond
// granularity.
func Equivalent(a, b Document) bool {
	ca, err := canonical(a)
	if err != nil {
		return false
	}
	cb, err := canonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

func canonical(d Document) ([]byte, error) {
	c := make(map[string]any, len(d))
	for k, v := range d {
		if k == FieldSyncStatus {
			continue
		}
		c[k] = v
	}
	return json.Marshal(encodeValue(c, true))
}

func encodeValue(v any, truncate bool) any {
	switch t := v.(type) {
	case time.Time:
		t = t.UTC()
		if truncate {
			t = t.Truncate(time.Millisecond)
		}
		return map[string]any{timeKey: t.Format(time.RFC3339Nano)}
	case Document:
		return encodeValue(map[string]any(t), truncate)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = encodeValue(val, truncate)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = encodeValue(val, truncate)
		}
		return out
	case []Document:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = encodeValue(val, truncate)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = encodeValue(val, truncate)
		}
		return out
	default:
		return v
	}
}

func decodeValue(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if raw, ok := t[timeKey]; ok && len(t) == 1 {
			s, ok := raw.(string)
			if !ok {
				return nil, wrongType(timeKey, "string", raw)
			}
			ts, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("%w: bad timestamp %q: %w", ErrMalformedDocument, s, err)
			}
			return ts.UTC(), nil
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			dv, err := decodeValue(val)
			if err != nil {
				return nil, err
			}
			out[k] = dv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			dv, err := decodeValue(val)
			if err != nil {
				return nil, err
			}
			out[i] = dv
		}
		return out, nil
	default:
		return v, nil
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return Document(cloneValue(map[string]any(t)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []Document:
		out := make([]Document, len(t))
		for i, val := range t {
			out[i] = val.Clone()
		}
		return out
	default:
		return v
	}
}

func toDocument(v any) (Document, bool) {
	switch t := v.(type) {
	case Document:
		return t, true
	case map[string]any:
		return Document(t), true
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func missingField(key string) error {
	return fmt.Errorf("%w: missing field %q", ErrMalformedDocument, key)
}

func wrongType(key, want string, got any) error {
	return fmt.Errorf("%w: field %q is %T, want %s", ErrMalformedDocument, key, got, want)
}
