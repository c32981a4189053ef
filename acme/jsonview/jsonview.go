// Package jsonview provides an immutable, nil-safe view over a decoded JSON
// document. It mirrors the upstream acme4j toolbox's JSON helper: callers
// chase through nested fields with Get and pull out typed values with the
// AsXxx accessors instead of juggling map[string]interface{} themselves.
package jsonview

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"time"
)

// JSON is an immutable view over a decoded JSON value. The zero value is
// Empty() and behaves like a JSON document with no fields.
type JSON struct {
	raw any
}

// Empty returns a JSON view with no data. Get, AsString, AsURL etc. on an
// Empty JSON all report absence rather than panicking.
func Empty() JSON {
	return JSON{}
}

// Parse decodes data as JSON and returns a view over the result.
func Parse(data []byte) (JSON, error) {
	if len(data) == 0 {
		return Empty(), nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Empty(), err
	}
	return JSON{raw: raw}, nil
}

// Of wraps an already-decoded value (typically produced by json.Unmarshal
// into an any, or by Get/AsArray on another JSON view).
func Of(raw any) JSON {
	return JSON{raw: raw}
}

// Raw returns the underlying decoded value.
func (j JSON) Raw() any {
	return j.raw
}

// IsPresent reports whether this view holds any data at all.
func (j JSON) IsPresent() bool {
	return j.raw != nil
}

// Marshal re-serializes the view to JSON bytes.
func (j JSON) Marshal() ([]byte, error) {
	if j.raw == nil {
		return []byte("null"), nil
	}
	return json.Marshal(j.raw)
}

func (j JSON) object() map[string]any {
	m, _ := j.raw.(map[string]any)
	return m
}

// Get returns the value of the named field as a JSON view. If the field is
// absent, or this view is not an object, the result is Empty().
func (j JSON) Get(key string) JSON {
	m := j.object()
	if m == nil {
		return Empty()
	}
	v, ok := m[key]
	if !ok {
		return Empty()
	}
	return JSON{raw: v}
}

// AsObject returns this view if it wraps a JSON object, or Empty() otherwise.
func (j JSON) AsObject() JSON {
	if j.object() == nil {
		return Empty()
	}
	return j
}

// Keys returns the field names of an object view, or nil if this is not an
// object.
func (j JSON) Keys() []string {
	m := j.object()
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// AsArray returns the elements of a JSON array view. A non-array view
// returns nil.
func (j JSON) AsArray() []JSON {
	arr, ok := j.raw.([]any)
	if !ok {
		return nil
	}
	out := make([]JSON, len(arr))
	for i, v := range arr {
		out[i] = JSON{raw: v}
	}
	return out
}

// AsString returns the string value of this view, or ("", false) if this
// view is not a string.
func (j JSON) AsString() (string, bool) {
	s, ok := j.raw.(string)
	return s, ok
}

// AsStringOr returns the string value of this view, or def if it is absent
// or not a string.
func (j JSON) AsStringOr(def string) string {
	if s, ok := j.AsString(); ok {
		return s
	}
	return def
}

// AsStringArray returns the array view's elements as strings, skipping
// anything that isn't one.
func (j JSON) AsStringArray() []string {
	var out []string
	for _, v := range j.AsArray() {
		if s, ok := v.AsString(); ok {
			out = append(out, s)
		}
	}
	return out
}

// AsBool returns the bool value of this view, or (false, false) if this
// view is not a bool.
func (j JSON) AsBool() (bool, bool) {
	b, ok := j.raw.(bool)
	return b, ok
}

// AsInt returns the integer value of this view, truncating any fraction, or
// (0, false) if this view is not a number.
func (j JSON) AsInt() (int, bool) {
	f, ok := j.raw.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// AsURL parses the string value of this view as a URL. Returns (nil, false)
// if this view is absent, not a string, or not a valid URL.
func (j JSON) AsURL() (*url.URL, bool) {
	s, ok := j.AsString()
	if !ok || s == "" {
		return nil, false
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, false
	}
	return u, true
}

// AsInstant parses the string value of this view as an RFC 3339 timestamp
// (the format ACME servers use for "expires" and "validated" fields).
// Returns the zero time and false if this view is absent, not a string, or
// not a valid timestamp.
func (j JSON) AsInstant() (time.Time, bool) {
	s, ok := j.AsString()
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AsEncodedBytes base64url-decodes the string value of this view (no
// padding, per RFC 4648 §5 as used throughout JOSE/ACME).
func (j JSON) AsEncodedBytes() ([]byte, bool) {
	s, ok := j.AsString()
	if !ok {
		return nil, false
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return b, true
}
