package media

import (
	"bytes"
	"encoding/json"
)

// record is an untrusted JSON object from a backend or a caller.
// Accessors never fail: wrong types and missing keys yield zero values.
type record map[string]json.RawMessage

// parseRecord decodes raw as a JSON object. Anything else yields an empty record.
func parseRecord(raw []byte) record {
	var r record
	if err := json.Unmarshal(raw, &r); err != nil || r == nil {
		return record{}
	}
	return r
}

func (r record) has(key string) bool {
	v, ok := r[key]
	return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func (r record) str(key string) string {
	var s string
	if err := json.Unmarshal(r[key], &s); err != nil {
		return ""
	}
	return s
}

func (r record) boolean(key string) bool {
	var b bool
	if err := json.Unmarshal(r[key], &b); err != nil {
		return false
	}
	return b
}

// value returns the raw JSON value for key unchanged, or null when absent.
func (r record) value(key string) json.RawMessage {
	v := bytes.TrimSpace(r[key])
	if len(v) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(v)
}

// valueOr is value with def in place of an absent key. An explicit null is kept.
func (r record) valueOr(key string, def json.RawMessage) json.RawMessage {
	if _, ok := r[key]; !ok {
		return def
	}
	return r.value(key)
}

// list returns the elements of an array value as records.
func (r record) list(key string) []record {
	var items []json.RawMessage
	if err := json.Unmarshal(r[key], &items); err != nil {
		return nil
	}
	out := make([]record, len(items))
	for i, item := range items {
		out[i] = parseRecord(item)
	}
	return out
}

// text renders the raw JSON value for display, unquoting strings.
func (r record) text(key string) string {
	if !r.has(key) {
		return ""
	}
	if s := r.str(key); s != "" {
		return s
	}
	return string(bytes.TrimSpace(r[key]))
}
