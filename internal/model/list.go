package model

import (
	"encoding/json"
	"strings"
)

// StringList is an ordered list of strings persisted as a JSON array.
// It always marshals as an array, never null.
type StringList []string

// MarshalJSON implements json.Marshaler.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// ChecklistItems is the ordered item list of a checklist, persisted as a
// JSON array in a single row.
type ChecklistItems []ChecklistItem

// MarshalJSON implements json.Marshaler.
func (l ChecklistItems) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ChecklistItem(l))
}

// DecodeList parses a serialized ordered list. Empty or malformed input
// yields an empty, non-nil list; decode errors never reach the caller.
func DecodeList[T any](raw string) []T {
	items := []T{}
	if strings.TrimSpace(raw) == "" {
		return items
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		return []T{}
	}
	return items
}

// EncodeList serializes an ordered list. A nil list encodes as "[]".
func EncodeList[T any](items []T) (string, error) {
	if items == nil {
		return "[]", nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// IsNullJSON reports whether raw is absent or the JSON literal null.
func IsNullJSON(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
