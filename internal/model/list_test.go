package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, DecodeList[string](`["a","b"]`))

	for _, raw := range []string{"", "   ", "null", "{broken", `{"a":1}`} {
		got := DecodeList[string](raw)
		assert.NotNil(t, got, raw)
		assert.Empty(t, got, raw)
	}
}

func TestEncodeList(t *testing.T) {
	s, err := EncodeList[string](nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", s)

	s, err = EncodeList([]ChecklistItem{{ID: "i1", Text: "Step", Completed: true}})
	require.NoError(t, err)
	assert.Equal(t, []ChecklistItem{{ID: "i1", Text: "Step", Completed: true}}, DecodeList[ChecklistItem](s))
}

func TestNilListsMarshalAsArrays(t *testing.T) {
	data, err := json.Marshal(struct {
		Tags  StringList     `json:"tags"`
		Items ChecklistItems `json:"items"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags": [], "items": []}`, string(data))
}

func TestIsNullJSON(t *testing.T) {
	assert.True(t, IsNullJSON(nil))
	assert.True(t, IsNullJSON(json.RawMessage(" null ")))
	assert.False(t, IsNullJSON(json.RawMessage(`""`)))
	assert.False(t, IsNullJSON(json.RawMessage(`{}`)))
}
