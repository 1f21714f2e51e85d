package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskJSON_StandaloneSendsNullPlacement(t *testing.T) {
	data, err := json.Marshal(Task{ID: "t1"})
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	require.Contains(t, fields, "boardId")
	require.Contains(t, fields, "columnId")
	assert.Equal(t, "null", string(fields["boardId"]))
	assert.Equal(t, "null", string(fields["columnId"]))

	board, column := "b1", "c1"
	data, err = json.Marshal(Task{ID: "t2", BoardID: &board, ColumnID: &column})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, `"b1"`, string(fields["boardId"]))
	assert.Equal(t, `"c1"`, string(fields["columnId"]))
}
