package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verdict struct {
	IsValid bool   `json:"is_valid"`
	Reason  string `json:"reason"`
	Action  string `json:"action"`
}

func TestMarshalUnmarshal(t *testing.T) {
	in := verdict{IsValid: true, Reason: "回答正确", Action: "pass"}
	data, err := Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"is_valid":true`)

	var out verdict
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestUnmarshalStrict(t *testing.T) {
	var v verdict
	require.NoError(t, UnmarshalStrict([]byte(`{"is_valid":false,"reason":"r","action":"retry_generation"}`), &v))
	assert.Equal(t, "retry_generation", v.Action)

	err := UnmarshalStrict([]byte(`{"is_valid":true,"reason":"r","action":"pass","score":9}`), &v)
	assert.Error(t, err)
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(map[string]any{"type": "update"}))

	var m map[string]any
	require.NoError(t, NewDecoder(&buf).Decode(&m))
	assert.Equal(t, "update", m["type"])
}

func TestValid(t *testing.T) {
	assert.True(t, Valid([]byte(`{"entities":["A"]}`)))
	assert.False(t, Valid([]byte(`{"entities":`)))
}
