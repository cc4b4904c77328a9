package packstream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v any) any {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).WriteValue(v))
	got, err := NewDecoder(&buf).ReadValue()
	require.NoError(t, err)
	return got
}

func TestRoundTrip_Null(t *testing.T) {
	assert.Nil(t, roundTrip(t, nil))
}

func TestRoundTrip_Bool(t *testing.T) {
	assert.Equal(t, true, roundTrip(t, true))
	assert.Equal(t, false, roundTrip(t, false))
}

func TestRoundTrip_Ints(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 127, -16, 128, -17, 32767, -32768, 1 << 20, -(1 << 20), 1 << 40, -(1 << 40)} {
		assert.Equal(t, n, roundTrip(t, n), n)
	}
}

func TestRoundTrip_Float(t *testing.T) {
	assert.InDelta(t, 3.14159, roundTrip(t, 3.14159).(float64), 1e-9)
}

func TestRoundTrip_String(t *testing.T) {
	assert.Equal(t, "", roundTrip(t, ""))
	assert.Equal(t, "hello", roundTrip(t, "hello"))
	long := bytes.Repeat([]byte("x"), 500)
	assert.Equal(t, string(long), roundTrip(t, string(long)))
}

func TestRoundTrip_List(t *testing.T) {
	got := roundTrip(t, []any{int64(1), "two", 3.0, nil, true})
	assert.Equal(t, []any{int64(1), "two", 3.0, nil, true}, got)
}

func TestRoundTrip_Map(t *testing.T) {
	got := roundTrip(t, map[string]any{"a": int64(1), "b": "two"})
	assert.Equal(t, map[string]any{"a": int64(1), "b": "two"}, got)
}

func TestRoundTrip_Structure(t *testing.T) {
	got := roundTrip(t, &Structure{Tag: 0x70, Fields: []any{map[string]any{"fields": []any{"name"}}}})
	s, ok := got.(*Structure)
	require.True(t, ok)
	assert.Equal(t, byte(0x70), s.Tag)
	assert.Equal(t, []any{map[string]any{"fields": []any{"name"}}}, s.Fields)
}

func TestRoundTrip_LargeList(t *testing.T) {
	items := make([]any, 300)
	for i := range items {
		items[i] = int64(i)
	}
	got := roundTrip(t, items)
	assert.Equal(t, items, got)
}
