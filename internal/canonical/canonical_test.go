package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeys(t *testing.T) {
	got, err := Marshal(map[string]any{"b": 1, "a": "x", "c": []any{true, false}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":[true,false]}`, string(got))
}

func TestMarshal_StructTags(t *testing.T) {
	type state struct {
		Count int    `json:"count"`
		Label string `json:"label"`
	}
	got, err := Marshal(state{Count: 3, Label: "<go>"})
	require.NoError(t, err)
	assert.Equal(t, `{"count":3,"label":"<go>"}`, string(got), "no HTML escaping")
}

func TestMarshal_Scalars(t *testing.T) {
	cases := map[string]any{
		`7`:       7,
		`-12`:     int64(-12),
		`"fast"`:  "fast",
		`true`:    true,
		`{}`:      struct{}{},
		`[1,2,3]`: []int{1, 2, 3},
	}
	for want, v := range cases {
		got, err := Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestMarshal_RejectsFloatsAndNull(t *testing.T) {
	_, err := Marshal(1.5)
	assert.ErrorContains(t, err, "floats are forbidden")

	_, err = Marshal(map[string]any{"x": nil})
	assert.ErrorContains(t, err, "null is forbidden")

	var nilSlice []int
	_, err = Marshal(nilSlice)
	assert.ErrorContains(t, err, "null is forbidden")
}

func TestMarshal_Strings(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9.
	got, err := Marshal("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))

	got, err = Marshal("a\"b\\c\n\x01 ")
	require.NoError(t, err)
	assert.Equal(t, "\"a\\\"b\\\\c\\n\\u0001 \"", string(got))
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...) which sorts before U+FF61.
	got, err := Marshal(map[string]any{"｡": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"｡\":1}", string(got))
}

func TestStateHash(t *testing.T) {
	a, err := StateHash(map[string]any{"count": 1, "total": 2})
	require.NoError(t, err)
	b, err := StateHash(map[string]any{"total": 2, "count": 1})
	require.NoError(t, err)

	assert.Equal(t, a, b, "hash is independent of key order")
	assert.Len(t, a, 64)
	assert.NotEqual(t, HashWithDomain(DomainState, []byte("1")), HashWithDomain(DomainTrace, []byte("1")))
}
