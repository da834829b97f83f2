package resp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSimpleString(t *testing.T) {
	values, err := Decode([]byte("+OK\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []Value{String("OK")}, values)
}

func TestDecodeError(t *testing.T) {
	values, err := Decode([]byte("-Error message\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []Value{String("Error message")}, values)
}

func TestDecodeInt64(t *testing.T) {
	cases := map[string]int64{
		":0\r\n":    0,
		":1000\r\n": 1000,
		":-2\r\n":   -2,
	}
	for wire, want := range cases {
		values, err := Decode([]byte(wire))
		require.NoError(t, err)
		assert.Equal(t, []Value{Int64(want)}, values)
	}
}

func TestDecodeArrayNested(t *testing.T) {
	values, err := Decode([]byte("*2\r\n*3\r\n:1\r\n:2\r\n:3\r\n*2\r\n+Hello\r\n-World\r\n"))
	require.NoError(t, err)
	require.Len(t, values, 1)
	outer := values[0]
	require.Equal(t, KindArray, outer.Kind)
	require.Len(t, outer.Array, 2)
	assert.Equal(t, Array([]Value{Int64(1), Int64(2), Int64(3)}), outer.Array[0])
	assert.Equal(t, Array([]Value{String("Hello"), String("World")}), outer.Array[1])
}

func TestDecodeBulkStringZeroLength(t *testing.T) {
	values, err := Decode([]byte("$0\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []Value{String("")}, values)
}

func TestDecodeEmptyBufferFails(t *testing.T) {
	_, err := Decode(nil)
	assert.Error(t, err)
}

func TestDecodeUnknownPrefixIsCrossProtocolGuard(t *testing.T) {
	_, err := Decode([]byte("GET / HTTP/1.1\r\n\r\n"))
	require.Error(t, err)
	assert.Equal(t, "possible cross protocol scripting attack detected", err.Error())
}

func TestDecodePipelinedArrays(t *testing.T) {
	wire := "*1\r\n$4\r\nPING\r\n*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"
	values, err := Decode([]byte(wire))
	require.NoError(t, err)
	require.Len(t, values, 3)
}

func TestEncodeRoundTrip(t *testing.T) {
	cases := []Value{
		String("hello"),
		Int64(42),
		Int64(-5),
	}
	for _, v := range cases {
		wire := Encode(v, false)
		decoded, err := Decode(wire)
		require.NoError(t, err)
		require.Len(t, decoded, 1)
		if v.Kind == KindInt32 {
			assert.Equal(t, int64(v.I32), decoded[0].I64)
		} else {
			assert.Equal(t, v, decoded[0])
		}
	}
}

func TestEncodeBulkStringZeroLength(t *testing.T) {
	assert.Equal(t, []byte("$0\r\n\r\n"), Encode(String(""), false))
}

func TestEncodeArrayIsNil(t *testing.T) {
	assert.Equal(t, NIL, Encode(Value{Kind: KindArray}, false))
}

func TestEncodeError(t *testing.T) {
	assert.Equal(t, []byte("-ERR boom\r\n"), EncodeError("ERR boom"))
}
