package eval

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armandparra/redrust-go/internal/config"
	"github.com/armandparra/redrust-go/internal/resp"
	"github.com/armandparra/redrust-go/internal/store"
)

func newEvaluator(limit int) *Evaluator {
	cfg := &config.Config{KeysLimit: limit, EvictionStrategy: "simple-first"}
	return New(store.New(cfg), "", nil)
}

func runPipeline(t *testing.T, e *Evaluator, wire string) []byte {
	t.Helper()
	values, err := resp.Decode([]byte(wire))
	require.NoError(t, err)

	cmds := make([]Command, 0, len(values))
	for _, v := range values {
		require.Equal(t, resp.KindArray, v.Kind)
		require.NotEmpty(t, v.Array)
		args := make([]string, 0, len(v.Array)-1)
		for _, a := range v.Array[1:] {
			args = append(args, a.Str)
		}
		cmds = append(cmds, Command{Name: v.Array[0].Str, Args: args})
	}

	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	require.NoError(t, e.EvalAll(cmds, w))
	return out.Bytes()
}

func TestPingSetGetPipeline(t *testing.T) {
	e := newEvaluator(0)
	wire := "*1\r\n$4\r\nPING\r\n*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"
	got := runPipeline(t, e, wire)
	assert.Equal(t, "+PONG\r\n+OK\r\n$1\r\nv\r\n", string(got))
}

func TestSetGetRoundTrip(t *testing.T) {
	e := newEvaluator(0)
	runPipeline(t, e, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n")
	got := runPipeline(t, e, "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n")
	assert.Equal(t, "$1\r\nv\r\n", string(got))
}

func TestDelThenGetReturnsNil(t *testing.T) {
	e := newEvaluator(0)
	runPipeline(t, e, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n")
	got := runPipeline(t, e, "*2\r\n$3\r\nDEL\r\n$1\r\nk\r\n")
	assert.Equal(t, ":1\r\n", string(got))
	got = runPipeline(t, e, "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n")
	assert.Equal(t, "$-1\r\n", string(got))
}

func TestIncrOnFreshKey(t *testing.T) {
	e := newEvaluator(0)
	got := runPipeline(t, e, "*2\r\n$4\r\nINCR\r\n$1\r\nc\r\n")
	assert.Equal(t, ":1\r\n", string(got))
	got = runPipeline(t, e, "*2\r\n$4\r\nINCR\r\n$1\r\nc\r\n")
	assert.Equal(t, ":2\r\n", string(got))
}

func TestIncrAfterNManyTimesMatchesDecimalString(t *testing.T) {
	e := newEvaluator(0)
	runPipeline(t, e, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\n5\r\n")
	for i := 0; i < 3; i++ {
		runPipeline(t, e, "*2\r\n$4\r\nINCR\r\n$1\r\nk\r\n")
	}
	got := runPipeline(t, e, "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n")
	assert.Equal(t, "$1\r\n8\r\n", string(got))
}

func TestIncrOnNonIntegerValueIsValueError(t *testing.T) {
	e := newEvaluator(0)
	runPipeline(t, e, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$3\r\nabc\r\n")
	got := runPipeline(t, e, "*2\r\n$4\r\nINCR\r\n$1\r\nk\r\n")
	assert.Equal(t, "-ERR value is not an integer or out of range\r\n", string(got))
}

func TestEvictionAtKeysLimitTwo(t *testing.T) {
	e := newEvaluator(2)
	runPipeline(t, e, "*3\r\n$3\r\nSET\r\n$1\r\na\r\n$1\r\n1\r\n")
	runPipeline(t, e, "*3\r\n$3\r\nSET\r\n$1\r\nb\r\n$1\r\n2\r\n")
	runPipeline(t, e, "*3\r\n$3\r\nSET\r\n$1\r\nc\r\n$1\r\n3\r\n")

	hits := 0
	for _, k := range []string{"a", "b", "c"} {
		got := runPipeline(t, e, "*2\r\n$3\r\nGET\r\n$1\r\n"+k+"\r\n")
		if string(got) != "$-1\r\n" {
			hits++
		}
	}
	assert.Equal(t, 2, hits)
}

func TestPingArityError(t *testing.T) {
	e := newEvaluator(0)
	got := runPipeline(t, e, "*3\r\n$4\r\nPING\r\n$1\r\na\r\n$1\r\nb\r\n")
	assert.Equal(t, "-ERR wrong number of arguments for 'ping' commands\r\n", string(got))
}

func TestSetExSetsNoExpiryWhenZero(t *testing.T) {
	e := newEvaluator(0)
	runPipeline(t, e, "*5\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n$2\r\nEX\r\n$1\r\n0\r\n")
	obj, ok := e.Store.Lookup("k")
	require.True(t, ok)
	assert.Equal(t, store.NoExpiry, obj.ExpiresAt)
}

// SET reads the EX seconds from the fixed args[3] slot, so a second EX
// option re-reads "100" instead of its own "abc" and no value error occurs.
func TestSetExReadsSecondsFromFixedArgsSlot(t *testing.T) {
	e := newEvaluator(0)
	got := runPipeline(t, e, "*7\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n$2\r\nEX\r\n$3\r\n100\r\n$2\r\nEX\r\n$3\r\nabc\r\n")
	assert.Equal(t, "+OK\r\n", string(got))

	obj, ok := e.Store.Lookup("k")
	require.True(t, ok)
	assert.NotEqual(t, store.NoExpiry, obj.ExpiresAt)
}

func TestExpireZeroMeansAlreadyExpired(t *testing.T) {
	e := newEvaluator(0)
	runPipeline(t, e, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n")
	got := runPipeline(t, e, "*3\r\n$6\r\nEXPIRE\r\n$1\r\nk\r\n$1\r\n0\r\n")
	assert.Equal(t, ":1\r\n", string(got))

	got = runPipeline(t, e, "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n")
	assert.Equal(t, "$-1\r\n", string(got))
}

func TestUnknownCommandFallsThroughToPing(t *testing.T) {
	e := newEvaluator(0)
	got := runPipeline(t, e, "*1\r\n$7\r\nUNKNOWN\r\n")
	assert.Equal(t, "+PONG\r\n", string(got))
}
