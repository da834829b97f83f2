// Package eval implements the command evaluator (C4): dispatch by command
// name, arity/type validation, and reply-byte production. Handlers may
// call into the keyspace store but never block or do I/O beyond the
// BGREWRITEAOF dump path.
package eval

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/armandparra/redrust-go/internal/aof"
	"github.com/armandparra/redrust-go/internal/resp"
	"github.com/armandparra/redrust-go/internal/store"
)

// Command is a parsed, already-uppercased command name plus its arguments.
type Command struct {
	Name string
	Args []string
}

// Recorder receives a notification for every command evaluated, used by
// the reactor to feed Prometheus counters without the evaluator importing
// the metrics package directly.
type Recorder interface {
	RecordCommand(name string)
}

// Evaluator dispatches commands against a single keyspace.
type Evaluator struct {
	Store   *store.Store
	AOFFile string
	Log     *logrus.Logger
	Metrics Recorder
}

// New builds an Evaluator bound to st and the configured AOF path.
func New(st *store.Store, aofFile string, log *logrus.Logger) *Evaluator {
	return &Evaluator{Store: st, AOFFile: aofFile, Log: log}
}

// EvalAll evaluates cmds in order, writing each reply through w, and
// flushes exactly once at the end — the pipelining contract.
func (e *Evaluator) EvalAll(cmds []Command, w *bufio.Writer) error {
	for _, cmd := range cmds {
		reply := e.eval(cmd)
		if _, err := w.Write(reply); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (e *Evaluator) eval(cmd Command) []byte {
	if e.Metrics != nil {
		e.Metrics.RecordCommand(cmd.Name)
	}

	switch strings.ToUpper(cmd.Name) {
	case "PING":
		return e.ping(cmd.Args)
	case "SET":
		return e.set(cmd.Args)
	case "GET":
		return e.get(cmd.Args)
	case "TTL":
		return e.ttl(cmd.Args)
	case "DEL":
		return e.del(cmd.Args)
	case "EXPIRE":
		return e.expire(cmd.Args)
	case "BGREWRITEAOF":
		return e.bgrewriteaof()
	case "INCR":
		return e.incr(cmd.Args)
	default:
		// Unknown commands are quietly treated as PING with the same
		// args — a permissive fallback preserved from the source.
		return e.ping(cmd.Args)
	}
}

func (e *Evaluator) ping(args []string) []byte {
	switch len(args) {
	case 0:
		return resp.Encode(resp.String("PONG"), true)
	case 1:
		return resp.Encode(resp.String(args[0]), false)
	default:
		return resp.EncodeError("ERR wrong number of arguments for 'ping' commands")
	}
}

// set implements SET key value [EX seconds]. The EX seconds token is read
// from the fixed args[3] slot rather than the token following the located
// "EX" flag — this is a documented divergence from a naive reading of the
// grammar, preserved verbatim per the source; see SPEC_FULL.md OQ-3.
func (e *Evaluator) set(args []string) []byte {
	if len(args) <= 1 {
		return resp.EncodeError("ERR wrong number of arguments for 'set' commands")
	}

	key := args[0]
	value := args[1]
	durationMs := int64(-1)

	i := 2
	for i < len(args) {
		switch strings.ToUpper(args[i]) {
		case "EX":
			i++
			if i == len(args) {
				return resp.EncodeError("ERR syntax error")
			}
			seconds, err := strconv.ParseInt(args[3], 10, 64)
			if err != nil {
				return resp.EncodeError("ERR value is not an integer or out of range")
			}
			durationMs = seconds * 1000
		default:
			return resp.EncodeError("ERR syntax error")
		}
		i++
	}

	e.Store.Put(key, store.NewObject(value, durationMs))
	return resp.OK
}

func (e *Evaluator) get(args []string) []byte {
	if len(args) != 1 {
		return resp.EncodeError("ERR wrong number of arguments for 'get' commands")
	}

	obj, ok := e.Store.Lookup(args[0])
	if !ok {
		return resp.NIL
	}
	return resp.Encode(obj.Value, false)
}

func (e *Evaluator) ttl(args []string) []byte {
	if len(args) != 1 {
		return resp.EncodeError("ERR wrong number of arguments for 'ttl' commands")
	}

	obj, ok := e.Store.Lookup(args[0])
	if !ok {
		return resp.MinusTwo
	}
	if obj.ExpiresAt == store.NoExpiry {
		return resp.MinusOne
	}

	// A second, independent clock read (mirroring the source's two
	// separate now() calls): if it ticks past expires_at in the gap
	// since Lookup's own lazy-expiry check, duration_ms goes negative
	// and this reports expired even though Lookup still saw the key as
	// live. Exactly duration_ms == 0 is not negative, so it reports 0,
	// not -2.
	durationMs := obj.ExpiresAt - store.NowMillis()
	if durationMs < 0 {
		return resp.MinusTwo
	}
	return resp.Encode(resp.Int64(durationMs/1000), false)
}

func (e *Evaluator) del(args []string) []byte {
	var n int32
	for _, k := range args {
		if e.Store.Del(k) {
			n++
		}
	}
	return resp.Encode(resp.Int32(n), false)
}

func (e *Evaluator) expire(args []string) []byte {
	if len(args) < 2 {
		return resp.EncodeError("ERR wrong number of arguments for 'expire' commands")
	}

	seconds, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return resp.EncodeError("ERR value is not an integer or out of range")
	}

	obj, ok := e.Store.Lookup(args[0])
	if !ok {
		return resp.ZERO
	}

	obj.ExpiresAt = store.NowMillis() + seconds*1000
	return resp.ONE
}

func (e *Evaluator) bgrewriteaof() []byte {
	if e.Log != nil {
		e.Log.WithField("aof_file", e.AOFFile).Info("rewriting AOF file")
	}
	if err := aof.DumpAll(e.Store, e.AOFFile); err != nil {
		if e.Log != nil {
			e.Log.WithError(err).WithField("aof_file", e.AOFFile).Error("BGREWRITEAOF failed")
		}
		// The dump swallows its own I/O errors rather than reporting one
		// to the client — a documented design limitation.
		return resp.OK
	}
	if e.Log != nil {
		e.Log.WithField("aof_file", e.AOFFile).Info("AOF file rewrite complete")
	}
	return resp.OK
}

func (e *Evaluator) incr(args []string) []byte {
	if len(args) != 1 {
		return resp.EncodeError("ERR wrong number of arguments for 'incr' commands")
	}
	key := args[0]

	obj := e.Store.GetOrInsert(key, store.NewObject("0", -1))

	if obj.GetType() != store.TypeString {
		return resp.EncodeError("the operation is not permitted on this type")
	}
	if obj.GetEncoding() != store.EncodingInt {
		return resp.EncodeError("ERR value is not an integer or out of range")
	}

	current, err := strconv.ParseInt(obj.Value.Str, 10, 64)
	if err != nil {
		return resp.EncodeError("ERR value is not an integer or out of range")
	}

	current++
	obj.Value = resp.String(strconv.FormatInt(current, 10))
	obj.TypeEncoding = store.TypeString | store.EncodingInt

	return resp.Encode(resp.Int64(current), false)
}
