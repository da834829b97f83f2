// Package aof implements the append-only-file dumper (C3): it serializes
// the current keyspace as a sequence of reconstructing SET commands.
//
// This is a snapshot-by-replay writer only; no incremental logging or
// replay is implemented, per spec.
package aof

import (
	"fmt"
	"os"

	"github.com/armandparra/redrust-go/internal/resp"
	"github.com/armandparra/redrust-go/internal/store"
)

// Keyspace is the subset of *store.Store the dumper needs; kept as an
// interface so tests can exercise DumpAll against a fake.
type Keyspace interface {
	Range(func(key string, obj *store.Object))
}

// DumpAll truncates path and writes a `SET key value` RESP bulk array for
// every key ks.Range visits. Values are rendered to text the way the source's
// Value::Display does: strings verbatim, integers as decimal ASCII. The first
// write error stops the dump and is returned.
func DumpAll(ks Keyspace, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open aof file: %w", err)
	}
	defer f.Close()

	var writeErr error
	ks.Range(func(key string, obj *store.Object) {
		if writeErr != nil {
			return
		}
		if _, err := f.Write(setFrame(key, valueText(obj.Value))); err != nil {
			writeErr = fmt.Errorf("write aof file: %w", err)
		}
	})

	return writeErr
}

// setFrame builds the literal `*3\r\n$3\r\nSET\r\n...` bulk-array frame for
// one key. The generic resp.Encode is deliberately reply-shaped (it only
// ever needs to emit String/Int64/Int32, and treats Array as NIL per its
// own contract), so the AOF writer assembles this array frame directly
// from resp.Encode'd bulk strings rather than asking Encode to do
// something its contract says it won't.
func setFrame(key, value string) []byte {
	var frame []byte
	frame = append(frame, "*3\r\n"...)
	frame = append(frame, resp.Encode(resp.String("SET"), false)...)
	frame = append(frame, resp.Encode(resp.String(key), false)...)
	frame = append(frame, resp.Encode(resp.String(value), false)...)
	return frame
}

func valueText(v resp.Value) string {
	switch v.Kind {
	case resp.KindString:
		return v.Str
	case resp.KindInt64:
		return fmt.Sprintf("%d", v.I64)
	case resp.KindInt32:
		return fmt.Sprintf("%d", v.I32)
	default:
		return ""
	}
}
