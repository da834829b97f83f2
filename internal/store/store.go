// Package store implements the keyspace: a mapping from key to stored
// object with lazy expiry on access, an active expiry sweep, and eviction
// on capacity.
package store

import (
	"strconv"
	"time"

	"github.com/armandparra/redrust-go/internal/config"
	"github.com/armandparra/redrust-go/internal/resp"
)

// Type/encoding nibbles packed into Object.TypeEncoding.
const (
	TypeString byte = 0x00

	EncodingRaw    byte = 0x00
	EncodingInt    byte = 0x01
	EncodingEmbstr byte = 0x08
)

// embstrMaxLen is the longest string stored with the EMBSTR encoding hint;
// anything longer is RAW.
const embstrMaxLen = 44

// NoExpiry is the sentinel ExpiresAt value meaning "never expires".
const NoExpiry int64 = -1

// Object is a single stored value plus its expiry and type/encoding hint.
type Object struct {
	Value        resp.Value
	ExpiresAt    int64
	TypeEncoding byte
}

// GetType returns the semantic type nibble.
func (o *Object) GetType() byte { return o.TypeEncoding & 0xF0 }

// GetEncoding returns the encoding hint nibble.
func (o *Object) GetEncoding() byte { return o.TypeEncoding & 0x0F }

// DeduceTypeEncoding classifies a freshly-assigned string value the way
// SET does: INT if it parses as an i64, else EMBSTR for short strings, else
// RAW.
func DeduceTypeEncoding(value string) byte {
	if isInt64(value) {
		return TypeString | EncodingInt
	}
	if len(value) <= embstrMaxLen {
		return TypeString | EncodingEmbstr
	}
	return TypeString | EncodingRaw
}

func isInt64(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// NewObject builds a StoredObject for a string value, computing its
// expires_at from durationMs the way SET/INCR materialize keys: a
// non-positive duration means no expiry.
func NewObject(value string, durationMs int64) *Object {
	expiresAt := NoExpiry
	if durationMs > 0 {
		expiresAt = NowMillis() + durationMs
	}
	return &Object{
		Value:        resp.String(value),
		ExpiresAt:    expiresAt,
		TypeEncoding: DeduceTypeEncoding(value),
	}
}

// NowMillis returns the current wall clock in milliseconds since epoch.
func NowMillis() int64 { return time.Now().UnixMilli() }

// Store is the in-memory keyspace. It is owned and mutated solely by the
// reactor's loop thread; no locking is required.
type Store struct {
	items map[string]*Object
	cfg   *config.Config
}

// New creates an empty keyspace bound to cfg's keys_limit and
// eviction_strategy.
func New(cfg *config.Config) *Store {
	return &Store{
		items: make(map[string]*Object),
		cfg:   cfg,
	}
}

// Len reports the number of keys currently held, including expired keys
// that lazy or active expiry has not removed yet.
func (s *Store) Len() int { return len(s.items) }

// maybeExpire removes k if it carries a real expiry that has passed. It
// reports whether the key is still live after the check.
func (s *Store) maybeExpire(k string) bool {
	obj, ok := s.items[k]
	if !ok {
		return false
	}
	if obj.ExpiresAt != NoExpiry && obj.ExpiresAt <= NowMillis() {
		delete(s.items, k)
		return false
	}
	return true
}

// Lookup performs lazy expiry on k and returns a pointer to the resident
// object if one remains. Callers may mutate through the returned pointer;
// Go's lack of a borrow checker collapses the source's separate get/get_mut
// accessors into this single call.
func (s *Store) Lookup(k string) (*Object, bool) {
	if !s.maybeExpire(k) {
		return nil, false
	}
	obj := s.items[k]
	return obj, true
}

// GetOrInsert performs lazy expiry on k, inserts def if the key is absent,
// and returns a pointer to the resident object either way.
func (s *Store) GetOrInsert(k string, def *Object) *Object {
	if s.maybeExpire(k) {
		return s.items[k]
	}
	s.Put(k, def)
	return s.items[k]
}

// Put inserts or overwrites k, evicting one key first if the keyspace is at
// capacity. A keys_limit of 0 or negative means unbounded.
func (s *Store) Put(k string, obj *Object) {
	limit := 0
	if s.cfg != nil {
		limit = s.cfg.KeysLimit
	}
	if limit > 0 && len(s.items) >= limit {
		s.evict()
	}
	s.items[k] = obj
}

// Range invokes fn once for every key held, in iteration order, which is
// unspecified. No expiry check is made, so expired keys not yet removed are
// visited too. Used by the AOF dumper; fn must not mutate the store.
func (s *Store) Range(fn func(key string, obj *Object)) {
	for k, obj := range s.items {
		fn(k, obj)
	}
}

// Del removes k, reporting whether it was present.
func (s *Store) Del(k string) bool {
	if _, ok := s.items[k]; !ok {
		return false
	}
	delete(s.items, k)
	return true
}
