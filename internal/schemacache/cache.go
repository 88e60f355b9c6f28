// Package schemacache caches table schemas in a key-value store in front of
// a schema.Provider.
//
// Cache failures never fail a lookup: a read or write error is logged at
// WARN and the underlying provider answers instead. Misses (TableNotFound)
// are not cached.
package schemacache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/roach88/sqlrest/internal/schema"
)

// DefaultTTL is the expiry of cached entries when none is configured.
const DefaultTTL = 5 * time.Minute

// Cache is a schema.Provider backed by another provider and a KV store.
type Cache struct {
	next   schema.Provider
	kv     KV
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// New wraps next with a cache. Keys are namespaced with prefix.
func New(next schema.Provider, kv KV, ttl time.Duration, prefix string, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{next: next, kv: kv, ttl: ttl, prefix: prefix, logger: logger}
}

type cachedTable struct {
	Name    string          `json:"name"`
	Columns []schema.Column `json:"columns"`
}

// Schema returns the cached schema of table, loading it on a miss.
func (c *Cache) Schema(ctx context.Context, table string) (*schema.Table, error) {
	key := c.schemaKey(table)

	if raw, ok := c.get(ctx, key); ok {
		var ct cachedTable
		if err := json.Unmarshal(raw, &ct); err == nil {
			if t, err := schema.NewTable(ct.Name, ct.Columns); err == nil {
				return t, nil
			}
		}
		c.logger.WarnContext(ctx, "discarding corrupt schema cache entry", "key", key)
	}

	t, err := c.next.Schema(ctx, table)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(cachedTable{Name: t.Name, Columns: t.Columns})
	if err == nil {
		c.set(ctx, key, raw)
	}
	return t, nil
}

// Tables returns the cached table list, loading it on a miss.
func (c *Cache) Tables(ctx context.Context) ([]string, error) {
	key := c.prefix + "tables"

	if raw, ok := c.get(ctx, key); ok {
		var names []string
		if err := json.Unmarshal(raw, &names); err == nil {
			return names, nil
		}
		c.logger.WarnContext(ctx, "discarding corrupt schema cache entry", "key", key)
	}

	names, err := c.next.Tables(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(names); err == nil {
		c.set(ctx, key, raw)
	}
	return names, nil
}

// Invalidate drops the cached schema of each table and the table list.
func (c *Cache) Invalidate(ctx context.Context, tables ...string) error {
	keys := []string{c.prefix + "tables"}
	for _, t := range tables {
		keys = append(keys, c.schemaKey(t))
	}
	return c.kv.Del(ctx, keys...)
}

func (c *Cache) schemaKey(table string) string {
	return c.prefix + "schema:" + table
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "schema cache read failed", "key", key, "error", err)
		return nil, false
	}
	if ok {
		c.logger.DebugContext(ctx, "schema cache hit", "key", key)
	}
	return raw, ok
}

func (c *Cache) set(ctx context.Context, key string, raw []byte) {
	if err := c.kv.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "schema cache write failed", "key", key, "error", err)
	}
}

var _ schema.Provider = (*Cache)(nil)
