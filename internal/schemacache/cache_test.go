package schemacache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/schema"
)

type memKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet bool
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, false, errors.New("connection refused")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type countingProvider struct {
	schemaCalls int
	tableCalls  int
	tables      map[string]*schema.Table
}

func (p *countingProvider) Tables(context.Context) ([]string, error) {
	p.tableCalls++
	return []string{"users"}, nil
}

func (p *countingProvider) Schema(_ context.Context, name string) (*schema.Table, error) {
	p.schemaCalls++
	t, ok := p.tables[name]
	if !ok {
		return nil, apperr.NewTableNotFound(name, []string{"users"})
	}
	return t, nil
}

func newFixture() (*Cache, *countingProvider, *memKV) {
	provider := &countingProvider{tables: map[string]*schema.Table{
		"users": schema.MustTable("users",
			schema.Column{Name: "id", Type: schema.TypeInteger, DeclaredType: "INTEGER"},
			schema.Column{Name: "signup", Type: schema.TypeDate, DeclaredType: "DATE"},
		),
	}}
	kv := newMemKV()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(provider, kv, time.Minute, "sqlrest:", logger), provider, kv
}

func TestCache_SchemaHit(t *testing.T) {
	cache, provider, kv := newFixture()
	ctx := context.Background()

	first, err := cache.Schema(ctx, "users")
	require.NoError(t, err)
	second, err := cache.Schema(ctx, "users")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.schemaCalls)
	assert.Equal(t, first.Columns, second.Columns)
	col, ok := second.Lookup("signup")
	require.True(t, ok)
	assert.Equal(t, schema.TypeDate, col.Type)
	assert.Equal(t, time.Minute, kv.ttls["sqlrest:schema:users"])
}

func TestCache_TableNotFoundIsNotCached(t *testing.T) {
	cache, provider, kv := newFixture()
	ctx := context.Background()

	_, err := cache.Schema(ctx, "nope")
	assert.True(t, apperr.Is(err, apperr.TableNotFound))
	_, err = cache.Schema(ctx, "nope")
	assert.True(t, apperr.Is(err, apperr.TableNotFound))

	assert.Equal(t, 2, provider.schemaCalls)
	assert.Empty(t, kv.data)
}

func TestCache_Tables(t *testing.T) {
	cache, provider, _ := newFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		names, err := cache.Tables(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"users"}, names)
	}
	assert.Equal(t, 1, provider.tableCalls)
}

func TestCache_ReadFailureFallsThrough(t *testing.T) {
	cache, provider, kv := newFixture()
	kv.failGet = true

	_, err := cache.Schema(context.Background(), "users")
	require.NoError(t, err)
	_, err = cache.Schema(context.Background(), "users")
	require.NoError(t, err)

	assert.Equal(t, 2, provider.schemaCalls)
}

func TestCache_CorruptEntry(t *testing.T) {
	cache, provider, kv := newFixture()
	kv.data["sqlrest:schema:users"] = []byte("{not json")

	table, err := cache.Schema(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "users", table.Name)
	assert.Equal(t, 1, provider.schemaCalls)
}

func TestCache_Invalidate(t *testing.T) {
	cache, provider, _ := newFixture()
	ctx := context.Background()

	_, err := cache.Schema(ctx, "users")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "users"))
	_, err = cache.Schema(ctx, "users")
	require.NoError(t, err)

	assert.Equal(t, 2, provider.schemaCalls)
}

func TestNewRedisKV_RequiresAddr(t *testing.T) {
	_, err := NewRedisKV(context.Background(), RedisOptions{})
	assert.Error(t, err)
}
