package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DRSN-tech/wine-search/pkg/logger"
	r "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	data    map[string]string
	ttls    map[string]time.Duration
	deleted []string
	err     error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) *r.StringCmd {
	if m.err != nil {
		return r.NewStringResult("", m.err)
	}
	v, ok := m.data[key]
	if !ok {
		return r.NewStringResult("", r.Nil)
	}
	return r.NewStringResult(v, nil)
}

func (m *memStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *r.StatusCmd {
	if m.err != nil {
		return r.NewStatusResult("", m.err)
	}
	m.data[key] = string(value.([]byte))
	m.ttls[key] = ttl
	return r.NewStatusResult("OK", nil)
}

func (m *memStore) Del(_ context.Context, keys ...string) *r.IntCmd {
	for _, k := range keys {
		delete(m.data, k)
	}
	m.deleted = append(m.deleted, keys...)
	return r.NewIntResult(int64(len(keys)), nil)
}

func TestQueryCacheRepo_SetThenGet(t *testing.T) {
	store := newMemStore()
	repo := newQueryCacheRepo(store, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.SetVector(ctx, "query:m:abc", []float32{0.25, -1}, time.Minute))
	assert.Equal(t, time.Minute, store.ttls["query:m:abc"])

	vec, ok, err := repo.GetVector(ctx, "query:m:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{0.25, -1}, vec)
}

func TestQueryCacheRepo_Miss(t *testing.T) {
	repo := newQueryCacheRepo(newMemStore(), logger.NewNop())

	vec, ok, err := repo.GetVector(context.Background(), "query:m:missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, vec)
}

func TestQueryCacheRepo_EvictsForeignEntry(t *testing.T) {
	store := newMemStore()
	store.data["query:m:a"] = `{"key":"query:m:b","vector":[1]}`
	repo := newQueryCacheRepo(store, logger.NewNop())

	_, ok, err := repo.GetVector(context.Background(), "query:m:a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"query:m:a"}, store.deleted)
}

func TestQueryCacheRepo_CorruptEntryIsMiss(t *testing.T) {
	store := newMemStore()
	store.data["k"] = "not json"
	repo := newQueryCacheRepo(store, logger.NewNop())

	_, ok, err := repo.GetVector(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueryCacheRepo_PropagatesStoreErrors(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	repo := newQueryCacheRepo(store, logger.NewNop())

	_, _, err := repo.GetVector(context.Background(), "k")
	assert.ErrorIs(t, err, store.err)

	err = repo.SetVector(context.Background(), "k", []float32{1}, time.Second)
	assert.ErrorIs(t, err, store.err)
}
