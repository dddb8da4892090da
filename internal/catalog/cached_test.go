package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	entries map[string][]byte
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(key string) ([]byte, bool, error) {
	data, ok := m.entries[key]
	return data, ok, nil
}

func (m *memoryCache) Put(key string, data []byte) error {
	m.entries[key] = data
	m.puts++
	return nil
}

type countingClient struct {
	meta  *Metadata
	err   error
	calls int
}

func (c *countingClient) Name() string { return "counting" }

func (c *countingClient) LookupISBN(_ context.Context, _ string) (*Metadata, error) {
	c.calls++
	return c.meta, c.err
}

func (c *countingClient) LookupTitleAuthor(_ context.Context, _, _ string) (*Metadata, error) {
	c.calls++
	return c.meta, c.err
}

func (c *countingClient) LookupBatch(ctx context.Context, keys []Key) (map[Key]*Metadata, error) {
	results := make(map[Key]*Metadata, len(keys))
	for _, key := range keys {
		meta, err := Lookup(ctx, c, key)
		if err != nil {
			return nil, err
		}
		results[key] = meta
	}
	return results, nil
}

func TestCachedClientHit(t *testing.T) {
	upstream := &countingClient{meta: &Metadata{Title: "Dune", ISBN: "9780441172719"}}
	cached := NewCachedClient(upstream, newMemoryCache())

	first, err := cached.LookupISBN(context.Background(), "9780441172719")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := cached.LookupISBN(context.Background(), "9780441172719")
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, 1, upstream.calls)
	assert.Equal(t, first.Title, second.Title)
}

func TestCachedClientCachesNotFound(t *testing.T) {
	upstream := &countingClient{}
	cached := NewCachedClient(upstream, newMemoryCache())

	meta, err := cached.LookupTitleAuthor(context.Background(), "Missing Book", "Nobody")
	require.NoError(t, err)
	assert.Nil(t, meta)

	meta, err = cached.LookupTitleAuthor(context.Background(), "Missing Book", "Nobody")
	require.NoError(t, err)
	assert.Nil(t, meta)

	assert.Equal(t, 1, upstream.calls, "cached not-found should not hit upstream again")
}

func TestCachedClientDoesNotCacheErrors(t *testing.T) {
	upstream := &countingClient{err: errors.New("boom")}
	cache := newMemoryCache()
	cached := NewCachedClient(upstream, cache)

	_, err := cached.LookupISBN(context.Background(), "9780441172719")
	require.Error(t, err)
	assert.Equal(t, 0, cache.puts)

	upstream.err = nil
	upstream.meta = &Metadata{Title: "Dune"}
	meta, err := cached.LookupISBN(context.Background(), "9780441172719")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 2, upstream.calls)
}

func TestCachedClientNormalizesKeys(t *testing.T) {
	upstream := &countingClient{meta: &Metadata{Title: "Dune"}}
	cached := NewCachedClient(upstream, newMemoryCache())

	_, err := cached.LookupISBN(context.Background(), "978-0-441-17271-9")
	require.NoError(t, err)
	_, err = cached.LookupISBN(context.Background(), "9780441172719")
	require.NoError(t, err)

	assert.Equal(t, 1, upstream.calls, "hyphenated and bare ISBN should share a cache key")
}
