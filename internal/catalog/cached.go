package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Cache stores lookup results keyed by Key.String(). Implementations are
// expected to be safe for concurrent use.
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, data []byte) error
}

// cachedLookupResult is the serialized form of one lookup outcome. Not-found
// results are cached too so repeated rows with the same missing book only
// hit the network once per run.
type cachedLookupResult struct {
	NotFound bool      `json:"not_found,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// CachedClient wraps a Client with a lookup cache. Only definitive outcomes
// (found and not-found) are cached, never errors.
type CachedClient struct {
	client Client
	cache  Cache
}

var _ Client = (*CachedClient)(nil)

// NewCachedClient wraps client with cache.
func NewCachedClient(client Client, cache Cache) *CachedClient {
	return &CachedClient{client: client, cache: cache}
}

// Name returns the wrapped client's name.
func (c *CachedClient) Name() string {
	return c.client.Name()
}

// LookupISBN checks the cache before delegating to the wrapped client.
func (c *CachedClient) LookupISBN(ctx context.Context, isbn string) (*Metadata, error) {
	key := ISBNKey(isbn)
	if meta, hit := c.fromCache(key); hit {
		return meta, nil
	}

	meta, err := c.client.LookupISBN(ctx, isbn)
	if err != nil {
		return nil, err
	}
	c.store(key, meta)
	return meta, nil
}

// LookupTitleAuthor checks the cache before delegating to the wrapped client.
func (c *CachedClient) LookupTitleAuthor(ctx context.Context, title, author string) (*Metadata, error) {
	key := TitleAuthorKey(title, author)
	if meta, hit := c.fromCache(key); hit {
		return meta, nil
	}

	meta, err := c.client.LookupTitleAuthor(ctx, title, author)
	if err != nil {
		return nil, err
	}
	c.store(key, meta)
	return meta, nil
}

// LookupBatch resolves keys one by one through the cache.
func (c *CachedClient) LookupBatch(ctx context.Context, keys []Key) (map[Key]*Metadata, error) {
	results := make(map[Key]*Metadata, len(keys))
	for _, key := range keys {
		meta, err := Lookup(ctx, c, key)
		if err != nil {
			return nil, fmt.Errorf("batch lookup %s: %w", key, err)
		}
		results[key] = meta
	}
	return results, nil
}

// fromCache returns the cached metadata for key and whether there was a hit.
// A hit with nil metadata means a cached not-found. Cache failures are
// logged and treated as misses.
func (c *CachedClient) fromCache(key Key) (*Metadata, bool) {
	data, found, err := c.cache.Get(key.String())
	if err != nil {
		slog.Warn("Lookup cache read failed", "key", key.String(), "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var result cachedLookupResult
	if err := json.Unmarshal(data, &result); err != nil {
		slog.Warn("Corrupt lookup cache entry, ignoring", "key", key.String(), "error", err)
		return nil, false
	}
	if result.NotFound {
		slog.Debug("Lookup cache hit (not found)", "key", key.String())
		return nil, true
	}
	slog.Debug("Lookup cache hit", "key", key.String())
	return result.Metadata, true
}

func (c *CachedClient) store(key Key, meta *Metadata) {
	result := cachedLookupResult{Metadata: meta, NotFound: meta == nil}
	data, err := json.Marshal(result)
	if err != nil {
		slog.Warn("Failed to serialize lookup result for cache", "key", key.String(), "error", err)
		return
	}
	if err := c.cache.Put(key.String(), data); err != nil {
		slog.Warn("Failed to cache lookup result", "key", key.String(), "error", err)
	}
}
