package cache

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// LookupCache adapts a CacheDB table to the catalog's byte-oriented cache
// interface. TTL comes from the cache.ttl config value.
type LookupCache struct {
	db    *CacheDB
	table string
	ttl   time.Duration
}

// NewLookupCache opens the global cache database and returns a view over
// the catalog lookup table.
func NewLookupCache() (*LookupCache, error) {
	db, err := GetGlobalCache()
	if err != nil {
		return nil, err
	}
	return &LookupCache{
		db:    db,
		table: "catalog_cache",
		ttl:   configuredTTL(),
	}, nil
}

// Get returns the cached payload for key and whether it was present and
// fresh.
func (l *LookupCache) Get(key string) ([]byte, bool, error) {
	data, found, err := l.db.Get(l.table, key, l.ttl)
	if err != nil || !found {
		return nil, false, err
	}
	return []byte(data), true, nil
}

// Put stores payload under key, replacing any previous entry.
func (l *LookupCache) Put(key string, data []byte) error {
	return l.db.Set(l.table, key, string(data))
}

func configuredTTL() time.Duration {
	ttlStr := viper.GetString("cache.ttl")
	if ttlStr == "" {
		return DefaultCacheTTL
	}
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		slog.Warn("Invalid cache TTL, using default", "ttl", ttlStr, "error", err)
		return DefaultCacheTTL
	}
	return ttl
}
