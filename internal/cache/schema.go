package cache

// SQL schemas for cache tables
// All cache tables use "cache_key" as the primary key column for consistency

// CatalogCacheSchema defines the schema for the catalog lookup cache
const CatalogCacheSchema = `
CREATE TABLE IF NOT EXISTS catalog_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_catalog_cached_at ON catalog_cache(cached_at);
`

// CoverCacheSchema defines the schema for the cover URL cache
const CoverCacheSchema = `
CREATE TABLE IF NOT EXISTS cover_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_cover_cached_at ON cover_cache(cached_at);
`

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	CatalogCacheSchema,
	CoverCacheSchema,
}

// ValidCacheTableNames is the whitelist of allowed cache table names
// Used to prevent SQL injection when interpolating table names
var ValidCacheTableNames = map[string]bool{
	"catalog_cache": true,
	"cover_cache":   true,
}
