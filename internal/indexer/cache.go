package indexer

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/procindex-mcp/pkg/types"
)

// DefaultCacheSize is the number of parse results kept when Config.CacheSize is zero
const DefaultCacheSize = 1024

// parseCache keeps recent successful parse results keyed by content hash, so
// a save that does not change a file skips the processor
type parseCache struct {
	cache *lru.Cache[string, types.Metadata]
}

// newParseCache returns nil when size is negative
func newParseCache(size int) *parseCache {
	if size < 0 {
		return nil
	}
	if size == 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, types.Metadata](size)
	if err != nil {
		cache, _ = lru.New[string, types.Metadata](DefaultCacheSize)
	}
	return &parseCache{cache: cache}
}

// get returns a deep copy so callers cannot mutate the cached value
func (c *parseCache) get(key string) (*types.Metadata, bool) {
	if c == nil {
		return nil, false
	}
	md, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	out := md.Clone()
	return &out, true
}

func (c *parseCache) add(key string, md *types.Metadata) {
	if c == nil || md == nil {
		return
	}
	c.cache.Add(key, md.Clone())
}

func (c *parseCache) len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

// parseKey hashes everything that selects a processor together with the contents
func parseKey(processorID, ext, contents string) string {
	h := sha256.New()
	h.Write([]byte(processorID))
	h.Write([]byte{0})
	h.Write([]byte(ext))
	h.Write([]byte{0})
	h.Write([]byte(contents))
	return hex.EncodeToString(h.Sum(nil))
}
