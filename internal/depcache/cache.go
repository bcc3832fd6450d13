// Package depcache is a content-addressed store of parsed units. Entries
// are keyed by (normalized absolute path, hash of the active symbol set),
// so a unit parsed under one configuration never satisfies a lookup made
// under another. The table persists across runs as a JSON document.
package depcache

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GuardianFree/PascalDepsAnalyzer/internal/model"
)

// noDefinesSentinel stands in for the symbol hash when no symbols are active.
const noDefinesSentinel = "nodefines"

// Entry is one cached parse result. Includes holds the resolved paths of
// every include the parse touched, nested ones included, so a warm run
// reconstructs the same file set a fresh parse would produce.
type Entry struct {
	FilePath     string      `json:"filePath"`
	FileHash     string      `json:"fileHash"`
	DefinesHash  string      `json:"definesHash"`
	LastModified int64       `json:"lastModified"` // unix nanoseconds
	FileSize     int64       `json:"fileSize"`
	Unit         *model.Unit `json:"unit"`
	Includes     []string    `json:"includes,omitempty"`
	CachedAt     time.Time   `json:"cachedAt"`
}

// Cache holds parse results for the current run plus whatever was loaded
// from disk. Store is called from many traversal branches concurrently, so
// the table and the per-path hash memo are concurrent maps.
type Cache struct {
	entries  sync.Map // key string -> *Entry
	hashMemo sync.Map // absolute path -> string
	hits     atomic.Int64
	misses   atomic.Int64
	logger   *slog.Logger
}

// New creates an empty cache.
func New(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{logger: logger}
}

// DefinesHash hashes a sorted copy of the active symbol set. The hash is
// part of the cache key precisely to prevent Debug/Release
// cross-contamination.
func DefinesHash(symbols []string) string {
	if len(symbols) == 0 {
		return noDefinesSentinel
	}
	sorted := make([]string, len(symbols))
	for i, s := range symbols {
		sorted[i] = strings.ToUpper(s)
	}
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, ";")))
	return hex.EncodeToString(sum[:])
}

// Key builds the composite cache key for a file under a symbol set.
func Key(path string, symbols []string) string {
	return normalizePath(path) + ";" + DefinesHash(symbols)
}

func normalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return strings.ToLower(filepath.ToSlash(abs))
}

// FileHash returns the SHA-256 of a file's content, memoized per path for
// the remainder of the run so validation and storing never hash twice.
func (c *Cache) FileHash(path string) (string, error) {
	key := normalizePath(path)
	if v, ok := c.hashMemo.Load(key); ok {
		return v.(string), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	c.hashMemo.Store(key, hash)
	return hash, nil
}

// Lookup returns the cached unit and its resolved include paths for
// (path, symbols), or a nil unit on a miss. A stored entry validates
// cheaply first: equal size and modification time are trusted without
// hashing. Otherwise the content hash decides, and a match refreshes the
// cheap metadata.
func (c *Cache) Lookup(path string, symbols []string) (*model.Unit, []string) {
	key := Key(path, symbols)
	v, ok := c.entries.Load(key)
	if !ok {
		c.misses.Add(1)
		return nil, nil
	}
	entry := v.(*Entry)

	info, err := os.Stat(path)
	if err != nil {
		c.misses.Add(1)
		return nil, nil
	}
	if info.Size() == entry.FileSize && info.ModTime().UnixNano() == entry.LastModified {
		c.hits.Add(1)
		return entry.Unit, entry.Includes
	}

	hash, err := c.FileHash(path)
	if err != nil || hash != entry.FileHash {
		c.misses.Add(1)
		return nil, nil
	}
	// Content unchanged, only metadata drifted (checkout, touch).
	refreshed := *entry
	refreshed.FileSize = info.Size()
	refreshed.LastModified = info.ModTime().UnixNano()
	c.entries.Store(key, &refreshed)
	c.hits.Add(1)
	return entry.Unit, entry.Includes
}

// Store inserts or replaces the entry for (path, symbols). includes lists
// the resolved include closure observed while parsing the file.
func (c *Cache) Store(path string, symbols []string, unit *model.Unit, includes []string) {
	hash, err := c.FileHash(path)
	if err != nil {
		c.logger.Debug("cannot hash file for cache store", "path", path, "error", err.Error())
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	c.entries.Store(Key(path, symbols), &Entry{
		FilePath:     path,
		FileHash:     hash,
		DefinesHash:  DefinesHash(symbols),
		LastModified: info.ModTime().UnixNano(),
		FileSize:     info.Size(),
		Unit:         unit,
		Includes:     includes,
		CachedAt:     time.Now().UTC(),
	})
}

// Stats returns hit/miss counters and the current entry count.
func (c *Cache) Stats() (hits, misses int64, entries int) {
	c.entries.Range(func(_, _ any) bool {
		entries++
		return true
	})
	return c.hits.Load(), c.misses.Load(), entries
}
