package depcache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// zstExt marks cache files that are zstd-compressed JSON. Large monorepo
// caches shrink by an order of magnitude this way.
const zstExt = ".zst"

// Load reads a persisted cache table. A missing file is not an error: the
// run simply starts cold. Read failures are reported so the caller can log
// and proceed without the persisted cache.
func (c *Cache) Load(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var reader io.Reader = f
	if strings.HasSuffix(path, zstExt) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("open compressed cache: %w", err)
		}
		defer zr.Close()
		reader = zr
	}

	var table map[string]*Entry
	if err := json.NewDecoder(reader).Decode(&table); err != nil {
		return fmt.Errorf("decode cache file: %w", err)
	}
	for key, entry := range table {
		c.entries.Store(key, entry)
	}
	c.logger.Debug("cache loaded", "path", path, "entries", len(table))
	return nil
}

// Save writes the cache table as a JSON document, zstd-compressed when the
// path carries a .zst suffix. The write goes through a temp file and
// rename so a crashed run never leaves a truncated cache.
func (c *Cache) Save(path string) error {
	table := make(map[string]*Entry)
	c.entries.Range(func(k, v any) bool {
		table[k.(string)] = v.(*Entry)
		return true
	})

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cache-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	var writer io.Writer = tmp
	var zw *zstd.Encoder
	if strings.HasSuffix(path, zstExt) {
		zw, err = zstd.NewWriter(tmp)
		if err != nil {
			tmp.Close() //nolint:errcheck
			return fmt.Errorf("create compressed cache writer: %w", err)
		}
		writer = zw
	}

	if err := json.NewEncoder(writer).Encode(table); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("encode cache file: %w", err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			tmp.Close() //nolint:errcheck
			return fmt.Errorf("flush compressed cache: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	c.logger.Debug("cache saved", "path", path, "entries", len(table))
	return nil
}
