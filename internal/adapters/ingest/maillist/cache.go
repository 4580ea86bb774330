package maillist

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"sentinel/internal/core/hashing"
	perr "sentinel/internal/platform/errors"
	"sentinel/internal/platform/logger"
)

// Cache keeps archived message pages on disk, one .html per url plus a .meta sidecar.
// Archived messages never change so entries are never revalidated
type Cache struct {
	dir             string
	maxBytes        int64
	lastCleanupUnix atomic.Int64
	now             func() time.Time
}

// cacheMeta is a tiny sidecar json with fields we actually use
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Size         int64     `json:"size"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// NewCache creates dir when missing; maxBytes <= 0 disables size retention
func NewCache(dir string, maxBytes int64) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "maillist: cache dir %s", dir)
	}
	return &Cache{dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

func (c *Cache) path(url string) string {
	return filepath.Join(c.dir, hashing.Sum(url)+".html")
}

// Get returns the stored body for url
func (c *Cache) Get(url string) (string, bool) {
	b, err := os.ReadFile(c.path(url))
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Put stores body atomically then writes the sidecar
func (c *Cache) Put(url, body string, h http.Header) error {
	path := c.path(url)
	if err := writeAtomic(path, []byte(body)); err != nil {
		return err
	}
	meta := &cacheMeta{
		URL:       url,
		Size:      int64(len(body)),
		FetchedAt: c.now().UTC(),
	}
	if h != nil {
		meta.ETag = strings.TrimSpace(h.Get("ETag"))
		meta.LastModified = strings.TrimSpace(h.Get("Last-Modified"))
	}
	if err := saveMeta(path+".meta", meta); err != nil {
		return err
	}
	c.maybeCleanup()
	return nil
}

// writeAtomic writes to a .part file and renames it over path
func writeAtomic(path string, data []byte) error {
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// loadMeta reads a sidecar json file
func loadMeta(path string) (*cacheMeta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m cacheMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// saveMeta writes the sidecar json atomically
func saveMeta(path string, m *cacheMeta) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return writeAtomic(path, b)
}

// maybeCleanup throttles retention cleanup to once per ten minutes
func (c *Cache) maybeCleanup() {
	if c.maxBytes <= 0 {
		return
	}
	now := c.now().Unix()
	last := c.lastCleanupUnix.Load()
	if last != 0 && now-last < 600 {
		return
	}
	if !c.lastCleanupUnix.CompareAndSwap(last, now) {
		return
	}
	if err := c.cleanupOnce(); err != nil {
		logger.Named("maillist").Warn().Err(err).Str("dir", c.dir).Msg("cache cleanup failed")
	}
}

// cleanupOnce drops the oldest pages until the cache fits maxBytes
func (c *Cache) cleanupOnce() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	type item struct {
		path      string
		size      int64
		fetchedAt time.Time
	}
	var items []item
	var total int64
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".html") {
			continue
		}
		full := filepath.Join(c.dir, name)
		fi, err := os.Stat(full)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		at := fi.ModTime()
		if m, err := loadMeta(full + ".meta"); err == nil && !m.FetchedAt.IsZero() {
			at = m.FetchedAt
		}
		items = append(items, item{path: full, size: fi.Size(), fetchedAt: at})
		total += fi.Size()
	}
	if total <= c.maxBytes {
		return nil
	}
	sort.Slice(items, func(i, j int) bool { return items[i].fetchedAt.Before(items[j].fetchedAt) })
	for _, it := range items {
		if total <= c.maxBytes {
			break
		}
		_ = os.Remove(it.path)
		_ = os.Remove(it.path + ".meta")
		total -= it.size
	}
	return nil
}
