package reader

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const cacheExt = ".json"

// TextCache keeps downloaded book texts on disk, one file per source URL.
type TextCache struct {
	dir    string
	maxAge time.Duration
}

// CacheInfo summarises the contents of a TextCache.
type CacheInfo struct {
	Dir     string
	Entries int
	Fresh   int
	Bytes   int64
	Oldest  time.Time
	Newest  time.Time
	MaxAge  time.Duration
}

type cachedText struct {
	URL       string    `json:"url"`
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NewTextCache creates a cache rooted at dir. Entries older than maxAge are
// only served as a fallback when a fresh download fails.
func NewTextCache(dir string, maxAge time.Duration) *TextCache {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logrus.WithError(err).Warn("Failed to create text cache directory")
	}
	return &TextCache{dir: dir, maxAge: maxAge}
}

// Get returns the cached text for url when it exists and is fresh.
func (c *TextCache) Get(url string) (string, bool) {
	e, err := c.load(url)
	if err != nil || time.Since(e.FetchedAt) >= c.maxAge {
		return "", false
	}
	return e.Text, true
}

// Stale returns the cached text for url regardless of its age.
func (c *TextCache) Stale(url string) (string, bool) {
	e, err := c.load(url)
	if err != nil {
		return "", false
	}
	return e.Text, true
}

// Put stores text for url.
func (c *TextCache) Put(url, text string) error {
	data, err := json.Marshal(cachedText{URL: url, Text: text, FetchedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to encode cached text: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "text-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(url)); err != nil {
		return fmt.Errorf("failed to store cache file: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"url":   url,
		"bytes": len(text),
	}).Debug("Saved book text to cache")
	return nil
}

// Clear removes every cached text.
func (c *TextCache) Clear() error {
	files, err := c.files()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	logrus.WithField("entries", len(files)).Info("Cleared text cache")
	return nil
}

// Info reports the number, size and age of the cached texts.
func (c *TextCache) Info() (CacheInfo, error) {
	info := CacheInfo{Dir: c.dir, MaxAge: c.maxAge}

	files, err := c.files()
	if err != nil {
		return info, err
	}
	for _, f := range files {
		stat, err := os.Stat(f)
		if err != nil {
			continue
		}
		info.Entries++
		info.Bytes += stat.Size()

		mod := stat.ModTime()
		if time.Since(mod) < c.maxAge {
			info.Fresh++
		}
		if info.Oldest.IsZero() || mod.Before(info.Oldest) {
			info.Oldest = mod
		}
		if mod.After(info.Newest) {
			info.Newest = mod
		}
	}
	return info, nil
}

func (c *TextCache) load(url string) (cachedText, error) {
	var e cachedText

	data, err := os.ReadFile(c.path(url))
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("failed to decode cache file: %w", err)
	}
	if e.URL != url {
		return e, fmt.Errorf("cache entry belongs to %s", e.URL)
	}
	return e, nil
}

func (c *TextCache) files() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), cacheExt) {
			out = append(out, filepath.Join(c.dir, e.Name()))
		}
	}
	return out, nil
}

func (c *TextCache) path(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+cacheExt)
}
