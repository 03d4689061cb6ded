package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/aleksakarac/AiNarratorGoBuild/internal/audio"
	"github.com/aleksakarac/AiNarratorGoBuild/internal/logger"
)

const cacheIndexFile = "cache_index.json"

// CacheEntry is one record in the cache index.
type CacheEntry struct {
	Key      string    `json:"key"`
	Voice    string    `json:"voice"`
	Text     string    `json:"text"`
	Size     int64     `json:"size"`
	CachedAt time.Time `json:"cached_at"`
	LastUsed time.Time `json:"last_used"`
}

// Cache keeps synthesized clips as WAV files with a JSON index and evicts
// the least recently used ones once the total size exceeds the limit.
type Cache struct {
	mu       sync.Mutex
	cacheDir string
	maxSize  int64 // bytes
	index    map[string]*CacheEntry
}

// NewCache opens or creates a cache in cacheDir holding at most
// maxSizeMB megabytes.
func NewCache(cacheDir string, maxSizeMB int64) (*Cache, error) {
	if maxSizeMB <= 0 {
		return nil, fmt.Errorf("[tts] cache size must be positive, got %d MB", maxSizeMB)
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("[tts] create cache directory: %w", err)
	}

	c := &Cache{
		cacheDir: cacheDir,
		maxSize:  maxSizeMB * 1024 * 1024,
		index:    make(map[string]*CacheEntry),
	}
	if err := c.loadIndex(); err != nil {
		logger.Warnf("[tts] load cache index (starting empty): %v", err)
	}
	c.validateIndex()
	return c, nil
}

// CacheKey derives the index key for text spoken by voice.
func CacheKey(voice, text string) string {
	sum := sha256.Sum256([]byte(voice + "\x00" + text))
	return hex.EncodeToString(sum[:16])
}

// Lookup returns the cached clip for key, if present and readable.
func (c *Cache) Lookup(key string) (*audio.Clip, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index[key]
	if !ok {
		return nil, false
	}

	clip, err := audio.ReadWAV(c.filePath(key))
	if err != nil {
		logger.Warnf("[tts] dropping unreadable cache entry %s: %v", key, err)
		delete(c.index, key)
		c.saveIndexLocked()
		return nil, false
	}

	entry.LastUsed = time.Now()
	c.saveIndexLocked()
	return clip, true
}

// Store writes clip under key and evicts old entries if needed.
func (c *Cache) Store(key string, entry CacheEntry, clip *audio.Clip) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tmp := c.filePath(key) + ".tmp"
	if err := audio.WriteWAV(tmp, clip); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, c.filePath(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("[tts] commit cache file: %w", err)
	}

	now := time.Now()
	entry.Key = key
	entry.CachedAt = now
	entry.LastUsed = now
	if info, err := os.Stat(c.filePath(key)); err == nil {
		entry.Size = info.Size()
	}
	c.index[key] = &entry

	if err := c.saveIndexLocked(); err != nil {
		return fmt.Errorf("[tts] save cache index: %w", err)
	}
	c.evictLocked()

	logger.Debugf("[tts] cached %s (%d bytes)", key, entry.Size)
	return nil
}

// List returns all entries, most recently used first.
func (c *Cache) List() []CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	results := make([]CacheEntry, 0, len(c.index))
	for _, entry := range c.index {
		results = append(results, *entry)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].LastUsed.After(results[j].LastUsed)
	})
	return results
}

func (c *Cache) filePath(key string) string {
	return filepath.Join(c.cacheDir, key+".wav")
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.cacheDir, cacheIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &c.index)
}

// saveIndexLocked persists the index. Callers hold c.mu.
func (c *Cache) saveIndexLocked() error {
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.cacheDir, cacheIndexFile), data, 0644)
}

// validateIndex drops entries whose files have gone missing.
func (c *Cache) validateIndex() {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.index {
		if _, err := os.Stat(c.filePath(key)); err != nil {
			delete(c.index, key)
			removed++
		}
	}
	if removed > 0 {
		logger.Infof("[tts] cache index: removed %d stale entries", removed)
		c.saveIndexLocked()
	}
	logger.Debugf("[tts] cache loaded: %d clips in %s", len(c.index), c.cacheDir)
}

// evictLocked removes least recently used entries until the cache fits.
// Callers hold c.mu.
func (c *Cache) evictLocked() {
	var total int64
	for _, entry := range c.index {
		total += entry.Size
	}
	if total <= c.maxSize {
		return
	}

	entries := make([]*CacheEntry, 0, len(c.index))
	for _, entry := range c.index {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastUsed.Before(entries[j].LastUsed)
	})

	for _, entry := range entries {
		if total <= c.maxSize {
			break
		}
		if err := os.Remove(c.filePath(entry.Key)); err != nil && !os.IsNotExist(err) {
			logger.Warnf("[tts] remove cache file %s: %v", entry.Key, err)
			continue
		}
		total -= entry.Size
		delete(c.index, entry.Key)
		logger.Debugf("[tts] evicted %s", entry.Key)
	}
	c.saveIndexLocked()
}

// CachedEngine serves repeated requests from a Cache before falling back
// to the wrapped engine.
type CachedEngine struct {
	next  TextToAudio
	cache *Cache
	voice string
}

// NewCachedEngine wraps next. voice must identify every setting besides
// the text that changes next's output.
func NewCachedEngine(next TextToAudio, cache *Cache, voice string) *CachedEngine {
	return &CachedEngine{next: next, cache: cache, voice: voice}
}

// Synthesize implements TextToAudio.
func (e *CachedEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	key := CacheKey(e.voice, text)
	if clip, ok := e.cache.Lookup(key); ok {
		logger.Debugf("[tts] cache hit %s", key)
		return clip, nil
	}

	clip, err := e.next.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Store(key, CacheEntry{Voice: e.voice, Text: text}, clip); err != nil {
		logger.Warnf("[tts] cache store: %v", err)
	}
	return clip, nil
}

// Close closes the wrapped engine if it holds resources.
func (e *CachedEngine) Close() error {
	if c, ok := e.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
