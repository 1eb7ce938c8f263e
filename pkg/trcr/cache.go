// Copyright 2025 OpenCIE
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@opencie.dev
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package trcr

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// CacheEntry is one compiled-rule-list cache record, keyed by
// (FilePath, ContentHash). Field names and shape match the
// originating compiler cache's on-disk schema exactly, so a persisted
// cache directory is a stable artifact across compiler versions.
type CacheEntry struct {
	FilePath           string                  `json:"file_path"`
	ContentHash        string                  `json:"content_hash"`
	CompiledRules      []TaintRuleExecutableIR `json:"compiled_rules"`
	CompilationTimeMs  float64                 `json:"compilation_time_ms"`
	CreatedAtUnix      int64                   `json:"created_at"`
	AccessCount        int                     `json:"access_count"`
	LastAccessedUnix   int64                   `json:"last_accessed"`
}

// CacheConfig configures a CompilationCache.
type CacheConfig struct {
	CacheDir          string // empty means in-memory only
	MaxEntries        int
	TTLSeconds        int64
	EnablePersistence bool
}

// DefaultCacheConfig matches the originating cache's defaults: 1000
// entries, a 24 hour TTL, persistence enabled whenever a CacheDir is
// supplied by the caller.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{MaxEntries: 1000, TTLSeconds: 86400, EnablePersistence: true}
}

// CacheStats mirrors the originating cache's get_stats() shape.
type CacheStats struct {
	Entries   int
	Hits      int
	Misses    int
	HitRate   float64
	Evictions int
}

// CompilationCache is a content-addressed cache of compiled rule
// lists: content-addressable by (file path, content hash), LRU
// eviction past MaxEntries, TTL expiry, optional on-disk persistence
// as a single JSON document per cache directory.
type CompilationCache struct {
	mu     sync.Mutex
	config CacheConfig
	cache  map[string]*CacheEntry

	hits, misses, evictions int

	now func() int64 // overridable for deterministic tests
}

// NewCompilationCache returns a cache ready to use, loading persisted
// entries from config.CacheDir if persistence is enabled.
func NewCompilationCache(config CacheConfig, nowUnix func() int64) *CompilationCache {
	c := &CompilationCache{config: config, cache: make(map[string]*CacheEntry), now: nowUnix}
	if config.CacheDir != "" && config.EnablePersistence {
		c.loadFromDisk()
	}
	return c
}

func computeContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:16]
}

func cacheKey(filePath, contentHash string) string {
	return filePath + ":" + contentHash
}

// Get returns the cached rule list for (filePath, content), or nil,
// false on a miss - including an expired entry (TTL) or a stale hash
// (the same key mapping to different content than what was cached).
func (c *CompilationCache) Get(filePath string, content []byte) ([]TaintRuleExecutableIR, bool) {
	hash := computeContentHash(content)
	key := cacheKey(filePath, hash)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now()-entry.CreatedAtUnix > c.config.TTLSeconds {
		delete(c.cache, key)
		c.misses++
		return nil, false
	}
	if entry.ContentHash != hash {
		delete(c.cache, key)
		c.misses++
		return nil, false
	}

	entry.AccessCount++
	entry.LastAccessedUnix = c.now()
	c.hits++
	return entry.CompiledRules, true
}

// Has reports a cache hit without returning the rule list, matching
// the originating cache's has() fast-path check.
func (c *CompilationCache) Has(filePath string, content []byte) bool {
	_, ok := c.Get(filePath, content)
	return ok
}

// Put stores rules under (filePath, content), evicting the
// least-recently-accessed entry first if the cache is at capacity.
func (c *CompilationCache) Put(filePath string, content []byte, rules []TaintRuleExecutableIR, compilationTimeMs float64) {
	hash := computeContentHash(content)
	key := cacheKey(filePath, hash)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache) >= c.config.MaxEntries {
		c.evictLRU()
	}

	now := c.now()
	c.cache[key] = &CacheEntry{
		FilePath:          filePath,
		ContentHash:       hash,
		CompiledRules:     rules,
		CompilationTimeMs: compilationTimeMs,
		CreatedAtUnix:     now,
		AccessCount:       0,
		LastAccessedUnix:  now,
	}

	if c.config.CacheDir != "" && c.config.EnablePersistence {
		c.saveToDisk()
	}
}

// Invalidate removes every cached entry for filePath (across any
// content hash it was ever cached under) and returns the count removed.
func (c *CompilationCache) Invalidate(filePath string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var dead []string
	for k, e := range c.cache {
		if e.FilePath == filePath {
			dead = append(dead, k)
		}
	}
	for _, k := range dead {
		delete(c.cache, k)
	}
	return len(dead)
}

// Clear empties the cache and, if persistence is enabled, removes the
// on-disk cache file.
func (c *CompilationCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*CacheEntry)
	if c.config.CacheDir != "" && c.config.EnablePersistence {
		os.Remove(filepath.Join(c.config.CacheDir, "compilation_cache.json"))
	}
}

// Stats returns a snapshot of hit/miss/eviction counters.
func (c *CompilationCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	var rate float64
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return CacheStats{Entries: len(c.cache), Hits: c.hits, Misses: c.misses, HitRate: rate, Evictions: c.evictions}
}

// evictLRU must be called with mu held.
func (c *CompilationCache) evictLRU() {
	if len(c.cache) == 0 {
		return
	}
	var oldestKey string
	var oldestTime int64
	first := true
	for k, e := range c.cache {
		if first || e.LastAccessedUnix < oldestTime {
			oldestKey, oldestTime, first = k, e.LastAccessedUnix, false
		}
	}
	delete(c.cache, oldestKey)
	c.evictions++
}

type cacheFile struct {
	Version string       `json:"version"`
	Entries []CacheEntry `json:"entries"`
}

// loadFromDisk must be called before any concurrent access begins
// (construction time only); a corrupt cache file is ignored rather
// than treated as fatal, the same "ignore and start cold" behavior
// the originating cache uses for a damaged JSON document.
func (c *CompilationCache) loadFromDisk() {
	path := filepath.Join(c.config.CacheDir, "compilation_cache.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var doc cacheFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return
	}
	for i := range doc.Entries {
		e := doc.Entries[i]
		c.cache[cacheKey(e.FilePath, e.ContentHash)] = &e
	}
}

// saveToDisk must be called with mu held.
func (c *CompilationCache) saveToDisk() {
	if err := os.MkdirAll(c.config.CacheDir, 0o755); err != nil {
		return
	}
	entries := make([]CacheEntry, 0, len(c.cache))
	for _, e := range c.cache {
		entries = append(entries, *e)
	}
	doc := cacheFile{Version: "1.0", Entries: entries}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(c.config.CacheDir, "compilation_cache.json"), raw, 0o644)
}
