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

package cache

import "sync"

// entry is one priority-scored cache record.
type entry struct {
	value       any
	sizeBytes   int64
	accessCount int64
	lastAccess  int64 // unix nanos
	insertedAt  int64 // unix nanos
}

// PriorityCache is an in-memory cache whose entries are scored by
// access_count * freshness / size. Freshness decays linearly from 1.0 at
// insertion to 0.0 at maxAge; eviction removes the minimum-score entry
// whenever a Put would exceed MaxEntries or MaxBytes.
//
// Grounded on pkg/trcr.CompilationCache's mutex-guarded map and
// overridable-clock shape, generalized from LRU-by-timestamp to the
// access_count*freshness/size priority score.
type PriorityCache struct {
	mu sync.Mutex

	maxEntries int
	maxBytes   int64
	maxAge     int64 // nanos; 0 disables freshness decay (always 1.0)

	entries    map[string]*entry
	totalBytes int64
	evictions  int

	now func() int64 // unix nanos, overridable for deterministic tests
}

// Config sizes a PriorityCache.
type Config struct {
	MaxEntries int
	MaxBytes   int64
	MaxAgeNs   int64
}

// DefaultConfig is a general-purpose sizing: 10,000 entries, 256MiB, a
// one hour freshness window.
func DefaultConfig() Config {
	return Config{MaxEntries: 10000, MaxBytes: 256 << 20, MaxAgeNs: int64(3600e9)}
}

// New returns a PriorityCache. nowNanos is injected for deterministic
// tests; production callers pass a func returning time.Now().UnixNano().
func New(cfg Config, nowNanos func() int64) *PriorityCache {
	return &PriorityCache{
		maxEntries: cfg.MaxEntries,
		maxBytes:   cfg.MaxBytes,
		maxAge:     cfg.MaxAgeNs,
		entries:    make(map[string]*entry),
		now:        nowNanos,
	}
}

// Get returns the value stored under key and bumps its access count and
// last-access timestamp, or (nil, false) on a miss.
func (c *PriorityCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e.accessCount++
	e.lastAccess = c.now()
	return e.value, true
}

// Put stores value under key with the given size in bytes, evicting
// minimum-score entries other than key itself until the cache is within
// both MaxEntries and MaxBytes (or key is the only entry left).
func (c *PriorityCache) Put(key string, value any, sizeBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.totalBytes -= old.sizeBytes
		delete(c.entries, key)
	}

	now := c.now()
	c.entries[key] = &entry{
		value:      value,
		sizeBytes:  sizeBytes,
		lastAccess: now,
		insertedAt: now,
	}
	c.totalBytes += sizeBytes

	for (c.maxEntries > 0 && len(c.entries) > c.maxEntries) || (c.maxBytes > 0 && c.totalBytes > c.maxBytes) {
		if !c.evictMinScore(key) {
			break
		}
	}
}

// Delete removes key if present.
func (c *PriorityCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.totalBytes -= e.sizeBytes
		delete(c.entries, key)
	}
}

// Len returns the current entry count.
func (c *PriorityCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Evictions returns the lifetime count of entries removed to satisfy a
// cap (not counting explicit Delete calls).
func (c *PriorityCache) Evictions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}

// score computes access_count * freshness / size at time now. An entry
// with zero accesses scores zero and is always the first evicted.
func (e *entry) score(now, maxAge int64) float64 {
	size := e.sizeBytes
	if size <= 0 {
		size = 1
	}
	freshness := 1.0
	if maxAge > 0 {
		age := now - e.insertedAt
		if age >= maxAge {
			freshness = 0
		} else if age > 0 {
			freshness = 1.0 - float64(age)/float64(maxAge)
		}
	}
	return float64(e.accessCount) * freshness / float64(size)
}

// evictMinScore removes the lowest-scoring entry other than skip (the key
// a Put just stored). Must be called with mu held. Returns false if there
// is no such entry.
func (c *PriorityCache) evictMinScore(skip string) bool {
	now := c.now()
	var worstKey string
	var worstScore float64
	first := true
	for k, e := range c.entries {
		if k == skip {
			continue
		}
		s := e.score(now, c.maxAge)
		if first || s < worstScore {
			worstKey, worstScore, first = k, s, false
		}
	}
	if first {
		return false
	}
	c.totalBytes -= c.entries[worstKey].sizeBytes
	delete(c.entries, worstKey)
	c.evictions++
	return true
}
