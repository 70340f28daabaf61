// Copyright (c) 2025 The DataKeep Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package cache provides a process-local memoization of query results,
// grouped by prefix so that writes can invalidate whole entity classes
// ("datasets", "datasets_{account}", "reviews", ...).
package cache

import (
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// QueryCache maps stable hashes of serialized queries to their results.
// Entries are grouped under a caller-chosen group name; Invalidate removes
// every group whose name starts with the given prefix.
type QueryCache struct {
	mu     sync.RWMutex
	groups map[string]map[uint64]any
}

func NewQueryCache() *QueryCache {
	return &QueryCache{groups: make(map[string]map[uint64]any)}
}

// Get looks up the cached result for a query in a group.
func (cache *QueryCache) Get(group, query string) (any, bool) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()
	entries, found := cache.groups[group]
	if !found {
		return nil, false
	}
	value, found := entries[xxhash.Sum64String(query)]
	return value, found
}

// Put stores the result for a query in a group.
func (cache *QueryCache) Put(group, query string, value any) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	entries, found := cache.groups[group]
	if !found {
		entries = make(map[uint64]any)
		cache.groups[group] = entries
	}
	entries[xxhash.Sum64String(query)] = value
}

// Invalidate drops every group whose name begins with the given prefix.
func (cache *QueryCache) Invalidate(prefix string) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	for group := range cache.groups {
		if strings.HasPrefix(group, prefix) {
			delete(cache.groups, group)
		}
	}
}

// InvalidateAll flushes the entire cache.
func (cache *QueryCache) InvalidateAll() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.groups = make(map[string]map[uint64]any)
}
