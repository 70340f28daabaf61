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

package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// tests basic memoization
func TestPutAndGet(t *testing.T) {
	assert := assert.New(t)
	cache := NewQueryCache()

	_, found := cache.Get("datasets", "query-1")
	assert.False(found)

	cache.Put("datasets", "query-1", []int{1, 2, 3})
	value, found := cache.Get("datasets", "query-1")
	assert.True(found)
	assert.Equal([]int{1, 2, 3}, value)

	// a different query in the same group is a miss
	_, found = cache.Get("datasets", "query-2")
	assert.False(found)

	// the same query in a different group is a miss
	_, found = cache.Get("reviews", "query-1")
	assert.False(found)
}

// tests that invalidation drops every group sharing the prefix
func TestInvalidateByPrefix(t *testing.T) {
	assert := assert.New(t)
	cache := NewQueryCache()
	cache.Put("datasets", "q", 1)
	cache.Put("datasets_alice", "q", 2)
	cache.Put("reviews", "q", 3)

	cache.Invalidate("datasets")

	_, found := cache.Get("datasets", "q")
	assert.False(found)
	_, found = cache.Get("datasets_alice", "q")
	assert.False(found)
	_, found = cache.Get("reviews", "q")
	assert.True(found)
}

// tests the full flush
func TestInvalidateAll(t *testing.T) {
	assert := assert.New(t)
	cache := NewQueryCache()
	cache.Put("datasets", "q", 1)
	cache.Put("reviews", "q", 2)

	cache.InvalidateAll()

	_, found := cache.Get("datasets", "q")
	assert.False(found)
	_, found = cache.Get("reviews", "q")
	assert.False(found)
}

// tests that concurrent readers and writers don't trip the race detector
func TestConcurrentAccess(t *testing.T) {
	cache := NewQueryCache()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Put("datasets", "q", j)
				cache.Get("datasets", "q")
				if j%10 == 0 {
					cache.Invalidate("datasets")
				}
			}
		}()
	}
	wg.Wait()
}
