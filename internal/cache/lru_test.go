// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(capacity int, ttl time.Duration) (*LRU[string], *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string](capacity, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRU_BasicOperations(t *testing.T) {
	c, _ := newTestCache(3, time.Minute)

	c.Add("a", "alice")
	c.Add("b", "bob")
	c.Add("c", "carol")

	for key, want := range map[string]string{"a": "alice", "b": "bob", "c": "carol"} {
		got, found := c.Get(key)
		if !found || got != want {
			t.Errorf("Get(%q) = %q, %v; want %q, true", key, got, found, want)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Expected len 3, got %d", c.Len())
	}

	c.Add("a", "alicia")
	if got, _ := c.Get("a"); got != "alicia" {
		t.Errorf("Expected updated value 'alicia', got %q", got)
	}
	if c.Len() != 3 {
		t.Errorf("update should not grow the cache, got len %d", c.Len())
	}
}

func TestLRU_Eviction(t *testing.T) {
	c, _ := newTestCache(3, time.Minute)

	c.Add("a", "1")
	c.Add("b", "2")
	c.Add("c", "3")

	// Access 'a' so 'b' becomes least recently used
	c.Get("a")
	c.Add("d", "4")

	if _, found := c.Get("b"); found {
		t.Error("Expected 'b' to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, found := c.Get(key); !found {
			t.Errorf("Expected %q to be present", key)
		}
	}
}

func TestLRU_TTLExpiration(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)

	c.Add("a", "alice")
	if _, found := c.Get("a"); !found {
		t.Fatal("Expected to find key 'a' immediately")
	}

	clock.Advance(time.Minute + time.Second)
	if _, found := c.Get("a"); found {
		t.Error("Expected key 'a' to expire")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be dropped on access, len = %d", c.Len())
	}
}

func TestLRU_RefreshExtendsTTL(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)

	c.Add("a", "alice")
	clock.Advance(45 * time.Second)
	c.Add("a", "alice")
	clock.Advance(45 * time.Second)

	if _, found := c.Get("a"); !found {
		t.Error("re-adding should reset the TTL")
	}
}

func TestLRU_Remove(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)

	c.Add("a", "alice")
	if !c.Remove("a") {
		t.Error("Remove should report a present key")
	}
	if c.Remove("a") {
		t.Error("Remove should report a missing key")
	}
	if _, found := c.Get("a"); found {
		t.Error("removed key still present")
	}
}

func TestLRU_CleanupExpired(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)

	c.Add("a", "1")
	c.Add("b", "2")
	clock.Advance(30 * time.Second)
	c.Add("c", "3")
	clock.Advance(45 * time.Second)

	if removed := c.CleanupExpired(); removed != 2 {
		t.Errorf("Expected 2 expired entries removed, got %d", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 entry left, got %d", c.Len())
	}
}

func TestLRU_Stats(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)

	c.Add("a", "1")
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	hits, misses, size := c.Stats()
	if hits != 2 || misses != 1 || size != 1 {
		t.Errorf("Stats() = %d, %d, %d; want 2, 1, 1", hits, misses, size)
	}
}

func TestLRU_Defaults(t *testing.T) {
	c := New[int](0, 0)
	if c.capacity != 10000 {
		t.Errorf("Expected default capacity 10000, got %d", c.capacity)
	}
	if c.ttl != 5*time.Minute {
		t.Errorf("Expected default TTL 5m, got %v", c.ttl)
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := New[int](100, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := strconv.Itoa((g*500 + i) % 150)
				c.Add(key, i)
				c.Get(key)
				if i%50 == 0 {
					c.Remove(key)
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("cache exceeded capacity: %d", c.Len())
	}
}
