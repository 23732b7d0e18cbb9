package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := NewLRUCache(2, time.Hour, WithEvictHook(func(key string, _ int) {
		evicted = append(evicted, key)
	}))

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted = %v", evicted)
	}
}

func TestLRUCacheSlidingExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache(10, time.Minute, WithClock[string](clock.Now))

	c.Set("s", "session")
	clock.Advance(50 * time.Second)
	if _, ok := c.Get("s"); !ok {
		t.Fatal("entry expired too early")
	}
	clock.Advance(50 * time.Second)
	if _, ok := c.Get("s"); !ok {
		t.Fatal("Get should renew the expiry")
	}
	clock.Advance(2 * time.Minute)
	if _, ok := c.Get("s"); ok {
		t.Fatal("entry should have expired")
	}
}

func TestCleanExpiredAndManager(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache(10, time.Minute, WithClock[int](clock.Now))
	c.Set("a", 1)
	c.Set("b", 2)
	clock.Advance(2 * time.Minute)
	c.Set("c", 3)

	m := NewManager(nil)
	m.Register(c)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("swept %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestDeleteSkipsEvictHook(t *testing.T) {
	called := false
	c := NewLRUCache(10, time.Minute, WithEvictHook(func(string, int) { called = true }))
	c.Set("a", 1)
	c.Delete("a")
	if called || c.Size() != 0 {
		t.Fatalf("called=%v size=%d", called, c.Size())
	}
}
