package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *clock) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	// a was used last, so b is evicted
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Size())
	}

	c.Set("a", "1b")
	if v, _ := c.Get("a"); v != "1b" {
		t.Errorf("overwrite: Get(a) = %q", v)
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be deleted")
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clk.t = clk.t.Add(30 * time.Second)
	c.Set("c", "3")

	clk.t = clk.t.Add(31 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should be expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d, want 1 (b)", n)
	}
	if v, ok := c.Get("c"); !ok || v != "3" {
		t.Errorf("c should still be live, got %q, %v", v, ok)
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	for _, k := range []string{"quarterly:acc-1", "summary:acc-1:2024-03", "summary:acc-2:2024-03", "quarterly:acc-2"} {
		c.Set(k, "x")
	}
	if n := c.DeletePrefix("summary:acc-1:"); n != 1 {
		t.Errorf("DeletePrefix = %d, want 1", n)
	}
	if c.Size() != 3 {
		t.Errorf("Size = %d, want 3", c.Size())
	}
	if n := c.DeletePrefix("nothing"); n != 0 {
		t.Errorf("DeletePrefix(nothing) = %d", n)
	}
}

func TestManager(t *testing.T) {
	c, clk := newTestCache(10, time.Second)
	c.Set("a", "1")
	clk.t = clk.t.Add(2 * time.Second)

	m := NewManager()
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("CleanNow = %d, want 1", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()

	// stopping a manager that never started must not block
	NewManager().Stop()
}
