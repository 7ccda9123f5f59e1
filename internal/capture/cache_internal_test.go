package capture

import (
	"fmt"
	"testing"
)

func TestMemoryCacheEvictsOldestInsertion(t *testing.T) {
	c := newMemoryCache(3)
	for _, key := range []string{"a", "b", "c"} {
		c.put(key, Preview{Path: key})
	}
	// reads must not refresh position
	if _, ok := c.get("a"); !ok {
		t.Fatal("expected a to be cached")
	}
	c.put("d", Preview{Path: "d"})

	if _, ok := c.get("a"); ok {
		t.Fatal("expected oldest insertion to be evicted despite the read")
	}
	for _, key := range []string{"b", "c", "d"} {
		if _, ok := c.get(key); !ok {
			t.Fatalf("expected %s to survive", key)
		}
	}
	if c.len() != 3 {
		t.Fatalf("expected 3 entries, got %d", c.len())
	}
}

func TestMemoryCacheReplaceKeepsPosition(t *testing.T) {
	c := newMemoryCache(2)
	c.put("a", Preview{Path: "old"})
	c.put("b", Preview{})
	c.put("a", Preview{Path: "new"})
	if got, _ := c.get("a"); got.Path != "new" {
		t.Fatalf("expected replaced value, got %q", got.Path)
	}
	c.put("c", Preview{})
	if _, ok := c.get("a"); ok {
		t.Fatal("replacing a key must not move it to the back of the queue")
	}
}

func TestDefaultBoundIs180(t *testing.T) {
	c := newMemoryCache(0)
	for i := range 200 {
		c.put(fmt.Sprintf("k%d", i), Preview{})
	}
	if c.len() != 180 {
		t.Fatalf("expected 180 entries, got %d", c.len())
	}
}

func TestRoundTimeHalfSecondGrid(t *testing.T) {
	tests := map[float64]float64{
		10.24: 10.0,
		10.26: 10.5,
		10.74: 10.5,
		10.76: 11.0,
		0:     0,
	}
	for in, want := range tests {
		if got := roundTime(in); got != want {
			t.Fatalf("roundTime(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestCacheKeyNormalizesPath(t *testing.T) {
	composed := "/media/caf\u00e9.mkv"
	decomposed := "/media/cafe\u0301.mkv"
	if cacheKey(composed, 10) != cacheKey(decomposed, 10) {
		t.Fatal("expected NFC and NFD spellings to share a key")
	}
	if cacheKey(composed, 10) == cacheKey(composed, 10.5) {
		t.Fatal("expected different times to produce different keys")
	}
	if cacheKey("/a.mkv", 10) == cacheKey("/b.mkv", 10) {
		t.Fatal("expected different paths to produce different keys")
	}
	if len(cacheKey(composed, 10)) != 32 {
		t.Fatalf("unexpected key length %d", len(cacheKey(composed, 10)))
	}
}
