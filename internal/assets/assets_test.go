package assets

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

type countingDirectory struct {
	*Static
	calls atomic.Int32
}

func (c *countingDirectory) List(ctx context.Context) ([]Entry, error) {
	c.calls.Add(1)
	return c.Static.List(ctx)
}

func sampleEntries() []Entry {
	return []Entry{
		{ID: "1", Name: "crown.png", Link: "https://drive/1", Folder: "5 Stars"},
		{ID: "2", Name: "cat.png", Link: "https://drive/2", Folder: "4 Stars"},
		{ID: "3", Name: "dog.png", Link: "https://drive/3", Folder: "4 Stars"},
		{ID: "4", Name: "readme.txt", Link: "https://drive/4"},
	}
}

func TestStaticDirectory(t *testing.T) {
	dir := NewStatic(sampleEntries()...)
	ctx := context.Background()

	e, ok, err := dir.Exists(ctx, "cat.png")
	if err != nil || !ok || e.Link != "https://drive/2" {
		t.Fatalf("Exists = %+v %v %v", e, ok, err)
	}
	if _, ok, _ := dir.Exists(ctx, "missing.png"); ok {
		t.Fatalf("missing file reported as existing")
	}

	list, _ := dir.List(ctx)
	if got := InFolder(list, RarityFolder(4)); len(got) != 2 {
		t.Fatalf("4 Stars = %+v", got)
	}
	if got := InFolder(list, RarityFolder(3)); len(got) != 0 {
		t.Fatalf("3 Stars = %+v", got)
	}
}

func TestCachedDirectoryServesFromRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := NewRedisClient(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	inner := &countingDirectory{Static: NewStatic(sampleEntries()...)}
	cached := NewCachedDirectory(inner, rdb, time.Minute)
	if err := cached.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	defer cached.Invalidate(ctx)

	for i := 0; i < 3; i++ {
		if _, ok, err := cached.Exists(ctx, "crown.png"); err != nil || !ok {
			t.Fatalf("Exists #%d: %v %v", i, ok, err)
		}
	}
	if got := inner.calls.Load(); got != 1 {
		t.Fatalf("inner List calls = %d, want 1", got)
	}
}
