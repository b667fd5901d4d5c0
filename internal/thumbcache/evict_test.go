package thumbcache

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeEntry seeds a cache entry of the given size with a fixed mtime.
func writeEntry(t *testing.T, dir, name string, size int, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0o600); err != nil {
		t.Fatalf("seed entry %s: %v", name, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("age entry %s: %v", name, err)
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func cacheTotalBytes(t *testing.T, dir string) int64 {
	t.Helper()
	_, total, err := scanDir(dir)
	if err != nil {
		t.Fatalf("scan cache dir: %v", err)
	}
	return total
}

func TestSweepNoopUnderBudget(t *testing.T) {
	c := newTestCache(t, 1000)
	base := time.Now().Add(-time.Hour)
	a := writeEntry(t, c.Dir(), "a.jpg", 400, base)
	b := writeEntry(t, c.Dir(), "b.jpg", 400, base.Add(time.Minute))

	c.Sweep()

	if !exists(a) || !exists(b) {
		t.Fatalf("sweep under budget must not delete anything")
	}
}

func TestSweepMissingDirIsNoop(t *testing.T) {
	c := newTestCache(t, 1000)
	if err := os.RemoveAll(c.Dir()); err != nil {
		t.Fatalf("remove cache dir: %v", err)
	}
	c.Sweep() // must not panic or error
}

func TestSweepEvictsLeastRecentlyUsed(t *testing.T) {
	// A, B, C written in order, then A re-accessed; a fourth write pushes
	// the total over budget with room for exactly one deletion. B must go.
	c := newTestCache(t, 1400)
	base := time.Now().Add(-time.Hour)
	b := writeEntry(t, c.Dir(), "b.jpg", 400, base.Add(1*time.Minute))
	cc := writeEntry(t, c.Dir(), "c.jpg", 400, base.Add(2*time.Minute))
	a := writeEntry(t, c.Dir(), "a.jpg", 400, base.Add(3*time.Minute)) // re-accessed last
	d := writeEntry(t, c.Dir(), "d.jpg", 400, base.Add(4*time.Minute))

	c.Sweep()

	if exists(b) {
		t.Fatalf("b is the least recently used entry and must be evicted")
	}
	for name, path := range map[string]string{"a": a, "c": cc, "d": d} {
		if !exists(path) {
			t.Fatalf("%s should survive the sweep", name)
		}
	}
	if got := cacheTotalBytes(t, c.Dir()); got > 1400*9/10 {
		t.Fatalf("total %d above hysteresis target", got)
	}
}

func TestSweepStopsAtHysteresisTarget(t *testing.T) {
	c := newTestCache(t, 1000)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		writeEntry(t, c.Dir(), fmt.Sprintf("f%02d.jpg", i), 100, base.Add(time.Duration(i)*time.Minute))
	}

	c.Sweep()

	total := cacheTotalBytes(t, c.Dir())
	if total > 900 {
		t.Fatalf("sweep should reach 90%% of budget, total = %d", total)
	}
	if total < 700 {
		t.Fatalf("sweep deleted more than necessary, total = %d", total)
	}
	// The oldest files are the ones that went.
	if exists(filepath.Join(c.Dir(), "f00.jpg")) {
		t.Fatalf("oldest entry should be evicted first")
	}
	if !exists(filepath.Join(c.Dir(), "f11.jpg")) {
		t.Fatalf("newest entry must survive")
	}
}

func TestSweepIgnoresTempFiles(t *testing.T) {
	c := newTestCache(t, 1000)
	base := time.Now().Add(-time.Hour)
	temp := writeEntry(t, c.Dir(), ".thumb-123456", 5000, base)
	entry := writeEntry(t, c.Dir(), "a.jpg", 400, base.Add(time.Minute))

	c.Sweep()

	if !exists(temp) {
		t.Fatalf("in-flight temp file must never be swept")
	}
	if !exists(entry) {
		t.Fatalf("temp bytes must not count toward the budget")
	}
}

func TestSweepKeepsOversizedSingleEntry(t *testing.T) {
	c := newTestCache(t, 1000)
	only := writeEntry(t, c.Dir(), "huge.jpg", 3000, time.Now())

	c.Sweep()

	if !exists(only) {
		t.Fatalf("a single oversized entry is never partially or fully evicted")
	}
}

func TestSweepNeverRemovesNewestEntry(t *testing.T) {
	c := newTestCache(t, 1000)
	base := time.Now().Add(-time.Hour)
	old := writeEntry(t, c.Dir(), "old.jpg", 800, base)
	fresh := writeEntry(t, c.Dir(), "fresh.jpg", 2000, base.Add(time.Minute))

	c.Sweep()

	if exists(old) {
		t.Fatalf("older sibling should be evicted")
	}
	if !exists(fresh) {
		t.Fatalf("the just-written entry must survive its own sweep")
	}
}

func TestDotBasenameEntryIsCountedAndEvictable(t *testing.T) {
	// Entries fetched from URLs with dot-prefixed basenames must still be
	// visible to Stats and to the sweep; only the reserved temp names may
	// escape the budget.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("h"), 600))
	}))
	t.Cleanup(srv.Close)

	c := newTestCache(t, 1000)
	clock := time.Now().Add(-time.Hour)
	c.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	hiddenURL := srv.URL + "/img/.hidden.jpg"
	if _, err := c.Fetch(context.Background(), hiddenURL); err != nil {
		t.Fatalf("fetch dot-basename url: %v", err)
	}

	stats := c.Stats()
	if stats.Entries != 1 || stats.TotalBytes != 600 {
		t.Fatalf("stats = %+v, dot-keyed entry must be counted", stats)
	}

	if _, err := c.Fetch(context.Background(), srv.URL+"/img/normal.jpg"); err != nil {
		t.Fatalf("fetch second url: %v", err)
	}

	// 600 + 600 exceeds the 1000-byte budget; the older dot-keyed entry
	// must be the one evicted down to the 900-byte target.
	if total := cacheTotalBytes(t, c.Dir()); total > 900 {
		t.Fatalf("total %d still over the hysteresis target", total)
	}
	if exists(filepath.Join(c.Dir(), Key(hiddenURL))) {
		t.Fatalf("dot-keyed entry must be evictable, still on disk")
	}
	if !exists(filepath.Join(c.Dir(), "normal.jpg")) {
		t.Fatalf("newer entry should survive")
	}
	if evicted := c.Stats().Evictions; evicted != 1 {
		t.Fatalf("evictions = %d, want 1", evicted)
	}
}

func TestEndToEndBudgetScenario(t *testing.T) {
	// max_size_mb = 1; five distinct 300 KiB images fetched sequentially.
	const budget = 1 << 20
	const imageSize = 300 * 1024

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("p"), imageSize))
	}))
	t.Cleanup(srv.Close)

	c := newTestCache(t, budget)

	// Drive the LRU clock manually so each write gets a strictly later
	// timestamp regardless of filesystem mtime granularity.
	clock := time.Now().Add(-time.Hour)
	c.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	names := []string{"a", "b", "c", "d", "e"}
	for _, name := range names {
		if _, err := c.Fetch(context.Background(), srv.URL+"/img/"+name+".jpg"); err != nil {
			t.Fatalf("fetch %s: %v", name, err)
		}
	}

	total := cacheTotalBytes(t, c.Dir())
	if total > budget*9/10 {
		t.Fatalf("total %d exceeds 90%% of budget after sweeps", total)
	}
	for _, gone := range []string{"a.jpg", "b.jpg"} {
		if exists(filepath.Join(c.Dir(), gone)) {
			t.Fatalf("%s is among the least recently used and should be evicted", gone)
		}
	}
	for _, kept := range []string{"c.jpg", "d.jpg", "e.jpg"} {
		if !exists(filepath.Join(c.Dir(), kept)) {
			t.Fatalf("%s should still be cached", kept)
		}
	}
	if evicted := c.Stats().Evictions; evicted != 2 {
		t.Fatalf("evictions = %d, want 2", evicted)
	}
}
