package cache

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var chapterJSON = bytes.Repeat([]byte(`{"title":"Prologue","html":"<p>Once.</p>"}`), 50)

func newTestDisk(t *testing.T, capacity int64, maxAge time.Duration) *Disk {
	t.Helper()
	d, err := NewDisk(t.TempDir(), capacity, maxAge)
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDiskPutGet(t *testing.T) {
	d := newTestDisk(t, 1<<20, 0)

	if _, ok := d.Get("https://example.com/c/1.json"); ok {
		t.Error("Expected miss on empty cache")
	}
	if err := d.Put("https://example.com/c/1.json", chapterJSON); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := d.Get("https://example.com/c/1.json")
	if !ok {
		t.Fatal("Expected hit after Put")
	}
	if !bytes.Equal(got, chapterJSON) {
		t.Error("Cached value differs from stored value")
	}

	st := d.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Items != 1 {
		t.Errorf("Unexpected stats: %+v", st)
	}
	if st.Size >= int64(len(chapterJSON)) {
		t.Errorf("Expected compressed size below %d, got %d", len(chapterJSON), st.Size)
	}
	if st.HitRate() != 0.5 {
		t.Errorf("Expected hit rate 0.5, got %f", st.HitRate())
	}
}

func TestDiskEvictsLeastRecentlyUsed(t *testing.T) {
	d := newTestDisk(t, 1<<20, 0)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for _, k := range []string{"a", "b"} {
		if err := d.Put(k, chapterJSON); err != nil {
			t.Fatalf("Put %s failed: %v", k, err)
		}
	}
	// Exactly two entries fit from now on.
	d.capacity = d.Stats().Size

	if _, ok := d.Get("a"); !ok {
		t.Fatal("Expected hit for a")
	}
	if err := d.Put("c", chapterJSON); err != nil {
		t.Fatalf("Put c failed: %v", err)
	}

	if _, ok := d.Get("b"); ok {
		t.Error("Expected b to be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := d.Get(k); !ok {
			t.Errorf("Expected %s to be kept", k)
		}
	}
	if got := d.Stats().Evictions; got != 1 {
		t.Errorf("Expected 1 eviction, got %d", got)
	}
}

func TestDiskExpires(t *testing.T) {
	d := newTestDisk(t, 1<<20, time.Hour)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	if err := d.Put("k", chapterJSON); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	now = now.Add(30 * time.Minute)
	if _, ok := d.Get("k"); !ok {
		t.Error("Expected hit before expiry")
	}
	now = now.Add(time.Hour)
	if _, ok := d.Get("k"); ok {
		t.Error("Expected miss after expiry")
	}

	st := d.Stats()
	if st.Expired != 1 || st.Items != 0 {
		t.Errorf("Expected 1 expired and no items, got %+v", st)
	}
}

func TestDiskTooLarge(t *testing.T) {
	d := newTestDisk(t, 1, 0)

	noise := make([]byte, 4096)
	r := rand.New(rand.NewPCG(1, 2))
	for i := range noise {
		noise[i] = byte(r.UintN(256))
	}
	if err := d.Put("k", noise); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Expected ErrItemTooLarge, got %v", err)
	}
}

func TestDiskPersistsIndex(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(dir, 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	if err := d.Put("k", chapterJSON); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewDisk(dir, 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	defer reopened.Close() //nolint:errcheck

	got, ok := reopened.Get("k")
	if !ok || !bytes.Equal(got, chapterJSON) {
		t.Error("Expected entry to survive reopening")
	}
}

func TestDiskCorruptEntry(t *testing.T) {
	d := newTestDisk(t, 1<<20, 0)
	if err := d.Put("k", chapterJSON); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(d.Dir(), fileName("k")), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := d.Get("k"); ok {
		t.Error("Expected miss for corrupt entry")
	}
	if d.Stats().Items != 0 {
		t.Error("Expected corrupt entry to be dropped")
	}
}

func TestDiskDeleteAndClear(t *testing.T) {
	d := newTestDisk(t, 1<<20, 0)
	for _, k := range []string{"a", "b", "c"} {
		if err := d.Put(k, chapterJSON); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	d.Delete("a")
	if _, ok := d.Get("a"); ok {
		t.Error("Expected a to be deleted")
	}
	if err := d.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if st := d.Stats(); st.Items != 0 || st.Size != 0 {
		t.Errorf("Expected empty cache, got %+v", st)
	}
}
