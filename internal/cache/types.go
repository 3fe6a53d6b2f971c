package cache

import (
	"errors"
	"time"
)

// ErrItemTooLarge is returned when an item exceeds the cache capacity.
var ErrItemTooLarge = errors.New("item too large for cache")

// Stats holds cache counters.
type Stats struct {
	Capacity  int64 // Maximum size on disk in bytes
	Size      int64 // Current size on disk in bytes
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64
	Expired   int64
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// entry is one cached item, persisted in the index.
type entry struct {
	Key          string
	File         string // base name inside the cache directory
	Size         int64  // compressed size on disk
	OriginalSize int64
	Stored       time.Time
	LastAccess   time.Time
}
