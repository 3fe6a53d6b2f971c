// Package cache keeps downloaded chapters on disk, compressed with zstd and
// evicted least recently used first.
package cache
