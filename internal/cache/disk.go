package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const indexFile = "cache.index"

// Disk is a persistent cache of byte values keyed by string. Values are
// stored zstd-compressed, one file per key.
type Disk struct {
	dir      string
	capacity int64         // maximum compressed size in bytes
	maxAge   time.Duration // zero keeps entries until evicted
	now      func() time.Time

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu    sync.Mutex
	index map[string]*entry
	stats Stats
}

// NewDisk opens the cache in dir, creating it if needed, and loads the index
// left by a previous Close.
func NewDisk(dir string, capacity int64, maxAge time.Duration) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	d := &Disk{
		dir:      dir,
		capacity: capacity,
		maxAge:   maxAge,
		now:      time.Now,
		encoder:  enc,
		decoder:  dec,
		index:    make(map[string]*entry),
	}
	if err := d.loadIndex(); err != nil {
		// An unreadable index starts an empty cache.
		d.index = make(map[string]*entry)
	}
	d.updateStats()
	return d, nil
}

// Dir returns the cache directory.
func (d *Disk) Dir() string {
	return d.dir
}

// Get returns the value stored under key. Expired and unreadable entries
// are removed and reported as misses.
func (d *Disk) Get(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.index[key]
	if !ok {
		d.stats.Misses++
		return nil, false
	}

	now := d.now()
	if d.maxAge > 0 && now.Sub(e.Stored) > d.maxAge {
		d.removeLocked(key)
		d.stats.Expired++
		d.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(d.dir, e.File))
	if err == nil {
		data, err = d.decoder.DecodeAll(data, nil)
	}
	if err != nil {
		d.removeLocked(key)
		d.stats.Misses++
		return nil, false
	}

	e.LastAccess = now
	d.stats.Hits++
	return data, true
}

// Put stores value under key, evicting least recently used entries until
// it fits.
func (d *Disk) Put(key string, value []byte) error {
	compressed := d.encoder.EncodeAll(value, nil)
	size := int64(len(compressed))

	d.mu.Lock()
	defer d.mu.Unlock()

	if size > d.capacity {
		return ErrItemTooLarge
	}
	if _, ok := d.index[key]; ok {
		d.removeLocked(key)
	}
	for d.stats.Size+size > d.capacity && len(d.index) > 0 {
		d.evictOldestLocked()
	}

	name := fileName(key)
	if err := writeFile(filepath.Join(d.dir, name), compressed); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := d.now()
	d.index[key] = &entry{
		Key:          key,
		File:         name,
		Size:         size,
		OriginalSize: int64(len(value)),
		Stored:       now,
		LastAccess:   now,
	}
	d.updateStats()
	return nil
}

// Delete removes key from the cache.
func (d *Disk) Delete(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(key)
}

// Clear removes every entry.
func (d *Disk) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key := range d.index {
		d.removeLocked(key)
	}
	return d.saveIndex()
}

// Stats returns the cache counters.
func (d *Disk) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Close saves the index and releases the codecs.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.saveIndex()
	d.decoder.Close()
	return errors.Join(err, d.encoder.Close())
}

func (d *Disk) removeLocked(key string) {
	e, ok := d.index[key]
	if !ok {
		return
	}
	_ = os.Remove(filepath.Join(d.dir, e.File))
	delete(d.index, key)
	d.updateStats()
}

func (d *Disk) evictOldestLocked() {
	var oldest *entry
	for _, e := range d.index {
		if oldest == nil || e.LastAccess.Before(oldest.LastAccess) {
			oldest = e
		}
	}
	if oldest != nil {
		d.removeLocked(oldest.Key)
		d.stats.Evictions++
	}
}

func (d *Disk) updateStats() {
	d.stats.Capacity = d.capacity
	d.stats.Items = len(d.index)
	d.stats.Size = 0
	for _, e := range d.index {
		d.stats.Size += e.Size
	}
}

func (d *Disk) loadIndex() error {
	f, err := os.Open(filepath.Join(d.dir, indexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	if err := gob.NewDecoder(f).Decode(&d.index); err != nil {
		return err
	}
	for key, e := range d.index {
		if _, err := os.Stat(filepath.Join(d.dir, e.File)); err != nil {
			delete(d.index, key)
		}
	}
	return nil
}

func (d *Disk) saveIndex() error {
	path := filepath.Join(d.dir, indexFile)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(f).Encode(d.index)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// fileName derives the file of key from its SHA-256 hash.
func fileName(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:16]) + ".zst"
}

// writeFile writes to a temporary file first and renames it into place.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
