package host

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/ficreader/narrator/internal/voice"
)

// reloadInterval spaces reloads triggered by bursts of file events.
const reloadInterval = 100 * time.Millisecond

// catalogFile is the on-disk shape of a voice catalog.
type catalogFile struct {
	Voices []voice.Descriptor `yaml:"voices"`
}

// LoadCatalogFile reads a YAML voice catalog. A missing file is an empty
// catalog.
func LoadCatalogFile(path string) ([]voice.Descriptor, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read voice catalog: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unable to parse voice catalog %s: %w", path, err)
	}
	return f.Voices, nil
}

// Merge combines the synthesizer's voices with catalog entries. A catalog
// entry replaces the listed voice of the same name.
func Merge(listed, catalog []voice.Descriptor) []voice.Descriptor {
	idx := make(map[string]int, len(listed))
	out := make([]voice.Descriptor, 0, len(listed)+len(catalog))
	for _, v := range listed {
		idx[v.Name] = len(out)
		out = append(out, v)
	}
	for _, v := range catalog {
		if i, ok := idx[v.Name]; ok {
			out[i] = v
			continue
		}
		idx[v.Name] = len(out)
		out = append(out, v)
	}
	return out
}

// Catalog is a voice.Source made of the synthesizer's voices plus a YAML
// catalog file. Edits to the file are picked up while it is being watched.
type Catalog struct {
	*voice.List

	path    string
	listed  []voice.Descriptor
	logger  *log.Logger
	limiter *rate.Limiter

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	stop    context.CancelFunc
	done    chan struct{}
}

// NewCatalog loads the catalog at path on top of listed. An empty path
// disables the file.
func NewCatalog(listed []voice.Descriptor, path string) (*Catalog, error) {
	c := &Catalog{
		List:    voice.NewList(),
		listed:  listed,
		logger:  log.Default().WithPrefix("catalog"),
		limiter: rate.NewLimiter(rate.Every(reloadInterval), 1),
	}
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("unable to get absolute path: %w", err)
		}
		c.path = abs
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path returns the catalog file path.
func (c *Catalog) Path() string {
	return c.path
}

// Reload rereads the catalog file and notifies subscribers.
func (c *Catalog) Reload() error {
	var extra []voice.Descriptor
	if c.path != "" {
		var err error
		extra, err = LoadCatalogFile(c.path)
		if err != nil {
			return err
		}
	}
	voices := Merge(c.listed, extra)
	c.List.Set(voices)
	c.logger.Debug("Voices loaded", "listed", len(c.listed), "catalog", len(extra), "total", len(voices))
	return nil
}

// Watch starts reloading the catalog whenever its file changes. The
// directory is watched so that editors replacing the file are noticed.
func (c *Catalog) Watch() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(c.path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	c.logger.Debug("fsnotify watching dir", "dir", dir)

	ctx, stop := context.WithCancel(context.Background())
	c.watcher = w
	c.stop = stop
	c.done = make(chan struct{})
	go c.watch(ctx, w, c.done)
	return nil
}

func (c *Catalog) watch(ctx context.Context, w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != c.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			c.logger.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
			if err := c.Reload(); err != nil {
				c.logger.Warn("Unable to reload voice catalog", "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			c.logger.Debug("fsnotify error", "error", err)
		}
	}
}

// Close stops watching the catalog file.
func (c *Catalog) Close() error {
	c.mu.Lock()
	w, stop, done := c.watcher, c.stop, c.done
	c.watcher, c.stop, c.done = nil, nil, nil
	c.mu.Unlock()

	if w == nil {
		return nil
	}
	stop()
	err := w.Close()
	<-done
	return err
}
