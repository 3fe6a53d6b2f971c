package main

import (
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"

	"github.com/ficreader/narrator/internal/cache"
	"github.com/ficreader/narrator/internal/chapter"
	"github.com/ficreader/narrator/internal/config"
	"github.com/ficreader/narrator/utils"
)

// newChapterLoader returns a loader that keeps downloads in the chapter
// cache. The returned func closes the cache. Without a usable cache
// directory chapters are downloaded every time.
func newChapterLoader(cfg config.Config) (chapter.Loader, func()) {
	noop := func() {}
	if cfg.Cache.MaxSize == 0 {
		return chapter.Loader{}, noop
	}

	dir := cfg.Cache.Dir
	if dir == "" {
		base, err := gap.NewScope(gap.User, "narrator").CacheDir()
		if err != nil {
			log.Warn("Chapter cache disabled", "error", err)
			return chapter.Loader{}, noop
		}
		dir = filepath.Join(base, "chapters")
	} else {
		dir = utils.ExpandPath(dir)
	}

	c, err := cache.NewDisk(dir, int64(cfg.Cache.MaxSize)<<20, cfg.Cache.MaxAge)
	if err != nil {
		log.Warn("Chapter cache disabled", "error", err)
		return chapter.Loader{}, noop
	}
	return chapter.Loader{Cache: c}, func() {
		st := c.Stats()
		log.Debug("chapter cache", "dir", dir, "items", st.Items, "hits", st.Hits, "misses", st.Misses)
		if err := c.Close(); err != nil {
			log.Warn("Unable to save chapter cache", "error", err)
		}
	}
}
