// Package chapter loads chapters of serial fiction from disk or the web.
package chapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"

	"github.com/ficreader/narrator/utils"
)

var (
	// ErrUnsupportedFormat is returned for sources that are neither JSON nor
	// markdown.
	ErrUnsupportedFormat = errors.New("unsupported chapter format")
	// ErrEmptyChapter is returned for chapters with neither title nor body.
	ErrEmptyChapter = errors.New("chapter has no title and no content")
)

// maxDownload limits the size of a chapter fetched over HTTP.
const maxDownload = 32 << 20

// Chapter is one chapter as stored by the reader site.
type Chapter struct {
	ID        string `json:"id10"`
	Timestamp int64  `json:"timestamp"`
	Title     string `json:"title"`
	HTML      string `json:"html"`
}

// Validate reports whether the chapter has anything to read.
func (c Chapter) Validate() error {
	if strings.TrimSpace(c.Title) == "" && strings.TrimSpace(c.HTML) == "" {
		return ErrEmptyChapter
	}
	return nil
}

// Cache keeps downloaded chapter documents by URL.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// Loader loads chapters. Downloads go through Cache when it is set.
type Loader struct {
	Cache Cache
}

// Load reads a chapter from a file path or an http(s) URL without caching.
func Load(ctx context.Context, src string) (Chapter, error) {
	return Loader{}.Load(ctx, src)
}

// Load reads a chapter from a file path or an http(s) URL. The format is
// chosen by extension: .json, .json.zst, .zst, or a markdown extension.
func (l Loader) Load(ctx context.Context, src string) (Chapter, error) {
	var (
		data []byte
		name string
		err  error
	)

	if u, perr := url.ParseRequestURI(src); perr == nil && strings.Contains(src, "://") {
		if u.Scheme != "http" && u.Scheme != "https" {
			return Chapter{}, fmt.Errorf("%s is not a supported protocol", u.Scheme)
		}
		data, err = l.download(ctx, u.String())
		name = path.Base(u.Path)
	} else {
		name = utils.ExpandPath(src)
		data, err = os.ReadFile(name)
		if err != nil {
			err = fmt.Errorf("unable to read chapter: %w", err)
		}
	}
	if err != nil {
		return Chapter{}, err
	}

	ch, err := Decode(name, data)
	if err != nil {
		return Chapter{}, err
	}
	return ch, ch.Validate()
}

// Decode parses data according to the extension of name.
func Decode(name string, data []byte) (Chapter, error) {
	lower := strings.ToLower(name)

	if strings.HasSuffix(lower, ".zst") {
		raw, err := decompress(data)
		if err != nil {
			return Chapter{}, err
		}
		inner := strings.TrimSuffix(name, filepath.Ext(name))
		if filepath.Ext(inner) == "" {
			return DecodeJSON(raw)
		}
		return Decode(inner, raw)
	}

	switch {
	case strings.HasSuffix(lower, ".json"):
		return DecodeJSON(data)
	case utils.IsMarkdownFile(lower):
		return FromMarkdown(utils.Stem(name), data)
	default:
		return Chapter{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(name))
	}
}

// DecodeJSON parses a chapter document.
func DecodeJSON(data []byte) (Chapter, error) {
	var ch Chapter
	if err := json.Unmarshal(data, &ch); err != nil {
		return Chapter{}, fmt.Errorf("unable to decode chapter: %w", err)
	}
	return ch, nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress chapter: %w", err)
	}
	return raw, nil
}

func (l Loader) download(ctx context.Context, rawURL string) ([]byte, error) {
	if l.Cache != nil {
		if data, ok := l.Cache.Get(rawURL); ok {
			log.Debug("chapter cache hit", "url", rawURL)
			return data, nil
		}
	}
	data, err := fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if l.Cache != nil {
		if err := l.Cache.Put(rawURL, data); err != nil {
			log.Debug("unable to cache chapter", "url", rawURL, "error", err)
		}
	}
	return data, nil
}

func fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to get url: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload))
	if err != nil {
		return nil, fmt.Errorf("unable to read response: %w", err)
	}
	return data, nil
}
