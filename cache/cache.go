// Package cache keeps rendered public pages on disk, one file per slug.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
)

type Store struct {
	dir    string
	maxAge time.Duration
}

func NewStore(dir string, maxAge time.Duration) *Store {
	return &Store{dir: dir, maxAge: maxAge}
}

// Path returns the cache file for slug: the slug plus a 16 character xxhash
// so that similar slugs never collide on case-insensitive filesystems.
func (s *Store) Path(slug string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%016x.html", safeName(slug), xxhash.Sum64String(slug)))
}

func safeName(slug string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, strings.ToLower(slug))
}

func (s *Store) Write(slug string, html []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.Path(slug), html, 0644)
}

// Read returns the cached page if it exists and is younger than maxAge.
func (s *Store) Read(slug string) ([]byte, bool) {
	path := s.Path(slug)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > s.maxAge {
		return nil, false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return content, true
}

// Invalidate drops the cached copies of the given slugs. Empty slugs are
// skipped.
func (s *Store) Invalidate(slugs ...string) {
	for _, slug := range slugs {
		if slug == "" {
			continue
		}
		if err := os.Remove(s.Path(slug)); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("slug", slug).Msg("failed to clear cached page")
			continue
		}
		log.Debug().Str("slug", slug).Msg("cached page cleared")
	}
}

func (s *Store) Clear() error {
	return os.RemoveAll(s.dir)
}

// Prune removes cache files older than maxAge and returns how many went.
func (s *Store) Prune() (int, error) {
	removed := 0
	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		if time.Since(info.ModTime()) > s.maxAge {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}
