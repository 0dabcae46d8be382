// Package library lists audio files once at startup.
package library

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/juju/errors"
	"golang.org/x/text/unicode/norm"
)

type Config struct {
	Dir        string   `hcl:"dir"`
	Extensions []string `hcl:"extensions"` // empty accepts any file
}

type Track struct {
	Path string
	Name string // NFC normalized base name for display
}

// Library is immutable after Scan.
type Library struct {
	dir    string
	tracks []Track
}

// Scan reads regular files in c.Dir, sorted by name. Subdirectories are ignored.
// Symlinks are followed, broken ones skipped.
func Scan(c Config) (*Library, error) {
	if c.Dir == "" {
		return nil, errors.NotValidf("library.dir empty")
	}
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, errors.Annotatef(err, "library dir=%s", c.Dir)
	}
	exts := make(map[string]struct{}, len(c.Extensions))
	for _, e := range c.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}

	self := &Library{dir: c.Dir, tracks: make([]Track, 0, len(entries))}
	for _, entry := range entries {
		path := filepath.Join(c.Dir, entry.Name())
		if !isRegular(entry, path) {
			continue
		}
		if len(exts) != 0 {
			if _, ok := exts[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
				continue
			}
		}
		self.tracks = append(self.tracks, Track{
			Path: path,
			Name: norm.NFC.String(entry.Name()),
		})
	}
	sort.SliceStable(self.tracks, func(i, j int) bool { return self.tracks[i].Name < self.tracks[j].Name })
	return self, nil
}

func isRegular(entry os.DirEntry, path string) bool {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// New is for tests and tools that already have track list.
func New(tracks []Track) *Library {
	return &Library{tracks: append([]Track(nil), tracks...)}
}

func (self *Library) Dir() string { return self.dir }
func (self *Library) Len() int    { return len(self.tracks) }

func (self *Library) Get(i int) (Track, bool) {
	if i < 0 || i >= len(self.tracks) {
		return Track{}, false
	}
	return self.tracks[i], true
}

func (self *Library) Tracks() []Track { return append([]Track(nil), self.tracks...) }
