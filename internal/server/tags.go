package server

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// Tags is the metadata served by GET_TAG.
type Tags struct {
	Title    string
	Artist   string
	Album    string
	Genre    string
	Year     int
	TotalSec int
}

// ReadTags reads file metadata. Unreadable or untagged files get the base
// name as title and nothing else.
func ReadTags(path string) Tags {
	fallback := Tags{Title: filepath.Base(path)}

	f, err := os.Open(path)
	if err != nil {
		return fallback
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return fallback
	}

	t := Tags{
		Title:    m.Title(),
		Artist:   m.Artist(),
		Album:    m.Album(),
		Genre:    m.Genre(),
		Year:     m.Year(),
		TotalSec: lengthFromRaw(m.Raw()),
	}
	if t.Title == "" {
		t.Title = fallback.Title
	}
	return t
}

// lengthFromRaw reads the ID3v2 TLEN frame (milliseconds) when present.
func lengthFromRaw(raw map[string]any) int {
	v, ok := raw["TLEN"].(string)
	if !ok {
		return 0
	}
	ms, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || ms <= 0 {
		return 0
	}
	return ms / 1000
}

// Lookup returns the named tag as text; unknown names are empty.
func (t Tags) Lookup(name string) string {
	switch strings.ToLower(name) {
	case "title":
		return t.Title
	case "artist":
		return t.Artist
	case "album":
		return t.Album
	case "genre":
		return t.Genre
	case "year":
		if t.Year == 0 {
			return ""
		}
		return strconv.Itoa(t.Year)
	default:
		return ""
	}
}
