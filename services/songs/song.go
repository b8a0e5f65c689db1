package songs

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"songwriter-go/utils"

	"github.com/google/uuid"
)

// MaxTitleLength is the title limit in characters.
const MaxTitleLength = 100

// DefaultTitle names songs created without a title.
const DefaultTitle = "Untitled"

var (
	ErrTitleTooLong = errors.New("title is longer than 100 characters")
	ErrSongNotFound = errors.New("song not found")
)

// Song is one song. Lyrics holds the flat serialized text and is the only
// persisted form of the song's sections.
type Song struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Lyrics     string    `json:"lyrics"`
	Style      Style     `json:"style"`
	Categories []string  `json:"categories"`
	Versions   []Version `json:"versions"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

var newID = uuid.NewString

// New creates an empty song.
func New(title string, now time.Time) Song {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	return Song{
		ID:         newID(),
		Title:      title,
		Style:      Style{},
		Categories: []string{},
		Versions:   []Version{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Clone returns a deep copy that shares no slices or maps with s.
func (s Song) Clone() Song {
	out := s
	out.Style = s.Style.Clone()
	out.Categories = append([]string{}, s.Categories...)
	out.Versions = make([]Version, len(s.Versions))
	for i, v := range s.Versions {
		out.Versions[i] = v.clone()
	}
	return out
}

// Same reports whether s and o carry the same content. UpdatedAt is ignored.
func (s Song) Same(o Song) bool {
	a, b := s.Clone(), o.Clone()
	a.normalize()
	b.normalize()
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return reflect.DeepEqual(a, b)
}

// ValidateTitle trims title and checks its length.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if n := utils.RuneLen(title); n > MaxTitleLength {
		return "", fmt.Errorf("%w: %d characters", ErrTitleTooLong, n)
	}
	if title == "" {
		title = DefaultTitle
	}
	return title, nil
}

// NormalizeCategories trims, drops empties and dedupes category names.
func NormalizeCategories(categories []string) []string {
	return utils.DedupeTrimmed(categories)
}

// normalize fills nil collections so JSON always carries lists and objects.
func (s *Song) normalize() {
	if s.Style == nil {
		s.Style = Style{}
	}
	if s.Categories == nil {
		s.Categories = []string{}
	}
	if s.Versions == nil {
		s.Versions = []Version{}
	}
}
