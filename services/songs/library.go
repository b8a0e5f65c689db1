package songs

import (
	"fmt"
	"time"

	"songwriter-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// Library is the ordered song collection plus the shared category set.
// It always holds at least one song. Library is not safe for concurrent use;
// the editor session serializes access to it.
type Library struct {
	songs      []Song
	categories []string
	now        func() time.Time
}

// Snapshot is the persisted shape of the library.
type Snapshot struct {
	Songs        []Song
	Categories   []string
	ActiveSongID string
}

// NewLibrary wraps loaded songs and categories, creating one empty song when
// none were loaded.
func NewLibrary(loaded []Song, categories []string) *Library {
	l := &Library{now: time.Now}
	l.Bootstrap(loaded, categories)
	return l
}

// Bootstrap replaces the library content with loaded songs.
func (l *Library) Bootstrap(loaded []Song, categories []string) {
	l.songs = make([]Song, 0, len(loaded))
	seen := make(map[string]bool, len(loaded))
	for _, s := range loaded {
		if s.ID == "" || seen[s.ID] {
			log.Warnf("%s Skipping song with missing or duplicate id %q", logcolors.LogLibrary, s.ID)
			continue
		}
		seen[s.ID] = true
		s = s.Clone()
		s.normalize()
		l.songs = append(l.songs, s)
	}
	l.categories = NormalizeCategories(categories)

	if len(l.songs) == 0 {
		l.songs = append(l.songs, New(DefaultTitle, l.now()))
		log.Infof("%s Library was empty, created %s", logcolors.LogLibrary, logcolors.Song(l.songs[0].ID))
	}
}

// Len returns the number of songs.
func (l *Library) Len() int {
	return len(l.songs)
}

// First returns the first song.
func (l *Library) First() Song {
	return l.songs[0].Clone()
}

func (l *Library) indexOf(id string) int {
	for i := range l.songs {
		if l.songs[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns a copy of the song with id.
func (l *Library) Get(id string) (Song, bool) {
	i := l.indexOf(id)
	if i < 0 {
		return Song{}, false
	}
	return l.songs[i].Clone(), true
}

// All returns copies of every song in library order.
func (l *Library) All() []Song {
	out := make([]Song, len(l.songs))
	for i, s := range l.songs {
		out[i] = s.Clone()
	}
	return out
}

// Create appends a new empty song and returns it.
func (l *Library) Create(title string) (Song, error) {
	title, err := ValidateTitle(title)
	if err != nil {
		return Song{}, err
	}
	s := New(title, l.now())
	l.songs = append(l.songs, s)
	return s.Clone(), nil
}

// Update replaces the stored song that has song.ID.
func (l *Library) Update(song Song) error {
	i := l.indexOf(song.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSongNotFound, song.ID)
	}
	song = song.Clone()
	song.normalize()
	song.UpdatedAt = l.now()
	l.songs[i] = song
	return nil
}

// Delete removes the song with id. Deleting the last song leaves a fresh
// empty song in its place, which is returned as created.
func (l *Library) Delete(id string) (created *Song, err error) {
	i := l.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSongNotFound, id)
	}
	l.songs = append(l.songs[:i:i], l.songs[i+1:]...)
	if len(l.songs) == 0 {
		s := New(DefaultTitle, l.now())
		l.songs = append(l.songs, s)
		clone := s.Clone()
		return &clone, nil
	}
	return nil, nil
}

// Categories returns the shared category set.
func (l *Library) Categories() []string {
	return append([]string{}, l.categories...)
}

// SetCategories replaces the shared category set.
func (l *Library) SetCategories(categories []string) {
	l.categories = NormalizeCategories(categories)
}

// Snapshot captures the library for persistence.
func (l *Library) Snapshot(activeSongID string) Snapshot {
	return Snapshot{
		Songs:        l.All(),
		Categories:   l.Categories(),
		ActiveSongID: activeSongID,
	}
}
