package songs

import (
	"fmt"

	"songwriter-go/logcolors"
	"songwriter-go/storage"

	log "github.com/sirupsen/logrus"
)

// KV is the part of the local store the repository uses.
type KV interface {
	GetJSON(key string, v interface{}) (bool, error)
	PutAllJSON(values map[string]interface{}) error
}

// Repository loads and saves the library under the storage keys.
type Repository struct {
	kv KV
}

func NewRepository(kv KV) *Repository {
	return &Repository{kv: kv}
}

// Load reads songs, categories and the active song id. Missing keys yield
// empty values.
func (r *Repository) Load() (Snapshot, error) {
	var snap Snapshot
	if _, err := r.kv.GetJSON(storage.KeySongs, &snap.Songs); err != nil {
		return Snapshot{}, fmt.Errorf("failed to load songs: %w", err)
	}
	if _, err := r.kv.GetJSON(storage.KeyCategories, &snap.Categories); err != nil {
		return Snapshot{}, fmt.Errorf("failed to load categories: %w", err)
	}
	if _, err := r.kv.GetJSON(storage.KeyActiveSong, &snap.ActiveSongID); err != nil {
		return Snapshot{}, fmt.Errorf("failed to load active song: %w", err)
	}
	log.Debugf("%s Loaded %d songs, %d categories", logcolors.LogLibrary, len(snap.Songs), len(snap.Categories))
	return snap, nil
}

// Save writes the whole snapshot in one transaction.
func (r *Repository) Save(snap Snapshot) error {
	songs := snap.Songs
	if songs == nil {
		songs = []Song{}
	}
	categories := snap.Categories
	if categories == nil {
		categories = []string{}
	}
	return r.kv.PutAllJSON(map[string]interface{}{
		storage.KeySongs:      songs,
		storage.KeyCategories: categories,
		storage.KeyActiveSong: snap.ActiveSongID,
	})
}
