package editor

import "songwriter-go/services/songs"

// DefaultHistoryLimit bounds the undo window.
const DefaultHistoryLimit = 20

// History is the bounded list of committed song snapshots with a cursor.
// Entries are appended at the end; undo only moves the cursor, so nothing
// is ever truncated in front of it.
type History struct {
	entries []songs.Song
	index   int
	limit   int
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Reset makes song the only entry.
func (h *History) Reset(song songs.Song) {
	h.entries = []songs.Song{song.Clone()}
	h.index = 0
}

// Push appends a snapshot, evicts the oldest entries past the limit and
// moves the cursor to the new entry.
func (h *History) Push(song songs.Song) {
	h.entries = append(h.entries, song.Clone())
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
	}
	h.index = len(h.entries) - 1
}

// Undo moves the cursor back two entries when it can, one when only one is
// available, and reports false at the first entry.
//
// The two-entry step compensates for mutations that record more than one
// entry per user action. It is kept as observed behaviour rather than a
// model for new features.
func (h *History) Undo() (songs.Song, bool) {
	switch {
	case h.index >= 2:
		h.index -= 2
	case h.index == 1:
		h.index = 0
	default:
		return songs.Song{}, false
	}
	return h.entries[h.index].Clone(), true
}

// Current returns the entry under the cursor.
func (h *History) Current() (songs.Song, bool) {
	if len(h.entries) == 0 {
		return songs.Song{}, false
	}
	return h.entries[h.index].Clone(), true
}

func (h *History) Len() int   { return len(h.entries) }
func (h *History) Index() int { return h.index }
func (h *History) Limit() int { return h.limit }
