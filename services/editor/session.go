package editor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"songwriter-go/circuitbreaker"
	"songwriter-go/logcolors"
	"songwriter-go/services/lyrics"
	"songwriter-go/services/notifier"
	"songwriter-go/services/songs"
	"songwriter-go/stats"
	"songwriter-go/utils"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrPersistence wraps storage errors surfaced by the session.
	ErrPersistence = errors.New("persistence failed")
	ErrClosed      = errors.New("editing session is closed")
)

// Persister writes the library to local storage.
type Persister interface {
	Save(snap songs.Snapshot) error
}

// State is the commit state of the active song.
type State int

const (
	StateIdle State = iota
	StatePendingCommit
)

func (s State) String() string {
	if s == StatePendingCommit {
		return "pending_commit"
	}
	return "idle"
}

// Options configures a Session. Zero values get defaults.
type Options struct {
	Debounce     time.Duration
	HistoryLimit int
	Bus          *notifier.EventBus
	Guard        *circuitbreaker.CircuitBreaker
	Stats        *stats.Stats
	Now          func() time.Time
}

// Session owns the editing state: the library, the active song, its working
// section sequence and the undo history. Every method holds one mutex, and
// the debounced commit takes the same mutex, so history and storage always
// see the sequence as of the end of a whole operation.
type Session struct {
	mu sync.Mutex

	library   *songs.Library
	activeID  string
	sections  lyrics.Sequence
	committed string
	history   *History

	debouncer *Debouncer
	pending   bool
	editGen   uint64
	closed    bool

	persister  Persister
	persistErr error
	bus        *notifier.EventBus
	guard      *circuitbreaker.CircuitBreaker
	stats      *stats.Stats
	now        func() time.Time
}

// NewSession opens activeID, or the first song when activeID is unknown.
func NewSession(library *songs.Library, activeID string, persister Persister, opts Options) *Session {
	if opts.Bus == nil {
		opts.Bus = notifier.NewEventBus(notifier.DefaultNoticeTTL)
	}
	if opts.Guard == nil {
		opts.Guard = circuitbreaker.New(circuitbreaker.Config{Bus: opts.Bus})
	}
	if opts.Stats == nil {
		opts.Stats = stats.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		library:   library,
		history:   NewHistory(opts.HistoryLimit),
		debouncer: NewDebouncer(opts.Debounce),
		persister: persister,
		bus:       opts.Bus,
		guard:     opts.Guard,
		stats:     opts.Stats,
		now:       opts.Now,
	}

	song, ok := library.Get(activeID)
	if !ok {
		song = library.First()
	}
	s.loadLocked(song)
	log.Infof("%s Session opened on %s (%d songs)", logcolors.LogEditor, logcolors.Song(song.ID), library.Len())
	return s
}

// View is a read-only snapshot of the session.
type View struct {
	Song          songs.Song      `json:"song"`
	Sections      lyrics.Sequence `json:"sections"`
	Labels        []string        `json:"labels"`
	State         string          `json:"state"`
	HistoryIndex  int             `json:"historyIndex"`
	HistoryLength int             `json:"historyLength"`
	PersistError  string          `json:"persistError,omitempty"`
}

// View returns the current session snapshot.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	song, _ := s.library.Get(s.activeID)
	v := View{
		Song:          song,
		Sections:      append(lyrics.Sequence{}, s.sections...),
		Labels:        s.sections.Labels(),
		State:         s.stateLocked().String(),
		HistoryIndex:  s.history.Index(),
		HistoryLength: s.history.Len(),
	}
	if s.persistErr != nil {
		v.PersistError = s.persistErr.Error()
	}
	return v
}

// State reports whether a debounced commit is pending.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	if s.pending {
		return StatePendingCommit
	}
	return StateIdle
}

// ActiveSongID returns the id of the song being edited.
func (s *Session) ActiveSongID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Sections returns the working section sequence, including edits that are
// not committed yet.
func (s *Session) Sections() lyrics.Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(lyrics.Sequence{}, s.sections...)
}

// LastPersistError returns the error from the latest storage write, or nil.
func (s *Session) LastPersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

// Songs returns every song in library order.
func (s *Session) Songs() []songs.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.library.All()
}

// Song returns one song by id.
func (s *Session) Song(id string) (songs.Song, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.library.Get(id)
}

// Categories returns the library category set.
func (s *Session) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.library.Categories()
}

// Section operations. Each applies to the working sequence and commits
// immediately, replacing any pending debounced commit.

func (s *Session) AddSection(kind lyrics.Kind, content string, at int) error {
	return s.applyStructural("add", func(seq lyrics.Sequence) (lyrics.Sequence, error) {
		return lyrics.Add(seq, kind, content, at)
	})
}

func (s *Session) DuplicateSection(index int) error {
	return s.applyStructural("duplicate", func(seq lyrics.Sequence) (lyrics.Sequence, error) {
		return lyrics.Duplicate(seq, index)
	})
}

func (s *Session) ChangeKind(index int, kind lyrics.Kind) error {
	return s.applyStructural("change kind", func(seq lyrics.Sequence) (lyrics.Sequence, error) {
		return lyrics.ChangeKind(seq, index, kind)
	})
}

func (s *Session) ChangeVerseNumber(index, number int) error {
	return s.applyStructural("change verse number", func(seq lyrics.Sequence) (lyrics.Sequence, error) {
		return lyrics.ChangeVerseNumber(seq, index, number)
	})
}

func (s *Session) RemoveSection(index int) error {
	return s.applyStructural("remove", func(seq lyrics.Sequence) (lyrics.Sequence, error) {
		return lyrics.Remove(seq, index)
	})
}

func (s *Session) MoveSection(index int, dir lyrics.Direction) error {
	return s.applyStructural("move", func(seq lyrics.Sequence) (lyrics.Sequence, error) {
		return lyrics.Move(seq, index, dir)
	})
}

func (s *Session) ReorderSections(from, to int) error {
	return s.applyStructural("reorder", func(seq lyrics.Sequence) (lyrics.Sequence, error) {
		return lyrics.Reorder(seq, from, to)
	})
}

// AddModifier adds a tag. Going over the per-section limit publishes a
// transient warning and leaves the sequence unchanged.
func (s *Session) AddModifier(index int, tag string, pos lyrics.Position) error {
	err := s.applyStructural("add modifier", func(seq lyrics.Sequence) (lyrics.Sequence, error) {
		return lyrics.AddModifier(seq, index, tag, pos)
	})
	if errors.Is(err, lyrics.ErrModifierLimitExceeded) {
		s.stats.ModifierLimitHits.Add(1)
		s.bus.PublishModifierLimitExceeded(s.ActiveSongID(), index, lyrics.MaxModifiers)
	}
	return err
}

func (s *Session) RemoveModifier(index int, tag string, pos lyrics.Position) error {
	return s.applyStructural("remove modifier", func(seq lyrics.Sequence) (lyrics.Sequence, error) {
		return lyrics.RemoveModifier(seq, index, tag, pos)
	})
}

func (s *Session) applyStructural(name string, op func(lyrics.Sequence) (lyrics.Sequence, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	next, err := op(s.sections)
	if err != nil {
		s.stats.RejectedEdits.Add(1)
		log.Debugf("%s Rejected %s on %s: %v", logcolors.LogEditor, name, logcolors.Song(s.activeID), err)
		return err
	}
	s.cancelPendingLocked()
	s.sections = next
	s.commitLocked()
	return nil
}

// SetContent edits one section's text and arms the debounced commit.
func (s *Session) SetContent(index int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	next, err := lyrics.SetContent(s.sections, index, utils.NormalizeNewlines(text))
	if err != nil {
		s.stats.RejectedEdits.Add(1)
		return err
	}
	s.sections = next
	s.pending = true
	s.editGen++
	gen := s.editGen
	s.debouncer.Schedule(func() { s.debouncedCommit(gen) })
	return nil
}

func (s *Session) debouncedCommit(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Superseded or cancelled.
	if s.closed || !s.pending || gen != s.editGen {
		return
	}
	s.commitLocked()
}

func (s *Session) cancelPendingLocked() {
	s.debouncer.Cancel()
	s.pending = false
}

// Commit flushes a pending edit now. It reports whether the lyrics changed.
func (s *Session) Commit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelPendingLocked()
	return s.commitLocked()
}

// commitLocked serializes the working sequence and, when the text differs
// from the last commit, stores it on the song, records a history entry and
// persists. Persisting is always the last step.
func (s *Session) commitLocked() bool {
	s.pending = false
	start := time.Now()

	text := lyrics.Serialize(s.sections)
	if text == s.committed {
		s.stats.SkippedCommits.Add(1)
		return false
	}

	song, ok := s.library.Get(s.activeID)
	if !ok {
		log.Errorf("%s Active song %s vanished from the library", logcolors.LogEditor, logcolors.Song(s.activeID))
		return false
	}
	song.Lyrics = text
	if err := s.library.Update(song); err != nil {
		log.Errorf("%s Failed to store lyrics: %v", logcolors.LogEditor, err)
		return false
	}
	s.committed = text
	s.pushHistoryLocked()
	s.persistLocked()

	s.stats.RecordCommit(time.Since(start))
	s.bus.PublishSongCommitted(s.activeID, text)
	log.Debugf("%s Committed %s (%d sections, history %d/%d)", logcolors.LogSync,
		logcolors.Song(s.activeID), len(s.sections), s.history.Index()+1, s.history.Len())
	return true
}

func (s *Session) pushHistoryLocked() {
	song, _ := s.library.Get(s.activeID)
	s.history.Push(song)
}

// persistLocked writes the whole library through the storage guard. Failures
// leave memory untouched and surface as a notice.
func (s *Session) persistLocked() {
	snap := s.library.Snapshot(s.activeID)
	err := s.guard.Execute(func() error {
		return s.persister.Save(snap)
	})
	s.stats.RecordPersist(err)
	if err != nil {
		s.persistErr = fmt.Errorf("%w: %w", ErrPersistence, err)
		log.Errorf("%s Failed to persist %s: %v", logcolors.LogStorage, logcolors.Song(s.activeID), err)
		s.bus.PublishPersistenceFailed(s.activeID, s.persistErr)
		return
	}
	s.persistErr = nil
}

// loadLocked makes song active: parse its lyrics and reset history to it.
func (s *Session) loadLocked(song songs.Song) {
	s.activeID = song.ID
	s.reparseLocked(song.Lyrics)
	s.history.Reset(song)
	s.bus.PublishSongLoaded(song.ID, song.Lyrics)
}

func (s *Session) reparseLocked(text string) {
	seq, report := lyrics.ParseWithReport(text)
	s.stats.RecordParse(report.Blocks, report.Dropped)
	if report.Dropped > 0 {
		log.Warnf("%s Dropped %d unreadable blocks from %s", logcolors.LogParser, report.Dropped, logcolors.Song(s.activeID))
	}
	s.sections = seq
	s.committed = text
}

// SwitchSong commits any pending edit of the current song and loads id.
func (s *Session) SwitchSong(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	song, ok := s.library.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", songs.ErrSongNotFound, id)
	}
	if s.pending {
		s.cancelPendingLocked()
		s.commitLocked()
	}
	if id == s.activeID {
		return nil
	}

	s.loadLocked(song)
	s.stats.SongSwitches.Add(1)
	s.persistLocked()
	log.Infof("%s Switched to %s", logcolors.LogEditor, logcolors.Song(id))
	return nil
}

// Undo restores an earlier history entry. Uncommitted edits are discarded.
// It reports false when there is nothing to undo.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	hadPending := s.pending
	s.cancelPendingLocked()
	song, ok := s.history.Undo()
	if !ok {
		if hadPending {
			s.reparseLocked(s.committed)
		}
		return false
	}
	if err := s.library.Update(song); err != nil {
		log.Errorf("%s Failed to restore history entry: %v", logcolors.LogHistory, err)
		return false
	}
	changed := song.Lyrics != s.committed
	s.reparseLocked(song.Lyrics)
	s.persistLocked()
	if changed {
		s.bus.PublishSongCommitted(s.activeID, song.Lyrics)
	}
	s.stats.Undos.Add(1)
	log.Debugf("%s Undo on %s, cursor at %d of %d", logcolors.LogHistory,
		logcolors.Song(s.activeID), s.history.Index(), s.history.Len())
	return true
}

// updateSongLocked applies a whole-song change to the active song, records
// history and persists. Changed lyrics are re-parsed. A change that leaves
// the song as it was records nothing.
func (s *Session) updateSongLocked(mutate func(songs.Song) (songs.Song, error)) error {
	if s.closed {
		return ErrClosed
	}
	if s.pending {
		s.cancelPendingLocked()
		s.commitLocked()
	}

	current, ok := s.library.Get(s.activeID)
	if !ok {
		return fmt.Errorf("%w: %s", songs.ErrSongNotFound, s.activeID)
	}
	next, err := mutate(current.Clone())
	if err != nil {
		s.stats.RejectedEdits.Add(1)
		return err
	}
	next.ID = current.ID
	if next.Same(current) {
		s.stats.SkippedCommits.Add(1)
		return nil
	}
	if err := s.library.Update(next); err != nil {
		return err
	}
	if next.Lyrics != current.Lyrics {
		s.reparseLocked(next.Lyrics)
		s.bus.PublishSongCommitted(s.activeID, next.Lyrics)
	}
	s.pushHistoryLocked()
	s.persistLocked()
	return nil
}

// SetTitle renames the active song.
func (s *Session) SetTitle(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateSongLocked(func(song songs.Song) (songs.Song, error) {
		t, err := songs.ValidateTitle(title)
		if err != nil {
			return song, err
		}
		song.Title = t
		return song, nil
	})
}

// SetStyle replaces the active song's style. A style over the length limit
// is rejected whole and raises a blocking notice.
func (s *Session) SetStyle(style songs.Style) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateSongLocked(func(song songs.Song) (songs.Song, error) {
		normalized, err := songs.ValidateStyle(style)
		if err != nil {
			var lengthErr *songs.StyleLengthError
			if errors.As(err, &lengthErr) {
				s.stats.StyleLimitHits.Add(1)
				s.bus.PublishStyleLengthExceeded(song.ID, lengthErr.Length, songs.MaxStyleLength)
			}
			return song, err
		}
		song.Style = normalized
		return song, nil
	})
}

// SetSongCategories assigns categories to the active song.
func (s *Session) SetSongCategories(categories []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateSongLocked(func(song songs.Song) (songs.Song, error) {
		song.Categories = songs.NormalizeCategories(categories)
		return song, nil
	})
}

// SaveVersion snapshots the active song into its version list.
func (s *Session) SaveVersion() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.updateSongLocked(func(song songs.Song) (songs.Song, error) {
		return songs.SaveVersion(song, s.now()), nil
	})
	if err == nil {
		s.stats.VersionsSaved.Add(1)
		log.Infof("%s Saved version of %s", logcolors.LogVersions, logcolors.Song(s.activeID))
	}
	return err
}

// RevertToVersion restores title, lyrics and style from version index.
// An unknown index is a no-op and reports false.
func (s *Session) RevertToVersion(index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.library.Get(s.activeID)
	if _, ok := songs.RevertToVersion(current, index); !ok {
		return false, nil
	}
	err := s.updateSongLocked(func(song songs.Song) (songs.Song, error) {
		reverted, _ := songs.RevertToVersion(song, index)
		return reverted, nil
	})
	return err == nil, err
}

// RemoveVersion deletes version index. An unknown index is a no-op and
// reports false.
func (s *Session) RemoveVersion(index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.library.Get(s.activeID)
	if _, ok := songs.RemoveVersion(current, index); !ok {
		return false, nil
	}
	err := s.updateSongLocked(func(song songs.Song) (songs.Song, error) {
		out, _ := songs.RemoveVersion(song, index)
		return out, nil
	})
	return err == nil, err
}

// ReloadLyrics applies lyrics that changed outside the editor. For the active
// song this is a song update; for any other song only its stored lyrics are
// replaced. Identical text is ignored.
func (s *Session) ReloadLyrics(songID, text, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	text = utils.NormalizeNewlines(text)
	song, ok := s.library.Get(songID)
	if !ok {
		return fmt.Errorf("%w: %s", songs.ErrSongNotFound, songID)
	}
	if song.Lyrics == text {
		return nil
	}

	if songID == s.activeID {
		if err := s.updateSongLocked(func(song songs.Song) (songs.Song, error) {
			song.Lyrics = text
			return song, nil
		}); err != nil {
			return err
		}
	} else {
		song.Lyrics = text
		if err := s.library.Update(song); err != nil {
			return err
		}
		s.persistLocked()
	}

	s.stats.ExternalReloads.Add(1)
	s.bus.PublishLyricsReloaded(songID, source)
	log.Infof("%s Reloaded lyrics of %s from %s", logcolors.LogEditor, logcolors.Song(songID), source)
	return nil
}

// CreateSong adds a song to the library and switches to it.
func (s *Session) CreateSong(title string) (songs.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending {
		s.cancelPendingLocked()
		s.commitLocked()
	}
	song, err := s.library.Create(title)
	if err != nil {
		return songs.Song{}, err
	}
	s.loadLocked(song)
	s.persistLocked()
	log.Infof("%s Created %s", logcolors.LogLibrary, logcolors.Song(song.ID))
	return song, nil
}

// DeleteSong removes a song. Deleting the active song switches to the first
// remaining one, or to a fresh song when the library would be empty.
func (s *Session) DeleteSong(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == s.activeID {
		s.cancelPendingLocked()
	}
	if _, err := s.library.Delete(id); err != nil {
		return err
	}
	if id == s.activeID {
		s.loadLocked(s.library.First())
	}
	s.persistLocked()
	log.Infof("%s Deleted %s", logcolors.LogLibrary, logcolors.Song(id))
	return nil
}

// SetCategories replaces the library category set.
func (s *Session) SetCategories(categories []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.library.SetCategories(categories)
	s.persistLocked()
}

// Restore replaces the whole library, e.g. after a storage restore, and
// loads the snapshot's active song. Pending edits are dropped and nothing is
// written back.
func (s *Session) Restore(snap songs.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelPendingLocked()
	s.library.Bootstrap(snap.Songs, snap.Categories)
	song, ok := s.library.Get(snap.ActiveSongID)
	if !ok {
		song = s.library.First()
	}
	s.loadLocked(song)
	s.persistErr = nil
	log.Infof("%s Restored %d songs, active %s", logcolors.LogEditor, s.library.Len(), logcolors.Song(song.ID))
}

// Close commits any pending edit and stops the debouncer.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.pending {
		s.cancelPendingLocked()
		s.commitLocked()
	}
	s.closed = true
	log.Infof("%s Session closed", logcolors.LogEditor)
}
