package stats

import (
	"fmt"
	"sync"
	"time"

	"songwriter-go/logcolors"

	log "github.com/sirupsen/logrus"
)

const statsKey = "stats"

// KV is the slice of the local store the stats persister needs.
type KV interface {
	GetJSON(key string, v interface{}) (bool, error)
	PutJSON(key string, v interface{}) error
}

// Store persists cumulative counters under the "stats" key
type Store struct {
	kv       KV
	stats    *Stats
	mu       sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// PersistedStats represents the stats data that gets persisted to disk
type PersistedStats struct {
	// Cumulative counters (these accumulate across restarts)
	Commits             int64 `json:"commits"`
	SkippedCommits      int64 `json:"skipped_commits"`
	Undos               int64 `json:"undos"`
	SongSwitches        int64 `json:"song_switches"`
	ExternalReloads     int64 `json:"external_reloads"`
	ParsedBlocks        int64 `json:"parsed_blocks"`
	DroppedBlocks       int64 `json:"dropped_blocks"`
	RejectedEdits       int64 `json:"rejected_edits"`
	ModifierLimitHits   int64 `json:"modifier_limit_hits"`
	StyleLimitHits      int64 `json:"style_limit_hits"`
	PersistenceWrites   int64 `json:"persistence_writes"`
	PersistenceFailures int64 `json:"persistence_failures"`
	VersionsSaved       int64 `json:"versions_saved"`
	TotalRequests       int64 `json:"total_requests"`

	// Metadata
	LastSaved    time.Time `json:"last_saved"`
	FirstStarted time.Time `json:"first_started"`
}

// NewStore creates a stats persister backed by kv
func NewStore(kv KV, s *Stats) *Store {
	return &Store{
		kv:       kv,
		stats:    s,
		stopChan: make(chan struct{}),
	}
}

// Load reads persisted stats and applies them to the live counters
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var persisted PersistedStats
	found, err := s.kv.GetJSON(statsKey, &persisted)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	if !found {
		return nil
	}

	st := s.stats
	st.Commits.Store(persisted.Commits)
	st.SkippedCommits.Store(persisted.SkippedCommits)
	st.Undos.Store(persisted.Undos)
	st.SongSwitches.Store(persisted.SongSwitches)
	st.ExternalReloads.Store(persisted.ExternalReloads)
	st.ParsedBlocks.Store(persisted.ParsedBlocks)
	st.DroppedBlocks.Store(persisted.DroppedBlocks)
	st.RejectedEdits.Store(persisted.RejectedEdits)
	st.ModifierLimitHits.Store(persisted.ModifierLimitHits)
	st.StyleLimitHits.Store(persisted.StyleLimitHits)
	st.PersistenceWrites.Store(persisted.PersistenceWrites)
	st.PersistenceFailures.Store(persisted.PersistenceFailures)
	st.VersionsSaved.Store(persisted.VersionsSaved)
	st.TotalRequests.Store(persisted.TotalRequests)

	if !persisted.FirstStarted.IsZero() {
		st.setStartTime(persisted.FirstStarted)
	}

	log.Infof("%s Loaded persisted stats (commits: %d, first started: %s)",
		logcolors.LogStats, persisted.Commits, persisted.FirstStarted.Format(time.RFC3339))
	return nil
}

// Save persists current stats
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.startMu.RLock()
	started := st.StartTime
	st.startMu.RUnlock()

	persisted := PersistedStats{
		Commits:             st.Commits.Load(),
		SkippedCommits:      st.SkippedCommits.Load(),
		Undos:               st.Undos.Load(),
		SongSwitches:        st.SongSwitches.Load(),
		ExternalReloads:     st.ExternalReloads.Load(),
		ParsedBlocks:        st.ParsedBlocks.Load(),
		DroppedBlocks:       st.DroppedBlocks.Load(),
		RejectedEdits:       st.RejectedEdits.Load(),
		ModifierLimitHits:   st.ModifierLimitHits.Load(),
		StyleLimitHits:      st.StyleLimitHits.Load(),
		PersistenceWrites:   st.PersistenceWrites.Load(),
		PersistenceFailures: st.PersistenceFailures.Load(),
		VersionsSaved:       st.VersionsSaved.Load(),
		TotalRequests:       st.TotalRequests.Load(),
		LastSaved:           time.Now(),
		FirstStarted:        started,
	}

	if err := s.kv.PutJSON(statsKey, persisted); err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// StartAutoSave begins periodic saving of stats
func (s *Store) StartAutoSave(interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.Save(); err != nil {
					log.Warnf("%s Failed to auto-save stats: %v", logcolors.LogStats, err)
				}
			case <-s.stopChan:
				return
			}
		}
	}()
	log.Infof("%s Started auto-save with interval %v", logcolors.LogStats, interval)
}

// Close stops auto-save and writes a final snapshot
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()

	if err := s.Save(); err != nil {
		log.Warnf("%s Failed to save stats on close: %v", logcolors.LogStats, err)
		return err
	}
	log.Infof("%s Stats saved on shutdown", logcolors.LogStats)
	return nil
}
