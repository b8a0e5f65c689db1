package stats

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds editor and API counters
type Stats struct {
	// Server info
	StartTime time.Time

	// Editor pipeline
	Commits             atomic.Int64 // commits that changed the lyrics
	SkippedCommits      atomic.Int64 // commits with unchanged text
	Undos               atomic.Int64
	SongSwitches        atomic.Int64
	ExternalReloads     atomic.Int64
	ParsedBlocks        atomic.Int64
	DroppedBlocks       atomic.Int64
	RejectedEdits       atomic.Int64 // operations refused with an error
	ModifierLimitHits   atomic.Int64
	StyleLimitHits      atomic.Int64
	PersistenceWrites   atomic.Int64
	PersistenceFailures atomic.Int64
	VersionsSaved       atomic.Int64

	// Request counters
	TotalRequests   atomic.Int64
	SessionRequests atomic.Int64
	LyricsRequests  atomic.Int64
	SongsRequests   atomic.Int64
	StatsRequests   atomic.Int64
	HealthRequests  atomic.Int64
	OtherRequests   atomic.Int64

	// Rate limiting
	RateLimitAllowed  atomic.Int64
	RateLimitExceeded atomic.Int64 // Requests rejected (429)

	// Response status codes
	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Response time tracking (in microseconds for precision)
	totalResponseTime atomic.Int64
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64

	// Commit latency (microseconds), serialize through persist
	commitTime  atomic.Int64
	commitCount atomic.Int64

	startMu sync.RWMutex
}

const maxInt64 = int64(^uint64(0) >> 1)

// New creates an empty stats instance.
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.minResponseTime.Store(maxInt64)
	return s
}

// Global stats instance used by the HTTP middleware
var global = New()

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordRequest records a request by route prefix
func (s *Stats) RecordRequest(path string) {
	s.TotalRequests.Add(1)
	switch {
	case strings.HasPrefix(path, "/session"):
		s.SessionRequests.Add(1)
	case strings.HasPrefix(path, "/lyrics"):
		s.LyricsRequests.Add(1)
	case strings.HasPrefix(path, "/songs"):
		s.SongsRequests.Add(1)
	case path == "/stats":
		s.StatsRequests.Add(1)
	case path == "/health":
		s.HealthRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

// RecordRateLimit records rate limit decisions
func (s *Stats) RecordRateLimit(allowed bool) {
	if allowed {
		s.RateLimitAllowed.Add(1)
		return
	}
	s.RateLimitExceeded.Add(1)
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime records a response time
func (s *Stats) RecordResponseTime(duration time.Duration) {
	us := duration.Microseconds()

	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
}

// RecordParse records a parse outcome
func (s *Stats) RecordParse(blocks, dropped int) {
	s.ParsedBlocks.Add(int64(blocks))
	s.DroppedBlocks.Add(int64(dropped))
}

// RecordCommit records a commit that changed the song and its latency
func (s *Stats) RecordCommit(duration time.Duration) {
	s.Commits.Add(1)
	s.commitTime.Add(duration.Microseconds())
	s.commitCount.Add(1)
}

// RecordPersist records a storage write outcome
func (s *Stats) RecordPersist(err error) {
	if err != nil {
		s.PersistenceFailures.Add(1)
		return
	}
	s.PersistenceWrites.Add(1)
}

// Uptime returns the process uptime
func (s *Stats) Uptime() time.Duration {
	s.startMu.RLock()
	defer s.startMu.RUnlock()
	return time.Since(s.StartTime)
}

func (s *Stats) setStartTime(t time.Time) {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	s.StartTime = t
}

// AvgResponseTime returns the average response time
func (s *Stats) AvgResponseTime() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

// MinResponseTime returns the minimum response time
func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == maxInt64 {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

// MaxResponseTime returns the maximum response time
func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

// AvgCommitTime returns the average commit latency
func (s *Stats) AvgCommitTime() time.Duration {
	count := s.commitCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.commitTime.Load()/count) * time.Microsecond
}

// Snapshot returns a point-in-time snapshot of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	s.startMu.RLock()
	start := s.StartTime
	s.startMu.RUnlock()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     start.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"editor": map[string]interface{}{
			"commits":              s.Commits.Load(),
			"skipped_commits":      s.SkippedCommits.Load(),
			"undos":                s.Undos.Load(),
			"song_switches":        s.SongSwitches.Load(),
			"external_reloads":     s.ExternalReloads.Load(),
			"parsed_blocks":        s.ParsedBlocks.Load(),
			"dropped_blocks":       s.DroppedBlocks.Load(),
			"rejected_edits":       s.RejectedEdits.Load(),
			"modifier_limit_hits":  s.ModifierLimitHits.Load(),
			"style_limit_hits":     s.StyleLimitHits.Load(),
			"versions_saved":       s.VersionsSaved.Load(),
			"avg_commit":           s.AvgCommitTime().String(),
			"persistence_writes":   s.PersistenceWrites.Load(),
			"persistence_failures": s.PersistenceFailures.Load(),
		},
		"requests": map[string]interface{}{
			"total":   s.TotalRequests.Load(),
			"session": s.SessionRequests.Load(),
			"lyrics":  s.LyricsRequests.Load(),
			"songs":   s.SongsRequests.Load(),
			"stats":   s.StatsRequests.Load(),
			"health":  s.HealthRequests.Load(),
			"other":   s.OtherRequests.Load(),
		},
		"rate_limiting": map[string]interface{}{
			"allowed":  s.RateLimitAllowed.Load(),
			"exceeded": s.RateLimitExceeded.Load(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"response_times": map[string]interface{}{
			"avg": s.AvgResponseTime().String(),
			"min": s.MinResponseTime().String(),
			"max": s.MaxResponseTime().String(),
		},
	}
}
