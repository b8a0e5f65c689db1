package stats

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// memKV is an in-memory KV for store tests.
type memKV struct {
	data map[string][]byte
	err  error
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) GetJSON(key string, v interface{}) (bool, error) {
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (m *memKV) PutJSON(key string, v interface{}) error {
	if m.err != nil {
		return m.err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func TestRecordRequest(t *testing.T) {
	s := New()

	paths := []string{"/session", "/session/undo", "/lyrics/parse", "/songs/abc", "/stats", "/health", "/theme"}
	for _, p := range paths {
		s.RecordRequest(p)
	}

	tests := []struct {
		name     string
		got      int64
		expected int64
	}{
		{"total", s.TotalRequests.Load(), 7},
		{"session", s.SessionRequests.Load(), 2},
		{"lyrics", s.LyricsRequests.Load(), 1},
		{"songs", s.SongsRequests.Load(), 1},
		{"stats", s.StatsRequests.Load(), 1},
		{"health", s.HealthRequests.Load(), 1},
		{"other", s.OtherRequests.Load(), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.expected, tt.got)
		}
	}
}

func TestRecordStatusCode(t *testing.T) {
	s := New()
	for _, code := range []int{200, 201, 404, 409, 500} {
		s.RecordStatusCode(code)
	}
	if s.Status2xx.Load() != 2 || s.Status4xx.Load() != 2 || s.Status5xx.Load() != 1 {
		t.Errorf("Unexpected status counts: %d/%d/%d", s.Status2xx.Load(), s.Status4xx.Load(), s.Status5xx.Load())
	}
}

func TestResponseTimes(t *testing.T) {
	s := New()

	if s.MinResponseTime() != 0 || s.AvgResponseTime() != 0 {
		t.Error("Expected zero response times before any request")
	}

	s.RecordResponseTime(10 * time.Millisecond)
	s.RecordResponseTime(30 * time.Millisecond)

	if s.MinResponseTime() != 10*time.Millisecond {
		t.Errorf("Expected min 10ms, got %v", s.MinResponseTime())
	}
	if s.MaxResponseTime() != 30*time.Millisecond {
		t.Errorf("Expected max 30ms, got %v", s.MaxResponseTime())
	}
	if s.AvgResponseTime() != 20*time.Millisecond {
		t.Errorf("Expected avg 20ms, got %v", s.AvgResponseTime())
	}
}

func TestEditorCounters(t *testing.T) {
	s := New()

	s.RecordParse(5, 1)
	s.RecordCommit(2 * time.Millisecond)
	s.RecordCommit(4 * time.Millisecond)
	s.RecordPersist(nil)
	s.RecordPersist(errors.New("disk full"))

	if s.ParsedBlocks.Load() != 5 || s.DroppedBlocks.Load() != 1 {
		t.Errorf("Expected 5 parsed / 1 dropped, got %d / %d", s.ParsedBlocks.Load(), s.DroppedBlocks.Load())
	}
	if s.Commits.Load() != 2 {
		t.Errorf("Expected 2 commits, got %d", s.Commits.Load())
	}
	if s.AvgCommitTime() != 3*time.Millisecond {
		t.Errorf("Expected avg commit 3ms, got %v", s.AvgCommitTime())
	}
	if s.PersistenceWrites.Load() != 1 || s.PersistenceFailures.Load() != 1 {
		t.Errorf("Expected 1 write and 1 failure, got %d / %d", s.PersistenceWrites.Load(), s.PersistenceFailures.Load())
	}
}

func TestSnapshot(t *testing.T) {
	s := New()
	s.Undos.Add(3)

	snap := s.Snapshot()
	editor, ok := snap["editor"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected editor section in snapshot")
	}
	if editor["undos"] != int64(3) {
		t.Errorf("Expected 3 undos, got %v", editor["undos"])
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	kv := newMemKV()
	live := New()
	live.Commits.Add(7)
	live.DroppedBlocks.Add(2)
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	live.StartTime = started

	if err := NewStore(kv, live).Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored := New()
	if err := NewStore(kv, restored).Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if restored.Commits.Load() != 7 || restored.DroppedBlocks.Load() != 2 {
		t.Errorf("Expected restored counters 7/2, got %d/%d", restored.Commits.Load(), restored.DroppedBlocks.Load())
	}
	if !restored.StartTime.Equal(started) {
		t.Errorf("Expected first start %v, got %v", started, restored.StartTime)
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	if err := NewStore(newMemKV(), New()).Load(); err != nil {
		t.Errorf("Expected no error for empty store, got %v", err)
	}
}

func TestStore_SaveError(t *testing.T) {
	kv := newMemKV()
	kv.err = errors.New("read-only")

	if err := NewStore(kv, New()).Save(); err == nil {
		t.Error("Expected save error to be returned")
	}
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	store := NewStore(newMemKV(), New())
	store.StartAutoSave(time.Hour)

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Expected second Close to succeed, got %v", err)
	}
}
