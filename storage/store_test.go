package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// setupTestStore creates a temporary store for testing
func setupTestStore(t *testing.T, compression bool) (*Store, string) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	backupPath := filepath.Join(tmpDir, "backups")

	store, err := Open(dbPath, backupPath, compression)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store, tmpDir
}

func TestOpen(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "songwriter.db")
	backupPath := filepath.Join(tmpDir, "backups")

	store, err := Open(dbPath, backupPath, true)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Expected database to be initialized")
	}
	if !store.compressionEnabled {
		t.Error("Expected compression to be enabled")
	}
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		t.Error("Expected backup directory to be created")
	}
}

func TestPutAndGet(t *testing.T) {
	for _, compression := range []bool{false, true} {
		store, _ := setupTestStore(t, compression)

		if err := store.Put("key", []byte(`"value"`)); err != nil {
			t.Fatalf("Failed to put value: %v", err)
		}

		got, found := store.Get("key")
		if !found {
			t.Fatal("Expected to find the key")
		}
		if string(got) != `"value"` {
			t.Errorf("Expected %q, got %q (compression %v)", `"value"`, got, compression)
		}
	}
}

func TestGetJSON(t *testing.T) {
	store, _ := setupTestStore(t, true)

	categories := []string{"Pop", "Ballad"}
	if err := store.PutJSON(KeyCategories, categories); err != nil {
		t.Fatalf("Failed to put JSON: %v", err)
	}

	var got []string
	found, err := store.GetJSON(KeyCategories, &got)
	if err != nil || !found {
		t.Fatalf("Expected to decode categories, found=%v err=%v", found, err)
	}
	if len(got) != 2 || got[1] != "Ballad" {
		t.Errorf("Expected %v, got %v", categories, got)
	}

	found, err = store.GetJSON("missing", &got)
	if found || err != nil {
		t.Errorf("Expected missing key to be not found without error, got found=%v err=%v", found, err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "songwriter.db")
	backupPath := filepath.Join(tmpDir, "backups")

	store, err := Open(dbPath, backupPath, true)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if err := store.PutAllJSON(map[string]interface{}{
		KeyActiveSong: "song-1",
		KeyTheme:      ThemeLight,
	}); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	store.Close()

	// Compression can be switched off without breaking older entries.
	reopened, err := Open(dbPath, backupPath, false)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	var active string
	if _, err := reopened.GetJSON(KeyActiveSong, &active); err != nil || active != "song-1" {
		t.Errorf("Expected active song 'song-1', got %q (%v)", active, err)
	}
	if reopened.Theme() != ThemeLight {
		t.Errorf("Expected light theme, got %q", reopened.Theme())
	}
}

func TestWriteAfterClose(t *testing.T) {
	store, _ := setupTestStore(t, false)
	store.Close()

	if err := store.Put("key", []byte("1")); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if _, found := store.Get("key"); found {
		t.Error("Expected failed write to leave the memory mirror untouched")
	}
}

func TestDelete(t *testing.T) {
	store, _ := setupTestStore(t, false)

	store.Put("key", []byte("1"))
	if err := store.Delete("key"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, found := store.Get("key"); found {
		t.Error("Expected key to be deleted")
	}
}

func TestKeysAndStats(t *testing.T) {
	store, _ := setupTestStore(t, false)

	store.Put("b", []byte("2"))
	store.Put("a", []byte("1"))

	keys := store.Keys()
	if len(keys) != 2 || keys[0] != "a" {
		t.Errorf("Expected sorted keys [a b], got %v", keys)
	}
	numKeys, _ := store.Stats()
	if numKeys != 2 {
		t.Errorf("Expected 2 keys, got %d", numKeys)
	}
}

func TestBackupAndRestore(t *testing.T) {
	store, _ := setupTestStore(t, true)

	store.PutJSON(KeyCategories, []string{"Original"})

	backupPath, err := store.Backup()
	if err != nil {
		t.Fatalf("Failed to create backup: %v", err)
	}
	if _, err := os.Stat(backupPath); err != nil {
		t.Fatalf("Expected backup file to exist: %v", err)
	}

	store.PutJSON(KeyCategories, []string{"Changed"})

	backups, err := store.ListBackups()
	if err != nil {
		t.Fatalf("Failed to list backups: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("Expected 1 backup, got %d", len(backups))
	}

	if err := store.RestoreFromBackup(backups[0].FileName); err != nil {
		t.Fatalf("Failed to restore: %v", err)
	}

	var got []string
	store.GetJSON(KeyCategories, &got)
	if len(got) != 1 || got[0] != "Original" {
		t.Errorf("Expected restored categories [Original], got %v", got)
	}

	// The store stays writable after a restore.
	if err := store.PutJSON(KeyTheme, ThemeDark); err != nil {
		t.Errorf("Expected write after restore to succeed, got %v", err)
	}
}

func TestRestoreRejectsBadNames(t *testing.T) {
	store, _ := setupTestStore(t, false)

	tests := []struct {
		name     string
		file     string
		expected error
	}{
		{"Path traversal", "../test.db", ErrInvalidBackup},
		{"Wrong extension", "backup.txt", ErrInvalidBackup},
		{"Missing file", "nope.db", ErrBackupNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.RestoreFromBackup(tt.file); !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestDeleteBackup(t *testing.T) {
	store, _ := setupTestStore(t, false)

	path, err := store.Backup()
	if err != nil {
		t.Fatalf("Failed to create backup: %v", err)
	}
	if err := store.DeleteBackup(filepath.Base(path)); err != nil {
		t.Fatalf("Failed to delete backup: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected backup file to be removed")
	}
}

func TestTheme(t *testing.T) {
	store, _ := setupTestStore(t, false)

	if store.Theme() != ThemeDark {
		t.Errorf("Expected default dark theme, got %q", store.Theme())
	}
	if err := store.SetTheme(Theme("sepia")); !errors.Is(err, ErrInvalidTheme) {
		t.Errorf("Expected ErrInvalidTheme, got %v", err)
	}
	if _, err := ParseTheme(" Light "); err != nil {
		t.Errorf("Expected ParseTheme to normalize, got %v", err)
	}
}

func TestCategoryColors(t *testing.T) {
	store, _ := setupTestStore(t, false)

	colors, err := store.CategoryColors()
	if err != nil || len(colors) != 0 {
		t.Fatalf("Expected empty colors, got %v (%v)", colors, err)
	}

	store.SetCategoryColors(map[string]string{"Pop": "#ff0"})
	colors, _ = store.CategoryColors()
	if colors["Pop"] != "#ff0" {
		t.Errorf("Expected Pop color #ff0, got %q", colors["Pop"])
	}
}

func TestMoodBoards(t *testing.T) {
	store, _ := setupTestStore(t, true)

	mb, err := store.MoodBoards()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(mb.Boards) != "[]" || mb.Active != "" {
		t.Errorf("Expected empty boards, got %s / %q", mb.Boards, mb.Active)
	}

	boards := json.RawMessage(`[{"id":"b1","items":[{"kind":"image"}]}]`)
	if err := store.SetMoodBoards(MoodBoards{Boards: boards, Active: "b1"}); err != nil {
		t.Fatalf("Failed to store boards: %v", err)
	}

	mb, _ = store.MoodBoards()
	if string(mb.Boards) != string(boards) || mb.Active != "b1" {
		t.Errorf("Expected boards to round trip verbatim, got %s / %q", mb.Boards, mb.Active)
	}

	if err := store.SetMoodBoards(MoodBoards{Boards: json.RawMessage("{bad")}); err == nil {
		t.Error("Expected invalid JSON to be rejected")
	}
}
