package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"songwriter-go/logcolors"
	"songwriter-go/utils"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "songwriter"

// Persisted state keys.
const (
	KeySongs           = "songs"
	KeyCategories      = "categories"
	KeyCategoryColors  = "categoryColors"
	KeyMoodBoards      = "moodBoards"
	KeyActiveMoodBoard = "activeMoodBoard"
	KeyTheme           = "theme"
	KeyActiveSong      = "activeSong"
	KeyStats           = "stats"
)

var (
	ErrClosed         = errors.New("storage is closed")
	ErrBackupNotFound = errors.New("backup file not found")
	ErrInvalidBackup  = errors.New("invalid backup file: must be a .db file in the backup directory")
)

// Store wraps BoltDB with an in-memory mirror for fast reads.
type Store struct {
	db                 *bolt.DB
	memCache           sync.Map
	dbPath             string
	backupPath         string
	compressionEnabled bool

	// mu guards db while backups are restored.
	mu sync.RWMutex
}

// Entry is the on-disk envelope for one key.
type Entry struct {
	Value      string    `json:"value"`
	Compressed bool      `json:"compressed,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Open opens (or creates) the store at dbPath.
func Open(dbPath string, backupPath string, compressionEnabled bool) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	if err := os.MkdirAll(backupPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	log.Infof("%s Backup directory set to: %s", logcolors.LogStorageInit, backupPath)

	if info, err := os.Stat(dbPath); err == nil {
		log.Infof("%s Found existing database file at: %s (size: %d bytes)", logcolors.LogStorageInit, dbPath, info.Size())
	} else {
		log.Infof("%s Creating new database file at: %s", logcolors.LogStorageInit, dbPath)
	}

	s := &Store{
		dbPath:             dbPath,
		backupPath:         backupPath,
		compressionEnabled: compressionEnabled,
	}
	if err := s.openDatabase(); err != nil {
		return nil, err
	}

	log.Infof("%s Storage initialized at %s (compression: %v)", logcolors.LogStorage, dbPath, compressionEnabled)
	return s, nil
}

func (s *Store) openDatabase() error {
	db, err := bolt.Open(s.dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	s.db = db

	if err := s.loadToMemory(); err != nil {
		log.Warnf("%s Failed to preload entries to memory: %v", logcolors.LogStorage, err)
	}
	return nil
}

// loadToMemory replaces the memory mirror with the bucket contents.
func (s *Store) loadToMemory() error {
	s.memCache.Range(func(k, _ interface{}) bool {
		s.memCache.Delete(k)
		return true
	})

	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				log.Warnf("%s Failed to unmarshal entry for key %s: %v", logcolors.LogStorage, string(k), err)
				return nil
			}
			s.memCache.Store(string(k), entry)
			count++
			return nil
		})
	})
	if err != nil {
		return err
	}

	log.Infof("%s Loaded %d entries from disk to memory", logcolors.LogStorage, count)
	return nil
}

func (s *Store) decode(key string, entry Entry) ([]byte, bool) {
	if !entry.Compressed {
		return []byte(entry.Value), true
	}
	data, err := utils.Decompress(entry.Value)
	if err != nil {
		log.Errorf("%s Error decompressing value for key %s: %v", logcolors.LogStorage, key, err)
		return nil, false
	}
	return data, true
}

func (s *Store) encode(value []byte) (Entry, error) {
	entry := Entry{Value: string(value), UpdatedAt: time.Now()}
	if !s.compressionEnabled {
		return entry, nil
	}
	compressed, err := utils.Compress(value)
	if err != nil {
		return Entry{}, err
	}
	entry.Value = compressed
	entry.Compressed = true
	return entry, nil
}

// Get returns the raw value for key from the memory mirror.
func (s *Store) Get(key string) ([]byte, bool) {
	v, ok := s.memCache.Load(key)
	if !ok {
		return nil, false
	}
	return s.decode(key, v.(Entry))
}

// GetJSON decodes the value for key into v. found is false when the key is absent.
func (s *Store) GetJSON(key string, v interface{}) (found bool, err error) {
	data, ok := s.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Put stores value under key. The memory mirror is only updated after the
// disk write commits.
func (s *Store) Put(key string, value []byte) error {
	return s.PutAll(map[string][]byte{key: value})
}

// PutJSON encodes v and stores it under key.
func (s *Store) PutJSON(key string, v interface{}) error {
	return s.PutAllJSON(map[string]interface{}{key: v})
}

// PutAllJSON encodes every value and writes them in one transaction.
func (s *Store) PutAllJSON(values map[string]interface{}) error {
	raw := make(map[string][]byte, len(values))
	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		raw[key] = data
	}
	return s.PutAll(raw)
}

// PutAll writes every key in one transaction; either all land or none do.
func (s *Store) PutAll(values map[string][]byte) error {
	entries := make(map[string]Entry, len(values))
	for key, value := range values {
		entry, err := s.encode(value)
		if err != nil {
			log.Errorf("%s Error compressing value for key %s: %v", logcolors.LogStorage, key, err)
			return err
		}
		entries[key] = entry
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		for key, entry := range entries {
			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for key, entry := range entries {
		s.memCache.Store(key, entry)
	}
	return nil
}

// Delete removes a key.
func (s *Store) Delete(key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Delete([]byte(key))
	})
	if err == nil {
		s.memCache.Delete(key)
	}
	return err
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	var keys []string
	s.memCache.Range(func(k, _ interface{}) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// Stats returns the number of keys and the approximate stored size.
func (s *Store) Stats() (numKeys int, sizeInKB int) {
	s.memCache.Range(func(k, v interface{}) bool {
		entry := v.(Entry)
		numKeys++
		sizeInKB += len(k.(string)) + len(entry.Value)
		return true
	})
	sizeInKB = sizeInKB / 1024
	return
}

// Backup writes a consistent copy of the database into the backup directory
// and returns its path.
func (s *Store) Backup() (string, error) {
	timestamp := time.Now().Format("2006-01-02_15-04-05.000")
	backupFileName := fmt.Sprintf("songwriter_backup_%s.db", timestamp)
	backupFilePath := filepath.Join(s.backupPath, backupFileName)

	log.Infof("%s Creating backup at: %s", logcolors.LogStorageBackup, backupFilePath)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return "", ErrClosed
	}

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(backupFilePath, 0600)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	log.Infof("%s Backup created successfully: %s", logcolors.LogStorageBackup, backupFilePath)
	return backupFilePath, nil
}

// BackupInfo contains metadata about a backup file
type BackupInfo struct {
	FileName  string    `json:"fileName"`
	FilePath  string    `json:"filePath"`
	Size      int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListBackups returns the available backup files, newest first.
func (s *Store) ListBackups() ([]BackupInfo, error) {
	var backups []BackupInfo

	entries, err := os.ReadDir(s.backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return backups, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Warnf("%s Failed to get info for %s: %v", logcolors.LogStorageBackups, entry.Name(), err)
			continue
		}

		backups = append(backups, BackupInfo{
			FileName:  entry.Name(),
			FilePath:  filepath.Join(s.backupPath, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].FileName > backups[j].FileName
	})
	return backups, nil
}

func (s *Store) backupFile(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || filepath.Ext(name) != ".db" || strings.HasPrefix(name, ".") {
		return "", ErrInvalidBackup
	}
	path := filepath.Join(s.backupPath, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrBackupNotFound, name)
	}
	return path, nil
}

// RestoreFromBackup replaces the current database with a backup. The memory
// mirror is reloaded from the restored file.
func (s *Store) RestoreFromBackup(backupFileName string) error {
	backupFilePath, err := s.backupFile(backupFileName)
	if err != nil {
		return err
	}

	log.Infof("%s Starting restore from backup: %s", logcolors.LogStorageRestore, backupFileName)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close current database: %w", err)
	}
	s.db = nil

	currentBackupPath := s.dbPath + ".pre-restore"
	if err := copyFile(s.dbPath, currentBackupPath); err != nil {
		if reopenErr := s.openDatabase(); reopenErr != nil {
			log.Errorf("%s Failed to reopen database: %v", logcolors.LogStorageRestore, reopenErr)
		}
		return fmt.Errorf("failed to save current database: %w", err)
	}

	if err := copyFile(backupFilePath, s.dbPath); err != nil {
		if rollbackErr := copyFile(currentBackupPath, s.dbPath); rollbackErr != nil {
			log.Errorf("%s Rollback failed: %v", logcolors.LogStorageRestore, rollbackErr)
		}
		if reopenErr := s.openDatabase(); reopenErr != nil {
			log.Errorf("%s Failed to reopen database: %v", logcolors.LogStorageRestore, reopenErr)
		}
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	os.Remove(currentBackupPath)

	if err := s.openDatabase(); err != nil {
		return fmt.Errorf("failed to reopen database after restore: %w", err)
	}

	log.Infof("%s Successfully restored from backup: %s", logcolors.LogStorageRestore, backupFileName)
	return nil
}

// DeleteBackup deletes a specific backup file
func (s *Store) DeleteBackup(backupFileName string) error {
	backupFilePath, err := s.backupFile(backupFileName)
	if err != nil {
		return err
	}

	if err := os.Remove(backupFilePath); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}

	log.Infof("%s Deleted backup: %s", logcolors.LogStorageBackup, backupFileName)
	return nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// Close closes the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
