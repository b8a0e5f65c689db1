// Package filesync mirrors each song's flat lyrics into a directory of
// <songID>.lyrics files and feeds external edits of those files back into
// the editor.
package filesync

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"songwriter-go/logcolors"
	"songwriter-go/services/notifier"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Extension is the suffix of mirrored lyrics files.
const Extension = ".lyrics"

// SourceFile tags reloads that came from the mirror directory.
const SourceFile = "file"

// Reloader receives lyrics that changed on disk.
type Reloader interface {
	ReloadLyrics(songID, text, source string) error
}

// Mirror keeps the sync directory and the editor in step.
type Mirror struct {
	dir      string
	reloader Reloader
	bus      *notifier.EventBus
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	known   map[string]string // song id -> last text written or read
	lastSeq map[string]uint64

	subs      []int
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates dir if needed, subscribes to song events and starts watching.
func New(dir string, reloader Reloader, bus *notifier.EventBus) (*Mirror, error) {
	if dir == "" {
		return nil, errors.New("sync directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sync directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	m := &Mirror{
		dir:      dir,
		reloader: reloader,
		bus:      bus,
		watcher:  watcher,
		known:    make(map[string]string),
		lastSeq:  make(map[string]uint64),
		done:     make(chan struct{}),
	}
	m.subs = append(m.subs,
		bus.Subscribe(notifier.EventSongCommitted, m.handleSongEvent),
		bus.Subscribe(notifier.EventSongLoaded, m.handleSongEvent),
	)

	m.wg.Add(1)
	go m.watch()

	log.Infof("%s Mirroring lyrics to %s", logcolors.LogFileSync, dir)
	return m, nil
}

// PathFor returns the mirror file of a song.
func (m *Mirror) PathFor(songID string) string {
	return filepath.Join(m.dir, songID+Extension)
}

func (m *Mirror) handleSongEvent(event *notifier.Event) {
	songID, _ := event.Data["song_id"].(string)
	text, _ := event.Data["lyrics"].(string)
	if songID == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Handlers run concurrently; an older event must not overwrite a newer one.
	if event.Seq <= m.lastSeq[songID] {
		return
	}
	m.lastSeq[songID] = event.Seq

	if err := m.writeLocked(songID, text); err != nil {
		log.Warnf("%s Failed to mirror %s: %v", logcolors.LogFileSync, logcolors.Song(songID), err)
	}
}

// WriteSong writes text to the song's mirror file unless it already holds it.
func (m *Mirror) WriteSong(songID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeLocked(songID, text)
}

func (m *Mirror) writeLocked(songID, text string) error {
	if prev, ok := m.known[songID]; ok && prev == text {
		return nil
	}
	path := m.PathFor(songID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	m.known[songID] = text
	log.Debugf("%s Wrote %s", logcolors.LogFileSync, path)
	return nil
}

func (m *Mirror) watch() {
	defer m.wg.Done()
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !strings.HasSuffix(event.Name, Extension) {
				continue
			}
			m.handleFileChange(event.Name)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("%s Watcher error: %v", logcolors.LogFileSync, err)
		case <-m.done:
			return
		}
	}
}

func (m *Mirror) handleFileChange(path string) {
	songID := strings.TrimSuffix(filepath.Base(path), Extension)
	data, err := os.ReadFile(path)
	if err != nil {
		// The file may be mid-replace.
		log.Debugf("%s Could not read %s: %v", logcolors.LogFileSync, path, err)
		return
	}
	text := string(data)

	m.mu.Lock()
	if prev, ok := m.known[songID]; ok && prev == text {
		m.mu.Unlock()
		return
	}
	m.known[songID] = text
	m.mu.Unlock()

	if err := m.reloader.ReloadLyrics(songID, text, SourceFile); err != nil {
		log.Warnf("%s Ignoring %s: %v", logcolors.LogFileSync, filepath.Base(path), err)
	}
}

// Close stops watching and unsubscribes from the bus.
func (m *Mirror) Close() error {
	var err error
	m.closeOnce.Do(func() {
		for _, id := range m.subs {
			m.bus.Unsubscribe(id)
		}
		close(m.done)
		err = m.watcher.Close()
		m.wg.Wait()
		log.Infof("%s Stopped", logcolors.LogFileSync)
	})
	return err
}
