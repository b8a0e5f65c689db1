package main

import (
	"fmt"
	"net/http"
	"time"

	"songwriter-go/logcolors"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

func (a *App) getStats(w http.ResponseWriter, r *http.Request) {
	numKeys, sizeKB := a.store.Stats()
	snapshot := a.stats.Snapshot()
	snapshot["storage"] = map[string]interface{}{
		"keys":    numKeys,
		"size_kb": sizeKB,
	}
	snapshot["storage_guard"] = a.guard.Snapshot()
	Respond(w, r).JSON(snapshot)
}

func (a *App) getHealthStatus(w http.ResponseWriter, r *http.Request) {
	guard := a.guard.Snapshot()
	health := map[string]interface{}{
		"status":        "ok",
		"songs":         len(a.session.Songs()),
		"storage_guard": guard.State,
		"uptime":        a.stats.Uptime().Round(time.Second).String(),
	}

	if a.guard.IsOpen() {
		health["status"] = "degraded"
		health["storage_guard_retry_in"] = a.guard.TimeUntilRetry().Round(time.Second).String()
	}
	if err := a.session.LastPersistError(); err != nil {
		health["status"] = "degraded"
		health["error"] = err.Error()
	}

	Respond(w, r).JSON(health)
}

func (a *App) getStorageGuard(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"guard": a.guard.Snapshot(),
		"config": map[string]interface{}{
			"threshold":    a.conf.Configuration.StorageBreakerThreshold,
			"cooldown_sec": a.conf.Configuration.StorageBreakerCooldownSecs,
		},
	})
}

func (a *App) resetStorageGuard(w http.ResponseWriter, r *http.Request) {
	a.guard.Reset()
	log.Infof("%s Storage guard reset by %s", logcolors.LogStorage, r.RemoteAddr)
	Respond(w, r).JSON(map[string]interface{}{
		"message": "Storage guard reset to CLOSED state",
		"guard":   a.guard.Snapshot(),
	})
}

func (a *App) backupStorage(w http.ResponseWriter, r *http.Request) {
	a.session.Commit()
	path, err := a.store.Backup()
	if err != nil {
		log.Errorf("%s Backup failed: %v", logcolors.LogStorageBackup, err)
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"message": "Backup created successfully",
		"path":    path,
	})
}

func (a *App) listBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := a.store.ListBackups()
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"backups": backups,
		"count":   len(backups),
	})
}

// restoreStorage replaces the database with a backup and reloads the
// library into the session. Pending edits are committed first.
func (a *App) restoreStorage(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	if req.Backup == "" {
		Respond(w, r).Fail(fmt.Errorf("%w: backup name required", errBadRequest))
		return
	}

	a.session.Commit()
	if err := a.store.RestoreFromBackup(req.Backup); err != nil {
		log.Errorf("%s Restore from %s failed: %v", logcolors.LogStorageRestore, req.Backup, err)
		Respond(w, r).Fail(err)
		return
	}
	snap, err := a.repo.Load()
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	a.session.Restore(snap)

	numKeys, sizeKB := a.store.Stats()
	Respond(w, r).JSON(map[string]interface{}{
		"message":       "Storage restored successfully",
		"restored_from": req.Backup,
		"keys_restored": numKeys,
		"size_kb":       sizeKB,
		"session":       a.session.View(),
	})
}

func (a *App) getNotices(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"notices": a.bus.Active(time.Now()),
	})
}

func (a *App) dismissNotice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !a.bus.Dismiss(id) {
		Respond(w, r).Error(http.StatusNotFound, map[string]string{"error": "notice not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) helpHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"name": "songwriter",
		"endpoints": map[string]string{
			"POST /lyrics/parse":                           "Parse lyrics text into sections",
			"POST /lyrics/serialize":                       "Serialize sections back to lyrics text",
			"GET /session":                                 "Current song, sections and history position",
			"POST /session/undo":                           "Undo the last change",
			"POST /session/commit":                         "Flush a pending content edit",
			"PUT /session/title|style|categories":          "Update the active song",
			"POST /session/sections":                       "Add a section",
			"POST /session/sections/reorder":               "Move a section from one index to another",
			"POST /session/sections/{i}/duplicate|move":    "Duplicate or move a section",
			"PUT /session/sections/{i}/kind|verse|content": "Edit a section",
			"DELETE /session/sections/{i}":                 "Remove a section",
			"POST|DELETE /session/sections/{i}/modifiers":  "Add or remove a modifier tag",
			"POST /session/versions":                       "Save a version of the active song",
			"POST /session/versions/{i}/revert":            "Revert to a saved version",
			"DELETE /session/versions/{i}":                 "Remove a saved version",
			"GET|POST /songs":                              "List or create songs",
			"GET|DELETE /songs/{id}":                       "Get or delete a song",
			"POST /songs/{id}/activate":                    "Switch the active song",
			"GET|PUT /categories":                          "Category list",
			"GET|PUT /category-colors":                     "Category colors",
			"GET|PUT /theme":                               "UI theme (dark or light)",
			"GET|PUT /moodboards":                          "Mood boards",
			"GET /notices":                                 "Active notices",
			"DELETE /notices/{id}":                         "Dismiss a notice",
			"GET /ws/notices":                              "Notice stream (websocket)",
			"POST /storage/backup":                         "Back up the database",
			"GET /storage/backups":                         "List backups",
			"POST /storage/restore":                        "Restore from a backup",
			"GET|POST /storage-guard":                      "Storage guard status or reset",
			"GET /stats":                                   "Editor and request statistics",
			"GET /health":                                  "Health check",
		},
	})
}
