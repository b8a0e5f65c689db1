package main

import (
	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func (a *App) setupRoutes(router *mux.Router) {
	// Stateless lyrics endpoints
	router.HandleFunc("/lyrics/parse", a.parseLyrics).Methods("POST")
	router.HandleFunc("/lyrics/serialize", a.serializeLyrics).Methods("POST")

	// Editing session
	router.HandleFunc("/session", a.getSession).Methods("GET")
	router.HandleFunc("/session/undo", a.undo).Methods("POST")
	router.HandleFunc("/session/commit", a.commit).Methods("POST")
	router.HandleFunc("/session/title", a.setTitle).Methods("PUT")
	router.HandleFunc("/session/style", a.setStyle).Methods("PUT")
	router.HandleFunc("/session/categories", a.setSongCategories).Methods("PUT")

	// Section operations
	router.HandleFunc("/session/sections", a.addSection).Methods("POST")
	router.HandleFunc("/session/sections/reorder", a.reorderSections).Methods("POST")
	router.HandleFunc("/session/sections/{index:[0-9]+}", a.removeSection).Methods("DELETE")
	router.HandleFunc("/session/sections/{index:[0-9]+}/duplicate", a.duplicateSection).Methods("POST")
	router.HandleFunc("/session/sections/{index:[0-9]+}/move", a.moveSection).Methods("POST")
	router.HandleFunc("/session/sections/{index:[0-9]+}/kind", a.changeKind).Methods("PUT")
	router.HandleFunc("/session/sections/{index:[0-9]+}/verse", a.changeVerseNumber).Methods("PUT")
	router.HandleFunc("/session/sections/{index:[0-9]+}/content", a.setContent).Methods("PUT")
	router.HandleFunc("/session/sections/{index:[0-9]+}/modifiers", a.addModifier).Methods("POST")
	router.HandleFunc("/session/sections/{index:[0-9]+}/modifiers", a.removeModifier).Methods("DELETE")

	// Versions of the active song
	router.HandleFunc("/session/versions", a.saveVersion).Methods("POST")
	router.HandleFunc("/session/versions/{index:[0-9]+}/revert", a.revertToVersion).Methods("POST")
	router.HandleFunc("/session/versions/{index:[0-9]+}", a.removeVersion).Methods("DELETE")

	// Library
	router.HandleFunc("/songs", a.listSongs).Methods("GET")
	router.HandleFunc("/songs", a.createSong).Methods("POST")
	router.HandleFunc("/songs/{id}", a.getSong).Methods("GET")
	router.HandleFunc("/songs/{id}", a.deleteSong).Methods("DELETE")
	router.HandleFunc("/songs/{id}/activate", a.activateSong).Methods("POST")
	router.HandleFunc("/categories", a.getCategories).Methods("GET")
	router.HandleFunc("/categories", a.putCategories).Methods("PUT")
	router.HandleFunc("/category-colors", a.getCategoryColors).Methods("GET")
	router.HandleFunc("/category-colors", a.putCategoryColors).Methods("PUT")
	router.HandleFunc("/theme", a.getTheme).Methods("GET")
	router.HandleFunc("/theme", a.putTheme).Methods("PUT")
	router.HandleFunc("/moodboards", a.getMoodBoards).Methods("GET")
	router.HandleFunc("/moodboards", a.putMoodBoards).Methods("PUT")

	// Notices
	router.HandleFunc("/notices", a.getNotices).Methods("GET")
	router.HandleFunc("/notices/{id}", a.dismissNotice).Methods("DELETE")
	router.HandleFunc("/ws/notices", a.streamNotices)

	// Storage management endpoints
	router.HandleFunc("/storage/backup", a.backupStorage).Methods("POST")
	router.HandleFunc("/storage/backups", a.listBackups).Methods("GET")
	router.HandleFunc("/storage/restore", a.restoreStorage).Methods("POST")
	router.HandleFunc("/storage-guard", a.getStorageGuard).Methods("GET")
	router.HandleFunc("/storage-guard", a.resetStorageGuard).Methods("POST")

	// Health and stats endpoints
	router.HandleFunc("/health", a.getHealthStatus)
	router.HandleFunc("/stats", a.getStats)

	// Help endpoint
	router.HandleFunc("/", a.helpHandler)
}
