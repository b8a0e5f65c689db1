package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"songwriter-go/services/editor"
	"songwriter-go/services/lyrics"
	"songwriter-go/services/songs"
	"songwriter-go/storage"
)

// APIResponse handles consistent header setting and JSON responses.
// It centralizes the X-Song-ID and X-Session-State headers so every
// session endpoint reports which song it touched.
type APIResponse struct {
	w            http.ResponseWriter
	r            *http.Request
	songID       string
	sessionState string
}

// Respond creates a response helper from request context
func Respond(w http.ResponseWriter, r *http.Request) *APIResponse {
	return &APIResponse{w: w, r: r}
}

// SetSongID sets the X-Song-ID header value
func (a *APIResponse) SetSongID(id string) *APIResponse {
	a.songID = id
	return a
}

// SetSessionState sets the X-Session-State header value
func (a *APIResponse) SetSessionState(state editor.State) *APIResponse {
	a.sessionState = state.String()
	return a
}

// writeHeaders sets all standard headers
func (a *APIResponse) writeHeaders() {
	a.w.Header().Set("Content-Type", "application/json")

	if a.songID != "" {
		a.w.Header().Set("X-Song-ID", a.songID)
	}
	if a.sessionState != "" {
		a.w.Header().Set("X-Session-State", a.sessionState)
	}
}

// JSON writes headers and encodes data as JSON (200 OK)
func (a *APIResponse) JSON(data interface{}) error {
	a.writeHeaders()
	return json.NewEncoder(a.w).Encode(data)
}

// Created writes headers and encodes data as JSON (201 Created)
func (a *APIResponse) Created(data interface{}) error {
	a.writeHeaders()
	a.w.WriteHeader(http.StatusCreated)
	return json.NewEncoder(a.w).Encode(data)
}

// Error writes headers, sets status code, and encodes error response
func (a *APIResponse) Error(statusCode int, data interface{}) error {
	a.writeHeaders()
	a.w.WriteHeader(statusCode)
	return json.NewEncoder(a.w).Encode(data)
}

// Fail maps err to a status code and writes {"error": err}.
func (a *APIResponse) Fail(err error) error {
	return a.Error(statusForError(err), map[string]string{"error": err.Error()})
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, lyrics.ErrModifierLimitExceeded):
		return http.StatusConflict
	case errors.Is(err, songs.ErrStyleLengthExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, songs.ErrSongNotFound),
		errors.Is(err, storage.ErrBackupNotFound):
		return http.StatusNotFound
	case errors.Is(err, lyrics.ErrIndexOutOfRange),
		errors.Is(err, lyrics.ErrInvalidTag),
		errors.Is(err, lyrics.ErrInvalidKind),
		errors.Is(err, lyrics.ErrInvalidPosition),
		errors.Is(err, lyrics.ErrNotVerse),
		errors.Is(err, lyrics.ErrInvalidVerseNumber),
		errors.Is(err, lyrics.ErrBlankMarker),
		errors.Is(err, lyrics.ErrInvalidMarker),
		errors.Is(err, lyrics.ErrAmbiguousContent),
		errors.Is(err, songs.ErrTitleTooLong),
		errors.Is(err, storage.ErrInvalidTheme),
		errors.Is(err, storage.ErrInvalidBackup),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrClosed),
		errors.Is(err, editor.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
