package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"songwriter-go/services/lyrics"
	"songwriter-go/services/songs"

	"github.com/gorilla/mux"
)

// maxBodyBytes caps request bodies; a song's lyrics are well under this.
const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type parseRequest struct {
	Lyrics string `json:"lyrics"`
}

// ParseResponse is the response format for /lyrics/parse
type ParseResponse struct {
	Sections lyrics.Sequence    `json:"sections"`
	Labels   []string           `json:"labels"`
	Report   lyrics.ParseReport `json:"report"`
}

type serializeRequest struct {
	Sections lyrics.Sequence `json:"sections"`
}

type addSectionRequest struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
	At      *int   `json:"at,omitempty"`
}

type kindRequest struct {
	Kind string `json:"kind"`
}

type verseRequest struct {
	Number int `json:"number"`
}

type contentRequest struct {
	Content string `json:"content"`
}

type moveRequest struct {
	Direction string `json:"direction"`
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type modifierRequest struct {
	Tag      string `json:"tag"`
	Position string `json:"position"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type styleRequest struct {
	Style songs.Style `json:"style"`
}

type categoriesRequest struct {
	Categories []string `json:"categories"`
}

type createSongRequest struct {
	Title string `json:"title"`
}

type themeRequest struct {
	Theme string `json:"theme"`
}

type restoreRequest struct {
	Backup string `json:"backup"`
}

// SongSummary is one row of the /songs listing.
type SongSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Categories []string  `json:"categories"`
	Versions   int       `json:"versions"`
	Active     bool      `json:"active"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// decodeBody reads a JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// pathIndex reads a non-negative integer route variable.
func pathIndex(r *http.Request, name string) (int, error) {
	raw := mux.Vars(r)[name]
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %q", errBadRequest, name, raw)
	}
	return n, nil
}
