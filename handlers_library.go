package main

import (
	"fmt"
	"net/http"

	"songwriter-go/logcolors"
	"songwriter-go/services/songs"
	"songwriter-go/storage"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

func (a *App) listSongs(w http.ResponseWriter, r *http.Request) {
	activeID := a.session.ActiveSongID()
	all := a.session.Songs()
	out := make([]SongSummary, 0, len(all))
	for _, s := range all {
		out = append(out, SongSummary{
			ID:         s.ID,
			Title:      s.Title,
			Categories: s.Categories,
			Versions:   len(s.Versions),
			Active:     s.ID == activeID,
			UpdatedAt:  s.UpdatedAt,
		})
	}
	Respond(w, r).JSON(map[string]interface{}{
		"songs":      out,
		"activeSong": activeID,
	})
}

func (a *App) getSong(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	song, ok := a.session.Song(id)
	if !ok {
		Respond(w, r).Fail(fmt.Errorf("%w: %s", songs.ErrSongNotFound, id))
		return
	}
	Respond(w, r).SetSongID(song.ID).JSON(song)
}

func (a *App) createSong(w http.ResponseWriter, r *http.Request) {
	var req createSongRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			Respond(w, r).Fail(err)
			return
		}
	}
	song, err := a.session.CreateSong(req.Title)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).SetSongID(song.ID).Created(song)
}

func (a *App) deleteSong(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a.respondResult(w, r, a.session.DeleteSong(id))
}

func (a *App) activateSong(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a.respondResult(w, r, a.session.SwitchSong(id))
}

func (a *App) getCategories(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"categories": a.session.Categories(),
	})
}

func (a *App) putCategories(w http.ResponseWriter, r *http.Request) {
	var req categoriesRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	a.session.SetCategories(req.Categories)
	Respond(w, r).JSON(map[string]interface{}{
		"categories": a.session.Categories(),
	})
}

func (a *App) getCategoryColors(w http.ResponseWriter, r *http.Request) {
	colors, err := a.store.CategoryColors()
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"colors": colors,
	})
}

func (a *App) putCategoryColors(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Colors map[string]string `json:"colors"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	if err := a.store.SetCategoryColors(req.Colors); err != nil {
		log.Errorf("%s Failed to save category colors: %v", logcolors.LogLibrary, err)
		Respond(w, r).Fail(err)
		return
	}
	a.getCategoryColors(w, r)
}

func (a *App) getTheme(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"theme": a.store.Theme(),
	})
}

func (a *App) putTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	theme, err := storage.ParseTheme(req.Theme)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	if err := a.store.SetTheme(theme); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"theme": theme,
	})
}

func (a *App) getMoodBoards(w http.ResponseWriter, r *http.Request) {
	mb, err := a.store.MoodBoards()
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).JSON(mb)
}

func (a *App) putMoodBoards(w http.ResponseWriter, r *http.Request) {
	var mb storage.MoodBoards
	if err := decodeBody(w, r, &mb); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	if err := a.store.SetMoodBoards(mb); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	a.getMoodBoards(w, r)
}
