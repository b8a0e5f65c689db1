package main

import (
	"fmt"
	"net/http"

	"songwriter-go/logcolors"
	"songwriter-go/services/lyrics"
	"songwriter-go/utils"

	log "github.com/sirupsen/logrus"
)

func (a *App) parseLyrics(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}

	seq, report := lyrics.ParseWithReport(utils.NormalizeNewlines(req.Lyrics))
	a.stats.RecordParse(report.Blocks, report.Dropped)
	if report.Dropped > 0 {
		log.Debugf("%s Dropped %d of %d blocks", logcolors.LogParser, report.Dropped, report.Blocks)
	}

	Respond(w, r).JSON(ParseResponse{
		Sections: seq,
		Labels:   seq.Labels(),
		Report:   report,
	})
}

func (a *App) serializeLyrics(w http.ResponseWriter, r *http.Request) {
	var req serializeRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	for i, s := range req.Sections {
		if err := s.Validate(); err != nil {
			Respond(w, r).Fail(fmt.Errorf("section %d: %w", i, err))
			return
		}
	}

	Respond(w, r).JSON(map[string]interface{}{
		"lyrics": lyrics.Serialize(req.Sections),
	})
}

// respondView writes the session snapshot after an operation.
func (a *App) respondView(w http.ResponseWriter, r *http.Request) {
	view := a.session.View()
	Respond(w, r).
		SetSongID(view.Song.ID).
		SetSessionState(a.session.State()).
		JSON(view)
}

// respondResult writes err, or the session snapshot when err is nil.
func (a *App) respondResult(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		Respond(w, r).SetSongID(a.session.ActiveSongID()).Fail(err)
		return
	}
	a.respondView(w, r)
}

func (a *App) getSession(w http.ResponseWriter, r *http.Request) {
	a.respondView(w, r)
}

func (a *App) undo(w http.ResponseWriter, r *http.Request) {
	if !a.session.Undo() {
		Respond(w, r).SetSongID(a.session.ActiveSongID()).Error(http.StatusConflict, map[string]string{
			"error": "nothing to undo",
		})
		return
	}
	a.respondView(w, r)
}

func (a *App) commit(w http.ResponseWriter, r *http.Request) {
	committed := a.session.Commit()
	view := a.session.View()
	Respond(w, r).SetSongID(view.Song.ID).JSON(map[string]interface{}{
		"committed": committed,
		"session":   view,
	})
}

func (a *App) setTitle(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	a.respondResult(w, r, a.session.SetTitle(req.Title))
}

func (a *App) setStyle(w http.ResponseWriter, r *http.Request) {
	var req styleRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	a.respondResult(w, r, a.session.SetStyle(req.Style))
}

func (a *App) setSongCategories(w http.ResponseWriter, r *http.Request) {
	var req categoriesRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	a.respondResult(w, r, a.session.SetSongCategories(req.Categories))
}

func (a *App) addSection(w http.ResponseWriter, r *http.Request) {
	var req addSectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	at := len(a.session.Sections())
	if req.At != nil {
		at = *req.At
	}
	a.respondResult(w, r, a.session.AddSection(lyrics.Kind(req.Kind), req.Content, at))
}

func (a *App) duplicateSection(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	a.respondResult(w, r, a.session.DuplicateSection(index))
}

func (a *App) removeSection(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	a.respondResult(w, r, a.session.RemoveSection(index))
}

func (a *App) changeKind(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	var req kindRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	a.respondResult(w, r, a.session.ChangeKind(index, lyrics.Kind(req.Kind)))
}

func (a *App) changeVerseNumber(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	var req verseRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	a.respondResult(w, r, a.session.ChangeVerseNumber(index, req.Number))
}

// setContent schedules a debounced commit; the response reflects the
// working sections with State "pending_commit".
func (a *App) setContent(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	var req contentRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	a.respondResult(w, r, a.session.SetContent(index, req.Content))
}

func (a *App) moveSection(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	var req moveRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	dir, err := lyrics.ParseDirection(req.Direction)
	if err != nil {
		Respond(w, r).Fail(fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	a.respondResult(w, r, a.session.MoveSection(index, dir))
}

func (a *App) reorderSections(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	a.respondResult(w, r, a.session.ReorderSections(req.From, req.To))
}

func (a *App) addModifier(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	var req modifierRequest
	if err := decodeBody(w, r, &req); err != nil {
		Respond(w, r).Fail(err)
		return
	}
	pos, err := lyrics.ParsePosition(req.Position)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	a.respondResult(w, r, a.session.AddModifier(index, req.Tag, pos))
}

func (a *App) removeModifier(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	query := r.URL.Query()
	pos, err := lyrics.ParsePosition(query.Get("position"))
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	a.respondResult(w, r, a.session.RemoveModifier(index, query.Get("tag"), pos))
}

func (a *App) saveVersion(w http.ResponseWriter, r *http.Request) {
	a.respondResult(w, r, a.session.SaveVersion())
}

func (a *App) revertToVersion(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	ok, err := a.session.RevertToVersion(index)
	if err == nil && !ok {
		Respond(w, r).Error(http.StatusNotFound, map[string]string{"error": "version not found"})
		return
	}
	a.respondResult(w, r, err)
}

func (a *App) removeVersion(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	ok, err := a.session.RemoveVersion(index)
	if err == nil && !ok {
		Respond(w, r).Error(http.StatusNotFound, map[string]string{"error": "version not found"})
		return
	}
	a.respondResult(w, r, err)
}
