package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (a *App) handleMethods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limitStr := r.URL.Query().Get("limit")
	limit, atoiErr := strconv.Atoi(limitStr)
	if limitStr != "" && atoiErr != nil {
		log.Printf("methods: invalid limit %q, using default", limitStr)
	}
	methods, err := a.db.SearchMethods(q, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, methods)
}

// methodIDParam returns the {id} route segment percent-decoded. Method
// ids have the form "<runID>/<peID>", so clients send the slash as %2F,
// and the router matches on the still-escaped path.
func methodIDParam(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if decoded, err := url.PathUnescape(id); err == nil {
		return decoded
	}
	return id
}

func (a *App) handleMethodCFG(w http.ResponseWriter, r *http.Request) {
	id := methodIDParam(r)
	g, err := a.db.CFG(id)
	if err != nil {
		writeGraphError(w, err)
		return
	}
	writeJSON(w, g)
}

func (a *App) handleMethodDDG(w http.ResponseWriter, r *http.Request) {
	id := methodIDParam(r)
	g, err := a.db.DDG(id)
	if err != nil {
		writeGraphError(w, err)
		return
	}
	writeJSON(w, g)
}

func (a *App) handleMethodPDG(w http.ResponseWriter, r *http.Request) {
	id := methodIDParam(r)
	g, err := a.db.PDG(id)
	if err != nil {
		writeGraphError(w, err)
		return
	}
	writeJSON(w, g)
}

func (a *App) handleSource(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	if file == "" {
		http.Error(w, "missing query parameter file", http.StatusBadRequest)
		return
	}
	content, err := a.db.Source(file)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "file not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"file": file, "content": content})
}

func writeGraphError(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "method not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
