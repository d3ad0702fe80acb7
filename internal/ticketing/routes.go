package ticketing

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the work-order endpoints on the given router.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/api/workorders", listHandler(store))
	r.Get("/api/workorders/{orderID}", getHandler(store))
	r.Patch("/api/workorders/{orderID}/status", updateStatusHandler(store))
	r.Post("/api/workorders/{orderID}/notes", addNoteHandler(store))
}

func listHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		records, err := store.List(r.Context(), r.URL.Query().Get("status"), limit)
		if err != nil {
			http.Error(w, "failed to list work orders", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": records})
	}
}

func getHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := store.Get(r.Context(), chi.URLParam(r, "orderID"))
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "work order not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "failed to load work order", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": rec})
	}
}

func updateStatusHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		err := store.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), body.Status)
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "work order not found", http.StatusNotFound)
		case err != nil:
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			writeJSON(w, http.StatusOK, map[string]string{"status": body.Status})
		}
	}
}

func addNoteHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Note   string `json:"note"`
			Author string `json:"author"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Note == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		err := store.AddNote(r.Context(), chi.URLParam(r, "orderID"), body.Note, body.Author)
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "work order not found", http.StatusNotFound)
		case err != nil:
			http.Error(w, "failed to add note", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusCreated)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
