package playlist

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// listResponse is the envelope for playlist and search results.
type listResponse struct {
	Success bool    `json:"success"`
	Data    []Entry `json:"data"`
	Count   int     `json:"count"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type healthResponse struct {
	Status            string `json:"status"`
	Timestamp         string `json:"timestamp"`
	StorageConfigured bool   `json:"storage_configured"`
}

// Handler exposes the playlist query API using go-chi.
type Handler struct {
	svc *Service
	log *slog.Logger
	now func() time.Time
}

// NewHandler returns a Handler that uses the given Service and Logger.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log, now: time.Now}
}

// Routes returns the /api router with CORS and panic recovery applied.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.recoverJSON)
	r.Use(allowCORS)
	r.Get("/playlist", h.GetPlaylist)
	r.Get("/playlist/search", h.SearchPlaylist)
	r.Get("/health", h.Health)
	return r
}

// GetPlaylist handles GET /api/playlist?limit=N.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Recent(r.Context(), queryInt(r, "limit", DefaultLimit))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Data: entries, Count: len(entries)})
}

// SearchPlaylist handles GET /api/playlist/search?artist=&title=&album=&year=&limit=.
func (h *Handler) SearchPlaylist(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		Artist: q.Get("artist"),
		Title:  q.Get("title"),
		Album:  q.Get("album"),
		Year:   q.Get("year"),
	}

	entries, err := h.svc.Search(r.Context(), f, queryInt(r, "limit", DefaultLimit))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Data: entries, Count: len(entries)})
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:            "healthy",
		Timestamp:         h.now().UTC().Format(time.RFC3339),
		StorageConfigured: h.svc.StorageConfigured(),
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.log.Error("playlist request failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Success: false, Error: err.Error()})
}

// recoverJSON turns handler panics into the API's error envelope.
func (h *Handler) recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.log.Error("handler panic",
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())))
				writeJSON(w, http.StatusInternalServerError, errorResponse{Success: false, Error: fmt.Sprint(rec)})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// queryInt parses an integer query parameter, returning fallback when it is
// absent or malformed.
func queryInt(r *http.Request, key string, fallback int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
