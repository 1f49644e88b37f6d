package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// StatsReader is the query side the HTTP API needs.
type StatsReader interface {
	UserStats(ctx context.Context, username string) (*UserStats, error)
	AllStats(ctx context.Context) ([]*UserStats, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// Handler serves the statistics read API.
type Handler struct {
	reader StatsReader
	router *mux.Router
}

// NewHandler creates the stats HTTP handler.
func NewHandler(reader StatsReader) *Handler {
	h := &Handler{
		reader: reader,
		router: mux.NewRouter(),
	}

	api := h.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", h.handleAllStats).Methods("GET")
	api.HandleFunc("/stats/{username}", h.handleUserStats).Methods("GET")
	api.HandleFunc("/leaderboard", h.handleLeaderboard).Methods("GET")

	h.router.HandleFunc("/health", h.handleHealth).Methods("GET")
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) handleAllStats(w http.ResponseWriter, r *http.Request) {
	all, err := h.reader.AllStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	if all == nil {
		all = []*UserStats{}
	}
	respondJSON(w, http.StatusOK, all)
}

func (h *Handler) handleUserStats(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	stats, err := h.reader.UserStats(r.Context(), username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respondError(w, http.StatusNotFound, "no stats for user")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.reader.Leaderboard(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	if entries == nil {
		entries = []LeaderboardEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
