package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quizmaster/quizmaster/internal/audit"
	"github.com/quizmaster/quizmaster/internal/quiz"
	"github.com/quizmaster/quizmaster/internal/stats"
)

// GET /admin/stats
func DashboardStatsHandler(agg *stats.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := agg.DashboardStats(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// GET /admin/users
func ListUsersHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := store.ListUsers(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// GET /admin/users/{userID}/scores
func UserScoresHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if _, err := store.GetUser(r.Context(), userID); err != nil {
			writeError(w, err)
			return
		}
		scores, err := store.ListScoresByUser(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, scores)
	}
}

// GET /admin/events?limit=N lists recent submission events, newest first.
func ListAuditEventsHandler(repo *audit.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if s := r.URL.Query().Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}
		events, err := repo.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}
