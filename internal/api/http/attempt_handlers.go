package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quizmaster/quizmaster/internal/attempt"
	"github.com/quizmaster/quizmaster/internal/policy"
	"github.com/quizmaster/quizmaster/internal/quiz"
	"github.com/quizmaster/quizmaster/internal/stats"
)

// POST /quizzes/{quizID}/attempt starts an attempt and returns the sheet.
func StartAttemptHandler(store quiz.Store, engine *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := currentUser(store, r)
		if err != nil {
			writeError(w, err)
			return
		}
		quizID := chi.URLParam(r, "quizID")
		q, err := store.GetQuiz(r.Context(), quizID)
		if err != nil {
			writeError(w, err)
			return
		}
		if !policy.CanAttempt(u, q) {
			writeError(w, quiz.ErrForbidden)
			return
		}
		sheet, err := engine.StartAttempt(r.Context(), u.ID, quizID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sheet)
	}
}

type submitRequest struct {
	// question id -> selected option. Skipped questions may simply be
	// omitted; the engine records them as unanswered.
	Answers map[string]int `json:"answers"`
}

// POST /quizzes/{quizID}/submit grades and persists, append-only.
func SubmitAttemptHandler(store quiz.Store, engine *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := currentUser(store, r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req submitRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		sc, err := engine.SubmitAttempt(r.Context(), u.ID, chi.URLParam(r, "quizID"), req.Answers)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"score":      sc,
			"percentage": sc.Percentage(),
		})
	}
}

// GET /scores/{scoreID} returns full results: the score, its quiz, and the
// questions with correct options so the learner can review. Owner or
// admin only.
func GetScoreHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := currentUser(store, r)
		if err != nil {
			writeError(w, err)
			return
		}
		sc, err := store.GetScore(r.Context(), chi.URLParam(r, "scoreID"))
		if err != nil {
			writeError(w, err)
			return
		}
		if !policy.CanViewScore(u, sc) {
			writeError(w, quiz.ErrForbidden)
			return
		}
		q, err := store.GetQuiz(r.Context(), sc.QuizID)
		if err != nil {
			writeError(w, err)
			return
		}
		questions, err := store.ListQuestionsByQuiz(r.Context(), sc.QuizID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"score":      sc,
			"percentage": sc.Percentage(),
			"quiz":       q,
			"questions":  questions,
		})
	}
}

// GET /scores lists the caller's own scores, newest first.
func ListMyScoresHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := currentUser(store, r)
		if err != nil {
			writeError(w, err)
			return
		}
		scores, err := store.ListScoresByUser(r.Context(), u.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, scores)
	}
}

// GET /me/stats is the caller's dashboard summary.
func UserStatsHandler(store quiz.Store, agg *stats.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := currentUser(store, r)
		if err != nil {
			writeError(w, err)
			return
		}
		summary, err := agg.UserStats(r.Context(), u.ID, time.Now().Format(quiz.DateFormat))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
