package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/quizmaster/quizmaster/internal/quiz"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "validation failed on field " + verrs[0].Field(),
			})
			return false
		}
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps the domain's tagged failures onto status codes. Storage
// failures log the cause and surface a generic message.
func writeError(w http.ResponseWriter, err error) {
	var attempted *quiz.AlreadyAttemptedError
	var storage *quiz.StorageError
	switch {
	case errors.As(err, &attempted):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":    "quiz already attempted",
			"score_id": attempted.ScoreID,
		})
	case errors.Is(err, quiz.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, quiz.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, quiz.ErrNotAvailable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "quiz is not yet available"})
	case errors.Is(err, quiz.ErrNoQuestions):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "quiz has no questions"})
	case errors.As(err, &storage):
		log.Printf("storage error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		log.Printf("unhandled error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
