package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quizmaster/quizmaster/internal/quiz"
)

// Admin CRUD over the Subject -> Chapter -> Quiz -> Question catalog.
// Deletes cascade down the tree in the store.

type subjectRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description"`
}

func CreateSubjectHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subjectRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		s, err := store.CreateSubject(r.Context(), quiz.Subject{Name: req.Name, Description: req.Description})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, s)
	}
}

func UpdateSubjectHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subjectRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		s := quiz.Subject{ID: chi.URLParam(r, "subjectID"), Name: req.Name, Description: req.Description}
		if err := store.UpdateSubject(r.Context(), s); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func DeleteSubjectHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteSubject(r.Context(), chi.URLParam(r, "subjectID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ListSubjectsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjects, err := store.ListSubjects(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, subjects)
	}
}

type chapterRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description"`
	SubjectID   string `json:"subject_id" validate:"required"`
}

func CreateChapterHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chapterRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if _, err := store.GetSubject(r.Context(), req.SubjectID); err != nil {
			writeError(w, err)
			return
		}
		c, err := store.CreateChapter(r.Context(), quiz.Chapter{
			Name:        req.Name,
			Description: req.Description,
			SubjectID:   req.SubjectID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func UpdateChapterHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chapterRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if _, err := store.GetSubject(r.Context(), req.SubjectID); err != nil {
			writeError(w, err)
			return
		}
		c := quiz.Chapter{
			ID:          chi.URLParam(r, "chapterID"),
			Name:        req.Name,
			Description: req.Description,
			SubjectID:   req.SubjectID,
		}
		if err := store.UpdateChapter(r.Context(), c); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func DeleteChapterHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteChapter(r.Context(), chi.URLParam(r, "chapterID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ListChaptersHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID := chi.URLParam(r, "subjectID")
		if _, err := store.GetSubject(r.Context(), subjectID); err != nil {
			writeError(w, err)
			return
		}
		chapters, err := store.ListChaptersBySubject(r.Context(), subjectID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, chapters)
	}
}

type quizRequest struct {
	Title        string `json:"title" validate:"required,max=120"`
	ChapterID    string `json:"chapter_id" validate:"required"`
	DateOfQuiz   string `json:"date_of_quiz" validate:"required,datetime=2006-01-02"`
	TimeDuration int    `json:"time_duration" validate:"required,min=1,max=180"`
	Remarks      string `json:"remarks"`
}

func (req quizRequest) check(w http.ResponseWriter, r *http.Request, store quiz.Store) bool {
	if req.DateOfQuiz < time.Now().Format(quiz.DateFormat) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quiz date cannot be in the past"})
		return false
	}
	if _, err := store.GetChapter(r.Context(), req.ChapterID); err != nil {
		writeError(w, err)
		return false
	}
	return true
}

func CreateQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quizRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !req.check(w, r, store) {
			return
		}
		q, err := store.CreateQuiz(r.Context(), quiz.Quiz{
			Title:        req.Title,
			ChapterID:    req.ChapterID,
			DateOfQuiz:   req.DateOfQuiz,
			TimeDuration: req.TimeDuration,
			Remarks:      req.Remarks,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

func UpdateQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quizRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !req.check(w, r, store) {
			return
		}
		q := quiz.Quiz{
			ID:           chi.URLParam(r, "quizID"),
			Title:        req.Title,
			ChapterID:    req.ChapterID,
			DateOfQuiz:   req.DateOfQuiz,
			TimeDuration: req.TimeDuration,
			Remarks:      req.Remarks,
		}
		if err := store.UpdateQuiz(r.Context(), q); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func DeleteQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteQuiz(r.Context(), chi.URLParam(r, "quizID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ListQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizzes, err := store.ListQuizzes(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, quizzes)
	}
}

func ListQuizzesByChapterHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chapterID := chi.URLParam(r, "chapterID")
		if _, err := store.GetChapter(r.Context(), chapterID); err != nil {
			writeError(w, err)
			return
		}
		quizzes, err := store.ListQuizzesByChapter(r.Context(), chapterID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, quizzes)
	}
}

type questionRequest struct {
	QuestionText  string `json:"question_text" validate:"required"`
	Option1       string `json:"option_1" validate:"required,max=256"`
	Option2       string `json:"option_2" validate:"required,max=256"`
	Option3       string `json:"option_3" validate:"required,max=256"`
	Option4       string `json:"option_4" validate:"required,max=256"`
	CorrectOption int    `json:"correct_option" validate:"required,oneof=1 2 3 4"`
}

func CreateQuestionHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		var req questionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if _, err := store.GetQuiz(r.Context(), quizID); err != nil {
			writeError(w, err)
			return
		}
		q, err := store.CreateQuestion(r.Context(), quiz.Question{
			QuizID:        quizID,
			QuestionText:  req.QuestionText,
			Option1:       req.Option1,
			Option2:       req.Option2,
			Option3:       req.Option3,
			Option4:       req.Option4,
			CorrectOption: req.CorrectOption,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

func UpdateQuestionHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req questionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		q := quiz.Question{
			ID:            chi.URLParam(r, "questionID"),
			QuestionText:  req.QuestionText,
			Option1:       req.Option1,
			Option2:       req.Option2,
			Option3:       req.Option3,
			Option4:       req.Option4,
			CorrectOption: req.CorrectOption,
		}
		if err := store.UpdateQuestion(r.Context(), q); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func DeleteQuestionHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteQuestion(r.Context(), chi.URLParam(r, "questionID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListQuestionsHandler returns full questions, correct options included.
// It is mounted admin-only; learners get questions through the attempt
// sheet, which strips the answers.
func ListQuestionsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		if _, err := store.GetQuiz(r.Context(), quizID); err != nil {
			writeError(w, err)
			return
		}
		questions, err := store.ListQuestionsByQuiz(r.Context(), quizID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, questions)
	}
}
