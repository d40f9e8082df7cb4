package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/quizmaster/quizmaster/internal/attempt"
	"github.com/quizmaster/quizmaster/internal/auth"
	"github.com/quizmaster/quizmaster/internal/policy"
	"github.com/quizmaster/quizmaster/internal/quiz"
	"github.com/quizmaster/quizmaster/internal/stats"
)

// newTestRouter wires the API over the in-memory store, mirroring the
// production route table.
func newTestRouter(t *testing.T) (chi.Router, quiz.Store, *auth.Service) {
	t.Helper()
	store := quiz.NewInMemoryStore()
	svc := auth.NewService("test-secret", time.Hour)
	engine := attempt.NewEngine(store)
	agg := stats.NewAggregator(store)

	r := chi.NewRouter()
	r.Post("/auth/register", RegisterHandler(store))
	r.Post("/auth/login", LoginHandler(store, svc))
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(svc))
		pr.With(policy.Require("catalog:view")).Get("/subjects", ListSubjectsHandler(store))
		pr.With(policy.Require("attempt:start")).Post("/quizzes/{quizID}/attempt", StartAttemptHandler(store, engine))
		pr.With(policy.Require("attempt:submit")).Post("/quizzes/{quizID}/submit", SubmitAttemptHandler(store, engine))
		pr.With(policy.Require("score:view-own")).Get("/scores/{scoreID}", GetScoreHandler(store))
		pr.Group(func(ar chi.Router) {
			ar.Use(policy.Require("catalog:manage"))
			ar.Post("/admin/subjects", CreateSubjectHandler(store))
			ar.Post("/admin/chapters", CreateChapterHandler(store))
			ar.Post("/admin/quizzes", CreateQuizHandler(store))
			ar.Post("/admin/quizzes/{quizID}/questions", CreateQuestionHandler(store))
			ar.Get("/admin/stats", DashboardStatsHandler(agg))
		})
	})
	return r, store, svc
}

func seedAdmin(t *testing.T, store quiz.Store) quiz.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	u, err := store.CreateUser(context.Background(), quiz.User{
		Email: "admin@example.com", Username: "admin", PasswordHash: string(hash), IsAdmin: true,
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return u
}

func do(t *testing.T, r chi.Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func login(t *testing.T, r chi.Router, email, password string) string {
	t.Helper()
	w := do(t, r, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", email, w.Code, w.Body.String())
	}
	tok, _ := decode(t, w)["access_token"].(string)
	if tok == "" {
		t.Fatalf("login %s: no token", email)
	}
	return tok
}

func TestFullQuizFlow(t *testing.T) {
	r, store, _ := newTestRouter(t)
	seedAdmin(t, store)
	adminTok := login(t, r, "admin@example.com", "admin-pass")
	today := time.Now().Format(quiz.DateFormat)

	// admin builds the catalog
	w := do(t, r, http.MethodPost, "/admin/subjects", adminTok, map[string]string{"name": "Physics"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create subject: %d %s", w.Code, w.Body.String())
	}
	subjectID := decode(t, w)["id"].(string)

	w = do(t, r, http.MethodPost, "/admin/chapters", adminTok, map[string]string{"name": "Optics", "subject_id": subjectID})
	if w.Code != http.StatusCreated {
		t.Fatalf("create chapter: %d %s", w.Code, w.Body.String())
	}
	chapterID := decode(t, w)["id"].(string)

	w = do(t, r, http.MethodPost, "/admin/quizzes", adminTok, map[string]any{
		"title": "Lenses", "chapter_id": chapterID, "date_of_quiz": today, "time_duration": 30,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create quiz: %d %s", w.Code, w.Body.String())
	}
	quizID := decode(t, w)["id"].(string)

	var questionIDs []string
	for _, correct := range []int{2, 3} {
		w = do(t, r, http.MethodPost, "/admin/quizzes/"+quizID+"/questions", adminTok, map[string]any{
			"question_text": "pick one",
			"option_1":      "a", "option_2": "b", "option_3": "c", "option_4": "d",
			"correct_option": correct,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create question: %d %s", w.Code, w.Body.String())
		}
		questionIDs = append(questionIDs, decode(t, w)["id"].(string))
	}

	// learner registers and logs in
	w = do(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "amy@example.com", "username": "amy", "password": "secret1", "full_name": "Amy",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	tok := login(t, r, "amy@example.com", "secret1")

	// the sheet never leaks correct options
	w = do(t, r, http.MethodPost, "/quizzes/"+quizID+"/attempt", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start attempt: %d %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "correct_option") {
		t.Fatalf("attempt sheet leaks correct options: %s", w.Body.String())
	}

	// one right, one wrong
	w = do(t, r, http.MethodPost, "/quizzes/"+quizID+"/submit", tok, map[string]any{
		"answers": map[string]int{questionIDs[0]: 2, questionIDs[1]: 1},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if pct := resp["percentage"].(float64); pct != 50 {
		t.Fatalf("want 50%%, got %v", pct)
	}
	scoreID := resp["score"].(map[string]any)["id"].(string)

	// retake is refused and points back at the recorded score
	w = do(t, r, http.MethodPost, "/quizzes/"+quizID+"/submit", tok, map[string]any{
		"answers": map[string]int{questionIDs[0]: 2, questionIDs[1]: 3},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("second submit: %d %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["score_id"]; got != scoreID {
		t.Fatalf("conflict score_id = %v, want %s", got, scoreID)
	}

	// owner and admin see the result, another learner does not
	if w = do(t, r, http.MethodGet, "/scores/"+scoreID, tok, nil); w.Code != http.StatusOK {
		t.Fatalf("owner view: %d %s", w.Code, w.Body.String())
	}
	if w = do(t, r, http.MethodGet, "/scores/"+scoreID, adminTok, nil); w.Code != http.StatusOK {
		t.Fatalf("admin view: %d %s", w.Code, w.Body.String())
	}
	do(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "bob@example.com", "username": "bob", "password": "secret1", "full_name": "Bob",
	})
	otherTok := login(t, r, "bob@example.com", "secret1")
	if w = do(t, r, http.MethodGet, "/scores/"+scoreID, otherTok, nil); w.Code != http.StatusForbidden {
		t.Fatalf("stranger view: %d %s", w.Code, w.Body.String())
	}

	// admin surface stays closed to learners
	if w = do(t, r, http.MethodGet, "/admin/stats", tok, nil); w.Code != http.StatusForbidden {
		t.Fatalf("learner on admin stats: %d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/admin/stats", adminTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin stats: %d %s", w.Code, w.Body.String())
	}
	dash := decode(t, w)
	if dash["total_quizzes"].(float64) != 1 {
		t.Fatalf("dashboard counts wrong: %v", dash)
	}
}

func TestAuthRequired(t *testing.T) {
	r, _, _ := newTestRouter(t)
	if w := do(t, r, http.MethodGet, "/subjects", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/subjects", "not-a-jwt", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d", w.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	r, _, _ := newTestRouter(t)

	// password below the minimum
	w := do(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "a@b.c", "username": "amy", "password": "short", "full_name": "Amy",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short password accepted: %d", w.Code)
	}

	// too young to register
	dob := time.Now().AddDate(-10, 0, 0).Format(quiz.DateFormat)
	w = do(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "a@b.c", "username": "amy", "password": "secret1", "full_name": "Amy", "dob": dob,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("underage dob accepted: %d", w.Code)
	}

	// duplicate email
	ok := map[string]string{"email": "a@b.c", "username": "amy", "password": "secret1", "full_name": "Amy"}
	if w = do(t, r, http.MethodPost, "/auth/register", "", ok); w.Code != http.StatusCreated {
		t.Fatalf("valid register refused: %d %s", w.Code, w.Body.String())
	}
	ok["username"] = "amy2"
	if w = do(t, r, http.MethodPost, "/auth/register", "", ok); w.Code != http.StatusConflict {
		t.Fatalf("duplicate email accepted: %d", w.Code)
	}
}
