package http

import (
	"errors"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/quizmaster/quizmaster/internal/auth"
	"github.com/quizmaster/quizmaster/internal/policy"
	"github.com/quizmaster/quizmaster/internal/quiz"
)

type registerRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Username      string `json:"username" validate:"required,min=3,max=64"`
	Password      string `json:"password" validate:"required,min=6"`
	FullName      string `json:"full_name" validate:"required,max=120"`
	Qualification string `json:"qualification" validate:"omitempty,max=120"`
	DOB           string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
}

// POST /auth/register
func RegisterHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.DOB != "" {
			if ok, msg := validDOB(req.DOB, time.Now()); !ok {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
				return
			}
		}
		if _, err := store.GetUserByEmail(r.Context(), req.Email); err == nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
			return
		} else if !errors.Is(err, quiz.ErrNotFound) {
			writeError(w, err)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
		if err != nil {
			writeError(w, err)
			return
		}
		u, err := store.CreateUser(r.Context(), quiz.User{
			Email:         req.Email,
			Username:      req.Username,
			PasswordHash:  string(hash),
			FullName:      req.FullName,
			Qualification: req.Qualification,
			DOB:           req.DOB,
		})
		if err != nil {
			// username/email race against another registration
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email or username already taken"})
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

// validDOB enforces the 16..100 age window on optional dates of birth.
func validDOB(dob string, now time.Time) (bool, string) {
	d, err := time.Parse(quiz.DateFormat, dob)
	if err != nil {
		return false, "invalid date of birth"
	}
	age := now.Year() - d.Year()
	if now.YearDay() < d.YearDay() {
		age--
	}
	if age < 16 {
		return false, "you must be at least 16 years old to register"
	}
	if age > 100 {
		return false, "please enter a valid date of birth"
	}
	return true, ""
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /auth/login
func LoginHandler(store quiz.Store, svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		u, err := store.GetUserByEmail(r.Context(), req.Email)
		if err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := svc.IssueJWT(u.ID, policy.RoleFor(u))
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": tok,
			"user":         u,
		})
	}
}

// currentUser resolves the authenticated subject to a stored user.
func currentUser(store quiz.Store, r *http.Request) (quiz.User, error) {
	sub := policy.SubjectFromContext(r.Context())
	if sub == "" {
		return quiz.User{}, quiz.ErrForbidden
	}
	return store.GetUser(r.Context(), sub)
}
