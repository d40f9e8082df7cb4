package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/quizmaster/quizmaster/internal/api/http"
	"github.com/quizmaster/quizmaster/internal/attempt"
	"github.com/quizmaster/quizmaster/internal/audit"
	"github.com/quizmaster/quizmaster/internal/auth"
	"github.com/quizmaster/quizmaster/internal/config"
	"github.com/quizmaster/quizmaster/internal/db"
	"github.com/quizmaster/quizmaster/internal/policy"
	"github.com/quizmaster/quizmaster/internal/quiz"
	"github.com/quizmaster/quizmaster/internal/stats"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := quiz.NewSQLStore(dbh, cfg.DBDriver)

	if err := auth.EnsureAdmin(ctx, store, auth.AdminSeed{
		Email:    cfg.AdminEmail,
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	}); err != nil {
		log.Fatalf("admin provisioning failed: %v", err)
	}

	authSvc := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	events := audit.NewEventRepo(dbh)
	engine := attempt.NewEngine(store, attempt.WithRecorder(events))
	agg := stats.NewAggregator(store)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/register", api.RegisterHandler(store))
	r.Post("/auth/login", api.LoginHandler(store, authSvc))

	// Protected API (JWT -> subject+role in context -> policy)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Catalog browsing (any authenticated role)
		pr.With(policy.Require("catalog:view")).
			Get("/subjects", api.ListSubjectsHandler(store))
		pr.With(policy.Require("catalog:view")).
			Get("/subjects/{subjectID}/chapters", api.ListChaptersHandler(store))
		pr.With(policy.Require("catalog:view")).
			Get("/chapters/{chapterID}/quizzes", api.ListQuizzesByChapterHandler(store))

		// Attempt flow
		pr.With(policy.Require("attempt:start")).
			Post("/quizzes/{quizID}/attempt", api.StartAttemptHandler(store, engine))
		pr.With(policy.Require("attempt:submit")).
			Post("/quizzes/{quizID}/submit", api.SubmitAttemptHandler(store, engine))

		// Scores and personal stats. GetScoreHandler re-checks ownership,
		// so admins can open any learner's results.
		pr.With(policy.RequireAny("score:view-own", "score:view-all")).
			Get("/scores/{scoreID}", api.GetScoreHandler(store))
		pr.With(policy.Require("score:view-own")).
			Get("/scores", api.ListMyScoresHandler(store))
		pr.With(policy.Require("stats:view-own")).
			Get("/me/stats", api.UserStatsHandler(store, agg))

		// Admin-only: catalog management and dashboards
		pr.Group(func(ar chi.Router) {
			ar.Use(policy.Require("catalog:manage"))

			ar.Post("/admin/subjects", api.CreateSubjectHandler(store))
			ar.Put("/admin/subjects/{subjectID}", api.UpdateSubjectHandler(store))
			ar.Delete("/admin/subjects/{subjectID}", api.DeleteSubjectHandler(store))

			ar.Post("/admin/chapters", api.CreateChapterHandler(store))
			ar.Put("/admin/chapters/{chapterID}", api.UpdateChapterHandler(store))
			ar.Delete("/admin/chapters/{chapterID}", api.DeleteChapterHandler(store))

			ar.Get("/admin/quizzes", api.ListQuizzesHandler(store))
			ar.Post("/admin/quizzes", api.CreateQuizHandler(store))
			ar.Put("/admin/quizzes/{quizID}", api.UpdateQuizHandler(store))
			ar.Delete("/admin/quizzes/{quizID}", api.DeleteQuizHandler(store))

			ar.Get("/admin/quizzes/{quizID}/questions", api.ListQuestionsHandler(store))
			ar.Post("/admin/quizzes/{quizID}/questions", api.CreateQuestionHandler(store))
			ar.Put("/admin/questions/{questionID}", api.UpdateQuestionHandler(store))
			ar.Delete("/admin/questions/{questionID}", api.DeleteQuestionHandler(store))

			ar.Get("/admin/users", api.ListUsersHandler(store))
			ar.Get("/admin/users/{userID}/scores", api.UserScoresHandler(store))
			ar.Get("/admin/stats", api.DashboardStatsHandler(agg))
			ar.Get("/admin/events", api.ListAuditEventsHandler(events))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
