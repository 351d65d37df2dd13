package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	auth "github.com/mind-engage/mindengage-qbank/internal/auth/middleware"
	"github.com/mind-engage/mindengage-qbank/internal/exam"
	"github.com/mind-engage/mindengage-qbank/internal/logger"
	"github.com/mind-engage/mindengage-qbank/internal/rbac"
)

type RouterDeps struct {
	Store   exam.Store
	Service *exam.Service
	Users   auth.UserStore
	Auth    *auth.AuthService
	Log     *logger.Logger

	CORSOrigins     []string
	EnableLocalAuth bool
	// StrictRoles rejects tokens whose user is no longer stored.
	StrictRoles bool
	// Ready backs /readyz; nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(d.Auth))
	}

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))
		pr.Use(auth.AttachRoleFromStore(d.Users, !d.StrictRoles))

		pr.Route("/subjects", func(sr chi.Router) {
			sr.With(rbac.Require("subject:view")).Get("/", ListSubjectsHandler(d.Store))
			sr.With(rbac.Require("subject:create")).Post("/", CreateSubjectHandler(d.Store))
			sr.With(rbac.Require("subject:view")).Get("/{id}", GetSubjectHandler(d.Store))
			sr.With(rbac.Require("subject:update")).Put("/{id}", UpdateSubjectHandler(d.Store))
			sr.With(rbac.Require("subject:delete")).Delete("/{id}", DeleteSubjectHandler(d.Store))
		})

		pr.Route("/questions", func(qr chi.Router) {
			qr.With(rbac.Require("question:view")).Get("/", ListQuestionsHandler(d.Store))
			qr.With(rbac.Require("question:create")).Post("/", CreateQuestionHandler(d.Store))
			qr.With(rbac.Require("question:create")).Post("/bulk", BulkCreateQuestionsHandler(d.Store))
			qr.With(rbac.Require("question:view")).Get("/{id}", GetQuestionHandler(d.Store))
			qr.With(rbac.Require("question:update")).Put("/{id}", UpdateQuestionHandler(d.Store))
			qr.With(rbac.Require("question:delete")).Delete("/{id}", DeleteQuestionHandler(d.Store))
		})

		pr.Route("/exams", func(er chi.Router) {
			er.With(rbac.Require("exam:view")).Get("/", ListExamsHandler(d.Store))
			er.With(rbac.Require("exam:create")).Post("/", CreateExamHandler(d.Store))
			er.With(rbac.Require("exam:view")).Get("/{id}", GetExamHandler(d.Store))
			er.With(rbac.Require("exam:update")).Put("/{id}", UpdateExamHandler(d.Store))
			er.With(rbac.Require("exam:delete")).Delete("/{id}", DeleteExamHandler(d.Store))

			er.With(rbac.Require("variant:generate")).Post("/{id}/generate", GenerateVariantsHandler(d.Service))
			er.With(rbac.RequireAny("variant:view", "exam:export")).Get("/{id}/variants", ListVariantsHandler(d.Service))
			er.With(rbac.Require("exam:export")).Get("/{id}/export", ExportHandler(d.Service))
		})

		pr.With(rbac.Require("user:bulk_upsert")).Post("/users/bulk", BulkUpsertUsersHandler(d.Users))
		pr.With(rbac.Require("user:list")).Get("/users", ListUsersHandler(d.Users))
		pr.With(rbac.Require("user:change_password")).Post("/users/change-password", ChangePasswordHandler(d.Users))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}
