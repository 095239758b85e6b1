package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/timesheet/internal/auth"
	"github.com/hitoshi/timesheet/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	AuthProvider      auth.Provider
	HTTPMetrics       middleware.HTTPRecorder // nilの場合は記録しない
	MetricsHandler    http.Handler            // nilの場合は/metricsを公開しない

	// 日付のみのクエリパラメータを解釈するタイムゾーン
	Location *time.Location

	// サービス
	ProjectService   ProjectServiceInterface
	TimeEntryService TimeEntryServiceInterface
	StatsService     StatsServiceInterface
	UserService      UserServiceInterface
	Health           Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → SecurityHeaders → CORS → Metrics
//	/api/*: Auth → RequireRole(user) → RateLimit(General) → RateLimit(Write)
//
// /health と /metrics は認証不要。プロジェクトの更新系はadminロールが必要。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}

	projectHandler := NewProjectHandler(deps.ProjectService)
	timeEntryHandler := NewTimeEntryHandler(deps.TimeEntryService, deps.Location)
	statsHandler := NewStatsHandler(deps.StatsService)
	userHandler := NewUserHandler(deps.UserService)
	healthHandler := NewHealthHandler(deps.Health)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.AuthProvider))
		r.Use(middleware.RequireRole(auth.RoleUser))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
			r.Use(deps.RateLimiter.WriteMiddleware())
		}

		// プロジェクト管理
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projectHandler.ListProjects)
			r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/", projectHandler.CreateProject)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", projectHandler.GetProject)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(auth.RoleAdmin))
					r.Put("/", projectHandler.UpdateProject)
					r.Delete("/", projectHandler.DeleteProject)
				})
			})
		})

		// 工数記録
		r.Route("/time-entries", func(r chi.Router) {
			r.Get("/", timeEntryHandler.ListTimeEntries)
			r.Post("/", timeEntryHandler.CreateTimeEntry)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", timeEntryHandler.GetTimeEntry)
				r.Put("/", timeEntryHandler.UpdateTimeEntry)
				r.Delete("/", timeEntryHandler.DeleteTimeEntry)
			})
		})

		r.Get("/stats", statsHandler.GetStats)
		r.Get("/clients", projectHandler.ListClients)
		r.Get("/users/current", userHandler.GetCurrentUser)
	})

	return r
}
