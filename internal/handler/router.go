package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AdeChrysler/szen-bi/internal/metrics"
	"github.com/AdeChrysler/szen-bi/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger      *slog.Logger
	HealthCheck Pinger
	Trigger     Triggerer
	RateLimiter *middleware.RateLimiter

	// メトリクス
	Gatherer prometheus.Gatherer
	Observer middleware.StatusObserver
}

// NewRouter はワーカーのエンドポイントとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware → MetricsMiddleware
//
// POST /reconcile にはクライアントごとのレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.Observer != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Observer))
	}

	h := NewReconcileHandler(deps.Trigger, deps.HealthCheck)

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	if deps.RateLimiter != nil {
		r.With(deps.RateLimiter.Middleware()).Post("/reconcile", h.Reconcile)
	} else {
		r.Post("/reconcile", h.Reconcile)
	}

	return r
}
