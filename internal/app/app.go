package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/AdeChrysler/szen-bi/internal/config"
	"github.com/AdeChrysler/szen-bi/internal/database"
	"github.com/AdeChrysler/szen-bi/internal/event"
	"github.com/AdeChrysler/szen-bi/internal/handler"
	"github.com/AdeChrysler/szen-bi/internal/logger"
	"github.com/AdeChrysler/szen-bi/internal/metrics"
	"github.com/AdeChrysler/szen-bi/internal/middleware"
	"github.com/AdeChrysler/szen-bi/internal/provision"
	"github.com/AdeChrysler/szen-bi/internal/report"
	"github.com/AdeChrysler/szen-bi/internal/repository"
	"github.com/AdeChrysler/szen-bi/internal/worker/reconcile"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定する
	logger.SetupDefaultWithLevel(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// stdoutには人間向けの出力、logOutにはJSON構造化ログを書き込む。
// argsにはos.Args[1:]を渡す。
func Run(stdout, logOut io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(logOut)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.String("bot_email", cfg.BotEmail),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runProvision(cfg, stdout)
	}
}

// openStore はDB接続を開いて疎通を確認し、Storeを返す。
func openStore(ctx context.Context, cfg *config.Config) (*sql.DB, *repository.SQLStore, error) {
	db, driver, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established", slog.String("driver", string(driver)))

	return db, repository.NewSQLStore(db, driver), nil
}

// newProvisioner は設定からProvisionerを構築する。
func newProvisioner(cfg *config.Config, store repository.Store, sink event.Sink) *provision.Provisioner {
	return provision.NewProvisioner(store, provision.Config{
		Identity:            cfg.IdentitySpec(),
		Role:                cfg.BotRole,
		Description:         cfg.TokenDescription,
		FallbackDescription: cfg.FallbackTokenDescription(),
	}, sink)
}

// runProvision は調整処理を1回実行し、経過と結果をstdoutに出力する。
// METRICS_TEXTFILEが設定されている場合は実行結果のメトリクスを書き出す。
func runProvision(cfg *config.Config, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	console := report.NewConsole(stdout, cfg.BotDisplayName)
	console.Header()

	db, store, err := openStore(ctx, cfg)
	if err != nil {
		console.Failure(err)
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	sink := event.Multi(console, event.NewLogSink(slog.Default()), collector)

	start := time.Now()
	res, err := newProvisioner(cfg, store, sink).Run(ctx)
	duration := time.Since(start)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	collector.RecordRun(outcome, duration)
	writeMetricsTextfile(cfg.MetricsTextfile, reg)

	if err != nil {
		console.Failure(err)
		return err
	}

	console.Summary(res)
	slog.Info("provisioning complete",
		slog.String("bot_user_id", res.IdentityID),
		slog.Int("workspaces", res.Workspaces),
		slog.Int("projects", res.Projects),
		slog.Bool("identity_created", res.IdentityCreated),
		slog.Bool("normalized", res.Normalized),
		slog.Bool("fallback_token", res.FallbackToken),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	return nil
}

func writeMetricsTextfile(path string, gatherer prometheus.Gatherer) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path, gatherer); err != nil {
		slog.Error("failed to export metrics", slog.String("error", err.Error()))
	}
}

// runWorker はワーカーモードで起動する。
// 調整処理を定期実行し、/health、/metrics、POST /reconcile を提供する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runWorker(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. DB接続
	db, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 3. 調整処理とスケジューラ
	appLogger := slog.Default()
	provisioner := newProvisioner(cfg, store, event.Multi(event.NewLogSink(appLogger), collector))
	scheduler := reconcile.NewScheduler(provisioner, collector, appLogger, cfg.ReconcileMinGap)

	// 4. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのRateLimitReconcileはreq/min単位なのでreq/secに変換する
	if cfg.RateLimitReconcile > 0 {
		rateLimiterCfg.Rate = rate.Limit(float64(cfg.RateLimitReconcile) / 60.0)
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:      appLogger,
		HealthCheck: db,
		Trigger:     scheduler,
		RateLimiter: rateLimiter,
		Gatherer:    reg,
		Observer:    collector,
	})

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("worker HTTP server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			stop()
		}
	}()

	slog.Info("worker starting",
		slog.Duration("reconcile_interval", cfg.ReconcileInterval),
		slog.Duration("reconcile_min_gap", cfg.ReconcileMinGap),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.ReconcileInterval)

	slog.Info("shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	select {
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	default:
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate は開発・テスト用のスキーマを適用する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "***"
	}
	return u.Redacted()
}
