package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hitoshi/timesheet/internal/auth"
	"github.com/hitoshi/timesheet/internal/config"
	"github.com/hitoshi/timesheet/internal/database"
	"github.com/hitoshi/timesheet/internal/events"
	"github.com/hitoshi/timesheet/internal/handler"
	"github.com/hitoshi/timesheet/internal/logger"
	"github.com/hitoshi/timesheet/internal/metrics"
	"github.com/hitoshi/timesheet/internal/middleware"
	"github.com/hitoshi/timesheet/internal/project"
	"github.com/hitoshi/timesheet/internal/repository"
	"github.com/hitoshi/timesheet/internal/security"
	"github.com/hitoshi/timesheet/internal/seed"
	"github.com/hitoshi/timesheet/internal/stats"
	"github.com/hitoshi/timesheet/internal/timeentry"
	"github.com/hitoshi/timesheet/internal/user"
	"github.com/hitoshi/timesheet/internal/worker/cleanup"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルでログを再設定する
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMでコンテキストがキャンセルされる。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd(w)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func logStartup(cfg *config.Config, command Command) {
	slog.Info("starting application",
		slog.String("command", string(command)),
		slog.String("backend", cfg.DataBackend),
		slog.String("port", cfg.ServerPort),
		slog.String("timezone", cfg.Location.String()),
	)
}

// components はサブコマンド間で共有する依存関係。
type components struct {
	store     repository.Store
	db        *sql.DB // メモリバックエンドではnil
	registry  *prometheus.Registry
	collector *metrics.Collector
	publisher events.Publisher
	emitter   *events.Emitter
	sanitizer security.TextSanitizer
}

// buildComponents はストア・メトリクス・イベント発行の依存関係を構築する。
func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	store, db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	publisher := openPublisher(ctx, cfg)

	return &components{
		store:     store,
		db:        db,
		registry:  registry,
		collector: collector,
		publisher: publisher,
		emitter:   events.NewEmitter(publisher, collector, slog.Default()),
		sanitizer: security.NewTextSanitizer(),
	}, nil
}

// Close は保持している接続を解放する。
func (c *components) Close() {
	if err := c.publisher.Close(); err != nil {
		slog.Warn("failed to close event publisher", slog.String("error", err.Error()))
	}
	if err := c.store.Close(); err != nil {
		slog.Warn("failed to close store", slog.String("error", err.Error()))
	}
}

// openStore は設定されたバックエンドのストアを開く。
// SQLバックエンドでは未適用のマイグレーションを適用してから返す。
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, *sql.DB, error) {
	switch cfg.DataBackend {
	case config.BackendPostgres:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)
		return repository.NewPostgresStore(db), db, nil

	case config.BackendSQLite:
		if err := database.RunSQLiteMigrations(cfg.SQLitePath); err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established", slog.String("sqlite_path", cfg.SQLitePath))
		return repository.NewSQLiteStore(db), db, nil

	default:
		return repository.NewMemoryStore(), nil, nil
	}
}

// openPublisher はAMQP_URLが設定されていればブローカーに接続する。
// ブローカーの起動待ちのため指数バックオフで再試行し、
// それでも接続できない場合はイベントを送らずに起動を続ける。
func openPublisher(ctx context.Context, cfg *config.Config) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.NoopPublisher{}
	}

	p, err := events.Connect(ctx, events.DefaultRetryPolicy(), func() (events.Publisher, error) {
		return events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	}, slog.Default())
	if err != nil {
		slog.Error("event publisher unavailable, continuing without events",
			slog.String("exchange", cfg.AMQPExchange),
			slog.String("error", err.Error()),
		)
		return events.NoopPublisher{}
	}

	slog.Info("event publisher connected",
		slog.String("exchange", cfg.AMQPExchange),
		slog.String("queue", cfg.AMQPQueue),
	)
	return p
}

// rateLimiterConfig は設定のreq/minをreq/secに変換したレート制限設定を返す。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlCfg := middleware.DefaultRateLimiterConfig()
	rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rlCfg.GeneralBurst = cfg.RateLimitGeneral
	rlCfg.WriteRate = rate.Limit(float64(cfg.RateLimitWrite) / 60.0)
	rlCfg.WriteBurst = cfg.RateLimitWrite
	return rlCfg
}

// newRouter はドメインサービスを組み立ててHTTPハンドラーを返す。
func newRouter(cfg *config.Config, c *components, rl *middleware.RateLimiter) (http.Handler, error) {
	provider, err := auth.NewProvider(cfg.AuthProvider)
	if err != nil {
		return nil, err
	}

	projects := c.store.Projects()
	timeEntries := c.store.TimeEntries()
	users := c.store.Users()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rl,
		AuthProvider:      provider,
		HTTPMetrics:       c.collector,
		MetricsHandler:    metrics.Handler(c.registry),
		Location:          cfg.Location,

		ProjectService:   project.NewService(projects, c.sanitizer, c.emitter, c.collector),
		TimeEntryService: timeentry.NewService(timeEntries, projects, users, c.sanitizer, c.emitter, c.collector),
		StatsService:     stats.NewService(c.store, cfg.DefaultHourlyRate, cfg.Location, c.collector),
		UserService:      user.NewService(users),
		Health:           c.store,
	}

	return handler.NewRouter(deps), nil
}

// runServe はAPIサーバーモードで起動する。
// ストアを開き、全依存関係をワイヤリングし、HTTPサーバーとクリーンアップジョブを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	// サンプルデータの投入に失敗してもAPIは提供する
	if cfg.SeedOnStart {
		if _, err := seed.NewSeeder(c.store, slog.Default()).Run(ctx); err != nil {
			slog.Error("seeding failed, continuing without sample data",
				slog.String("error", err.Error()),
			)
		}
	}

	rl := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rl.Stop()

	router, err := newRouter(cfg, c, rl)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("API server starting", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down API server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		slog.Info("API server stopped gracefully")
		return nil
	})

	// メモリバックエンドはプロジェクト削除時に工数記録も消すため孤立行が生じない
	if c.db != nil {
		job := cleanup.NewCleanupJob(c.db, slog.Default(), c.collector)
		g.Go(func() error {
			job.Start(gctx, cfg.CleanupInterval)
			return nil
		})
	}

	return g.Wait()
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	switch cfg.DataBackend {
	case config.BackendPostgres:
		slog.Info("running database migrations",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case config.BackendSQLite:
		slog.Info("running database migrations", slog.String("sqlite_path", cfg.SQLitePath))
		if err := database.RunSQLiteMigrations(cfg.SQLitePath); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	default:
		slog.Info("memory backend has no schema, nothing to migrate")
		return nil
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed は設定されたバックエンドにサンプルデータを投入する。
func runSeed(ctx context.Context, cfg *config.Config, out io.Writer) error {
	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := seed.NewSeeder(c.store, slog.Default()).Run(ctx)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	fmt.Fprintf(out, "seeded %d users, %d projects, %d time entries\n", res.Users, res.Projects, res.TimeEntries)
	return nil
}

// runCleanup は孤立工数記録の削除を1回実行し、削除件数を出力する。
func runCleanup(ctx context.Context, cfg *config.Config, out io.Writer) error {
	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if c.db == nil {
		slog.Info("memory backend keeps no orphaned time entries, skipping cleanup")
		fmt.Fprintln(out, "deleted 0 orphaned time entries")
		return nil
	}

	deleted, err := cleanup.NewCleanupJob(c.db, slog.Default(), c.collector).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "deleted %d orphaned time entries\n", deleted)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
