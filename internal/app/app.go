package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/feastverse/backend/internal/auth"
	"github.com/feastverse/backend/internal/config"
	"github.com/feastverse/backend/internal/database"
	"github.com/feastverse/backend/internal/email"
	"github.com/feastverse/backend/internal/handler"
	"github.com/feastverse/backend/internal/logger"
	"github.com/feastverse/backend/internal/media"
	"github.com/feastverse/backend/internal/metrics"
	"github.com/feastverse/backend/internal/middleware"
	"github.com/feastverse/backend/internal/order"
	"github.com/feastverse/backend/internal/rating"
	"github.com/feastverse/backend/internal/reel"
	"github.com/feastverse/backend/internal/repository"
	"github.com/feastverse/backend/internal/restaurant"
	"github.com/feastverse/backend/internal/review"
	"github.com/feastverse/backend/internal/security"
	"github.com/feastverse/backend/internal/story"
	"github.com/feastverse/backend/internal/user"
	"github.com/feastverse/backend/internal/worker/cleanup"
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

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newMailer はメール送信の有効・無効に応じたSenderを返す。
func newMailer(cfg *config.Config, collector *metrics.Collector) email.Sender {
	if !cfg.EmailsEnabled {
		return email.NopSender{}
	}
	sender := email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
	})
	return email.NewInstrumentedSender(sender, collector)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. メディアストレージの初期化
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	s3Storage, err := media.NewS3Storage(ctx, media.S3Config{
		AccessKey: cfg.MediaAccessKey,
		SecretKey: cfg.MediaSecretKey,
		Bucket:    cfg.MediaBucket,
		Region:    cfg.MediaRegion,
		Endpoint:  cfg.MediaEndpoint,
		PublicURL: cfg.MediaPublicURL,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("failed to initialize media storage: %w", err)
	}
	storage := media.NewInstrumentedStorage(s3Storage, collector)

	// 4. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	restaurantRepo := repository.NewPostgresRestaurantRepo(db)
	reviewRepo := repository.NewPostgresReviewRepo(db)
	reelRepo := repository.NewPostgresReelRepo(db)
	storyRepo := repository.NewPostgresStoryRepo(db)
	orderRepo := repository.NewPostgresOrderRepo(db)

	// 5. 横断サービスの初期化
	sanitizer := security.NewContentSanitizer()
	mailer := newMailer(cfg, collector)
	aggregator := rating.NewAggregator(reviewRepo, restaurantRepo)

	// 6. ドメインサービスの初期化
	verifier := auth.NewGoogleVerifier(auth.GoogleVerifierConfig{
		ClientID: cfg.GoogleClientID,
	})
	tokens := auth.NewTokenService(cfg.TokenSecret, cfg.TokenTTL)
	authService := auth.NewInstrumentedService(
		auth.NewService(userRepo, verifier, tokens, mailer, slog.Default()),
		collector,
	)

	userService := user.NewService(userRepo, storage, sanitizer, mailer, slog.Default())
	restaurantService := restaurant.NewService(restaurantRepo)
	reviewService := review.NewService(reviewRepo, restaurantRepo, aggregator, sanitizer, slog.Default())
	reelService := reel.NewService(reelRepo, storage, sanitizer, slog.Default())
	storyService := story.NewService(storyRepo, storage, slog.Default())
	orderService := order.NewService(orderRepo, restaurantRepo)

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		TokenVerifier:     tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		MetricsRecorder:   collector,
		MetricsHandler:    metrics.Handler(registry),
		UploadMaxSize:     cfg.UploadMaxSize,

		AuthService: authService,
		CurrentUser: authService,

		UserService:       userService,
		RestaurantService: restaurantService,
		ReviewService:     reviewService,
		ReelService:       reelService,
		StoryService:      storyService,
		OrderService:      orderService,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UploadTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、失効ストーリーのクリーンアップループを実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. メディアストレージの初期化
	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	s3Storage, err := media.NewS3Storage(initCtx, media.S3Config{
		AccessKey: cfg.MediaAccessKey,
		SecretKey: cfg.MediaSecretKey,
		Bucket:    cfg.MediaBucket,
		Region:    cfg.MediaRegion,
		Endpoint:  cfg.MediaEndpoint,
		PublicURL: cfg.MediaPublicURL,
	})
	initCancel()
	if err != nil {
		return fmt.Errorf("failed to initialize media storage: %w", err)
	}

	// 4. クリーンアップジョブの初期化
	storyRepo := repository.NewPostgresStoryRepo(db)
	cleanupJob := cleanup.NewCleanupJob(storyRepo, s3Storage, collector, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.StoryCleanupInterval),
	)

	// クリーンアップループをメインgoroutineで実行（ブロッキング）
	cleanupJob.RunLoop(ctx, cfg.StoryCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
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
