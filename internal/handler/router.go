package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feastverse/backend/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// メトリクス（nilの場合は無効）
	MetricsRecorder middleware.HTTPMetricsRecorder
	MetricsHandler  http.Handler

	// アップロードサイズ上限（バイト）
	UploadMaxSize int64

	// 認証
	AuthService AuthServiceInterface

	// ユーザー
	UserService UserServiceInterface
	CurrentUser CurrentUserGetter

	// レストラン
	RestaurantService RestaurantServiceInterface

	// レビュー
	ReviewService ReviewServiceInterface

	// リール
	ReelService ReelServiceInterface

	// ストーリー
	StoryService StoryServiceInterface

	// 注文
	OrderService OrderServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → Auth → RateLimit(General)
//
// 認証ルート（/auth/*）とヘルスチェックは認証ミドルウェアの外に配置する。
// メディアアップロード系のPOSTには追加でアップロード専用レート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService, deps.CurrentUser, deps.UploadMaxSize)
	restaurantHandler := NewRestaurantHandler(deps.RestaurantService)
	reviewHandler := NewReviewHandler(deps.ReviewService)
	reelHandler := NewReelHandler(deps.ReelService, deps.UploadMaxSize)
	storyHandler := NewStoryHandler(deps.StoryService, deps.UploadMaxSize)
	orderHandler := NewOrderHandler(deps.OrderService)

	// --- 認証不要のルート ---

	liveness := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
	r.Get("/", liveness)
	r.Get("/health", liveness)

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/google-signup", authHandler.Signup)
		r.Post("/google-login", authHandler.Login)
		r.Post("/check-google-user", authHandler.CheckRegistered)
		r.Get("/check-username", authHandler.CheckUsername)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プロフィール管理
		r.Route("/api/me", func(r chi.Router) {
			r.Get("/", userHandler.Me)
			r.Patch("/", userHandler.UpdateMe)
			r.Get("/reviews", reviewHandler.ListMine)

			// POST /api/me/avatar - アバター画像（アップロード専用レート制限を追加）
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/avatar", userHandler.UploadAvatar)
		})

		// 公開プロフィール
		r.Get("/api/users/{username}", userHandler.PublicProfile)

		// レストランカタログ
		r.Route("/api/restaurants", func(r chi.Router) {
			r.Get("/", restaurantHandler.List)
			r.Post("/", restaurantHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", restaurantHandler.Get)
				r.Post("/menu-items", restaurantHandler.AddMenuItem)

				// レビュー
				r.Get("/reviews", reviewHandler.ListByRestaurant)
				r.Post("/reviews", reviewHandler.Create)

				// フォロー・購読
				r.Post("/follow", userHandler.FollowRestaurant)
				r.Delete("/follow", userHandler.UnfollowRestaurant)
				r.Post("/subscribe", userHandler.SubscribeRestaurant)
				r.Delete("/subscribe", userHandler.UnsubscribeRestaurant)
			})
		})

		// レビュー削除
		r.Delete("/api/reviews/{id}", reviewHandler.Delete)

		// リール
		r.Route("/api/reels", func(r chi.Router) {
			r.Get("/", reelHandler.List)
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/", reelHandler.Upload)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", reelHandler.Get)
				r.Delete("/", reelHandler.Delete)
				r.Post("/like", reelHandler.Like)
				r.Delete("/like", reelHandler.Unlike)
			})
		})

		// ストーリー
		r.Route("/api/stories", func(r chi.Router) {
			r.Get("/", storyHandler.ListActive)
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/", storyHandler.Upload)
		})

		// 注文
		r.Route("/api/orders", func(r chi.Router) {
			r.Post("/", orderHandler.Create)
			r.Get("/", orderHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", orderHandler.Get)
				r.Post("/advance", orderHandler.Advance)
			})
		})
	})

	return r
}
