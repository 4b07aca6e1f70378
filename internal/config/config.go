package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID string

	// Token
	TokenSecret string
	TokenTTL    time.Duration

	// Media storage (S3互換オブジェクトストレージ)
	MediaAccessKey  string
	MediaSecretKey  string
	MediaBucket     string
	MediaRegion     string
	MediaEndpoint   string
	MediaPublicURL  string
	UploadTimeout   time.Duration
	UploadMaxSize   int64

	// Email
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	EmailFrom      string
	EmailFromName  string
	EmailsEnabled  bool

	// Rate Limit
	RateLimitGeneral int
	RateLimitUpload  int

	// Cleanup
	StoryCleanupInterval time.Duration

	// Server
	ServerPort string
	BaseURL    string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.TokenSecret = os.Getenv("TOKEN_SECRET")
	if cfg.TokenSecret == "" {
		missing = append(missing, "TOKEN_SECRET")
	}

	cfg.MediaAccessKey = os.Getenv("MEDIA_ACCESS_KEY")
	if cfg.MediaAccessKey == "" {
		missing = append(missing, "MEDIA_ACCESS_KEY")
	}

	cfg.MediaSecretKey = os.Getenv("MEDIA_SECRET_KEY")
	if cfg.MediaSecretKey == "" {
		missing = append(missing, "MEDIA_SECRET_KEY")
	}

	cfg.MediaBucket = os.Getenv("MEDIA_BUCKET")
	if cfg.MediaBucket == "" {
		missing = append(missing, "MEDIA_BUCKET")
	}

	cfg.MediaEndpoint = os.Getenv("MEDIA_ENDPOINT")
	if cfg.MediaEndpoint == "" {
		missing = append(missing, "MEDIA_ENDPOINT")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 720*time.Hour)
	cfg.MediaRegion = getEnvString("MEDIA_REGION", "auto")
	cfg.MediaPublicURL = getEnvString("MEDIA_PUBLIC_URL", strings.TrimSuffix(cfg.MediaEndpoint, "/")+"/"+cfg.MediaBucket)
	cfg.UploadTimeout = getEnvDuration("UPLOAD_TIMEOUT", 60*time.Second)
	cfg.UploadMaxSize = getEnvInt64("UPLOAD_MAX_SIZE", 10485760)
	cfg.SMTPHost = getEnvString("SMTP_HOST", "smtp.gmail.com")
	cfg.SMTPPort = getEnvInt("SMTP_PORT", 587)
	cfg.SMTPUser = getEnvString("SMTP_USER", "")
	cfg.SMTPPassword = getEnvString("SMTP_PASSWORD", "")
	cfg.EmailFrom = getEnvString("EMAIL_FROM", "noreply@feastverse.com")
	cfg.EmailFromName = getEnvString("EMAIL_FROM_NAME", "Feastverse")
	cfg.EmailsEnabled = getEnvBool("EMAILS_ENABLED", false)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitUpload = getEnvInt("RATE_LIMIT_UPLOAD", 10)
	cfg.StoryCleanupInterval = getEnvDuration("STORY_CLEANUP_INTERVAL", 24*time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
