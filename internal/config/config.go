// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// EnvDevelopment は詳細なエラー表示を有効にする実行環境名です。
	EnvDevelopment = "development"
	// EnvProduction は APP_ENV / NODE_ENV 未設定時の実行環境名です。
	EnvProduction = "production"

	// DefaultSessionSecret は開発環境で SESSION_SECRET 未設定時に使われる署名鍵です。
	// 既知の値なので本番では使用できません（Validate で拒否）。
	DefaultSessionSecret = "default_secret"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port     string // HTTPサーバーのポート番号
	Env      string // 実行環境 (development, production, test ...)
	GinMode  string // Ginの実行モード (debug, release, test)
	LogLevel string // zap のログレベル

	// データベース設定
	MongoURI      string // MongoDB接続文字列（必須）
	MongoDatabase string // 使用するデータベース名（空ならURIから決定）

	// セッション設定
	SessionSecret       string        // セッションCookie署名用の秘密鍵
	SessionCookieName   string        // セッションCookie名
	SessionCookieSecure bool          // Secure属性を付与するか
	SessionMaxAge       time.Duration // Cookieとセッションドキュメントの有効期間
	SessionCollection   string        // セッションを保存するコレクション名

	// レート制限設定
	RateLimitWindow   time.Duration // 固定ウィンドウの長さ
	RateLimitMax      int           // ウィンドウ内の最大リクエスト数
	RateLimitRedisURL string        // 空ならプロセス内メモリでカウント

	// 静的ファイル設定
	StaticDir    string        // 公開ディレクトリ
	StaticMaxAge time.Duration // Cache-Control の max-age

	// リクエストボディ設定
	BodyLimit int64 // JSON / URLエンコードボディの最大バイト数

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り、空なら無効）

	sessionSecretDefaulted bool
}

// Load は環境変数から設定を読み込みます。
// .env / .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFiles()

	env := strings.ToLower(getEnv("APP_ENV", getEnv("NODE_ENV", EnvProduction)))
	dev := env == EnvDevelopment

	config := &Config{
		// サーバー設定
		Port:     getEnv("PORT", "8080"),
		Env:      env,
		GinMode:  getEnv("GIN_MODE", pick(dev, "debug", "release")),
		LogLevel: getEnv("LOG_LEVEL", pick(dev, "debug", "info")),

		// データベース設定
		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", ""),

		// セッション設定
		SessionSecret:       getEnv("SESSION_SECRET", ""),
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "connect.sid"),
		SessionCookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", false),
		SessionMaxAge:       getEnvAsMillis("SESSION_MAX_AGE_MS", 14*24*time.Hour), // 2週間
		SessionCollection:   getEnv("SESSION_COLLECTION", "sessions"),

		// レート制限設定
		RateLimitWindow:   getEnvAsMillis("RATE_LIMIT_WINDOW_MS", 15*time.Minute),
		RateLimitMax:      getEnvAsInt("RATE_LIMIT_MAX", 100),
		RateLimitRedisURL: getEnv("RATE_LIMIT_REDIS_URL", ""),

		// 静的ファイル設定
		StaticDir:    getEnv("STATIC_DIR", "public"),
		StaticMaxAge: getEnvAsMillis("STATIC_MAX_AGE_MS", 31557600000*time.Millisecond), // 365.25日

		// リクエストボディ設定
		BodyLimit: getEnvAsInt64("BODY_LIMIT_BYTES", 100*1024),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
	}

	// 開発環境に限り既知の署名鍵へフォールバックする
	if config.SessionSecret == "" && dev {
		config.SessionSecret = DefaultSessionSecret
		config.sessionSecretDefaulted = true
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFiles() {
	// godotenv.Load は既存の環境変数を上書きしないため、先に読んだファイルが優先される
	for _, name := range []string{".env.local", ".env"} {
		_ = godotenv.Load(name)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
// MONGODB_URI の欠落はここでは扱わず、データベース接続時に致命的エラーとなります。
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric: %q", c.Port)
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required outside development")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_MS must be positive")
	}
	if c.RateLimitMax <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive")
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE_MS must be positive")
	}
	if c.BodyLimit <= 0 {
		return fmt.Errorf("BODY_LIMIT_BYTES must be positive")
	}
	return nil
}

// IsDevelopment は詳細なエラー表示を行う環境かどうかを返します。
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// SessionSecretIsDefault は既知の署名鍵にフォールバックしたかどうかを返します。
func (c *Config) SessionSecretIsDefault() bool {
	return c.sessionSecretDefaulted
}

// Addr は http.Server に渡す待ち受けアドレスです。
func (c *Config) Addr() string {
	return ":" + c.Port
}

// AllowedOrigins は CORS 許可オリジンを配列で返します。
func (c *Config) AllowedOrigins() []string {
	if strings.TrimSpace(c.CORSAllowedOrigins) == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 は環境変数を64ビット整数として取得します。
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsMillis はミリ秒で指定された環境変数を time.Duration として取得します。
func getEnvAsMillis(key string, defaultValue time.Duration) time.Duration {
	ms := getEnvAsInt64(key, -1)
	if ms < 0 {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
