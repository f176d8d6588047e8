package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	DatabaseURL      string // あれば最優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string
	DBMaxOpenConns   int
	DBMaxIdleConns   int

	JWTSecret string // JWT署名シークレット

	// 起動時に作る管理者
	AdminEmail    string
	AdminPassword string

	// 決済ゲートウェイ（MyFatoorah v3）
	GatewayBaseURL  string
	GatewayAPIToken string
	GatewayTimeout  time.Duration

	// コールバックURLの組み立てに使う
	PublicBaseURL   string
	DefaultCurrency string

	RedisAddr          string // 空ならメモリのセッションストア
	RedisPassword      string
	CheckoutSessionTTL time.Duration
	CatalogCacheTTL    time.Duration

	KafkaBrokers    []string // 空ならイベントは送らない
	KafkaOrderTopic string

	// /payment /checkout のIPごとの制限
	RateLimitRPS   float64
	RateLimitBurst int
}

// Loadは環境変数（.envがあれば先に読む）
func Load() (Config, error) {
	_ = godotenv.Load()

	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	maxOpen, err := atoiDefault("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return Config{}, err
	}
	maxIdle, err := atoiDefault("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return Config{}, err
	}
	gwTimeout, err := durationDefault("GATEWAY_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := durationDefault("CHECKOUT_SESSION_TTL", 2*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := durationDefault("CATALOG_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	rps, err := floatDefault("RATE_LIMIT_RPS", 5)
	if err != nil {
		return Config{}, err
	}
	burst, err := atoiDefault("RATE_LIMIT_BURST", 10)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: getenv("GO_ENV", "prod"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "storefront"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
		DBMaxOpenConns:   maxOpen,
		DBMaxIdleConns:   maxIdle,

		JWTSecret: os.Getenv("JWT_SECRET"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		GatewayBaseURL:  strings.TrimRight(os.Getenv("MYFATOORAH_BASE_URL"), "/"),
		GatewayAPIToken: os.Getenv("MYFATOORAH_API_TOKEN"),
		GatewayTimeout:  gwTimeout,

		PublicBaseURL:   strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		DefaultCurrency: getenv("DEFAULT_CURRENCY", "KWD"),

		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		CheckoutSessionTTL: sessionTTL,
		CatalogCacheTTL:    cacheTTL,

		KafkaBrokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic: getenv("KAFKA_ORDER_TOPIC", "orders.paid"),

		RateLimitRPS:   rps,
		RateLimitBurst: burst,
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GatewayBaseURL == "" {
		return Config{}, fmt.Errorf("MYFATOORAH_BASE_URL is required")
	}
	if cfg.GatewayAPIToken == "" {
		return Config{}, fmt.Errorf("MYFATOORAH_API_TOKEN is required")
	}
	if cfg.PublicBaseURL == "" {
		return Config{}, fmt.Errorf("PUBLIC_BASE_URL is required")
	}

	return cfg, nil
}

// DSN はgorm(postgres)に渡す接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// 決済後に戻ってくるURL
func (c Config) PaymentCallbackURL() string {
	return c.PublicBaseURL + "/payment/status"
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func floatDefault(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return f, nil
}

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
