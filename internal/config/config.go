package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs-labo46/ec-shop-api/internal/gateway"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Configはアプリ全体の設定
type Config struct {
	Port string `envconfig:"PORT" default:"8080"` // サーバーポート

	// DATABASE_URLがあればPOSTGRES_*より優先
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"postgres"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"app"`
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	JWTSecret    string        `envconfig:"JWT_SECRET" required:"true"` // JWT署名シークレット
	JWTAccessTTL time.Duration `envconfig:"JWT_ACCESS_TTL" default:"24h"`

	// 決済ゲートウェイ（Stripe）
	StripeSecretKey string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	Currency        string `envconfig:"PAYMENT_CURRENCY" default:"usd"`

	GoEnv       string `envconfig:"GO_ENV" default:"dev"` // dev/prod
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"ec-shop-api"`
}

// Loadは.envを読んでから環境変数をConfigに詰める。
// .envが無いのはエラーにしない。
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}

	if cfg.JWTAccessTTL <= 0 {
		return Config{}, fmt.Errorf("JWT_ACCESS_TTL must be positive")
	}

	cfg.Currency = strings.ToLower(strings.TrimSpace(cfg.Currency))
	if _, err := gateway.MinorUnitExponent(cfg.Currency); err != nil {
		return Config{}, fmt.Errorf("PAYMENT_CURRENCY: %w", err)
	}
	return cfg, nil
}

// PostgresDSN はDATABASE_URLが無いときの接続文字列。
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// Addr は":8080"形式のlisten addressを返す。
func (c Config) Addr() string {
	if c.Port == "" {
		return ":8080"
	}
	if c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}
