package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // 指定時はPOSTGRES_*より優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string // sslmode（default disable）

	JWTSecret string // JWT署名シークレット

	BaseURL string // フロントURL（決済後のリダイレクト先）

	FlutterwaveSecretKey string // Flutterwaveシークレットキー
	PayPalMode           string // sandbox/live
	PayPalClientID       string
	PayPalClientSecret   string

	RedisAddr      string        // 空なら商品キャッシュ無効
	GatewayTimeout time.Duration // プロバイダHTTPのタイムアウト
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: os.Getenv("PORT"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresSSLMode:  os.Getenv("POSTGRES_SSLMODE"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		BaseURL: os.Getenv("BASE_URL"),

		FlutterwaveSecretKey: os.Getenv("FLUTTERWAVE_SECRET_KEY"),
		PayPalMode:           os.Getenv("PAYPAL_MODE"),
		PayPalClientID:       os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalClientSecret:   os.Getenv("PAYPAL_CLIENT_SECRET"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
	}

	//DATABASE_URLが無い場合はPOSTGRES_*一式が必須
	if cfg.DatabaseURL == "" {
		pgPort, err := mustAtoi("POSTGRES_PORT")
		if err != nil {
			return Config{}, err
		}
		cfg.PostgresPort = pgPort

		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.PostgresPassword == "" {
			return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
		if cfg.PostgresHost == "" {
			return Config{}, fmt.Errorf("POSTGRES_HOST is required")
		}
		if cfg.PostgresSSLMode == "" {
			cfg.PostgresSSLMode = "disable"
		}
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("BASE_URL is required")
	}
	if cfg.FlutterwaveSecretKey == "" {
		return Config{}, fmt.Errorf("FLUTTERWAVE_SECRET_KEY is required")
	}
	if cfg.PayPalClientID == "" {
		return Config{}, fmt.Errorf("PAYPAL_CLIENT_ID is required")
	}
	if cfg.PayPalClientSecret == "" {
		return Config{}, fmt.Errorf("PAYPAL_CLIENT_SECRET is required")
	}

	if cfg.PayPalMode == "" {
		cfg.PayPalMode = "sandbox"
	}

	//タイムアウトは秒指定（default 15）
	cfg.GatewayTimeout = 15 * time.Second
	if v := os.Getenv("GATEWAY_TIMEOUT"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return Config{}, fmt.Errorf("GATEWAY_TIMEOUT must be a positive number of seconds")
		}
		cfg.GatewayTimeout = time.Duration(sec) * time.Second
	}

	return cfg, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
