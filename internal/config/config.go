package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env         string
	HTTPAddr    string
	BaseURL     string
	DataDir     string
	DatabaseURL string
	CatalogFile string
	Currency    string
	JWTSecret   string
	Zitopay     ZitopayConfig
	Reloadly    ReloadlyConfig
	Admin       AdminConfig
	S3          S3Config
	Logging     LoggingConfig
}

type ZitopayConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
}

type ReloadlyConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TopupURL     string
	Audience     string
	OperatorIDs  map[string]int64
}

type AdminConfig struct {
	Login    string
	Password string
	PassHash string
}

type S3Config struct {
	Endpoint       string
	PublicEndpoint string
	Bucket         string
	AccessKey      string
	SecretKey      string
	Region         string
	UseSSL         bool
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

func Load() (*Config, error) {
	addr := getenv("HTTP_ADDR", ":8080")
	cfg := &Config{
		Env:         getenv("APP_ENV", "dev"),
		HTTPAddr:    addr,
		BaseURL:     getenv("BASE_URL", "http://localhost"+addr),
		DataDir:     getenv("DATA_DIR", "data"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		CatalogFile: os.Getenv("CATALOG_FILE"),
		Currency:    getenv("CURRENCY", "XAF"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		Zitopay: ZitopayConfig{
			BaseURL:       getenv("ZITOPAY_API", "https://api.zitopay.africa"),
			APIKey:        os.Getenv("ZITOPAY_KEY"),
			WebhookSecret: os.Getenv("ZITOPAY_WEBHOOK_SECRET"),
		},
		Reloadly: ReloadlyConfig{
			ClientID:     os.Getenv("RELOADLY_CLIENT_ID"),
			ClientSecret: os.Getenv("RELOADLY_CLIENT_SECRET"),
			AuthURL:      getenv("RELOADLY_AUTH_URL", "https://auth.reloadly.com/oauth/token"),
			TopupURL:     getenv("RELOADLY_TOPUP_URL", "https://topups.reloadly.com"),
			Audience:     getenv("RELOADLY_AUDIENCE", "https://topups.reloadly.com"),
			OperatorIDs:  parseOperatorIDs(os.Getenv("RELOADLY_OPERATOR_IDS")),
		},
		Admin: AdminConfig{
			Login:    getenv("ADMIN_LOGIN", "admin"),
			Password: os.Getenv("ADMIN_PASSWORD"),
			PassHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		S3: S3Config{
			Endpoint:       os.Getenv("S3_ENDPOINT"),
			PublicEndpoint: os.Getenv("S3_PUBLIC_ENDPOINT"),
			Bucket:         os.Getenv("S3_BUCKET"),
			AccessKey:      os.Getenv("S3_ACCESS_KEY"),
			SecretKey:      os.Getenv("S3_SECRET_KEY"),
			Region:         getenv("S3_REGION", "us-east-1"),
			UseSSL:         getenvBool("S3_USE_SSL", true),
		},
		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "text"),
			File:   os.Getenv("LOG_FILE"),
		},
	}

	if cfg.Zitopay.APIKey == "" {
		return nil, fmt.Errorf("ZITOPAY_KEY is required")
	}
	if cfg.Reloadly.ClientID == "" || cfg.Reloadly.ClientSecret == "" {
		return nil, fmt.Errorf("RELOADLY_CLIENT_ID and RELOADLY_CLIENT_SECRET are required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

// parseOperatorIDs parses "MTN:123,Orange:456" style overrides for the
// network to Reloadly operator id mapping.
func parseOperatorIDs(val string) map[string]int64 {
	out := make(map[string]int64)
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		network, raw, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			continue
		}
		out[strings.TrimSpace(network)] = id
	}
	return out
}
