package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeAPIBaseURL    string

	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseJWTSecret     string
	SupabaseStorageBucket string

	// Database
	DatabaseURL string

	// Optional infrastructure
	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string
	// KafkaPublishTimeout bounds one publish on the checkout and webhook paths.
	KafkaPublishTimeout time.Duration

	// Card catalog
	CatalogAPIBaseURL string

	// Checkout
	PublicOrigin         string
	MaxCheckoutBodyBytes int64
	CompressConcurrency  int
	UploadConcurrency    int

	// Server
	Port        string
	Environment string
	LogLevel    string
}

// Load reads configuration from the environment. When CONFIG_FILE is set the
// file is read first and environment variables override it.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		StripeAPIBaseURL:    v.GetString("STRIPE_API_BASE_URL"),

		SupabaseURL:           v.GetString("SUPABASE_URL"),
		SupabaseServiceKey:    v.GetString("SUPABASE_SERVICE_KEY"),
		SupabaseJWTSecret:     v.GetString("SUPABASE_JWT_SECRET"),
		SupabaseStorageBucket: v.GetString("SUPABASE_STORAGE_BUCKET"),

		DatabaseURL: v.GetString("DATABASE_URL"),

		RedisURL:     v.GetString("REDIS_URL"),
		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),

		KafkaPublishTimeout: v.GetDuration("KAFKA_PUBLISH_TIMEOUT"),

		CatalogAPIBaseURL: v.GetString("CATALOG_API_BASE_URL"),

		PublicOrigin:         v.GetString("PUBLIC_ORIGIN"),
		MaxCheckoutBodyBytes: v.GetInt64("MAX_CHECKOUT_BODY_BYTES"),
		CompressConcurrency:  v.GetInt("COMPRESS_CONCURRENCY"),
		UploadConcurrency:    v.GetInt("UPLOAD_CONCURRENCY"),

		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("STRIPE_API_BASE_URL", "https://api.stripe.com")
	v.SetDefault("SUPABASE_STORAGE_BUCKET", "order-images")
	v.SetDefault("KAFKA_TOPIC", "card-orders")
	v.SetDefault("KAFKA_PUBLISH_TIMEOUT", "3s")
	v.SetDefault("CATALOG_API_BASE_URL", "https://api.scryfall.com/")
	v.SetDefault("PUBLIC_ORIGIN", "http://localhost:3000")
	v.SetDefault("MAX_CHECKOUT_BODY_BYTES", int64(4.5*1024*1024))
	v.SetDefault("COMPRESS_CONCURRENCY", 3)
	v.SetDefault("UPLOAD_CONCURRENCY", 4)
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
}

func (c *Config) Validate() error {
	if c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if c.MaxCheckoutBodyBytes <= 0 {
		return fmt.Errorf("MAX_CHECKOUT_BODY_BYTES must be positive")
	}
	if c.CompressConcurrency < 1 || c.UploadConcurrency < 1 {
		return fmt.Errorf("COMPRESS_CONCURRENCY and UPLOAD_CONCURRENCY must be at least 1")
	}
	return nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
