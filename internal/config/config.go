// Package config provides environment configuration for the quoting service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/capitalize-ai/quote-assistant/internal/pricing"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreNATS   = "nats"
	StoreRedis  = "redis"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment name; "development" switches to console logging.
	Env string

	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	CORSOrigins        []string

	// NATS settings
	NATSEnabled  bool
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string
	NATSKVBucket string

	// JWT settings
	JWTSecret string

	// LLM settings
	AnthropicAPIKey   string
	OpenAIAPIKey      string
	DefaultLLM        string
	ExtractionModel   string
	ExtractionTimeout time.Duration

	// Conversation store
	StoreDriver     string
	ConversationTTL time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	// Catalog
	CatalogPath     string
	CatalogCacheTTL time.Duration

	// Pricing
	TaxRate               float64
	ShippingFlat          float64
	ShippingPerUnit       float64
	FreeShippingThreshold float64
	SetupFeePerSKU        float64
	Currency              string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Env: getEnv("ENV", "production"),

		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
		CORSOrigins:        getListEnv("CORS_ORIGINS", []string{"https://*", "http://*"}),

		// NATS
		NATSEnabled:  getBoolEnv("NATS_ENABLED", true),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),
		NATSKVBucket: getEnv("NATS_KV_BUCKET", "QUOTE_CONVERSATIONS"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// LLM
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		DefaultLLM:        getEnv("DEFAULT_LLM", "anthropic"),
		ExtractionModel:   getEnv("EXTRACTION_MODEL", ""),
		ExtractionTimeout: getDurationEnv("EXTRACTION_TIMEOUT", 8*time.Second),

		// Conversation store
		StoreDriver:     strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		ConversationTTL: getDurationEnv("CONVERSATION_TTL", 7*24*time.Hour),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getIntEnv("REDIS_DB", 0),

		// Catalog
		CatalogPath:     getEnv("CATALOG_PATH", "configs/catalog.yaml"),
		CatalogCacheTTL: getDurationEnv("CATALOG_CACHE_TTL", 5*time.Minute),

		// Pricing
		TaxRate:               getFloatEnv("TAX_RATE", 0),
		ShippingFlat:          getFloatEnv("SHIPPING_FLAT", 0),
		ShippingPerUnit:       getFloatEnv("SHIPPING_PER_UNIT", 0),
		FreeShippingThreshold: getFloatEnv("FREE_SHIPPING_THRESHOLD", 0),
		SetupFeePerSKU:        getFloatEnv("SETUP_FEE_PER_SKU", 0),
		Currency:              getEnv("CURRENCY", "USD"),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// PricingRules returns the pricing rules configured for the engine, with
// the standard volume discounts.
func (c *Config) PricingRules() pricing.Rules {
	rules := pricing.DefaultRules()
	rules.TaxRate = c.TaxRate
	rules.ShippingFlat = c.ShippingFlat
	rules.ShippingPerUnit = c.ShippingPerUnit
	rules.FreeShippingThreshold = c.FreeShippingThreshold
	rules.SetupFeePerSKU = c.SetupFeePerSKU
	rules.Currency = c.Currency
	return rules
}

// IsDevelopment reports whether the service runs in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
