package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DBUrl         string
	JWTSecret     string
	AllowedOrigin string
	// Remote Cart API
	RemoteCartBaseURL string
	RemoteCartTimeout time.Duration
	// DB Config
	DBMaxConns        int32
	DBMinConns        int32
	DBMaxConnIdleTime time.Duration
	// Pricing
	TaxRate          float64
	ShippingStandard float64
	ShippingExpress  float64
	FreeShippingMin  float64
	// Sync Guards
	SyncCooldown time.Duration
	// Mutation Guards
	MutationDedupWindow time.Duration
	MutationRatePerSec  float64
	MutationBurst       int
	// Sessions
	SessionTTL time.Duration
	// Business Rules
	MaxCartQuantity int
}

func LoadConfig() *Config {
	// 1. Check if a specific config file is requested via env var
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("Warning: Failed to load config file '%s': %v", configFile, err)
		} else {
			log.Printf("Loaded configuration from %s", configFile)
		}
	} else {
		// 2. Default fallback: Try loading .env (standard local dev)
		// We don't error here because in pure docker/prod envs, .env might not exist,
		// and we rely on system env vars.
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading it, relying on system env vars")
		}
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DBUrl:         getEnv("DB_DSN", ""),
		JWTSecret:     getEnv("JWT_SECRET", "default_secret_CHANGE_ME"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),

		RemoteCartBaseURL: getEnv("REMOTE_CART_BASE_URL", ""),
		RemoteCartTimeout: getDurationEnv("REMOTE_CART_TIMEOUT", 10*time.Second),

		DBMaxConns:        getInt32Env("DB_MAX_CONNS", 50),
		DBMinConns:        getInt32Env("DB_MIN_CONNS", 10),
		DBMaxConnIdleTime: getDurationEnv("DB_MAX_CONN_IDLE_TIME", time.Minute*15),

		// Pricing defaults mirror the storefront's observed values: 18% VAT,
		// standard 5.00, express 10.00, free shipping from 50.00 subtotal.
		TaxRate:          getFloatEnv("TAX_RATE", 0.18),
		ShippingStandard: getFloatEnv("SHIPPING_STANDARD", 5.00),
		ShippingExpress:  getFloatEnv("SHIPPING_EXPRESS", 10.00),
		FreeShippingMin:  getFloatEnv("FREE_SHIPPING_MIN", 50.00),

		// Sync cooldown: minimum window between two merge attempts per user
		SyncCooldown: getDurationEnv("SYNC_COOLDOWN", 5*time.Minute),

		// Mutation guards: de-dup window per (actor, productRef) plus a
		// short rate-limited cooldown after each mutation attempt
		MutationDedupWindow: getDurationEnv("MUTATION_DEDUP_WINDOW", 2*time.Second),
		MutationRatePerSec:  getFloatEnv("MUTATION_RATE_PER_SEC", 5),
		MutationBurst:       getIntEnv("MUTATION_BURST", 10),

		SessionTTL: getDurationEnv("SESSION_TTL", 30*time.Minute),

		// Business rules: 1000 max cart quantity
		MaxCartQuantity: getIntEnv("MAX_CART_QUANTITY", 1000),
	}

	cfg.Validate()
	return cfg
}

func (c *Config) Validate() {
	if c.DBUrl == "" {
		log.Fatal("CRITICAL: DB_DSN environment variable is required")
	}
	if c.RemoteCartBaseURL == "" {
		log.Fatal("CRITICAL: REMOTE_CART_BASE_URL is required")
	}
	if c.JWTSecret == "default_secret_CHANGE_ME" {
		log.Println("WARNING: Using default JWT secret. Setting up for failure in production.")
	}
	if c.TaxRate < 0 || c.TaxRate >= 1 {
		log.Fatal("CRITICAL: TAX_RATE must be a fraction in [0, 1)")
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using fallback", key)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid int for %s, using fallback", key)
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Invalid float for %s, using fallback", key)
	}
	return fallback
}
