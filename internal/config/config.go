// Package config provides application configuration loaded from environment
// variables (optionally seeded from a .env file) with defaults and validation.
// It centralizes settings for the HTTP bridge, logging, the SQLite store,
// blob storage, payment backends, exchange-rate quoting, chat notifications,
// rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-storefront")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StorageConfig selects and configures the product blob store.
type StorageConfig struct {
	Driver      string // local|s3
	ProductsDir string // root directory for the local driver

	S3Bucket          string
	S3Region          string
	S3Endpoint        string // optional, S3-compatible services
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// PaymentConfig holds feature flags and credentials for payment backends.
// A backend is only registered in the catalog when its flag is on.
type PaymentConfig struct {
	DebugMode bool // registers TestPayment

	UseYooMoney    bool
	YooMoneyToken  string
	YooMoneyWallet string
	YooMoneyAPIURL string

	UseHeleket      bool
	HeleketMerchant string
	HeleketAPIKey   string
	HeleketBaseURL  string

	Attempts        int           // default poll budget per session
	Delay           time.Duration // default sleep between checks
	HeleketAttempts int           // crypto invoices are slower to settle

	// CheckFailureLimit aborts a session after this many consecutive failed
	// status checks. Zero disables the limit.
	CheckFailureLimit int

	// GatewayTimeout bounds every outbound gateway and exchange-rate call.
	GatewayTimeout time.Duration
}

// QuoteConfig configures the exchange-rate lookup and its optional cache.
type QuoteConfig struct {
	SettlementCurrency string
	RateBaseURL        string
	CacheTTL           time.Duration

	RedisAddr     string // empty disables caching
	RedisPassword string
	RedisDB       int
}

// ChatConfig configures the outbound notification bridge and admin access.
type ChatConfig struct {
	WebhookURL     string // empty -> notifications are only logged
	WebhookTimeout time.Duration
	AdminToken     string // required for /admin routes
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 60s (downloads)
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	MaxUploadBytes    int64         // admin product archive cap
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Store
	DBPath string // SQLite path

	Storage StorageConfig
	Payment PaymentConfig
	Quote   QuoteConfig
	Chat    ChatConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	CORS CORSConfig

	// Observability
	OTEL OTELConfig
}

// LoadDotEnv seeds the process environment from the given .env files.
// Variables already present in the environment win. Missing files are
// ignored so production deployments can rely on the real environment only.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return err
		}
	}
	return nil
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxUploadBytes:    int64(getint("MAX_UPLOAD_BYTES", 50<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DBPath: getenv("DB_PATH", "db.sqlite3"),

		Storage: StorageConfig{
			Driver:            strings.ToLower(getenv("STORAGE_DRIVER", "local")),
			ProductsDir:       getenv("PRODUCTS_DIR", "."),
			S3Bucket:          getenv("S3_BUCKET_NAME", ""),
			S3Region:          getenv("S3_REGION", "us-east-1"),
			S3Endpoint:        getenv("S3_ENDPOINT_URL", ""),
			S3AccessKeyID:     getenv("S3_ACCESS_KEY_ID", ""),
			S3SecretAccessKey: getenv("S3_SECRET_ACCESS_KEY", ""),
		},

		Payment: PaymentConfig{
			DebugMode:         getbool("DEBUG_MODE", false),
			UseYooMoney:       getbool("USE_YOOMONEY", false),
			YooMoneyToken:     getenv("YOOMONEY_TOKEN", ""),
			YooMoneyWallet:    getenv("YOOMONEY_WALLET", ""),
			YooMoneyAPIURL:    strings.TrimRight(getenv("YOOMONEY_API_URL", "https://yoomoney.ru"), "/"),
			UseHeleket:        getbool("USE_HELEKET", false),
			HeleketMerchant:   getenv("HELEKET_MERCHANT_UUID", ""),
			HeleketAPIKey:     getenv("HELEKET_API_KEY", ""),
			HeleketBaseURL:    strings.TrimRight(getenv("HELEKET_BASE_URL", "https://api.heleket.com"), "/"),
			Attempts:          getint("PAYMENT_ATTEMPTS", 100),
			Delay:             getdur("PAYMENT_DELAY", 3*time.Second),
			HeleketAttempts:   getint("HELEKET_ATTEMPTS", 1200),
			CheckFailureLimit: getint("CHECK_FAILURE_LIMIT", 10),
			GatewayTimeout:    getdur("GATEWAY_TIMEOUT", 15*time.Second),
		},

		Quote: QuoteConfig{
			SettlementCurrency: strings.ToUpper(getenv("SETTLEMENT_CURRENCY", "RUB")),
			RateBaseURL:        strings.TrimRight(getenv("RATE_BASE_URL", "https://api.heleket.com"), "/"),
			CacheTTL:           getdur("QUOTE_CACHE_TTL", time.Minute),
			RedisAddr:          getenv("REDIS_ADDR", ""),
			RedisPassword:      getenv("REDIS_PASSWORD", ""),
			RedisDB:            getint("REDIS_DB", 0),
		},

		Chat: ChatConfig{
			WebhookURL:     getenv("CHAT_WEBHOOK_URL", ""),
			WebhookTimeout: getdur("CHAT_WEBHOOK_TIMEOUT", 5*time.Second),
			AdminToken:     getenv("ADMIN_TOKEN", ""),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-storefront"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxUploadBytes <= 0 {
		return cfg, errors.New("MAX_UPLOAD_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	switch cfg.Storage.Driver {
	case "local":
		if strings.TrimSpace(cfg.Storage.ProductsDir) == "" {
			return cfg, errors.New("PRODUCTS_DIR must not be empty")
		}
	case "s3":
		if cfg.Storage.S3Bucket == "" {
			return cfg, errors.New("S3_BUCKET_NAME is required when STORAGE_DRIVER=s3")
		}
	default:
		return cfg, errors.New("STORAGE_DRIVER must be one of: local, s3")
	}
	if cfg.Payment.Attempts < 1 || cfg.Payment.HeleketAttempts < 1 {
		return cfg, errors.New("PAYMENT_ATTEMPTS and HELEKET_ATTEMPTS must be >= 1")
	}
	if cfg.Payment.Delay < 0 {
		return cfg, errors.New("PAYMENT_DELAY must be >= 0")
	}
	if cfg.Payment.CheckFailureLimit < 0 {
		return cfg, errors.New("CHECK_FAILURE_LIMIT must be >= 0")
	}
	if cfg.Payment.GatewayTimeout <= 0 {
		return cfg, errors.New("GATEWAY_TIMEOUT must be > 0")
	}
	if cfg.Payment.UseYooMoney && (cfg.Payment.YooMoneyToken == "" || cfg.Payment.YooMoneyWallet == "") {
		return cfg, errors.New("YOOMONEY_TOKEN and YOOMONEY_WALLET are required when USE_YOOMONEY is on")
	}
	if cfg.Payment.UseHeleket && (cfg.Payment.HeleketMerchant == "" || cfg.Payment.HeleketAPIKey == "") {
		return cfg, errors.New("HELEKET_MERCHANT_UUID and HELEKET_API_KEY are required when USE_HELEKET is on")
	}
	if len(cfg.Quote.SettlementCurrency) != 3 {
		return cfg, errors.New("SETTLEMENT_CURRENCY must be a 3-letter code")
	}
	if cfg.Quote.CacheTTL < 0 {
		return cfg, errors.New("QUOTE_CACHE_TTL must be >= 0")
	}
	if cfg.Chat.WebhookTimeout <= 0 {
		return cfg, errors.New("CHAT_WEBHOOK_TIMEOUT must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
