// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the warehouse database, the data lake, loading, scheduling,
// artifact storage and observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and sizes the warehouse database.
type DBConfig struct {
	Driver       string // DB_DRIVER: sqlite|postgres
	DSN          string // DB_DSN: file path for sqlite, URL/keywords for postgres
	MaxOpenConns int    // DB_MAX_OPEN_CONNS
}

// LoadConfig controls lake-to-warehouse loads.
type LoadConfig struct {
	BatchSize      int    // LOAD_BATCH_SIZE
	DetectionsPath string // DETECTIONS_PATH: detector output consumed by the pipeline
}

// ArtifactConfig points at an S3-compatible bucket, or a local directory,
// for exports. Uploads are disabled while both Endpoint and Dir are empty.
type ArtifactConfig struct {
	Dir       string // ARTIFACT_DIR, used when no endpoint is set
	Endpoint  string // ARTIFACT_ENDPOINT (host:port)
	Bucket    string // ARTIFACT_BUCKET
	AccessKey string // ARTIFACT_ACCESS_KEY
	SecretKey string // ARTIFACT_SECRET_KEY
	UseSSL    bool   // ARTIFACT_USE_SSL
	Region    string // ARTIFACT_REGION
	Prefix    string // ARTIFACT_PREFIX, prepended to every object key
}

// Enabled reports whether an artifact destination is configured.
func (a ArtifactConfig) Enabled() bool { return a.Endpoint != "" || a.Dir != "" }

// ScheduleConfig drives the cron pipeline.
type ScheduleConfig struct {
	Cron         string        // SCHEDULE_CRON, robfig/cron spec
	MaxRetries   int           // SCHEDULE_MAX_RETRIES per stage
	RetryDelay   time.Duration // SCHEDULE_RETRY_DELAY between attempts
	StageTimeout time.Duration // SCHEDULE_STAGE_TIMEOUT per attempt; 0 disables
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // loads run inside the request, so 60s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // request body cap
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DB       DBConfig
	LakeRoot string // LAKE_ROOT
	Load     LoadConfig

	// Rate limiting
	RateRPS        float64 // tokens per second (>= 0)
	RateBurst      int     // bucket size (>= 1)
	LoadRateRPS    float64 // stricter limit for POST /loads
	LoadRateBurst  int
	ClientIDHeader string // header that identifies a client for rate limiting

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a load's Idempotency-Key replays it

	Artifact ArtifactConfig
	Schedule ScheduleConfig

	// Observability
	OTEL OTELConfig
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
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DB: DBConfig{
			Driver:       strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			DSN:          getenv("DB_DSN", "data/warehouse.db"),
			MaxOpenConns: getint("DB_MAX_OPEN_CONNS", 10),
		},
		LakeRoot: getenv("LAKE_ROOT", "data"),
		Load: LoadConfig{
			BatchSize:      getint("LOAD_BATCH_SIZE", 1000),
			DetectionsPath: getenv("DETECTIONS_PATH", "data/processed/detections.json"),
		},

		// Rate limiting
		RateRPS:        getfloat("RATE_RPS", 5.0),
		RateBurst:      getint("RATE_BURST", 10),
		LoadRateRPS:    getfloat("LOAD_RATE_RPS", 0.2),
		LoadRateBurst:  getint("LOAD_RATE_BURST", 2),
		ClientIDHeader: getenv("CLIENT_ID_HEADER", "X-Client-ID"),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Artifact: ArtifactConfig{
			Dir:       getenv("ARTIFACT_DIR", ""),
			Endpoint:  getenv("ARTIFACT_ENDPOINT", ""),
			Bucket:    getenv("ARTIFACT_BUCKET", "warehouse"),
			AccessKey: getenv("ARTIFACT_ACCESS_KEY", ""),
			SecretKey: getenv("ARTIFACT_SECRET_KEY", ""),
			UseSSL:    getbool("ARTIFACT_USE_SSL", false),
			Region:    getenv("ARTIFACT_REGION", ""),
			Prefix:    strings.Trim(getenv("ARTIFACT_PREFIX", ""), "/"),
		},
		Schedule: ScheduleConfig{
			Cron:         getenv("SCHEDULE_CRON", "@daily"),
			MaxRetries:   getint("SCHEDULE_MAX_RETRIES", 2),
			RetryDelay:   getdur("SCHEDULE_RETRY_DELAY", 30*time.Second),
			StageTimeout: getdur("SCHEDULE_STAGE_TIMEOUT", 30*time.Minute),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "telegram-warehouse"),
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
	if cfg.DB.Driver == "postgresql" {
		cfg.DB.Driver = "postgres"
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
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite", "postgres":
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if strings.TrimSpace(cfg.DB.DSN) == "" {
		return cfg, errors.New("DB_DSN must not be empty")
	}
	if cfg.DB.MaxOpenConns < 0 {
		return cfg, errors.New("DB_MAX_OPEN_CONNS must be >= 0")
	}
	if strings.TrimSpace(cfg.LakeRoot) == "" {
		return cfg, errors.New("LAKE_ROOT must not be empty")
	}
	if cfg.Load.BatchSize < 1 {
		return cfg, errors.New("LOAD_BATCH_SIZE must be >= 1")
	}
	if cfg.RateRPS < 0 || cfg.LoadRateRPS < 0 {
		return cfg, errors.New("RATE_RPS and LOAD_RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 || cfg.LoadRateBurst < 1 {
		return cfg, errors.New("RATE_BURST and LOAD_RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.Artifact.Endpoint != "" && strings.TrimSpace(cfg.Artifact.Bucket) == "" {
		return cfg, errors.New("ARTIFACT_BUCKET must not be empty when ARTIFACT_ENDPOINT is set")
	}
	if strings.TrimSpace(cfg.Schedule.Cron) == "" {
		return cfg, errors.New("SCHEDULE_CRON must not be empty")
	}
	if cfg.Schedule.MaxRetries < 0 || cfg.Schedule.RetryDelay < 0 || cfg.Schedule.StageTimeout < 0 {
		return cfg, errors.New("SCHEDULE_MAX_RETRIES, SCHEDULE_RETRY_DELAY and SCHEDULE_STAGE_TIMEOUT must be >= 0")
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
