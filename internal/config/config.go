package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the agent.
type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Face     FaceConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// BackendConfig points at the remote REST backend and bounds each call class.
type BackendConfig struct {
	BaseURL                string
	TimeoutSeconds         int
	ExchangeTimeoutSeconds int
	CompareTimeoutSeconds  int
}

// FaceConfig tunes roster matching.
type FaceConfig struct {
	Threshold          float64
	CompareRatePerSec  float64
	UploadDir          string
	MaxUploadSizeBytes int
}

// StoreConfig selects the credential store backend.
type StoreConfig struct {
	Driver    string
	Namespace string
	FilePath  string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int
	MinConns       int
	RunMigrations  bool
	ConnMaxIdleSec int
	ConnMaxLifeSec int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig configures the development backend's token issuer.
type AuthConfig struct {
	DevFakeBackend        bool
	JWTSecret             string
	AccessTokenTTLMinutes int
}

const (
	StoreDriverMemory   = "memory"
	StoreDriverFile     = "file"
	StoreDriverRedis    = "redis"
	StoreDriverPostgres = "postgres"

	// DevBackendPrefix is where the development backend is mounted on the agent.
	DevBackendPrefix = "/dev-backend"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	threshold, err := strconv.ParseFloat(getEnv("FACE_MATCH_THRESHOLD", "80"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid FACE_MATCH_THRESHOLD: %w", err)
	}

	rate, err := strconv.ParseFloat(getEnv("FACE_COMPARE_RATE_PER_SECOND", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid FACE_COMPARE_RATE_PER_SECOND: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "faceauth-agent"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "127.0.0.1"),
			Port:                  getEnv("APP_PORT", "8787"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Backend: BackendConfig{
			BaseURL:                strings.TrimRight(os.Getenv("BACKEND_BASE_URL"), "/"),
			TimeoutSeconds:         getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 10),
			ExchangeTimeoutSeconds: getEnvAsInt("EXCHANGE_TIMEOUT_SECONDS", 15),
			CompareTimeoutSeconds:  getEnvAsInt("COMPARE_TIMEOUT_SECONDS", 20),
		},
		Face: FaceConfig{
			Threshold:          threshold,
			CompareRatePerSec:  rate,
			UploadDir:          getEnv("FACE_UPLOAD_DIR", os.TempDir()),
			MaxUploadSizeBytes: getEnvAsInt("FACE_MAX_UPLOAD_BYTES", 8<<20),
		},
		Store: StoreConfig{
			Driver:    strings.ToLower(getEnv("STORE_DRIVER", StoreDriverMemory)),
			Namespace: getEnv("STORE_NAMESPACE", "default"),
			FilePath:  getEnv("STORE_FILE_PATH", "data/credentials.json"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       getEnvAsInt("POSTGRES_MAX_CONNS", 4),
			MinConns:       getEnvAsInt("POSTGRES_MIN_CONNS", 1),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30),
			ConnMaxLifeSec: getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			DevFakeBackend:        getEnvAsBool("DEV_FAKE_BACKEND", false),
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the agent cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Face.Threshold < 0 || c.Face.Threshold > 100 {
		errs = append(errs, fmt.Errorf("FACE_MATCH_THRESHOLD must be within 0-100, got %v", c.Face.Threshold))
	}
	if c.Face.CompareRatePerSec < 0 {
		errs = append(errs, errors.New("FACE_COMPARE_RATE_PER_SECOND must not be negative"))
	}
	switch c.Store.Driver {
	case StoreDriverMemory, StoreDriverFile, StoreDriverRedis:
	case StoreDriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("STORE_DRIVER=postgres requires POSTGRES_DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}
	if c.Backend.BaseURL == "" && !c.Auth.DevFakeBackend {
		errs = append(errs, errors.New("BACKEND_BASE_URL is required unless DEV_FAKE_BACKEND=true"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// BackendURL returns the remote backend base URL, falling back to the
// development backend mounted on the agent itself.
func (c *Config) BackendURL() string {
	if c.Backend.BaseURL != "" || !c.Auth.DevFakeBackend {
		return c.Backend.BaseURL
	}
	return "http://" + c.App.Addr() + DevBackendPrefix
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	return seconds(a.RequestTimeoutSeconds)
}

// Timeout bounds plain REST calls such as roster listing.
func (b BackendConfig) Timeout() time.Duration { return seconds(b.TimeoutSeconds) }

// ExchangeTimeout bounds a face-login exchange.
func (b BackendConfig) ExchangeTimeout() time.Duration { return seconds(b.ExchangeTimeoutSeconds) }

// CompareTimeout bounds one compare-faces call.
func (b BackendConfig) CompareTimeout() time.Duration { return seconds(b.CompareTimeoutSeconds) }

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
