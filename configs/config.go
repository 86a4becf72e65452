package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Persistence PersistenceConfig
	Cache       CacheConfig
	Queue       QueueConfig
	Sync        SyncConfig
	Network     NetworkConfig
	JWT         JWTConfig
	Admin       AdminConfig
	Email       EmailConfig
	Webhook     WebhookConfig
	Metrics     MetricsConfig
	Log         LogConfig
}

type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	TLSCertFile     string
	TLSKeyFile      string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string // empty applies the embedded migrations
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

// Persistence backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
)

type PersistenceConfig struct {
	Backend         string
	BadgerPath      string
	SQLitePath      string
	NamespacePrefix string
}

type CacheConfig struct {
	MaxBytes      int64
	TargetRatio   float64
	DefaultTTL    time.Duration
	SweepInterval time.Duration
}

type QueueConfig struct {
	MaxRetries int
}

type SyncConfig struct {
	Interval        time.Duration
	DispatchTimeout time.Duration
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
	SyncOnEnqueue   bool
}

// Connectivity probes.
const (
	ProbeHTTP   = "http"
	ProbeManual = "manual"
)

type NetworkConfig struct {
	Probe          string
	URL            string
	ExpectedStatus int
	PollInterval   time.Duration
	Timeout        time.Duration
}

type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

type AdminConfig struct {
	Username     string
	PasswordHash string // bcrypt
}

type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
}

type WebhookConfig struct {
	// Actions maps action types to endpoint URLs, configured as "type=url" pairs.
	Actions map[string]string
	Timeout time.Duration
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			TLSCertFile:     getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:      getEnv("TLS_KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "offline_sync"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", ""),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Persistence: PersistenceConfig{
			Backend:         strings.ToLower(getEnv("PERSISTENCE_BACKEND", BackendBadger)),
			BadgerPath:      getEnv("PERSISTENCE_BADGER_PATH", "./data/badger"),
			SQLitePath:      getEnv("PERSISTENCE_SQLITE_PATH", "./data/offline.db"),
			NamespacePrefix: getEnv("PERSISTENCE_NAMESPACE_PREFIX", "offline"),
		},
		Cache: CacheConfig{
			MaxBytes:      getInt64Env("CACHE_MAX_BYTES", 10<<20),
			TargetRatio:   getFloatEnv("CACHE_TARGET_RATIO", 0.8),
			DefaultTTL:    getDurationEnv("CACHE_DEFAULT_TTL", 24*time.Hour),
			SweepInterval: getDurationEnv("CACHE_SWEEP_INTERVAL", 5*time.Minute),
		},
		Queue: QueueConfig{
			MaxRetries: getIntEnv("QUEUE_MAX_RETRIES", 3),
		},
		Sync: SyncConfig{
			Interval:        getDurationEnv("SYNC_INTERVAL", 30*time.Second),
			DispatchTimeout: getDurationEnv("SYNC_DISPATCH_TIMEOUT", 30*time.Second),
			RetryBaseDelay:  getDurationEnv("SYNC_RETRY_BASE_DELAY", 5*time.Second),
			RetryMaxDelay:   getDurationEnv("SYNC_RETRY_MAX_DELAY", 5*time.Minute),
			SyncOnEnqueue:   getBoolEnv("SYNC_ON_ENQUEUE", true),
		},
		Network: NetworkConfig{
			Probe:          strings.ToLower(getEnv("NETWORK_PROBE", ProbeHTTP)),
			URL:            getEnv("NETWORK_PROBE_URL", "https://clients3.google.com/generate_204"),
			ExpectedStatus: getIntEnv("NETWORK_PROBE_EXPECTED_STATUS", 204),
			PollInterval:   getDurationEnv("NETWORK_POLL_INTERVAL", 10*time.Second),
			Timeout:        getDurationEnv("NETWORK_PROBE_TIMEOUT", 5*time.Second),
		},
		JWT: JWTConfig{
			Secret:         getEnv("JWT_SECRET", ""),
			Issuer:         getEnv("JWT_ISSUER", "offline-sync"),
			AccessTokenTTL: getDurationEnv("JWT_ACCESS_TTL", 15*time.Minute),
		},
		Admin: AdminConfig{
			Username:     getEnv("ADMIN_USERNAME", "admin"),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Email: EmailConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("FROM_EMAIL", "noreply@example.com"),
			FromName:       getEnv("FROM_NAME", "Offline Sync"),
		},
		Webhook: WebhookConfig{
			Actions: getMapEnv("WEBHOOK_ACTIONS"),
			Timeout: getDurationEnv("WEBHOOK_TIMEOUT", 15*time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Persistence.Backend {
	case BackendMemory, BackendRedis, BackendPostgres, BackendBadger, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("PERSISTENCE_BACKEND %q is not one of memory, redis, postgres, badger, sqlite", c.Persistence.Backend))
	}
	switch c.Network.Probe {
	case ProbeHTTP, ProbeManual:
	default:
		errs = append(errs, fmt.Errorf("NETWORK_PROBE %q is not one of http, manual", c.Network.Probe))
	}
	if c.Network.Probe == ProbeHTTP && c.Network.URL == "" {
		errs = append(errs, errors.New("NETWORK_PROBE_URL is required for the http probe"))
	}
	if c.Cache.MaxBytes <= 0 {
		errs = append(errs, errors.New("CACHE_MAX_BYTES must be positive"))
	}
	if c.Cache.TargetRatio <= 0 || c.Cache.TargetRatio > 1 {
		errs = append(errs, errors.New("CACHE_TARGET_RATIO must be in (0, 1]"))
	}
	if c.Cache.DefaultTTL <= 0 {
		errs = append(errs, errors.New("CACHE_DEFAULT_TTL must be positive"))
	}
	if c.Queue.MaxRetries < 0 {
		errs = append(errs, errors.New("QUEUE_MAX_RETRIES must not be negative"))
	}
	if c.Sync.Interval <= 0 || c.Sync.DispatchTimeout <= 0 {
		errs = append(errs, errors.New("SYNC_INTERVAL and SYNC_DISPATCH_TIMEOUT must be positive"))
	}
	if c.Sync.RetryMaxDelay < c.Sync.RetryBaseDelay {
		errs = append(errs, errors.New("SYNC_RETRY_MAX_DELAY must not be below SYNC_RETRY_BASE_DELAY"))
	}
	if c.Admin.PasswordHash != "" && c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required when ADMIN_PASSWORD_HASH is set"))
	}
	return errors.Join(errs...)
}

// AdminEnabled reports whether the protected admin routes can issue tokens.
func (c *Config) AdminEnabled() bool {
	return c.Admin.PasswordHash != "" && c.JWT.Secret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
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

// getMapEnv parses "k1=v1,k2=v2". Malformed pairs are skipped.
func getMapEnv(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(os.Getenv(key), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" || v == "" {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
