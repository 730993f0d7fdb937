package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Registrar is one configured registrar backend. The slug is the stable
// identifier domains reference; the driver selects the adapter.
type Registrar struct {
	// Slug is the registrar identifier used throughout the system
	Slug string `yaml:"slug"`
	// Driver selects the adapter implementation (logicboxes, internetbs, fake)
	Driver string `yaml:"driver"`
	// Active gates resolution; inactive registrars fail closed
	Active bool `yaml:"active"`
	// BaseURL overrides the vendor API base URL
	BaseURL string `yaml:"baseUrl"`
	// Timeout is the per-call deadline for vendor API requests
	Timeout time.Duration `yaml:"timeout"`
	// RateLimit is the per-operation call budget within RateWindow
	RateLimit int `yaml:"rateLimit"`
	// RateWindow is the sliding window the budget applies to
	RateWindow time.Duration `yaml:"rateWindow"`
	// CacheTTL overrides the idempotent-read cache TTL
	CacheTTL time.Duration `yaml:"cacheTtl"`
	// MaxNameservers overrides the vendor nameserver count bound
	MaxNameservers int `yaml:"maxNameservers"`
	// DefaultNameservers are used when a registration supplies none
	DefaultNameservers []string `yaml:"defaultNameservers"`
	// TestMode routes the adapter at the vendor sandbox where supported
	TestMode bool `yaml:"testMode"`
	// Credentials is the opaque key-value credential map handed to the adapter
	Credentials map[string]string `yaml:"credentials"`
}

// Config represents the application configuration structure.
// It contains settings for the environment, metrics endpoint, database
// connection, registrar backends, background schedules and graceful shutdown.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP contains the metrics listener configuration
	HTTP struct {
		// Addr is the address and port the metrics server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// Database contains all database connection related configurations
	Database struct {
		// Username for database authentication
		Username string `env:"DATABASE_USERNAME" env-default:"myuser" yaml:"username"`
		// Password for database authentication
		Password string `env:"DATABASE_PASSWORD" env-default:"mypassword" yaml:"password"`
		// Host is the database server hostname or IP address
		Host string `env:"DATABASE_HOST" env-default:"localhost" yaml:"host"`
		// Port is the database server port number
		Port int `env:"DATABASE_PORT" env-default:"5432" yaml:"port"`
		// SslMode defines the SSL mode for the database connection
		SslMode string `env:"DATABASE_SSL_MODE" env-default:"disable" yaml:"sslMode"`
		// DatabaseName is the name of the database to connect to
		DatabaseName string `env:"DATABASE_NAME" env-default:"reseller" yaml:"name"`
		// MaxOpenConnections limits the number of open connections to the database
		MaxOpenConnections int `env:"DATABASE_MAX_OPEN_CONNECTIONS" env-default:"10" yaml:"maxOpenConnections"`
		// MaxIdleConnections limits the number of connections in the idle connection pool
		MaxIdleConnections int `env:"DATABASE_MAX_IDLE_CONNECTIONS" env-default:"8" yaml:"maxIdleConnections"`
		// ConnMaxLifetime is the maximum amount of time a connection may be reused
		ConnMaxLifetime time.Duration `env:"DATABASE_CONNECTION_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime is the maximum amount of time a connection may be idle
		ConnMaxIdleTime time.Duration `env:"DATABASE_CONNECTION_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"database"`

	// Registrars lists the configured registrar backends
	Registrars []Registrar `yaml:"registrars"`

	// Worker contains background schedule configurations
	Worker struct {
		// MaxWorkers bounds concurrent jobs on the default queue
		MaxWorkers int `env:"WORKER_MAX_WORKERS" env-default:"10" yaml:"maxWorkers"`
		// RenewHorizon is how far ahead of expiry the auto-renew sweep reaches
		RenewHorizon time.Duration `env:"WORKER_RENEW_HORIZON" env-default:"720h" yaml:"renewHorizon"`
		// RenewInterval is how often the auto-renew sweep runs
		RenewInterval time.Duration `env:"WORKER_RENEW_INTERVAL" env-default:"1h" yaml:"renewInterval"`
		// TransferPollInterval is how often in-flight transfers are polled
		TransferPollInterval time.Duration `env:"WORKER_TRANSFER_POLL_INTERVAL" env-default:"15m" yaml:"transferPollInterval"` //nolint: lll
		// ReconcileInterval is how often the state reconciliation sweep runs
		ReconcileInterval time.Duration `env:"WORKER_RECONCILE_INTERVAL" env-default:"1h" yaml:"reconcileInterval"`
		// PriceSyncInterval is how often registrar price lists are pulled
		PriceSyncInterval time.Duration `env:"WORKER_PRICE_SYNC_INTERVAL" env-default:"24h" yaml:"priceSyncInterval"`
		// BatchSize bounds each background sweep
		BatchSize uint `env:"WORKER_BATCH_SIZE" env-default:"100" yaml:"batchSize"`
	} `yaml:"worker"`

	// Reconciler contains drift detection configurations
	Reconciler struct {
		// StaleAfter is how old a sync may get before a domain is due again
		StaleAfter time.Duration `env:"RECONCILER_STALE_AFTER" env-default:"24h" yaml:"staleAfter"`
		// PriceWarnPct is the relative price change (percent) that triggers a warning
		PriceWarnPct int `env:"RECONCILER_PRICE_WARN_PCT" env-default:"10" yaml:"priceWarnPct"`
	} `yaml:"reconciler"`

	// TransferCancelWindow bounds tenant-initiated transfer cancellation
	TransferCancelWindow time.Duration `env:"TRANSFER_CANCEL_WINDOW" env-default:"120h" yaml:"transferCancelWindow"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing work to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}
