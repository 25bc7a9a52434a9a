package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Scheduler    SchedulerConfig
	Ledger       LedgerConfig
	Square       SquareConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MigrateConfig is the subset cmd/migrate needs; it does not require the
// ledger or processor credentials.
type MigrateConfig struct {
	App          AppConfig
	DB           DBConfig
	FeatureFlags FeatureFlagsConfig
}

func LoadMigrate() (*MigrateConfig, error) {
	var cfg MigrateConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing migrate config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PACKDROP_APP_ENV" required:"true"`
	OpsPort      string `envconfig:"PACKDROP_OPS_PORT" default:"9090"`
	LogLevel     string `envconfig:"PACKDROP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PACKDROP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PACKDROP_SERVICE_KIND" default:"cron-worker"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	DSN    string `envconfig:"PACKDROP_DB_DSN"`
	Driver string `envconfig:"PACKDROP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PACKDROP_DB_HOST"`
	LegacyPort     int    `envconfig:"PACKDROP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PACKDROP_DB_USER"`
	LegacyPassword string `envconfig:"PACKDROP_DB_PASSWORD"`
	LegacyName     string `envconfig:"PACKDROP_DB_NAME"`
	LegacySSLMode  string `envconfig:"PACKDROP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PACKDROP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PACKDROP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PACKDROP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PACKDROP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PACKDROP_REDIS_URL"`
	Address      string        `envconfig:"PACKDROP_REDIS_ADDR"`
	Password     string        `envconfig:"PACKDROP_REDIS_PASSWORD"`
	DB           int           `envconfig:"PACKDROP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PACKDROP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PACKDROP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PACKDROP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PACKDROP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PACKDROP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type SchedulerConfig struct {
	LedgerInterval     time.Duration `envconfig:"PACKDROP_SCHEDULER_LEDGER_INTERVAL" default:"10s"`
	LedgerLimit        int           `envconfig:"PACKDROP_SCHEDULER_LEDGER_LIMIT" default:"100"`
	CompletionInterval time.Duration `envconfig:"PACKDROP_SCHEDULER_AUCTION_COMPLETION_INTERVAL" default:"1m"`
	ExpirationInterval time.Duration `envconfig:"PACKDROP_SCHEDULER_AUCTION_EXPIRATION_INTERVAL" default:"1m"`
	AuctionLimit       int           `envconfig:"PACKDROP_SCHEDULER_AUCTION_LIMIT" default:"50"`
	PaymentInterval    time.Duration `envconfig:"PACKDROP_SCHEDULER_PAYMENT_INTERVAL" default:"30s"`
	PaymentLimit       int           `envconfig:"PACKDROP_SCHEDULER_PAYMENT_LIMIT" default:"100"`
	FanoutInterval     time.Duration `envconfig:"PACKDROP_SCHEDULER_FANOUT_INTERVAL" default:"5s"`
	FanoutBatchSize    int           `envconfig:"PACKDROP_SCHEDULER_FANOUT_BATCH_SIZE" default:"200"`
	FanoutSettle       time.Duration `envconfig:"PACKDROP_SCHEDULER_FANOUT_SETTLE" default:"5s"`
	FanoutGapRetention time.Duration `envconfig:"PACKDROP_SCHEDULER_FANOUT_GAP_RETENTION" default:"15m"`
	CallTimeout        time.Duration `envconfig:"PACKDROP_SCHEDULER_CALL_TIMEOUT" default:"10s"`
	LockTTL            time.Duration `envconfig:"PACKDROP_SCHEDULER_LOCK_TTL" default:"5m"`
}

type LedgerConfig struct {
	AlgodURL       string        `envconfig:"PACKDROP_LEDGER_ALGOD_URL" required:"true"`
	AlgodToken     string        `envconfig:"PACKDROP_LEDGER_ALGOD_TOKEN"`
	RequestTimeout time.Duration `envconfig:"PACKDROP_LEDGER_REQUEST_TIMEOUT" default:"10s"`
	FundingAddress string        `envconfig:"PACKDROP_LEDGER_FUNDING_ADDRESS"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"PACKDROP_SQUARE_ACCESS_TOKEN" required:"true"`
	Env         string `envconfig:"PACKDROP_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"PACKDROP_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	EventsTopic string `envconfig:"PACKDROP_PUBSUB_EVENTS_TOPIC"`
}

// Enabled reports whether event fan-out has somewhere to publish.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.EventsTopic) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PACKDROP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PACKDROP_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.Driver == DriverSQLite {
		db.DSN = "file:packdrop.db?_busy_timeout=5000"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
