package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	Carrier      CarrierConfig
	Labels       LabelsConfig
	Merge        MergeConfig
	Events       EventsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	AWS          AWSConfig
	Outbox       OutboxConfig
	Cron         CronConfig
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
	if err := cfg.Events.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VAULTTROVE_APP_ENV" required:"true"`
	Port         string `envconfig:"VAULTTROVE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VAULTTROVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VAULTTROVE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"VAULTTROVE_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VAULTTROVE_SERVICE_KIND" default:"api"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	DSN    string `envconfig:"VAULTTROVE_DB_DSN"`
	Driver string `envconfig:"VAULTTROVE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VAULTTROVE_DB_HOST"`
	LegacyPort     int    `envconfig:"VAULTTROVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VAULTTROVE_DB_USER"`
	LegacyPassword string `envconfig:"VAULTTROVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"VAULTTROVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"VAULTTROVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VAULTTROVE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VAULTTROVE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VAULTTROVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VAULTTROVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"VAULTTROVE_REDIS_URL"`
	Address      string        `envconfig:"VAULTTROVE_REDIS_ADDR"`
	Password     string        `envconfig:"VAULTTROVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"VAULTTROVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VAULTTROVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VAULTTROVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VAULTTROVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VAULTTROVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VAULTTROVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VAULTTROVE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VAULTTROVE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VAULTTROVE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VAULTTROVE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VAULTTROVE_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"VAULTTROVE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type CarrierConfig struct {
	BaseURL string        `envconfig:"VAULTTROVE_CARRIER_BASE_URL" default:"https://api.easypost.com/v2"`
	Timeout time.Duration `envconfig:"VAULTTROVE_CARRIER_TIMEOUT" default:"20s"`
}

type LabelsConfig struct {
	FreeMonthlyQuota   int           `envconfig:"VAULTTROVE_LABELS_FREE_MONTHLY_QUOTA" default:"10"`
	FallbackLabelPrice string        `envconfig:"VAULTTROVE_LABELS_FALLBACK_PRICE" default:"0.63"`
	BillingRedirect    string        `envconfig:"VAULTTROVE_LABELS_BILLING_REDIRECT" default:"/dashboard/billing"`
	MaxBatchSize       int           `envconfig:"VAULTTROVE_LABELS_MAX_BATCH_SIZE" default:"500"`
	BatchTimeout       time.Duration `envconfig:"VAULTTROVE_LABELS_BATCH_TIMEOUT" default:"10m"`
	RateLimitWindow    time.Duration `envconfig:"VAULTTROVE_LABELS_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitPerUser   int           `envconfig:"VAULTTROVE_LABELS_RATE_LIMIT_PER_USER" default:"20"`
}

// FallbackPrice parses the configured fallback postage price.
func (l LabelsConfig) FallbackPrice() decimal.Decimal {
	price, err := decimal.NewFromString(strings.TrimSpace(l.FallbackLabelPrice))
	if err != nil {
		return decimal.RequireFromString("0.63")
	}
	return price
}

type MergeConfig struct {
	FetchConcurrency int           `envconfig:"VAULTTROVE_MERGE_FETCH_CONCURRENCY" default:"4"`
	FetchTimeout     time.Duration `envconfig:"VAULTTROVE_MERGE_FETCH_TIMEOUT" default:"15s"`
	MaxLabels        int           `envconfig:"VAULTTROVE_MERGE_MAX_LABELS" default:"500"`
}

const (
	SinkPubSub = "pubsub"
	SinkSQS    = "sqs"
)

type EventsConfig struct {
	Sink string `envconfig:"VAULTTROVE_EVENTS_SINK" default:"pubsub"`
}

// NormalizedSink returns the lower-cased sink name, defaulting to pubsub.
func (e EventsConfig) NormalizedSink() string {
	sink := strings.ToLower(strings.TrimSpace(e.Sink))
	if sink == "" {
		return SinkPubSub
	}
	return sink
}

func (e EventsConfig) validate() error {
	switch e.NormalizedSink() {
	case SinkPubSub, SinkSQS:
		return nil
	default:
		return fmt.Errorf("unsupported events sink %q", e.Sink)
	}
}

type GCPConfig struct {
	ProjectID string `envconfig:"VAULTTROVE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	LabelsTopic string `envconfig:"VAULTTROVE_PUBSUB_LABELS_TOPIC" default:"vt-label-events"`
}

type AWSConfig struct {
	Region         string `envconfig:"VAULTTROVE_AWS_REGION" default:"us-east-1"`
	LabelsQueueURL string `envconfig:"VAULTTROVE_SQS_LABELS_QUEUE_URL"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VAULTTROVE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VAULTTROVE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VAULTTROVE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"VAULTTROVE_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval             time.Duration `envconfig:"VAULTTROVE_CRON_INTERVAL" default:"24h"`
	UsageRetentionMonths int           `envconfig:"VAULTTROVE_CRON_USAGE_RETENTION_MONTHS" default:"13"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:vaulttrove.db?cache=shared"
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
