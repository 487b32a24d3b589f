package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	Settings SettingsConfig
	Webhooks WebhooksConfig
	Stripe   StripeConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Cron     CronConfig
	Tracing  TracingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env                string   `envconfig:"THAYS_APP_ENV" required:"true"`
	Port               string   `envconfig:"THAYS_APP_PORT" default:"8080"`
	LogLevel           string   `envconfig:"THAYS_LOG_LEVEL" default:"info"`
	LogFormat          string   `envconfig:"THAYS_LOG_FORMAT" default:"json"`
	LogWarnStack       bool     `envconfig:"THAYS_LOG_WARN_STACK" default:"false"`
	Timezone           string   `envconfig:"THAYS_BUSINESS_TIMEZONE" default:"America/Sao_Paulo"`
	CORSAllowedOrigins []string `envconfig:"THAYS_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the business timezone used for civil dates and cutoffs.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.Timezone)
	if name == "" {
		name = "America/Sao_Paulo"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading %s %q: %w", EnvTimezone, name, err)
	}
	return loc, nil
}

type ServiceConfig struct {
	Kind string `envconfig:"THAYS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"THAYS_DB_DSN"`
	Driver string `envconfig:"THAYS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"THAYS_DB_HOST"`
	LegacyPort     int    `envconfig:"THAYS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"THAYS_DB_USER"`
	LegacyPassword string `envconfig:"THAYS_DB_PASSWORD"`
	LegacyName     string `envconfig:"THAYS_DB_NAME"`
	LegacySSLMode  string `envconfig:"THAYS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"THAYS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"THAYS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"THAYS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"THAYS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	AutoMigrate     bool          `envconfig:"THAYS_AUTO_MIGRATE" default:"false"`
}

// RedisConfig is optional for the API (settings cache) and required by the cron worker (lock).
type RedisConfig struct {
	URL          string        `envconfig:"THAYS_REDIS_URL"`
	Address      string        `envconfig:"THAYS_REDIS_ADDR"`
	Password     string        `envconfig:"THAYS_REDIS_PASSWORD"`
	DB           int           `envconfig:"THAYS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"THAYS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"THAYS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"THAYS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"THAYS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"THAYS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type SettingsConfig struct {
	CacheTTL time.Duration `envconfig:"THAYS_SETTINGS_CACHE_TTL" default:"60s"`
}

type WebhooksConfig struct {
	MaxBodyBytes     int64         `envconfig:"THAYS_WEBHOOK_MAX_BODY_BYTES" default:"1048576"`
	AsyncTaskTimeout time.Duration `envconfig:"THAYS_WEBHOOK_ASYNC_TIMEOUT" default:"30s"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"THAYS_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"THAYS_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"THAYS_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"THAYS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"THAYS_PUBSUB_ORDERS_TOPIC" default:"thays-orders"`
	SubscriptionsTopic string `envconfig:"THAYS_PUBSUB_SUBSCRIPTIONS_TOPIC" default:"thays-subscriptions"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"THAYS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"THAYS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"THAYS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	LockTTL time.Duration `envconfig:"THAYS_CRON_LOCK_TTL" default:"10m"`
	RunAt   string        `envconfig:"THAYS_CRON_RUN_AT" default:"03:00"`
}

type TracingConfig struct {
	Enabled      bool    `envconfig:"THAYS_OTEL_ENABLED" default:"false"`
	OTLPEndpoint string  `envconfig:"THAYS_OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	Insecure     bool    `envconfig:"THAYS_OTEL_INSECURE" default:"true"`
	SampleRatio  float64 `envconfig:"THAYS_OTEL_SAMPLING_RATIO" default:"1"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
