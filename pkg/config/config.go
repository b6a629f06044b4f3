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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Square       SquareConfig
	ApprovalCode ApprovalCodeConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Outbox       OutboxConfig
	PubSub       PubSubConfig
	GCP          GCPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validateFlags(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validateFlags() error {
	if c.App.IsProd() && c.FeatureFlags.AllowUnverifiedCapture {
		return fmt.Errorf("ORDERDESK_FEATURE_ALLOW_UNVERIFIED_CAPTURE cannot be enabled in prod")
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"ORDERDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORDERDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ORDERDESK_DB_DSN"`
	Driver string `envconfig:"ORDERDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORDERDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"ORDERDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORDERDESK_DB_USER"`
	LegacyPassword string `envconfig:"ORDERDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORDERDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORDERDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORDERDESK_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ORDERDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ORDERDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ORDERDESK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type SquareConfig struct {
	AccessToken   string        `envconfig:"ORDERDESK_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string        `envconfig:"ORDERDESK_SQUARE_WEBHOOK_SECRET"`
	Env           string        `envconfig:"ORDERDESK_SQUARE_ENV" default:"sandbox"`
	Timeout       time.Duration `envconfig:"ORDERDESK_SQUARE_TIMEOUT" default:"10s"`
	WebhookTTL    time.Duration `envconfig:"ORDERDESK_SQUARE_WEBHOOK_TTL" default:"72h"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type ApprovalCodeConfig struct {
	TTL              time.Duration `envconfig:"ORDERDESK_APPROVAL_CODE_TTL" default:"15m"`
	Length           int           `envconfig:"ORDERDESK_APPROVAL_CODE_LENGTH" default:"8"`
	ArgonMemoryKB    int           `envconfig:"ORDERDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int           `envconfig:"ORDERDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int           `envconfig:"ORDERDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int           `envconfig:"ORDERDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int           `envconfig:"ORDERDESK_ARGON_KEY_LEN" default:"32"`
}

type RateLimitConfig struct {
	APIWindow         time.Duration `envconfig:"ORDERDESK_RATE_LIMIT_API_WINDOW" default:"1m"`
	APIIPLimit        int           `envconfig:"ORDERDESK_RATE_LIMIT_API_IP_LIMIT" default:"300"`
	APIUserLimit      int           `envconfig:"ORDERDESK_RATE_LIMIT_API_USER_LIMIT" default:"120"`
	ApprovalWindow    time.Duration `envconfig:"ORDERDESK_RATE_LIMIT_APPROVAL_WINDOW" default:"1m"`
	ApprovalIPLimit   int           `envconfig:"ORDERDESK_RATE_LIMIT_APPROVAL_IP_LIMIT" default:"30"`
	ApprovalUserLimit int           `envconfig:"ORDERDESK_RATE_LIMIT_APPROVAL_USER_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ORDERDESK_AUTO_MIGRATE" default:"false"`
	// AllowUnverifiedCapture lets non-prod environments record a payment as
	// verified without a processor round trip. Rejected at load time in prod.
	AllowUnverifiedCapture bool `envconfig:"ORDERDESK_FEATURE_ALLOW_UNVERIFIED_CAPTURE" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"ORDERDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"ORDERDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"ORDERDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"ORDERDESK_OUTBOX_RETENTION" default:"720h"`
}

type PubSubConfig struct {
	LedgerTopic        string `envconfig:"ORDERDESK_PUBSUB_LEDGER_TOPIC" default:"od-ledger-events"`
	LedgerSubscription string `envconfig:"ORDERDESK_PUBSUB_LEDGER_SUBSCRIPTION"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ORDERDESK_GCP_PROJECT_ID"`
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
