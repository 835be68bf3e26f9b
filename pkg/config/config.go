package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Checkout      CheckoutConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Stripe        StripeConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MERCAURA_APP_ENV" required:"true"`
	Port         string `envconfig:"MERCAURA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MERCAURA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MERCAURA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MERCAURA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MERCAURA_DB_DSN"`
	Driver string `envconfig:"MERCAURA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MERCAURA_DB_HOST"`
	LegacyPort     int    `envconfig:"MERCAURA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MERCAURA_DB_USER"`
	LegacyPassword string `envconfig:"MERCAURA_DB_PASSWORD"`
	LegacyName     string `envconfig:"MERCAURA_DB_NAME"`
	LegacySSLMode  string `envconfig:"MERCAURA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MERCAURA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MERCAURA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MERCAURA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MERCAURA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MERCAURA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MERCAURA_REDIS_ADDR"`
	Password     string        `envconfig:"MERCAURA_REDIS_PASSWORD"`
	DB           int           `envconfig:"MERCAURA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MERCAURA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MERCAURA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MERCAURA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MERCAURA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MERCAURA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"MERCAURA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MERCAURA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"MERCAURA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"MERCAURA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MERCAURA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MERCAURA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MERCAURA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MERCAURA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MERCAURA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"MERCAURA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"MERCAURA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"MERCAURA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"MERCAURA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"MERCAURA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"MERCAURA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MERCAURA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MERCAURA_AUTO_MIGRATE" default:"false"`
}

type CheckoutConfig struct {
	SessionTTL       time.Duration `envconfig:"MERCAURA_CHECKOUT_SESSION_TTL" default:"30m"`
	MaxItemsPerCart  int           `envconfig:"MERCAURA_CHECKOUT_MAX_ITEMS_PER_CART" default:"100"`
	MaxQtyPerItem    int           `envconfig:"MERCAURA_CHECKOUT_MAX_QTY_PER_ITEM" default:"50"`
	SuccessURL       string        `envconfig:"MERCAURA_CHECKOUT_SUCCESS_URL"`
	CancelURL        string        `envconfig:"MERCAURA_CHECKOUT_CANCEL_URL"`
	IdempotencyTTL   time.Duration `envconfig:"MERCAURA_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
	IdempotencyLease time.Duration `envconfig:"MERCAURA_CHECKOUT_IDEMPOTENCY_LEASE" default:"30s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MERCAURA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"MERCAURA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MERCAURA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic          string `envconfig:"MERCAURA_PUBSUB_ORDERS_TOPIC" default:"mercaura-order-events"`
	OrdersSubscription   string `envconfig:"MERCAURA_PUBSUB_ORDERS_SUBSCRIPTION"`
	PaymentsTopic        string `envconfig:"MERCAURA_PUBSUB_PAYMENTS_TOPIC" default:"mercaura-payment-events"`
	PaymentsSubscription string `envconfig:"MERCAURA_PUBSUB_PAYMENTS_SUBSCRIPTION"`
}

type StripeConfig struct {
	APIKey string `envconfig:"MERCAURA_STRIPE_API_KEY"`
	Secret string `envconfig:"MERCAURA_STRIPE_SECRET"`
	Env    string `envconfig:"MERCAURA_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MERCAURA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MERCAURA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MERCAURA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	SessionSweepInterval time.Duration `envconfig:"MERCAURA_CRON_SESSION_SWEEP_INTERVAL" default:"1m"`
	OutboxRetention      time.Duration `envconfig:"MERCAURA_CRON_OUTBOX_RETENTION" default:"168h"`
	OutboxSweepInterval  time.Duration `envconfig:"MERCAURA_CRON_OUTBOX_SWEEP_INTERVAL" default:"1h"`
	LockTTL              time.Duration `envconfig:"MERCAURA_CRON_LOCK_TTL" default:"5m"`
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
