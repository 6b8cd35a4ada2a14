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
	Tax           TaxConfig
	Cart          CartConfig
	Audit         AuditConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
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
	if err := cfg.Tax.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MESA_APP_ENV" required:"true"`
	Port         string `envconfig:"MESA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MESA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MESA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MESA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MESA_DB_DSN"`
	Driver string `envconfig:"MESA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MESA_DB_HOST"`
	LegacyPort     int    `envconfig:"MESA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MESA_DB_USER"`
	LegacyPassword string `envconfig:"MESA_DB_PASSWORD"`
	LegacyName     string `envconfig:"MESA_DB_NAME"`
	LegacySSLMode  string `envconfig:"MESA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MESA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MESA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MESA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MESA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MESA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MESA_REDIS_ADDR"`
	Password     string        `envconfig:"MESA_REDIS_PASSWORD"`
	DB           int           `envconfig:"MESA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MESA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MESA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MESA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MESA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MESA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"MESA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MESA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"MESA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"MESA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MESA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MESA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MESA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MESA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MESA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"MESA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"MESA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"MESA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"MESA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"MESA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"MESA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MESA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MESA_AUTO_MIGRATE" default:"false"`
}

// TaxConfig carries the sales tax rate applied at cart pricing and checkout.
// The rate is a decimal string ("0.08" means 8%) so deployments can override
// it per jurisdiction without a code change.
type TaxConfig struct {
	Rate string `envconfig:"MESA_TAX_RATE" default:"0.08"`
}

func (t TaxConfig) validate() error {
	trimmed := strings.TrimSpace(t.Rate)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", EnvTaxRate)
	}
	return nil
}

type CartConfig struct {
	TokenBytes   int           `envconfig:"MESA_CART_TOKEN_BYTES" default:"32"`
	AnonymousTTL time.Duration `envconfig:"MESA_CART_ANONYMOUS_TTL" default:"168h"`
}

type AuditConfig struct {
	Retention time.Duration `envconfig:"MESA_AUDIT_RETENTION" default:"2160h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MESA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"MESA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MESA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"MESA_PUBSUB_DOMAIN_TOPIC" required:"true"`
	DomainSubscription string `envconfig:"MESA_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MESA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MESA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MESA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	CartSweepInterval  time.Duration `envconfig:"MESA_CRON_CART_SWEEP_INTERVAL" default:"15m"`
	AuditSweepInterval time.Duration `envconfig:"MESA_CRON_AUDIT_SWEEP_INTERVAL" default:"24h"`
	LockTTL            time.Duration `envconfig:"MESA_CRON_LOCK_TTL" default:"5m"`
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
