// Package config loads service settings from config.toml and BILLPAY_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override, e.g. BILLPAY_DATABASE_HOST
const EnvPrefix = "BILLPAY"

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Event     EventConfig     `mapstructure:"event"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Swagger   SwaggerConfig   `mapstructure:"swagger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env" validate:"oneof=development test staging production"`
	Port string `mapstructure:"port" validate:"numeric"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"gt=0,lt=65536"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname" validate:"required"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// RedisConfig is the optional Redis used for event notifications and
// consumer idempotency keys
type RedisConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	Password          string        `mapstructure:"password"`
	DB                int           `mapstructure:"db" validate:"gte=0"`
	EventChannel      string        `mapstructure:"event_channel"`
	IdempotencyTTL    time.Duration `mapstructure:"idempotency_ttl"`
	IdempotencyPrefix string        `mapstructure:"idempotency_key_prefix"`
}

// JWTConfig validates bearer tokens minted by the identity provider
type JWTConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	Secret                string        `mapstructure:"secret" validate:"required_if=Enabled true"`
	Issuer                string        `mapstructure:"issuer"`
	AccessTokenExpiration time.Duration `mapstructure:"access_token_expiration"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

// EventConfig drives the outbox processor
type EventConfig struct {
	ProcessorEnabled bool          `mapstructure:"processor_enabled"`
	BatchSize        int           `mapstructure:"batch_size" validate:"gt=0"`
	PollInterval     time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	MaxAttempts      int           `mapstructure:"max_attempts" validate:"gt=0"`
	// Retention of sent entries; zero keeps them
	Retention time.Duration `mapstructure:"retention" validate:"gte=0"`
	// ClaimTimeout after which an unsettled claim is delivered again
	ClaimTimeout time.Duration `mapstructure:"claim_timeout" validate:"gte=0"`
}

type HTTPConfig struct {
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	MaxBodySize       int64         `mapstructure:"max_body_size" validate:"gte=0"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests" validate:"gt=0"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window" validate:"gt=0"`
	// An empty origin list allows no cross-origin requests
	CORSAllowOrigins []string `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string `mapstructure:"trusted_proxies"`
}

// SchedulerConfig controls the overdue sweep. OverdueSchedule is a
// five-field cron expression or a descriptor such as @hourly.
type SchedulerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	OverdueSchedule string        `mapstructure:"overdue_schedule" validate:"cron"`
	JobTimeout      time.Duration `mapstructure:"job_timeout" validate:"gt=0"`
}

// StorageConfig is the S3 bucket that holds payment receipts. An empty
// Endpoint means AWS; set it for MinIO and other S3-compatible stores.
type StorageConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Endpoint          string        `mapstructure:"endpoint"`
	Region            string        `mapstructure:"region"`
	Bucket            string        `mapstructure:"bucket" validate:"required_if=Enabled true"`
	AccessKeyID       string        `mapstructure:"access_key_id"`
	SecretAccessKey   string        `mapstructure:"secret_access_key"`
	UsePathStyle      bool          `mapstructure:"use_path_style"`
	CreateBucket      bool          `mapstructure:"create_bucket"`
	PresignExpiration time.Duration `mapstructure:"presign_expiration" validate:"gt=0"`
	MaxReceiptSize    int64         `mapstructure:"max_receipt_size" validate:"gt=0"`
}

type SwaggerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectorEndpoint  string        `mapstructure:"collector_endpoint"` // OTLP gRPC
	SamplingRatio      float64       `mapstructure:"sampling_ratio" validate:"gte=0,lte=1"`
	ServiceName        string        `mapstructure:"service_name"`
	Insecure           bool          `mapstructure:"insecure"`
	MetricsEnabled     bool          `mapstructure:"metrics_enabled"`
	MetricsInterval    time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled        bool          `mapstructure:"logs_enabled"`
	DBTraceEnabled     bool          `mapstructure:"db_trace_enabled"`
	SlowQueryThreshold time.Duration `mapstructure:"db_slow_query_threshold"`
	ProfilingEnabled   bool          `mapstructure:"profiling_enabled"`
	PyroscopeURL       string        `mapstructure:"pyroscope_url" validate:"omitempty,url"`
}

// defaults registers every key, so each one also answers to its
// BILLPAY_* variable
var defaults = map[string]any{
	"app.name": "billpay-backend",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "billpay",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  time.Hour,
	"database.conn_max_idle_time": 30 * time.Minute,
	"database.connect_timeout":    30 * time.Second,
	"database.migrations_path":    "migrations",

	"redis.enabled":                false,
	"redis.host":                   "localhost",
	"redis.port":                   6379,
	"redis.password":               "",
	"redis.db":                     0,
	"redis.event_channel":          "billpay:events",
	"redis.idempotency_ttl":        24 * time.Hour,
	"redis.idempotency_key_prefix": "billpay:event:processed:",

	"jwt.enabled":                 false,
	"jwt.secret":                  "",
	"jwt.issuer":                  "billpay",
	"jwt.access_token_expiration": 15 * time.Minute,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"event.processor_enabled": true,
	"event.batch_size":        100,
	"event.poll_interval":     5 * time.Second,
	"event.max_attempts":      5,
	"event.retention":         7 * 24 * time.Hour,
	"event.claim_timeout":     5 * time.Minute,

	"http.read_timeout":        15 * time.Second,
	"http.write_timeout":       15 * time.Second,
	"http.idle_timeout":        time.Minute,
	"http.shutdown_timeout":    30 * time.Second,
	"http.max_header_bytes":    1 << 20,
	"http.max_body_size":       1 << 20,
	"http.rate_limit_enabled":  false,
	"http.rate_limit_requests": 100,
	"http.rate_limit_window":   time.Minute,
	"http.cors_allow_origins":  []string{},
	"http.cors_allow_methods":  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	"http.cors_allow_headers":  []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"},
	"http.trusted_proxies":     []string{},

	"scheduler.enabled":          false,
	"scheduler.overdue_schedule": "@hourly",
	"scheduler.job_timeout":      5 * time.Minute,

	"storage.enabled":            false,
	"storage.endpoint":           "",
	"storage.region":             "us-east-1",
	"storage.bucket":             "billpay-receipts",
	"storage.access_key_id":      "",
	"storage.secret_access_key":  "",
	"storage.use_path_style":     false,
	"storage.create_bucket":      false,
	"storage.presign_expiration": 15 * time.Minute,
	"storage.max_receipt_size":   10 << 20,

	"swagger.enabled": false,

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "billpay-backend",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.profiling_enabled":       false,
	"telemetry.pyroscope_url":           "http://localhost:4040",
}

// Load reads config.toml from the working directory or /app, then applies
// BILLPAY_* overrides. Keys absent from both keep their defaults.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	})
	_ = v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return fmt.Errorf("invalid config: %w", err)
		}
		msgs := make([]string, len(fields))
		for i, fe := range fields {
			msgs[i] = describe(fe)
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("invalid config: database.max_idle_conns (%d) exceeds database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.App.Env == "production" {
		return c.validateProduction()
	}
	return nil
}

func (c *Config) validateProduction() error {
	switch {
	case c.JWT.Enabled && len(c.JWT.Secret) < 32:
		return errors.New("invalid config: jwt.secret must be at least 32 characters in production")
	case c.Database.Password == "":
		return errors.New("invalid config: database.password is required in production")
	case c.Database.SSLMode == "disable":
		return errors.New("invalid config: database.sslmode cannot be disable in production")
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			return errors.New("invalid config: http.cors_allow_origins cannot contain * in production")
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	key := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_if":
		return key + " is required"
	case "cron":
		return fmt.Sprintf("%s %q is not a valid cron schedule", key, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", key, fe.Param())
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s must be %s %s, got %v", key, fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", key, fe.Tag())
	}
}

// DSN is the postgres URL with user and password escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   d.Host + ":" + strconv.Itoa(d.Port),
		Path:   d.DBName,
	}
	u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	return u.String()
}

func (r *RedisConfig) Addr() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}
