package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emberwick/storefront/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Store      StoreConfig      `validate:"required"`
	Supabase   SupabaseConfig   `mapstructure:"supabase"`
	Stripe     StripeConfig     `mapstructure:"stripe"`
	Checkout   CheckoutConfig   `mapstructure:"checkout" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Svix       SvixConfig       `mapstructure:"svix"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
	Cache      CacheConfig      `mapstructure:"cache"`
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address        string        `mapstructure:"address" validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string        `mapstructure:"host"`
	Port                   int           `mapstructure:"port"`
	User                   string        `mapstructure:"user"`
	Password               string        `mapstructure:"password"`
	DBName                 string        `mapstructure:"dbname"`
	SSLMode                string        `mapstructure:"sslmode"`
	MaxOpenConns           int           `mapstructure:"max_open_conns"`
	MaxIdleConns           int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int           `mapstructure:"conn_max_lifetime_minutes"`
	MigrationsPath         string        `mapstructure:"migrations_path"`
	SlowQueryThreshold     time.Duration `mapstructure:"slow_query_threshold"`
}

// StoreConfig selects the persistence backend for orders and discount codes
type StoreConfig struct {
	Driver types.StoreDriver `mapstructure:"driver" validate:"required"`
}

type SupabaseConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	ServiceKey string `mapstructure:"service_key"`
	JWTSecret  string `mapstructure:"jwt_secret"`
}

type StripeConfig struct {
	SecretKey     string        `mapstructure:"secret_key"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Currency      string        `mapstructure:"currency"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type CheckoutConfig struct {
	TaxRate float64 `mapstructure:"tax_rate" validate:"gte=0,lt=1"`
}

type AuthConfig struct {
	Provider          types.AuthProvider `mapstructure:"provider" validate:"required"`
	JWTSecret         string             `mapstructure:"jwt_secret"`
	CookieName        string             `mapstructure:"cookie_name" validate:"required"`
	CookieSecure      bool               `mapstructure:"cookie_secure"`
	TokenTTL          time.Duration      `mapstructure:"token_ttl"`
	AdminEmail        string             `mapstructure:"admin_email"`
	AdminPasswordHash string             `mapstructure:"admin_password_hash"`
}

type ReconcilerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	StaleAfter  time.Duration `mapstructure:"stale_after"`
	MaxAge      time.Duration `mapstructure:"max_age"`
	Concurrency int           `mapstructure:"concurrency"`
	BatchSize   int           `mapstructure:"batch_size"`
}

type SvixConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	BaseURL   string `mapstructure:"base_url"`
	AuthToken string `mapstructure:"auth_token"`
	AppID     string `mapstructure:"app_id"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DefaultTTL      time.Duration `mapstructure:"default_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/storefront")

	// STOREFRONT_STRIPE_SECRET_KEY overrides stripe.secret_key
	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it even when
// config.yaml does not mention it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.request_timeout", 15*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("logging.level", types.LogLevelInfo)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "storefront")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "storefront")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 30)
	v.SetDefault("postgres.migrations_path", "")
	v.SetDefault("postgres.slow_query_threshold", 500*time.Millisecond)

	v.SetDefault("store.driver", types.StoreDriverPostgres)
	v.SetDefault("supabase.base_url", "")
	v.SetDefault("supabase.service_key", "")
	v.SetDefault("supabase.jwt_secret", "")

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.currency", types.DefaultCurrency)
	v.SetDefault("stripe.timeout", 10*time.Second)

	v.SetDefault("checkout.tax_rate", 0.06)

	v.SetDefault("auth.provider", types.AuthProviderLocal)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.cookie_name", "admin_token")
	v.SetDefault("auth.cookie_secure", true)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.admin_email", "")
	v.SetDefault("auth.admin_password_hash", "")

	v.SetDefault("reconciler.enabled", true)
	v.SetDefault("reconciler.interval", 5*time.Minute)
	v.SetDefault("reconciler.stale_after", 30*time.Minute)
	v.SetDefault("reconciler.max_age", 7*24*time.Hour)
	v.SetDefault("reconciler.concurrency", 4)
	v.SetDefault("reconciler.batch_size", 100)

	v.SetDefault("svix.enabled", false)
	v.SetDefault("svix.base_url", "")
	v.SetDefault("svix.auth_token", "")
	v.SetDefault("svix.app_id", "")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.default_ttl", 24*time.Hour)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080", RequestTimeout: 15 * time.Second},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Store:      StoreConfig{Driver: types.StoreDriverPostgres},
		Stripe:     StripeConfig{Currency: types.DefaultCurrency, Timeout: 10 * time.Second},
		Checkout:   CheckoutConfig{TaxRate: 0.06},
		Auth: AuthConfig{
			Provider:   types.AuthProviderLocal,
			CookieName: "admin_token",
			TokenTTL:   24 * time.Hour,
		},
		Reconciler: ReconcilerConfig{
			Interval:    5 * time.Minute,
			StaleAfter:  30 * time.Minute,
			MaxAge:      7 * 24 * time.Hour,
			Concurrency: 4,
			BatchSize:   100,
		},
		Cache: CacheConfig{
			Enabled:         true,
			DefaultTTL:      24 * time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

// GetMigrateURL returns the DSN in URL form as golang-migrate expects it
func (c PostgresConfig) GetMigrateURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
		c.SSLMode,
	)
}

// TaxRateDecimal returns the configured tax rate as a decimal
func (c CheckoutConfig) TaxRateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.TaxRate)
}

// IsConfigured reports whether a secret key was supplied
func (c StripeConfig) IsConfigured() bool {
	return strings.TrimSpace(c.SecretKey) != ""
}

// GetCurrency falls back to usd when no currency is configured
func (c StripeConfig) GetCurrency() string {
	if c.Currency == "" {
		return types.DefaultCurrency
	}
	return strings.ToLower(c.Currency)
}
