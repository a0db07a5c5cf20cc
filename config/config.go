// Package config loads tenantauthd settings from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers
const (
	StoreFS        = "fs"
	StoreS3        = "s3"
	StoreSQL       = "sql"
	StoreDatastore = "datastore"
)

// Admin sources
const (
	AdminsFromEnv   = "env"
	AdminsFromStore = "store"
)

// Notify providers
const (
	NotifyConsole = "console"
	NotifyAWS     = "aws"
)

// Config is the full daemon configuration.
type Config struct {
	Environment string `env:"APP_ENV"   envDefault:"development"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr    string `env:"GRPC_ADDR"`

	GoogleClientID     string `env:"OAUTH2_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"OAUTH2_GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"OAUTH2_GOOGLE_CALLBACK_URL"`

	SuperAdminEmail string   `env:"SUPER_ADMIN_EMAIL"`
	AdminEmails     []string `env:"ADMIN_EMAILS"  envSeparator:","`
	AdminSource     string   `env:"ADMIN_SOURCE"  envDefault:"env"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"fs"`
	StorePath   string `env:"STORE_PATH"   envDefault:"./data"`

	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION"     envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Prefix    string `env:"S3_PREFIX"`

	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"tenantauth.db"`

	DatastoreProject   string `env:"DATASTORE_PROJECT"`
	DatastoreNamespace string `env:"DATASTORE_NAMESPACE"`

	NotifyProvider    string `env:"NOTIFY_PROVIDER"      envDefault:"console"`
	NotifyEmailFrom   string `env:"NOTIFY_EMAIL_FROM"`
	NotifySMSSenderID string `env:"NOTIFY_SMS_SENDER_ID"`
	NotifyPhoneRegion string `env:"NOTIFY_PHONE_REGION"  envDefault:"US"`
	NotifyAWSRegion   string `env:"NOTIFY_AWS_REGION"    envDefault:"us-east-1"`

	AccountSyncURL      string `env:"ACCOUNT_SYNC_URL"`
	AccountSyncSecret   string `env:"ACCOUNT_SYNC_SECRET"`
	AccountSyncAMQPURL  string `env:"ACCOUNT_SYNC_AMQP_URL"`
	AccountSyncExchange string `env:"ACCOUNT_SYNC_EXCHANGE"  envDefault:"accounts"`
	AccountSyncWorkers  int    `env:"ACCOUNT_SYNC_WORKERS"   envDefault:"2"`
	AccountSyncMaxTries int    `env:"ACCOUNT_SYNC_MAX_TRIES" envDefault:"5"`

	SessionSecret     string `env:"SESSION_SECRET"`
	SessionCookieName string `env:"SESSION_COOKIE_NAME" envDefault:"session"`
	SecureCookies     bool   `env:"SECURE_COOKIES"`

	OTPTTL time.Duration `env:"OTP_TTL" envDefault:"10m"`

	LoginPath        string `env:"LOGIN_PATH"         envDefault:"/login"`
	AdminLandingPath string `env:"ADMIN_LANDING_PATH" envDefault:"/admin"`
	UserLandingPath  string `env:"USER_LANDING_PATH"  envDefault:"/dashboard"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// AccountSyncEnabled reports whether any companion transport is configured.
func (c *Config) AccountSyncEnabled() bool {
	return c.AccountSyncURL != "" || c.AccountSyncAMQPURL != ""
}

// Validate rejects unknown enumerations and missing settings the chosen
// drivers need.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("unknown APP_ENV %q", c.Environment)
	}
	switch c.StoreDriver {
	case StoreFS, StoreSQL:
	case StoreS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 store")
		}
	case StoreDatastore:
		if c.DatastoreProject == "" {
			return fmt.Errorf("DATASTORE_PROJECT is required for the datastore store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.AdminSource {
	case AdminsFromEnv, AdminsFromStore:
	default:
		return fmt.Errorf("unknown ADMIN_SOURCE %q", c.AdminSource)
	}
	switch c.NotifyProvider {
	case NotifyConsole:
		if c.IsProduction() {
			return fmt.Errorf("NOTIFY_PROVIDER=console only logs codes and is not allowed in production")
		}
	case NotifyAWS:
		if c.NotifyEmailFrom == "" {
			return fmt.Errorf("NOTIFY_EMAIL_FROM is required for the aws notifier")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_PROVIDER %q", c.NotifyProvider)
	}
	if c.OTPTTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}
	return nil
}
