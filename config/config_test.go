package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StoreFS, cfg.StoreDriver)
	assert.Equal(t, "./data", cfg.StorePath)
	assert.Equal(t, AdminsFromEnv, cfg.AdminSource)
	assert.Equal(t, NotifyConsole, cfg.NotifyProvider)
	assert.Equal(t, "US", cfg.NotifyPhoneRegion)
	assert.Equal(t, "us-east-1", cfg.NotifyAWSRegion)
	assert.Equal(t, "accounts", cfg.AccountSyncExchange)
	assert.Equal(t, 2, cfg.AccountSyncWorkers)
	assert.Equal(t, 5, cfg.AccountSyncMaxTries)
	assert.Equal(t, "session", cfg.SessionCookieName)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "/admin", cfg.AdminLandingPath)
	assert.Equal(t, "/dashboard", cfg.UserLandingPath)
	assert.False(t, cfg.AccountSyncEnabled())
}

func TestOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"APP_ENV":           "Production",
		"ADMIN_EMAILS":      "a@example.com,b@example.com",
		"SUPER_ADMIN_EMAIL": "boss@example.com",
		"STORE_DRIVER":      "s3",
		"S3_BUCKET":         "auth-state",
		"OTP_TTL":           "5m",
		"SECURE_COOKIES":    "true",
		"ACCOUNT_SYNC_URL":  "https://api.example.com/accounts",
		"NOTIFY_PROVIDER":   "aws",
		"NOTIFY_EMAIL_FROM": "no-reply@example.com",
		"NOTIFY_AWS_REGION": "eu-west-1",
		"S3_REGION":         "us-west-2",
	})
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.AdminEmails)
	assert.Equal(t, "auth-state", cfg.S3Bucket)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.True(t, cfg.SecureCookies)
	assert.True(t, cfg.AccountSyncEnabled())
	assert.Equal(t, "eu-west-1", cfg.NotifyAWSRegion)
	assert.Equal(t, "us-west-2", cfg.S3Region)
}

func TestProductionRequiresRealNotifier(t *testing.T) {
	_, err := LoadFrom(map[string]string{"APP_ENV": "production"})
	assert.ErrorContains(t, err, "NOTIFY_PROVIDER")

	_, err = LoadFrom(map[string]string{"APP_ENV": "production", "NOTIFY_PROVIDER": "console"})
	assert.Error(t, err)

	cfg, err := LoadFrom(map[string]string{"NOTIFY_PROVIDER": "console"})
	require.NoError(t, err)
	assert.False(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown env":         {"APP_ENV": "staging"},
		"unknown driver":      {"STORE_DRIVER": "redis"},
		"s3 without bucket":   {"STORE_DRIVER": "s3"},
		"datastore project":   {"STORE_DRIVER": "datastore"},
		"unknown admin src":   {"ADMIN_SOURCE": "ldap"},
		"aws without sender":  {"NOTIFY_PROVIDER": "aws"},
		"unknown notifier":    {"NOTIFY_PROVIDER": "pigeon"},
		"non positive ttl":    {"OTP_TTL": "0s"},
		"unparseable workers": {"ACCOUNT_SYNC_WORKERS": "many"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(vars)
			assert.Error(t, err)
		})
	}
}
