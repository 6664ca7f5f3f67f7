package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var zoneEnvKeys = []string{
	"ZONE_APP_NAME",
	"ZONE_APP_ENV",
	"ZONE_APP_PORT",
	"ZONE_APP_TENANT_ID",
	"ZONE_DATABASE_HOST",
	"ZONE_DATABASE_PORT",
	"ZONE_DATABASE_PASSWORD",
	"ZONE_DATABASE_SSLMODE",
	"ZONE_DATABASE_MAX_OPEN_CONNS",
	"ZONE_DATABASE_MAX_IDLE_CONNS",
	"ZONE_JWT_SECRET",
	"ZONE_NOTIFICATION_MAX_RETRIES",
	"ZONE_STORAGE_BUCKET",
	"ZONE_TELEMETRY_SAMPLING_RATIO",
}

// clearEnv blanks every variable the tests touch; t.Setenv restores them afterwards
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range zoneEnvKeys {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "zone-reporting", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "00000000-0000-0000-0000-000000000001", cfg.App.TenantID)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "zone_reporting", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Notification.MaxRetries)
		assert.Equal(t, time.Minute, cfg.Notification.BaseBackoff)
		assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenExpiration)
		assert.Equal(t, int64(10<<20), cfg.Imports.MaxFileSize)
		assert.Equal(t, "resources/permissions_matrix.csv", cfg.Permissions.MatrixPath)
	})

	t.Run("loads values from environment variables with ZONE prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ZONE_APP_NAME", "zone-test")
		t.Setenv("ZONE_APP_PORT", "9000")
		t.Setenv("ZONE_APP_TENANT_ID", "6f1e2d3c-4b5a-4978-8695-a4b3c2d1e0f9")
		t.Setenv("ZONE_DATABASE_HOST", "db.internal")
		t.Setenv("ZONE_DATABASE_PORT", "5433")
		t.Setenv("ZONE_STORAGE_BUCKET", "reports")
		t.Setenv("ZONE_NOTIFICATION_MAX_RETRIES", "3")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "zone-test", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "reports", cfg.Storage.Bucket)
		assert.Equal(t, 3, cfg.Notification.MaxRetries)

		tenant, err := cfg.App.Tenant()
		require.NoError(t, err)
		assert.Equal(t, "6f1e2d3c-4b5a-4978-8695-a4b3c2d1e0f9", tenant.String())
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ZONE_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("ZONE_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects a malformed tenant id", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ZONE_APP_TENANT_ID", "not-a-uuid")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tenant_id")
	})

	t.Run("rejects out of range sampling ratio", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ZONE_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestValidateProduction(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.App.Env = "production"
		applyDefaults(cfg)
		cfg.App.TenantID = "6f1e2d3c-4b5a-4978-8695-a4b3c2d1e0f9"
		cfg.JWT.Secret = "a-very-long-production-secret-value-0123456789"
		cfg.Database.Password = "secret"
		cfg.Database.SSLMode = "require"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid production config", mutate: func(*Config) {}},
		{name: "default jwt secret", mutate: func(c *Config) { c.JWT.Secret = DefaultJWTSecret }, wantErr: "jwt.secret"},
		{name: "missing tenant", mutate: func(c *Config) { c.App.TenantID = "" }, wantErr: "tenant_id"},
		{name: "ssl disabled", mutate: func(c *Config) { c.Database.SSLMode = "disable" }, wantErr: "sslmode"},
		{name: "wildcard cors", mutate: func(c *Config) { c.HTTP.CORSAllowOrigins = []string{"*"} }, wantErr: "cors"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "zone", Password: "p@ss word", DBName: "zone", SSLMode: "require"}
	assert.Equal(t, "postgres://zone:p%40ss%20word@db:5432/zone?sslmode=require", d.DSN())
}
