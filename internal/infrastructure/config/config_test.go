package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "supplytrace", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, OracleModeMemory, cfg.Oracle.Mode)
	assert.Equal(t, uint32(300000), cfg.Oracle.GasLimit)
	assert.Equal(t, time.Minute, cfg.Upkeep.Interval)
	assert.Equal(t, 10, cfg.Upkeep.MaxPerformsPerTick)
	assert.Equal(t, "supplytrace.events", cfg.Event.KafkaTopic)
	assert.Equal(t, 24*time.Hour, cfg.Event.IdempotencyTTL)
	assert.Equal(t, "provenance", cfg.Storage.ProvenancePrefix)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SUPPLYTRACE_DATABASE_DRIVER", "sqlite")
	t.Setenv("SUPPLYTRACE_HTTP_PORT", "9090")
	t.Setenv("SUPPLYTRACE_ORACLE_MODE", "http")
	t.Setenv("SUPPLYTRACE_ORACLE_ENDPOINT", "http://gateway.local/requests")
	t.Setenv("SUPPLYTRACE_ORACLE_SUBSCRIPTION_ID", "77")
	t.Setenv("SUPPLYTRACE_UPKEEP_INTERVAL", "30s")
	t.Setenv("SUPPLYTRACE_ACCESS_BOOTSTRAP_ADMIN", "5b1e8a2c-2a52-4c1a-8f6c-3f0b7a1e9d10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, OracleModeHTTP, cfg.Oracle.Mode)
	assert.Equal(t, uint64(77), cfg.Oracle.SubscriptionID)
	assert.Equal(t, 30*time.Second, cfg.Upkeep.Interval)
	assert.Equal(t, "5b1e8a2c-2a52-4c1a-8f6c-3f0b7a1e9d10", cfg.Access.BootstrapAdmin)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"idle above open", func(c *Config) { c.Database.MaxIdleConns = 100 }, "max_idle_conns"},
		{"http oracle without endpoint", func(c *Config) { c.Oracle.Mode = OracleModeHTTP }, "oracle.endpoint"},
		{"unknown oracle mode", func(c *Config) { c.Oracle.Mode = "chain" }, "oracle.mode"},
		{"kafka without brokers", func(c *Config) { c.Event.KafkaEnabled = true }, "kafka_brokers"},
		{"storage without bucket", func(c *Config) { c.Storage.Enabled = true }, "storage.bucket"},
		{"sampling out of range", func(c *Config) { c.Telemetry.SamplingRatio = 1.5 }, "sampling_ratio"},
		{"production short secret", func(c *Config) {
			c.App.Env = "production"
			c.JWT.Secret = "short"
		}, "jwt.secret"},
		{"production memory driver", func(c *Config) {
			c.App.Env = "production"
			c.JWT.Secret = "0123456789abcdef0123456789abcdef"
			c.Database.Driver = DriverMemory
		}, "memory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
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

func TestDSN_EscapesPassword(t *testing.T) {
	d := DatabaseConfig{User: "app", Password: "p@ss word", Host: "db", Port: 5432, DBName: "supplytrace", SSLMode: "require"}
	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/supplytrace?sslmode=require", d.DSN())
}
