package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "storefront-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.False(t, cfg.Redis.Enabled)

	assert.Equal(t, int64(10000), cfg.Checkout.DeliveryChargeThreshold)
	assert.Equal(t, int64(400), cfg.Checkout.DeliveryCharge)
	assert.Equal(t, 3, cfg.Checkout.MaxReserveAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Checkout.IdempotencyTTL)
	assert.Equal(t, 7, cfg.Orders.ReturnWindowDays)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("defaults pass", func(t *testing.T) {
		require.NoError(t, base().validate())
	})

	t.Run("idle conns cannot exceed open conns", func(t *testing.T) {
		cfg := base()
		cfg.Database.MaxIdleConns = 50
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
	})

	t.Run("negative delivery charge rejected", func(t *testing.T) {
		cfg := base()
		cfg.Checkout.DeliveryCharge = -1
		require.Error(t, cfg.validate())
	})

	t.Run("reserve attempts must be positive", func(t *testing.T) {
		cfg := base()
		cfg.Checkout.MaxReserveAttempts = 0
		require.Error(t, cfg.validate())
	})

	t.Run("production requires password and ssl", func(t *testing.T) {
		cfg := base()
		cfg.App.Env = "production"
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "password")

		cfg.Database.Password = "secret"
		err = cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode")

		cfg.Database.SSLMode = "require"
		require.NoError(t, cfg.validate())
	})
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "store",
		Password: "p@ss/word#1",
		DBName:   "storefront",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.True(t, strings.HasPrefix(dsn, "postgres://"))
	assert.Contains(t, dsn, "db.internal:5433")
	assert.Contains(t, dsn, "sslmode=require")
	// Special characters in the password must be escaped
	assert.NotContains(t, dsn, "p@ss/word#1")
	assert.Contains(t, dsn, "p%40ss%2Fword%231")
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}
