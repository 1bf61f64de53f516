package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", DriverMemory)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 20*time.Second, cfg.PageLoadTimeout)
	assert.Equal(t, 2*time.Second, cfg.RenderSettleDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.PolitenessDelay)
	assert.Equal(t, 50, cfg.DefaultMaxPages)
	assert.Equal(t, 7, cfg.DefaultCrawlCadenceDays)
	assert.Equal(t, 50, cfg.WordCountNoiseThreshold)
	assert.Equal(t, 1, cfg.CriticalWeight)
	assert.True(t, cfg.SchedulerEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", DriverMemory)
	t.Setenv("PAGE_LOAD_TIMEOUT", "45s")
	t.Setenv("DEFAULT_MAX_PAGES", "10")
	t.Setenv("SCHEDULER_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.PageLoadTimeout)
	assert.Equal(t, 10, cfg.DefaultMaxPages)
	assert.False(t, cfg.SchedulerEnabled)
}

func TestValidate(t *testing.T) {
	t.Setenv("STORE_DRIVER", DriverMemory)
	base, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "mongo" }},
		{name: "postgres without url", mutate: func(c *Config) { c.StoreDriver = DriverPostgres; c.PostgresURL = "" }},
		{name: "zero timeout", mutate: func(c *Config) { c.PageLoadTimeout = 0 }},
		{name: "negative delay", mutate: func(c *Config) { c.PolitenessDelay = -time.Second }},
		{name: "zero max pages", mutate: func(c *Config) { c.DefaultMaxPages = 0 }},
		{name: "negative weight", mutate: func(c *Config) { c.WarningWeight = -1 }},
		{name: "lease shorter than one page", mutate: func(c *Config) { c.LeaseTTL = c.PageLoadTimeout + c.RenderSettleDelay }},
		{name: "scheduler without spec", mutate: func(c *Config) { c.SchedulerSpec = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
