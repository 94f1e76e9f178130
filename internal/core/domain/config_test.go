package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSyncConfig(t *testing.T) {
	cfg := DefaultSyncConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, StrategyTransactional, cfg.Strategy)
	assert.Equal(t, 5000, cfg.SnapshotPageSize)
	assert.Equal(t, 24*time.Hour, cfg.RefreshPeriod)
}

func TestSyncConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SyncConfig)
	}{
		{"unknown strategy", func(c *SyncConfig) { c.Strategy = "nightly" }},
		{"zero status attempts", func(c *SyncConfig) { c.StatusPollAttempts = 0 }},
		{"zero page attempts", func(c *SyncConfig) { c.PageLoadAttempts = 0 }},
		{"zero delta attempts", func(c *SyncConfig) { c.DeltaReportPollAttempts = 0 }},
		{"zero page size", func(c *SyncConfig) { c.SnapshotPageSize = 0 }},
		{"negative delay", func(c *SyncConfig) { c.PageRetryDelay = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSyncConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseStrategyKind(t *testing.T) {
	kind, err := ParseStrategyKind("full")
	require.NoError(t, err)
	assert.Equal(t, StrategyFullSnapshot, kind)

	kind, err = ParseStrategyKind("transactional")
	require.NoError(t, err)
	assert.Equal(t, StrategyTransactional, kind)

	_, err = ParseStrategyKind("delta")
	assert.ErrorIs(t, err, ErrUnsupportedStrategy)
}
