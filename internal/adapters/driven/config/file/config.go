package file

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
)

// Duration is a time.Duration written as a duration string in TOML.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config is the on-disk configuration.
type Config struct {
	Sync      SyncSection      `toml:"sync"`
	Scheduler SchedulerSection `toml:"scheduler"`
	Storage   StorageSection   `toml:"storage"`
	Remote    RemoteSection    `toml:"rmapi"`
	Tenants   []TenantSection  `toml:"tenants" validate:"unique=ID,dive"`
}

// SyncSection configures the sync engine.
type SyncSection struct {
	Strategy                string   `toml:"strategy" validate:"oneof=full transactional"`
	StatusPollDelay         Duration `toml:"status_poll_delay" validate:"min=0"`
	StatusPollAttempts      int      `toml:"status_poll_attempts" validate:"min=1"`
	PageLoadAttempts        int      `toml:"page_load_attempts" validate:"min=1"`
	PageRetryDelay          Duration `toml:"page_retry_delay" validate:"min=0"`
	RefreshPeriod           Duration `toml:"refresh_period" validate:"min=0"`
	DeltaReportPollDelay    Duration `toml:"delta_report_poll_delay" validate:"min=0"`
	DeltaReportPollAttempts int      `toml:"delta_report_poll_attempts" validate:"min=1"`
	SnapshotPageSize        int      `toml:"snapshot_page_size" validate:"min=1"`
	TransactionPageSize     int      `toml:"transaction_page_size" validate:"min=1"`
	DeltaPageSize           int      `toml:"delta_page_size" validate:"min=1"`
}

// SchedulerSection configures the background scheduler.
type SchedulerSection struct {
	Enabled          bool     `toml:"enabled"`
	CheckInterval    Duration `toml:"check_interval" validate:"min=0"`
	HistoryRetention int      `toml:"history_retention" validate:"min=0"`
	SyncEnabled      bool     `toml:"sync_enabled"`
	SyncInterval     Duration `toml:"sync_interval" validate:"min=0"`
}

// StorageSection selects the holdings database. The memory driver keeps
// holdings for the life of the process only.
type StorageSection struct {
	Driver string `toml:"driver" validate:"oneof=sqlite postgres memory"`
	// DSN is the Postgres connection string. Unused for sqlite.
	DSN string `toml:"dsn" validate:"required_if=Driver postgres"`
}

// RemoteSection tunes the vendor API client.
type RemoteSection struct {
	RateLimit float64  `toml:"rate_limit" validate:"min=0"`
	Timeout   Duration `toml:"timeout" validate:"min=0"`
}

// TenantSection is one tenant's remote account.
type TenantSection struct {
	ID            string `toml:"id" validate:"required"`
	CredentialsID string `toml:"credentials_id" validate:"required"`
	URL           string `toml:"url" validate:"required,url"`
	CustomerID    string `toml:"customer_id" validate:"required"`
	APIKey        string `toml:"api_key,omitempty" validate:"required_without=APIKeyEnv"`
	// APIKeyEnv names an environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env,omitempty"`
}

// DefaultConfig returns the configuration used when the file is missing
// or silent on a key.
func DefaultConfig() Config {
	syncCfg := domain.DefaultSyncConfig()
	schedCfg := domain.DefaultSchedulerConfig()
	task := schedCfg.GetTaskConfig(domain.TaskIDHoldingsSync)

	return Config{
		Sync: SyncSection{
			Strategy:                string(syncCfg.Strategy),
			StatusPollDelay:         Duration(syncCfg.StatusPollDelay),
			StatusPollAttempts:      syncCfg.StatusPollAttempts,
			PageLoadAttempts:        syncCfg.PageLoadAttempts,
			PageRetryDelay:          Duration(syncCfg.PageRetryDelay),
			RefreshPeriod:           Duration(syncCfg.RefreshPeriod),
			DeltaReportPollDelay:    Duration(syncCfg.DeltaReportPollDelay),
			DeltaReportPollAttempts: syncCfg.DeltaReportPollAttempts,
			SnapshotPageSize:        syncCfg.SnapshotPageSize,
			TransactionPageSize:     syncCfg.TransactionPageSize,
			DeltaPageSize:           syncCfg.DeltaPageSize,
		},
		Scheduler: SchedulerSection{
			Enabled:          schedCfg.Enabled,
			CheckInterval:    Duration(schedCfg.CheckInterval),
			HistoryRetention: schedCfg.HistoryRetention,
			SyncEnabled:      task.Enabled,
			SyncInterval:     Duration(task.Interval),
		},
		Storage: StorageSection{Driver: "sqlite"},
		Remote: RemoteSection{
			RateLimit: 4,
			Timeout:   Duration(time.Minute),
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the resulting sync configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return c.SyncConfig().Validate()
}

// SyncConfig converts the sync section.
func (c Config) SyncConfig() domain.SyncConfig {
	s := c.Sync
	return domain.SyncConfig{
		Strategy:                domain.StrategyKind(s.Strategy),
		StatusPollDelay:         time.Duration(s.StatusPollDelay),
		StatusPollAttempts:      s.StatusPollAttempts,
		PageLoadAttempts:        s.PageLoadAttempts,
		PageRetryDelay:          time.Duration(s.PageRetryDelay),
		RefreshPeriod:           time.Duration(s.RefreshPeriod),
		DeltaReportPollDelay:    time.Duration(s.DeltaReportPollDelay),
		DeltaReportPollAttempts: s.DeltaReportPollAttempts,
		SnapshotPageSize:        s.SnapshotPageSize,
		TransactionPageSize:     s.TransactionPageSize,
		DeltaPageSize:           s.DeltaPageSize,
	}
}

// SchedulerConfig converts the scheduler section.
func (c Config) SchedulerConfig() domain.SchedulerConfig {
	s := c.Scheduler
	return domain.SchedulerConfig{
		Enabled:          s.Enabled,
		CheckInterval:    time.Duration(s.CheckInterval),
		HistoryRetention: s.HistoryRetention,
		TaskConfigs: map[string]domain.TaskConfig{
			domain.TaskIDHoldingsSync: {
				Enabled:  s.SyncEnabled,
				Interval: time.Duration(s.SyncInterval),
			},
		},
	}
}

// TenantConfiguration resolves the tenant's API key and converts it.
func (t TenantSection) TenantConfiguration() domain.TenantConfiguration {
	apiKey := t.APIKey
	if apiKey == "" && t.APIKeyEnv != "" {
		apiKey = os.Getenv(t.APIKeyEnv)
	}
	return domain.TenantConfiguration{
		TenantID:      t.ID,
		CredentialsID: t.CredentialsID,
		Remote: domain.RemoteConfiguration{
			URL:        t.URL,
			CustomerID: t.CustomerID,
			APIKey:     apiKey,
		},
	}
}
