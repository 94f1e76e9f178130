package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/holdings-sync/internal/core/domain"
)

const sampleConfig = `
[sync]
strategy = "full"
status_poll_delay = "10s"
page_load_attempts = 3
snapshot_page_size = 1000

[scheduler]
sync_interval = "6h"

[storage]
driver = "sqlite"

[[tenants]]
id = "tenant-a"
credentials_id = "cred-1"
url = "https://api.example.com/rm"
customer_id = "cust1"
api_key = "secret"

[[tenants]]
id = "tenant-b"
credentials_id = "cred-2"
url = "https://api.example.com/rm"
customer_id = "cust2"
api_key_env = "HOLDINGS_SYNC_TEST_KEY"
`

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0600))
}

func TestNewConfigStore_MissingFileUsesDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	assert.Equal(t, domain.DefaultSyncConfig(), store.Config().SyncConfig())

	tenants, err := store.ListTenants(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tenants)
}

func TestNewConfigStore_LoadsFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, sampleConfig)
	t.Setenv("HOLDINGS_SYNC_TEST_KEY", "from-env")

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	syncCfg := store.Config().SyncConfig()
	assert.Equal(t, domain.StrategyFullSnapshot, syncCfg.Strategy)
	assert.Equal(t, 10*time.Second, syncCfg.StatusPollDelay)
	assert.Equal(t, 3, syncCfg.PageLoadAttempts)
	assert.Equal(t, 1000, syncCfg.SnapshotPageSize)
	// untouched keys keep their defaults
	assert.Equal(t, domain.DefaultSyncConfig().StatusPollAttempts, syncCfg.StatusPollAttempts)

	schedCfg := store.Config().SchedulerConfig()
	assert.True(t, schedCfg.Enabled)
	assert.Equal(t, 6*time.Hour, schedCfg.GetTaskConfig(domain.TaskIDHoldingsSync).Interval)

	tenants, err := store.ListTenants(context.Background())
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "secret", tenants[0].Remote.APIKey)
	assert.Equal(t, "from-env", tenants[1].Remote.APIKey)

	tenant, err := store.GetTenant(context.Background(), "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "cust1", tenant.Remote.CustomerID)

	_, err = store.GetTenant(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewConfigStore_InvalidFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `[sync`},
		{"bad duration", "[sync]\nstatus_poll_delay = \"soon\""},
		{"bad strategy", "[sync]\nstrategy = \"nightly\""},
		{"zero attempts", "[sync]\npage_load_attempts = 0"},
		{"postgres without dsn", "[storage]\ndriver = \"postgres\""},
		{"tenant missing key", "[[tenants]]\nid = \"a\"\ncredentials_id = \"c\"\nurl = \"https://x\"\ncustomer_id = \"1\""},
		{"duplicate tenant", "[[tenants]]\nid = \"a\"\ncredentials_id = \"c\"\nurl = \"https://x\"\ncustomer_id = \"1\"\napi_key = \"k\"\n" +
			"[[tenants]]\nid = \"a\"\ncredentials_id = \"d\"\nurl = \"https://x\"\ncustomer_id = \"2\"\napi_key = \"k\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			writeConfig(t, tmpDir, tt.content)

			_, err := NewConfigStore(tmpDir)
			assert.Error(t, err)
		})
	}
}

func TestConfigStore_SaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Sync.RefreshPeriod = Duration(2 * time.Hour)
	cfg.Tenants = []TenantSection{{
		ID: "tenant-a", CredentialsID: "cred-1", URL: "https://api.example.com", CustomerID: "c", APIKey: "k",
	}}
	require.NoError(t, store.Save(cfg))

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, reloaded.Config().SyncConfig().RefreshPeriod)
	assert.Len(t, reloaded.Config().Tenants, 1)
}

func TestConfigStore_SaveRejectsInvalid(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Sync.DeltaPageSize = 0
	assert.ErrorIs(t, store.Save(cfg), domain.ErrInvalidInput)

	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestConfigStore_LoadKeepsPreviousOnError(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, sampleConfig)
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	writeConfig(t, tmpDir, "[sync]\nstrategy = \"nightly\"")
	assert.Error(t, store.Load())
	assert.Equal(t, domain.StrategyFullSnapshot, store.Config().SyncConfig().Strategy)
}

func TestConfigStore_Watch(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func(c Config) {
			select {
			case changes <- c:
			default:
			}
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, tmpDir, sampleConfig)

	// The file may be seen empty on create; wait for the full reload.
	deadline := time.After(5 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case cfg := <-changes:
			reloaded = len(cfg.Tenants) == 2
		case <-deadline:
			t.Fatal("no reload after config change")
		}
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestDuration_Text(t *testing.T) {
	d := Duration(90 * time.Second)
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	var parsed Duration
	require.NoError(t, parsed.UnmarshalText([]byte("1h")))
	assert.Equal(t, Duration(time.Hour), parsed)
	assert.Error(t, parsed.UnmarshalText([]byte("1 hour")))
}
