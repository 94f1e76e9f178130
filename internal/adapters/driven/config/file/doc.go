// Package file loads holdings-sync configuration from a TOML file.
//
// The default location is ~/.holdings-sync/config.toml. Missing keys keep
// their defaults; durations are Go duration strings ("30s", "24h").
// ConfigStore also serves the configured tenants as a driven.TenantConfigStore
// and can watch the file for edits while the service runs.
package file
