// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - LoadGateway: Full-snapshot vendor API (populate, status, pages)
//   - TransactionalGateway: Transaction and delta report vendor API
//   - HoldingsStore: Tenant-scoped holdings persistence
//   - LoadStatusStore: Durable load progress persistence
//   - TenantConfigStore: Remote configuration per tenant
//   - SchedulerStore: Scheduler task state and history
//
// Only the gateway matching the configured strategy must be provided.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
