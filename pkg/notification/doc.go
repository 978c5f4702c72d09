// Package notification holds the notification domain model and its
// tenant-scoped persistence.
//
// The Storage interface is the single source of truth for "did this
// notification happen": live push and email are best-effort channels layered
// on top (see pkg/dispatch). Two implementations are provided:
//
//   - MemoryStorage for development and tests
//   - PostgresStorage for production, backed by pkg/pg
//
// Tenant isolation is part of the interface contract, not a storage detail:
// ids never resolve outside their own tenant, and a cross-tenant lookup is
// reported as ErrNotificationNotFound rather than a permission error.
package notification
