// Package pg provides the PostgreSQL infrastructure for the notification
// store: pooled connections with startup retry, health checks and embedded
// goose migrations.
//
// The package owns connection lifecycle only; queries live with the
// components that issue them (see notification.PostgresStorage).
package pg
