// Package dispatch coordinates notification delivery across the three
// channels: durable storage, live push and email fallback.
//
// The Dispatcher handles a single recipient with a strict ordering
// guarantee: persist first (fatal on failure), then best-effort live push,
// then a fire-and-forget email attempt. The business caller only ever waits
// on persistence.
//
// The Orchestrator fans one event out to a computed audience through a
// bounded worker pool. Recipients are isolated from each other; the batch
// result aggregates outcomes by count instead of propagating a single
// failure. A caller-supplied batch key makes retried fan-outs idempotent by
// deriving per-recipient dedupe keys for the store.
package dispatch
