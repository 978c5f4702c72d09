// Package registry tracks live client connections per recipient and pushes
// notification events to them.
//
// The registry is the only shared mutable state in the delivery subsystem.
// It maps (tenant, recipient) to the set of currently live connections and
// guarantees that register, unregister and send for one recipient are
// linearizable with respect to each other, via a sharded-lock map.
//
// Connections enter through a Handshake: connecting -> authenticated ->
// active -> disconnected. A failed or timed-out authentication refuses the
// connection without registering it. A failed push evicts only the failing
// connection - the registry self-heals around dead clients.
//
// The package ships a gorilla/websocket transport (WSConn, Handler); any
// transport implementing Conn with a non-blocking Send works.
package registry
