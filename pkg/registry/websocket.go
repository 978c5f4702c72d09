package registry

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coursehub/notify/pkg/logger"
	"github.com/coursehub/notify/pkg/notification"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// WSConfig holds websocket transport settings.
type WSConfig struct {
	SendBuffer int `env:"WS_SEND_BUFFER" envDefault:"64"`
}

// WSConn adapts a gorilla websocket connection to the registry's Conn
// interface. Events are handed to a buffered channel and written by a
// dedicated pump goroutine, so Send never blocks on a slow client: a full
// buffer is an error and gets the connection evicted.
type WSConn struct {
	ws   *websocket.Conn
	send chan notification.Event

	closeOnce sync.Once
	closed    chan struct{}
}

// NewWSConn wraps an upgraded websocket connection. The pumps are started by
// Serve.
func NewWSConn(ws *websocket.Conn, cfg WSConfig) *WSConn {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 64
	}
	return &WSConn{
		ws:     ws,
		send:   make(chan notification.Event, buffer),
		closed: make(chan struct{}),
	}
}

// Send queues one event for the writer pump.
func (c *WSConn) Send(event notification.Event) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- event:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close tears the websocket down. Idempotent.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
	return nil
}

// Serve runs the read and write pumps until the client goes away, then
// invokes onDisconnect (typically Registry.Unregister with this connection's
// id). Blocks until the read pump exits.
func (c *WSConn) Serve(onDisconnect func()) {
	go c.writePump()
	c.readPump()
	onDisconnect()
}

// readPump consumes client frames. The subsystem pushes only; inbound frames
// exist to carry pongs and detect disconnects.
func (c *WSConn) readPump() {
	defer func() { _ = c.Close() }()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with pings.
func (c *WSConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.closed:
			return
		case event := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler returns an http.HandlerFunc that upgrades the request, runs the
// handshake with the token from the "token" query parameter and serves the
// connection until disconnect. Routing and middleware stay with the host
// application; this is the only HTTP surface the subsystem exposes.
func Handler(h *Handshake, reg *Registry, cfg WSConfig, log *slog.Logger) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			return
		}

		conn := NewWSConn(ws, cfg)
		id, err := h.Run(r.Context(), r.URL.Query().Get("token"), conn)
		if err != nil {
			log.LogAttrs(r.Context(), slog.LevelInfo, "websocket handshake rejected",
				logger.Component("registry"),
				logger.Error(err),
			)
			return
		}

		conn.Serve(func() { reg.Unregister(id) })
	}
}
