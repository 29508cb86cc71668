package api

import (
	"net/http"
	"sync"
	"time"

	models "StockWatch/internal/domain/models"
	xlogger "StockWatch/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	clientBacklog  = 4
	maxStreamConns = 64
)

// StreamHandler pushes snapshot commits to WebSocket subscribers. A slow
// client drops frames instead of blocking the broadcast.
type StreamHandler struct {
	logger   *xlogger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*streamClient]struct{}
}

type streamClient struct {
	conn *websocket.Conn
	send chan *models.Snapshot
}

func NewStreamHandler(logger *xlogger.Logger) *StreamHandler {
	return &StreamHandler{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: map[*streamClient]struct{}{},
	}
}

// Broadcast queues a committed snapshot for every connected client.
func (h *StreamHandler) Broadcast(snap *models.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- snap:
		default:
			// backlog full, drop this frame for the laggard
		}
	}
}

// Serve upgrades the connection and streams snapshots until the client
// goes away.
func (h *StreamHandler) Serve(c echo.Context) error {
	h.mu.Lock()
	if len(h.clients) >= maxStreamConns {
		h.mu.Unlock()
		return c.NoContent(http.StatusServiceUnavailable)
	}
	h.mu.Unlock()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil // upgrader already wrote the error response
	}

	client := &streamClient{
		conn: conn,
		send: make(chan *models.Snapshot, clientBacklog),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("stream client connected", xlogger.Int("clients", total))

	go h.writeLoop(client)
	h.readLoop(client)
	return nil
}

func (h *StreamHandler) writeLoop(client *streamClient) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-client.send:
			if !ok {
				return
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains control frames and detects disconnects.
func (h *StreamHandler) readLoop(client *streamClient) {
	defer h.drop(client)
	client.conn.SetPongHandler(func(string) error { return nil })
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) drop(client *streamClient) {
	h.mu.Lock()
	_, present := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()
	if !present {
		return // already torn down by Close
	}
	close(client.send)
	_ = client.conn.Close()
}

// Close disconnects all clients, used on shutdown.
func (h *StreamHandler) Close() {
	h.mu.Lock()
	clients := make([]*streamClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = map[*streamClient]struct{}{}
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
		_ = c.conn.Close()
	}
}
