package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pdf_summarizer/logging"
)

// WebSocketBroadcaster manages WebSocket client connections and pushes
// state messages to all of them. Each client has its own write pump so a
// slow client never blocks the broadcast loop.
type WebSocketBroadcaster struct {
	clients   map[*websocket.Conn]clientInfo
	clientsMu sync.RWMutex

	broadcast  chan WSMessage
	register   chan *websocket.Conn
	unregister chan *websocket.Conn

	// stopped is closed when Start returns
	stopped  chan struct{}
	stopOnce sync.Once

	upgrader websocket.Upgrader

	pingInterval   time.Duration
	pongWait       time.Duration
	writeWait      time.Duration
	maxMessageSize int64
	sendBuffer     int

	// snapshot produces the message sent to a client right after it connects
	snapshot func() WSMessage

	logger *logging.Logger
}

type clientInfo struct {
	connectedAt time.Time
	remoteAddr  string
	send        chan []byte
}

// BroadcasterConfig holds configuration for the WebSocketBroadcaster
type BroadcasterConfig struct {
	// PingInterval is how often to send ping messages (default: 30s)
	PingInterval time.Duration

	// PongWait is how long to wait for pong response (default: 60s)
	PongWait time.Duration

	// WriteWait is time allowed to write a message (default: 10s)
	WriteWait time.Duration

	// MaxMessageSize is max message size from client (default: 512 bytes)
	MaxMessageSize int64

	// BroadcastBufferSize is the broadcast channel buffer (default: 256)
	BroadcastBufferSize int

	// ClientSendBufferSize is per-client send buffer (default: 256)
	ClientSendBufferSize int

	// Snapshot, if set, is sent to every new client
	Snapshot func() WSMessage
}

// DefaultBroadcasterConfig returns the default configuration
func DefaultBroadcasterConfig() BroadcasterConfig {
	return BroadcasterConfig{
		PingInterval:         30 * time.Second,
		PongWait:             60 * time.Second,
		WriteWait:            10 * time.Second,
		MaxMessageSize:       512,
		BroadcastBufferSize:  256,
		ClientSendBufferSize: 256,
	}
}

// NewWebSocketBroadcaster creates a broadcaster. Call Start to begin
// processing messages.
func NewWebSocketBroadcaster(config BroadcasterConfig, logger *logging.Logger) *WebSocketBroadcaster {
	defaults := DefaultBroadcasterConfig()
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.PongWait <= 0 {
		config.PongWait = defaults.PongWait
	}
	if config.WriteWait <= 0 {
		config.WriteWait = defaults.WriteWait
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}
	if config.BroadcastBufferSize <= 0 {
		config.BroadcastBufferSize = defaults.BroadcastBufferSize
	}
	if config.ClientSendBufferSize <= 0 {
		config.ClientSendBufferSize = defaults.ClientSendBufferSize
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &WebSocketBroadcaster{
		clients:        make(map[*websocket.Conn]clientInfo),
		broadcast:      make(chan WSMessage, config.BroadcastBufferSize),
		register:       make(chan *websocket.Conn),
		unregister:     make(chan *websocket.Conn),
		stopped:        make(chan struct{}),
		pingInterval:   config.PingInterval,
		pongWait:       config.PongWait,
		writeWait:      config.WriteWait,
		maxMessageSize: config.MaxMessageSize,
		sendBuffer:     config.ClientSendBufferSize,
		snapshot:       config.Snapshot,
		logger:         logger.Named("websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Same-origin deployment; the UI is served by this process.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Start runs the broadcast loop until ctx is cancelled.
func (b *WebSocketBroadcaster) Start(ctx context.Context) {
	pingTicker := time.NewTicker(b.pingInterval)
	defer pingTicker.Stop()
	defer b.stopOnce.Do(func() { close(b.stopped) })

	b.logger.Debug("broadcaster started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Debug("broadcaster stopping")
			b.closeAllClients()
			return

		case conn := <-b.register:
			b.addClient(conn)

		case conn := <-b.unregister:
			b.removeClient(conn)

		case message := <-b.broadcast:
			b.broadcastToAll(message)

		case <-pingTicker.C:
			b.sendPingToAll()
		}
	}
}

// HandleConnection upgrades the request and registers the client.
func (b *WebSocketBroadcaster) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		return
	}

	conn.SetReadLimit(b.maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(b.pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(b.pongWait))
		return nil
	})

	select {
	case b.register <- conn:
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go b.readPump(conn)
}

// BroadcastMessage queues msg for all clients. It never blocks; when the
// buffer is full the message is dropped.
func (b *WebSocketBroadcaster) BroadcastMessage(msg WSMessage) {
	select {
	case b.broadcast <- msg:
	default:
		b.logger.Warn("broadcast buffer full, dropping message", zap.String("type", msg.Type))
	}
}

// ClientCount returns the current number of connected clients.
func (b *WebSocketBroadcaster) ClientCount() int {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	return len(b.clients)
}

func (b *WebSocketBroadcaster) addClient(conn *websocket.Conn) {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()

	info := clientInfo{
		connectedAt: time.Now(),
		remoteAddr:  conn.RemoteAddr().String(),
		send:        make(chan []byte, b.sendBuffer),
	}
	b.clients[conn] = info

	go b.writePump(conn, info.send)

	if b.snapshot != nil {
		if data, err := json.Marshal(b.snapshot()); err == nil {
			info.send <- data
		} else {
			b.logger.Error("failed to marshal snapshot", zap.Error(err))
		}
	}

	b.logger.Debug("client connected",
		zap.String("remote_addr", info.remoteAddr),
		zap.Int("clients", len(b.clients)))
}

func (b *WebSocketBroadcaster) removeClient(conn *websocket.Conn) {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()

	if info, ok := b.clients[conn]; ok {
		close(info.send)
		delete(b.clients, conn)
		b.logger.Debug("client disconnected",
			zap.String("remote_addr", info.remoteAddr),
			zap.Duration("connected_for", time.Since(info.connectedAt)),
			zap.Int("clients", len(b.clients)))
	}
}

func (b *WebSocketBroadcaster) broadcastToAll(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to marshal broadcast message", zap.Error(err))
		return
	}

	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()

	for conn, info := range b.clients {
		select {
		case info.send <- data:
		default:
			b.logger.Warn("client send buffer full, closing", zap.String("remote_addr", info.remoteAddr))
			go b.dropClient(conn)
		}
	}
}

// sendPingToAll uses WriteControl, which may run concurrently with the
// write pumps.
func (b *WebSocketBroadcaster) sendPingToAll() {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()

	deadline := time.Now().Add(b.writeWait)
	for conn, info := range b.clients {
		if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			b.logger.Debug("ping failed", zap.String("remote_addr", info.remoteAddr), zap.Error(err))
			go b.dropClient(conn)
		}
	}
}

// dropClient asks the loop to remove conn. It gives up once the loop has
// stopped, or after writeWait when the loop was never started.
func (b *WebSocketBroadcaster) dropClient(conn *websocket.Conn) {
	select {
	case b.unregister <- conn:
	case <-b.stopped:
	case <-time.After(b.writeWait):
	}
}

func (b *WebSocketBroadcaster) closeAllClients() {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()

	for conn, info := range b.clients {
		close(info.send)
		delete(b.clients, conn)
	}
}

// readPump discards client messages and keeps the read deadline fresh.
// It exits when the connection closes.
func (b *WebSocketBroadcaster) readPump(conn *websocket.Conn) {
	defer func() {
		b.dropClient(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				b.logger.Debug("unexpected close", zap.Error(err))
			}
			return
		}
	}
}

func (b *WebSocketBroadcaster) writePump(conn *websocket.Conn, send <-chan []byte) {
	defer conn.Close()

	for message := range send {
		conn.SetWriteDeadline(time.Now().Add(b.writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			b.logger.Debug("write failed", zap.Error(err))
			return
		}
	}

	conn.SetWriteDeadline(time.Now().Add(b.writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
