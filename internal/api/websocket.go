package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// SnapshotBroadcastInterval is the world:snapshot period (10 Hz)
	SnapshotBroadcastInterval = 100 * time.Millisecond

	wsWriteTimeout = 2 * time.Second
)

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// wsMessage is the envelope of every frame sent to clients.
type wsMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// WebSocketHub manages all WebSocket connections with DoS protection
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	stopChan   chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	upgrader websocket.Upgrader

	// open connections per client IP, reserved before the upgrade
	slotsMu sync.Mutex
	slots   map[string]int
}

// NewWebSocketHub creates a new hub with connection limiting. Browser
// connections must come from one of allowedOrigins; clients that send no
// Origin header (non-browser tools) are accepted.
func NewWebSocketHub(allowedOrigins []string) *WebSocketHub {
	h := &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		stopChan:   make(chan struct{}),
		slots:      make(map[string]int),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || IsAllowedOrigin(origin, allowedOrigins) {
				return true
			}
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run services registrations and broadcasts until Stop is called.
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.stopChan:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(conn)
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.dropLocked(conn)
				}
			}
			count := len(h.clients)
			h.mu.Unlock()

			UpdateWSConnections(count)
			IncrementWSMessages()
		}
	}
}

// dropLocked closes a connection and frees its IP slot. Caller holds h.mu.
func (h *WebSocketHub) dropLocked(conn *websocket.Conn) {
	client, ok := h.clients[conn]
	if !ok {
		return
	}
	h.releaseSlot(client.ip)
	delete(h.clients, conn)
	conn.Close()
}

func (h *WebSocketHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		h.dropLocked(conn)
	}
	UpdateWSConnections(0)
}

// Stop ends Run and the broadcast loop and closes every connection.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// Broadcast sends a message to all connected clients
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	jsonBytes, err := json.Marshal(wsMessage{Event: event, Data: data})
	if err != nil {
		log.Printf("⚠️ WebSocket encode %s failed: %v", event, err)
		return
	}

	select {
	case h.broadcast <- jsonBytes:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop publishes world:snapshot at the given interval while
// clients are connected.
func (h *WebSocketHub) StartBroadcastLoop(engine EngineInterface, interval time.Duration) {
	if interval <= 0 {
		interval = SnapshotBroadcastInterval
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
				if h.ClientCount() == 0 {
					continue
				}
				h.Broadcast("world:snapshot", engine.GetSnapshot())
			}
		}
	}()
}

// reserveSlot claims one of ip's MaxWSConnectionsPerIP connection slots.
func (h *WebSocketHub) reserveSlot(ip string) bool {
	h.slotsMu.Lock()
	defer h.slotsMu.Unlock()
	if h.slots[ip] >= MaxWSConnectionsPerIP {
		return false
	}
	h.slots[ip]++
	return true
}

func (h *WebSocketHub) releaseSlot(ip string) {
	h.slotsMu.Lock()
	defer h.slotsMu.Unlock()
	if h.slots[ip] <= 1 {
		delete(h.slots, ip)
		return
	}
	h.slots[ip]--
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if total := h.ClientCount(); total >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.reserveSlot(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.releaseSlot(ip)
		return
	}

	select {
	case h.register <- &wsClient{conn: conn, ip: ip}:
	case <-h.stopChan:
		h.releaseSlot(ip)
		conn.Close()
		return
	}

	// Clients only listen; reading detects disconnects and handles pings.
	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.stopChan:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
