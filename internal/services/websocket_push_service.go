package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocket Upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Should check Origin in production environment
		return true
	},
}

// Connection information
type Connection struct {
	ID       string          `json:"id"`
	UserID   string          `json:"user_id"`
	Conn     *websocket.Conn `json:"-"`
	Send     chan []byte     `json:"-"`
	LastPing time.Time       `json:"last_ping"`
}

// PushMessage base structure for client pushes
type PushMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id"`
	UserID    string      `json:"user_id"`
	Data      interface{} `json:"data"`
}

// WebSocketPushService per-user connection hub for sweep progress pushes
type WebSocketPushService struct {
	connections map[string]*Connection   // key: connectionID
	userConns   map[string][]*Connection // key: userID
	hub         chan PushMessage
	register    chan *Connection
	unregister  chan *Connection
	mutex       sync.RWMutex
}

// NewWebSocketPushService creates the hub and starts its event loop
func NewWebSocketPushService() *WebSocketPushService {
	service := &WebSocketPushService{
		connections: make(map[string]*Connection),
		userConns:   make(map[string][]*Connection),
		hub:         make(chan PushMessage, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
	}

	go service.run()
	return service
}

func (s *WebSocketPushService) run() {
	for {
		select {
		case conn := <-s.register:
			s.handleRegister(conn)

		case conn := <-s.unregister:
			s.handleUnregister(conn)

		case message := <-s.hub:
			s.handleBroadcast(message)
		}
	}
}

func (s *WebSocketPushService) handleRegister(conn *Connection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.connections[conn.ID] = conn
	s.userConns[conn.UserID] = append(s.userConns[conn.UserID], conn)

	log.Printf("📱 WebSocket connection registered: user=%s, connID=%s", conn.UserID, conn.ID)

	confirmMsg := PushMessage{
		Type:      "connection_established",
		Timestamp: time.Now().Format(time.RFC3339),
		MessageID: uuid.New().String(),
		UserID:    conn.UserID,
		Data: map[string]interface{}{
			"user_id":       conn.UserID,
			"connection_id": conn.ID,
			"message":       "Sweep progress connection established",
		},
	}
	s.sendToConnection(conn, confirmMsg)
}

func (s *WebSocketPushService) handleUnregister(conn *Connection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.connections, conn.ID)

	if userConns, exists := s.userConns[conn.UserID]; exists {
		for i, c := range userConns {
			if c.ID == conn.ID {
				s.userConns[conn.UserID] = append(userConns[:i], userConns[i+1:]...)
				break
			}
		}
		if len(s.userConns[conn.UserID]) == 0 {
			delete(s.userConns, conn.UserID)
		}
	}

	if conn.Send != nil {
		close(conn.Send)
	}
	if conn.Conn != nil {
		conn.Conn.Close()
	}

	log.Printf("📱 WebSocket connection unregistered: user=%s, connID=%s", conn.UserID, conn.ID)
}

func (s *WebSocketPushService) handleBroadcast(message PushMessage) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	userConns, exists := s.userConns[message.UserID]
	if !exists {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Failed to marshal push message: %v", err)
		return
	}

	sent := 0
	for _, conn := range userConns {
		select {
		case conn.Send <- data:
			sent++
		default:
			log.Printf("⚠️ Failed to send to connection: %s (channel full or closed)", conn.ID)
		}
	}
	log.Printf("📤 [WebSocketPush] %s delivered to %d/%d connections of user %s",
		message.Type, sent, len(userConns), message.UserID)
}

func (s *WebSocketPushService) sendToConnection(conn *Connection, message PushMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Failed to marshal push message: %v", err)
		return
	}

	select {
	case conn.Send <- data:
	default:
		log.Printf("⚠️ Failed to send to connection: %s", conn.ID)
	}
}

// Broadcast queues a message for all of a user's connections
func (s *WebSocketPushService) Broadcast(userID, msgType string, data interface{}) {
	message := PushMessage{
		Type:      msgType,
		Timestamp: time.Now().Format(time.RFC3339),
		MessageID: uuid.New().String(),
		UserID:    userID,
		Data:      data,
	}

	select {
	case s.hub <- message:
	default:
		log.Printf("⚠️ [WebSocketPush] Hub full, dropping %s for user %s", msgType, userID)
	}
}

// HandleWebSocket upgrades the request and pumps messages until the client
// disconnects
func (s *WebSocketPushService) HandleWebSocket(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}

	connection := &Connection{
		ID:       uuid.New().String(),
		UserID:   userID,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		LastPing: time.Now(),
	}

	s.register <- connection

	go s.handleConnectionWrite(connection)
	go s.handleConnectionRead(connection)
}

func (s *WebSocketPushService) handleConnectionWrite(conn *Connection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ Write message failed: %v", err)
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *WebSocketPushService) handleConnectionRead(conn *Connection) {
	defer func() {
		s.unregister <- conn
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.LastPing = time.Now()
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket read error: %v", err)
			}
			break
		}
	}
}

// GetActiveConnections number of live connections across all users
func (s *WebSocketPushService) GetActiveConnections() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.connections)
}

// GetUserConnections number of live connections for one user
func (s *WebSocketPushService) GetUserConnections(userID string) int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.userConns[userID])
}
