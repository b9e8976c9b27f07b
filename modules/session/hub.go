package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 개발용 - 모든 origin 허용
		return true
	},
}

// Relay - 인스턴스 간 상태 전달 (Redis pub/sub)
type Relay interface {
	Publish(ctx context.Context, sessionID string, payload []byte) error
	Subscribe(ctx context.Context, handler func(sessionID string, payload []byte)) error
}

// Message - 클라이언트로 보내는 메시지
type Message struct {
	Type     string    `json:"type"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// Client - 세션 상태 구독자
type Client struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
}

// Hub - 세션별 WebSocket 구독자 관리
type Hub struct {
	mutex   sync.RWMutex
	clients map[string]map[*Client]struct{}
	relay   Relay
	log     zerolog.Logger

	totalConnections int
}

// NewHub - relay 가 nil 이면 로컬 전달만
func NewHub(relay Relay, log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		relay:   relay,
		log:     log.With().Str("component", "hub").Logger(),
	}
}

// Relayed - 다른 인스턴스의 세션도 구독 가능 여부
func (h *Hub) Relayed() bool {
	return h.relay != nil
}

// Run - relay 구독 시작 (relay 가 없으면 ctx 종료까지 대기)
func (h *Hub) Run(ctx context.Context) error {
	if h.relay == nil {
		<-ctx.Done()
		return nil
	}
	h.log.Info().Msg("📡 Subscribing to session status relay")
	return h.relay.Subscribe(ctx, h.deliver)
}

// Publish - 세션 스냅샷 전송 (relay 실패 시 로컬 전달)
func (h *Hub) Publish(snap Snapshot) {
	payload, err := json.Marshal(Message{Type: "session_state", Snapshot: &snap})
	if err != nil {
		h.log.Error().Err(err).Msg("Error marshaling message")
		return
	}

	if h.relay != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := h.relay.Publish(ctx, snap.SessionID, payload)
		if err == nil {
			return
		}
		h.log.Warn().Err(err).Str("session", snap.SessionID).Msg("⚠️  Relay publish failed, delivering locally")
	}
	h.deliver(snap.SessionID, payload)
}

// deliver - 로컬 구독자에게 전송, 막힌 클라이언트는 정리
func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients[sessionID] {
		select {
		case client.send <- payload:
		default:
			close(client.send)
			delete(h.clients[sessionID], client)
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mutex.Lock()
	if h.clients[c.sessionID] == nil {
		h.clients[c.sessionID] = make(map[*Client]struct{})
	}
	h.clients[c.sessionID][c] = struct{}{}
	h.totalConnections++
	count := len(h.clients[c.sessionID])
	h.mutex.Unlock()

	h.log.Info().Str("session", c.sessionID).Int("clients", count).Msg("👤 Client subscribed")
}

func (h *Hub) unregister(c *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if set, ok := h.clients[c.sessionID]; ok {
		if _, exists := set[c]; exists {
			close(c.send)
			delete(set, c)
		}
		if len(set) == 0 {
			delete(h.clients, c.sessionID)
		}
	}
	h.log.Info().Str("session", c.sessionID).Msg("👋 Client unsubscribed")
}

// CloseSession - 세션 삭제 시 구독자 연결 종료
func (h *Hub) CloseSession(sessionID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients[sessionID] {
		close(client.send)
		h.log.Info().Str("session", sessionID).Msg("🔌 Disconnecting client from removed session")
	}
	delete(h.clients, sessionID)
}

// Subscribers - 세션의 로컬 구독자 수
func (h *Hub) Subscribers(sessionID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[sessionID])
}

// TotalConnections - 누적 연결 수
func (h *Hub) TotalConnections() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.totalConnections
}

// Serve - WebSocket 업그레이드 후 initial 이 있으면 먼저 전송, 이후 변경마다 push
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string, initial *Snapshot) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &Client{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, sendBuffer),
	}

	// 등록 전에 초기 스냅샷을 넣어 둔다
	if initial != nil {
		if payload, err := json.Marshal(Message{Type: "session_state", Snapshot: initial}); err == nil {
			client.send <- payload
		}
	}
	h.register(client)

	go client.writePump(h.log)
	go client.readPump(h)
}

// readPump - 클라이언트 메시지는 무시하고 연결 종료만 감지
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("session", c.sessionID).Msg("WebSocket error")
			}
			return
		}
	}
}

// writePump - send 채널을 연결로 전달
func (c *Client) writePump(log zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().Err(err).Str("session", c.sessionID).Msg("WebSocket write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
