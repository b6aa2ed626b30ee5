// Package feed entrega atualizações de combates e apostas via WebSocket.
package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// client serializa as escritas: gorilla/websocket não aceita writers concorrentes
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas por combate
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// combatID (ou "*") -> conexões inscritas
	subs map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem
func NewHub(allowOrigin func(r *http.Request) bool, log *zap.Logger) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	defer h.drop(c)

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "subscribe":
			if msg.CombatID == "" {
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.CombatID]; !ok {
				h.subs[msg.CombatID] = make(map[*client]struct{})
			}
			h.subs[msg.CombatID][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			h.remove(msg.CombatID, c)
			h.mu.Unlock()
		case "ping":
			_ = c.write([]byte(`{"type":"pong"}`))
		}
	}
}

// drop remove a conexão de todas as assinaturas ao desconectar
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.subs {
		h.remove(id, c)
	}
}

func (h *Hub) remove(combatID string, c *client) {
	if set, ok := h.subs[combatID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, combatID)
		}
	}
}

// Broadcast entrega a atualização aos inscritos no combate e aos inscritos em "*"
func (h *Hub) Broadcast(u Update) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[u.CombatID])+len(h.subs[AllCombats]))
	seen := make(map[*client]struct{})
	for _, key := range []string{u.CombatID, AllCombats} {
		for c := range h.subs[key] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(u)
	if err != nil {
		h.log.Warn("ws marshal failed", zap.String("type", u.Type), zap.Error(err))
		return
	}
	for _, c := range targets {
		if err := c.write(b); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
	}
}

// Subscribers conta as conexões inscritas em um combate
func (h *Hub) Subscribers(combatID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[combatID])
}
