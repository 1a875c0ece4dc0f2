package notify

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/strategiz/alert-monitor/models"
	"github.com/strategiz/alert-monitor/services/execution"
)

const (
	maxStreamClients     = 100
	streamWriteTimeout   = 10 * time.Second
	streamPongTimeout    = 60 * time.Second
	streamPingInterval   = 30 * time.Second
	streamSendBufferSize = 16
)

// StreamMessage is the envelope broadcast to connected clients
type StreamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Time string      `json:"time"`
}

// streamSignal is the payload for a triggered signal
type streamSignal struct {
	AlertID   string `json:"alert_id"`
	AlertName string `json:"alert_name"`
	UserID    string `json:"user_id"`
	Signal    string `json:"signal"`
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Reason    string `json:"reason,omitempty"`
}

// streamClient is one connected websocket client
type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// StreamHub broadcasts triggered signals to connected dashboard clients
type StreamHub struct {
	clients    map[*streamClient]bool
	broadcast  chan StreamMessage
	register   chan *streamClient
	unregister chan *streamClient
	shutdown   chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

// NewStreamHub creates the hub and starts its broadcast loop
func NewStreamHub() *StreamHub {
	hub := &StreamHub{
		clients:    make(map[*streamClient]bool),
		broadcast:  make(chan StreamMessage, 256),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		shutdown:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	go hub.run()
	return hub
}

// BroadcastSignal pushes a triggered signal to every connected client
func (h *StreamHub) BroadcastSignal(alert *models.AlertDeployment, signal execution.Signal, symbol string, price decimal.Decimal) {
	msg := StreamMessage{
		Type: "signal",
		Data: streamSignal{
			AlertID:   alert.ID,
			AlertName: alert.AlertName,
			UserID:    alert.UserID,
			Signal:    signal.Type,
			Symbol:    symbol,
			Price:     price.String(),
			Reason:    signal.Reason,
		},
		Time: time.Now().Format(time.RFC3339),
	}

	select {
	case h.broadcast <- msg:
	default:
		log.Println("Signal stream broadcast buffer full, dropping message")
	}
}

// HandleWS upgrades an HTTP request to a websocket subscription
func (h *StreamHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	count := len(h.clients)
	h.mu.RUnlock()
	if count >= maxStreamClients {
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &streamClient{
		conn: conn,
		send: make(chan []byte, streamSendBufferSize),
	}
	h.register <- client

	go client.writePump(h)
	go client.readPump(h)
}

// Shutdown closes all client connections and stops the hub
func (h *StreamHub) Shutdown() {
	close(h.shutdown)

	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
	h.clients = make(map[*streamClient]bool)
	h.mu.Unlock()

	log.Println("Signal stream hub shutdown complete")
}

func (h *StreamHub) run() {
	for {
		select {
		case <-h.shutdown:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("Signal stream client connected (%d total)", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Failed to encode stream message: %v", err)
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Slow client, drop the message
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (c *streamClient) writePump(h *StreamHub) {
	ticker := time.NewTicker(streamPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *streamClient) readPump(h *StreamHub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
