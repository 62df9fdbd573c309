// Package ws pushes live job updates to subscribed WebSocket clients.
// Clients subscribe per job id; the scheduler's hooks feed the hub.
package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/clipforge/api/internal/model"
)

// Client represents one WebSocket subscriber. Its send channel is
// guarded so queueing a message and closing can race safely: the hub
// closes slow clients while the reader goroutine queues ping replies.
type Client struct {
	JobID string
	Conn  *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(jobID string, conn *websocket.Conn) *Client {
	return &Client{
		JobID: jobID,
		Conn:  conn,
		send:  make(chan []byte, 256),
	}
}

// trySend queues data without blocking. False means the client is
// closed or its buffer is full; either way the caller drops the client.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub maintains active WebSocket connections grouped by job id.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	mu sync.RWMutex
}

type broadcastMessage struct {
	jobID   string
	message []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.JobID] == nil {
				h.clients[client.JobID] = make(map[*Client]bool)
			}
			h.clients[client.JobID][client] = true
			h.mu.Unlock()
			log.Printf("Client registered for job %s", client.JobID)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.JobID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					client.closeSend()
					if len(clients) == 0 {
						delete(h.clients, client.JobID)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("Client unregistered from job %s", client.JobID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.clients[msg.jobID]; ok {
				for client := range clients {
					if !client.trySend(msg.message) {
						client.closeSend()
						delete(clients, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a new client.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastProgress sends the job's current status and progress to its
// subscribers.
func (h *Hub) BroadcastProgress(job model.Job) {
	h.send(job.ID, model.WSProgressMessage{
		Type:     model.WSMessageTypeProgress,
		JobID:    job.ID,
		Progress: job.Progress,
		Status:   job.Status,
	})
}

// BroadcastTerminal sends the final outcome of a job to its subscribers.
func (h *Hub) BroadcastTerminal(job model.Job) {
	if job.Status == model.JobStatusCompleted {
		h.send(job.ID, model.WSCompleteMessage{
			Type:            model.WSMessageTypeComplete,
			JobID:           job.ID,
			DownloadURL:     job.DownloadURL,
			FileSizeBytes:   job.FileSizeBytes,
			DurationSeconds: job.DurationSeconds,
		})
		return
	}
	errInfo := model.JobError{Code: "SERVER_ERROR", Message: "render failed"}
	if job.Error != nil {
		errInfo = *job.Error
	}
	h.send(job.ID, model.WSErrorMessage{
		Type:  model.WSMessageTypeError,
		JobID: job.ID,
		Error: errInfo,
	})
}

func (h *Hub) send(jobID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal websocket message: %v", err)
		return
	}
	h.broadcast <- &broadcastMessage{jobID: jobID, message: data}
}

// HandleConnection services one WebSocket connection until it closes.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	client := newClient(jobID, c)

	h.Register(client)
	defer h.Unregister(client)

	// Writer goroutine with keep-alive pings.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong := model.WSMessage{Type: model.WSMessageTypePong}
			data, _ := json.Marshal(pong)
			client.trySend(data)
		}
	}
}
