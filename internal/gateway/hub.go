// Package gateway streams run progress to WebSocket clients. Every event is
// wrapped in a sequenced envelope and kept in a replay buffer so a client that
// connects mid-run (or reconnects after a gap) can catch up with ?since=<seq>.
package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultReplayCap = 4096

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The gateway serves local dashboards; no origin restriction.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Envelope is the wire format for every gateway message.
type Envelope struct {
	Type string          `json:"type"` // "run_started", "cell", "run_complete"
	Seq  int64           `json:"seq"`
	TS   string          `json:"ts"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Hub fans progress events out to connected WebSocket clients.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
	seq     int64
	replay  *ReplayBuffer
}

// NewHub creates a hub with a replay buffer of the given capacity
// (defaultReplayCap when zero or negative).
func NewHub(log *slog.Logger, replayCap int) *Hub {
	if replayCap <= 0 {
		replayCap = defaultReplayCap
	}
	return &Hub{
		log:     log,
		clients: make(map[*Client]struct{}),
		replay:  NewReplayBuffer(replayCap),
	}
}

// Broadcast sequences, buffers and fans out one event. The payload is
// marshaled once; slow clients are dropped rather than blocking the run.
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("gateway marshal payload", "type", eventType, "err", err)
		return
	}

	h.mu.Lock()
	h.seq++
	env := Envelope{
		Type: eventType,
		Seq:  h.seq,
		TS:   time.Now().UTC().Format(time.RFC3339Nano),
		Data: data,
	}
	msg, err := json.Marshal(env)
	if err != nil {
		h.mu.Unlock()
		h.log.Error("gateway marshal envelope", "type", eventType, "err", err)
		return
	}
	h.replay.Push(env.Seq, msg)

	var stalled []*Client
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			stalled = append(stalled, c)
		}
	}
	for _, c := range stalled {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	for _, c := range stalled {
		h.log.Warn("gateway dropped slow client")
		c.conn.Close()
	}
}

// HandleWS upgrades the connection and registers the client. A ?since=<seq>
// query parameter replays every buffered envelope after that sequence number
// before live traffic resumes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("gateway upgrade failed", "err", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	var backlog [][]byte
	h.mu.Lock()
	if since := r.URL.Query().Get("since"); since != "" {
		if from, err := strconv.ParseInt(since, 10, 64); err == nil {
			backlog = h.replay.Since(from)
		}
	}
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info("gateway client connected", "clients", count, "backlog", len(backlog))

	go client.writePump(backlog)
	go client.readPump()
}

// CurrentSeq returns the sequence number of the most recent envelope.
func (h *Hub) CurrentSeq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}
