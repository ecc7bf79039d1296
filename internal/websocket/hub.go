package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ai-recall-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// clusterChannel carries cross-instance deliveries. Every instance
// subscribes and re-delivers locally; a single-machine desktop install
// never has a second subscriber, but the path keeps multi-device setups
// working unchanged.
const clusterChannel = "cluster_events"

// broadcastTarget marks a cluster payload addressed to everyone.
const broadcastTarget = "*"

// Hub tracks connected clients per user and fans run updates out to them.
// Payloads arrive already serialized (status envelopes, chunk deltas,
// lifecycle events); the hub never looks inside them.
type Hub struct {
	// UserID -> connections. One user can have several windows open.
	clients map[uuid.UUID][]*client

	register   chan *client
	unregister chan *client

	mu sync.RWMutex

	// Optional cross-instance transport.
	rdb *redis.Client

	// instanceID lets the cluster consumer skip payloads this instance
	// published itself. Chunk deltas are not idempotent; delivering one
	// twice doubles text in the client.
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		clients:    make(map[uuid.UUID][]*client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.consumeCluster()
	}

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.userID] = append(h.clients[c.userID], c)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": c.userID})

		case c := <-h.unregister:
			h.drop(c)
		}
	}
}

// drop removes one connection. Closing the send channel happens here and
// nowhere else, under the write lock, so a concurrent delivery can never
// write to a closed channel.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	for i, known := range conns {
		if known == c {
			h.clients[c.userID] = append(conns[:i], conns[i+1:]...)
			close(c.send)
			break
		}
	}
	if len(h.clients[c.userID]) == 0 {
		delete(h.clients, c.userID)
		h.logger.Info("Hub", "Last connection gone", map[string]interface{}{"user_id": c.userID})
	}
}

// Send delivers a payload to every connection the user has. Run status
// updates and stream chunks all go through here.
func (h *Hub) Send(userID uuid.UUID, data []byte) {
	h.deliverLocal(userID, data)
	h.publishCluster(userID.String(), data)
}

// Broadcast sends a payload to every connected client.
func (h *Hub) Broadcast(data []byte) {
	h.deliverAll(data)
	h.publishCluster(broadcastTarget, data)
}

func (h *Hub) deliverLocal(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients[userID] {
		h.offer(c, data)
	}
}

func (h *Hub) deliverAll(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conns := range h.clients {
		for _, c := range conns {
			h.offer(c, data)
		}
	}
}

// offer hands the payload to one connection. A full buffer means the
// client stopped draining; it gets dropped rather than stall the run
// stream for everyone else. The drop is queued asynchronously because
// offer runs under the read lock.
func (h *Hub) offer(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logger.Warn("Hub", "Send buffer full, dropping connection", map[string]interface{}{"user_id": c.userID})
		go func() { h.unregister <- c }()
	}
}

// publishCluster mirrors a delivery to other instances over Redis.
func (h *Hub) publishCluster(target string, data []byte) {
	if h.rdb == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"origin":         h.instanceID,
		"target_user_id": target,
		"message":        json.RawMessage(data),
	})
	h.rdb.Publish(context.Background(), clusterChannel, payload)
}

// consumeCluster re-delivers payloads published by other instances to
// whichever of their target's connections live here.
func (h *Hub) consumeCluster() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			Origin       string          `json:"origin"`
			TargetUserID string          `json:"target_user_id"`
			Message      json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}
		if payload.Origin == h.instanceID {
			continue
		}

		if payload.TargetUserID == broadcastTarget {
			h.deliverAll(payload.Message)
			continue
		}
		userID, err := uuid.Parse(payload.TargetUserID)
		if err != nil {
			continue
		}
		h.deliverLocal(userID, payload.Message)
	}
}
