package handler

import (
	"context"
	"encoding/json"
	"time"

	"ai-recall-be/internal/pkg/logger"
	internalWS "ai-recall-be/internal/websocket"
	"ai-recall-be/pkg/events"
	pktNats "ai-recall-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// RunEventHandler owns the websocket endpoint and mirrors run lifecycle
// events from NATS back onto connected clients. Run *status* (phases,
// chunks) reaches clients through the in-process dispatcher; the NATS
// mirror carries the coarse lifecycle events other processes also see,
// like memory_indexed after the consumer finishes.
type RunEventHandler struct {
	subscriber *pktNats.Subscriber
	hub        *internalWS.Hub
	logger     logger.ILogger
}

func NewRunEventHandler(subscriber *pktNats.Subscriber, hub *internalWS.Hub, log logger.ILogger) *RunEventHandler {
	return &RunEventHandler{
		subscriber: subscriber,
		hub:        hub,
		logger:     log,
	}
}

// ServeWs upgrades the connection and binds it to the requesting user.
func (h *RunEventHandler) ServeWs(c *fiber.Ctx) error {
	userIDStr := c.Query("user_id")
	if userIDStr == "" {
		userIDStr = c.Get("X-User-Id")
	}
	if userIDStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing user_id (query or X-User-Id header)"})
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID format"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(c *websocket.Conn) {
			h.logger.Info("RunEventHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
			internalWS.ServeWs(h.hub, c, userID)
			h.logger.Info("RunEventHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// StartEventMirror subscribes to the run event stream and forwards each
// event to websocket clients. Events carrying a user_id are delivered to
// that user's connections; the rest are broadcast, which on a single-user
// desktop install is the same thing.
func (h *RunEventHandler) StartEventMirror() error {
	if h.subscriber == nil {
		h.logger.Warn("RunEventHandler", "NATS subscriber not configured, event mirror disabled", nil)
		return nil
	}

	return h.subscriber.Subscribe("runs.>", "run-event-mirror", func(ctx context.Context, evt events.Event) error {
		envelope := map[string]interface{}{
			"type":        "event",
			"event_type":  evt.EventType(),
			"payload":     evt.Payload(),
			"occurred_at": evt.Timestamp().Format(time.RFC3339),
		}
		data, err := json.Marshal(envelope)
		if err != nil {
			return err
		}

		if userIDStr, ok := evt.Payload()["user_id"].(string); ok {
			if userID, err := uuid.Parse(userIDStr); err == nil {
				h.hub.Send(userID, data)
				return nil
			}
		}
		h.hub.Broadcast(data)
		return nil
	})
}

// RegisterRoutes registers the websocket endpoint.
func (h *RunEventHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}
