package service

import (
	"context"
	"encoding/json"
	"log"

	"ai-recall-be/internal/websocket"
	"ai-recall-be/pkg/run/status"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// IDispatcherService bridges the in-process run status topic to websocket
// clients. It is the only path status updates take toward the UI.
type IDispatcherService interface {
	Dispatch(ctx context.Context) error
}

type dispatcherService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	hub       *websocket.Hub
}

func NewDispatcherService(pubSub *gochannel.GoChannel, topicName string, hub *websocket.Hub) IDispatcherService {
	return &dispatcherService{
		pubSub:    pubSub,
		topicName: topicName,
		hub:       hub,
	}
}

func (ds *dispatcherService) Dispatch(ctx context.Context) error {
	messages, err := ds.pubSub.Subscribe(ctx, ds.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ds.processMessage(msg)
		}
	}()

	return nil
}

func (ds *dispatcherService) processMessage(msg *message.Message) {
	var update status.Update
	if err := json.Unmarshal(msg.Payload, &update); err != nil {
		log.Printf("[ERROR] Failed to unmarshal status update: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if update.UserID == uuid.Nil {
		log.Printf("[WARN] Status update %s for run %s has no user, dropping", update.Type, update.RunID)
		msg.Ack()
		return
	}

	ds.hub.Send(update.UserID, msg.Payload)
	msg.Ack()
}
