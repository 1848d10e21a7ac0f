package service

import (
	"context"
	"sync"

	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/events"
	pktNats "socialbot-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
	// Stats returns how many turns each response RG has answered.
	Stats() map[string]int
}

type consumerService struct {
	pubSub     *gochannel.GoChannel
	subscriber *pktNats.Subscriber
	topicName  string
	logger     logger.ILogger

	mu     sync.Mutex
	counts map[string]int
}

// NewConsumerService reads turn events from NATS when subscriber is set and
// from the in-process channel otherwise.
func NewConsumerService(
	pubSub *gochannel.GoChannel,
	subscriber *pktNats.Subscriber,
	topicName string,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		subscriber: subscriber,
		topicName:  topicName,
		logger:     log,
		counts:     map[string]int{},
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	if cs.subscriber != nil {
		return cs.subscriber.Subscribe(ctx, pktNats.Subject(cs.topicName), "turn-log", cs.handle)
	}

	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Unmarshal(msg.Payload, cs.topicName)
	if err != nil {
		cs.logger.Error("events", "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // redelivery cannot fix a bad payload
		return
	}

	if err := cs.handle(ctx, event); err != nil {
		msg.Nack()
		return
	}
	msg.Ack()
}

func (cs *consumerService) handle(_ context.Context, event events.Event) error {
	data := event.Payload()
	responseRG, _ := data["response_rg"].(string)

	cs.mu.Lock()
	cs.counts[responseRG]++
	cs.mu.Unlock()

	cs.logger.Info("events", "Turn event", map[string]interface{}{
		"type":        event.EventType(),
		"session_id":  data["session_id"],
		"turn_num":    data["turn_num"],
		"response_rg": responseRG,
		"prompt_rg":   data["prompt_rg"],
		"latency_ms":  data["latency_ms"],
		"occurred_at": event.Timestamp(),
	})
	return nil
}

func (cs *consumerService) Stats() map[string]int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	out := make(map[string]int, len(cs.counts))
	for name, n := range cs.counts {
		out[name] = n
	}
	return out
}
