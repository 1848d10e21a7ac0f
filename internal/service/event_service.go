package service

import (
	"context"
	"time"

	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/dialog"
	"socialbot-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// channelPublisher puts events on an in-process watermill topic.
type channelPublisher struct {
	pubSub *gochannel.GoChannel
	topic  string
}

func NewChannelPublisher(pubSub *gochannel.GoChannel, topic string) events.Publisher {
	return &channelPublisher{pubSub: pubSub, topic: topic}
}

func (p *channelPublisher) Publish(ctx context.Context, event events.Event) error {
	payload, err := events.Marshal(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.pubSub.Publish(p.topic, msg)
}

type turnEventService struct {
	publisher events.Publisher
	timeout   time.Duration
	logger    logger.ILogger
}

// NewTurnEventService publishes a TURN_COMPLETED event for every turn the
// dialog controller finishes.
func NewTurnEventService(publisher events.Publisher, log logger.ILogger) dialog.TurnObserver {
	return &turnEventService{
		publisher: publisher,
		timeout:   2 * time.Second,
		logger:    log,
	}
}

func (s *turnEventService) TurnCompleted(ctx context.Context, ev dialog.TurnEvent) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	evt := events.BaseEvent{
		Type: events.TypeTurnCompleted,
		Data: map[string]interface{}{
			"session_id":         ev.SessionID,
			"user_id":            ev.UserID,
			"turn_num":           ev.TurnNum,
			"response_rg":        ev.ResponseRG,
			"prompt_rg":          ev.PromptRG,
			"creation_date_time": ev.CreationTime,
			"should_end_session": ev.ShouldEndSession,
			"latency_ms":         ev.Latency.Milliseconds(),
		},
		OccurredAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("events", "Failed to publish turn event", map[string]interface{}{
			"session_id": ev.SessionID,
			"error":      err.Error(),
		})
	}
}
