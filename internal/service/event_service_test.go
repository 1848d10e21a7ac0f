package service

import (
	"context"
	"testing"
	"time"

	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/dialog"
	"socialbot-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnEventsReachConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	consumer := NewConsumerService(pubSub, nil, events.TypeTurnCompleted, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	observer := NewTurnEventService(NewChannelPublisher(pubSub, events.TypeTurnCompleted), logger.NewNopLogger())
	observer.TurnCompleted(ctx, dialog.TurnEvent{SessionID: "s1", TurnNum: 0, ResponseRG: "LAUNCH"})
	observer.TurnCompleted(ctx, dialog.TurnEvent{SessionID: "s1", TurnNum: 1, ResponseRG: "FOOD", PromptRG: "FOOD"})
	observer.TurnCompleted(ctx, dialog.TurnEvent{SessionID: "s1", TurnNum: 2, ResponseRG: "FOOD"})

	assert.Eventually(t, func() bool {
		stats := consumer.Stats()
		return stats["LAUNCH"] == 1 && stats["FOOD"] == 2
	}, time.Second, 10*time.Millisecond)
}

func TestConsumerAcksBadPayload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	consumer := NewConsumerService(pubSub, nil, "T", logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	pub := NewChannelPublisher(pubSub, "T")
	require.NoError(t, pubSub.Publish("T", watermillMessage("garbage")))
	require.NoError(t, pub.Publish(ctx, events.BaseEvent{Type: "T", Data: map[string]interface{}{"response_rg": "FALLBACK"}}))

	assert.Eventually(t, func() bool {
		return consumer.Stats()["FALLBACK"] == 1
	}, time.Second, 10*time.Millisecond)
}

func watermillMessage(payload string) *message.Message {
	return message.NewMessage(watermill.NewUUID(), []byte(payload))
}
