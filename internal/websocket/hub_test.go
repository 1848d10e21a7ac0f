package websocket

import (
	"context"
	"testing"
	"time"

	"socialbot-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func echo(_ context.Context, payload []byte) ([]byte, bool) {
	return payload, false
}

func TestHubTracksClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(echo, logger.NewNopLogger())
	go hub.Run(ctx)

	a := &Client{Hub: hub, UserID: "u1", Send: make(chan outbound, 1), done: make(chan struct{})}
	b := &Client{Hub: hub, UserID: "u1", Send: make(chan outbound, 1), done: make(chan struct{})}
	c := &Client{Hub: hub, UserID: "u2", Send: make(chan outbound, 1), done: make(chan struct{})}
	hub.register <- a
	hub.register <- b
	hub.register <- c
	assert.Eventually(t, func() bool { return hub.Count() == 3 }, time.Second, 5*time.Millisecond)

	hub.unregister <- a
	assert.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 5*time.Millisecond)
	_, open := <-a.Send
	assert.False(t, open)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case <-hub.done:
			return hub.Count() == 0
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
