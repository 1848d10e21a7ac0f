package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialbot-be/internal/dto"
	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/dialog"
	"socialbot-be/pkg/errkind"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	got dialog.Request
	err error
}

func (f *fakeExecutor) Execute(_ context.Context, req dialog.Request) (*dialog.Reply, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &dialog.Reply{
		SessionID:    req.SessionID,
		UserID:       req.UserID,
		Utterance:    "Hi, I'm a social bot.",
		CreationTime: "2026-03-01T12:00:00.000000Z",
		Latency:      12 * time.Millisecond,
	}, nil
}

func TestConverseFillsIDs(t *testing.T) {
	exec := &fakeExecutor{}
	svc := NewConversationService(exec, logger.NewNopLogger())

	res, err := svc.Converse(context.Background(), &dto.ConversationRequest{
		UserUtterance:     "Hello!",
		Client:            "web",
		ClientInformation: map[string]interface{}{"locale": "en-US"},
	})
	require.NoError(t, err)

	_, err = uuid.Parse(exec.got.SessionID)
	assert.NoError(t, err)
	_, err = uuid.Parse(exec.got.UserID)
	assert.NoError(t, err)
	assert.Equal(t, "hello", exec.got.Utterance)
	assert.Equal(t, "web", exec.got.ClientInfo["client"])
	assert.Equal(t, "en-US", exec.got.ClientInfo["locale"])

	assert.Equal(t, exec.got.SessionID, res.SessionUuid)
	assert.Equal(t, "Hi, I'm a social bot.", res.BotUtterance)
	assert.Equal(t, "2026-03-01T12:00:00.000000Z", res.Payload.CreationDateTime)
}

func TestConversePassesVersionToken(t *testing.T) {
	exec := &fakeExecutor{}
	svc := NewConversationService(exec, logger.NewNopLogger())

	_, err := svc.Converse(context.Background(), &dto.ConversationRequest{
		SessionUuid:  "s1",
		ClientUserId: "alexa-42",
		Payload:      dto.ConversationPayload{CreationDateTime: "2026-03-01T11:00:00.000000Z"},
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", exec.got.SessionID)
	assert.Equal(t, "alexa-42", exec.got.UserID)
	assert.Equal(t, "2026-03-01T11:00:00.000000Z", exec.got.CreationTime)
}

func TestConverseWrapsErrors(t *testing.T) {
	svc := NewConversationService(&fakeExecutor{err: context.DeadlineExceeded}, logger.NewNopLogger())

	_, err := svc.Converse(context.Background(), &dto.ConversationRequest{SessionUuid: "s1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, errkind.ErrStaleRead))
}
