package service

import (
	"context"
	"strings"

	"socialbot-be/internal/dto"
	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/dialog"
	"socialbot-be/pkg/regex"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

type IConversationService interface {
	Converse(ctx context.Context, request *dto.ConversationRequest) (*dto.ConversationResponse, error)
}

// TurnExecutor runs one dialog turn.
type TurnExecutor interface {
	Execute(ctx context.Context, req dialog.Request) (*dialog.Reply, error)
}

type conversationService struct {
	executor TurnExecutor
	logger   logger.ILogger
}

func NewConversationService(executor TurnExecutor, log logger.ILogger) IConversationService {
	return &conversationService{
		executor: executor,
		logger:   log,
	}
}

func (s *conversationService) Converse(ctx context.Context, request *dto.ConversationRequest) (*dto.ConversationResponse, error) {
	sessionID := strings.TrimSpace(request.SessionUuid)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	userID := strings.TrimSpace(request.UserUuid)
	if userID == "" {
		userID = strings.TrimSpace(request.ClientUserId)
	}
	if userID == "" {
		userID = uuid.NewString()
	}

	clientInfo := make(map[string]any, len(request.ClientInformation)+2)
	for k, v := range request.ClientInformation {
		clientInfo[k] = v
	}
	if request.Client != "" {
		clientInfo["client"] = request.Client
	}
	if request.ClientUserId != "" {
		clientInfo["client_user_id"] = request.ClientUserId
	}

	reply, err := s.executor.Execute(ctx, dialog.Request{
		SessionID:    sessionID,
		UserID:       userID,
		Utterance:    regex.NormalizeUtterance(request.UserUtterance),
		CreationTime: request.Payload.CreationDateTime,
		ClientInfo:   clientInfo,
	})
	if err != nil {
		return nil, oops.Errorf("conversation turn for session %s: %w", sessionID, err)
	}

	s.logger.Debug("conversation", "Reply ready", map[string]interface{}{
		"session_id":  reply.SessionID,
		"response_rg": reply.ResponseRG,
		"prompt_rg":   reply.PromptRG,
		"latency_ms":  reply.Latency.Milliseconds(),
	})

	return &dto.ConversationResponse{
		SessionUuid:      reply.SessionID,
		UserUuid:         reply.UserID,
		BotUtterance:     reply.Utterance,
		Payload:          dto.ConversationPayload{CreationDateTime: reply.CreationTime},
		ShouldEndSession: reply.ShouldEndSession,
	}, nil
}
