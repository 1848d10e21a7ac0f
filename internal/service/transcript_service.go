package service

import (
	"context"

	"socialbot-be/internal/dto"
	"socialbot-be/internal/repository/specification"
	"socialbot-be/internal/repository/unitofwork"

	"github.com/samber/oops"
)

const maxTranscriptPage = 100

type ITranscriptService interface {
	GetTranscript(ctx context.Context, sessionID string, limit, offset int) (*dto.TranscriptResponse, error)
}

type transcriptService struct {
	uowFactory unitofwork.RepositoryFactory
}

// NewTranscriptService reads the turn log kept by the postgres state store.
func NewTranscriptService(uowFactory unitofwork.RepositoryFactory) ITranscriptService {
	return &transcriptService{uowFactory: uowFactory}
}

func (s *transcriptService) GetTranscript(ctx context.Context, sessionID string, limit, offset int) (*dto.TranscriptResponse, error) {
	if limit <= 0 || limit > maxTranscriptPage {
		limit = maxTranscriptPage
	}
	if offset < 0 {
		offset = 0
	}

	repo := s.uowFactory.NewUnitOfWork(ctx).SessionTurnRepository()
	bySession := specification.BySessionID{ID: sessionID}

	total, err := repo.Count(ctx, bySession)
	if err != nil {
		return nil, oops.Errorf("count turns of session %s: %w", sessionID, err)
	}
	turns, err := repo.FindAll(ctx,
		bySession,
		specification.TurnOrder{},
		specification.Page{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, oops.Errorf("list turns of session %s: %w", sessionID, err)
	}

	res := &dto.TranscriptResponse{
		SessionUuid: sessionID,
		Total:       total,
		Turns:       make([]dto.TranscriptTurn, 0, len(turns)),
	}
	for _, t := range turns {
		res.Turns = append(res.Turns, dto.TranscriptTurn{
			TurnNum:          t.TurnNum,
			UserUtterance:    t.UserUtterance,
			BotUtterance:     t.BotUtterance,
			ResponseRG:       t.ResponseRG,
			PromptRG:         t.PromptRG,
			CreationDateTime: t.CreationDateTime,
		})
	}
	return res, nil
}
