package service

import (
	"context"
	"errors"
	"fmt"

	"socialbot-be/internal/entity"
	"socialbot-be/internal/pkg/logger"
	"socialbot-be/internal/repository/specification"
	"socialbot-be/internal/repository/unitofwork"
	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/dialog"
	"socialbot-be/pkg/errkind"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// uniqueViolation is the postgres error code for a duplicate key.
const uniqueViolation = "23505"

type stateStore struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

// NewStateStore persists sessions, the turn log and user attributes in
// postgres.
func NewStateStore(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) dialog.Store {
	return &stateStore{uowFactory: uowFactory, logger: log}
}

func (s *stateStore) LoadSession(ctx context.Context, sessionID, expected string) (*dialog.SessionState, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	rec, err := uow.SessionStateRepository().FindOne(ctx, specification.BySessionID{ID: sessionID})
	if err != nil {
		return nil, oops.Errorf("load session %s: %w", sessionID, persistence(err))
	}
	if rec == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, errkind.ErrNotFound)
	}
	if rec.LastStateCreationTime != expected {
		return nil, fmt.Errorf("session %s is at %s, not %s: %w", sessionID, rec.LastStateCreationTime, expected, errkind.ErrStaleRead)
	}
	state, err := dialog.DecodeSessionState(rec.State)
	if err != nil {
		return nil, oops.Errorf("decode session %s: %w", sessionID, persistence(err))
	}
	return state, nil
}

// SaveSession writes the state and the newest turn in one transaction. The
// row is locked while the version is compared.
func (s *stateStore) SaveSession(ctx context.Context, state *dialog.SessionState, previous string) (err error) {
	data, err := state.Encode()
	if err != nil {
		return oops.Errorf("encode session %s: %w", state.SessionID, persistence(err))
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return oops.Errorf("begin save of session %s: %w", state.SessionID, persistence(err))
	}
	defer func() {
		if err != nil {
			if rbErr := uow.Rollback(); rbErr != nil {
				s.logger.Warn("store", "Rollback failed", map[string]interface{}{
					"session_id": state.SessionID,
					"error":      rbErr.Error(),
				})
			}
		}
	}()

	repo := uow.SessionStateRepository()
	cur, err := repo.FindOne(ctx, specification.BySessionID{ID: state.SessionID}, specification.ForUpdate{})
	if err != nil {
		return oops.Errorf("lock session %s: %w", state.SessionID, persistence(err))
	}

	rec := &entity.SessionState{
		SessionId:             state.SessionID,
		UserId:                state.UserID,
		LastStateCreationTime: state.CreationTime,
		NumTurns:              state.NumTurns,
		ShouldEndSession:      state.ShouldEndSession,
		State:                 data,
	}
	switch {
	case cur != nil && cur.LastStateCreationTime == state.CreationTime:
		return uow.Commit()
	case cur == nil && previous == "":
		err = repo.Create(ctx, rec)
	case cur != nil && cur.LastStateCreationTime == previous:
		rec.CreatedAt = cur.CreatedAt
		err = repo.Update(ctx, rec)
	default:
		err = fmt.Errorf("%w: session %s moved on", errkind.ErrStaleRead, state.SessionID)
		return persistence(err)
	}
	if err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("%w: session %s created concurrently", errkind.ErrStaleRead, state.SessionID)
		}
		return oops.Errorf("write session %s: %w", state.SessionID, persistence(err))
	}

	if last, ok := state.LastTurn(); ok {
		err = uow.SessionTurnRepository().Create(ctx, &entity.SessionTurn{
			SessionId:        state.SessionID,
			CreationDateTime: state.CreationTime,
			TurnNum:          state.NumTurns - 1,
			UserUtterance:    last.UserText,
			BotUtterance:     last.BotText,
			ResponseRG:       last.ResponseRG,
			PromptRG:         last.PromptRG,
		})
		if err != nil {
			return oops.Errorf("log turn of session %s: %w", state.SessionID, persistence(err))
		}
	}

	if err = uow.Commit(); err != nil {
		return oops.Errorf("commit session %s: %w", state.SessionID, persistence(err))
	}
	return nil
}

func (s *stateStore) LoadUser(ctx context.Context, userID string) (attributes.Bag, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	rec, err := uow.UserAttributesRepository().FindOne(ctx, specification.ByUserID{ID: userID})
	if err != nil {
		return nil, oops.Errorf("load user %s: %w", userID, persistence(err))
	}
	if rec == nil {
		return attributes.Bag{}, nil
	}
	return rec.Attributes, nil
}

func (s *stateStore) MergeUser(ctx context.Context, userID string, delta attributes.Bag) (err error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return oops.Errorf("begin merge of user %s: %w", userID, persistence(err))
	}
	defer func() {
		if err != nil {
			_ = uow.Rollback()
		}
	}()

	repo := uow.UserAttributesRepository()
	cur, err := repo.FindOne(ctx, specification.ByUserID{ID: userID}, specification.ForUpdate{})
	if err != nil {
		return oops.Errorf("lock user %s: %w", userID, persistence(err))
	}
	if cur == nil {
		err = repo.Create(ctx, &entity.UserAttributes{UserId: userID, Attributes: attributes.Bag{}.Merge(delta)})
	} else {
		cur.Attributes = cur.Attributes.Merge(delta)
		err = repo.Update(ctx, cur)
	}
	if err != nil {
		return oops.Errorf("write user %s: %w", userID, persistence(err))
	}
	if err = uow.Commit(); err != nil {
		return oops.Errorf("commit user %s: %w", userID, persistence(err))
	}
	return nil
}

func persistence(err error) error {
	if errors.Is(err, errkind.ErrPersistenceFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", errkind.ErrPersistenceFailure, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
