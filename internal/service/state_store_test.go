package service

import (
	"context"
	"errors"
	"os"
	"testing"

	"socialbot-be/internal/model"
	"socialbot-be/internal/pkg/logger"
	"socialbot-be/internal/repository/unitofwork"
	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/database"
	"socialbot-be/pkg/dialog"
	"socialbot-be/pkg/errkind"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresStore(t *testing.T) dialog.Store {
	t.Helper()
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("DB_CONNECTION_STRING not set")
	}
	db, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.SessionState{}, &model.UserAttributes{}, &model.SessionTurn{}))
	return NewStateStore(unitofwork.NewRepositoryFactory(db), logger.NewNopLogger())
}

func TestPostgresSessionVersioning(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	id := uuid.NewString()

	s := dialog.NewSessionState(id, "u1")
	s.CreationTime = "2026-03-01T12:00:00.000001Z"
	s.NumTurns = 1
	s.Turns = []dialog.Turn{{UserText: "", BotText: "hello", ResponseRG: "LAUNCH"}}
	require.NoError(t, store.SaveSession(ctx, s, ""))
	require.NoError(t, store.SaveSession(ctx, s, ""), "saving the same state twice is a no-op")

	got, err := store.LoadSession(ctx, id, s.CreationTime)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Turns[0].BotText)

	_, err = store.LoadSession(ctx, id, "older")
	assert.True(t, errors.Is(err, errkind.ErrStaleRead))
	_, err = store.LoadSession(ctx, uuid.NewString(), "")
	assert.True(t, errors.Is(err, errkind.ErrNotFound))

	next := *s
	next.CreationTime = "2026-03-01T12:00:01.000000Z"
	next.NumTurns = 2
	require.NoError(t, store.SaveSession(ctx, &next, s.CreationTime))

	stale := *s
	stale.CreationTime = "2026-03-01T12:00:02.000000Z"
	err = store.SaveSession(ctx, &stale, s.CreationTime)
	assert.True(t, errors.Is(err, errkind.ErrStaleRead))
	assert.True(t, errors.Is(err, errkind.ErrPersistenceFailure))
}

func TestPostgresMergeUser(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	id := uuid.NewString()

	bag, err := store.LoadUser(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, bag)

	require.NoError(t, store.MergeUser(ctx, id, attributes.Bag{"name": attributes.String("Ann")}))
	require.NoError(t, store.MergeUser(ctx, id, attributes.Bag{"num_sessions": attributes.Int(2)}))

	bag, err = store.LoadUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ann", bag.GetString("name"))
	assert.Equal(t, int64(2), bag.GetInt("num_sessions"))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "40001"}))
	assert.False(t, isUniqueViolation(errors.New("23505")))
}
