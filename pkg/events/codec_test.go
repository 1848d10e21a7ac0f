package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := Marshal(BaseEvent{
		Type:       TypeTurnCompleted,
		Data:       map[string]interface{}{"session_id": "s1"},
		OccurredAt: at,
	})
	require.NoError(t, err)

	got, err := Unmarshal(data, "")
	require.NoError(t, err)
	assert.Equal(t, TypeTurnCompleted, got.EventType())
	assert.Equal(t, "s1", got.Payload()["session_id"])
	assert.True(t, at.Equal(got.Timestamp()))
}

func TestUnmarshalFallbackType(t *testing.T) {
	got, err := Unmarshal([]byte(`{"data":{"a":1}}`), "SOMETHING")
	require.NoError(t, err)
	assert.Equal(t, "SOMETHING", got.Type)
	assert.False(t, got.OccurredAt.IsZero())

	_, err = Unmarshal([]byte("not json"), "X")
	assert.Error(t, err)
}
