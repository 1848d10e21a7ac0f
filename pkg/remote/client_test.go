package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/errkind"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, cfg ServiceConfig) *Client {
	t.Helper()
	c, err := NewClient([]ServiceConfig{cfg}, logger.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestCallSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "let's talk about pizza", body["utterance"])

		_, _ = w.Write([]byte(`{"is_question": false, "performance": 0.012, "error": false}`))
	}))
	defer srv.Close()

	c := newTestClient(t, ServiceConfig{Name: "question", URL: srv.URL, RequiredContext: []string{"utterance"}})
	res, err := c.Call(context.Background(), "question", map[string]any{"utterance": "let's talk about pizza"})
	require.NoError(t, err)

	var out struct {
		IsQuestion bool `json:"is_question"`
	}
	require.NoError(t, res.Decode(&out))
	assert.False(t, out.IsQuestion)
	assert.InDelta(t, 0.012, res.Performance, 1e-9)
}

func TestCallFailures(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		payload  map[string]any
		timeout  time.Duration
		wantKind error
		wantMsg  string
	}{
		{
			name:     "missing context makes no request",
			handler:  func(w http.ResponseWriter, r *http.Request) { t.Error("request should not be sent") },
			payload:  map[string]any{},
			wantKind: errkind.ErrMissingContext,
		},
		{
			name: "error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error": true, "message": "model crashed", "stack_trace": "line 1"}`))
			},
			payload:  map[string]any{"utterance": "hi"},
			wantKind: errkind.ErrServiceError,
			wantMsg:  "model crashed",
		},
		{
			name: "application error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"message": "bad input"}`))
			},
			payload:  map[string]any{"utterance": "hi"},
			wantKind: errkind.ErrServiceError,
			wantMsg:  "bad input",
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			},
			payload:  map[string]any{"utterance": "hi"},
			timeout:  30 * time.Millisecond,
			wantKind: errkind.ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := newTestClient(t, ServiceConfig{
				Name:            "svc",
				URL:             srv.URL,
				RequiredContext: []string{"utterance"},
				Timeout:         tt.timeout,
			})

			res, err := c.Call(context.Background(), "svc", tt.payload)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)

			var rerr *Error
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, "svc", rerr.Service)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, rerr.Message)
			}
		})
	}
}

func TestCallRetriesInfrastructureFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"label": "joy"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, ServiceConfig{Name: "emotion", URL: srv.URL, Retries: 1})
	res, err := c.Call(context.Background(), "emotion", map[string]any{})
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCallDoesNotRetryApplicationErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, ServiceConfig{Name: "emotion", URL: srv.URL, Retries: 3})
	_, err := c.Call(context.Background(), "emotion", map[string]any{})
	assert.ErrorIs(t, err, errkind.ErrServiceError)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCallWithNegativeRetriesMakesOneAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, ServiceConfig{Name: "emotion", URL: srv.URL, Retries: -1})
	assert.NotPanics(t, func() {
		_, err := c.Call(context.Background(), "emotion", map[string]any{})
		assert.ErrorIs(t, err, errkind.ErrServiceError)
	})
	assert.Equal(t, int32(1), calls.Load())
}

func TestUnknownService(t *testing.T) {
	c := newTestClient(t, ServiceConfig{Name: "a", URL: "http://127.0.0.1:1"})
	_, err := c.Call(context.Background(), "b", nil)
	assert.ErrorIs(t, err, errkind.ErrServiceError)
	assert.False(t, c.Has("b"))
	assert.Equal(t, []string{"a"}, c.Services())
}

func TestNewClientRejectsDuplicates(t *testing.T) {
	_, err := NewClient([]ServiceConfig{
		{Name: "a", URL: "http://x"},
		{Name: "a", URL: "http://y"},
	}, logger.NewNopLogger())
	assert.Error(t, err)
}
