package annotation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func counting(name Name, calls *atomic.Int32, value any, err error, requires ...Name) Annotator {
	return NewFunc(name, func(ctx context.Context, in Input, deps Deps) (any, error) {
		calls.Add(1)
		return value, err
	}, requires...)
}

func TestGetIsLazyAndCached(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	reg, err := NewRegistry(counting(Coref, &calls, "i like pizza", nil))
	require.NoError(t, err)

	c := NewContext(context.Background(), reg, Input{Utterance: "i like it"}, logger.NewNopLogger())
	defer c.Close()

	assert.Equal(t, int32(0), calls.Load(), "nothing runs before first access")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, ok := c.Coref(context.Background())
			assert.True(t, ok)
			assert.Equal(t, "i like pizza", v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestFailedAnnotatorIsAbsent(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	reg, err := NewRegistry(counting(Emotion, &calls, nil, errors.New("model down")))
	require.NoError(t, err)

	c := NewContext(context.Background(), reg, Input{}, logger.NewNopLogger())
	defer c.Close()

	_, ok := c.Emotion(context.Background())
	assert.False(t, ok)
	_, ok = c.Emotion(context.Background())
	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load(), "a failure is cached for the turn")
	assert.Empty(t, c.Present())
}

func TestAbsentRequirementPropagates(t *testing.T) {
	defer goleak.VerifyNone(t)

	var segCalls, actCalls atomic.Int32
	reg, err := NewRegistry(
		counting(Segmenter, &segCalls, nil, errors.New("boom")),
		counting(DialogAct, &actCalls, DialogActs{"statement": 1}, nil, Segmenter),
	)
	require.NoError(t, err)

	c := NewContext(context.Background(), reg, Input{}, logger.NewNopLogger())
	defer c.Close()

	_, ok := c.DialogActs(context.Background())
	assert.False(t, ok)
	assert.Equal(t, int32(0), actCalls.Load())
	assert.Equal(t, "", c.TopDialogAct(context.Background()))
}

func TestRequirementIsPassedToAnnotator(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg, err := NewRegistry(
		NewFunc(Segmenter, func(ctx context.Context, in Input, deps Deps) (any, error) {
			return strings.Split(in.Utterance, ". "), nil
		}),
		NewFunc(DialogAct, func(ctx context.Context, in Input, deps Deps) (any, error) {
			segs := deps[Segmenter].([]string)
			return DialogActs{"segments": float64(len(segs))}, nil
		}, Segmenter),
	)
	require.NoError(t, err)

	c := NewContext(context.Background(), reg, Input{Utterance: "hi. how are you"}, logger.NewNopLogger())
	defer c.Close()

	acts, ok := c.DialogActs(context.Background())
	require.True(t, ok)
	assert.Equal(t, 2.0, acts["segments"])
}

func TestRegistryValidation(t *testing.T) {
	noop := func(ctx context.Context, in Input, deps Deps) (any, error) { return nil, nil }

	tests := []struct {
		name       string
		annotators []Annotator
		wantErr    string
	}{
		{
			name:       "unknown requirement",
			annotators: []Annotator{NewFunc(DialogAct, noop, Segmenter)},
			wantErr:    "unregistered",
		},
		{
			name: "cycle",
			annotators: []Annotator{
				NewFunc(Segmenter, noop, DialogAct),
				NewFunc(DialogAct, noop, Segmenter),
			},
			wantErr: "cycle",
		},
		{
			name:       "duplicate",
			annotators: []Annotator{NewFunc(Coref, noop), NewFunc(Coref, noop)},
			wantErr:    "twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.annotators...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPrefetchRunsConcurrentlyUnderDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	slow := func(d time.Duration, v any) func(ctx context.Context, in Input, deps Deps) (any, error) {
		return func(ctx context.Context, in Input, deps Deps) (any, error) {
			select {
			case <-time.After(d):
				return v, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	reg, err := NewRegistry(
		NewFunc(Question, slow(40*time.Millisecond, QuestionResult{IsQuestion: true})),
		NewFunc(Emotion, slow(40*time.Millisecond, EmotionResult{Label: "joy"})),
		NewFunc(Coref, slow(5*time.Second, "never")),
	)
	require.NoError(t, err)

	turnCtx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	c := NewContext(turnCtx, reg, Input{}, logger.NewNopLogger())
	start := time.Now()
	c.Prefetch(turnCtx)
	elapsed := time.Since(start)
	c.Close()

	assert.Less(t, elapsed, 2*time.Second)
	assert.ElementsMatch(t, []Name{Question, Emotion}, c.Present())

	q, ok := c.Question(context.Background())
	assert.True(t, ok)
	assert.True(t, q.IsQuestion)
	_, ok = c.Coref(context.Background())
	assert.False(t, ok)
}

func TestPanickingAnnotatorIsAbsent(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg, err := NewRegistry(NewFunc(CoreNLP, func(ctx context.Context, in Input, deps Deps) (any, error) {
		panic("bad index")
	}))
	require.NoError(t, err)

	c := NewContext(context.Background(), reg, Input{}, logger.NewNopLogger())
	defer c.Close()

	_, ok := c.CoreNLP(context.Background())
	assert.False(t, ok)
}

func TestUnregisteredAnnotationIsAbsent(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	c := NewContext(context.Background(), reg, Input{}, logger.NewNopLogger())
	defer c.Close()

	_, ok := c.EntityLinker(context.Background())
	assert.False(t, ok)

	var nilCtx *Context
	_, ok = nilCtx.Get(context.Background(), Coref)
	assert.False(t, ok)
}

func TestDefaultAnnotatorsOverHTTP(t *testing.T) {
	mux := http.NewServeMux()
	reply := func(body any) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(body)
		}
	}
	mux.HandleFunc("/entitylinker", reply(map[string]any{
		"spans": []map[string]any{{
			"span":  "pizza",
			"score": 0.9,
			"candidates": []map[string]any{{
				"name": "Pizza", "talkable_name": "pizza", "categories": []string{"food"},
			}},
		}},
	}))
	mux.HandleFunc("/question", reply(map[string]any{"is_question": false, "probability": 0.1}))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := remote.NewClient([]remote.ServiceConfig{
		{Name: "entitylinker", URL: srv.URL + "/entitylinker", RequiredContext: []string{"utterance"}},
		{Name: "question", URL: srv.URL + "/question"},
	}, logger.NewNopLogger())
	require.NoError(t, err)

	annotators := Registered(DefaultAnnotators(client), client.Has)
	require.Len(t, annotators, 2)

	reg, err := NewRegistry(annotators...)
	require.NoError(t, err)

	c := NewContext(context.Background(), reg, Input{Utterance: "let's talk about pizza"}, logger.NewNopLogger())
	c.Prefetch(context.Background())
	c.Close()

	linked, ok := c.EntityLinker(context.Background())
	require.True(t, ok)
	top, ok := linked.Top()
	require.True(t, ok)
	assert.Equal(t, "Pizza", top.Name)
	assert.True(t, top.HasCategory("FOOD"))

	q, ok := c.Question(context.Background())
	require.True(t, ok)
	assert.False(t, q.IsQuestion)
}
