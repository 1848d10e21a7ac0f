package closing

import (
	"context"
	"testing"

	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/annotation"
	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/rg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialogActs(t *testing.T, acts annotation.DialogActs) *annotation.Context {
	t.Helper()
	reg, err := annotation.NewRegistry(annotation.NewFunc(annotation.DialogAct,
		func(context.Context, annotation.Input, annotation.Deps) (any, error) { return acts, nil }))
	require.NoError(t, err)
	c := annotation.NewContext(context.Background(), reg, annotation.Input{}, logger.NewNopLogger())
	t.Cleanup(c.Close)
	return c
}

func TestGetResponse(t *testing.T) {
	r := New()

	tests := []struct {
		name      string
		utterance string
		asked     bool
		inControl string
		acts      annotation.DialogActs
		wantNil   bool
		wantEnd   bool
		wantAsked bool
		priority  rg.Priority
	}{
		{name: "explicit goodbye", utterance: "ok bye", wantEnd: true, priority: rg.PriorityForceStart},
		{name: "have to go", utterance: "i have to go now", wantEnd: true, priority: rg.PriorityForceStart},
		{name: "likely closing is confirmed", utterance: "i think i'm done", acts: annotation.DialogActs{"closing": 0.9}, wantAsked: true, priority: rg.PriorityForceStart},
		{name: "unlikely closing is ignored", utterance: "i think i'm done", acts: annotation.DialogActs{"closing": 0.5}, wantNil: true},
		{name: "confirmed yes ends", utterance: "yes", asked: true, inControl: Name, wantEnd: true, priority: rg.PriorityForceStart},
		{name: "confirmed no continues", utterance: "no", asked: true, inControl: Name, priority: rg.PriorityStrongContinue},
		{name: "unrelated answer after asking", utterance: "pizza", asked: true, inControl: Name, wantNil: true},
		{name: "ordinary utterance", utterance: "i like pizza", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := &rg.Turn{
				Num:             4,
				Utterance:       tt.utterance,
				LastRGInControl: tt.inControl,
				State:           rg.WithDefaults(attributes.Bag{keyAskedToExit: attributes.Bool(tt.asked)}, r.Schema()),
			}
			if tt.acts != nil {
				turn.Annotations = dialogActs(t, tt.acts)
			}
			turn.ResponseTypes = r.IdentifyResponseTypes(context.Background(), turn)

			p, err := r.GetResponse(context.Background(), turn)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.priority, p.Priority)
			assert.Equal(t, tt.wantEnd, p.EndsSession)
			assert.Equal(t, tt.wantAsked, p.Delta[keyAskedToExit].Value().Truthy())
		})
	}
}

func TestNotChosenForgetsQuestion(t *testing.T) {
	r := New()
	state := attributes.Bag{keyAskedToExit: attributes.Bool(true)}
	assert.False(t, r.NotChosen(state).GetBool(keyAskedToExit))
	assert.True(t, state.GetBool(keyAskedToExit))
}
