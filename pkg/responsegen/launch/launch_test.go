package launch

import (
	"context"
	"strings"
	"testing"

	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/rg"
	"socialbot-be/pkg/treelet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blocklist []string

func (b blocklist) Offensive(text string) bool {
	for _, w := range b {
		if strings.Contains(strings.ToLower(text), w) {
			return true
		}
	}
	return false
}

func newRG(t *testing.T) *ResponseGenerator {
	t.Helper()
	r, err := New(logger.NewNopLogger(), blocklist{"jerk"})
	require.NoError(t, err)
	return r
}

func TestFirstTurnGreeting(t *testing.T) {
	r := newRG(t)

	t.Run("new user", func(t *testing.T) {
		turn := &rg.Turn{Num: 0, State: rg.WithDefaults(nil, r.Schema())}
		p, err := r.GetResponse(context.Background(), turn)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, rg.PriorityForceStart, p.Priority)
		assert.Contains(t, p.Text, "Is it all right if I ask for your name?")
		assert.False(t, p.NeedsPrompt)
		assert.Equal(t, "launch_handle_name", p.Delta[treelet.DefaultStateKey].Value().String())
	})

	t.Run("returning user", func(t *testing.T) {
		turn := &rg.Turn{
			Num:            0,
			State:          rg.WithDefaults(nil, r.Schema()),
			UserAttributes: attributes.Bag{"name": attributes.String("Ann")},
		}
		p, err := r.GetResponse(context.Background(), turn)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, rg.PriorityForceStart, p.Priority)
		assert.Equal(t, "Hi Ann, welcome back! It's great to talk with you again.", p.Text)
		assert.True(t, p.NeedsPrompt)
	})
}

func TestHandleName(t *testing.T) {
	r := newRG(t)

	tests := []struct {
		name      string
		utterance string
		asked     bool
		wantNil   bool
		wantText  string
		wantName  string
		wantNext  string
	}{
		{name: "introduces themselves", utterance: "my name is ann", wantText: "Nice to meet you, Ann!", wantName: "Ann"},
		{name: "single word name", utterance: "bob", wantText: "Nice to meet you, Bob!", wantName: "Bob"},
		{name: "accented name", utterance: "élodie", wantText: "Nice to meet you, Élodie!", wantName: "Élodie"},
		{name: "introduces with accented name", utterance: "my name is élodie", wantText: "Nice to meet you, Élodie!", wantName: "Élodie"},
		{name: "refuses", utterance: "i'd rather not say", wantText: "No problem. Let's move on!"},
		{name: "says yes", utterance: "sure", wantText: "What's your name?", wantNext: "launch_handle_name"},
		{name: "unclear asks once more", utterance: "what was that", wantText: "Sorry, I didn't catch your name.", wantNext: "launch_handle_name"},
		{name: "unclear after asking moves on", utterance: "what was that", asked: true, wantText: "Great to meet you!"},
		{name: "offensive name ignored", utterance: "my name is jerk", asked: true, wantText: "Great to meet you!"},
		{name: "navigation declines", utterance: "let's talk about pizza", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := &rg.Turn{
				Num:             1,
				Utterance:       tt.utterance,
				LastRGInControl: Name,
				State: rg.WithDefaults(attributes.Bag{
					treelet.DefaultStateKey: attributes.String("launch_handle_name"),
					keyAskedAgain:           attributes.Bool(tt.asked),
				}, r.Schema()),
			}
			turn.ResponseTypes = r.IdentifyResponseTypes(context.Background(), turn)

			p, err := r.GetResponse(context.Background(), turn)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Contains(t, p.Text, tt.wantText)
			assert.Equal(t, rg.PriorityStrongContinue, p.Priority)
			assert.Equal(t, tt.wantName, p.UserUpdates.GetString("name"))
			assert.Equal(t, tt.wantNext, p.Delta[treelet.DefaultStateKey].Value().String())
		})
	}
}

func TestSilentAfterLaunch(t *testing.T) {
	r := newRG(t)
	turn := &rg.Turn{Num: 3, Utterance: "bob", LastRGInControl: "FOOD", State: rg.WithDefaults(nil, r.Schema())}
	p, err := r.GetResponse(context.Background(), turn)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestNotChosenDropsNameQuestion(t *testing.T) {
	r := newRG(t)
	state := attributes.Bag{treelet.DefaultStateKey: attributes.String("launch_handle_name")}
	assert.Empty(t, r.NotChosen(state).GetString(treelet.DefaultStateKey))
	assert.Equal(t, "launch_handle_name", state.GetString(treelet.DefaultStateKey))
}
