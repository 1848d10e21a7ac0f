package rg

import (
	"context"
	"testing"

	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/errkind"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var foodSchema = State{
	"cur_food":      attributes.String(""),
	"cur_supernode": attributes.String(""),
	"asked":         attributes.Bool(false),
}

func TestDeltaApply(t *testing.T) {
	old := State{
		"cur_food":      attributes.String("pizza"),
		"cur_supernode": attributes.String("intro"),
		"asked":         attributes.Bool(false),
	}

	t.Run("no update keeps state", func(t *testing.T) {
		d := Delta{"cur_food": NoUpdate, "cur_supernode": NoUpdate}
		got, err := d.Apply(old, foodSchema)
		require.NoError(t, err)
		assert.True(t, got.Equal(old))
	})

	t.Run("set fields replace", func(t *testing.T) {
		d := Delta{"cur_supernode": SetString("comment"), "asked": SetBool(true), "cur_food": NoUpdate}
		got, err := d.Apply(old, foodSchema)
		require.NoError(t, err)
		assert.Equal(t, "comment", got.GetString("cur_supernode"))
		assert.True(t, got.GetBool("asked"))
		assert.Equal(t, "pizza", got.GetString("cur_food"))
		assert.Equal(t, "intro", old.GetString("cur_supernode"), "old state must not change")
	})

	t.Run("idempotent", func(t *testing.T) {
		d := Delta{"cur_food": SetString("ramen")}
		once, err := d.Apply(old, foodSchema)
		require.NoError(t, err)
		twice, err := d.Apply(once, foodSchema)
		require.NoError(t, err)
		assert.True(t, once.Equal(twice))
	})

	t.Run("unknown field is malformed", func(t *testing.T) {
		d := Delta{"favourite": SetString("x")}
		_, err := d.Apply(old, foodSchema)
		assert.ErrorIs(t, err, errkind.ErrMalformedProposal)
	})
}

func TestDeltaMerge(t *testing.T) {
	a := Delta{"cur_food": SetString("pizza"), "asked": SetBool(true)}
	b := Delta{"cur_food": NoUpdate, "cur_supernode": SetString("x")}

	m := a.Merge(b)
	assert.Equal(t, []string{"asked", "cur_food", "cur_supernode"}, m.Fields())
	assert.Equal(t, "pizza", m["cur_food"].Value().String())
}

func TestWithDefaults(t *testing.T) {
	got := WithDefaults(State{"cur_food": attributes.String("pizza"), "stale": attributes.Int(1)}, foodSchema)
	assert.Equal(t, "pizza", got.GetString("cur_food"))
	assert.Contains(t, got, "asked")
	assert.NotContains(t, got, "stale")
}

func TestPriorityOrder(t *testing.T) {
	order := []Priority{
		PriorityNo, PriorityUniversalFallback, PriorityWeakContinue,
		PriorityCanStart, PriorityStrongContinue, PriorityForceStart,
	}
	for i := 1; i < len(order); i++ {
		assert.Less(t, order[i-1], order[i])
	}
	assert.Less(t, PromptGeneric, PromptContextual)
	assert.Less(t, PromptContextual, PromptCurrentTopic)
	assert.Less(t, PromptCurrentTopic, PromptForceStart)

	p, err := ParsePriority("STRONG_CONTINUE")
	require.NoError(t, err)
	assert.Equal(t, PriorityStrongContinue, p)
	_, err = ParsePriority("MAYBE")
	assert.Error(t, err)
}

func TestProposalNormalizeAndValidate(t *testing.T) {
	p := &ResponseProposal{Text: "  ", Priority: PriorityCanStart, NeedsPrompt: true}
	p.Normalize()
	assert.Equal(t, PriorityNo, p.Priority)
	assert.Equal(t, AnswerEnding, p.AnswerType)

	bad := &ResponseProposal{Text: "hi", Priority: Priority(42)}
	bad.Normalize()
	assert.ErrorIs(t, bad.Validate(foodSchema), errkind.ErrMalformedProposal)

	prompt := &PromptProposal{Text: "What's your favorite food?", Type: PromptGeneric}
	prompt.Normalize()
	assert.NoError(t, prompt.Validate(foodSchema))
	assert.Equal(t, AnswerQuestionSelfHandling, prompt.AnswerType)
}

func TestClassifyUtterance(t *testing.T) {
	tests := []struct {
		utterance string
		want      []ResponseType
	}{
		{"stop", []ResponseType{ResponseTopicSwitch}},
		{"let's talk about pizza", []ResponseType{ResponseNavigation}},
		{"let's talk about something else", []ResponseType{ResponseTopicSwitch}},
		{"goodbye", []ResponseType{ResponseEndConversation}},
		{"i don't know", []ResponseType{ResponseDontKnow}},
		{"yeah", []ResponseType{ResponseYes}},
		{"what do you like", []ResponseType{ResponseQuestion}},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			got := ClassifyUtterance(context.Background(), tt.utterance, nil)
			for _, w := range tt.want {
				assert.True(t, got.Has(w), "missing %s in %v", w, got)
			}
		})
	}
}

func TestBaseTriggerWords(t *testing.T) {
	b := NewBase("FOOD", "food")
	types := b.IdentifyResponseTypes(context.Background(), &Turn{Utterance: "i love food."})
	assert.True(t, types.Has(ResponseTriggerWord))

	types = b.IdentifyResponseTypes(context.Background(), &Turn{Utterance: "i love seafood"})
	assert.False(t, types.Has(ResponseTriggerWord))
}

func TestChooseLeastRepetitive(t *testing.T) {
	options := []string{"Okay.", "Sure.", "Alright."}

	tests := []struct {
		name    string
		history []TurnRecord
		want    string
	}{
		{name: "nothing said yet", want: "Okay."},
		{
			name:    "skips what was said",
			history: []TurnRecord{{BotText: "Okay. What next?"}},
			want:    "Sure.",
		},
		{
			name: "all used picks the oldest",
			history: []TurnRecord{
				{BotText: "Sure."},
				{BotText: "Alright."},
				{BotText: "Okay."},
			},
			want: "Sure.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := &Turn{History: tt.history}
			assert.Equal(t, tt.want, turn.Choose(options...))
		})
	}
}
