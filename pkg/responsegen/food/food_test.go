package food

import (
	"context"
	"testing"

	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/annotation"
	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/rg"
	"socialbot-be/pkg/treelet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pizza = &annotation.Entity{Name: "Pizza", TalkableName: "pizza", Categories: []string{"food"}}

func newRG(t *testing.T) *ResponseGenerator {
	t.Helper()
	r, err := New(logger.NewNopLogger())
	require.NoError(t, err)
	return r
}

func newTurn(r *ResponseGenerator, utterance string, state attributes.Bag) *rg.Turn {
	turn := &rg.Turn{
		Num:       2,
		Utterance: utterance,
		State:     rg.WithDefaults(state, r.Schema()),
	}
	turn.ResponseTypes = rg.ClassifyUtterance(context.Background(), utterance, nil)
	return turn
}

func TestTreeletForEntity(t *testing.T) {
	r := newRG(t)

	tests := []struct {
		entity annotation.Entity
		want   string
		ok     bool
	}{
		{annotation.Entity{Name: "Pizza"}, introSupernode, true},
		{annotation.Entity{Name: "Sushi"}, introSupernode, true},
		{annotation.Entity{Name: "Tacos", TalkableName: "tacos"}, introSupernode, true},
		{annotation.Entity{Name: "Food"}, askFavoriteSupernode, true},
		{annotation.Entity{Name: "Paris"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.entity.Name, func(t *testing.T) {
			got, ok := r.TreeletForEntity(tt.entity)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntroductionOfClaimedFood(t *testing.T) {
	r := newRG(t)
	turn := newTurn(r, "let's talk about pizza", nil)
	turn.CurrentEntity = pizza
	turn.EntityInitiatedThisTurn = true

	p, err := r.GetResponse(context.Background(), turn)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, rg.PriorityForceStart, p.Priority, "explicit navigation")
	assert.Contains(t, p.Text, "pizza")
	assert.Contains(t, p.Text, "What's your favorite pizza topping?")
	assert.False(t, p.NeedsPrompt)
	assert.Equal(t, "pizza", p.Delta[keyCurFood].Value().String())
	assert.Equal(t, "food_comment_on_favorite_type", p.Delta[treelet.DefaultStateKey].Value().String())
	assert.Equal(t, "pizza", p.UserUpdates.GetString("last_food_discussed"))
	require.NoError(t, p.Validate(r.Schema()))
}

func TestIntroductionWithComment(t *testing.T) {
	r := newRG(t)
	turn := newTurn(r, "sushi", nil)
	turn.CurrentEntity = &annotation.Entity{Name: "Sushi", Categories: []string{"food"}}
	turn.EntityInitiatedThisTurn = true

	p, err := r.GetResponse(context.Background(), turn)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, rg.PriorityCanStart, p.Priority)
	assert.Contains(t, p.Text, "I especially like the fresh salmon in it")
	assert.Contains(t, p.Text, "What do you like best about it?")
	assert.Equal(t, "food_open_ended", p.Delta[treelet.DefaultStateKey].Value().String())
}

func TestFavoriteTypeFollowUp(t *testing.T) {
	r := newRG(t)
	state := attributes.Bag{
		keyCurFood:              attributes.String("pizza"),
		keyCurFoodTalkable:      attributes.String("pizza"),
		treelet.DefaultStateKey: attributes.String("food_comment_on_favorite_type"),
	}

	tests := []struct {
		utterance string
		want      string
	}{
		{"mushrooms", "Mushrooms are a great choice! Personally, when it comes to pizza, I really like a nice mushroom pizza."},
		{"i don't know", "No worries, it can be difficult to pick just one!"},
		{"i like pepperoni", "Pepperoni are a great choice!"},
		{"éclairs", "Éclairs are a great choice!"},
	}

	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			turn := newTurn(r, tt.utterance, state)
			turn.LastRGInControl = Name
			turn.CurrentEntity = pizza

			p, err := r.GetResponse(context.Background(), turn)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Contains(t, p.Text, tt.want)
			assert.Equal(t, rg.PriorityStrongContinue, p.Priority)
			assert.Equal(t, "food_open_ended", p.Delta[treelet.DefaultStateKey].Value().String())
		})
	}
}

func TestOpenEndedConcludes(t *testing.T) {
	r := newRG(t)
	turn := newTurn(r, "the cheese is the best part", attributes.Bag{
		keyCurFood:              attributes.String("pizza"),
		keyCurFoodTalkable:      attributes.String("pizza"),
		treelet.DefaultStateKey: attributes.String("food_open_ended"),
	})
	turn.LastRGInControl = Name

	p, err := r.GetResponse(context.Background(), turn)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Contains(t, p.Text, "Thanks for recommending pizza!")
	assert.True(t, p.NeedsPrompt)
	p.Normalize()
	assert.Equal(t, rg.AnswerEnding, p.AnswerType)
	assert.Equal(t, "", p.Delta[keyCurFood].Value().String())
	assert.Equal(t, "", p.Delta[treelet.DefaultStateKey].Value().String())
}

func TestNotInControlDoesNotContinue(t *testing.T) {
	r := newRG(t)
	turn := newTurn(r, "mushrooms", attributes.Bag{
		keyCurFood:              attributes.String("pizza"),
		treelet.DefaultStateKey: attributes.String("food_comment_on_favorite_type"),
	})
	turn.LastRGInControl = "FALLBACK"

	p, err := r.GetResponse(context.Background(), turn)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestFavoriteFoodAnswer(t *testing.T) {
	r := newRG(t)
	state := attributes.Bag{
		keyAskedFavorite:        attributes.Bool(true),
		treelet.DefaultStateKey: attributes.String(favoriteAnswerNode),
	}

	t.Run("known food jumps to the introduction", func(t *testing.T) {
		turn := newTurn(r, "pizza", state)
		turn.LastRGInControl = Name
		turn.CurrentEntity = pizza
		turn.EntityInitiatedThisTurn = true

		p, err := r.GetResponse(context.Background(), turn)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Contains(t, p.Text, "favorite pizza topping")
	})

	t.Run("not sure", func(t *testing.T) {
		turn := newTurn(r, "i'm not sure", state)
		turn.LastRGInControl = Name

		p, err := r.GetResponse(context.Background(), turn)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Contains(t, p.Text, "hard to choose")
	})

	t.Run("topic switch declines", func(t *testing.T) {
		turn := newTurn(r, "let's talk about something else", state)
		turn.LastRGInControl = Name

		p, err := r.GetResponse(context.Background(), turn)
		require.NoError(t, err)
		assert.Nil(t, p)
	})
}

func TestGetPrompt(t *testing.T) {
	r := newRG(t)

	t.Run("asks once", func(t *testing.T) {
		p, err := r.GetPrompt(context.Background(), newTurn(r, "", nil))
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, rg.PromptGeneric, p.Type)
		assert.Equal(t, favoriteAnswerNode, p.Delta[treelet.DefaultStateKey].Value().String())

		p, err = r.GetPrompt(context.Background(), newTurn(r, "", attributes.Bag{keyAskedFavorite: attributes.Bool(true)}))
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("skipped after a food was rejected", func(t *testing.T) {
		turn := newTurn(r, "", nil)
		turn.RejectedEntities = []string{"Pizza"}
		p, err := r.GetPrompt(context.Background(), turn)
		require.NoError(t, err)
		assert.Nil(t, p)
	})
}

func TestRejectionAndNotChosen(t *testing.T) {
	r := newRG(t)
	rejected := &rg.ResponseProposal{Text: "bad", Priority: rg.PriorityStrongContinue}

	p := r.HandleRejection(context.Background(), newTurn(r, "", nil), rejected)
	assert.Equal(t, rg.PriorityStrongContinue, p.Priority)
	assert.Contains(t, p.Text, "Food is a little different here in the cloud")
	p.Normalize()
	require.NoError(t, p.Validate(r.Schema()))

	state := rg.WithDefaults(attributes.Bag{treelet.DefaultStateKey: attributes.String("food_open_ended")}, r.Schema())
	after := r.NotChosen(state)
	assert.Equal(t, "", after.GetString(treelet.DefaultStateKey))
	assert.Equal(t, "food_open_ended", state.GetString(treelet.DefaultStateKey), "input is not modified")
}
