// Package food is the food topic RG. Its dialogue lives in supernodes.yaml;
// this file supplies the NLU steps and decides where the graph starts.
package food

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/annotation"
	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/rg"
	"socialbot-be/pkg/treelet"
)

const Name = "FOOD"

const (
	keyCurFood         = "cur_food"
	keyCurFoodTalkable = "cur_food_talkable"
	keyAskedFavorite   = "asked_favorite_food"

	introSupernode       = "food_introductory"
	askFavoriteSupernode = "food_ask_favorite"
	favoriteAnswerNode   = "food_favorite_answer"

	// foodEntity is the linker's name for the topic itself.
	foodEntity = "food"
)

const rejectionText = "Food is a little different here in the cloud, so I might've said something weird. Let's talk about something else."

//go:embed supernodes.yaml
var supernodes []byte

type ResponseGenerator struct {
	rg.Base
	runtime *treelet.Runtime
}

func New(log logger.ILogger) (*ResponseGenerator, error) {
	r := &ResponseGenerator{Base: rg.NewBase(Name, "food", "eat", "eating", "hungry")}
	runtime, err := treelet.Load(Name, supernodes, log,
		treelet.WithNLU("food_entity", r.foodEntityNLU),
		treelet.WithNLU("favorite_answer", r.favoriteAnswerNLU),
		treelet.WithNLU("open_comment", r.openCommentNLU),
		treelet.WithNLU("favorite_food", r.favoriteFoodNLU),
	)
	if err != nil {
		return nil, err
	}
	r.runtime = runtime
	return r, nil
}

func (r *ResponseGenerator) Schema() rg.State {
	return rg.State{
		keyCurFood:              attributes.String(""),
		keyCurFoodTalkable:      attributes.String(""),
		keyAskedFavorite:        attributes.Bool(false),
		treelet.DefaultStateKey: attributes.String(""),
	}
}

// TreeletForEntity claims known foods and the food topic itself.
func (r *ResponseGenerator) TreeletForEntity(e annotation.Entity) (string, bool) {
	if strings.EqualFold(e.Name, foodEntity) {
		return askFavoriteSupernode, true
	}
	if isKnownFood(e.Name) || isKnownFood(e.Talkable()) {
		return introSupernode, true
	}
	return "", false
}

func (r *ResponseGenerator) GetResponse(ctx context.Context, t *rg.Turn) (*rg.ResponseProposal, error) {
	if t.InControl(Name) && t.State.GetString(treelet.DefaultStateKey) != "" {
		out, err := r.runtime.Respond(ctx, t, "")
		if err != nil || out == nil {
			return nil, err
		}
		return r.proposal(out, t.CurrentEntity, rg.PriorityStrongContinue), nil
	}

	if t.CurrentEntity == nil || !t.EntityInitiatedThisTurn || t.IsRejected(t.CurrentEntity.Name) {
		return nil, nil
	}
	start, ok := r.TreeletForEntity(*t.CurrentEntity)
	if !ok {
		return nil, nil
	}
	out, err := r.runtime.Respond(ctx, t, start)
	if err != nil || out == nil {
		return nil, err
	}
	priority := rg.PriorityCanStart
	if t.ResponseTypes.Has(rg.ResponseNavigation) {
		priority = rg.PriorityForceStart
	}
	return r.proposal(out, t.CurrentEntity, priority), nil
}

func (r *ResponseGenerator) proposal(out *treelet.Outcome, entity *annotation.Entity, def rg.Priority) *rg.ResponseProposal {
	priority := out.Priority
	if priority == rg.PriorityNo {
		priority = def
	}
	return &rg.ResponseProposal{
		Text:        out.Text,
		Priority:    priority,
		NeedsPrompt: out.NeedsPrompt,
		CurEntity:   entity,
		Delta:       out.Delta,
		AnswerType:  out.AnswerType,
		UserUpdates: out.UserUpdates,
	}
}

// GetPrompt asks for the user's favorite food once per session, unless a
// food was just rejected.
func (r *ResponseGenerator) GetPrompt(_ context.Context, t *rg.Turn) (*rg.PromptProposal, error) {
	if t.State.GetBool(keyAskedFavorite) || t.State.GetString(keyCurFood) != "" {
		return nil, nil
	}
	for _, e := range t.RejectedEntities {
		if isKnownFood(e) || strings.EqualFold(e, foodEntity) {
			return nil, nil
		}
	}
	return &rg.PromptProposal{
		Text:       "I've been thinking about food a lot lately. What's your favorite food?",
		Type:       rg.PromptGeneric,
		AnswerType: rg.AnswerQuestionSelfHandling,
		Delta: rg.Delta{
			keyAskedFavorite:        rg.SetBool(true),
			treelet.DefaultStateKey: rg.SetString(favoriteAnswerNode),
		},
	}, nil
}

func (r *ResponseGenerator) HandleRejection(_ context.Context, _ *rg.Turn, rejected *rg.ResponseProposal) *rg.ResponseProposal {
	return &rg.ResponseProposal{
		Text:        rejectionText,
		Priority:    rejected.Priority,
		NeedsPrompt: true,
		Delta: rg.Delta{
			keyCurFood:              rg.SetString(""),
			keyCurFoodTalkable:      rg.SetString(""),
			treelet.DefaultStateKey: rg.SetString(""),
		},
	}
}

// NotChosen drops the supernode hint so a lost turn does not resume later.
func (r *ResponseGenerator) NotChosen(state rg.State) rg.State {
	out := state.Clone()
	out.Set(treelet.DefaultStateKey, attributes.String(""))
	return out
}

func (r *ResponseGenerator) foodEntityNLU(_ context.Context, t *rg.Turn) (attributes.Bag, error) {
	if t.CurrentEntity == nil {
		return nil, fmt.Errorf("no current entity")
	}
	e := t.CurrentEntity
	info, name, ok := lookup(e.Name)
	if !ok {
		if info, name, ok = lookup(e.Talkable()); !ok {
			return nil, fmt.Errorf("unknown food %q", e.Name)
		}
	}
	flags := attributes.Bag{
		"food":     attributes.String(name),
		"talkable": attributes.String(e.Talkable()),
		"be":       attributes.String(inflect(e.IsPlural, "is", "are")),
		"them":     attributes.String(inflect(e.IsPlural, "it", "them")),
		"comment":  attributes.String(info.comment(e.IsPlural)),
	}
	if info.CustomQuestion != "" {
		flags["custom_question"] = attributes.String(info.CustomQuestion)
	}
	return flags, nil
}

func (r *ResponseGenerator) favoriteAnswerNLU(ctx context.Context, t *rg.Turn) (attributes.Bag, error) {
	info, _, _ := lookup(t.State.GetString(keyCurFood))
	answer, plural := r.userAnswer(ctx, t)
	return attributes.Bag{
		"answer":        attributes.String(answer),
		"answer_be":     attributes.String(inflect(plural, "is", "are")),
		"custom_answer": attributes.String(info.CustomAnswer),
		"them":          attributes.String("it"),
		"dont_know":     attributes.Bool(t.ResponseTypes.Has(rg.ResponseDontKnow)),
		"no":            attributes.Bool(t.ResponseTypes.Has(rg.ResponseNo)),
	}, nil
}

// userAnswer picks what the user named: a linked food other than the current
// one, else the top linked entity, else the last noun, else the utterance
// with its lead-in removed.
func (r *ResponseGenerator) userAnswer(ctx context.Context, t *rg.Turn) (string, bool) {
	cur := t.State.GetString(keyCurFood)
	if linked, ok := t.EntityLinker(ctx); ok {
		e, found := linked.Find(func(e annotation.Entity) bool {
			return e.HasCategory(foodEntity) && !strings.EqualFold(e.Name, cur)
		})
		if !found {
			e, found = linked.Top()
		}
		if found {
			return e.Talkable(), e.IsPlural
		}
	}
	if nlp, ok := t.Annotations.CoreNLP(ctx); ok && len(nlp.Nouns) > 0 {
		return nlp.Nouns[len(nlp.Nouns)-1], true
	}
	answer := t.Utterance
	for _, lead := range []string{"i really like", "i like", "i love", "my favorite is", "my favorite", "i think"} {
		answer = strings.Replace(answer, lead, "", 1)
	}
	return strings.TrimSpace(answer), true
}

func (r *ResponseGenerator) openCommentNLU(_ context.Context, t *rg.Turn) (attributes.Bag, error) {
	talkable := t.State.GetString(keyCurFoodTalkable)
	options := make([]string, len(concludingStatements))
	for i, s := range concludingStatements {
		options[i] = fmt.Sprintf(s, talkable)
	}
	return attributes.Bag{
		"question":   attributes.Bool(t.ResponseTypes.Has(rg.ResponseQuestion)),
		"short":      attributes.Bool(len(strings.Fields(t.Utterance)) < 2),
		"concluding": attributes.String(t.Choose(options...)),
	}, nil
}

func (r *ResponseGenerator) favoriteFoodNLU(_ context.Context, t *rg.Turn) (attributes.Bag, error) {
	known := t.CurrentEntity != nil && t.EntityInitiatedThisTurn &&
		(isKnownFood(t.CurrentEntity.Name) || isKnownFood(t.CurrentEntity.Talkable()))
	return attributes.Bag{
		"known":        attributes.Bool(known),
		"dont_know":    attributes.Bool(t.ResponseTypes.Has(rg.ResponseDontKnow)),
		"no":           attributes.Bool(t.ResponseTypes.Has(rg.ResponseNo)),
		"topic_switch": attributes.Bool(t.ResponseTypes.Has(rg.ResponseTopicSwitch) || t.ResponseTypes.Has(rg.ResponseNavigation)),
	}, nil
}
