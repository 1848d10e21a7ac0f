// Package closing ends the conversation when the user wants to leave. An
// explicit goodbye ends it at once; a likely but unclear closing intent is
// confirmed first.
package closing

import (
	"context"

	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/rg"
)

const Name = "CLOSING"

const keyAskedToExit = "has_just_asked_to_exit"

// closingThreshold is the dialog act probability above which the user may be
// trying to stop.
const closingThreshold = 0.85

var (
	confirmQuestions = []string{
		"I'm hearing that you want to end this conversation. Is that correct?",
		"If I'm understanding correctly, you'd like to end this conversation. Is that right?",
		"Are you saying that you'd like to stop talking for now?",
	}
	continueTexts = []string{
		"Ok! I'm happy you want to keep talking with me.",
		"Great! I'd like to keep talking to you, too.",
		"Sounds good! Let's keep chatting.",
	}
	goodbyes = []string{
		"It was really nice talking with you. Goodbye!",
		"Thanks for chatting with me today. Talk to you later!",
	}
)

type ResponseGenerator struct {
	rg.Base
}

func New() *ResponseGenerator {
	return &ResponseGenerator{Base: rg.NewBase(Name)}
}

func (r *ResponseGenerator) Schema() rg.State {
	return rg.State{keyAskedToExit: attributes.Bool(false)}
}

func (r *ResponseGenerator) GetResponse(ctx context.Context, t *rg.Turn) (*rg.ResponseProposal, error) {
	reset := rg.Delta{keyAskedToExit: rg.SetBool(false)}

	if t.ResponseTypes.Has(rg.ResponseEndConversation) {
		return r.goodbye(t, reset), nil
	}

	if t.State.GetBool(keyAskedToExit) && t.InControl(Name) {
		switch {
		case t.ResponseTypes.Has(rg.ResponseNo):
			return &rg.ResponseProposal{
				Text:        t.Choose(continueTexts...),
				Priority:    rg.PriorityStrongContinue,
				NeedsPrompt: true,
				Delta:       reset,
			}, nil
		case t.ResponseTypes.Has(rg.ResponseYes):
			return r.goodbye(t, reset), nil
		}
		return nil, nil
	}

	if acts, ok := t.Annotations.DialogActs(ctx); ok && acts["closing"] > closingThreshold {
		return &rg.ResponseProposal{
			Text:       t.Choose(confirmQuestions...),
			Priority:   rg.PriorityForceStart,
			AnswerType: rg.AnswerQuestionSelfHandling,
			Delta:      rg.Delta{keyAskedToExit: rg.SetBool(true)},
		}, nil
	}
	return nil, nil
}

func (r *ResponseGenerator) goodbye(t *rg.Turn, delta rg.Delta) *rg.ResponseProposal {
	return &rg.ResponseProposal{
		Text:        t.Choose(goodbyes...),
		Priority:    rg.PriorityForceStart,
		Delta:       delta,
		EndsSession: true,
	}
}

// NotChosen forgets an unanswered confirmation question.
func (r *ResponseGenerator) NotChosen(state rg.State) rg.State {
	out := state.Clone()
	out.Set(keyAskedToExit, attributes.Bool(false))
	return out
}
