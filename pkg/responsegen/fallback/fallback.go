// Package fallback always has something to say. It answers when no other RG
// does, handles requests to change the topic, and offers new topics.
package fallback

import (
	"context"

	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/rg"
)

const Name = "FALLBACK"

const (
	keyUsedResponse = "used_fallback_response"
	keyUsedPrompt   = "used_fallback_prompt"
)

var (
	fallbackResponses = []string{
		"Sorry, I'm not sure how to answer that.",
		"Hmm, I'm not quite sure what to say to that.",
		"I'm not sure I followed, but I'm happy to keep chatting.",
	}
	topicSwitchResponses = []string{
		"Okay, no problem.",
		"Alright, let's move on to something else.",
		"Sure, we can talk about something else.",
	}
	dontKnowResponses = []string{
		"That's okay, it's not always easy to say.",
		"No worries, we don't have to figure that out right now.",
	}
	prompts = []string{
		"I'd love to get to know you better. What are you interested in?",
		"There's so much I can share with you up here in the cloud. What's something you'd like to know more about?",
		"It's great getting to know you. If you don't mind me asking, what have you been interested in lately?",
		"I've been using my free time to learn new things. What would you like to learn more about?",
	}
)

type ResponseGenerator struct {
	rg.Base
}

func New() *ResponseGenerator {
	return &ResponseGenerator{Base: rg.NewBase(Name)}
}

func (r *ResponseGenerator) Schema() rg.State {
	return rg.State{
		keyUsedResponse: attributes.Int(0),
		keyUsedPrompt:   attributes.Int(0),
	}
}

func (r *ResponseGenerator) GetResponse(_ context.Context, t *rg.Turn) (*rg.ResponseProposal, error) {
	delta := rg.Delta{keyUsedResponse: rg.SetInt(t.State.GetInt(keyUsedResponse) + 1)}

	switch {
	case t.ResponseTypes.Has(rg.ResponseTopicSwitch):
		return &rg.ResponseProposal{
			Text:        t.Choose(topicSwitchResponses...),
			Priority:    rg.PriorityCanStart,
			NeedsPrompt: true,
			Delta:       delta,
		}, nil
	case t.InControl(Name) && t.ResponseTypes.Has(rg.ResponseDontKnow):
		return &rg.ResponseProposal{
			Text:        t.Choose(dontKnowResponses...),
			Priority:    rg.PriorityWeakContinue,
			NeedsPrompt: true,
			Delta:       delta,
		}, nil
	}

	return &rg.ResponseProposal{
		Text:        t.Choose(fallbackResponses...),
		Priority:    rg.PriorityUniversalFallback,
		NeedsPrompt: true,
		Delta:       delta,
	}, nil
}

// GetPrompt runs even when FALLBACK gave the response, so a prompt always exists.
func (r *ResponseGenerator) GetPrompt(_ context.Context, t *rg.Turn) (*rg.PromptProposal, error) {
	return &rg.PromptProposal{
		Text:       t.Choose(prompts...),
		Type:       rg.PromptGeneric,
		AnswerType: rg.AnswerQuestionHandoff,
		Delta:      rg.Delta{keyUsedPrompt: rg.SetInt(t.State.GetInt(keyUsedPrompt) + 1)},
	}, nil
}
