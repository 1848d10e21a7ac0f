package rg

import (
	"context"

	"socialbot-be/pkg/annotation"
	"socialbot-be/pkg/regex"
)

const questionThreshold = 0.5

// Base provides the default behaviour RGs embed and override.
type Base struct {
	name     string
	triggers []string
}

func NewBase(name string, triggers ...string) Base {
	return Base{name: name, triggers: triggers}
}

func (b Base) Name() string { return b.name }

func (b Base) TriggerWords() []string { return b.triggers }

func (b Base) TreeletForEntity(annotation.Entity) (string, bool) { return "", false }

func (b Base) GetPrompt(context.Context, *Turn) (*PromptProposal, error) { return nil, nil }

// HandleRejection offers a neutral line in place of the dropped response,
// keeping the rejected proposal's bookkeeping.
func (b Base) HandleRejection(_ context.Context, _ *Turn, rejected *ResponseProposal) *ResponseProposal {
	return &ResponseProposal{
		Text:        "Let's talk about something else.",
		Priority:    rejected.Priority,
		NeedsPrompt: true,
		Delta:       rejected.Delta,
	}
}

// IdentifyResponseTypes classifies the utterance with the shared templates
// and the question annotator.
func (b Base) IdentifyResponseTypes(ctx context.Context, t *Turn) ResponseTypes {
	return ClassifyUtterance(ctx, t.Utterance, t.Annotations).Add(b.triggerTypes(t)...)
}

func (b Base) triggerTypes(t *Turn) []ResponseType {
	if len(b.triggers) > 0 && t.ContainsWord(b.triggers...) {
		return []ResponseType{ResponseTriggerWord}
	}
	return nil
}

// ClassifyUtterance is the RG-independent part of response type detection.
func ClassifyUtterance(ctx context.Context, utterance string, ann *annotation.Context) ResponseTypes {
	types := ResponseTypes{}
	switch {
	case regex.EndConversationTemplate.Matches(utterance):
		types.Add(ResponseEndConversation)
	case regex.TopicSwitchTemplate.Matches(utterance):
		types.Add(ResponseTopicSwitch)
	case regex.NavigationTemplate.Matches(utterance):
		types.Add(ResponseNavigation)
	}

	if regex.DontKnowTemplate.Matches(utterance) {
		types.Add(ResponseDontKnow)
	} else if regex.NoTemplate.Matches(utterance) {
		types.Add(ResponseNo)
	}
	if regex.YesTemplate.Matches(utterance) {
		types.Add(ResponseYes)
	}

	if q, ok := ann.Question(ctx); ok {
		if q.IsQuestion || q.Probability > questionThreshold {
			types.Add(ResponseQuestion)
		}
	} else if regex.QuestionTemplate.Matches(utterance) {
		types.Add(ResponseQuestion)
	}
	return types
}
