package rg

import (
	"context"
	"strings"

	"socialbot-be/pkg/annotation"
	"socialbot-be/pkg/attributes"
)

// ResponseType is a coarse classification of the user utterance.
type ResponseType string

const (
	ResponseYes             ResponseType = "YES"
	ResponseNo              ResponseType = "NO"
	ResponseDontKnow        ResponseType = "DONT_KNOW"
	ResponseQuestion        ResponseType = "QUESTION"
	ResponseNavigation      ResponseType = "NAVIGATION"
	ResponseTopicSwitch     ResponseType = "TOPIC_SWITCH"
	ResponseEndConversation ResponseType = "END_CONVERSATION"
	ResponseTriggerWord     ResponseType = "TRIGGER_WORD"
)

type ResponseTypes map[ResponseType]bool

func (r ResponseTypes) Has(t ResponseType) bool { return r[t] }

func (r ResponseTypes) Add(types ...ResponseType) ResponseTypes {
	if r == nil {
		r = ResponseTypes{}
	}
	for _, t := range types {
		r[t] = true
	}
	return r
}

// TurnRecord is the part of a past turn RGs may look at.
type TurnRecord struct {
	UserText   string
	BotText    string
	ResponseRG string
	PromptRG   string
}

// Turn is one RG's view of the current turn. State is a copy; RGs change
// their state only through the Delta of a proposal.
type Turn struct {
	Num           int
	Utterance     string
	ResponseTypes ResponseTypes
	State         State
	Annotations   *annotation.Context

	CurrentEntity *annotation.Entity
	// EntityInitiatedThisTurn is true when the user raised CurrentEntity in
	// this utterance.
	EntityInitiatedThisTurn bool
	// RejectedEntities are entities the user asked to stop talking about.
	RejectedEntities []string

	// LastRGInControl is the prompt RG of the previous turn, or its response
	// RG when no prompt was given.
	LastRGInControl string
	LastAnswerType  AnswerType
	History         []TurnRecord

	UserAttributes attributes.Bag
	ClientInfo     map[string]any
}

// InControl reports whether the named RG led the previous turn.
func (t *Turn) InControl(name string) bool {
	return t.LastRGInControl != "" && t.LastRGInControl == name
}

// LastBotUtterance returns the previous bot utterance, or "".
func (t *Turn) LastBotUtterance() string {
	if len(t.History) == 0 {
		return ""
	}
	return t.History[len(t.History)-1].BotText
}

// EntityLinker is a shorthand for the linker annotation.
func (t *Turn) EntityLinker(ctx context.Context) (*annotation.EntityLinkerResult, bool) {
	return t.Annotations.EntityLinker(ctx)
}

// ContainsWord reports whether any of words appears as a whole word in the utterance.
func (t *Turn) ContainsWord(words ...string) bool {
	fields := strings.Fields(t.Utterance)
	for _, w := range words {
		w = strings.ToLower(w)
		if strings.Contains(w, " ") {
			if strings.Contains(" "+t.Utterance+" ", " "+w+" ") {
				return true
			}
			continue
		}
		for _, f := range fields {
			if strings.Trim(f, ".'") == w {
				return true
			}
		}
	}
	return false
}

// IsRejected reports whether the user asked to drop entity this session.
func (t *Turn) IsRejected(entity string) bool {
	for _, e := range t.RejectedEntities {
		if strings.EqualFold(e, entity) {
			return true
		}
	}
	return false
}

// Choose returns the first option the bot has never said, or else the one it
// said longest ago.
func (t *Turn) Choose(options ...string) string {
	if len(options) == 0 {
		return ""
	}
	best, bestAt := options[0], len(t.History)
	for _, o := range options {
		at := -1
		for i := len(t.History) - 1; i >= 0; i-- {
			if strings.Contains(t.History[i].BotText, o) {
				at = i
				break
			}
		}
		if at == -1 {
			return o
		}
		if at < bestAt {
			best, bestAt = o, at
		}
	}
	return best
}
