package rg

import (
	"encoding/json"
	"fmt"
)

// Priority ranks response proposals. Higher wins.
type Priority int

const (
	PriorityNo Priority = iota
	PriorityUniversalFallback
	PriorityWeakContinue
	PriorityCanStart
	PriorityStrongContinue
	PriorityForceStart
)

var priorityNames = map[Priority]string{
	PriorityNo:                "NO",
	PriorityUniversalFallback: "UNIVERSAL_FALLBACK",
	PriorityWeakContinue:      "WEAK_CONTINUE",
	PriorityCanStart:          "CAN_START",
	PriorityStrongContinue:    "STRONG_CONTINUE",
	PriorityForceStart:        "FORCE_START",
}

func (p Priority) String() string {
	if n, ok := priorityNames[p]; ok {
		return n
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

// IsContinue reports whether p is one of the CONTINUE levels.
func (p Priority) IsContinue() bool {
	return p == PriorityStrongContinue || p == PriorityWeakContinue
}

// ParsePriority accepts the names printed by String.
func ParsePriority(s string) (Priority, error) {
	for p, n := range priorityNames {
		if n == s {
			return p, nil
		}
	}
	return PriorityNo, fmt.Errorf("unknown priority %q", s)
}

func (p Priority) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

// PromptType ranks prompt proposals. Higher wins.
type PromptType int

const (
	PromptNo PromptType = iota
	PromptGeneric
	PromptContextual
	PromptCurrentTopic
	PromptForceStart
)

var promptTypeNames = map[PromptType]string{
	PromptNo:           "NO",
	PromptGeneric:      "GENERIC",
	PromptContextual:   "CONTEXTUAL",
	PromptCurrentTopic: "CURRENT_TOPIC",
	PromptForceStart:   "FORCE_START",
}

func (p PromptType) String() string {
	if n, ok := promptTypeNames[p]; ok {
		return n
	}
	return fmt.Sprintf("PromptType(%d)", int(p))
}

func (p PromptType) Valid() bool {
	_, ok := promptTypeNames[p]
	return ok
}

func ParsePromptType(s string) (PromptType, error) {
	for p, n := range promptTypeNames {
		if n == s {
			return p, nil
		}
	}
	return PromptNo, fmt.Errorf("unknown prompt type %q", s)
}

func (p PromptType) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

// AnswerType tells the next turn what kind of reply the bot is waiting for.
type AnswerType string

const (
	AnswerNone                 AnswerType = "NONE"
	AnswerQuestionSelfHandling AnswerType = "QUESTION_SELFHANDLING"
	AnswerQuestionHandoff      AnswerType = "QUESTION_HANDOFF"
	AnswerStatement            AnswerType = "STATEMENT"
	AnswerEnding               AnswerType = "ENDING"
)

func (a AnswerType) Valid() bool {
	switch a {
	case AnswerNone, AnswerQuestionSelfHandling, AnswerQuestionHandoff, AnswerStatement, AnswerEnding:
		return true
	}
	return false
}
