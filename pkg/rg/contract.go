// Package rg defines the contract between the turn controller and the
// response generators (RGs).
package rg

import (
	"context"
	"fmt"
	"strings"

	"socialbot-be/pkg/annotation"
	"socialbot-be/pkg/attributes"
	"socialbot-be/pkg/errkind"
)

// ResponseProposal is an RG's candidate response for the turn.
type ResponseProposal struct {
	Text        string
	Priority    Priority
	NeedsPrompt bool
	CurEntity   *annotation.Entity
	Delta       Delta
	AnswerType  AnswerType
	// UserUpdates are merged into the user attributes when the proposal wins.
	UserUpdates attributes.Bag
	EndsSession bool
}

// PromptProposal is an RG's candidate follow-up question.
type PromptProposal struct {
	Text        string
	Type        PromptType
	CurEntity   *annotation.Entity
	Delta       Delta
	AnswerType  AnswerType
	UserUpdates attributes.Bag
}

// Normalize applies the proposal conventions: needs_prompt implies an ending
// answer type and empty text means the RG declines.
func (p *ResponseProposal) Normalize() {
	p.Text = strings.TrimSpace(p.Text)
	if p.Text == "" {
		p.Priority = PriorityNo
	}
	if p.NeedsPrompt {
		p.AnswerType = AnswerEnding
	}
	if p.AnswerType == "" {
		p.AnswerType = AnswerStatement
	}
}

func (p *PromptProposal) Normalize() {
	p.Text = strings.TrimSpace(p.Text)
	if p.Text == "" {
		p.Type = PromptNo
	}
	if p.AnswerType == "" {
		p.AnswerType = AnswerQuestionSelfHandling
	}
}

// Validate checks a normalized response proposal against the RG's schema.
func (p *ResponseProposal) Validate(schema State) error {
	if !p.Priority.Valid() {
		return fmt.Errorf("%w: invalid priority %d", errkind.ErrMalformedProposal, int(p.Priority))
	}
	if !p.AnswerType.Valid() {
		return fmt.Errorf("%w: invalid answer type %q", errkind.ErrMalformedProposal, p.AnswerType)
	}
	return p.Delta.Validate(schema)
}

func (p *PromptProposal) Validate(schema State) error {
	if !p.Type.Valid() {
		return fmt.Errorf("%w: invalid prompt type %d", errkind.ErrMalformedProposal, int(p.Type))
	}
	if !p.AnswerType.Valid() {
		return fmt.Errorf("%w: invalid answer type %q", errkind.ErrMalformedProposal, p.AnswerType)
	}
	return p.Delta.Validate(schema)
}

// ResponseGenerator is implemented by every topic module.
type ResponseGenerator interface {
	Name() string
	// Schema declares the state fields and their defaults.
	Schema() State
	IdentifyResponseTypes(ctx context.Context, t *Turn) ResponseTypes
	// GetResponse returns nil when the RG does not want to respond.
	GetResponse(ctx context.Context, t *Turn) (*ResponseProposal, error)
	// GetPrompt returns nil when the RG has nothing to ask.
	GetPrompt(ctx context.Context, t *Turn) (*PromptProposal, error)
	// HandleRejection replaces a response the safety filter dropped.
	HandleRejection(ctx context.Context, t *Turn, rejected *ResponseProposal) *ResponseProposal
	TriggerWords() []string
	// TreeletForEntity returns the supernode that takes over when the user
	// raises entity.
	TreeletForEntity(entity annotation.Entity) (string, bool)
}

// NotChosenUpdater is implemented by RGs that keep bookkeeping when their
// proposal loses.
type NotChosenUpdater interface {
	NotChosen(state State) State
}
