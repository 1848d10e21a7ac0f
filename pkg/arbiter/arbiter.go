// Package arbiter picks the response and prompt of a turn from the RG
// proposals. It is pure: the same input always gives the same choice.
package arbiter

import (
	"sort"

	"socialbot-be/pkg/annotation"
	"socialbot-be/pkg/rg"
)

type Response struct {
	RG       string
	Proposal *rg.ResponseProposal
}

type Prompt struct {
	RG       string
	Proposal *rg.PromptProposal
}

// Drop records a discarded proposal and why.
type Drop struct {
	RG     string
	Reason error
}

// Context is the turn information ties are broken with.
type Context struct {
	// PreviousRG is the RG in control of the previous turn.
	PreviousRG    string
	CurrentEntity *annotation.Entity
}

type Arbiter struct {
	filters       []Filter
	promptFilters []Filter
}

// New builds an arbiter applying filters to every proposal.
func New(filters ...Filter) *Arbiter {
	return &Arbiter{filters: filters}
}

// WithPromptFilters adds filters applied to prompts only.
func (a *Arbiter) WithPromptFilters(filters ...Filter) *Arbiter {
	return &Arbiter{filters: a.filters, promptFilters: append(append([]Filter{}, a.promptFilters...), filters...)}
}

func (a *Arbiter) check(filters []Filter, c Candidate) error {
	for _, f := range filters {
		if err := f(c); err != nil {
			return err
		}
	}
	return nil
}

// RankResponses returns the surviving responses best first, and the
// discarded ones in RG name order.
func (a *Arbiter) RankResponses(ctx Context, candidates []Response) ([]Response, []Drop) {
	var kept []Response
	var dropped []Drop
	for _, c := range byName(candidates, func(r Response) string { return r.RG }) {
		p := c.Proposal
		if p == nil || p.Priority == rg.PriorityNo {
			continue
		}
		err := a.check(a.filters, Candidate{RG: c.RG, Text: p.Text, Forced: p.Priority == rg.PriorityForceStart})
		if err != nil {
			dropped = append(dropped, Drop{RG: c.RG, Reason: err})
			continue
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		pi, pj := kept[i].Proposal, kept[j].Proposal
		if pi.Priority != pj.Priority {
			return pi.Priority > pj.Priority
		}
		return tieBreak(ctx, kept[i].RG, pi.CurEntity, kept[j].RG, pj.CurEntity)
	})
	return kept, dropped
}

// SelectResponse returns the best surviving response.
func (a *Arbiter) SelectResponse(ctx Context, candidates []Response) (Response, bool, []Drop) {
	ranked, dropped := a.RankResponses(ctx, candidates)
	if len(ranked) == 0 {
		return Response{}, false, dropped
	}
	return ranked[0], true, dropped
}

// RankPrompts orders surviving prompts best first. A FORCE_START prompt
// outranks every other prompt; ties are broken like responses.
func (a *Arbiter) RankPrompts(ctx Context, candidates []Prompt) ([]Prompt, []Drop) {
	var kept []Prompt
	var dropped []Drop
	filters := append(append([]Filter{}, a.filters...), a.promptFilters...)
	for _, c := range byName(candidates, func(p Prompt) string { return p.RG }) {
		p := c.Proposal
		if p == nil || p.Type == rg.PromptNo {
			continue
		}
		err := a.check(filters, Candidate{RG: c.RG, Text: p.Text, Forced: p.Type == rg.PromptForceStart})
		if err != nil {
			dropped = append(dropped, Drop{RG: c.RG, Reason: err})
			continue
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		pi, pj := kept[i].Proposal, kept[j].Proposal
		if pi.Type != pj.Type {
			return pi.Type > pj.Type
		}
		return tieBreak(ctx, kept[i].RG, pi.CurEntity, kept[j].RG, pj.CurEntity)
	})
	return kept, dropped
}

// SelectPrompt picks the prompt for the chosen response. A response that does
// not need a prompt gets none.
func (a *Arbiter) SelectPrompt(ctx Context, chosen Response, candidates []Prompt) (Prompt, bool, []Drop) {
	if chosen.Proposal == nil || !chosen.Proposal.NeedsPrompt {
		return Prompt{}, false, nil
	}
	ranked, dropped := a.RankPrompts(ctx, candidates)
	if len(ranked) == 0 {
		return Prompt{}, false, dropped
	}
	return ranked[0], true, dropped
}

// tieBreak reports whether a should rank before b at equal priority: the RG
// that led the previous turn first, then the RG tracking the current entity,
// then by name.
func tieBreak(ctx Context, a string, ae *annotation.Entity, b string, be *annotation.Entity) bool {
	if ctx.PreviousRG != "" {
		if a == ctx.PreviousRG && b != ctx.PreviousRG {
			return true
		}
		if b == ctx.PreviousRG && a != ctx.PreviousRG {
			return false
		}
	}
	if ctx.CurrentEntity != nil {
		am := ae != nil && ae.SameAs(ctx.CurrentEntity)
		bm := be != nil && be.SameAs(ctx.CurrentEntity)
		if am != bm {
			return am
		}
	}
	return a < b
}

func byName[T any](in []T, name func(T) string) []T {
	out := append([]T(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return name(out[i]) < name(out[j]) })
	return out
}
